package delivery

import (
	"net/http"

	"outreach-backend/internal/campaign/usecase"
	"outreach-backend/pkg/apperr"

	"github.com/gin-gonic/gin"
)

// transparentGif is a 1x1 transparent pixel served to tracking requests.
var transparentGif = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00, 0x80, 0x00,
	0x00, 0x00, 0x00, 0x00, 0xff, 0xff, 0xff, 0x21, 0xf9, 0x04, 0x01, 0x00,
	0x00, 0x00, 0x00, 0x2c, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00,
	0x00, 0x02, 0x02, 0x44, 0x01, 0x00, 0x3b,
}

type CampaignHandler struct {
	analyticsUsecase usecase.AnalyticsUsecase
}

func NewCampaignHandler(analyticsUsecase usecase.AnalyticsUsecase) *CampaignHandler {
	return &CampaignHandler{
		analyticsUsecase: analyticsUsecase,
	}
}

func (h *CampaignHandler) GetSequenceAnalytics(c *gin.Context) {
	sequenceID := c.Param("id")

	analytics, err := h.analyticsUsecase.GetSequenceAnalytics(sequenceID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"sequence_id": sequenceID, "steps": analytics})
}

func (h *CampaignHandler) GetSequenceOpenAnalytics(c *gin.Context) {
	sequenceID := c.Param("id")
	descending := c.Query("sort") == "desc"

	activities, err := h.analyticsUsecase.GetSequenceOpenAnalytics(sequenceID, descending)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"sequence_id": sequenceID, "opens": activities})
}

func (h *CampaignHandler) GetSequenceReplyAnalytics(c *gin.Context) {
	sequenceID := c.Param("id")
	descending := c.Query("sort") == "desc"

	activities, err := h.analyticsUsecase.GetSequenceReplyAnalytics(sequenceID, descending)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"sequence_id": sequenceID, "replies": activities})
}

// TrackOpen serves the tracking pixel. Always returns the pixel: a broken
// image in a prospect's mail client would leak that tracking exists.
func (h *CampaignHandler) TrackOpen(c *gin.Context) {
	spmsID := c.Query("spmsId")
	if spmsID != "" {
		if err := h.analyticsUsecase.RecordOpen(spmsID); err != nil && !apperr.IsAttribution(err) {
			c.Error(err)
		}
	}

	c.Header("Cache-Control", "no-store, no-cache, must-revalidate")
	c.Data(http.StatusOK, "image/gif", transparentGif)
}

func (h *CampaignHandler) TrackUnsubscribe(c *gin.Context) {
	spID := c.Query("spId")
	if spID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "spId is required"})
		return
	}

	if err := h.analyticsUsecase.RecordUnsubscribe(spID); err != nil {
		if apperr.IsNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte("<html><body><p>You have been unsubscribed.</p></body></html>"))
}
