package api

import (
	campaignDelivery "outreach-backend/internal/campaign/delivery"
	campaignUsecase "outreach-backend/internal/campaign/usecase"
	mailboxDelivery "outreach-backend/internal/mailbox/delivery"
	mailboxRepo "outreach-backend/internal/mailbox/repository"
	mailboxUsecase "outreach-backend/internal/mailbox/usecase"
	"outreach-backend/pkg/config"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	config          *config.Config
	mailboxHandler  *mailboxDelivery.MailboxHandler
	campaignHandler *campaignDelivery.CampaignHandler
}

func NewHandler(credentialRepo mailboxRepo.CredentialRepository, watchUc mailboxUsecase.WatchUsecase, syncUc mailboxUsecase.SyncUsecase, analyticsUc campaignUsecase.AnalyticsUsecase, cfg *config.Config) *Handler {
	return &Handler{
		config:          cfg,
		mailboxHandler:  mailboxDelivery.NewMailboxHandler(credentialRepo, watchUc, syncUc),
		campaignHandler: campaignDelivery.NewCampaignHandler(analyticsUc),
	}
}

func (h *Handler) Start(addr string) error {
	r := gin.Default()
	gin.SetMode(gin.ReleaseMode)

	// CORS middleware
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	SetupRoutes(r, h.mailboxHandler, h.campaignHandler, h.config)

	return r.Run(addr)
}
