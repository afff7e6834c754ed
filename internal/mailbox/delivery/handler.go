package delivery

import (
	"encoding/base64"
	"encoding/json"
	"log"
	"net/http"

	mailboxdomain "outreach-backend/internal/mailbox/domain"
	mailboxdto "outreach-backend/internal/mailbox/dto"
	"outreach-backend/internal/mailbox/repository"
	"outreach-backend/internal/mailbox/usecase"
	"outreach-backend/pkg/apperr"

	"github.com/gin-gonic/gin"
)

type MailboxHandler struct {
	credentialRepo repository.CredentialRepository
	watchUsecase   usecase.WatchUsecase
	syncUsecase    usecase.SyncUsecase
}

func NewMailboxHandler(credentialRepo repository.CredentialRepository, watchUsecase usecase.WatchUsecase, syncUsecase usecase.SyncUsecase) *MailboxHandler {
	return &MailboxHandler{
		credentialRepo: credentialRepo,
		watchUsecase:   watchUsecase,
		syncUsecase:    syncUsecase,
	}
}

// ConnectMailbox stores (or replaces) a mailbox's OAuth grant and registers
// a push watch so inbound changes start flowing immediately.
func (h *MailboxHandler) ConnectMailbox(c *gin.Context) {
	var req mailboxdto.ConnectMailboxRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cred := &mailboxdomain.MailboxCredential{
		MailboxEmail: req.MailboxEmail,
		AccessToken:  req.AccessToken,
		RefreshToken: req.RefreshToken,
		ExpiryMs:     req.ExpiryMs,
		Scope:        req.Scope,
	}
	if err := h.credentialRepo.Upsert(cred); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	sub, err := h.watchUsecase.EnsureWatch(c.Request.Context(), req.MailboxEmail, true)
	if err != nil {
		if apperr.IsCredential(err) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, mailboxdto.ConnectMailboxResponse{
		MailboxEmail: req.MailboxEmail,
		Status:       cred.Status,
		WatchExpiry:  sub.ExpirationMs,
	})
}

func (h *MailboxHandler) GetMailboxStatus(c *gin.Context) {
	email := c.Param("email")

	cred, err := h.credentialRepo.FindByEmail(email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if cred == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "mailbox not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"mailboxEmail": cred.MailboxEmail,
		"status":       cred.Status,
		"scope":        cred.Scope,
	})
}

// DisconnectMailbox stops the provider push channel, drops the watch
// subscription and marks the credential disconnected so background loops
// skip the mailbox.
func (h *MailboxHandler) DisconnectMailbox(c *gin.Context) {
	email := c.Param("email")

	cred, err := h.credentialRepo.FindByEmail(email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if cred == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "mailbox not found"})
		return
	}

	if err := h.watchUsecase.Disconnect(c.Request.Context(), email); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err := h.credentialRepo.MarkStatus(email, mailboxdomain.CredentialStatusDisconnected); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"mailboxEmail": email,
		"status":       mailboxdomain.CredentialStatusDisconnected,
	})
}

// GmailWebhook accepts Pub/Sub push deliveries. Returning a non-2xx status
// makes Pub/Sub redeliver, so only transient failures get one.
func (h *MailboxHandler) GmailWebhook(c *gin.Context) {
	var envelope mailboxdto.PushEnvelope
	if err := c.ShouldBindJSON(&envelope); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	data, err := base64.StdEncoding.DecodeString(envelope.Message.Data)
	if err != nil {
		log.Printf("[Webhook] Invalid push payload encoding: %v", err)
		c.JSON(http.StatusOK, gin.H{"status": "discarded"})
		return
	}

	var notification struct {
		EmailAddress string `json:"emailAddress"`
		HistoryID    uint64 `json:"historyId"`
	}
	if err := json.Unmarshal(data, &notification); err != nil {
		log.Printf("[Webhook] Invalid push payload: %v", err)
		c.JSON(http.StatusOK, gin.H{"status": "discarded"})
		return
	}

	err = h.syncUsecase.HandleNotification(c.Request.Context(), notification.EmailAddress, notification.HistoryID, envelope.Message.MessageID)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindTransient {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		log.Printf("[Webhook] Dropping notification for %s: %v", notification.EmailAddress, err)
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
