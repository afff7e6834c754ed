package api

import (
	"net/http"

	campaignDelivery "outreach-backend/internal/campaign/delivery"
	mailboxDelivery "outreach-backend/internal/mailbox/delivery"
	"outreach-backend/pkg/config"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, mailboxHandler *mailboxDelivery.MailboxHandler, campaignHandler *campaignDelivery.CampaignHandler, cfg *config.Config) {
	api := r.Group("/api")
	{
		// Health check (no auth required)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		// Pub/Sub push deliveries authenticate at the infrastructure level,
		// not with platform bearer tokens
		api.POST("/webhook/gmail", mailboxHandler.GmailWebhook)

		// Mailbox routes (protected)
		mailboxes := api.Group("/mailboxes")
		mailboxes.Use(AuthMiddleware(cfg.JWTSecret))
		{
			mailboxes.POST("/connect", mailboxHandler.ConnectMailbox)
			mailboxes.GET("/:email/status", mailboxHandler.GetMailboxStatus)
			mailboxes.DELETE("/:email", mailboxHandler.DisconnectMailbox)
		}

		// Sequence analytics routes (protected)
		sequences := api.Group("/sequences")
		sequences.Use(AuthMiddleware(cfg.JWTSecret))
		{
			sequences.GET("/:id/analytics", campaignHandler.GetSequenceAnalytics)
			sequences.GET("/:id/analytics/opens", campaignHandler.GetSequenceOpenAnalytics)
			sequences.GET("/:id/analytics/replies", campaignHandler.GetSequenceReplyAnalytics)
		}
	}

	// Tracking routes live outside /api: prospects hit these from their mail
	// clients, unauthenticated
	track := r.Group("/track")
	{
		track.GET("/open", campaignHandler.TrackOpen)
		track.GET("/unsubscribe", campaignHandler.TrackUnsubscribe)
	}
}
