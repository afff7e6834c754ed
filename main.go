package main

import (
	"context"
	"log"
	"strings"

	api "outreach-backend/cmd/api"
	campaigndomain "outreach-backend/internal/campaign/domain"
	campaignRepo "outreach-backend/internal/campaign/repository"
	campaignScheduler "outreach-backend/internal/campaign/scheduler"
	campaignUsecase "outreach-backend/internal/campaign/usecase"
	mailboxdomain "outreach-backend/internal/mailbox/domain"
	mailboxRepo "outreach-backend/internal/mailbox/repository"
	mailboxScheduler "outreach-backend/internal/mailbox/scheduler"
	mailboxUsecase "outreach-backend/internal/mailbox/usecase"
	"outreach-backend/internal/notification"
	"outreach-backend/pkg/config"
	"outreach-backend/pkg/database"
	"outreach-backend/pkg/fcm"
	"outreach-backend/pkg/gmail"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.NewPostgresConnection(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Auto-migrate database schemas
	if err := db.AutoMigrate(
		&mailboxdomain.MailboxCredential{},
		&mailboxdomain.WatchSubscription{},
		&campaigndomain.Sequence{},
		&campaigndomain.SequenceStep{},
		&campaigndomain.SequenceProspect{},
		&campaigndomain.SequenceProspectMessage{},
		&campaigndomain.CampaignEvent{},
	); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	// Initialize repositories (dependency injection)
	credentialRepo := mailboxRepo.NewCredentialRepository(db)
	watchRepo := mailboxRepo.NewWatchRepository(db)
	eventRepo := campaignRepo.NewEventRepository(db)
	messageRepo := campaignRepo.NewProspectMessageRepository(db)
	prospectRepo := campaignRepo.NewProspectRepository(db)

	// Initialize Gmail service
	gmailService := gmail.NewService(cfg.GoogleClientID, cfg.GoogleClientSecret)

	// Initialize use cases (dependency injection)
	tokenUc := mailboxUsecase.NewTokenUsecase(credentialRepo, gmailService)
	watchUc := mailboxUsecase.NewWatchUsecase(watchRepo, credentialRepo, tokenUc, gmailService, cfg.GooglePubSubTopic)
	syncUc := mailboxUsecase.NewSyncUsecase(watchRepo, tokenUc, gmailService)

	classifier := campaignUsecase.NewClassifier()
	analyticsUc := campaignUsecase.NewAnalyticsUsecase(eventRepo, messageRepo, prospectRepo)
	inboundUc := campaignUsecase.NewInboundUsecase(classifier, analyticsUc, messageRepo, tokenUc, gmailService)
	dispatchUc := campaignUsecase.NewDispatchUsecase(messageRepo, prospectRepo, eventRepo, analyticsUc, tokenUc, gmailService, cfg.TrackingBaseURL)

	// Inbound candidates discovered by history sync flow into classification
	syncUc.SetInboundProcessor(inboundUc)

	// Initialize FCM client for operator alerts (optional)
	var fcmClient *fcm.Client
	if cfg.FirebaseCredentials != "" {
		fcmClient, err = fcm.NewClient(cfg.FirebaseCredentials)
		if err != nil {
			log.Printf("[WARN] Failed to initialize FCM client (operator alerts disabled): %v", err)
			fcmClient = nil
		}
	}

	// Initialize Notification Service (Pub/Sub)
	// Only start if project ID is configured
	if cfg.GoogleProjectID != "" {
		// Extract short topic name from full resource name if necessary
		topicName := cfg.GooglePubSubTopic
		if parts := strings.Split(topicName, "/"); len(parts) > 1 {
			topicName = parts[len(parts)-1]
		}
		if topicName == "" {
			topicName = "gmail-updates"
		}

		notifService, err := notification.NewService(cfg.GoogleProjectID, topicName, syncUc, cfg.GoogleCredentials)
		if err != nil {
			log.Printf("[ERROR] Failed to initialize notification service: %v", err)
		} else {
			go notifService.Start(context.Background())
		}
	} else {
		log.Printf("[WARN] GoogleProjectID not configured, notification service disabled")
	}

	// Start background schedulers
	sweepScheduler := mailboxScheduler.NewWatchSweepScheduler(watchUc, fcmClient, cfg.OperatorFCMTokens, cfg.WatchSweepInterval)
	sweepScheduler.Start()
	defer sweepScheduler.Stop()

	dispatchScheduler := campaignScheduler.NewDispatchScheduler(dispatchUc, cfg.DispatchInterval)
	dispatchScheduler.Start()
	defer dispatchScheduler.Stop()

	// Initialize HTTP handler
	handler := api.NewHandler(credentialRepo, watchUc, syncUc, analyticsUc, cfg)

	// Start server
	log.Printf("Server starting on port %s", cfg.Port)
	if err := handler.Start(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
