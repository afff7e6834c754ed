package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	mailboxusecase "outreach-backend/internal/mailbox/usecase"
	"outreach-backend/pkg/apperr"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"
)

// GmailNotification is the payload Gmail publishes on mailbox changes.
type GmailNotification struct {
	EmailAddress string `json:"emailAddress"`
	HistoryID    uint64 `json:"historyId"`
}

// Service consumes the Gmail push topic over a Pub/Sub pull subscription and
// drives incremental history sync for each notified mailbox.
type Service struct {
	pubsubClient *pubsub.Client
	syncUsecase  mailboxusecase.SyncUsecase
	projectID    string
	topicName    string
	subName      string

	// Track last pushed historyId per mailbox to drop stale notifications
	// before touching storage. Receive callbacks run concurrently.
	mu            sync.Mutex
	lastHistoryID map[string]uint64
}

func NewService(projectID, topicName string, syncUsecase mailboxusecase.SyncUsecase, credentialsFile string) (*Service, error) {
	ctx := context.Background()

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create pubsub client: %v", err)
	}

	return &Service{
		pubsubClient:  client,
		syncUsecase:   syncUsecase,
		projectID:     projectID,
		topicName:     topicName,
		subName:       topicName + "-sub", // Convention: topic-sub
		lastHistoryID: make(map[string]uint64),
	}, nil
}

func (s *Service) Start(ctx context.Context) {
	log.Printf("[PubSub] Starting notification service with topic: %s, subscription: %s", s.topicName, s.subName)

	sub := s.pubsubClient.Subscription(s.subName)
	exists, err := sub.Exists(ctx)
	if err != nil {
		log.Printf("[PubSub] Error checking subscription existence: %v", err)
		return
	}

	if !exists {
		topic := s.pubsubClient.Topic(s.topicName)
		topicExists, err := topic.Exists(ctx)
		if err != nil {
			log.Printf("[PubSub] Error checking topic existence: %v", err)
			return
		}
		if !topicExists {
			log.Printf("[PubSub] Topic %s does not exist, cannot create subscription", s.topicName)
			return
		}

		sub, err = s.pubsubClient.CreateSubscription(ctx, s.subName, pubsub.SubscriptionConfig{
			Topic:       topic,
			AckDeadline: 10 * time.Second,
		})
		if err != nil {
			log.Printf("[PubSub] Failed to create subscription: %v", err)
			return
		}
		log.Printf("[PubSub] Created subscription: %s", s.subName)
	}

	log.Printf("[PubSub] Listening for messages on subscription: %s", s.subName)
	err = sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		s.handleMessage(ctx, msg)
	})
	if err != nil {
		log.Printf("[PubSub] Error receiving messages: %v", err)
	}
}

func (s *Service) handleMessage(ctx context.Context, msg *pubsub.Message) {
	var notification GmailNotification
	if err := json.Unmarshal(msg.Data, &notification); err != nil {
		log.Printf("[PubSub] Failed to unmarshal notification: %v", err)
		msg.Ack()
		return
	}

	if s.isStale(notification.EmailAddress, notification.HistoryID) {
		msg.Ack()
		return
	}

	syncCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	err := s.syncUsecase.HandleNotification(syncCtx, notification.EmailAddress, notification.HistoryID, msg.ID)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindTransient {
			// Nack for redelivery: the cursor was not advanced, so the
			// retried delta is a superset of this one
			log.Printf("[PubSub] Transient sync failure for %s, will retry: %v", notification.EmailAddress, err)
			s.forget(notification.EmailAddress)
			msg.Nack()
			return
		}
		// Credential and validation failures won't heal on redelivery
		log.Printf("[PubSub] Dropping notification for %s: %v", notification.EmailAddress, err)
	}
	msg.Ack()
}

func (s *Service) isStale(mailboxEmail string, historyID uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if last, ok := s.lastHistoryID[mailboxEmail]; ok && historyID <= last {
		log.Printf("[PubSub] Skipping duplicate notification for %s (historyId %d <= last %d)", mailboxEmail, historyID, last)
		return true
	}
	s.lastHistoryID[mailboxEmail] = historyID
	return false
}

// forget clears the in-memory dedup entry so a nacked notification is not
// treated as stale when Pub/Sub redelivers it.
func (s *Service) forget(mailboxEmail string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.lastHistoryID, mailboxEmail)
}
