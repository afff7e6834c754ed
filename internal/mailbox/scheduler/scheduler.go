package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"outreach-backend/internal/mailbox/usecase"
	"outreach-backend/pkg/fcm"
)

// WatchSweepScheduler periodically renews watch subscriptions nearing
// expiry. Individual mailbox failures are aggregated into one report and
// pushed to operators.
type WatchSweepScheduler struct {
	watchUsecase   usecase.WatchUsecase
	fcmClient      *fcm.Client
	operatorTokens []string
	interval       time.Duration
	stopChan       chan struct{}
}

// NewWatchSweepScheduler creates a new scheduler
func NewWatchSweepScheduler(watchUc usecase.WatchUsecase, fcmClient *fcm.Client, operatorTokens []string, interval time.Duration) *WatchSweepScheduler {
	return &WatchSweepScheduler{
		watchUsecase:   watchUc,
		fcmClient:      fcmClient,
		operatorTokens: operatorTokens,
		interval:       interval,
		stopChan:       make(chan struct{}),
	}
}

// Start begins the scheduler loop
func (s *WatchSweepScheduler) Start() {
	log.Printf("[WatchSweep] Starting watch renewal sweep (interval: %v)", s.interval)

	go func() {
		// Run immediately on start
		s.sweep()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.sweep()
			case <-s.stopChan:
				log.Println("[WatchSweep] Scheduler stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the scheduler
func (s *WatchSweepScheduler) Stop() {
	close(s.stopChan)
}

func (s *WatchSweepScheduler) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	report, err := s.watchUsecase.SweepExpiring(ctx)
	if err != nil {
		log.Printf("[WatchSweep] Sweep failed: %v", err)
		return
	}

	if report.Scanned == 0 {
		return
	}

	log.Printf("[WatchSweep] Sweep complete: %s", report)
	for _, failure := range report.Failures {
		log.Printf("[WatchSweep] Renewal failed for %s: %s", failure.MailboxEmail, failure.Error)
	}

	// One batched operator notification per sweep, never one per mailbox
	if len(report.Failures) > 0 && s.fcmClient != nil && len(s.operatorTokens) > 0 {
		_, err := s.fcmClient.SendToDevices(ctx, s.operatorTokens, fcm.NotificationData{
			Title: "Watch renewal failures",
			Body:  fmt.Sprintf("%d of %d mailbox watch renewals failed", len(report.Failures), report.Scanned),
			Data: map[string]string{
				"type":    "watch_sweep_report",
				"scanned": fmt.Sprintf("%d", report.Scanned),
				"renewed": fmt.Sprintf("%d", report.Renewed),
				"failed":  fmt.Sprintf("%d", len(report.Failures)),
			},
		})
		if err != nil {
			log.Printf("[WatchSweep] Failed to send operator alert: %v", err)
		}
	}
}
