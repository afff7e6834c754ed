package scheduler

import (
	"context"
	"log"
	"time"

	"outreach-backend/internal/campaign/usecase"
)

// DispatchScheduler sweeps for due prospect messages at a seconds-level
// cadence and triggers sends.
type DispatchScheduler struct {
	dispatchUsecase usecase.DispatchUsecase
	interval        time.Duration
	stopChan        chan struct{}
}

// NewDispatchScheduler creates a new scheduler
func NewDispatchScheduler(dispatchUc usecase.DispatchUsecase, interval time.Duration) *DispatchScheduler {
	return &DispatchScheduler{
		dispatchUsecase: dispatchUc,
		interval:        interval,
		stopChan:        make(chan struct{}),
	}
}

// Start begins the scheduler loop
func (s *DispatchScheduler) Start() {
	log.Printf("[Dispatch] Starting dispatch sweep (interval: %v)", s.interval)

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.sweep()
			case <-s.stopChan:
				log.Println("[Dispatch] Scheduler stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the scheduler
func (s *DispatchScheduler) Stop() {
	close(s.stopChan)
}

func (s *DispatchScheduler) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	report, err := s.dispatchUsecase.DispatchDue(ctx)
	if err != nil {
		log.Printf("[Dispatch] Sweep failed: %v", err)
		return
	}

	if report.Due > 0 {
		log.Printf("[Dispatch] Sweep complete: due=%d sent=%d skipped=%d failed=%d", report.Due, report.Sent, report.Skipped, report.Failed)
	}
}
