package notification

import (
	"context"
	"log"
	"time"
)

// Scheduler runs the two periodic jobs in-process: dispatch on a short period,
// digest generation on a long one. Both jobs are stateless between ticks; all
// coordination lives in the queue and token tables, so overlapping deployments
// sharing a database stay safe through the claim step.
type Scheduler struct {
	dispatcher    *Dispatcher
	digest        *DigestGenerator
	dispatchEvery time.Duration
	digestEvery   time.Duration
	alerts        *AlertMailer
}

func NewScheduler(dispatcher *Dispatcher, digest *DigestGenerator) *Scheduler {
	return &Scheduler{
		dispatcher:    dispatcher,
		digest:        digest,
		dispatchEvery: envDuration("DISPATCH_INTERVAL", DefaultDispatchEvery),
		digestEvery:   envDuration("DIGEST_INTERVAL", DefaultDigestEvery),
		alerts:        NewAlertMailerFromEnv(),
	}
}

// Start launches the job loops and returns. They stop when ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	// Claims abandoned by a previous crashed process are parked for bulk retry.
	recovered, err := s.dispatcher.RecoverStale(ctx, DefaultClaimGracePeriod)
	if err != nil {
		log.Printf("scheduler: stale claim recovery failed: %v", err)
	} else if recovered > 0 {
		log.Printf("scheduler: recovered %d stale claims to failed", recovered)
	}

	go s.dispatchLoop(ctx)
	go s.digestLoop(ctx)
	log.Printf("scheduler: dispatch every %s, digest every %s", s.dispatchEvery, s.digestEvery)
}

func (s *Scheduler) dispatchLoop(ctx context.Context) {
	ticker := time.NewTicker(s.dispatchEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Println("scheduler: dispatch loop stopping")
			return
		case <-ticker.C:
			runCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
			if _, err := s.dispatcher.Run(runCtx); err != nil {
				log.Printf("scheduler: dispatch run failed: %v", err)
				s.alerts.JobFailed("dispatch", err)
			}
			cancel()
		}
	}
}

func (s *Scheduler) digestLoop(ctx context.Context) {
	ticker := time.NewTicker(s.digestEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Println("scheduler: digest loop stopping")
			return
		case <-ticker.C:
			runCtx, cancel := context.WithTimeout(ctx, time.Minute)
			result, err := s.digest.Run(runCtx)
			cancel()
			if err != nil {
				log.Printf("scheduler: digest run failed: %v", err)
				s.alerts.JobFailed("digest", err)
				continue
			}
			if result.Skipped {
				log.Printf("scheduler: digest skipped (%s)", result.Reason)
			} else {
				log.Printf("scheduler: digest enqueued for %d subscribers", result.Enqueued)
			}
		}
	}
}
