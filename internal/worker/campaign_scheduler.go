package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/clientloop/dispatch-engine/internal/domain"
	"github.com/clientloop/dispatch-engine/internal/pkg/distlock"
	"github.com/clientloop/dispatch-engine/internal/pkg/logger"
	"github.com/clientloop/dispatch-engine/internal/service/dispatch"
)

const (
	// DefaultSweepInterval is how often the scheduler checks for due
	// campaigns.
	DefaultSweepInterval = time.Minute

	// DefaultSweepTimeout bounds one full promotion sweep.
	DefaultSweepTimeout = 10 * time.Minute
)

// Dispatcher runs the send algorithm for one campaign; satisfied by
// *dispatch.Engine.
type Dispatcher interface {
	Dispatch(ctx context.Context, c *domain.Campaign) (*domain.DispatchOutcome, error)
}

// CampaignSource lists campaigns due for promotion; satisfied by the
// campaign repository.
type CampaignSource interface {
	ListDue(ctx context.Context, now time.Time) ([]domain.Campaign, error)
}

// LeaseFactory mints dispatch leases; satisfied by *distlock.Factory.
type LeaseFactory interface {
	CampaignLease(campaignID string) distlock.Lock
	ReminderLease(day string) distlock.Lock
}

// CampaignScheduler periodically promotes due campaigns into dispatch.
// Each campaign is claimed through a dispatch lease before the engine is
// invoked, so overlapping sweeps never double-send; a failure dispatching
// one campaign never prevents the next from being attempted.
type CampaignScheduler struct {
	campaigns CampaignSource
	engine    Dispatcher
	leases    LeaseFactory

	sweepInterval time.Duration
	now           func() time.Time

	// Stats
	dispatched int64
	errs       int64

	// Control
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
	mu      sync.Mutex
}

// NewCampaignScheduler creates the due-campaign promotion worker. A nil
// now defaults to time.Now.
func NewCampaignScheduler(campaigns CampaignSource, engine Dispatcher, leases LeaseFactory, sweepInterval time.Duration, now func() time.Time) *CampaignScheduler {
	if sweepInterval <= 0 {
		sweepInterval = DefaultSweepInterval
	}
	if now == nil {
		now = time.Now
	}
	return &CampaignScheduler{
		campaigns:     campaigns,
		engine:        engine,
		leases:        leases,
		sweepInterval: sweepInterval,
		now:           now,
	}
}

// Start begins the sweep loop.
func (s *CampaignScheduler) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("campaign scheduler already running")
	}
	s.running = true
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.mu.Unlock()

	logger.Info("campaign scheduler starting", "sweep_interval", s.sweepInterval)

	s.wg.Add(1)
	go s.sweepLoop()
	return nil
}

// Stop cancels the loop and waits for the in-flight sweep to drain.
func (s *CampaignScheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
	logger.Info("campaign scheduler stopped",
		"dispatched", atomic.LoadInt64(&s.dispatched),
		"errors", atomic.LoadInt64(&s.errs))
}

func (s *CampaignScheduler) sweepLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(s.ctx)
		}
	}
}

// Sweep runs one promotion pass over all currently-due campaigns. Exported
// so the manual trigger path and tests can run a pass without the timer.
func (s *CampaignScheduler) Sweep(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, DefaultSweepTimeout)
	defer cancel()

	due, err := s.campaigns.ListDue(ctx, s.now())
	if err != nil {
		logger.Error("list due campaigns", "error", err)
		atomic.AddInt64(&s.errs, 1)
		return
	}

	for i := range due {
		s.dispatchOne(ctx, &due[i])
	}
}

// dispatchOne claims and dispatches a single campaign. Errors are absorbed
// at this boundary so campaign N cannot stop campaign N+1.
func (s *CampaignScheduler) dispatchOne(ctx context.Context, c *domain.Campaign) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("dispatch panicked", "campaign_id", c.ID, "panic", fmt.Sprintf("%v", r))
			atomic.AddInt64(&s.errs, 1)
		}
	}()

	lease := s.leases.CampaignLease(c.ID)
	acquired, err := lease.Acquire(ctx)
	if err != nil {
		logger.Error("acquire dispatch lease", "campaign_id", c.ID, "error", err)
		atomic.AddInt64(&s.errs, 1)
		return
	}
	if !acquired {
		logger.Debug("campaign lease held elsewhere", "campaign_id", c.ID)
		return
	}
	defer lease.Release(ctx)

	if _, err := s.engine.Dispatch(ctx, c); err != nil {
		if errors.Is(err, dispatch.ErrAlreadySent) || errors.Is(err, dispatch.ErrAlreadyClaimed) {
			// Lost the race to another worker between ListDue and the claim.
			logger.Debug("campaign no longer dispatchable", "campaign_id", c.ID)
			return
		}
		logger.Error("dispatch campaign", "campaign_id", c.ID, "error", err)
		atomic.AddInt64(&s.errs, 1)
		return
	}
	atomic.AddInt64(&s.dispatched, 1)
}
