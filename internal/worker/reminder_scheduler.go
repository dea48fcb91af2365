package worker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/clientloop/dispatch-engine/internal/channel"
	"github.com/clientloop/dispatch-engine/internal/domain"
	"github.com/clientloop/dispatch-engine/internal/pkg/logger"
	"github.com/clientloop/dispatch-engine/internal/service/dispatch"
)

const (
	// DefaultWarningDays is how many days ahead of a subscription anchor
	// the reminder is sent when the tenant has not configured an offset.
	DefaultWarningDays = 5

	// DefaultReminderHour is the local hour the daily scan fires.
	DefaultReminderHour = 8

	// DefaultScanTimeout bounds one full reminder scan.
	DefaultScanTimeout = 30 * time.Minute
)

// SubscriptionSource lists the active subscriptions eligible for
// reminders; satisfied by the subscription repository. Only customers
// with a usable email participate.
type SubscriptionSource interface {
	ListActiveWithEmail(ctx context.Context) ([]domain.ReminderCandidate, error)
}

// ReminderScheduler runs the once-daily recurrence scan: it matches active
// subscriptions against today's calendar offset and delivers expiration
// reminders over email. Reminders are single-recipient sends, not
// campaign-backed — they bypass the dispatch engine entirely.
type ReminderScheduler struct {
	subscriptions SubscriptionSource
	email         channel.Sender
	runs          dispatch.RunRepository
	leases        LeaseFactory
	renderer      *ReminderRenderer

	warningDays int
	hour        int // local hour of day the scan fires
	now         func() time.Time

	// Stats
	remindersSent int64
	errs          int64

	// Control
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
	mu      sync.Mutex
}

// NewReminderScheduler creates the daily reminder worker. A nil runs
// repository disables run persistence; a nil now defaults to time.Now.
func NewReminderScheduler(
	subscriptions SubscriptionSource,
	email channel.Sender,
	runs dispatch.RunRepository,
	leases LeaseFactory,
	renderer *ReminderRenderer,
	warningDays, hour int,
	now func() time.Time,
) *ReminderScheduler {
	if warningDays <= 0 {
		warningDays = DefaultWarningDays
	}
	if hour < 0 || hour > 23 {
		hour = DefaultReminderHour
	}
	if now == nil {
		now = time.Now
	}
	return &ReminderScheduler{
		subscriptions: subscriptions,
		email:         email,
		runs:          runs,
		leases:        leases,
		renderer:      renderer,
		warningDays:   warningDays,
		hour:          hour,
		now:           now,
	}
}

// Start begins the daily loop.
func (s *ReminderScheduler) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("reminder scheduler already running")
	}
	s.running = true
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.mu.Unlock()

	logger.Info("reminder scheduler starting", "hour", s.hour, "warning_days", s.warningDays)

	s.wg.Add(1)
	go s.dailyLoop()
	return nil
}

// Stop cancels the loop and waits for an in-flight scan to drain.
func (s *ReminderScheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
	logger.Info("reminder scheduler stopped",
		"reminders_sent", atomic.LoadInt64(&s.remindersSent),
		"errors", atomic.LoadInt64(&s.errs))
}

func (s *ReminderScheduler) dailyLoop() {
	defer s.wg.Done()

	for {
		timer := time.NewTimer(s.untilNextRun())
		select {
		case <-s.ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			s.Scan(s.ctx)
		}
	}
}

// untilNextRun returns the wait until the next occurrence of the
// configured hour.
func (s *ReminderScheduler) untilNextRun() time.Duration {
	now := s.now()
	next := time.Date(now.Year(), now.Month(), now.Day(), s.hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next.Sub(now)
}

// Scan runs one reminder pass. Two guards keep it single-shot per target
// date: the per-day lease excludes concurrent scans, and the recorded run
// excludes repeats after the lease is gone (a lagging instance firing hours
// later, or a restart at the scheduled hour). Exported for tests and for an
// operator-triggered re-run.
func (s *ReminderScheduler) Scan(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, DefaultScanTimeout)
	defer cancel()

	targetDate := s.now().AddDate(0, 0, s.warningDays)
	day := targetDate.Format("2006-01-02")

	lease := s.leases.ReminderLease(day)
	acquired, err := lease.Acquire(ctx)
	if err != nil {
		logger.Error("acquire reminder lease", "day", day, "error", err)
		atomic.AddInt64(&s.errs, 1)
		return
	}
	if !acquired {
		logger.Debug("reminder scan already in flight", "day", day)
		return
	}
	defer lease.Release(ctx)

	runRef := fmt.Sprintf("reminders:%s", day)
	if s.runs != nil {
		ran, err := s.runs.HasRun(ctx, runRef)
		if err != nil {
			// Scanning anyway could double-send; stand down and let the
			// next firing retry.
			logger.Error("check reminder run", "day", day, "error", err)
			atomic.AddInt64(&s.errs, 1)
			return
		}
		if ran {
			logger.Debug("reminder scan already ran", "day", day)
			return
		}
	}

	candidates, err := s.subscriptions.ListActiveWithEmail(ctx)
	if err != nil {
		logger.Error("list reminder candidates", "error", err)
		atomic.AddInt64(&s.errs, 1)
		return
	}

	outcome := domain.DispatchOutcome{
		CampaignID: runRef,
		StartedAt:  s.now(),
	}

	for _, cand := range candidates {
		if !cand.DueOn(targetDate) {
			continue
		}
		outcome.Attempted++

		subject, body, err := s.renderer.Render(cand, targetDate)
		if err != nil {
			outcome.Failed++
			outcome.RecordFailure(cand.CustomerID, domain.ChannelEmail, err.Error())
			logger.Error("render reminder", "subscription_id", cand.ID, "error", err)
			continue
		}

		rcpt := domain.Recipient{
			CustomerID: cand.CustomerID,
			Name:       cand.CustomerName,
			Email:      cand.CustomerEmail,
		}
		if err := s.email.Send(ctx, cand.TenantID, rcpt, subject, body); err != nil {
			outcome.Failed++
			outcome.RecordFailure(cand.CustomerID, domain.ChannelEmail, err.Error())
			logger.Warn("reminder send failed",
				"subscription_id", cand.ID,
				"recipient", cand.CustomerEmail,
				"kind", string(channel.KindOf(err)),
				"error", err)
			continue
		}
		outcome.Delivered++
		atomic.AddInt64(&s.remindersSent, 1)
	}

	outcome.FinishedAt = s.now()
	if s.runs != nil {
		if err := s.runs.RecordRun(ctx, outcome); err != nil {
			logger.Error("record reminder run", "day", day, "error", err)
		}
	}

	logger.Info("reminder scan finished",
		"day", day,
		"attempted", outcome.Attempted,
		"delivered", outcome.Delivered,
		"failed", outcome.Failed)
}
