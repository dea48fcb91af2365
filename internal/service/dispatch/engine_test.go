package dispatch_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clientloop/dispatch-engine/internal/channel"
	"github.com/clientloop/dispatch-engine/internal/domain"
	"github.com/clientloop/dispatch-engine/internal/service/dispatch"
)

// memCampaigns is an in-memory campaign repository for unit testing.
type memCampaigns struct {
	mu        sync.Mutex
	campaigns map[string]*domain.Campaign
	failed    []string
}

func newMemCampaigns(cs ...*domain.Campaign) *memCampaigns {
	m := &memCampaigns{campaigns: map[string]*domain.Campaign{}}
	for _, c := range cs {
		cp := *c
		m.campaigns[c.ID] = &cp
	}
	return m
}

func (m *memCampaigns) Get(_ context.Context, tenantID, id string) (*domain.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok || c.TenantID != tenantID {
		return nil, dispatch.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memCampaigns) ClaimForDispatch(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok {
		return false, nil
	}
	if c.Status != domain.CampaignDraft && c.Status != domain.CampaignScheduled {
		return false, nil
	}
	c.Status = domain.CampaignSending
	return true, nil
}

func (m *memCampaigns) MarkSent(_ context.Context, id string, sentAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.campaigns[id]
	c.Status = domain.CampaignSent
	c.SentAt = &sentAt
	return nil
}

func (m *memCampaigns) MarkFailed(ctx context.Context, id string) error {
	// Honor cancellation like a real driver: a write on a done context
	// never reaches the database.
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.campaigns[id].Status = domain.CampaignFailed
	m.failed = append(m.failed, id)
	return nil
}

func (m *memCampaigns) ListDue(_ context.Context, now time.Time) ([]domain.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Campaign
	for _, c := range m.campaigns {
		if c.Status == domain.CampaignScheduled && c.ScheduledAt != nil && !c.ScheduledAt.After(now) {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *memCampaigns) status(id string) domain.CampaignStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.campaigns[id].Status
}

// memRuns collects recorded outcomes.
type memRuns struct {
	mu   sync.Mutex
	runs []domain.DispatchOutcome
}

func (m *memRuns) RecordRun(_ context.Context, o domain.DispatchOutcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, o)
	return nil
}

func (m *memRuns) HasRun(_ context.Context, campaignRef string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.runs {
		if o.CampaignID == campaignRef {
			return true, nil
		}
	}
	return false, nil
}

// fixedAudience returns a canned recipient list (or error).
type fixedAudience struct {
	recipients []domain.Recipient
	err        error
}

func (f fixedAudience) Resolve(context.Context, string, domain.TargetAudience, domain.Channels, []string) ([]domain.Recipient, error) {
	return f.recipients, f.err
}

// recordingSender records deliveries and fails for configured customers.
type recordingSender struct {
	mu      sync.Mutex
	sent    []string // customer ids in delivery order
	failFor map[string]error
}

func (s *recordingSender) Send(_ context.Context, _ string, rcpt domain.Recipient, _, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.failFor[rcpt.CustomerID]; ok {
		return err
	}
	s.sent = append(s.sent, rcpt.CustomerID)
	return nil
}

// countingLimiter counts permits without blocking.
type countingLimiter struct{ waits int }

func (l *countingLimiter) Wait(ctx context.Context) error {
	l.waits++
	return ctx.Err()
}

func draftCampaign() *domain.Campaign {
	return &domain.Campaign{
		ID:             "camp-1",
		TenantID:       "t1",
		Name:           "Launch",
		Subject:        "Hello",
		Content:        "<p>Hi there</p>",
		TargetAudience: domain.AudienceAll,
		Channels:       domain.Channels{domain.ChannelEmail, domain.ChannelChat},
		Status:         domain.CampaignDraft,
	}
}

func newEngine(repo *memCampaigns, runs *memRuns, aud fixedAudience, email, chat *recordingSender, lim *countingLimiter) *dispatch.Engine {
	return dispatch.NewEngine(repo, runs, aud, email, chat, lim, nil)
}

func TestDispatch_AllChannelsDelivered(t *testing.T) {
	c := draftCampaign()
	repo := newMemCampaigns(c)
	runs := &memRuns{}
	email := &recordingSender{}
	chat := &recordingSender{}
	lim := &countingLimiter{}
	aud := fixedAudience{recipients: []domain.Recipient{
		{CustomerID: "c1", Email: "ana@example.com", Phone: "+5511999990001"},
		{CustomerID: "c2", Email: "bruno@example.com"},
	}}

	out, err := newEngine(repo, runs, aud, email, chat, lim).Dispatch(context.Background(), c)
	require.NoError(t, err)

	assert.Equal(t, 2, out.Attempted)
	assert.Equal(t, 2, out.Delivered)
	assert.Equal(t, 0, out.Skipped)
	assert.Equal(t, 0, out.Failed)
	assert.Equal(t, []string{"c1", "c2"}, email.sent)
	assert.Equal(t, []string{"c1"}, chat.sent, "no phone, no chat attempt")
	assert.Equal(t, 2, lim.waits, "one permit per recipient")
	assert.Equal(t, domain.CampaignSent, repo.status("camp-1"))
	require.NotNil(t, repo.campaigns["camp-1"].SentAt)
	require.Len(t, runs.runs, 1)
	assert.Equal(t, 2, runs.runs[0].Delivered)
}

func TestDispatch_IdempotencyGuard(t *testing.T) {
	c := draftCampaign()
	c.Status = domain.CampaignSent
	repo := newMemCampaigns(c)
	email := &recordingSender{}
	chat := &recordingSender{}

	aud := fixedAudience{recipients: []domain.Recipient{{CustomerID: "c1", Email: "a@b.com"}}}
	_, err := newEngine(repo, &memRuns{}, aud, email, chat, &countingLimiter{}).Dispatch(context.Background(), c)

	assert.ErrorIs(t, err, dispatch.ErrAlreadySent)
	assert.Empty(t, email.sent, "a sent campaign performs zero sends")
	assert.Empty(t, chat.sent)
}

func TestDispatch_ClaimConflict(t *testing.T) {
	c := draftCampaign()
	repo := newMemCampaigns(c)
	// Another dispatch claimed it between the caller's read and this run.
	repo.campaigns["camp-1"].Status = domain.CampaignSending

	aud := fixedAudience{recipients: []domain.Recipient{{CustomerID: "c1", Email: "a@b.com"}}}
	_, err := newEngine(repo, &memRuns{}, aud, &recordingSender{}, &recordingSender{}, &countingLimiter{}).Dispatch(context.Background(), c)

	assert.ErrorIs(t, err, dispatch.ErrAlreadyClaimed)
}

func TestDispatch_PartialFailureStillSent(t *testing.T) {
	c := draftCampaign()
	c.Channels = domain.Channels{domain.ChannelEmail}
	repo := newMemCampaigns(c)
	email := &recordingSender{failFor: map[string]error{
		"c2": channel.NewError(domain.ChannelEmail, channel.KindTransportRejected, errors.New("bounced")),
	}}
	aud := fixedAudience{recipients: []domain.Recipient{
		{CustomerID: "c1", Email: "a@example.com"},
		{CustomerID: "c2", Email: "b@example.com"},
		{CustomerID: "c3", Email: "c@example.com"},
	}}

	out, err := newEngine(repo, &memRuns{}, aud, email, &recordingSender{}, &countingLimiter{}).Dispatch(context.Background(), c)
	require.NoError(t, err)

	assert.Equal(t, domain.CampaignSent, repo.status("camp-1"), "partial failure does not block completion")
	assert.Equal(t, 2, out.Delivered)
	assert.Equal(t, 1, out.Failed)
	assert.Equal(t, 0, out.Skipped)
	require.Len(t, out.Failures, 1)
	assert.Equal(t, "c2", out.Failures[0].CustomerID)
	assert.Equal(t, domain.ChannelEmail, out.Failures[0].Channel)
}

func TestDispatch_MixedChannelSkip(t *testing.T) {
	c := draftCampaign()
	repo := newMemCampaigns(c)
	email := &recordingSender{}
	chat := &recordingSender{}
	// No email address: the email attempt is skipped without error, chat
	// is attempted, and success counts the recipient as delivered.
	aud := fixedAudience{recipients: []domain.Recipient{
		{CustomerID: "c1", Phone: "+5511999990001"},
	}}

	out, err := newEngine(repo, &memRuns{}, aud, email, chat, &countingLimiter{}).Dispatch(context.Background(), c)
	require.NoError(t, err)

	assert.Empty(t, email.sent)
	assert.Equal(t, []string{"c1"}, chat.sent)
	assert.Equal(t, 1, out.Delivered)
	assert.Equal(t, 0, out.Skipped)
	assert.Empty(t, out.Failures)
}

func TestDispatch_UnreachableRecipientSkipped(t *testing.T) {
	c := draftCampaign()
	repo := newMemCampaigns(c)
	aud := fixedAudience{recipients: []domain.Recipient{
		{CustomerID: "c1"}, // no contact fields at all
	}}

	out, err := newEngine(repo, &memRuns{}, aud, &recordingSender{}, &recordingSender{}, &countingLimiter{}).Dispatch(context.Background(), c)
	require.NoError(t, err)

	assert.Equal(t, 1, out.Attempted)
	assert.Equal(t, 1, out.Skipped)
	assert.Equal(t, 0, out.Failed)
	assert.Empty(t, out.Failures, "missing contact fields are not errors")
	assert.Equal(t, domain.CampaignSent, repo.status("camp-1"))
}

func TestDispatch_AllChannelsFailedCountsFailed(t *testing.T) {
	c := draftCampaign()
	repo := newMemCampaigns(c)
	sendErr := channel.NewError(domain.ChannelEmail, channel.KindNetworkError, errors.New("down"))
	email := &recordingSender{failFor: map[string]error{"c1": sendErr}}
	chat := &recordingSender{failFor: map[string]error{"c1": sendErr}}
	aud := fixedAudience{recipients: []domain.Recipient{
		{CustomerID: "c1", Email: "a@example.com", Phone: "+5511999990001"},
	}}

	out, err := newEngine(repo, &memRuns{}, aud, email, chat, &countingLimiter{}).Dispatch(context.Background(), c)
	require.NoError(t, err)

	assert.Equal(t, 1, out.Failed)
	assert.Len(t, out.Failures, 2, "both channel attempts recorded")
	assert.Equal(t, domain.CampaignSent, repo.status("camp-1"))
}

func TestDispatch_ZeroRecipientsStillSent(t *testing.T) {
	c := draftCampaign()
	repo := newMemCampaigns(c)

	out, err := newEngine(repo, &memRuns{}, fixedAudience{}, &recordingSender{}, &recordingSender{}, &countingLimiter{}).Dispatch(context.Background(), c)
	require.NoError(t, err)

	assert.Equal(t, 0, out.Attempted)
	assert.Equal(t, domain.CampaignSent, repo.status("camp-1"))
}

func TestDispatch_AudienceErrorMarksFailed(t *testing.T) {
	c := draftCampaign()
	repo := newMemCampaigns(c)

	_, err := newEngine(repo, &memRuns{}, fixedAudience{err: errors.New("db down")},
		&recordingSender{}, &recordingSender{}, &countingLimiter{}).Dispatch(context.Background(), c)

	require.Error(t, err)
	assert.Equal(t, domain.CampaignFailed, repo.status("camp-1"))
}

func TestDispatch_InterruptedMarksFailed(t *testing.T) {
	c := draftCampaign()
	repo := newMemCampaigns(c)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	aud := fixedAudience{recipients: []domain.Recipient{{CustomerID: "c1", Email: "a@b.com"}}}
	_, err := newEngine(repo, &memRuns{}, aud, &recordingSender{}, &recordingSender{}, &countingLimiter{}).Dispatch(ctx, c)

	require.Error(t, err)
	assert.Equal(t, domain.CampaignFailed, repo.status("camp-1"))
}

func TestDispatchByID_NotFound(t *testing.T) {
	repo := newMemCampaigns()
	_, err := newEngine(repo, &memRuns{}, fixedAudience{}, &recordingSender{}, &recordingSender{}, &countingLimiter{}).
		DispatchByID(context.Background(), "t1", "missing")
	assert.ErrorIs(t, err, dispatch.ErrNotFound)
}
