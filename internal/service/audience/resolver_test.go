package audience_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clientloop/dispatch-engine/internal/domain"
	"github.com/clientloop/dispatch-engine/internal/service/audience"
)

// memCustomers is an in-memory customer repository for unit testing.
// Each customer carries its active-subscription count so the activity
// predicate can be evaluated locally.
type memCustomers struct {
	tenantID  string
	customers []memCustomer
}

type memCustomer struct {
	domain.Recipient
	activeSubs int
}

func (m *memCustomers) ListByIDs(_ context.Context, tenantID string, ids []string) ([]domain.Recipient, error) {
	if tenantID != m.tenantID {
		return nil, nil
	}
	want := map[string]bool{}
	for _, id := range ids {
		want[id] = true
	}
	var out []domain.Recipient
	for _, c := range m.customers {
		if want[c.CustomerID] {
			out = append(out, c.Recipient)
		}
	}
	return out, nil
}

func (m *memCustomers) ListByFilter(_ context.Context, tenantID string, f audience.Filter) ([]domain.Recipient, error) {
	if tenantID != m.tenantID {
		return nil, nil
	}
	var out []domain.Recipient
	for _, c := range m.customers {
		switch f.Contactability {
		case audience.ContactEmail:
			if !c.HasEmail() {
				continue
			}
		case audience.ContactPhone:
			if !c.HasPhone() {
				continue
			}
		case audience.ContactEither:
			if !c.HasEmail() && !c.HasPhone() {
				continue
			}
		}
		switch f.Activity {
		case audience.ActivityActive:
			if c.activeSubs == 0 {
				continue
			}
		case audience.ActivityInactive:
			if c.activeSubs > 0 {
				continue
			}
		}
		out = append(out, c.Recipient)
	}
	return out, nil
}

func testRepo() *memCustomers {
	return &memCustomers{
		tenantID: "t1",
		customers: []memCustomer{
			{Recipient: domain.Recipient{CustomerID: "c1", Name: "Ana", Email: "ana@example.com", Phone: "+5511999990001"}, activeSubs: 2},
			{Recipient: domain.Recipient{CustomerID: "c2", Name: "Bruno", Email: "bruno@example.com"}, activeSubs: 0},
			{Recipient: domain.Recipient{CustomerID: "c3", Name: "Carla", Phone: "+5511999990003"}, activeSubs: 1},
			{Recipient: domain.Recipient{CustomerID: "c4", Name: "Davi"}, activeSubs: 1}, // unreachable
		},
	}
}

func ids(rs []domain.Recipient) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.CustomerID
	}
	return out
}

func TestResolve_Specific(t *testing.T) {
	r := audience.NewResolver(testRepo())

	got, err := r.Resolve(context.Background(), "t1", domain.AudienceSpecific,
		domain.Channels{domain.ChannelEmail}, []string{"c2", "c4", "missing"})
	require.NoError(t, err)

	// SPECIFIC ignores channel filtering; c4 is returned even without contact fields.
	assert.ElementsMatch(t, []string{"c2", "c4"}, ids(got))
}

func TestResolve_SpecificEmptyIDs(t *testing.T) {
	r := audience.NewResolver(testRepo())

	got, err := r.Resolve(context.Background(), "t1", domain.AudienceSpecific,
		domain.Channels{domain.ChannelEmail}, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestResolve_ActiveRequiresSubscription(t *testing.T) {
	r := audience.NewResolver(testRepo())

	got, err := r.Resolve(context.Background(), "t1", domain.AudienceActive,
		domain.Channels{domain.ChannelEmail, domain.ChannelChat}, nil)
	require.NoError(t, err)

	// c1 and c3 are active and reachable over at least one channel;
	// c4 is active but has no contact method at all.
	assert.ElementsMatch(t, []string{"c1", "c3"}, ids(got))
}

func TestResolve_InactiveRequiresZeroSubscriptions(t *testing.T) {
	r := audience.NewResolver(testRepo())

	got, err := r.Resolve(context.Background(), "t1", domain.AudienceInactive,
		domain.Channels{domain.ChannelEmail, domain.ChannelChat}, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"c2"}, ids(got))
}

func TestResolve_ChannelDrivenContactability(t *testing.T) {
	r := audience.NewResolver(testRepo())

	emailOnly, err := r.Resolve(context.Background(), "t1", domain.AudienceAll,
		domain.Channels{domain.ChannelEmail}, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"c1", "c2"}, ids(emailOnly))

	chatOnly, err := r.Resolve(context.Background(), "t1", domain.AudienceAll,
		domain.Channels{domain.ChannelChat}, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"c1", "c3"}, ids(chatOnly))

	both, err := r.Resolve(context.Background(), "t1", domain.AudienceAll,
		domain.Channels{domain.ChannelEmail, domain.ChannelChat}, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"c1", "c2", "c3"}, ids(both))
}

func TestResolve_NoContactNeverReturned(t *testing.T) {
	r := audience.NewResolver(testRepo())

	for _, channels := range []domain.Channels{
		{domain.ChannelEmail},
		{domain.ChannelChat},
		{domain.ChannelEmail, domain.ChannelChat},
	} {
		got, err := r.Resolve(context.Background(), "t1", domain.AudienceAll, channels, nil)
		require.NoError(t, err)
		assert.NotContains(t, ids(got), "c4")
	}
}

func TestResolve_UnknownMode(t *testing.T) {
	r := audience.NewResolver(testRepo())

	_, err := r.Resolve(context.Background(), "t1", domain.TargetAudience("bogus"),
		domain.Channels{domain.ChannelEmail}, nil)
	assert.Error(t, err)
}
