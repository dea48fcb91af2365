package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestRecurrenceMatches_Monthly(t *testing.T) {
	assert.True(t, RecurrenceMatches(RecurrenceMonthly, 15, 0, date(2026, time.March, 15)))
	assert.False(t, RecurrenceMatches(RecurrenceMonthly, 15, 0, date(2026, time.March, 16)))
}

func TestRecurrenceMatches_Yearly(t *testing.T) {
	assert.True(t, RecurrenceMatches(RecurrenceYearly, 1, 6, date(2026, time.June, 1)))
	assert.False(t, RecurrenceMatches(RecurrenceYearly, 1, 6, date(2026, time.July, 1)), "day match alone is not enough")
	assert.False(t, RecurrenceMatches(RecurrenceYearly, 2, 6, date(2026, time.June, 1)))
}

func TestRecurrenceMatches_DailyWeeklyExcluded(t *testing.T) {
	target := date(2026, time.March, 15)
	assert.False(t, RecurrenceMatches(RecurrenceDaily, 15, 0, target))
	assert.False(t, RecurrenceMatches(RecurrenceWeekly, 15, 0, target))
}

func TestRecurrenceMatches_AnchorBeyondMonthEnd(t *testing.T) {
	// Anchor day 31 is not clamped: it can never land in February.
	for d := 1; d <= 28; d++ {
		assert.False(t, RecurrenceMatches(RecurrenceMonthly, 31, 0, date(2026, time.February, d)))
	}
	assert.True(t, RecurrenceMatches(RecurrenceMonthly, 31, 0, date(2026, time.March, 31)))
}

func TestSubscription_DueOn(t *testing.T) {
	s := Subscription{Recurrence: RecurrenceYearly, AnchorDay: 10, AnchorMonth: 2}
	assert.True(t, s.DueOn(date(2026, time.February, 10)))
	assert.False(t, s.DueOn(date(2026, time.March, 10)))
}

func TestChannels_Has(t *testing.T) {
	cs := Channels{ChannelEmail}
	assert.True(t, cs.Has(ChannelEmail))
	assert.False(t, cs.Has(ChannelChat))
}

func TestRecipient_Reachable(t *testing.T) {
	both := Channels{ChannelEmail, ChannelChat}

	assert.True(t, Recipient{Email: "a@b.com"}.Reachable(both))
	assert.True(t, Recipient{Phone: "+5511999990000"}.Reachable(both))
	assert.False(t, Recipient{}.Reachable(both))
	assert.False(t, Recipient{Phone: "+5511999990000"}.Reachable(Channels{ChannelEmail}))
	assert.False(t, Recipient{Email: "a@b.com"}.Reachable(Channels{ChannelChat}))
}

func TestCampaign_Lifecycle(t *testing.T) {
	c := &Campaign{Status: CampaignDraft}
	assert.True(t, c.Dispatchable())
	assert.False(t, c.IsTerminal())

	c.Status = CampaignScheduled
	assert.True(t, c.Dispatchable())

	for _, st := range []CampaignStatus{CampaignSending, CampaignSent, CampaignFailed, CampaignCancelled} {
		c.Status = st
		assert.False(t, c.Dispatchable(), string(st))
	}

	for _, st := range []CampaignStatus{CampaignSent, CampaignFailed, CampaignCancelled} {
		c.Status = st
		assert.True(t, c.IsTerminal(), string(st))
	}
}
