package domain

import "time"

// Recurrence is a subscription's repeat cadence.
type Recurrence string

const (
	RecurrenceDaily   Recurrence = "daily"
	RecurrenceWeekly  Recurrence = "weekly"
	RecurrenceMonthly Recurrence = "monthly"
	RecurrenceYearly  Recurrence = "yearly"
)

// Subscription links a customer to a service on a repeat cadence. It is
// read-only to this engine; the anchor fields drive the daily reminder scan.
type Subscription struct {
	ID          string     `json:"id" db:"id"`
	TenantID    string     `json:"tenant_id" db:"tenant_id"`
	CustomerID  string     `json:"customer_id" db:"customer_id"`
	ServiceID   string     `json:"service_id" db:"service_id"`
	Recurrence  Recurrence `json:"recurrence" db:"recurrence"`
	AnchorDay   int        `json:"anchor_day" db:"anchor_day"`     // 1-31
	AnchorMonth int        `json:"anchor_month" db:"anchor_month"` // 1-12, yearly only
	Active      bool       `json:"active" db:"active"`
}

// RecurrenceMatches decides whether a subscription anchor falls on the given
// target date.
//
// Only monthly and yearly cadences participate in the reminder path; daily
// and weekly never match here. An anchor day that exceeds the target month's
// length (day 31 against February) simply never matches — the anchor is not
// clamped to the end of the month.
func RecurrenceMatches(kind Recurrence, anchorDay, anchorMonth int, target time.Time) bool {
	switch kind {
	case RecurrenceMonthly:
		return anchorDay == target.Day()
	case RecurrenceYearly:
		return anchorDay == target.Day() && anchorMonth == int(target.Month())
	default:
		return false
	}
}

// DueOn reports whether this subscription's anchor falls on the target date.
func (s Subscription) DueOn(target time.Time) bool {
	return RecurrenceMatches(s.Recurrence, s.AnchorDay, s.AnchorMonth, target)
}

// ReminderCandidate is one active subscription joined with the customer and
// service fields the reminder scan needs to render and deliver a notice.
type ReminderCandidate struct {
	Subscription
	CustomerName  string  `json:"customer_name" db:"customer_name"`
	CustomerEmail string  `json:"customer_email" db:"customer_email"`
	ServiceName   string  `json:"service_name" db:"service_name"`
	ServicePrice  float64 `json:"service_price" db:"service_price"`
}
