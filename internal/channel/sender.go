package channel

import (
	"context"

	"github.com/clientloop/dispatch-engine/internal/domain"
)

// MailTransport delivers one HTML email on behalf of a tenant. Absence of
// valid tenant credentials must surface as KindConfigurationMissing, not a
// crash. Implementations must be safe for concurrent use.
type MailTransport interface {
	SendEmail(ctx context.Context, tenantID, to, subject, htmlBody string) error
}

// ChatTransport delivers one plain-text chat message on behalf of a tenant.
// The tenant's session must already be connected; implementations report
// KindSessionNotConnected otherwise and never attempt pairing.
type ChatTransport interface {
	SendMessage(ctx context.Context, tenantID, to, text string) error
}

// Sender is the uniform per-channel delivery contract consumed by the
// dispatch engine: deliver one rendered message to one recipient.
type Sender interface {
	Send(ctx context.Context, tenantID string, rcpt domain.Recipient, subject, body string) error
}

// EmailSender delivers the campaign's rich content unmodified over the
// mail transport.
type EmailSender struct {
	transport MailTransport
}

// NewEmailSender wraps a mail transport in the uniform sender contract.
func NewEmailSender(t MailTransport) *EmailSender {
	return &EmailSender{transport: t}
}

func (s *EmailSender) Send(ctx context.Context, tenantID string, rcpt domain.Recipient, subject, body string) error {
	if !rcpt.HasEmail() {
		return ErrNoAddress
	}
	return s.transport.SendEmail(ctx, tenantID, rcpt.Email, subject, body)
}

// ChatSender delivers an already plain-text rendering over the chat
// transport. Content transformation happens upstream in the dispatch
// engine; the subject is ignored for chat.
type ChatSender struct {
	transport ChatTransport
}

// NewChatSender wraps a chat transport in the uniform sender contract.
func NewChatSender(t ChatTransport) *ChatSender {
	return &ChatSender{transport: t}
}

func (s *ChatSender) Send(ctx context.Context, tenantID string, rcpt domain.Recipient, _ string, body string) error {
	if !rcpt.HasPhone() {
		return ErrNoAddress
	}
	return s.transport.SendMessage(ctx, tenantID, rcpt.Phone, body)
}
