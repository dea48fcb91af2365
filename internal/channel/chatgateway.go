package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/clientloop/dispatch-engine/internal/domain"
	"github.com/clientloop/dispatch-engine/internal/pkg/httpretry"
)

// SessionConnected is the gateway session state required before any chat
// message is accepted.
const SessionConnected = "CONNECTED"

// GatewayTransport implements ChatTransport against the chat gateway's
// session API. The gateway owns connection establishment (QR pairing);
// this transport only checks the session state and pushes messages through
// an already established session.
type GatewayTransport struct {
	baseURL string
	client  httpretry.HTTPDoer
}

// NewGatewayTransport creates a chat transport for the gateway at baseURL.
// The request timeout bounds every session check and send; transient
// gateway errors are retried with backoff.
func NewGatewayTransport(baseURL string, timeout time.Duration) *GatewayTransport {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &GatewayTransport{
		baseURL: baseURL,
		client:  httpretry.NewRetryClient(&http.Client{Timeout: timeout}, 2),
	}
}

// SendMessage checks the tenant session state and delivers one plain-text
// message. A session in any state other than CONNECTED is reported as
// KindSessionNotConnected without attempting the send.
func (t *GatewayTransport) SendMessage(ctx context.Context, tenantID, to, text string) error {
	state, err := t.sessionState(ctx, tenantID)
	if err != nil {
		return err
	}
	if state != SessionConnected {
		return NewError(domain.ChannelChat, KindSessionNotConnected,
			fmt.Errorf("session state %q", state))
	}

	payload, _ := json.Marshal(map[string]string{"to": to, "text": text})
	url := fmt.Sprintf("%s/sessions/%s/messages", t.baseURL, tenantID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return NewError(domain.ChannelChat, KindTransportRejected, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return NewError(domain.ChannelChat, KindNetworkError, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return NewError(domain.ChannelChat, KindTransportRejected,
			fmt.Errorf("gateway returned %d: %s", resp.StatusCode, bytes.TrimSpace(body)))
	}
	return nil
}

// sessionState fetches the current session state for a tenant.
func (t *GatewayTransport) sessionState(ctx context.Context, tenantID string) (string, error) {
	url := fmt.Sprintf("%s/sessions/%s", t.baseURL, tenantID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", NewError(domain.ChannelChat, KindTransportRejected, err)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return "", NewError(domain.ChannelChat, KindNetworkError, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", NewError(domain.ChannelChat, KindSessionNotConnected,
			fmt.Errorf("no session for tenant"))
	}
	if resp.StatusCode >= 300 {
		return "", NewError(domain.ChannelChat, KindTransportRejected,
			fmt.Errorf("gateway returned %d", resp.StatusCode))
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", NewError(domain.ChannelChat, KindTransportRejected,
			fmt.Errorf("decode session state: %w", err))
	}
	return body.Status, nil
}
