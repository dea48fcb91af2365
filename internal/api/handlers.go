// Package api exposes the dispatcher's HTTP surface: a health check and a
// manual campaign trigger that front-ends the same engine the scheduler uses.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/clientloop/dispatch-engine/internal/domain"
	"github.com/clientloop/dispatch-engine/internal/pkg/distlock"
	"github.com/clientloop/dispatch-engine/internal/pkg/httputil"
	"github.com/clientloop/dispatch-engine/internal/pkg/logger"
	"github.com/clientloop/dispatch-engine/internal/service/dispatch"
	"github.com/go-chi/chi/v5"
)

// DispatchTimeout bounds a manually triggered dispatch.
const DispatchTimeout = 10 * time.Minute

// Dispatcher runs a campaign dispatch by ID.
type Dispatcher interface {
	DispatchByID(ctx context.Context, tenantID, campaignID string) (*domain.DispatchOutcome, error)
}

// LeaseFactory hands out per-campaign dispatch leases.
type LeaseFactory interface {
	CampaignLease(campaignID string) distlock.Lock
}

// Handlers holds the dependencies for the HTTP handlers.
type Handlers struct {
	dispatcher Dispatcher
	leases     LeaseFactory
}

// NewHandlers creates the handler set.
func NewHandlers(dispatcher Dispatcher, leases LeaseFactory) *Handlers {
	return &Handlers{dispatcher: dispatcher, leases: leases}
}

// HealthCheck reports service liveness.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// TriggerDispatch starts a campaign dispatch immediately, ahead of the
// scheduler sweep. The send runs in the background; the response only
// acknowledges that the campaign was accepted for dispatch.
func (h *Handlers) TriggerDispatch(w http.ResponseWriter, r *http.Request) {
	campaignID := chi.URLParam(r, "campaignID")
	if campaignID == "" {
		httputil.BadRequest(w, "campaign ID is required")
		return
	}
	tenantID := r.Header.Get("X-Tenant-ID")
	if tenantID == "" {
		httputil.BadRequest(w, "X-Tenant-ID header is required")
		return
	}

	go h.runDispatch(tenantID, campaignID)

	httputil.Accepted(w, map[string]bool{"accepted": true})
}

func (h *Handlers) runDispatch(tenantID, campaignID string) {
	ctx, cancel := context.WithTimeout(context.Background(), DispatchTimeout)
	defer cancel()

	lease := h.leases.CampaignLease(campaignID)
	acquired, err := lease.Acquire(ctx)
	if err != nil {
		logger.Error("manual dispatch lease error", "campaign_id", campaignID, "error", err.Error())
		return
	}
	if !acquired {
		logger.Info("manual dispatch skipped: campaign already leased", "campaign_id", campaignID)
		return
	}
	defer func() {
		if err := lease.Release(context.Background()); err != nil {
			logger.Warn("manual dispatch lease release failed", "campaign_id", campaignID, "error", err.Error())
		}
	}()

	outcome, err := h.dispatcher.DispatchByID(ctx, tenantID, campaignID)
	switch {
	case errors.Is(err, dispatch.ErrAlreadySent), errors.Is(err, dispatch.ErrAlreadyClaimed):
		logger.Info("manual dispatch skipped", "campaign_id", campaignID, "reason", err.Error())
	case err != nil:
		logger.Error("manual dispatch failed", "campaign_id", campaignID, "error", err.Error())
	default:
		logger.Info("manual dispatch complete",
			"campaign_id", campaignID,
			"delivered", outcome.Delivered,
			"failed", outcome.Failed,
		)
	}
}
