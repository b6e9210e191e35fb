package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/sakif/docuflow/internal/apperror"
	"github.com/sakif/docuflow/internal/auth"
	"github.com/sakif/docuflow/internal/entitlement"
	"github.com/sakif/docuflow/internal/model"
	"github.com/sakif/docuflow/internal/workspace"
)

// SubscriptionHandler reports the caller's entitlement state: tier, billing
// period, document count, and the derived predicates the client renders
// paywall decisions from.
type SubscriptionHandler struct {
	workspaces *workspace.Registry
	logger     *slog.Logger
}

func NewSubscriptionHandler(workspaces *workspace.Registry, logger *slog.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{
		workspaces: workspaces,
		logger:     logger,
	}
}

type subscriptionResponse struct {
	Tier              model.Tier `json:"subscriptionTier"`
	PeriodStart       *time.Time `json:"subscriptionStart,omitempty"`
	PeriodEnd         *time.Time `json:"subscriptionEnd,omitempty"`
	DocumentCount     int        `json:"documentCount"`
	DocumentLimit     int        `json:"documentLimit"`
	PremiumActive     bool       `json:"premiumActive"`
	Expired           bool       `json:"expired"`
	CanCreateDocument bool       `json:"canCreateDocument"`
}

// HandleGet returns the fresh entitlement snapshot for the signed-in user.
//
// HTTP: GET /api/me/subscription
func (h *SubscriptionHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.NoSession())
		return
	}

	mgr := h.workspaces.Get(userID)
	ent := mgr.Entitlements()

	snap, err := ent.Load(r.Context(), userID)
	if err != nil {
		// A stale snapshot still answers the request; only a cold store
		// with nothing loaded is fatal.
		snap = ent.Snapshot()
		if snap == nil {
			writeError(w, err)
			return
		}
		h.logger.Warn("serving stale entitlement snapshot",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
	}

	writeJSON(w, http.StatusOK, subscriptionResponse{
		Tier:              snap.Tier,
		PeriodStart:       snap.PeriodStart,
		PeriodEnd:         snap.PeriodEnd,
		DocumentCount:     snap.DocumentCount,
		DocumentLimit:     entitlement.FreeTierDocumentLimit,
		PremiumActive:     ent.PremiumActive(),
		Expired:           ent.Expired(),
		CanCreateDocument: ent.CanCreateDocument(),
	})
}
