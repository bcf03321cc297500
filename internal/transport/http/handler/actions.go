package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/edudash-core/internal/infrastructure/upstream"
	"github.com/edudash-core/internal/pkg/bus"
	"github.com/edudash-core/internal/pkg/validate"
	"github.com/edudash-core/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
)

// actionClient is the upstream subset behind the dashboard's approval and
// account actions.
type actionClient interface {
	SetBatchStatus(ctx context.Context, token, batchID string, approve bool, reason string) error
	SetCardRequestStatus(ctx context.Context, token, requestID string, approve bool, reason string) error
	AddInfluencer(ctx context.Context, token string, req upstream.AddInfluencerRequest) error
	ChangePassword(ctx context.Context, token, current, updated string) error
}

// ActionHandler proxies approval and account mutations to the upstream
// backend with the caller's token.
type ActionHandler struct {
	client actionClient
	bus    *bus.Bus
}

func NewActionHandler(client actionClient, b *bus.Bus) *ActionHandler {
	return &ActionHandler{client: client, bus: b}
}

type statusRequest struct {
	Approve bool   `json:"approve"`
	Reason  string `json:"reason"`
}

func (h *ActionHandler) SetBatchStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	token := middleware.TokenFromContext(r.Context())
	if err := h.client.SetBatchStatus(r.Context(), token, chi.URLParam(r, "id"), req.Approve, req.Reason); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "batch status updated"})
}

func (h *ActionHandler) SetCardRequestStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	token := middleware.TokenFromContext(r.Context())
	if err := h.client.SetCardRequestStatus(r.Context(), token, chi.URLParam(r, "id"), req.Approve, req.Reason); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "card request status updated"})
}

func (h *ActionHandler) AddInfluencer(w http.ResponseWriter, r *http.Request) {
	var req upstream.AddInfluencerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	token := middleware.TokenFromContext(r.Context())
	if err := h.client.AddInfluencer(r.Context(), token, req); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, MessageEnvelope{Message: "influencer added"})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}

func (h *ActionHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	token := middleware.TokenFromContext(r.Context())
	if err := h.client.ChangePassword(r.Context(), token, req.CurrentPassword, req.NewPassword); err != nil {
		httpError(w, err)
		return
	}
	if h.bus != nil {
		if claims, ok := middleware.ClaimsFromContext(r.Context()); ok {
			h.bus.Publish(bus.TopicProfileUpdated, claims.UserID)
		}
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "password changed"})
}
