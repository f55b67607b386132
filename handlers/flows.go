// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielhkuo/cla-access/auth"
	"github.com/danielhkuo/cla-access/claapi"
	"github.com/danielhkuo/cla-access/cliparse"
	"github.com/danielhkuo/cla-access/coordinator"
	"github.com/danielhkuo/cla-access/db"
	"github.com/danielhkuo/cla-access/events"
	"github.com/danielhkuo/cla-access/middleware"
	"github.com/danielhkuo/cla-access/models"
)

// FlowKeyHeader authenticates every per-flow request.
const FlowKeyHeader = "X-Flow-Key"

type FlowHandler struct {
	registry *coordinator.Registry
	services coordinator.Services
	store    *db.EventStore
	cfg      cliparse.Config
}

func NewFlowHandler(registry *coordinator.Registry, services coordinator.Services, store *db.EventStore, cfg cliparse.Config) *FlowHandler {
	return &FlowHandler{registry: registry, services: services, store: store, cfg: cfg}
}

func (h *FlowHandler) reporter() events.Reporter {
	if h.store == nil {
		return events.Discard
	}
	return h.store
}

// CreateFlow handles POST /flows
func (h *FlowHandler) CreateFlow(w http.ResponseWriter, r *http.Request) {
	var req models.CreateFlowRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	// Validate input
	if req.ProjectID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "project_id is required")
		return
	}
	if req.UserID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "user_id is required")
		return
	}
	if req.CompanyID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "company_id is required")
		return
	}

	var token string
	if req.Authenticated {
		t, err := auth.BearerToken(r)
		if err != nil {
			middleware.ErrorResponse(w, http.StatusUnauthorized, "Bearer token required for authenticated flows")
			return
		}
		token = t
	}

	flowID, err := auth.GenerateID(16)
	if err != nil {
		slog.Error("failed to generate flow ID", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create flow")
		return
	}

	c := coordinator.New(coordinator.Params{
		ProjectID:    req.ProjectID,
		RepositoryID: req.RepositoryID,
		UserID:       req.UserID,
		CompanyID:    req.CompanyID,
		Identity:     coordinator.IdentityFor(req.Authenticated, token),
	}, h.services, h.reporter(), coordinator.WithFlowID(flowID))

	if err := h.registry.Add(c); err != nil {
		if errors.Is(err, coordinator.ErrRegistryStopped) {
			middleware.ErrorResponse(w, http.StatusServiceUnavailable, "Server is shutting down")
			return
		}
		slog.Error("failed to register flow", "flow_id", flowID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create flow")
		return
	}

	// Fetches outlive this request; Close cancels them.
	c.Start(context.WithoutCancel(r.Context()))

	slog.Info("flow created",
		"flow_id", flowID,
		"project_id", req.ProjectID,
		"company_id", req.CompanyID,
		"authenticated", req.Authenticated,
	)

	middleware.JSONResponse(w, http.StatusCreated, models.CreateFlowResponse{
		FlowID:  flowID,
		FlowKey: auth.GenerateFlowKey(flowID, h.cfg.FlowKeySalt),
	})
}

// authorize checks the flow key for the {id} path value.
func (h *FlowHandler) authorize(w http.ResponseWriter, r *http.Request) (string, bool) {
	flowID := r.PathValue("id")
	if flowID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "flow_id is required")
		return "", false
	}
	if err := auth.ValidateFlowKey(flowID, r.Header.Get(FlowKeyHeader), h.cfg.FlowKeySalt); err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid flow key")
		return "", false
	}
	return flowID, true
}

// flow resolves an authorized, live flow.
func (h *FlowHandler) flow(w http.ResponseWriter, r *http.Request) (*coordinator.Coordinator, bool) {
	flowID, ok := h.authorize(w, r)
	if !ok {
		return nil, false
	}
	c, err := h.registry.Get(flowID)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusNotFound, "Flow not found")
		return nil, false
	}
	return c, true
}

// GetFlow handles GET /flows/{id}
// With ?wait=true it blocks until the initial fetches have settled.
func (h *FlowHandler) GetFlow(w http.ResponseWriter, r *http.Request) {
	c, ok := h.flow(w, r)
	if !ok {
		return
	}

	if r.URL.Query().Get("wait") == "true" {
		select {
		case <-c.Ready():
		case <-r.Context().Done():
			return
		}
	}

	middleware.JSONResponse(w, http.StatusOK, c.Snapshot())
}

// SetMode handles PUT /flows/{id}/mode
func (h *FlowHandler) SetMode(w http.ResponseWriter, r *http.Request) {
	c, ok := h.flow(w, r)
	if !ok {
		return
	}

	var req models.SetModeRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if err := c.SetMode(req.Mode); err != nil {
		writeFlowError(w, c.ID(), err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, c.Snapshot())
}

// UpdateForm handles PATCH /flows/{id}/form
func (h *FlowHandler) UpdateForm(w http.ResponseWriter, r *http.Request) {
	c, ok := h.flow(w, r)
	if !ok {
		return
	}

	var req models.UpdateFormRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if err := c.UpdateForm(req); err != nil {
		writeFlowError(w, c.ID(), err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, c.Snapshot())
}

// Submit handles POST /flows/{id}/submit
// A sent request ends the flow; only its events remain readable.
func (h *FlowHandler) Submit(w http.ResponseWriter, r *http.Request) {
	c, ok := h.flow(w, r)
	if !ok {
		return
	}

	confirmation, err := c.Submit(r.Context())
	if err != nil {
		writeFlowError(w, c.ID(), err)
		return
	}

	// Already gone if it was dismissed or evicted mid-submit.
	if err := h.registry.Complete(c.ID()); err == nil {
		slog.Info("flow completed", "flow_id", c.ID())
	}

	middleware.JSONResponse(w, http.StatusOK, confirmation)
}

// DismissFlow handles DELETE /flows/{id}
func (h *FlowHandler) DismissFlow(w http.ResponseWriter, r *http.Request) {
	flowID, ok := h.authorize(w, r)
	if !ok {
		return
	}

	if err := h.registry.Dismiss(flowID); err != nil {
		middleware.ErrorResponse(w, http.StatusNotFound, "Flow not found")
		return
	}

	slog.Info("flow removed", "flow_id", flowID)
	w.WriteHeader(http.StatusNoContent)
}

// ListEvents handles GET /flows/{id}/events
// Events remain readable after the flow is dismissed.
func (h *FlowHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	flowID, ok := h.authorize(w, r)
	if !ok {
		return
	}

	if h.store == nil {
		middleware.JSONResponse(w, http.StatusOK, models.EventList{Events: []models.Event{}})
		return
	}

	evts, err := h.store.ListByFlow(r.Context(), flowID)
	if err != nil {
		slog.Error("failed to list events", "flow_id", flowID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.EventList{Events: evts})
}

// writeFlowError maps coordinator and CLA backend errors to HTTP responses.
func writeFlowError(w http.ResponseWriter, flowID string, err error) {
	var verr *coordinator.ValidationError
	var apiErr *claapi.APIError

	switch {
	case errors.As(err, &verr):
		middleware.JSONResponse(w, http.StatusUnprocessableEntity, models.ValidationErrorResponse{
			Error:  http.StatusText(http.StatusUnprocessableEntity),
			Errors: verr.Errors,
		})
	case errors.Is(err, coordinator.ErrInvalidMode):
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, coordinator.ErrAlreadySubmitted), errors.Is(err, coordinator.ErrSubmitInProgress):
		middleware.ErrorResponse(w, http.StatusConflict, err.Error())
	case errors.Is(err, coordinator.ErrClosed):
		middleware.ErrorResponse(w, http.StatusGone, err.Error())
	case errors.As(err, &apiErr):
		slog.Warn("CLA backend rejected request", "flow_id", flowID, "status", apiErr.Status, "error", err)
		middleware.ErrorResponse(w, http.StatusBadGateway, apiErr.Message)
	default:
		slog.Error("flow operation failed", "flow_id", flowID, "error", err)
		middleware.ErrorResponse(w, http.StatusBadGateway, "CLA service unavailable")
	}
}
