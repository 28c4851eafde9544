// Package handler exposes the visit REST endpoints.
package handler

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	platformMetrics "visitlog/internal/platform/metrics"
	"visitlog/internal/platform/middleware"
	"visitlog/internal/visit/models"
	"visitlog/internal/visit/service"
	dErrors "visitlog/pkg/domain-errors"
	"visitlog/pkg/platform/httputil"
	"visitlog/pkg/requestcontext"
)

const defaultPageSize = 10

// Service defines the visit operations the handler depends on.
type Service interface {
	Create(ctx context.Context, params service.CreateParams) (*models.Visit, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Visit, error)
	List(ctx context.Context, limit, offset int) ([]*models.Visit, int, error)
	ListActive(ctx context.Context) ([]*models.Visit, error)
	ListCompleted(ctx context.Context) ([]*models.Visit, error)
	ListRecent(ctx context.Context) ([]*models.Visit, error)
	Update(ctx context.Context, id uuid.UUID, params service.UpdateParams) (*models.Visit, error)
	MarkDeparture(ctx context.Context, id uuid.UUID) (*models.Visit, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ExportRows(ctx context.Context) ([]service.ExportRow, error)
}

// Handler handles visit-related endpoints.
type Handler struct {
	logger       *slog.Logger
	visits       Service
	metrics      *platformMetrics.Metrics
	jwtValidator middleware.JWTValidator
}

// New creates a new visit Handler.
func New(
	visits Service,
	logger *slog.Logger,
	metrics *platformMetrics.Metrics,
	jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		visits:       visits,
		metrics:      metrics,
		jwtValidator: jwtValidator,
	}
}

// Register registers the visit routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	base := []func(http.Handler) http.Handler{
		middleware.Recovery(h.logger),
		middleware.RequestID,
		middleware.Logger(h.logger),
		middleware.Timeout(30 * time.Second),
		middleware.ClientMetadata,
		middleware.Latency(h.metrics),
	}

	r.Group(func(pr chi.Router) {
		pr.Use(base...)
		pr.Get("/api/public/visits", h.handleListRecent)
	})

	r.Group(func(ar chi.Router) {
		ar.Use(base...)
		ar.Use(middleware.ContentTypeJSON)
		ar.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		ar.Post("/api/visits", h.handleCreate)
		ar.Get("/api/visits", h.handleList)
		ar.Get("/api/visits/active", h.handleListActive)
		ar.Get("/api/visits/completed", h.handleListCompleted)
		ar.Get("/api/visits/export", h.handleExport)
		ar.Get("/api/visits/{id}", h.handleGet)
		ar.Put("/api/visits/{id}", h.handleUpdate)
		ar.Delete("/api/visits/{id}", h.handleDelete)
		ar.Post("/api/visits/{id}/departure", h.handleMarkDeparture)
	})
}

// handleCreate registers a new visit.
func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateVisitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid create visit request",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	visit, err := h.visits.Create(ctx, service.CreateParams{
		RUT:         req.RUT,
		VisitorName: req.VisitorName,
		Reason:      req.Reason,
	})
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to create visit")
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, toVisitResponse(visit))
}

// handleGet returns one visit by ID.
func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := h.visitID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	visit, err := h.visits.Get(ctx, id)
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to load visit")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toVisitResponse(visit))
}

// handleList returns a page of visits, newest entry first.
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := queryInt(r, "limit", defaultPageSize)
	offset := queryInt(r, "offset", 0)

	visits, total, err := h.visits.List(ctx, limit, offset)
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to list visits")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ListVisitsResponse{
		Visits: toVisitResponses(visits),
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

func (h *Handler) handleListActive(w http.ResponseWriter, r *http.Request) {
	h.writeStatusListing(r.Context(), w, h.visits.ListActive, "failed to list active visits")
}

func (h *Handler) handleListCompleted(w http.ResponseWriter, r *http.Request) {
	h.writeStatusListing(r.Context(), w, h.visits.ListCompleted, "failed to list completed visits")
}

// handleListRecent serves the unauthenticated lobby display: the latest
// visits, capped by the service.
func (h *Handler) handleListRecent(w http.ResponseWriter, r *http.Request) {
	h.writeStatusListing(r.Context(), w, h.visits.ListRecent, "failed to list recent visits")
}

func (h *Handler) writeStatusListing(
	ctx context.Context,
	w http.ResponseWriter,
	list func(context.Context) ([]*models.Visit, error),
	logMsg string,
) {
	visits, err := list(ctx)
	if err != nil {
		h.writeServiceError(ctx, w, err, logMsg)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toVisitResponses(visits))
}

// handleUpdate replaces the editable fields of a visit. Writing or clearing
// exit_time through this path is allowed, including on completed visits.
func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := h.visitID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var req UpdateVisitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid update visit request",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	visit, err := h.visits.Update(ctx, id, service.UpdateParams{
		RUT:         req.RUT,
		VisitorName: req.VisitorName,
		Reason:      req.Reason,
		ExitTime:    req.ExitTime,
	})
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to update visit")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toVisitResponse(visit))
}

// handleMarkDeparture records the departure time. A second call returns a
// conflict.
func (h *Handler) handleMarkDeparture(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := h.visitID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	visit, err := h.visits.MarkDeparture(ctx, id)
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to mark departure")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toVisitResponse(visit))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := h.visitID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.visits.Delete(ctx, id); err != nil {
		h.writeServiceError(ctx, w, err, "failed to delete visit")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleExport streams every visit as CSV.
func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	rows, err := h.visits.ExportRows(ctx)
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to export visits")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="visits.csv"`)
	cw := csv.NewWriter(w)
	if err := cw.Write(service.ExportHeader); err != nil {
		h.logger.ErrorContext(ctx, "failed to write export header",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		return
	}
	for _, row := range rows {
		if err := cw.Write(row.Fields()); err != nil {
			h.logger.ErrorContext(ctx, "failed to write export row",
				"request_id", requestcontext.RequestID(ctx),
				"error", err.Error(),
			)
			return
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		h.logger.ErrorContext(ctx, "failed to flush export",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
	}
}

func (h *Handler) visitID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeBadRequest, "invalid visit id")
	}
	return id, nil
}

// writeServiceError logs at a level matching the error class and writes the
// mapped HTTP response.
func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, err error, logMsg string) {
	var de *dErrors.Error
	if errors.As(err, &de) && de.Code != dErrors.CodeInternal {
		h.logger.WarnContext(ctx, logMsg,
			"request_id", requestcontext.RequestID(ctx),
			"code", string(de.Code),
			"error", err.Error(),
		)
	} else {
		h.logger.ErrorContext(ctx, logMsg,
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
	}
	httputil.WriteError(w, err)
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
