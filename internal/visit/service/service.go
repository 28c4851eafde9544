// Package service orchestrates the visit lifecycle: registration, edits, the
// guarded departure transition, and removal.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"visitlog/internal/audit"
	visitmetrics "visitlog/internal/visit/metrics"
	"visitlog/internal/visit/models"
	"visitlog/internal/visit/store"
	dErrors "visitlog/pkg/domain-errors"
	"visitlog/pkg/platform/sentinel"
	"visitlog/pkg/requestcontext"
)

// publicRecentLimit caps the unauthenticated recent-visits listing.
const publicRecentLimit = 10

// VisitService owns all visit mutations and reads.
type VisitService struct {
	visits  store.Store
	auditor *audit.Publisher
	metrics *visitmetrics.Metrics
	tracer  trace.Tracer
}

// Option configures optional service collaborators.
type Option func(*VisitService)

// WithAuditPublisher wires the audit trail.
func WithAuditPublisher(p *audit.Publisher) Option {
	return func(s *VisitService) { s.auditor = p }
}

// WithMetrics wires prometheus instrumentation.
func WithMetrics(m *visitmetrics.Metrics) Option {
	return func(s *VisitService) { s.metrics = m }
}

func New(visits store.Store, opts ...Option) *VisitService {
	s := &VisitService{
		visits: visits,
		tracer: otel.Tracer("visitlog/visit"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateParams carries caller-supplied fields for registration.
type CreateParams struct {
	RUT         string
	VisitorName string
	Reason      string
}

// Create registers a visit. The identifier must pass RUT validation and the
// field constraints before anything is persisted; entry time is assigned
// here, never by the caller.
func (s *VisitService) Create(ctx context.Context, params CreateParams) (*models.Visit, error) {
	ctx, span := s.tracer.Start(ctx, "visit.Create")
	defer span.End()
	start := time.Now()

	visit, err := models.NewVisit(params.RUT, params.VisitorName, params.Reason, requestcontext.Now(ctx))
	if err != nil {
		s.incrementValidationFailures()
		return nil, err
	}

	if err := s.visits.Create(ctx, visit); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create visit")
	}

	s.emit(ctx, audit.Event{Action: audit.ActionVisitCreated, Subject: visit.ID.String()})
	if s.metrics != nil {
		s.metrics.IncrementVisitsCreated()
		s.metrics.ObserveCreate(start)
	}
	return visit, nil
}

// Get returns one visit by ID.
func (s *VisitService) Get(ctx context.Context, id uuid.UUID) (*models.Visit, error) {
	visit, err := s.visits.FindByID(ctx, id)
	if err != nil {
		return nil, wrapVisitErr(err)
	}
	return visit, nil
}

// List returns a page of visits (newest entry first) plus the total count.
func (s *VisitService) List(ctx context.Context, limit, offset int) ([]*models.Visit, int, error) {
	ctx, span := s.tracer.Start(ctx, "visit.List")
	defer span.End()
	start := time.Now()

	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}

	visits, err := s.visits.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list visits")
	}
	total, err := s.visits.Count(ctx)
	if err != nil {
		return nil, 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count visits")
	}

	if s.metrics != nil {
		s.metrics.ObserveList(start)
	}
	return visits, total, nil
}

// ListActive returns visits without a recorded departure.
func (s *VisitService) ListActive(ctx context.Context) ([]*models.Visit, error) {
	visits, err := s.visits.ListByStatus(ctx, true)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list active visits")
	}
	return visits, nil
}

// ListCompleted returns visits with a recorded departure.
func (s *VisitService) ListCompleted(ctx context.Context) ([]*models.Visit, error) {
	visits, err := s.visits.ListByStatus(ctx, false)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list completed visits")
	}
	return visits, nil
}

// ListRecent returns the latest visits for unauthenticated displays, capped
// at ten records.
func (s *VisitService) ListRecent(ctx context.Context) ([]*models.Visit, error) {
	visits, err := s.visits.ListRecent(ctx, publicRecentLimit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list recent visits")
	}
	return visits, nil
}

// UpdateParams carries the editable fields. ExitTime is written as given:
// this path deliberately bypasses the departure guard and may set, overwrite,
// or clear the departure time (clearing returns the visit to Active).
type UpdateParams struct {
	RUT         string
	VisitorName string
	Reason      string
	ExitTime    *time.Time
}

// Update edits a visit. Entry time and ID are immutable.
func (s *VisitService) Update(ctx context.Context, id uuid.UUID, params UpdateParams) (*models.Visit, error) {
	ctx, span := s.tracer.Start(ctx, "visit.Update")
	defer span.End()

	name := strings.TrimSpace(params.VisitorName)
	if err := models.ValidateFields(params.RUT, name, params.Reason); err != nil {
		s.incrementValidationFailures()
		return nil, err
	}

	visit, err := s.visits.Execute(ctx, id,
		func(*models.Visit) error { return nil },
		func(v *models.Visit) {
			v.RUT = params.RUT
			v.VisitorName = name
			v.Reason = params.Reason
			v.ExitTime = params.ExitTime
		},
	)
	if err != nil {
		return nil, wrapVisitErr(err)
	}

	s.emit(ctx, audit.Event{Action: audit.ActionVisitUpdated, Subject: visit.ID.String()})
	return visit, nil
}

// MarkDeparture records the departure time exactly once. A second call fails
// with a conflict and leaves the record untouched. The check and the write
// run under the store's per-record lock, so concurrent calls cannot both win.
func (s *VisitService) MarkDeparture(ctx context.Context, id uuid.UUID) (*models.Visit, error) {
	ctx, span := s.tracer.Start(ctx, "visit.MarkDeparture")
	defer span.End()

	now := requestcontext.Now(ctx)
	visit, err := s.visits.Execute(ctx, id,
		func(v *models.Visit) error { return v.CanDepart() },
		func(v *models.Visit) { v.ApplyDeparture(now) },
	)
	if err != nil {
		return nil, wrapVisitErr(err)
	}

	s.emit(ctx, audit.Event{Action: audit.ActionVisitDeparted, Subject: visit.ID.String()})
	if s.metrics != nil {
		s.metrics.IncrementDeparturesMarked()
	}
	return visit, nil
}

// Delete removes a visit unconditionally; active visits may be deleted.
func (s *VisitService) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, span := s.tracer.Start(ctx, "visit.Delete")
	defer span.End()

	if err := s.visits.Delete(ctx, id); err != nil {
		return wrapVisitErr(err)
	}
	s.emit(ctx, audit.Event{Action: audit.ActionVisitDeleted, Subject: id.String()})
	return nil
}

func (s *VisitService) emit(ctx context.Context, event audit.Event) {
	if s.auditor != nil {
		s.auditor.Emit(ctx, event)
	}
}

func (s *VisitService) incrementValidationFailures() {
	if s.metrics != nil {
		s.metrics.IncrementValidationFailures()
	}
}

// wrapVisitErr translates store sentinels into coded domain errors, passing
// already-coded errors (the departure conflict) through unchanged.
func wrapVisitErr(err error) error {
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "visit not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "visit store failure")
}
