package service

import (
	"context"
	"time"

	"visitlog/internal/visit/models"
	dErrors "visitlog/pkg/domain-errors"
)

// ExportRow is a single row in the full-data export: a flat, denormalized
// view of one visit with timestamps pre-formatted for CSV.
type ExportRow struct {
	ID          string
	RUT         string
	VisitorName string
	Reason      string
	EntryTime   string
	ExitTime    string // empty when the visit is still active
	Status      string
}

// ExportHeader is the column order for CSV output.
var ExportHeader = []string{"id", "rut", "visitor_name", "reason", "entry_time", "exit_time", "status"}

// ExportRows returns every visit as a flat row, newest entry first.
func (s *VisitService) ExportRows(ctx context.Context) ([]ExportRow, error) {
	ctx, span := s.tracer.Start(ctx, "visit.Export")
	defer span.End()

	total, err := s.visits.Count(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count visits for export")
	}
	visits, err := s.visits.List(ctx, total, 0)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load visits for export")
	}

	rows := make([]ExportRow, 0, len(visits))
	for _, v := range visits {
		rows = append(rows, exportRow(v))
	}
	return rows, nil
}

func exportRow(v *models.Visit) ExportRow {
	row := ExportRow{
		ID:          v.ID.String(),
		RUT:         v.RUT,
		VisitorName: v.VisitorName,
		Reason:      v.Reason,
		EntryTime:   v.EntryTime.Format(time.RFC3339),
		Status:      string(v.Status()),
	}
	if v.ExitTime != nil {
		row.ExitTime = v.ExitTime.Format(time.RFC3339)
	}
	return row
}

// Fields returns the row values in ExportHeader order.
func (r ExportRow) Fields() []string {
	return []string{r.ID, r.RUT, r.VisitorName, r.Reason, r.EntryTime, r.ExitTime, r.Status}
}
