package handler

import (
	"time"

	"visitlog/internal/visit/models"
)

// VisitResponse is the wire form of one visit. Status is derived from the
// presence of exit_time.
type VisitResponse struct {
	ID          string     `json:"id"`
	RUT         string     `json:"rut"`
	VisitorName string     `json:"visitor_name"`
	Reason      string     `json:"reason"`
	EntryTime   time.Time  `json:"entry_time"`
	ExitTime    *time.Time `json:"exit_time"`
	Status      string     `json:"status"`
}

// ListVisitsResponse is a page of visits plus the total record count.
type ListVisitsResponse struct {
	Visits []VisitResponse `json:"visits"`
	Total  int             `json:"total"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

func toVisitResponse(v *models.Visit) VisitResponse {
	return VisitResponse{
		ID:          v.ID.String(),
		RUT:         v.RUT,
		VisitorName: v.VisitorName,
		Reason:      v.Reason,
		EntryTime:   v.EntryTime,
		ExitTime:    v.ExitTime,
		Status:      string(v.Status()),
	}
}

func toVisitResponses(visits []*models.Visit) []VisitResponse {
	out := make([]VisitResponse, 0, len(visits))
	for _, v := range visits {
		out = append(out, toVisitResponse(v))
	}
	return out
}
