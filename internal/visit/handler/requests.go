package handler

import "time"

// CreateVisitRequest is the registration payload. Entry time is never
// accepted from the caller.
type CreateVisitRequest struct {
	RUT         string `json:"rut"`
	VisitorName string `json:"visitor_name"`
	Reason      string `json:"reason"`
}

// UpdateVisitRequest is the full-edit payload. A null exit_time clears any
// recorded departure.
type UpdateVisitRequest struct {
	RUT         string     `json:"rut"`
	VisitorName string     `json:"visitor_name"`
	Reason      string     `json:"reason"`
	ExitTime    *time.Time `json:"exit_time"`
}
