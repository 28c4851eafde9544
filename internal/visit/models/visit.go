package models

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"visitlog/internal/rut"
	dErrors "visitlog/pkg/domain-errors"
)

// Status is derived from ExitTime, never stored.
type Status string

const (
	StatusActive    Status = "Active"
	StatusCompleted Status = "Completed"
)

const maxVisitorNameLen = 100

// Visit is the aggregate for one recorded visit.
//
// Invariants:
//   - RUT passes the check-digit validation before the record persists
//   - VisitorName is non-empty and at most 100 characters
//   - EntryTime is set once at construction and never mutated
//   - ExitTime is set at most once through MarkDeparture; the Update path may
//     overwrite or clear it deliberately (the guard lives in the operation,
//     not the data)
type Visit struct {
	ID          uuid.UUID  `json:"id"`
	RUT         string     `json:"rut"`
	VisitorName string     `json:"visitor_name"`
	Reason      string     `json:"reason"`
	EntryTime   time.Time  `json:"entry_time"`
	ExitTime    *time.Time `json:"exit_time"`
}

// Status computes the derived visit state: Active while no departure is
// recorded, Completed afterwards.
func (v *Visit) Status() Status {
	if v.ExitTime == nil {
		return StatusActive
	}
	return StatusCompleted
}

// CanDepart checks whether a departure may be recorded.
// Use with ApplyDeparture inside store Execute callbacks so the check and the
// mutation happen under the same lock.
func (v *Visit) CanDepart() error {
	if v.ExitTime != nil {
		return dErrors.New(dErrors.CodeConflict, "visit already departed")
	}
	return nil
}

// ApplyDeparture records the departure time. Call CanDepart first.
func (v *Visit) ApplyDeparture(now time.Time) {
	t := now
	v.ExitTime = &t
}

// NewVisit constructs a Visit with a fresh ID and entry timestamp, validating
// the caller-supplied fields.
func NewVisit(rutValue, visitorName, reason string, now time.Time) (*Visit, error) {
	visitorName = strings.TrimSpace(visitorName)
	if err := ValidateFields(rutValue, visitorName, reason); err != nil {
		return nil, err
	}
	return &Visit{
		ID:          uuid.New(),
		RUT:         rutValue,
		VisitorName: visitorName,
		Reason:      reason,
		EntryTime:   now,
	}, nil
}

// ValidateFields enforces the field constraints shared by create and edit.
func ValidateFields(rutValue, visitorName, reason string) error {
	if err := rut.Validate(rutValue); err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, rutMessage(err))
	}
	if visitorName == "" {
		return dErrors.New(dErrors.CodeValidation, "visitor name is required")
	}
	if len(visitorName) > maxVisitorNameLen {
		return dErrors.New(dErrors.CodeValidation, "visitor name must be 100 characters or less")
	}
	if strings.TrimSpace(reason) == "" {
		return dErrors.New(dErrors.CodeValidation, "visit reason is required")
	}
	return nil
}

// rutMessage maps validator failures to the reasons callers must see.
func rutMessage(err error) string {
	switch {
	case errors.Is(err, rut.ErrTooShort):
		return "invalid rut: too short"
	case errors.Is(err, rut.ErrMalformedFormat):
		return "invalid rut: malformed format"
	case errors.Is(err, rut.ErrCheckDigitMismatch):
		return "invalid rut: check digit mismatch"
	default:
		return "invalid rut"
	}
}
