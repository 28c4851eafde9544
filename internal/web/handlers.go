package web

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"visitlog/internal/visit/models"
	"visitlog/internal/visit/service"
	dErrors "visitlog/pkg/domain-errors"
)

// exitTimeLayout matches the browser's datetime-local input format.
const exitTimeLayout = "2006-01-02T15:04"

type listData struct {
	Visits   []*models.Visit
	Flash    string
	Page     int
	LastPage int
	Total    int
	PrevPage int
	NextPage int
}

type formData struct {
	Visit *models.Visit
	Form  visitForm
	Error string
	Edit  bool
}

type visitForm struct {
	RUT         string
	VisitorName string
	Reason      string
	ExitTime    string
}

// handleList renders the visit log, newest entry first, ten per page.
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	ctx := r.Context()

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}

	visits, total, err := s.visits.List(ctx, pageSize, (page-1)*pageSize)
	if err != nil {
		s.renderError(w, err)
		return
	}

	lastPage := (total + pageSize - 1) / pageSize
	if lastPage < 1 {
		lastPage = 1
	}
	s.render(w, "list.html", listData{
		Visits:   visits,
		Flash:    r.URL.Query().Get("flash"),
		Page:     page,
		LastPage: lastPage,
		Total:    total,
		PrevPage: page - 1,
		NextPage: page + 1,
	})
}

func (s *Server) handleRegisterForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, "register.html", formData{})
}

// handleRegisterSubmit creates the visit and redirects back to the log. A
// validation failure re-renders the form with the submitted values intact.
func (s *Server) handleRegisterSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	form := visitForm{
		RUT:         r.PostFormValue("rut"),
		VisitorName: r.PostFormValue("visitor_name"),
		Reason:      r.PostFormValue("reason"),
	}

	_, err := s.visits.Create(ctx, service.CreateParams{
		RUT:         form.RUT,
		VisitorName: form.VisitorName,
		Reason:      form.Reason,
	})
	if err != nil {
		if dErrors.CodeOf(err) == dErrors.CodeValidation {
			s.render(w, "register.html", formData{Form: form, Error: dErrors.MessageOf(err)})
			return
		}
		s.renderError(w, err)
		return
	}
	s.redirectWithFlash(w, r, "Visit registered")
}

// handleDeparture marks the exit time and returns to the log. An already
// departed visit just reports that, nothing changes.
func (s *Server) handleDeparture(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := s.visitID(w, r)
	if !ok {
		return
	}

	_, err := s.visits.MarkDeparture(ctx, id)
	if err != nil {
		if dErrors.CodeOf(err) == dErrors.CodeConflict {
			s.redirectWithFlash(w, r, "Visit had already departed")
			return
		}
		s.renderError(w, err)
		return
	}
	s.redirectWithFlash(w, r, "Departure recorded")
}

func (s *Server) handleEditForm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := s.visitID(w, r)
	if !ok {
		return
	}

	visit, err := s.visits.Get(ctx, id)
	if err != nil {
		s.renderError(w, err)
		return
	}
	form := visitForm{
		RUT:         visit.RUT,
		VisitorName: visit.VisitorName,
		Reason:      visit.Reason,
	}
	if visit.ExitTime != nil {
		form.ExitTime = visit.ExitTime.Local().Format(exitTimeLayout)
	}
	s.render(w, "edit.html", formData{Visit: visit, Form: form, Edit: true})
}

// handleEditSubmit applies a full edit. Clearing the exit time field returns
// the visit to active.
func (s *Server) handleEditSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := s.visitID(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	form := visitForm{
		RUT:         r.PostFormValue("rut"),
		VisitorName: r.PostFormValue("visitor_name"),
		Reason:      r.PostFormValue("reason"),
		ExitTime:    r.PostFormValue("exit_time"),
	}

	var exitTime *time.Time
	if form.ExitTime != "" {
		parsed, err := time.ParseInLocation(exitTimeLayout, form.ExitTime, time.Local)
		if err != nil {
			s.renderEditError(w, ctx, id, form, "exit time must look like 2006-01-02T15:04")
			return
		}
		exitTime = &parsed
	}

	_, err := s.visits.Update(ctx, id, service.UpdateParams{
		RUT:         form.RUT,
		VisitorName: form.VisitorName,
		Reason:      form.Reason,
		ExitTime:    exitTime,
	})
	if err != nil {
		if dErrors.CodeOf(err) == dErrors.CodeValidation {
			s.renderEditError(w, ctx, id, form, dErrors.MessageOf(err))
			return
		}
		s.renderError(w, err)
		return
	}
	s.redirectWithFlash(w, r, "Visit updated")
}

func (s *Server) handleDeleteConfirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := s.visitID(w, r)
	if !ok {
		return
	}

	visit, err := s.visits.Get(ctx, id)
	if err != nil {
		s.renderError(w, err)
		return
	}
	s.render(w, "delete.html", formData{Visit: visit})
}

func (s *Server) handleDeleteSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := s.visitID(w, r)
	if !ok {
		return
	}

	if err := s.visits.Delete(ctx, id); err != nil {
		s.renderError(w, err)
		return
	}
	s.redirectWithFlash(w, r, "Visit deleted")
}

func (s *Server) renderEditError(w http.ResponseWriter, ctx context.Context, id uuid.UUID, form visitForm, msg string) {
	visit, err := s.visits.Get(ctx, id)
	if err != nil {
		s.renderError(w, err)
		return
	}
	s.render(w, "edit.html", formData{Visit: visit, Form: form, Error: msg, Edit: true})
}

func (s *Server) visitID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.NotFound(w, r)
		return uuid.Nil, false
	}
	return id, true
}

func (s *Server) redirectWithFlash(w http.ResponseWriter, r *http.Request, flash string) {
	http.Redirect(w, r, "/?flash="+url.QueryEscape(flash), http.StatusSeeOther)
}

// renderError maps domain errors onto plain HTTP error pages.
func (s *Server) renderError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	if code == dErrors.CodeNotFound {
		http.Error(w, "Visit not found", http.StatusNotFound)
		return
	}
	s.logger.Error("page request failed", "error", err)
	http.Error(w, "Something went wrong", http.StatusInternalServerError)
}
