// Package web provides the server-rendered reception desk UI.
package web

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"visitlog/internal/platform/middleware"
	"visitlog/internal/visit/models"
	"visitlog/internal/visit/service"
)

//go:embed templates/*.html
var templateFS embed.FS

// pageSize is the number of visits per list page.
const pageSize = 10

// VisitService defines the visit operations the UI depends on.
type VisitService interface {
	Create(ctx context.Context, params service.CreateParams) (*models.Visit, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Visit, error)
	List(ctx context.Context, limit, offset int) ([]*models.Visit, int, error)
	Update(ctx context.Context, id uuid.UUID, params service.UpdateParams) (*models.Visit, error)
	MarkDeparture(ctx context.Context, id uuid.UUID) (*models.Visit, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Server renders the HTML pages.
type Server struct {
	visits    VisitService
	logger    *slog.Logger
	templates *template.Template
}

// NewServer parses the embedded templates and builds the UI server.
func NewServer(visits VisitService, logger *slog.Logger) (*Server, error) {
	funcMap := template.FuncMap{
		"formatTime": tmplFormatTime,
	}
	tmpl, err := template.New("").Funcs(funcMap).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}
	return &Server{visits: visits, logger: logger, templates: tmpl}, nil
}

// Register registers the UI routes with the chi router.
func (s *Server) Register(r chi.Router) {
	r.Group(func(ui chi.Router) {
		ui.Use(middleware.Recovery(s.logger))
		ui.Use(middleware.RequestID)
		ui.Use(middleware.Logger(s.logger))
		ui.Use(middleware.ClientMetadata)

		ui.Get("/", s.handleList)
		ui.Get("/register", s.handleRegisterForm)
		ui.Post("/register", s.handleRegisterSubmit)
		ui.Post("/visits/{id}/departure", s.handleDeparture)
		ui.Get("/visits/{id}/edit", s.handleEditForm)
		ui.Post("/visits/{id}/edit", s.handleEditSubmit)
		ui.Get("/visits/{id}/delete", s.handleDeleteConfirm)
		ui.Post("/visits/{id}/delete", s.handleDeleteSubmit)
	})
}

// render executes a page template.
func (s *Server) render(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		s.logger.Error("failed to render template", "template", name, "error", err)
		http.Error(w, "Error rendering page", http.StatusInternalServerError)
	}
}

// tmplFormatTime accepts both time.Time and *time.Time because entry times
// are values and exit times are nullable pointers.
func tmplFormatTime(v any) string {
	switch t := v.(type) {
	case time.Time:
		return t.Local().Format("2006-01-02 15:04")
	case *time.Time:
		if t == nil {
			return ""
		}
		return t.Local().Format("2006-01-02 15:04")
	}
	return ""
}
