// Package httpapi wires the HTTP surface of the ledger service.
// It keeps handlers thin, delegating business rules to the service layer.
package httpapi

import (
	"log/slog"
	"net/http"

	chi "github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/tinoosan/shopledger/internal/config"
	"github.com/tinoosan/shopledger/internal/report"
	"github.com/tinoosan/shopledger/internal/service/account"
	"github.com/tinoosan/shopledger/internal/service/events"
	"github.com/tinoosan/shopledger/internal/service/journal"
	"github.com/tinoosan/shopledger/internal/storage"
)

// Deps are the collaborators the server builds its services from.
type Deps struct {
	Store           storage.Store
	Roles           config.Roles
	Currency        string
	DefaultPageSize int
	Logger          *slog.Logger
}

// Server wires handlers and middleware using Chi.
type Server struct {
	store    storage.Store
	accounts account.Service
	journal  journal.Service
	events   events.Service
	reports  report.Service
	currency string
	pageSize int
	validate *validator.Validate
	log      *slog.Logger
	rt       *chi.Mux
}

// New constructs the HTTP server with routes and middleware.
func New(d Deps) *Server {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.DefaultPageSize <= 0 {
		d.DefaultPageSize = report.DefaultPageSize
	}
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(requestLogger(d.Logger))
	r.Use(recoverer(d.Logger))
	r.Use(metricsMiddleware)

	s := &Server{
		store:    d.Store,
		accounts: account.New(d.Store, d.Roles),
		journal:  journal.New(d.Store, d.Currency, d.Logger),
		events:   events.New(d.Store, d.Roles, d.Currency, d.Logger),
		reports:  report.New(d.Store, d.Roles, d.Logger),
		currency: d.Currency,
		pageSize: d.DefaultPageSize,
		validate: newValidator(),
		log:      d.Logger,
		rt:       r,
	}
	s.routes()
	return s
}

// Handler exposes the configured http.Handler.
func (s *Server) Handler() http.Handler { return s.rt }
