// Package server exposes edit sessions, view layouts, grouping and footer
// aggregates over HTTP, with session changes streamed as datastar SSE.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/gridcell/internal/notifier"
	"github.com/leapstack-labs/gridcell/internal/schema"
	"github.com/leapstack-labs/gridcell/internal/state"
	"github.com/leapstack-labs/gridcell/pkg/core"
	"github.com/leapstack-labs/gridcell/pkg/view"
)

// RowWriter applies commit events to the database that owns the rows.
type RowWriter interface {
	Apply(ctx context.Context, ev core.CommitEvent) error
}

// Config holds configuration for the server.
type Config struct {
	Source *schema.Source
	State  state.Store
	// Rows is optional; without it commits are only logged to State.
	Rows          RowWriter
	Port          int
	Watch         bool
	SessionSecret string
	Tables        map[string]view.TableOptions
	WarnDuration  time.Duration
	EmitUnchanged bool
	// EditorIdle evicts per-client editors unused for this long.
	// Zero means DefaultEditorIdle.
	EditorIdle time.Duration
	Logger     *slog.Logger
}

// Server is the HTTP front end over the editing packages.
type Server struct {
	source       *schema.Source
	state        state.Store
	rows         RowWriter
	sessionStore *sessions.CookieStore
	views        *view.Store
	tables       map[string]view.TableOptions
	port         int
	watch        bool
	warnFor      time.Duration
	emitSame     bool
	editorIdle   time.Duration
	logger       *slog.Logger
	now          func() time.Time

	// schemaEvents carries the template after every successful reload.
	schemaEvents *notifier.Notifier[*core.Template]

	mu      sync.Mutex
	editors map[string]*editor
	baseCtx context.Context
}

// NewServer creates a server. The schema source must already be loaded.
func NewServer(cfg Config) *Server {
	sessionStore := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	sessionStore.MaxAge(86400 * 30) // 30 days
	sessionStore.Options.Path = "/"
	sessionStore.Options.HttpOnly = true
	sessionStore.Options.SameSite = http.SameSiteLaxMode

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	idle := cfg.EditorIdle
	if idle <= 0 {
		idle = DefaultEditorIdle
	}

	s := &Server{
		source:       cfg.Source,
		state:        cfg.State,
		rows:         cfg.Rows,
		sessionStore: sessionStore,
		views:        view.NewStore(view.NewReconciler(cfg.Source.Template())),
		tables:       cfg.Tables,
		port:         cfg.Port,
		watch:        cfg.Watch,
		warnFor:      cfg.WarnDuration,
		emitSame:     cfg.EmitUnchanged,
		editorIdle:   idle,
		logger:       logger,
		now:          time.Now,
		schemaEvents: notifier.New[*core.Template](),
		editors:      make(map[string]*editor),
		baseCtx:      context.Background(),
	}

	cfg.Source.OnReload(func(tpl *core.Template) {
		s.views.SetReconciler(view.NewReconciler(tpl))
		s.schemaEvents.Broadcast(tpl)
	})
	return s
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
	)
	s.routes(r)
	return r
}

// Serve starts the server and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("starting server", "addr", fmt.Sprintf("http://localhost:%d", s.port))

	eg, egctx := errgroup.WithContext(ctx)
	s.mu.Lock()
	s.baseCtx = egctx
	s.mu.Unlock()

	srv := &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.watch && s.source.Path() != "" {
		eg.Go(func() error {
			return s.source.Watch(egctx)
		})
	}

	eg.Go(func() error {
		return s.sweepEditors(egctx)
	})

	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down server...")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

func (s *Server) context() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.baseCtx
}

// template returns the current schema.
func (s *Server) template() *core.Template {
	return s.source.Template()
}
