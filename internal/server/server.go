// Package server serves the portfolio page and the small endpoints its UI
// state machines talk to.
package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Amila1P/portfolio/internal/config"
	"github.com/Amila1P/portfolio/internal/content"
	"github.com/Amila1P/portfolio/internal/mail"
	"github.com/Amila1P/portfolio/internal/session"
	"github.com/Amila1P/portfolio/internal/store"
	"github.com/Amila1P/portfolio/internal/toggle"
	"github.com/Amila1P/portfolio/internal/typing"
	"github.com/gin-gonic/gin"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed static
var staticFS embed.FS

const (
	sessionCookie = "portfolio_session"
	themeCookie   = "theme"

	visitorRetention = 365 * 24 * time.Hour
	shutdownTimeout  = 10 * time.Second
)

// Deps are the collaborators a Server needs.
type Deps struct {
	Content *content.Store
	Store   *store.Store
	// Mailer may be nil, in which case messages are only stored.
	Mailer mail.Sender
	Logger *slog.Logger
}

// Server is the portfolio HTTP server.
type Server struct {
	cfg      *config.Config
	content  *content.Store
	store    *store.Store
	mailer   mail.Sender
	logger   *slog.Logger
	sessions *session.Manager
	admin    *admin
	metrics  *metrics
	engine   *gin.Engine
	now      func() time.Time

	// background work that must finish before the store is closed
	bg       sync.WaitGroup
	bgMu     sync.Mutex
	bgClosed bool
}

// New builds the server and its routes.
func New(cfg *config.Config, deps Deps) (*Server, error) {
	if deps.Content == nil {
		return nil, errors.New("server: content store is required")
	}
	if deps.Store == nil {
		return nil, errors.New("server: store is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		cfg:     cfg,
		content: deps.Content,
		store:   deps.Store,
		mailer:  deps.Mailer,
		logger:  logger,
		now:     time.Now,
	}
	s.metrics = newMetrics()

	s.sessions = session.NewManager(session.Options{
		Sections:  content.RevealSections,
		Threshold: cfg.Reveal.Threshold,
		Observe:   cfg.Reveal.Observe,
		Toggles:   s.toggleLabels,
		TTL:       cfg.Session.TTL,
		OnReveal:  s.recordReveal,
		Logger:    logger,
	})
	s.metrics.watchSessions(s.sessions)

	adm, err := newAdmin(cfg.Admin, cfg.Server.Mode, logger)
	if err != nil {
		return nil, err
	}
	s.admin = adm

	if err := s.buildEngine(); err != nil {
		return nil, err
	}
	return s, nil
}

var funcs = template.FuncMap{
	"join": strings.Join,
	// delay renders a staggered CSS animation delay.
	"delay": func(i int, step float64) string {
		return fmt.Sprintf("%.2fs", float64(i)*step)
	},
	"revealed": func(m map[string]bool, section string) bool {
		v, ok := m[section]
		return !ok || v
	},
	"datetime": func(t time.Time) string {
		return t.Local().Format("Jan 2, 2006 15:04")
	},
	// dict builds a map from key/value pairs for passing to sub-templates.
	"dict": func(kv ...any) (map[string]any, error) {
		if len(kv)%2 != 0 {
			return nil, errors.New("dict: odd number of arguments")
		}
		m := make(map[string]any, len(kv)/2)
		for i := 0; i < len(kv); i += 2 {
			k, ok := kv[i].(string)
			if !ok {
				return nil, fmt.Errorf("dict: key %v is not a string", kv[i])
			}
			m[k] = kv[i+1]
		}
		return m, nil
	},
}

func (s *Server) buildEngine() error {
	tmpl, err := template.New("").Funcs(funcs).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return fmt.Errorf("parsing templates: %w", err)
	}
	static, err := fs.Sub(staticFS, "static")
	if err != nil {
		return fmt.Errorf("static assets: %w", err)
	}

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.SetHTMLTemplate(tmpl)
	r.Use(s.metrics.middleware())
	r.Use(s.visitorTracking())

	r.StaticFS("/static", http.FS(static))

	r.GET("/", s.handleIndex)
	r.GET("/typing", s.handleTyping)
	r.POST("/reveal/:section", s.handleReveal)
	r.POST("/toggle/:name", s.handleToggle)
	r.POST("/theme", s.handleTheme)

	r.GET("/contact-form", s.handleContactForm)
	r.POST("/contact", s.handleContact)

	r.GET("/healthz", s.handleHealth)
	r.GET("/metrics", gin.WrapH(s.metrics.handler()))

	s.setupAdminRoutes(r)

	s.engine = r
	return nil
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.engine }

// Sessions returns the per-visitor session manager.
func (s *Server) Sessions() *session.Manager { return s.sessions }

// Run serves on addr until ctx is done, then shuts down gracefully. Request
// contexts derive from ctx so open typing streams end on shutdown.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go s.sessions.Run(ctx)
	s.background(func(ctx context.Context) { s.cleanupVisitors(ctx) })

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Portfolio listening", slog.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("Shutdown", slog.String("error", err.Error()))
	}
	s.Drain()
	return nil
}

// Wait blocks until background work has finished. New work may still be
// started afterwards.
func (s *Server) Wait() { s.bg.Wait() }

// Drain stops accepting background work and waits for what is running.
// Handlers that outlive a timed-out shutdown have their work dropped.
func (s *Server) Drain() {
	s.bgMu.Lock()
	s.bgClosed = true
	s.bgMu.Unlock()
	s.bg.Wait()
}

// background runs fn in its own goroutine with a bounded context. It reports
// false when the server is draining and fn was dropped.
func (s *Server) background(fn func(ctx context.Context)) bool {
	s.bgMu.Lock()
	if s.bgClosed {
		s.bgMu.Unlock()
		s.logger.Warn("Dropping background work after shutdown")
		return false
	}
	s.bg.Add(1)
	s.bgMu.Unlock()

	go func() {
		defer s.bg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		fn(ctx)
	}()
	return true
}

// cleanupVisitors drops visitor records past the retention window.
func (s *Server) cleanupVisitors(ctx context.Context) {
	n, err := s.store.CleanupVisitors(ctx, s.now().Add(-visitorRetention))
	if err != nil {
		s.logger.Error("Cleaning up visitor data", slog.String("error", err.Error()))
		return
	}
	if n > 0 {
		s.logger.Info("Privacy cleanup removed old visitor records", slog.Int64("count", n))
	}
}

func (s *Server) recordReveal(sessionID, section string) {
	s.logger.Debug("Section revealed", slog.String("session", sessionID), slog.String("section", section))
	s.metrics.reveals.WithLabelValues(section).Inc()
	s.background(func(ctx context.Context) {
		if err := s.store.RecordReveal(ctx, section, s.now()); err != nil {
			s.logger.Error("Recording reveal", slog.String("section", section), slog.String("error", err.Error()))
		}
	})
}

// toggleLabels reads captions from the current content, so a reload applies
// to the next page view.
func (s *Server) toggleLabels() map[string]toggle.Labels {
	return map[string]toggle.Labels{
		content.ToggleCertificates: s.content.Site().Certificates.Labels,
		content.ToggleMenu:         {Collapsed: "Open menu", Expanded: "Close menu"},
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	if err := s.store.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": s.sessions.Len()})
}

// typingDelays returns the configured animator delays.
func (s *Server) typingDelays() typing.Delays { return s.cfg.Typing }
