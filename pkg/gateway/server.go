// Package gateway serves mounted panels over HTTP: view snapshots, input
// edits, refresh requests and a websocket stream of host events.
package gateway

import (
	"context"
	stdliberrors "errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/odvcencio/panelsync/pkg/errors"
	"github.com/odvcencio/panelsync/pkg/host"
	"github.com/odvcencio/panelsync/pkg/logging"
	"github.com/odvcencio/panelsync/pkg/panel"
)

const maxInputBodyBytes = 64 << 10

// PanelSource lists mounted panels.
type PanelSource interface {
	Panels() []panel.Panel
	Panel(id string) (panel.Panel, bool)
}

// Config configures the gateway.
type Config struct {
	BindAddress string
	// InputRate is input edits per second accepted per panel.
	InputRate  float64
	InputBurst int
}

// Server is the HTTP gateway.
type Server struct {
	cfg    Config
	panels PanelSource
	hub    *host.Hub
	logger *slog.Logger

	limitMu  sync.Mutex
	limiters map[string]*rate.Limiter

	httpServer *http.Server
}

// New creates a gateway for panels. hub feeds the event stream and may
// be nil.
func New(cfg Config, panels PanelSource, hub *host.Hub, logger *slog.Logger) *Server {
	if cfg.InputRate <= 0 {
		cfg.InputRate = 20
	}
	if cfg.InputBurst <= 0 {
		cfg.InputBurst = 10
	}
	s := &Server{
		cfg:      cfg,
		panels:   panels,
		hub:      hub,
		logger:   logging.OrDiscard(logger),
		limiters: make(map[string]*rate.Limiter),
	}
	if hub != nil {
		hub.Listen(s.releaseLimiter)
	}
	return s
}

// Router returns the gateway's routes.
func (s *Server) Router() http.Handler {
	router := chi.NewRouter()
	router.Use(securityHeadersMiddleware)

	router.Get("/healthz", s.handleHealthz)
	router.Get("/metrics", promhttp.Handler().ServeHTTP)
	router.Get("/events", s.handleEvents)
	router.Route("/panels", func(r chi.Router) {
		r.Get("/", s.handleListPanels)
		r.Get("/{panelID}", s.handleGetPanel)
		r.Post("/{panelID}/inputs/{name}", s.handleSetInput)
		r.Post("/{panelID}/refresh", s.handleRefresh)
	})
	return router
}

// Start serves until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              s.cfg.BindAddress,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
		MaxHeaderBytes:    1 << 20,
	}

	serverErr := make(chan error, 1)
	go func() {
		s.logger.Info("serving gateway", "addr", s.cfg.BindAddress)
		if err := s.httpServer.ListenAndServe(); err != nil && !stdliberrors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-serverErr:
		return err
	}
}

func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers := w.Header()
		headers.Set("X-Content-Type-Options", "nosniff")
		headers.Set("X-Frame-Options", "DENY")
		headers.Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"panels": len(s.panels.Panels()),
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleListPanels(w http.ResponseWriter, r *http.Request) {
	panels := s.panels.Panels()
	views := make([]panel.View, 0, len(panels))
	for _, p := range panels {
		views = append(views, p.Snapshot())
	}
	respondJSON(w, http.StatusOK, map[string]any{"panels": views})
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (panel.Panel, bool) {
	id := chi.URLParam(r, "panelID")
	p, ok := s.panels.Panel(id)
	if !ok {
		respondError(w, http.StatusNotFound, errors.Newf(errors.ErrCodeNotFound, "no panel %q", id))
		return nil, false
	}
	return p, true
}

func (s *Server) handleGetPanel(w http.ResponseWriter, r *http.Request) {
	p, ok := s.lookup(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, p.Snapshot())
}

type setInputRequest struct {
	Value any `json:"value"`
}

func (s *Server) handleSetInput(w http.ResponseWriter, r *http.Request) {
	p, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if !s.limiter(p.ID()).Allow() {
		respondError(w, http.StatusTooManyRequests, errors.New(errors.ErrCodeInvalidInput, "input rate exceeded").WithRetryable(true))
		return
	}

	var req setInputRequest
	if status, err := decodeJSONBody(w, r, &req, maxInputBodyBytes); err != nil {
		respondError(w, status, errors.Wrap(err, errors.ErrCodeInvalidInput, "decode input edit"))
		return
	}

	name := chi.URLParam(r, "name")
	if err := p.SetInput(name, req.Value); err != nil {
		respondError(w, statusFor(err), err)
		return
	}
	s.logger.Debug("input edited", "panel_id", p.ID(), "input", name)
	respondJSON(w, http.StatusAccepted, p.Snapshot())
}

type refresher interface {
	Refresh()
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	p, ok := s.lookup(w, r)
	if !ok {
		return
	}
	rp, ok := p.(refresher)
	if !ok {
		respondError(w, http.StatusConflict, errors.Newf(errors.ErrCodeInvalidInput, "panel %q has no outputs to refresh", p.ID()))
		return
	}
	rp.Refresh()
	respondJSON(w, http.StatusAccepted, map[string]string{"status": "refreshing"})
}

// limiter returns the input limiter of a panel.
func (s *Server) limiter(panelID string) *rate.Limiter {
	s.limitMu.Lock()
	defer s.limitMu.Unlock()
	l, ok := s.limiters[panelID]
	if !ok {
		l = rate.NewLimiter(rate.Limit(s.cfg.InputRate), s.cfg.InputBurst)
		s.limiters[panelID] = l
	}
	return l
}

// releaseLimiter drops the limiter of a panel that is gone.
func (s *Server) releaseLimiter(ev host.Event) {
	if ev.Type != host.EventPanelClose && ev.Type != host.EventPanelUnmounted {
		return
	}
	s.limitMu.Lock()
	delete(s.limiters, ev.PanelID)
	s.limitMu.Unlock()
}

func statusFor(err error) int {
	switch errors.GetCode(err) {
	case errors.ErrCodeNotFound:
		return http.StatusNotFound
	case errors.ErrCodeInvalidInput:
		return http.StatusBadRequest
	case errors.ErrCodeFetch, errors.ErrCodeWrite:
		return http.StatusBadGateway
	case errors.ErrCodeClosed:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
