package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"switchbot/internal/application"
	"switchbot/internal/domain"
	"switchbot/internal/infra/switchbot"
)

const maxBodySize = 4096

type Config struct {
	Addr      string
	AuthToken string
	// RateLimit is the number of /api requests allowed per client IP per minute.
	RateLimit int
}

// Server exposes the device service over a local REST API.
type Server struct {
	cfg     Config
	service *application.Service
	logger  *slog.Logger
	router  chi.Router
	limiter *RateLimiter

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	running  bool
}

// NewServer builds the router. metrics may be nil, in which case /metrics is not served.
func NewServer(cfg Config, service *application.Service, metrics http.Handler, logger *slog.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		service: service,
		logger:  logger,
		limiter: NewRateLimiter(cfg.RateLimit, time.Minute),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(s.limiter.Middleware)
		r.Use(s.requireToken)

		r.Get("/devices", s.handleDevices)
		r.Get("/devices/{id}/status", s.handleStatus)
		r.Post("/devices/{id}/commands", s.handleCommand)
		r.Get("/lights/{id}", s.handleLightState)
		r.Post("/lights/{id}/{action}", s.handleLightAction)
	})

	s.router = r
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Start binds the listen address before returning, so an address already in use
// is reported to the caller. Requests are then served in the background.
func (s *Server) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Addr, err)
	}

	s.listener = ln
	s.server = &http.Server{
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		s.logger.Info("HTTP bridge starting", "addr", ln.Addr().String())
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error", "error", err)
		}
	}()

	s.running = true
	return nil
}

// Addr returns the bound address once the server is running.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Warn("graceful shutdown failed, forcing close", "error", err)
		if err := s.server.Close(); err != nil {
			return fmt.Errorf("closing server: %w", err)
		}
	}

	s.listener = nil
	s.running = false
	return nil
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.AuthToken != "" {
			token := r.Header.Get("X-Auth-Token")
			if token == "" {
				token = r.URL.Query().Get("token")
			}
			if token != s.cfg.AuthToken {
				s.logger.Warn("unauthorized request", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDevices(w http.ResponseWriter, r *http.Request) {
	filter := application.Filter{
		Name: r.URL.Query().Get("name"),
		Type: domain.DeviceType(r.URL.Query().Get("type")),
	}

	devices, err := s.service.Devices(r.Context(), filter)
	if err != nil {
		s.fail(w, "listing devices", err)
		return
	}
	writeJSON(w, http.StatusOK, devices)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.service.Status(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, "fetching status", err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var cmd domain.Command
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(&cmd); err != nil {
		writeError(w, http.StatusBadRequest, "invalid command body")
		return
	}
	if strings.TrimSpace(cmd.Command) == "" {
		writeError(w, http.StatusBadRequest, "command is required")
		return
	}
	if cmd.CommandType == "" {
		cmd.CommandType = domain.CommandTypeCommand
	}
	if cmd.Parameter == nil {
		cmd.Parameter = domain.DefaultParameter
	}

	if err := s.service.Execute(r.Context(), chi.URLParam(r, "id"), cmd); err != nil {
		s.fail(w, "executing command", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleLightState(w http.ResponseWriter, r *http.Request) {
	state, err := s.service.LightState(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, "reading light", err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleLightAction(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Value int `json:"value"`
	}
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}
	if len(strings.TrimSpace(string(data))) > 0 {
		if err := json.Unmarshal(data, &body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid body")
			return
		}
	}

	action := application.LightAction(chi.URLParam(r, "action"))
	if err := s.service.ApplyLight(r.Context(), chi.URLParam(r, "id"), action, body.Value); err != nil {
		s.fail(w, "applying light action", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	if status >= 500 {
		s.logger.Error(op, "error", err)
	}
	writeError(w, status, err.Error())
}

func statusFor(err error) int {
	var ve *switchbot.ValidationError
	switch {
	case errors.As(err, &ve),
		errors.Is(err, application.ErrUnknownAction),
		errors.Is(err, switchbot.ErrEmptyDeviceID):
		return http.StatusBadRequest
	case switchbot.IsNotFound(err):
		return http.StatusNotFound
	case switchbot.IsTimeout(err):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
