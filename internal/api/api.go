package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/thatsimonsguy/padswitch/internal/autooff"
	"github.com/thatsimonsguy/padswitch/internal/controllers/switchcontroller"
	"github.com/thatsimonsguy/padswitch/internal/model"
	"github.com/thatsimonsguy/padswitch/internal/outputbank"
)

// Switch is the command surface of the control loop.
type Switch interface {
	Activate(ctx context.Context, pin int, timeout time.Duration) (model.Status, error)
	Deactivate(ctx context.Context, disableGate bool) (model.Status, error)
	Enable(ctx context.Context, timeout time.Duration) (model.Status, error)
	Ping(ctx context.Context, timeout time.Duration) (model.Status, error)
	Status(ctx context.Context) (model.Status, error)
}

// History supplies journal entries for /api/history.
type History interface {
	Recent(limit int) ([]model.Event, error)
}

type Server struct {
	sw      Switch
	history History
	limiter *rate.Limiter

	mu     sync.Mutex
	srv    *http.Server
	closed bool
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type HistoryEntry struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Pin       string `json:"pin"`
	Enabled   string `json:"enabled"`
	TimeoutMs int64  `json:"timeout_ms"`
	Source    string `json:"source"`
}

type Options struct {
	// History may be nil, in which case /api/history answers 404.
	History History

	// RatePerSec <= 0 disables rate limiting.
	RatePerSec float64
	Burst      int
}

func NewServer(sw Switch, opts Options) *Server {
	s := &Server{
		sw:      sw,
		history: opts.History,
	}
	if opts.RatePerSec > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(opts.RatePerSec), burst)
	}
	return s
}

// Handler returns the full middleware chain: CORS, then rate limiting, then routing.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/status", s.get(s.handleStatus))
	mux.HandleFunc("/api/on", s.get(s.handleOn))
	mux.HandleFunc("/api/off", s.get(s.handleOff))
	mux.HandleFunc("/api/disable", s.get(s.handleDisable))
	mux.HandleFunc("/api/enable", s.get(s.handleEnable))
	mux.HandleFunc("/api/ping", s.get(s.handlePing))
	mux.HandleFunc("/api/history", s.get(s.handleHistory))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		if s.limiter != nil && !s.limiter.Allow() {
			s.writeError(w, http.StatusTooManyRequests, "Rate limit exceeded")
			return
		}

		mux.ServeHTTP(w, r)
	})
}

// Start serves until Shutdown is called.
func (s *Server) Start(port int) error {
	addr := fmt.Sprintf("0.0.0.0:%d", port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.srv = srv
	s.mu.Unlock()

	log.Info().Str("address", addr).Msg("Starting REST API server")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	srv := s.srv
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

func (s *Server) get(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		h(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.sw.Status(r.Context())
	s.respond(w, "status", st, err)
}

func (s *Server) handleOn(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("pin")
	if raw == "" {
		s.writeError(w, http.StatusBadRequest, "Missing pin parameter")
		return
	}
	pin, err := strconv.Atoi(raw)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid pin %q", raw))
		return
	}
	timeout, ok := s.parseTimer(w, r)
	if !ok {
		return
	}

	st, err := s.sw.Activate(r.Context(), pin, timeout)
	s.respond(w, "on", st, err)
}

func (s *Server) handleOff(w http.ResponseWriter, r *http.Request) {
	st, err := s.sw.Deactivate(r.Context(), false)
	s.respond(w, "off", st, err)
}

func (s *Server) handleDisable(w http.ResponseWriter, r *http.Request) {
	st, err := s.sw.Deactivate(r.Context(), true)
	s.respond(w, "disable", st, err)
}

func (s *Server) handleEnable(w http.ResponseWriter, r *http.Request) {
	timeout, ok := s.parseTimer(w, r)
	if !ok {
		return
	}
	st, err := s.sw.Enable(r.Context(), timeout)
	s.respond(w, "enable", st, err)
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	timeout, ok := s.parseTimer(w, r)
	if !ok {
		return
	}
	st, err := s.sw.Ping(r.Context(), timeout)
	s.respond(w, "ping", st, err)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.writeError(w, http.StatusNotFound, "Journal not configured")
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid limit %q", raw))
			return
		}
		limit = n
	}

	events, err := s.history.Recent(limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to read journal")
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response := make([]HistoryEntry, 0, len(events))
	for _, ev := range events {
		st := model.Status{ActivePin: ev.Pin, GateEnabled: ev.Enabled}.Response()
		response = append(response, HistoryEntry{
			Timestamp: ev.Time.UTC().Format(time.RFC3339),
			Event:     string(ev.Kind),
			Pin:       st.Pin,
			Enabled:   st.Enabled,
			TimeoutMs: ev.Timeout.Milliseconds(),
			Source:    ev.Source,
		})
	}
	s.writeJSON(w, http.StatusOK, response)
}

// parseTimer reads the optional timer query value in milliseconds. Absent means
// the configured default (zero). Anything below 1 ms, or too large for a
// time.Duration, is rejected.
func (s *Server) parseTimer(w http.ResponseWriter, r *http.Request) (time.Duration, bool) {
	raw := r.URL.Query().Get("timer")
	if raw == "" {
		return 0, true
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid timer %q", raw))
		return 0, false
	}
	if ms > autooff.MaxMillis {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid timer %q: too large", raw))
		return 0, false
	}
	d := time.Duration(ms) * time.Millisecond
	if err := autooff.Validate(d); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return 0, false
	}
	return d, true
}

func (s *Server) respond(w http.ResponseWriter, op string, st model.Status, err error) {
	if err == nil {
		s.writeJSON(w, http.StatusOK, st.Response())
		return
	}

	var (
		pinErr     *outputbank.InvalidPinError
		timeoutErr *autooff.InvalidTimeoutError
		hwErr      *switchcontroller.HardwareError
	)
	switch {
	case errors.As(err, &pinErr), errors.As(err, &timeoutErr):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, switchcontroller.ErrStopped):
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.As(err, &hwErr):
		log.Error().Err(err).Str("op", op).Msg("Hardware failure")
		s.writeError(w, http.StatusInternalServerError, err.Error())
	default:
		log.Error().Err(err).Str("op", op).Msg("Command failed")
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func (s *Server) writeError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}
