package httpapi

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/igasar/doorlock/internal/doorlock/facade"
	"github.com/igasar/doorlock/internal/doorlock/types"
)

type RateLimit struct {
	// RPS and Burst bound attendance submissions per client IP.  RPS <= 0
	// disables limiting.
	RPS   float64
	Burst int
}

type Dependencies struct {
	Logger    *zap.Logger
	Addr      string
	Facade    *facade.Facade
	RateLimit RateLimit
}

type Server struct {
	httpServer *http.Server
	listener   net.Listener
	logger     *zap.Logger
	mux        *http.ServeMux
	facade     *facade.Facade
}

func NewServer(d Dependencies) *Server {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	mux := http.NewServeMux()

	s := &Server{
		logger: d.Logger,
		mux:    mux,
		facade: d.Facade,
	}

	limited := rateLimitMiddleware(d.RateLimit, s.logger)

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /door/status", s.handleDoorStatus)
	mux.HandleFunc("POST /door/open", s.handleDoorOpen)
	mux.HandleFunc("POST /door/lock", s.handleDoorLock)
	mux.HandleFunc("GET /door/events", s.handleDoorEvents)
	mux.Handle("POST /attendance", limited(http.HandlerFunc(s.handleAttendance)))
	mux.Handle("POST /absen", limited(http.HandlerFunc(s.handleAttendance)))
	mux.HandleFunc("GET /attendance/today", s.handleAttendanceToday)

	handler := recoverMiddleware(d.Logger,
		requestIDMiddleware(
			loggingMiddleware(d.Logger, mux)))

	s.httpServer = &http.Server{
		Addr:              d.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// Listen binds the address so bind errors surface before Serve runs in a
// goroutine.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	s.listener = ln
	return nil
}

func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.httpServer.Addr
}

func (s *Server) Start() error {
	if s.listener == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}
	return s.httpServer.Serve(s.listener)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.reply(w, r, http.StatusOK, s.facade.Index())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.reply(w, r, http.StatusOK, s.facade.Health(r.Context()))
}

func (s *Server) handleDoorStatus(w http.ResponseWriter, r *http.Request) {
	s.reply(w, r, http.StatusOK, s.facade.DoorStatus())
}

func (s *Server) handleDoorOpen(w http.ResponseWriter, r *http.Request) {
	var req types.DoorOpenRequest
	if !s.decode(w, r, &req) {
		return
	}
	resp, code := s.facade.OpenDoor(requestToken(r, req.Token), req.Delay)
	s.reply(w, r, code, resp)
}

func (s *Server) handleDoorLock(w http.ResponseWriter, r *http.Request) {
	var req types.DoorLockRequest
	if !s.decode(w, r, &req) {
		return
	}
	resp, code := s.facade.LockDoor(requestToken(r, req.Token))
	s.reply(w, r, code, resp)
}

func (s *Server) handleDoorEvents(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	resp, code := s.facade.DoorEvents(r.Context(), requestToken(r, ""), limit)
	s.reply(w, r, code, resp)
}

func (s *Server) handleAttendance(w http.ResponseWriter, r *http.Request) {
	var req types.AttendanceRequest
	if !s.decode(w, r, &req) {
		return
	}
	resp, code := s.facade.SubmitAttendance(r.Context(), requestToken(r, req.Token), req)
	s.reply(w, r, code, resp)
}

func (s *Server) handleAttendanceToday(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("employee_code")
	resp, status := s.facade.AttendanceToday(r.Context(), requestToken(r, ""), code)
	s.reply(w, r, status, resp)
}

// requestToken prefers the body token, then a bearer token, then the
// X-API-Token header used by legacy kiosk firmware.
func requestToken(r *http.Request, bodyToken string) string {
	if t := strings.TrimSpace(bodyToken); t != "" {
		return t
	}
	if auth := r.Header.Get("Authorization"); auth != "" {
		if scheme, tok, ok := strings.Cut(auth, " "); ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(tok)
		}
	}
	return strings.TrimSpace(r.Header.Get("X-API-Token"))
}
