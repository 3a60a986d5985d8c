package web

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"holidaycal/internal/config"
	"holidaycal/internal/generate"
	appLog "holidaycal/internal/log"
	"holidaycal/internal/model"
)

// RefreshFunc regenerates the calendar on demand.
type RefreshFunc func(ctx context.Context) (*generate.Result, error)

// Server serves the latest generated calendar and a small JSON API over it.
type Server struct {
	cfg     *config.Config
	refresh RefreshFunc
	mux     *http.ServeMux

	mu        sync.RWMutex
	latest    *generate.Result
	etag      string
	updatedAt time.Time
}

// NewServer constructs a new Server. refresh may be nil, which disables
// POST /api/refresh.
func NewServer(cfg *config.Config, refresh RefreshFunc) *Server {
	s := &Server{
		cfg:     cfg,
		refresh: refresh,
		mux:     http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Publish makes res the document served from now on. A nil res is ignored so
// a failed run keeps the previous document online.
func (s *Server) Publish(res *generate.Result) {
	if res == nil {
		return
	}
	sum := sha256.Sum256(res.Body)
	s.mu.Lock()
	s.latest = res
	s.etag = `"` + hex.EncodeToString(sum[:8]) + `"`
	s.updatedAt = time.Now().UTC()
	s.mu.Unlock()
}

func (s *Server) current() (*generate.Result, string, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest, s.etag, s.updatedAt
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="holidaycal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Serve listens on cfg.Listen until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /holidays.ics", s.handleCalendar)
	s.mux.HandleFunc("GET /api/events", s.handleEvents)
	s.mux.HandleFunc("GET /api/day", s.handleDay)
	s.mux.HandleFunc("POST /api/refresh", s.handleRefresh)
	s.mux.Handle("GET /metrics", promhttp.Handler())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleCalendar serves the latest document with an ETag so subscribers can
// revalidate cheaply.
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	res, etag, updatedAt := s.current()
	if res == nil {
		http.Error(w, "calendar not generated yet", http.StatusServiceUnavailable)
		return
	}
	if etagMatches(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("ETag", etag)
	w.Header().Set("Last-Modified", updatedAt.Format(http.TimeFormat))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Body)
}

// etagMatches applies the weak comparison of If-None-Match: a list of tags,
// optionally W/-prefixed, or "*".
func etagMatches(header, etag string) bool {
	for _, tag := range strings.Split(header, ",") {
		tag = strings.TrimSpace(tag)
		if tag == "*" {
			return true
		}
		if strings.TrimPrefix(tag, "W/") == etag {
			return true
		}
	}
	return false
}

type eventDTO struct {
	Date        string `json:"date"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category"`
	Label       string `json:"label"`
}

type eventsResponse struct {
	Events      []eventDTO `json:"events"`
	GeneratedAt time.Time  `json:"generated_at"`
}

type dayResponse struct {
	Date       string     `json:"date"`
	RestDay    bool       `json:"rest_day"`
	Overridden bool       `json:"overridden"`
	Events     []eventDTO `json:"events"`
}

func toDTO(e model.CalendarEvent) eventDTO {
	return eventDTO{
		Date:        e.Date.Format(model.DateLayout),
		Title:       e.Title,
		Description: e.Description,
		Category:    e.Category.String(),
		Label:       e.Category.Label(),
	}
}

// handleEvents lists generated entries.
//
// GET /api/events?year=2025&category=statutory
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	res, _, updatedAt := s.current()
	if res == nil {
		writeError(w, http.StatusServiceUnavailable, "calendar not generated yet")
		return
	}

	q := r.URL.Query()
	year := parseIntDefault(q.Get("year"), 0)
	category := q.Get("category")

	out := make([]eventDTO, 0, len(res.Events))
	for _, e := range res.Events {
		if year != 0 && e.Date.Year() != year {
			continue
		}
		if category != "" && category != e.Category.String() {
			continue
		}
		out = append(out, toDTO(e))
	}
	writeJSON(w, http.StatusOK, eventsResponse{Events: out, GeneratedAt: updatedAt})
}

// handleDay answers "is this date a day off?" from the statutory status,
// falling back to the weekend rule.
//
// GET /api/day?date=2024-10-01
func (s *Server) handleDay(w http.ResponseWriter, r *http.Request) {
	res, _, _ := s.current()
	if res == nil {
		writeError(w, http.StatusServiceUnavailable, "calendar not generated yet")
		return
	}
	date, err := model.ParseDate(r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	resp := dayResponse{
		Date:       date.Format(model.DateLayout),
		RestDay:    res.Status.IsRestDay(date),
		Overridden: res.Status.Overridden(date),
		Events:     []eventDTO{},
	}
	for _, e := range res.Events {
		if e.Date.Equal(date) {
			resp.Events = append(resp.Events, toDTO(e))
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if s.refresh == nil {
		writeError(w, http.StatusNotImplemented, "refresh not available")
		return
	}
	res, err := s.refresh(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	s.Publish(res)
	writeJSON(w, http.StatusOK, map[string]int{"events": len(res.Events)})
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
