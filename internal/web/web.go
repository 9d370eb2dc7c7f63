package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"netsched/internal/config"
	"netsched/internal/ics"
	appLog "netsched/internal/log"
	"netsched/internal/model"
	"netsched/internal/schedule"
)

// Provider supplies the server with the current definitions and the last
// built occurrence feed. Implementations swap complete snapshots (see
// schedule.Snapshot); handlers never see a half-refreshed feed.
type Provider interface {
	Definitions() []model.NetDefinition
	Feed() (schedule.Feed, time.Time)
}

// Server provides the HTTP API over the schedule snapshot.
type Server struct {
	cfg      *config.Config
	provider Provider
	mux      *http.ServeMux
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, provider Provider) *Server {
	s := &Server{
		cfg:      cfg,
		provider: provider,
		mux:      http.NewServeMux(),
	}
	s.registerRoutes()
	return s
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

// Serve runs the HTTP server until ctx is canceled, then shuts it down
// gracefully.
func Serve(ctx context.Context, cfg *config.Config, provider Provider) error {
	s := NewServer(cfg, provider)
	srv := &http.Server{
		Addr:    cfg.Listen,
		Handler: s.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// An empty username or password is treated as disabled.
	if s.cfg.BasicAuth.Username == "" || s.cfg.BasicAuth.Password == "" {
		return false
	}
	return true
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// /health stays unauthenticated for probes.
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="netsched", charset="UTF-8"`)
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

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/nets", s.handleNets)
	s.mux.HandleFunc("/api/schedule", s.handleSchedule)
	s.mux.HandleFunc("/api/next", s.handleNext)
	s.mux.HandleFunc("/calendar.ics", s.handleCalendar)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// netDTO is a JSON-friendly view of a net definition.
type netDTO struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Category    string            `json:"category"`
	StartLocal  string            `json:"start_local"`
	DurationMin int               `json:"duration_min"`
	TimeZone    string            `json:"time_zone"`
	Connections map[string]string `json:"connections,omitempty"`
}

// occurrenceDTO is a JSON-friendly view of one occurrence. Start/End
// marshal as RFC 3339 with the authored zone offset. Fields are only
// ever added to this shape, never renamed or removed, so older site
// widgets keep parsing newer responses.
type occurrenceDTO struct {
	NetID       string            `json:"net_id"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Category    string            `json:"category"`
	Start       time.Time         `json:"start"`
	End         time.Time         `json:"end"`
	TimeZone    string            `json:"time_zone"`
	Adjusted    bool              `json:"adjusted,omitempty"`
	Live        string            `json:"live"`
	Connections map[string]string `json:"connections,omitempty"`
}

// scheduleResponse is the JSON response shape for /api/schedule.
type scheduleResponse struct {
	Occurrences     []occurrenceDTO `json:"occurrences"`
	RangeStart      time.Time       `json:"range_start"`
	RangeEnd        time.Time       `json:"range_end"`
	DisplayTimeZone string          `json:"display_timezone"`
	BuiltAt         time.Time       `json:"built_at"`
}

// nextResponse is the JSON response shape for /api/next.
type nextResponse struct {
	Policy     string         `json:"policy"`
	Occurrence *occurrenceDTO `json:"occurrence,omitempty"`
	AsAuthored *displayDTO    `json:"as_authored,omitempty"`
	UTC        *time.Time     `json:"utc,omitempty"`
}

type displayDTO struct {
	Time  time.Time `json:"time"`
	Label string    `json:"label"`
}

// handleNets returns the validated net definitions.
func (s *Server) handleNets(w http.ResponseWriter, _ *http.Request) {
	defs := s.provider.Definitions()
	dtos := make([]netDTO, 0, len(defs))
	for _, def := range defs {
		dtos = append(dtos, netDTO{
			ID:          def.ID,
			Name:        def.Name,
			Description: def.Description,
			Category:    string(def.Category),
			StartLocal:  def.StartLocal.String(),
			DurationMin: def.DurationMin,
			TimeZone:    def.TimeZone,
			Connections: def.Connections,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"nets": dtos})
}

// handleSchedule returns upcoming occurrences from the current snapshot.
//
// GET /api/schedule?days=7&category=bhn
//   - days:     limit to occurrences starting within the next N days
//     (default: the configured week window)
//   - category: limit to one category (default: all)
func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	days := parseIntDefault(q.Get("days"), s.cfg.WeekWindowDays)
	if days <= 0 {
		days = s.cfg.WeekWindowDays
	}
	category := model.Category(q.Get("category"))

	feed, builtAt := s.provider.Feed()
	now := time.Now()

	view := feed.Upcoming(now)
	if category != "" {
		view = view.Category(category)
	}
	cutoff := now.AddDate(0, 0, days)
	view = view.StartingBy(cutoff)

	dtos := make([]occurrenceDTO, 0, len(view))
	for _, occ := range view {
		dtos = append(dtos, occurrenceToDTO(occ, now))
	}

	writeJSON(w, http.StatusOK, scheduleResponse{
		Occurrences:     dtos,
		RangeStart:      now,
		RangeEnd:        cutoff,
		DisplayTimeZone: s.cfg.Timezone,
		BuiltAt:         builtAt,
	})
}

// handleNext returns the next-net selection for a category.
//
// GET /api/next?category=bhn
//   - category: preferred category (default: the configured primary)
func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	category := model.Category(r.URL.Query().Get("category"))
	if category == "" {
		category = model.Category(s.cfg.PrimaryCategory)
	}

	feed, _ := s.provider.Feed()
	now := time.Now()

	sel := schedule.SelectNext(feed.Upcoming(now), now, category)

	resp := nextResponse{Policy: string(sel.Policy)}
	if sel.Occurrence != nil {
		dto := occurrenceToDTO(*sel.Occurrence, now)
		resp.Occurrence = &dto

		disp := schedule.Project(*sel.Occurrence, schedule.AsAuthored, nil)
		resp.AsAuthored = &displayDTO{Time: disp.Time, Label: disp.Label}
		utc := disp.UTC
		resp.UTC = &utc
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleCalendar serves the upcoming feed as an iCalendar subscription.
func (s *Server) handleCalendar(w http.ResponseWriter, _ *http.Request) {
	feed, _ := s.provider.Feed()
	now := time.Now()

	body := ics.Serialize(feed.Upcoming(now), "Net Schedule")

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(body)); err != nil {
		appLog.Error("failed to write calendar response", err)
	}
}

func occurrenceToDTO(occ model.Occurrence, now time.Time) occurrenceDTO {
	return occurrenceDTO{
		NetID:       occ.NetID,
		Name:        occ.Name,
		Description: occ.Description,
		Category:    string(occ.Category),
		Start:       occ.Start,
		End:         occ.End,
		TimeZone:    occ.TimeZone,
		Adjusted:    occ.Adjusted,
		Live:        schedule.Classify(occ, now).String(),
		Connections: occ.Connections,
	}
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
