package web_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netsched/internal/config"
	"netsched/internal/model"
	"netsched/internal/schedule"
	"netsched/internal/web"
)

// stubProvider serves a fixed snapshot.
type stubProvider struct {
	defs    []model.NetDefinition
	feed    schedule.Feed
	builtAt time.Time
}

func (s *stubProvider) Definitions() []model.NetDefinition { return s.defs }

func (s *stubProvider) Feed() (schedule.Feed, time.Time) { return s.feed, s.builtAt }

func occAt(id string, cat model.Category, start time.Time, dur time.Duration) model.Occurrence {
	return model.Occurrence{
		NetID:    id,
		Name:     id,
		Category: cat,
		Start:    start,
		End:      start.Add(dur),
		TimeZone: "UTC",
	}
}

func testServer(t *testing.T, cfg *config.Config, provider web.Provider) http.Handler {
	t.Helper()
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	cfg.Normalize()
	return web.NewServer(cfg, provider).Handler()
}

func futureFeed(now time.Time) schedule.Feed {
	return schedule.Feed{
		occAt("ended-net", "bhn", now.Add(-3*time.Hour), time.Hour),
		occAt("general-net", "general", now.Add(1*time.Hour), time.Hour),
		occAt("bhn-net", "bhn", now.Add(4*time.Hour), time.Hour),
	}
}

func TestHealth(t *testing.T) {
	h := testServer(t, nil, &stubProvider{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestAPINets(t *testing.T) {
	provider := &stubProvider{
		defs: []model.NetDefinition{{
			ID:          "friday-night-net",
			Name:        "Friday Night Net",
			Category:    "bhn",
			StartLocal:  model.TimeOfDay{Hour: 20, Minute: 0},
			DurationMin: 60,
			TimeZone:    "America/New_York",
		}},
	}
	h := testServer(t, nil, provider)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/nets", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Nets []struct {
			ID         string `json:"id"`
			StartLocal string `json:"start_local"`
			TimeZone   string `json:"time_zone"`
		} `json:"nets"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Nets, 1)
	assert.Equal(t, "friday-night-net", body.Nets[0].ID)
	assert.Equal(t, "20:00", body.Nets[0].StartLocal)
	assert.Equal(t, "America/New_York", body.Nets[0].TimeZone)
}

func TestAPISchedule(t *testing.T) {
	now := time.Now()
	h := testServer(t, nil, &stubProvider{feed: futureFeed(now), builtAt: now})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/schedule?days=7", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Occurrences []struct {
			NetID string `json:"net_id"`
			Live  string `json:"live"`
		} `json:"occurrences"`
		DisplayTimeZone string `json:"display_timezone"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	// The ended occurrence is excluded from the upcoming view.
	require.Len(t, body.Occurrences, 2)
	assert.Equal(t, "general-net", body.Occurrences[0].NetID)
	assert.Equal(t, "upcoming", body.Occurrences[0].Live)
	assert.Equal(t, "America/New_York", body.DisplayTimeZone)
}

func TestAPISchedule_CategoryFilter(t *testing.T) {
	now := time.Now()
	h := testServer(t, nil, &stubProvider{feed: futureFeed(now), builtAt: now})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/schedule?category=general", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Occurrences []struct {
			NetID    string `json:"net_id"`
			Category string `json:"category"`
		} `json:"occurrences"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Occurrences, 1)
	assert.Equal(t, "general-net", body.Occurrences[0].NetID)
}

func TestAPINext_PreferredAndFallback(t *testing.T) {
	now := time.Now()
	h := testServer(t, nil, &stubProvider{feed: futureFeed(now), builtAt: now})

	// Default preferred category (bhn) wins over the earlier general net.
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/next", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Policy     string `json:"policy"`
		Occurrence *struct {
			NetID string `json:"net_id"`
		} `json:"occurrence"`
		AsAuthored *struct {
			Label string `json:"label"`
		} `json:"as_authored"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "preferred", body.Policy)
	require.NotNil(t, body.Occurrence)
	assert.Equal(t, "bhn-net", body.Occurrence.NetID)
	require.NotNil(t, body.AsAuthored)

	// An unused category falls back to the earliest of any category.
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/next?category=accessibility", nil))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "fallback-any", body.Policy)
	assert.Equal(t, "general-net", body.Occurrence.NetID)
}

func TestAPINext_EmptyFeed(t *testing.T) {
	h := testServer(t, nil, &stubProvider{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/next", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Policy     string          `json:"policy"`
		Occurrence json.RawMessage `json:"occurrence"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "none", body.Policy)
	assert.Empty(t, body.Occurrence)
}

func TestCalendarEndpoint(t *testing.T) {
	now := time.Now()
	h := testServer(t, nil, &stubProvider{feed: futureFeed(now), builtAt: now})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/calendar.ics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/calendar; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "BEGIN:VCALENDAR")
	assert.Contains(t, rec.Body.String(), "SUMMARY:bhn-net")
}

func TestBasicAuth(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.BasicAuth = &config.BasicAuthConfig{Username: "editor", Password: "secret"}
	h := testServer(t, cfg, &stubProvider{})

	// /health stays open for probes.
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	// Everything else requires credentials.
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/nets", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "Basic")

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/nets", nil)
	req.SetBasicAuth("editor", "secret")
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/nets", nil)
	req.SetBasicAuth("editor", "wrong")
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
