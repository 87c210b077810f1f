package daemon

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/tagpivot/internal/config"
	"github.com/runnerr0/tagpivot/internal/storage"
)

// newTestServer builds a Server over an in-memory store with the given
// config mutations applied on top of defaults.
func newTestServer(t *testing.T, mutate func(*config.Config)) (*Server, *storage.SQLiteStore) {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:?_foreign_keys=on")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, storage.NewMigrationRunner(db).Run())
	store, err := storage.NewSQLiteStore(db)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cfg := config.DefaultConfig()
	cfg.Daemon.RatePerSecond = 1000
	cfg.Daemon.RateBurst = 1000
	if mutate != nil {
		mutate(cfg)
	}

	logger := log.NewWithOptions(io.Discard, log.Options{})
	return New(cfg, store, logger), store
}

func postEvent(t *testing.T, handler http.Handler, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/events", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}

func TestIngest_HappyPath(t *testing.T) {
	srv, store := newTestServer(t, nil)

	body := `{"url":"https://example.com/post?utm_source=x","tags":["Rust"," rust ","wasm"],"probe":{"scrollCount":12,"clickCount":3}}`
	rec := postEvent(t, srv.Handler(), body, nil)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["accepted"])
	assert.Contains(t, resp["urlHash"], "sha256:")

	events, err := store.LoadEvents(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "example.com", events[0].Domain)
	assert.Equal(t, []string{"rust", "wasm"}, events[0].Tags)
	require.NotNil(t, events[0].Probe)
	assert.Greater(t, events[0].Probe.Energy, 0.0)
}

func TestIngest_TrackingParamsDoNotSplitDedupe(t *testing.T) {
	srv, store := newTestServer(t, nil)

	// Same page reached with and without tracking params hashes identically,
	// so the second post is a suppressed repeat visit.
	rec := postEvent(t, srv.Handler(), `{"url":"https://example.com/post?utm_source=x","tags":["go"]}`, nil)
	require.Equal(t, http.StatusAccepted, rec.Code)
	rec = postEvent(t, srv.Handler(), `{"url":"https://example.com/post","tags":["go"]}`, nil)
	require.Equal(t, http.StatusAccepted, rec.Code)

	events, err := store.LoadEvents(context.Background())
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestIngest_RejectsNonPost(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/events", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestIngest_RejectsInvalidBody(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := postEvent(t, srv.Handler(), `{not json`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIngest_RejectsInvalidURL(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	rec := postEvent(t, srv.Handler(), `{"url":"not a url","tags":["go"]}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIngest_RejectsEmptyTags(t *testing.T) {
	srv, store := newTestServer(t, nil)

	rec := postEvent(t, srv.Handler(), `{"url":"https://example.com/","tags":["  ",""]}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	events, err := store.LoadEvents(context.Background())
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestIngest_AuthToken(t *testing.T) {
	srv, _ := newTestServer(t, func(cfg *config.Config) {
		cfg.Daemon.AuthToken = "secret"
	})

	body := `{"url":"https://example.com/","tags":["go"]}`

	rec := postEvent(t, srv.Handler(), body, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = postEvent(t, srv.Handler(), body, map[string]string{"Authorization": "Bearer wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = postEvent(t, srv.Handler(), body, map[string]string{"Authorization": "Bearer secret"})
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestIngest_RateLimit(t *testing.T) {
	srv, _ := newTestServer(t, func(cfg *config.Config) {
		cfg.Daemon.RatePerSecond = 1
		cfg.Daemon.RateBurst = 1
	})

	rec := postEvent(t, srv.Handler(), `{"url":"https://example.com/a","tags":["go"]}`, nil)
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec = postEvent(t, srv.Handler(), `{"url":"https://example.com/b","tags":["go"]}`, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestIngest_BodySizeLimit(t *testing.T) {
	srv, _ := newTestServer(t, func(cfg *config.Config) {
		cfg.Daemon.MaxRequestSize = 64
	})

	var big bytes.Buffer
	big.WriteString(`{"url":"https://example.com/","tags":["`)
	big.WriteString(strings.Repeat("x", 1024))
	big.WriteString(`"]}`)

	rec := postEvent(t, srv.Handler(), big.String(), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIngest_TimestampFallback(t *testing.T) {
	srv, store := newTestServer(t, nil)

	rec := postEvent(t, srv.Handler(), `{"url":"https://example.com/","tags":["go"]}`, nil)
	require.Equal(t, http.StatusAccepted, rec.Code)

	events, err := store.LoadEvents(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Greater(t, events[0].CapturedAtMs, int64(0))
	assert.NotEmpty(t, events[0].Day)
}
