// Package daemon runs the local HTTP ingest service: a loopback endpoint
// that browser-side capture posts tag events to, plus a scheduled
// retention prune.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/charmbracelet/log"
	"github.com/robfig/cron/v3"
	"golang.org/x/time/rate"

	"github.com/runnerr0/tagpivot/internal/canon"
	"github.com/runnerr0/tagpivot/internal/config"
	"github.com/runnerr0/tagpivot/internal/metrics"
	"github.com/runnerr0/tagpivot/internal/storage"
	"github.com/runnerr0/tagpivot/internal/tags"
)

// Server is the ingest daemon.
type Server struct {
	cfg     *config.Config
	store   storage.Store
	logger  *log.Logger
	limiter *rate.Limiter
	cron    *cron.Cron
	httpSrv *http.Server
}

// New builds a Server from the given config and store.
func New(cfg *config.Config, store storage.Store, logger *log.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		store:   store,
		logger:  logger,
		limiter: rate.NewLimiter(rate.Limit(cfg.Daemon.RatePerSecond), cfg.Daemon.RateBurst),
		cron:    cron.New(),
	}

	s.httpSrv = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Daemon.Host, cfg.Daemon.Port),
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the daemon's HTTP handler (exposed for testing).
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/v1/events", s.handleIngest)
	return mux
}

// Run starts the scheduled prune and serves HTTP until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	if hours := s.cfg.Retention.PruneIntervalHours; hours > 0 {
		spec := fmt.Sprintf("@every %dh", hours)
		if _, err := s.cron.AddFunc(spec, s.pruneOnce); err != nil {
			return fmt.Errorf("schedule prune: %w", err)
		}
		s.cron.Start()
		defer s.cron.Stop()
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("daemon listening", "addr", s.httpSrv.Addr)
		errCh <- s.httpSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("daemon shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// pruneOnce applies the configured retention window to the event log.
func (s *Server) pruneOnce() {
	cutoff := time.Now().Add(-time.Duration(s.cfg.Retention.Days) * 24 * time.Hour)
	n, err := s.store.PruneExpired(context.Background(), cutoff)
	if err != nil {
		s.logger.Error("scheduled prune failed", "err", err)
		return
	}
	if n > 0 {
		s.logger.Info("scheduled prune", "removed", n)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// ingestRequest is the wire format for a posted tag event.
type ingestRequest struct {
	URL          string   `json:"url"`
	Tags         []string `json:"tags"`
	CapturedAtMs int64    `json:"capturedAtMs,omitempty"`
	Probe        *struct {
		ScrollCount int `json:"scrollCount"`
		ClickCount  int `json:"clickCount"`
	} `json:"probe,omitempty"`
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	if token := s.cfg.Daemon.AuthToken; token != "" {
		if r.Header.Get("Authorization") != "Bearer "+token {
			writeError(w, http.StatusUnauthorized, "invalid or missing token")
			return
		}
	}

	if !s.limiter.Allow() {
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Daemon.MaxRequestSize)

	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	parsed, err := url.ParseRequestURI(req.URL)
	if err != nil || parsed.Host == "" {
		writeError(w, http.StatusBadRequest, "invalid url")
		return
	}

	normalized := tags.Normalize(req.Tags)
	if len(normalized) == 0 {
		writeError(w, http.StatusBadRequest, "no usable tags")
		return
	}
	if max := s.cfg.Capture.MaxTagsPerEvent; max > 0 && len(normalized) > max {
		normalized = normalized[:max]
	}

	capturedAt := req.CapturedAtMs
	if capturedAt <= 0 {
		capturedAt = time.Now().UnixMilli()
	}

	event := &storage.TagEvent{
		Day:          metrics.DayFromMillis(capturedAt),
		CapturedAtMs: capturedAt,
		Domain:       canon.Domain(req.URL),
		URLHash:      canon.Hash(req.URL),
		Tags:         normalized,
	}
	if p := req.Probe; p != nil {
		event.Probe = &storage.Probe{
			ScrollCount: p.ScrollCount,
			ClickCount:  p.ClickCount,
			Energy:      metrics.Energy(p.ScrollCount, p.ClickCount),
		}
	}

	if err := s.store.AppendEvent(r.Context(), event); err != nil {
		s.logger.Error("append event failed", "domain", event.Domain, "err", err)
		writeError(w, http.StatusInternalServerError, "store write failed")
		return
	}

	s.logger.Debug("event ingested", "domain", event.Domain, "tags", len(event.Tags))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"accepted": true,
		"day":      event.Day,
		"urlHash":  event.URLHash,
	})
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
