package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sift/sift/internal/config"
	"github.com/sift/sift/internal/logging"
	"github.com/sift/sift/internal/observability"
	"github.com/sift/sift/internal/policy"
	"github.com/sift/sift/internal/ratelimit"
	"github.com/sift/sift/internal/rules"
)

const (
	limiterIdle      = 10 * time.Minute
	limiterSweepTick = time.Minute
)

// Options wires a Server to its collaborators. Only Holder is required.
type Options struct {
	Holder       *rules.Holder
	Policy       config.PolicyConfig
	MaxBodyBytes int64
	Limiter      *ratelimit.Limiter
	Findings     *logging.FindingLog
	Metrics      *observability.Metrics
	// Registry is served on /metrics when set.
	Registry *prometheus.Registry
	Logger   *slog.Logger
	Now      func() time.Time
}

type Server struct {
	opts   Options
	router *httprouter.Router
}

type scanResponse struct {
	ScanID    string        `json:"scan_id"`
	Score     int           `json:"score"`
	Verdict   string        `json:"verdict"`
	Matches   []rules.Match `json:"matches"`
	Truncated []string      `json:"truncated,omitempty"`
}

func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Server{opts: opts, router: httprouter.New()}
	s.router.POST("/v1/scan", s.handleScan)
	s.router.GET("/v1/rules", s.handleRules)
	s.router.GET("/healthz", s.handleHealth)
	if opts.Registry != nil {
		s.router.Handler(http.MethodGet, "/metrics", opts.Metrics.Handler(opts.Registry))
	}
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// SweepLimiter evicts idle rate limit buckets until ctx is done.
func (s *Server) SweepLimiter(ctx context.Context) {
	if s.opts.Limiter == nil {
		return
	}
	ticker := time.NewTicker(limiterSweepTick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.opts.Limiter.Sweep(limiterIdle, s.opts.Now()); n > 0 {
				s.opts.Logger.Debug("rate limit buckets evicted", "count", n)
			}
		}
	}
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	start := s.opts.Now()

	if !s.opts.Limiter.Allow(clientIP(r), start) {
		s.opts.Metrics.ObserveRateLimited()
		http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
		return
	}

	engine := s.opts.Holder.Load()
	if engine == nil {
		http.Error(w, "no rules loaded", http.StatusServiceUnavailable)
		return
	}

	if limit := s.opts.MaxBodyBytes; limit > 0 {
		if r.ContentLength > limit {
			http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, limit)
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "read body failed", http.StatusBadRequest)
		return
	}

	result := engine.EvaluateRules(string(body), ruleFilter(r))
	verdict := policy.Decide(s.opts.Policy.Mode, result.Score, s.opts.Policy.Threshold)

	scanID := logging.NewScanID()
	elapsed := s.opts.Now().Sub(start)
	s.opts.Metrics.ObserveScan("http", string(verdict), result, elapsed)
	if err := s.opts.Findings.Write(logging.FromResult(scanID, "http:"+clientIP(r), string(verdict), result, start.UTC())...); err != nil {
		s.opts.Logger.Error("write findings failed", "scan_id", scanID, "err", err)
	}
	s.opts.Logger.Debug("scan",
		"scan_id", scanID,
		"bytes", result.Bytes,
		"score", result.Score,
		"verdict", verdict,
		"matches", len(result.Matches),
		"duration", elapsed,
	)

	matches := result.Matches
	if matches == nil {
		matches = []rules.Match{}
	}
	writeJSON(w, http.StatusOK, scanResponse{
		ScanID:    scanID,
		Score:     result.Score,
		Verdict:   string(verdict),
		Matches:   matches,
		Truncated: result.Truncated,
	})
}

func (s *Server) handleRules(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	engine := s.opts.Holder.Load()
	if engine == nil {
		http.Error(w, "no rules loaded", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, engine.Info())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	status, code := "ok", http.StatusOK
	if s.opts.Holder.Load() == nil {
		status, code = "loading", http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]string{"status": status})
}

func writeJSON(w http.ResponseWriter, code int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(value)
}

// ruleFilter reads ?rules=a,b. Repeated parameters are merged.
func ruleFilter(r *http.Request) []string {
	var ids []string
	for _, raw := range r.URL.Query()["rules"] {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
	}
	return ids
}

func clientIP(r *http.Request) string {
	if r == nil {
		return ""
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}
	return r.RemoteAddr
}
