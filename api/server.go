// Package api provides the HTTP REST API server for bondrisk.
//
// It exposes endpoints for portfolio valuation and yield-shock analysis,
// the running configuration, and a WebSocket feed of completed runs.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/seenimoa/bondrisk/internal/analysis/fixedincome"
	"github.com/seenimoa/bondrisk/internal/config"
	"github.com/seenimoa/bondrisk/internal/holdings"
	"github.com/seenimoa/bondrisk/internal/infra"
	"github.com/seenimoa/bondrisk/internal/portfolio"
	"github.com/seenimoa/bondrisk/pkg/models"
	"github.com/seenimoa/bondrisk/pkg/utils"
)

const (
	// maxBodyBytes caps request bodies, including CSV uploads.
	maxBodyBytes = 10 << 20
	maxRuns      = 256
)

// Options configures a Server beyond the application config.
type Options struct {
	Version    string
	ConfigFile string // path of the loaded config file, if any
	Logger     zerolog.Logger
}

// Server is the HTTP API server.
type Server struct {
	router  chi.Router
	cfg     *config.Config
	opts    Options
	log     zerolog.Logger
	wsHub   *WSHub
	runs    *infra.Cache[*AnalysisResponse]
	limiter *infra.RateLimiter // nil when unlimited
	started time.Time
}

// NewServer creates a configured API server with all routes and middleware.
func NewServer(cfg *config.Config, opts Options) *Server {
	if opts.Version == "" {
		opts.Version = "dev"
	}
	srv := &Server{
		cfg:     cfg,
		opts:    opts,
		log:     opts.Logger.With().Str("component", "api").Logger(),
		wsHub:   NewWSHub(),
		runs:    infra.NewCache[*AnalysisResponse](retention(cfg), maxRuns),
		started: time.Now(),
	}
	if cfg.API.RateLimit > 0 {
		srv.limiter = infra.PerMinute(cfg.API.RateLimit)
	}
	srv.router = srv.buildRouter()
	return srv
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ListenAndServe starts the HTTP server and shuts it down gracefully when
// ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go s.wsHub.Run(hubCtx)

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("starting HTTP server")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info().Msg("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	// CORS
	origins := []string{"*"}
	if len(s.cfg.API.CORSOrigins) > 0 {
		origins = s.cfg.API.CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", s.handleHealth)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// WebSocket feed; no timeout on long-lived connections.
		r.Get("/ws", s.handleWebSocket)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(120 * time.Second))

			r.Get("/health", s.handleHealth)
			r.Get("/config", s.handleGetConfig)
			r.Get("/runs/{runID}", s.handleGetRun)

			r.With(s.rateLimit).Post("/valuations", s.handleValuations)
			r.With(s.rateLimit).Post("/shocks", s.handleShocks)
		})
	})

	return r
}

// loggingMiddleware logs HTTP requests.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}

// rateLimit rejects analysis requests beyond the configured rate.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.Allow() {
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func retention(cfg *config.Config) time.Duration {
	if cfg.API.RunRetention > 0 {
		return cfg.API.RunRetention
	}
	return 30 * time.Minute
}

// ════════════════════════════════════════════════════════════════════
// Request / Response types
// ════════════════════════════════════════════════════════════════════

// APIResponse is the standard JSON envelope.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ValuationRequest is the JSON body for POST /api/v1/valuations.
// A bond without compounding_frequency uses the configured default.
type ValuationRequest struct {
	Bonds      []models.BondTerms `json:"bonds"`
	Convention string             `json:"convention,omitempty"` // "whole" or "fractional"
	ISINs      []string           `json:"isins,omitempty"`      // optional filter
}

// ShockRequest is the JSON body for POST /api/v1/shocks. Exactly one of
// parallel_shift_bps and per_instrument_shift_bps must be set.
type ShockRequest struct {
	ValuationRequest
	ParallelShiftBps      *int           `json:"parallel_shift_bps,omitempty"`
	PerInstrumentShiftBps map[string]int `json:"per_instrument_shift_bps,omitempty"`
	TopN                  *int           `json:"top_n,omitempty"`
}

// AnalysisResponse wraps an analysis pass with the top-N ranking.
type AnalysisResponse struct {
	*portfolio.Analysis
	Top []models.ShockResult `json:"top,omitempty"`
}

// ════════════════════════════════════════════════════════════════════
// Handlers
// ════════════════════════════════════════════════════════════════════

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]interface{}{
			"status":     "ok",
			"version":    s.opts.Version,
			"convention": s.cfg.Convention().String(),
			"uptime":     time.Since(s.started).Round(time.Second).String(),
			"time":       time.Now().UTC().Format(time.RFC3339),
			"ws_clients": s.wsHub.ClientCount(),
			"runs":       s.runs.Len(),
		},
	})
}

// handleGetRun returns a recent run by id, e.g. one announced on the
// WebSocket feed.
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	resp, ok := s.runs.Get(runID)
	if !ok {
		writeError(w, http.StatusNotFound, "run not found: "+runID)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    resp,
	})
}

func (s *Server) handleValuations(w http.ResponseWriter, r *http.Request) {
	var req ValuationRequest
	var exclusions []models.Exclusion
	if isCSV(r) {
		p, err := s.readCSVUpload(w, r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		req.Bonds, exclusions = p.Bonds, p.Exclusions
		req.Convention = r.URL.Query().Get("convention")
		req.ISINs = splitList(r.URL.Query().Get("isins"))
	} else if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	s.runAnalysis(w, r, req, exclusions, nil, 0)
}

func (s *Server) handleShocks(w http.ResponseWriter, r *http.Request) {
	var req ShockRequest
	var exclusions []models.Exclusion
	if isCSV(r) {
		p, err := s.readCSVUpload(w, r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		q := r.URL.Query()
		req.Bonds, exclusions = p.Bonds, p.Exclusions
		req.Convention = q.Get("convention")
		req.ISINs = splitList(q.Get("isins"))
		if v := q.Get("shift_bps"); v != "" {
			bps, err := strconv.Atoi(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "shift_bps must be an integer")
				return
			}
			req.ParallelShiftBps = &bps
		}
		if v := q.Get("top_n"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "top_n must be an integer")
				return
			}
			req.TopN = &n
		}
	} else if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	var sc models.ShockScenario
	switch {
	case req.ParallelShiftBps != nil && req.PerInstrumentShiftBps != nil:
		writeError(w, http.StatusBadRequest, "set either parallel_shift_bps or per_instrument_shift_bps, not both")
		return
	case req.ParallelShiftBps != nil:
		sc = models.ParallelShift(*req.ParallelShiftBps)
	case req.PerInstrumentShiftBps != nil:
		shifts, err := holdings.NormalizeShifts(req.PerInstrumentShiftBps)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		sc = models.PerInstrumentShift(shifts)
	default:
		writeError(w, http.StatusBadRequest, "parallel_shift_bps or per_instrument_shift_bps is required")
		return
	}

	topN := s.cfg.Report.TopN
	if req.TopN != nil {
		topN = *req.TopN
	}
	s.runAnalysis(w, r, req.ValuationRequest, exclusions, &sc, topN)
}

// runAnalysis validates the common request fields, runs the analyzer and
// writes the response.
func (s *Server) runAnalysis(w http.ResponseWriter, r *http.Request, req ValuationRequest, exclusions []models.Exclusion, sc *models.ShockScenario, topN int) {
	if len(req.Bonds) == 0 && len(exclusions) == 0 {
		writeError(w, http.StatusBadRequest, "bonds are required")
		return
	}

	conv := s.cfg.Convention()
	if req.Convention != "" {
		c, err := fixedincome.ParseConvention(req.Convention)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		conv = c
	}

	bonds := make([]models.BondTerms, len(req.Bonds))
	seen := make(map[string]bool, len(req.Bonds))
	for i, b := range req.Bonds {
		b.ISIN = utils.NormalizeISIN(b.ISIN)
		if b.ISIN != "" && seen[b.ISIN] {
			writeError(w, http.StatusBadRequest, "duplicate isin: "+b.ISIN)
			return
		}
		seen[b.ISIN] = true
		if b.CompoundingFrequency == 0 {
			b.CompoundingFrequency = s.cfg.Engine.Frequency
		}
		bonds[i] = b
	}
	bonds, unknown := holdings.Filter(bonds, req.ISINs)
	if len(unknown) > 0 {
		writeError(w, http.StatusBadRequest, "unknown isins: "+strings.Join(unknown, ", "))
		return
	}

	l := s.log.With().Str("request_id", middleware.GetReqID(r.Context())).Logger()
	analyzer := portfolio.NewAnalyzer(portfolio.Options{
		Convention: conv,
		Workers:    s.cfg.Engine.Workers,
		Logger:     &l,
	})

	res, err := analyzer.Run(r.Context(), bonds, sc)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusServiceUnavailable
		}
		writeError(w, status, err.Error())
		return
	}
	res.Exclusions = exclusions

	resp := AnalysisResponse{Analysis: res}
	if sc != nil {
		resp.Top = res.Ranking
		if topN > 0 && len(resp.Top) > topN {
			resp.Top = resp.Top[:topN]
		}
	}

	s.runs.Set(res.RunID, &resp)
	s.wsHub.Broadcast(WSMessage{
		Type: "analysis_complete",
		Data: runEvent(res),
	})

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    resp,
	})
}

// readCSVUpload parses a text/csv request body with the configured input
// settings. ?percent=true reads rates given in percent.
func (s *Server) readCSVUpload(w http.ResponseWriter, r *http.Request) (*holdings.Portfolio, error) {
	spot, err := s.cfg.SpotDate()
	if err != nil {
		return nil, err
	}
	if v := r.URL.Query().Get("spot_date"); v != "" {
		if spot, err = utils.ParseDate(v); err != nil {
			return nil, fmt.Errorf("spot_date: %w", err)
		}
	}
	percent, _ := strconv.ParseBool(r.URL.Query().Get("percent"))

	return holdings.Read(http.MaxBytesReader(w, r.Body, maxBodyBytes), holdings.FormatCSV, holdings.Options{
		SpotDate:         spot,
		DayCountBasis:    s.cfg.Input.DayCountBasis,
		DefaultFrequency: s.cfg.Engine.Frequency,
		PercentRates:     percent,
	})
}

// ════════════════════════════════════════════════════════════════════
// Helpers
// ════════════════════════════════════════════════════════════════════

func isCSV(r *http.Request) bool {
	return strings.HasPrefix(strings.ToLower(r.Header.Get("Content-Type")), "text/csv")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// encodeFailure is sent when a payload cannot be marshalled, for example
// because it holds a non-finite float.
var encodeFailure = []byte(`{"success":false,"error":"failed to encode response"}` + "\n")

// writeJSON marshals v before touching the response so an encoding error
// can still be reported with a 500 instead of an empty body.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Int("status", status).Msg("failed to encode JSON response")
		status, body = http.StatusInternalServerError, encodeFailure
	} else {
		body = append(body, '\n')
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		log.Warn().Err(err).Msg("failed to write JSON response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, APIResponse{
		Success: false,
		Error:   msg,
	})
}
