// Package api exposes the screener, paper engine, and pipeline over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/raysyhuang/gemini-STST/internal/backtest"
	"github.com/raysyhuang/gemini-STST/internal/domain"
	"github.com/raysyhuang/gemini-STST/internal/observability"
	"github.com/raysyhuang/gemini-STST/internal/orchestrator"
	"github.com/raysyhuang/gemini-STST/internal/paper"
	"github.com/raysyhuang/gemini-STST/internal/screener"
	"github.com/raysyhuang/gemini-STST/internal/storage"
)

// Server wires the HTTP handlers to the domain components.
type Server struct {
	orch       *orchestrator.Orchestrator
	runState   *orchestrator.RunState
	screener   *screener.Screener
	backtester *backtest.Engine
	aggregator *paper.Aggregator

	tickers storage.TickerStore
	signals storage.SignalStore

	// engineKey guards POST /api/pipeline/run. Empty disables the check.
	engineKey string

	log zerolog.Logger
}

// Options for creating a Server.
type Options struct {
	Orchestrator *orchestrator.Orchestrator
	RunState     *orchestrator.RunState
	Screener     *screener.Screener
	Backtester   *backtest.Engine
	Aggregator   *paper.Aggregator
	Tickers      storage.TickerStore
	Signals      storage.SignalStore
	EngineKey    string
	Log          zerolog.Logger
}

// NewServer creates a Server.
func NewServer(opts Options) *Server {
	return &Server{
		orch:       opts.Orchestrator,
		runState:   opts.RunState,
		screener:   opts.Screener,
		backtester: opts.Backtester,
		aggregator: opts.Aggregator,
		tickers:    opts.Tickers,
		signals:    opts.Signals,
		engineKey:  opts.EngineKey,
		log:        opts.Log,
	}
}

// Handler returns the routed HTTP handler for the service.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", observability.Handler())

	mux.HandleFunc("GET /api/screener/today", s.handleScreenerToday)
	mux.HandleFunc("GET /api/paper/trades", s.handlePaperTrades)
	mux.HandleFunc("GET /api/paper/metrics", s.handlePaperMetrics)
	mux.HandleFunc("GET /api/backtest/{ticker}", s.handleBacktest)
	mux.HandleFunc("GET /api/engine/results", s.handleEngineResults)
	mux.HandleFunc("POST /api/pipeline/run", s.handlePipelineRun)
	mux.HandleFunc("GET /api/pipeline/status", s.handlePipelineStatus)

	return mux
}

// momentumSignalView is the wire shape of a momentum signal.
type momentumSignalView struct {
	Ticker       string   `json:"ticker"`
	Date         string   `json:"date"`
	TriggerPrice float64  `json:"trigger_price"`
	RVOL         float64  `json:"rvol_at_trigger"`
	ATRPct       float64  `json:"atr_pct_at_trigger"`
	Quality      *float64 `json:"quality_score"`
}

// reversionSignalView is the wire shape of a reversion signal.
type reversionSignalView struct {
	Ticker       string   `json:"ticker"`
	Date         string   `json:"date"`
	TriggerPrice float64  `json:"trigger_price"`
	RSI2         float64  `json:"rsi2_at_trigger"`
	Drawdown3D   float64  `json:"drawdown_3d_pct"`
	SMADistance  float64  `json:"sma_distance_pct"`
	Quality      *float64 `json:"quality_score"`
}

type screenerTodayResponse struct {
	Date      string                `json:"date"`
	Regime    domain.MarketRegime   `json:"regime"`
	Momentum  []momentumSignalView  `json:"momentum"`
	Reversion []reversionSignalView `json:"reversion"`
}

// handleScreenerToday returns the most recent day's signals. The latest
// stored signal date is used rather than the server-local day so that a
// request after midnight still sees yesterday's screen.
func (s *Server) handleScreenerToday(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	asOf, ok, err := s.latestSignalDate(ctx)
	if err != nil {
		s.internalError(w, "latest signal date", err)
		return
	}
	if !ok {
		asOf = domain.Day(time.Now().UTC())
	}

	regime, err := s.screener.Regime(ctx, asOf)
	if err != nil {
		s.internalError(w, "market regime", err)
		return
	}

	momentum, err := s.signals.MomentumByDate(ctx, asOf)
	if err != nil {
		s.internalError(w, "momentum signals", err)
		return
	}
	reversion, err := s.signals.ReversionByDate(ctx, asOf)
	if err != nil {
		s.internalError(w, "reversion signals", err)
		return
	}

	resp := screenerTodayResponse{
		Date:      asOf.Format("2006-01-02"),
		Regime:    regime,
		Momentum:  make([]momentumSignalView, 0, len(momentum)),
		Reversion: make([]reversionSignalView, 0, len(reversion)),
	}
	for _, sig := range momentum {
		symbol, err := s.symbolFor(ctx, sig.TickerID)
		if err != nil {
			s.internalError(w, "resolve ticker", err)
			return
		}
		resp.Momentum = append(resp.Momentum, momentumSignalView{
			Ticker:       symbol,
			Date:         sig.Date.Format("2006-01-02"),
			TriggerPrice: sig.TriggerPrice,
			RVOL:         sig.RVOLAtTrigger,
			ATRPct:       sig.ATRPctAtTrigger,
			Quality:      sig.Quality,
		})
	}
	for _, sig := range reversion {
		symbol, err := s.symbolFor(ctx, sig.TickerID)
		if err != nil {
			s.internalError(w, "resolve ticker", err)
			return
		}
		resp.Reversion = append(resp.Reversion, reversionSignalView{
			Ticker:       symbol,
			Date:         sig.Date.Format("2006-01-02"),
			TriggerPrice: sig.TriggerPrice,
			RSI2:         sig.RSI2AtTrigger,
			Drawdown3D:   sig.Drawdown3DPct,
			SMADistance:  sig.SMADistancePct,
			Quality:      sig.Quality,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

// handlePaperTrades lists paper trades, optionally filtered by
// ?status=pending|open|closed. Omitted or "all" returns everything.
func (s *Server) handlePaperTrades(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	switch status {
	case "", "all", string(domain.StatusPending), string(domain.StatusOpen), string(domain.StatusClosed):
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown status %q", status))
		return
	}

	trades, err := s.aggregator.ListTrades(r.Context(), status, time.Now().UTC())
	if err != nil {
		s.internalError(w, "list trades", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"count":  len(trades),
		"trades": trades,
	})
}

func (s *Server) handlePaperMetrics(w http.ResponseWriter, r *http.Request) {
	report, err := s.aggregator.Metrics(r.Context())
	if err != nil {
		s.internalError(w, "aggregate metrics", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleBacktest(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(r.PathValue("ticker"))

	result, err := s.backtester.RunSymbol(r.Context(), symbol, time.Now().UTC(), backtest.DefaultYearsBack)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown ticker %q", symbol))
		return
	case errors.Is(err, backtest.ErrInsufficientData):
		writeError(w, http.StatusUnprocessableEntity, fmt.Sprintf("not enough history for %q", symbol))
		return
	case err != nil:
		s.internalError(w, "run backtest", err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

type pipelineRunResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	RunID   string `json:"run_id"`
	Date    string `json:"date"`
}

// handlePipelineRun triggers the daily pipeline in the background. Exactly
// one run may be in flight; a second trigger reports the active run instead
// of starting another.
func (s *Server) handlePipelineRun(w http.ResponseWriter, r *http.Request) {
	if s.engineKey != "" && r.Header.Get("X-Engine-Key") != s.engineKey {
		writeError(w, http.StatusForbidden, "invalid API key")
		return
	}

	runDate := domain.Day(time.Now().UTC())

	runID, started := s.runState.TryStart()
	if !started {
		writeJSON(w, http.StatusAccepted, pipelineRunResponse{
			Status:  "accepted",
			Message: "Pipeline already running",
			RunID:   runID,
			Date:    runDate.Format("2006-01-02"),
		})
		return
	}

	s.log.Info().Str("run_id", runID).Msg("accepted pipeline run request")

	// Detach from the request context so the run survives the response.
	go func() {
		_, err := s.orch.Run(context.Background(), runDate)
		s.runState.Finish(err)
		if err != nil {
			s.log.Error().Err(err).Str("run_id", runID).Msg("pipeline run failed")
		}
	}()

	writeJSON(w, http.StatusAccepted, pipelineRunResponse{
		Status:  "accepted",
		Message: "Pipeline scheduled",
		RunID:   runID,
		Date:    runDate.Format("2006-01-02"),
	})
}

func (s *Server) handlePipelineStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.runState.Snapshot())
}

// latestSignalDate returns the newest date carrying a signal of either
// strategy. ok=false when no signals exist at all.
func (s *Server) latestSignalDate(ctx context.Context) (time.Time, bool, error) {
	var latest time.Time
	var found bool

	for _, strategy := range []domain.Strategy{domain.StrategyMomentum, domain.StrategyReversion} {
		date, err := s.signals.LatestSignalDate(ctx, strategy)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return time.Time{}, false, fmt.Errorf("latest %s signal date: %w", strategy, err)
		}
		if !found || date.After(latest) {
			latest = date
		}
		found = true
	}

	return latest, found, nil
}

func (s *Server) symbolFor(ctx context.Context, tickerID int64) (string, error) {
	ticker, err := s.tickers.GetByID(ctx, tickerID)
	if err != nil {
		return "", fmt.Errorf("ticker %d: %w", tickerID, err)
	}
	return ticker.Symbol, nil
}

func (s *Server) internalError(w http.ResponseWriter, what string, err error) {
	s.log.Error().Err(err).Msg(what)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, detail string) {
	writeJSON(w, code, map[string]string{"detail": detail})
}
