package api

import (
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/raysyhuang/gemini-STST/internal/domain"
)

// Cross-engine result contract constants.
const (
	engineName    = "gemini_stst"
	engineVersion = "7.0"

	momentumStopMult  = 3.5
	momentumHoldDays  = 10
	reversionHoldDays = 3

	defaultConfidence = 50.0
)

// EnginePick is one standardized candidate for cross-engine consumers.
type EnginePick struct {
	Ticker            string         `json:"ticker"`
	Strategy          string         `json:"strategy"`
	EntryPrice        float64        `json:"entry_price"`
	StopLoss          *float64       `json:"stop_loss"`
	TargetPrice       *float64       `json:"target_price"`
	Confidence        float64        `json:"confidence"`
	HoldingPeriodDays int            `json:"holding_period_days"`
	Thesis            *string        `json:"thesis"`
	RiskFactors       []string       `json:"risk_factors"`
	RawScore          *float64       `json:"raw_score"`
	Metadata          map[string]any `json:"metadata"`
}

// EngineResultPayload is the standardized /api/engine/results response.
type EngineResultPayload struct {
	EngineName         string       `json:"engine_name"`
	EngineVersion      string       `json:"engine_version"`
	RunDate            string       `json:"run_date"`
	RunTimestamp       string       `json:"run_timestamp"`
	Regime             string       `json:"regime,omitempty"`
	Picks              []EnginePick `json:"picks"`
	CandidatesScreened int          `json:"candidates_screened"`
	Status             string       `json:"status"`
}

// handleEngineResults publishes the latest screen in the standardized
// cross-engine format. Momentum risk is managed with a Chandelier trailing
// stop in-engine, but the contract requires an explicit stop price, so a
// conservative fixed-stop proxy is derived from ATR%.
func (s *Server) handleEngineResults(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	asOf, ok, err := s.latestSignalDate(ctx)
	if err != nil {
		s.internalError(w, "latest signal date", err)
		return
	}
	if !ok {
		asOf = domain.Day(time.Now().UTC())
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

	picks := make([]EnginePick, 0, len(momentum)+len(reversion))
	for _, sig := range momentum {
		symbol, err := s.symbolFor(ctx, sig.TickerID)
		if err != nil {
			s.internalError(w, "resolve ticker", err)
			return
		}
		picks = append(picks, momentumPick(symbol, sig))
	}
	for _, sig := range reversion {
		symbol, err := s.symbolFor(ctx, sig.TickerID)
		if err != nil {
			s.internalError(w, "resolve ticker", err)
			return
		}
		picks = append(picks, reversionPick(symbol, sig))
	}

	regime, err := s.screener.Regime(ctx, asOf)
	if err != nil {
		s.internalError(w, "market regime", err)
		return
	}

	writeJSON(w, http.StatusOK, EngineResultPayload{
		EngineName:         engineName,
		EngineVersion:      engineVersion,
		RunDate:            asOf.Format("2006-01-02"),
		RunTimestamp:       time.Now().UTC().Format(time.RFC3339),
		Regime:             strings.ToLower(regime.Regime),
		Picks:              picks,
		CandidatesScreened: len(picks),
		Status:             "success",
	})
}

func momentumPick(symbol string, sig *domain.MomentumSignal) EnginePick {
	pick := EnginePick{
		Ticker:            symbol,
		Strategy:          "momentum",
		EntryPrice:        sig.TriggerPrice,
		StopLoss:          momentumProxyStop(sig.TriggerPrice, sig.ATRPctAtTrigger),
		TargetPrice:       targetPrice(sig.TriggerPrice),
		Confidence:        confidenceOf(sig.Quality),
		HoldingPeriodDays: momentumHoldDays,
		RawScore:          sig.Quality,
		RiskFactors:       []string{},
		Metadata: map[string]any{
			"rvol":        sig.RVOLAtTrigger,
			"atr_pct":     sig.ATRPctAtTrigger,
			"stop_method": "chandelier_proxy",
		},
	}
	if sig.RVOLAtTrigger > 0 && sig.ATRPctAtTrigger > 0 {
		thesis := fmt.Sprintf("RVOL=%.1fx, ATR%%=%.1f%%", sig.RVOLAtTrigger, sig.ATRPctAtTrigger)
		pick.Thesis = &thesis
	}
	return pick
}

func reversionPick(symbol string, sig *domain.ReversionSignal) EnginePick {
	pick := EnginePick{
		Ticker:            symbol,
		Strategy:          "mean_reversion",
		EntryPrice:        sig.TriggerPrice,
		StopLoss:          reversionProxyStop(sig.TriggerPrice),
		TargetPrice:       targetPrice(sig.TriggerPrice),
		Confidence:        confidenceOf(sig.Quality),
		HoldingPeriodDays: reversionHoldDays,
		RawScore:          sig.Quality,
		RiskFactors:       []string{},
		Metadata: map[string]any{
			"rsi2":             sig.RSI2AtTrigger,
			"drawdown_3d_pct":  sig.Drawdown3DPct,
			"sma_distance_pct": sig.SMADistancePct,
		},
	}
	if sig.RSI2AtTrigger > 0 && sig.Drawdown3DPct != 0 {
		thesis := fmt.Sprintf("RSI2=%.1f, DD3d=%.1f%%", sig.RSI2AtTrigger, sig.Drawdown3DPct)
		pick.Thesis = &thesis
	}
	return pick
}

// momentumProxyStop derives a fixed initial stop from the trailing-stop
// model: trail fraction clamped to [4%, 20%], 10% when ATR% is unusable.
func momentumProxyStop(entryPrice, atrPct float64) *float64 {
	if entryPrice <= 0 {
		return nil
	}

	trail := 0.10
	if atrPct > 0 {
		trail = momentumStopMult * atrPct / (math.Sqrt(5) * 100.0)
		trail = math.Max(0.04, math.Min(0.20, trail))
	}

	stop := round2(entryPrice * (1 - trail))
	return &stop
}

func reversionProxyStop(entryPrice float64) *float64 {
	if entryPrice <= 0 {
		return nil
	}
	stop := round2(entryPrice * 0.95)
	return &stop
}

func targetPrice(entryPrice float64) *float64 {
	if entryPrice <= 0 {
		return nil
	}
	target := round2(entryPrice * 1.10)
	return &target
}

func confidenceOf(quality *float64) float64 {
	if quality == nil || *quality == 0 {
		return defaultConfidence
	}
	return *quality
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
