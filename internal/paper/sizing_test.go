package paper

import (
	"testing"
	"time"

	"github.com/raysyhuang/gemini-STST/internal/domain"
)

func TestPositionSize_VolatilityScaling(t *testing.T) {
	date := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		atrPct float64
		want   float64
	}{
		{"at the cap boundary", 5.0, 2000},   // 0.01/0.05 = 0.20
		{"mid range", 10.0, 1000},            // 0.01/0.10 = 0.10
		{"at the floor boundary", 20.0, 500}, // 0.01/0.20 = 0.05
		{"clamped to cap", 2.0, 2000},        // raw 0.50 → 0.20
		{"clamped to floor", 40.0, 500},      // raw 0.025 → 0.05
		{"fractional result", 8.0, 1250},     // 0.0125
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig := &domain.MomentumSignal{TickerID: 1, Date: date, ATRPctAtTrigger: tt.atrPct}
			if got := PositionSize(sig); got != tt.want {
				t.Errorf("PositionSize(atr=%.1f) = %f, want %f", tt.atrPct, got, tt.want)
			}
		})
	}
}

func TestPositionSize_NoVolatilityReading(t *testing.T) {
	date := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

	// Reversion signals carry no ATR, so sizing uses the default fraction.
	rev := &domain.ReversionSignal{TickerID: 1, Date: date, RSI2AtTrigger: 4}
	if got := PositionSize(rev); got != 1000 {
		t.Errorf("Reversion PositionSize = %f, want 1000", got)
	}

	// A momentum signal with a zero ATR reading gets the same treatment.
	mom := &domain.MomentumSignal{TickerID: 1, Date: date, ATRPctAtTrigger: 0}
	if got := PositionSize(mom); got != 1000 {
		t.Errorf("Zero-ATR PositionSize = %f, want 1000", got)
	}
}
