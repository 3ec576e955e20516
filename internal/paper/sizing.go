package paper

import "github.com/raysyhuang/gemini-STST/internal/domain"

// PositionSize computes the dollar size for a trade from the signal's
// volatility reading. The account fraction scales inversely with projected
// weekly volatility and is clamped to [MinSizeFrac, MaxSizeFrac]; signals
// without a volatility reading get DefaultSizeFrac.
//
// A signal at exactly TargetRisk/MaxSizeFrac volatility (5% weekly) takes
// the full cap; anything above 20% weekly sits on the floor.
func PositionSize(sig domain.Signal) float64 {
	frac := DefaultSizeFrac
	if atrPct, ok := sig.VolatilityPct(); ok && atrPct > 0 {
		frac = TargetRisk / (atrPct / 100)
		if frac < MinSizeFrac {
			frac = MinSizeFrac
		}
		if frac > MaxSizeFrac {
			frac = MaxSizeFrac
		}
	}
	return round2(AccountSize * frac)
}
