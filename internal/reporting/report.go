// Package reporting renders paper-trading performance into markdown and CSV
// artifacts.
package reporting

import (
	"time"

	"github.com/raysyhuang/gemini-STST/internal/domain"
)

// Report is a point-in-time performance snapshot: portfolio metrics plus the
// full trade log, newest first.
type Report struct {
	GeneratedAt time.Time
	Metrics     *domain.MetricsReport
	Trades      []*domain.TradeView
}
