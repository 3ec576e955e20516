package reporting

import (
	"context"
	"fmt"
	"time"

	"github.com/raysyhuang/gemini-STST/internal/paper"
)

// Generator builds reports from the metrics aggregator.
type Generator struct {
	aggregator *paper.Aggregator
}

// NewGenerator creates a Generator.
func NewGenerator(aggregator *paper.Aggregator) *Generator {
	return &Generator{aggregator: aggregator}
}

// Generate assembles a full report as of now.
func (g *Generator) Generate(ctx context.Context, now time.Time) (*Report, error) {
	metrics, err := g.aggregator.Metrics(ctx)
	if err != nil {
		return nil, fmt.Errorf("compute metrics: %w", err)
	}

	trades, err := g.aggregator.ListTrades(ctx, "all", now)
	if err != nil {
		return nil, fmt.Errorf("list trades: %w", err)
	}

	return &Report{
		GeneratedAt: now.UTC(),
		Metrics:     metrics,
		Trades:      trades,
	}, nil
}
