package paper

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/raysyhuang/gemini-STST/internal/domain"
	"github.com/raysyhuang/gemini-STST/internal/storage/memory"
)

var errStoreDown = errors.New("store unavailable")

// haltingTradeStore fails bulk commits on demand while behaving normally
// otherwise, for exercising the all-or-nothing lifecycle phases.
type haltingTradeStore struct {
	*memory.TradeStore
	failBulk bool
}

func (s *haltingTradeStore) InsertBulk(ctx context.Context, trades []*domain.PaperTrade) error {
	if s.failBulk {
		return errStoreDown
	}
	return s.TradeStore.InsertBulk(ctx, trades)
}

func (s *haltingTradeStore) UpdateBulk(ctx context.Context, trades []*domain.PaperTrade) error {
	if s.failBulk {
		return errStoreDown
	}
	return s.TradeStore.UpdateBulk(ctx, trades)
}

type lifecycleFixture struct {
	trades  *memory.TradeStore
	bars    *memory.BarStore
	creator *Creator
	filler  *Filler
	monitor *Monitor
}

func newLifecycleFixture() *lifecycleFixture {
	trades := memory.NewTradeStore()
	bars := memory.NewBarStore()
	stops := NewStopCalculator(bars)
	log := zerolog.Nop()
	return &lifecycleFixture{
		trades:  trades,
		bars:    bars,
		creator: NewCreator(trades, log),
		filler:  NewFiller(trades, bars, stops, log),
		monitor: NewMonitor(trades, bars, stops, log),
	}
}

func TestCreatePendingTrades_Dedup(t *testing.T) {
	f := newLifecycleFixture()
	ctx := context.Background()

	signals := []domain.Signal{
		&domain.MomentumSignal{TickerID: 1, Date: day(2024, 3, 4), TriggerPrice: 50, ATRPctAtTrigger: 10},
		&domain.MomentumSignal{TickerID: 2, Date: day(2024, 3, 4), TriggerPrice: 20, ATRPctAtTrigger: 8},
	}

	created, err := f.creator.CreatePendingTrades(ctx, signals)
	if err != nil {
		t.Fatalf("CreatePendingTrades failed: %v", err)
	}
	if created != 2 {
		t.Fatalf("created = %d, want 2", created)
	}

	// Re-running the same signals creates nothing.
	created, err = f.creator.CreatePendingTrades(ctx, signals)
	if err != nil {
		t.Fatalf("Second CreatePendingTrades failed: %v", err)
	}
	if created != 0 {
		t.Errorf("created on rerun = %d, want 0", created)
	}

	// Same ticker and date under the other strategy is a new trade.
	created, err = f.creator.CreatePendingTrades(ctx, []domain.Signal{
		&domain.ReversionSignal{TickerID: 1, Date: day(2024, 3, 4), TriggerPrice: 50, RSI2AtTrigger: 5},
	})
	if err != nil {
		t.Fatalf("Reversion CreatePendingTrades failed: %v", err)
	}
	if created != 1 {
		t.Errorf("reversion created = %d, want 1", created)
	}

	all, _ := f.trades.ListAll(ctx)
	if len(all) != 3 {
		t.Errorf("total trades = %d, want 3", len(all))
	}
	for _, tr := range all {
		if tr.Status != domain.StatusPending {
			t.Errorf("trade %d status = %s, want pending", tr.ID, tr.Status)
		}
	}
}

func TestCreatePendingTrades_SizingAndQuality(t *testing.T) {
	f := newLifecycleFixture()
	ctx := context.Background()

	quality := 81.5
	created, err := f.creator.CreatePendingTrades(ctx, []domain.Signal{
		&domain.MomentumSignal{TickerID: 1, Date: day(2024, 3, 4), ATRPctAtTrigger: 10, Quality: &quality},
	})
	if err != nil || created != 1 {
		t.Fatalf("CreatePendingTrades = (%d, %v), want (1, nil)", created, err)
	}

	trade, err := f.trades.FindByNaturalKey(ctx, 1, day(2024, 3, 4), domain.StrategyMomentum)
	if err != nil {
		t.Fatalf("FindByNaturalKey failed: %v", err)
	}
	if trade.PositionSize != 1000 {
		t.Errorf("PositionSize = %f, want 1000", trade.PositionSize)
	}
	if trade.QualityScore == nil || *trade.QualityScore != 81.5 {
		t.Error("QualityScore not carried onto the trade")
	}
}

func TestFillPendingTrades_MomentumEntry(t *testing.T) {
	f := newLifecycleFixture()
	ctx := context.Background()

	// Trade history thin on purpose: the stop uses the flat fallback.
	signalDate := day(2024, 3, 4)
	if _, err := f.creator.CreatePendingTrades(ctx, []domain.Signal{
		&domain.MomentumSignal{TickerID: 1, Date: signalDate, ATRPctAtTrigger: 10},
	}); err != nil {
		t.Fatal(err)
	}

	// No bar after the signal yet: stays pending.
	filled, err := f.filler.FillPendingTrades(ctx)
	if err != nil {
		t.Fatalf("FillPendingTrades failed: %v", err)
	}
	if filled != 0 {
		t.Fatalf("filled without data = %d, want 0", filled)
	}

	// T+1 bar arrives.
	nextDay := day(2024, 3, 5)
	if err := f.bars.UpsertBulk(ctx, []*domain.DailyBar{
		{TickerID: 1, Date: nextDay, Open: 50.0, High: 51.5, Low: 49.5, Close: 51.0, Volume: 2_000_000},
	}); err != nil {
		t.Fatal(err)
	}

	filled, err = f.filler.FillPendingTrades(ctx)
	if err != nil {
		t.Fatalf("FillPendingTrades failed: %v", err)
	}
	if filled != 1 {
		t.Fatalf("filled = %d, want 1", filled)
	}

	trade, _ := f.trades.FindByNaturalKey(ctx, 1, signalDate, domain.StrategyMomentum)
	if trade.Status != domain.StatusOpen {
		t.Fatalf("status = %s, want open", trade.Status)
	}
	if *trade.EntryPrice != 50.1 { // 50.0 * 1.002
		t.Errorf("EntryPrice = %f, want 50.1", *trade.EntryPrice)
	}
	if *trade.Shares != 19.9601 { // round4(1000 / 50.1)
		t.Errorf("Shares = %f, want 19.9601", *trade.Shares)
	}
	if !trade.EntryDate.Equal(nextDay) {
		t.Errorf("EntryDate = %v, want %v", trade.EntryDate, nextDay)
	}
	if *trade.HighestHighSinceEntry != 51.5 {
		t.Errorf("HighestHigh = %f, want 51.5", *trade.HighestHighSinceEntry)
	}
	if *trade.StopLevel != 46.35 { // 51.5 * 0.90, thin history fallback
		t.Errorf("StopLevel = %f, want 46.35", *trade.StopLevel)
	}
	// No future bars: calendar fallback, ceil(7 * 1.5) = 11 days after entry.
	if !trade.PlannedExitDate.Equal(day(2024, 3, 16)) {
		t.Errorf("PlannedExitDate = %v, want 2024-03-16", trade.PlannedExitDate)
	}

	// Idempotent: nothing left to fill.
	filled, err = f.filler.FillPendingTrades(ctx)
	if err != nil || filled != 0 {
		t.Errorf("refill = (%d, %v), want (0, nil)", filled, err)
	}
}

func TestFillPendingTrades_ReversionStopAndExit(t *testing.T) {
	f := newLifecycleFixture()
	ctx := context.Background()

	signalDate := day(2024, 3, 4)
	if _, err := f.creator.CreatePendingTrades(ctx, []domain.Signal{
		&domain.ReversionSignal{TickerID: 1, Date: signalDate, RSI2AtTrigger: 4},
	}); err != nil {
		t.Fatal(err)
	}

	entryDay := day(2024, 3, 5)
	bars := []*domain.DailyBar{
		{TickerID: 1, Date: entryDay, Open: 40.0, High: 41.0, Low: 39.5, Close: 40.5, Volume: 1_000_000},
	}
	// Five future trading days exist, so the planned exit is the 5th.
	for i := 1; i <= 5; i++ {
		bars = append(bars, &domain.DailyBar{
			TickerID: 1, Date: entryDay.AddDate(0, 0, i),
			Open: 40, High: 41, Low: 39, Close: 40, Volume: 1_000_000,
		})
	}
	if err := f.bars.UpsertBulk(ctx, bars); err != nil {
		t.Fatal(err)
	}

	filled, err := f.filler.FillPendingTrades(ctx)
	if err != nil || filled != 1 {
		t.Fatalf("FillPendingTrades = (%d, %v), want (1, nil)", filled, err)
	}

	trade, _ := f.trades.FindByNaturalKey(ctx, 1, signalDate, domain.StrategyReversion)
	if *trade.EntryPrice != 40.08 { // 40.0 * 1.002
		t.Errorf("EntryPrice = %f, want 40.08", *trade.EntryPrice)
	}
	if *trade.StopLevel != 38.076 { // 40.08 * 0.95
		t.Errorf("StopLevel = %f, want 38.076", *trade.StopLevel)
	}
	if !trade.PlannedExitDate.Equal(day(2024, 3, 10)) {
		t.Errorf("PlannedExitDate = %v, want 2024-03-10 (5th trading day)", trade.PlannedExitDate)
	}
}

func TestCheckOpenTrades_StopPreemptsTimeExit(t *testing.T) {
	f := newLifecycleFixture()
	ctx := context.Background()

	// Open momentum trade with the stop and a lapsed planned exit both
	// triggerable today. The stop must win.
	entryDate := day(2024, 3, 5)
	stop := 93.79
	hh := 103.0
	entryPrice := 100.2
	shares := 9.98
	planned := day(2024, 3, 14)
	trade := &domain.PaperTrade{
		TickerID:              1,
		Strategy:              domain.StrategyMomentum,
		SignalDate:            day(2024, 3, 4),
		PositionSize:          1000,
		Status:                domain.StatusOpen,
		EntryDate:             &entryDate,
		EntryPrice:            &entryPrice,
		Shares:                &shares,
		HighestHighSinceEntry: &hh,
		StopLevel:             &stop,
		PlannedExitDate:       &planned,
	}
	if err := f.trades.Insert(ctx, trade); err != nil {
		t.Fatal(err)
	}

	checkDate := day(2024, 3, 15)
	if err := f.bars.UpsertBulk(ctx, []*domain.DailyBar{
		{TickerID: 1, Date: checkDate, Open: 99, High: 101.0, Low: 93.0, Close: 100.0, Volume: 1},
	}); err != nil {
		t.Fatal(err)
	}

	closed, err := f.monitor.CheckOpenTrades(ctx, checkDate)
	if err != nil {
		t.Fatalf("CheckOpenTrades failed: %v", err)
	}
	if closed != 1 {
		t.Fatalf("closed = %d, want 1", closed)
	}

	got, _ := f.trades.GetByID(ctx, trade.ID)
	if got.Status != domain.StatusClosed {
		t.Fatalf("status = %s, want closed", got.Status)
	}
	if *got.ExitReason != domain.ExitReasonTrailingStop {
		t.Errorf("ExitReason = %s, want trailing_stop", *got.ExitReason)
	}
	if *got.ExitPrice != 93.79 {
		t.Errorf("ExitPrice = %f, want 93.79 (stop level, not close)", *got.ExitPrice)
	}
	// The pre-update highest high stands: the stop fired before any
	// trailing ratchet could see today's bar.
	if *got.HighestHighSinceEntry != 103.0 {
		t.Errorf("HighestHigh = %f, want 103.0", *got.HighestHighSinceEntry)
	}
}

func TestCheckOpenTrades_TrailingRatchet(t *testing.T) {
	f := newLifecycleFixture()
	ctx := context.Background()

	entryDate := day(2024, 3, 5)
	// Constant-range history ending at entry: trail fraction is 4%.
	seedConstantRangeBars(t, f.bars, 1, entryDate, 20, 100)

	stop := 96.96 // 101 * 0.96
	hh := 101.0
	entryPrice := 100.2
	shares := 9.98
	planned := day(2024, 3, 20)
	trade := &domain.PaperTrade{
		TickerID:              1,
		Strategy:              domain.StrategyMomentum,
		SignalDate:            day(2024, 3, 4),
		PositionSize:          1000,
		Status:                domain.StatusOpen,
		EntryDate:             &entryDate,
		EntryPrice:            &entryPrice,
		Shares:                &shares,
		HighestHighSinceEntry: &hh,
		StopLevel:             &stop,
		PlannedExitDate:       &planned,
	}
	if err := f.trades.Insert(ctx, trade); err != nil {
		t.Fatal(err)
	}

	// New high, low comfortably above the stop.
	checkDate := day(2024, 3, 6)
	if err := f.bars.UpsertBulk(ctx, []*domain.DailyBar{
		{TickerID: 1, Date: checkDate, Open: 101, High: 110.0, Low: 100.0, Close: 108.0, Volume: 1},
	}); err != nil {
		t.Fatal(err)
	}

	closed, err := f.monitor.CheckOpenTrades(ctx, checkDate)
	if err != nil {
		t.Fatalf("CheckOpenTrades failed: %v", err)
	}
	if closed != 0 {
		t.Fatalf("closed = %d, want 0", closed)
	}

	got, _ := f.trades.GetByID(ctx, trade.ID)
	if got.Status != domain.StatusOpen {
		t.Fatalf("status = %s, want open", got.Status)
	}
	if *got.HighestHighSinceEntry != 110.0 {
		t.Errorf("HighestHigh = %f, want 110.0", *got.HighestHighSinceEntry)
	}
	// ATR window still ends at entry, so the trail stays 4%: 110 * 0.96.
	if *got.StopLevel != 105.6 {
		t.Errorf("StopLevel = %f, want 105.6", *got.StopLevel)
	}

	// A lower high the next day leaves both untouched.
	nextDate := day(2024, 3, 7)
	if err := f.bars.UpsertBulk(ctx, []*domain.DailyBar{
		{TickerID: 1, Date: nextDate, Open: 108, High: 109.0, Low: 106.0, Close: 107.0, Volume: 1},
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.monitor.CheckOpenTrades(ctx, nextDate); err != nil {
		t.Fatal(err)
	}
	got, _ = f.trades.GetByID(ctx, trade.ID)
	if *got.HighestHighSinceEntry != 110.0 || *got.StopLevel != 105.6 {
		t.Error("ratchet moved on a lower high")
	}
}

func TestCheckOpenTrades_TimeExitAndPnL(t *testing.T) {
	f := newLifecycleFixture()
	ctx := context.Background()

	entryDate := day(2024, 3, 5)
	stop := 38.076
	hh := 41.0
	entryPrice := 40.08
	shares := 24.9501 // round4(1000 / 40.08)
	planned := day(2024, 3, 12)
	trade := &domain.PaperTrade{
		TickerID:              1,
		Strategy:              domain.StrategyReversion,
		SignalDate:            day(2024, 3, 4),
		PositionSize:          1000,
		Status:                domain.StatusOpen,
		EntryDate:             &entryDate,
		EntryPrice:            &entryPrice,
		Shares:                &shares,
		HighestHighSinceEntry: &hh,
		StopLevel:             &stop,
		PlannedExitDate:       &planned,
	}
	if err := f.trades.Insert(ctx, trade); err != nil {
		t.Fatal(err)
	}

	// Bar on the planned exit date, low stays above the stop.
	checkDate := planned
	if err := f.bars.UpsertBulk(ctx, []*domain.DailyBar{
		{TickerID: 1, Date: checkDate, Open: 41.5, High: 42.0, Low: 41.0, Close: 41.8, Volume: 1},
	}); err != nil {
		t.Fatal(err)
	}

	closed, err := f.monitor.CheckOpenTrades(ctx, checkDate)
	if err != nil || closed != 1 {
		t.Fatalf("CheckOpenTrades = (%d, %v), want (1, nil)", closed, err)
	}

	got, _ := f.trades.GetByID(ctx, trade.ID)
	if *got.ExitReason != domain.ExitReasonTimeExit {
		t.Errorf("ExitReason = %s, want time_exit", *got.ExitReason)
	}
	if *got.ExitPrice != 41.7164 { // round4(41.8 * 0.998)
		t.Errorf("ExitPrice = %f, want 41.7164", *got.ExitPrice)
	}
	if got.PnLDollars == nil || got.PnLPct == nil {
		t.Fatal("PnL not computed")
	}
	// gross = (41.7164 - 40.08) * 24.9501; fees on both legs at 0.1%.
	if *got.PnLDollars != 38.79 {
		t.Errorf("PnLDollars = %f, want 38.79", *got.PnLDollars)
	}
	if *got.PnLPct != 3.88 {
		t.Errorf("PnLPct = %f, want 3.88", *got.PnLPct)
	}
}

func TestCheckOpenTrades_NoBarNoMutation(t *testing.T) {
	f := newLifecycleFixture()
	ctx := context.Background()

	entryDate := day(2024, 3, 5)
	stop := 45.0
	entryPrice := 50.1
	shares := 19.96
	planned := day(2024, 3, 6) // already lapsed
	trade := &domain.PaperTrade{
		TickerID:        1,
		Strategy:        domain.StrategyReversion,
		SignalDate:      day(2024, 3, 4),
		PositionSize:    1000,
		Status:          domain.StatusOpen,
		EntryDate:       &entryDate,
		EntryPrice:      &entryPrice,
		Shares:          &shares,
		StopLevel:       &stop,
		PlannedExitDate: &planned,
	}
	if err := f.trades.Insert(ctx, trade); err != nil {
		t.Fatal(err)
	}

	closed, err := f.monitor.CheckOpenTrades(ctx, day(2024, 3, 8))
	if err != nil {
		t.Fatalf("CheckOpenTrades failed: %v", err)
	}
	if closed != 0 {
		t.Errorf("closed = %d, want 0", closed)
	}

	got, _ := f.trades.GetByID(ctx, trade.ID)
	if got.Status != domain.StatusOpen {
		t.Errorf("status = %s, want open (no bar, no mutation)", got.Status)
	}
}

func TestCheckOpenTrades_ReversionStopReason(t *testing.T) {
	f := newLifecycleFixture()
	ctx := context.Background()

	entryDate := day(2024, 3, 5)
	stop := 38.076
	entryPrice := 40.08
	shares := 24.9501
	planned := day(2024, 3, 12)
	trade := &domain.PaperTrade{
		TickerID:        1,
		Strategy:        domain.StrategyReversion,
		SignalDate:      day(2024, 3, 4),
		PositionSize:    1000,
		Status:          domain.StatusOpen,
		EntryDate:       &entryDate,
		EntryPrice:      &entryPrice,
		Shares:          &shares,
		StopLevel:       &stop,
		PlannedExitDate: &planned,
	}
	if err := f.trades.Insert(ctx, trade); err != nil {
		t.Fatal(err)
	}

	checkDate := day(2024, 3, 7)
	if err := f.bars.UpsertBulk(ctx, []*domain.DailyBar{
		{TickerID: 1, Date: checkDate, Open: 39, High: 39.5, Low: 37.9, Close: 38.2, Volume: 1},
	}); err != nil {
		t.Fatal(err)
	}

	closed, err := f.monitor.CheckOpenTrades(ctx, checkDate)
	if err != nil || closed != 1 {
		t.Fatalf("CheckOpenTrades = (%d, %v), want (1, nil)", closed, err)
	}

	got, _ := f.trades.GetByID(ctx, trade.ID)
	if *got.ExitReason != domain.ExitReasonStopLoss {
		t.Errorf("ExitReason = %s, want stop_loss", *got.ExitReason)
	}
	if *got.ExitPrice != 38.076 {
		t.Errorf("ExitPrice = %f, want the stop level", *got.ExitPrice)
	}
}

func TestCheckOpenTrades_RatchetThenTimeExitSameDay(t *testing.T) {
	f := newLifecycleFixture()
	ctx := context.Background()

	entryDate := day(2024, 3, 5)
	seedConstantRangeBars(t, f.bars, 1, entryDate, 20, 100)

	stop := 96.96 // 101 * 0.96
	hh := 101.0
	entryPrice := 100.2
	shares := 9.98
	planned := day(2024, 3, 15)
	trade := &domain.PaperTrade{
		TickerID:              1,
		Strategy:              domain.StrategyMomentum,
		SignalDate:            day(2024, 3, 4),
		PositionSize:          1000,
		Status:                domain.StatusOpen,
		EntryDate:             &entryDate,
		EntryPrice:            &entryPrice,
		Shares:                &shares,
		HighestHighSinceEntry: &hh,
		StopLevel:             &stop,
		PlannedExitDate:       &planned,
	}
	if err := f.trades.Insert(ctx, trade); err != nil {
		t.Fatal(err)
	}

	// New high on the planned exit date itself, low above the stop. The
	// ratchet and the time exit both fire: the trade closes at the slipped
	// close and carries the ratcheted high and stop out with it.
	if err := f.bars.UpsertBulk(ctx, []*domain.DailyBar{
		{TickerID: 1, Date: planned, Open: 101, High: 110.0, Low: 100.0, Close: 108.0, Volume: 1},
	}); err != nil {
		t.Fatal(err)
	}

	closed, err := f.monitor.CheckOpenTrades(ctx, planned)
	if err != nil || closed != 1 {
		t.Fatalf("CheckOpenTrades = (%d, %v), want (1, nil)", closed, err)
	}

	got, _ := f.trades.GetByID(ctx, trade.ID)
	if got.Status != domain.StatusClosed {
		t.Fatalf("status = %s, want closed", got.Status)
	}
	if *got.ExitReason != domain.ExitReasonTimeExit {
		t.Errorf("ExitReason = %s, want time_exit", *got.ExitReason)
	}
	if *got.ExitPrice != 107.784 { // round4(108 * 0.998)
		t.Errorf("ExitPrice = %f, want 107.784", *got.ExitPrice)
	}
	if *got.HighestHighSinceEntry != 110.0 {
		t.Errorf("HighestHigh = %f, want 110.0 (ratchet ran before the exit)", *got.HighestHighSinceEntry)
	}
	if *got.StopLevel != 105.6 { // 110 * 0.96
		t.Errorf("StopLevel = %f, want 105.6", *got.StopLevel)
	}
}

func TestCreatePendingTrades_FailedCommitCreatesNothing(t *testing.T) {
	ctx := context.Background()
	trades := &haltingTradeStore{TradeStore: memory.NewTradeStore(), failBulk: true}
	creator := NewCreator(trades, zerolog.Nop())

	created, err := creator.CreatePendingTrades(ctx, []domain.Signal{
		&domain.MomentumSignal{TickerID: 1, Date: day(2024, 3, 4), ATRPctAtTrigger: 10},
		&domain.MomentumSignal{TickerID: 2, Date: day(2024, 3, 4), ATRPctAtTrigger: 8},
	})
	if !errors.Is(err, errStoreDown) {
		t.Fatalf("err = %v, want the store failure", err)
	}
	if created != 0 {
		t.Errorf("created = %d, want 0", created)
	}

	all, _ := trades.ListAll(ctx)
	if len(all) != 0 {
		t.Errorf("trades persisted after failed commit = %d, want 0", len(all))
	}
}

func TestFillPendingTrades_FailedCommitKeepsPending(t *testing.T) {
	ctx := context.Background()
	trades := &haltingTradeStore{TradeStore: memory.NewTradeStore()}
	bars := memory.NewBarStore()
	filler := NewFiller(trades, bars, NewStopCalculator(bars), zerolog.Nop())

	signalDate := day(2024, 3, 4)
	nextDay := day(2024, 3, 5)
	for _, tickerID := range []int64{1, 2} {
		if err := trades.Insert(ctx, &domain.PaperTrade{
			TickerID:     tickerID,
			Strategy:     domain.StrategyMomentum,
			SignalDate:   signalDate,
			PositionSize: 1000,
			Status:       domain.StatusPending,
		}); err != nil {
			t.Fatal(err)
		}
		if err := bars.UpsertBulk(ctx, []*domain.DailyBar{
			{TickerID: tickerID, Date: nextDay, Open: 50, High: 51, Low: 49, Close: 50.5, Volume: 1_000_000},
		}); err != nil {
			t.Fatal(err)
		}
	}

	trades.failBulk = true
	filled, err := filler.FillPendingTrades(ctx)
	if !errors.Is(err, errStoreDown) {
		t.Fatalf("err = %v, want the store failure", err)
	}
	if filled != 0 {
		t.Errorf("filled = %d, want 0", filled)
	}

	all, _ := trades.ListAll(ctx)
	for _, tr := range all {
		if tr.Status != domain.StatusPending {
			t.Errorf("trade %d status = %s, want pending after failed commit", tr.ID, tr.Status)
		}
		if tr.EntryPrice != nil {
			t.Errorf("trade %d has an entry price after failed commit", tr.ID)
		}
	}

	// Once the store recovers, the same run fills both.
	trades.failBulk = false
	filled, err = filler.FillPendingTrades(ctx)
	if err != nil || filled != 2 {
		t.Fatalf("FillPendingTrades after recovery = (%d, %v), want (2, nil)", filled, err)
	}
}

func TestCheckOpenTrades_FailedCommitKeepsOpen(t *testing.T) {
	ctx := context.Background()
	trades := &haltingTradeStore{TradeStore: memory.NewTradeStore()}
	bars := memory.NewBarStore()
	monitor := NewMonitor(trades, bars, NewStopCalculator(bars), zerolog.Nop())

	entryDate := day(2024, 3, 5)
	stop := 38.076
	entryPrice := 40.08
	shares := 24.9501
	planned := day(2024, 3, 12)
	trade := &domain.PaperTrade{
		TickerID:        1,
		Strategy:        domain.StrategyReversion,
		SignalDate:      day(2024, 3, 4),
		PositionSize:    1000,
		Status:          domain.StatusOpen,
		EntryDate:       &entryDate,
		EntryPrice:      &entryPrice,
		Shares:          &shares,
		StopLevel:       &stop,
		PlannedExitDate: &planned,
	}
	if err := trades.Insert(ctx, trade); err != nil {
		t.Fatal(err)
	}
	if err := bars.UpsertBulk(ctx, []*domain.DailyBar{
		{TickerID: 1, Date: planned, Open: 41.5, High: 42.0, Low: 41.0, Close: 41.8, Volume: 1},
	}); err != nil {
		t.Fatal(err)
	}

	trades.failBulk = true
	closed, err := monitor.CheckOpenTrades(ctx, planned)
	if !errors.Is(err, errStoreDown) {
		t.Fatalf("err = %v, want the store failure", err)
	}
	if closed != 0 {
		t.Errorf("closed = %d, want 0", closed)
	}

	got, _ := trades.GetByID(ctx, trade.ID)
	if got.Status != domain.StatusOpen {
		t.Fatalf("status = %s, want open after failed commit", got.Status)
	}
	if got.ExitPrice != nil || got.ExitReason != nil {
		t.Error("exit fields set after failed commit")
	}

	trades.failBulk = false
	closed, err = monitor.CheckOpenTrades(ctx, planned)
	if err != nil || closed != 1 {
		t.Fatalf("CheckOpenTrades after recovery = (%d, %v), want (1, nil)", closed, err)
	}
}
