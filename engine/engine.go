// Package engine runs the decision-and-position loop: a fixed-cadence main
// tick that marks positions to market and periodically scans a random
// sample of instruments for entries, plus two independent refresh cadences
// feeding the market-data cache. It is the only component with background
// concurrency; everything else is called synchronously from here.
package engine

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/mavrikis/helmsman/config"
	"github.com/mavrikis/helmsman/entity"
	"github.com/mavrikis/helmsman/trade"
	"github.com/mavrikis/helmsman/utils"
)

// MarketData is the slice of the collector the engine drives.
type MarketData interface {
	Instruments() []string
	Tickers() map[string]entity.Ticker
	RefreshPrices(ctx context.Context) (int, error)
	RefreshTickers(ctx context.Context) (int, error)
}

// Decider produces entry signals; nil means no trade this cycle.
type Decider interface {
	Decide(ctx context.Context, symbol string) *entity.Signal
}

// Config carries the engine's cadences and limits.
type Config struct {
	LoopInterval  time.Duration
	PriceRefresh  time.Duration
	TickerRefresh time.Duration
	MaxPositions  int
}

// Engine is the process-wide orchestrator. It is constructed by the
// composition root and passed explicitly to the server; there is no global
// instance.
type Engine struct {
	cfg     Config
	market  MarketData
	decider Decider
	manager *trade.Manager
	events  *EventLog
	log     zerolog.Logger

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	wg      sync.WaitGroup

	rngMu sync.Mutex
	rng   *rand.Rand

	tick int
}

// New creates an engine. The RNG drives the per-scan instrument sample and
// is injected for deterministic tests.
func New(cfg Config, market MarketData, decider Decider, manager *trade.Manager, events *EventLog, rng *rand.Rand, log zerolog.Logger) *Engine {
	return &Engine{
		cfg:     cfg,
		market:  market,
		decider: decider,
		manager: manager,
		events:  events,
		log:     log.With().Str("component", "engine").Logger(),
		rng:     rng,
	}
}

// Start begins the main loop and the two refresh cadences. Idempotent:
// calling it while running does nothing.
func (e *Engine) Start() {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return
	}
	e.running = true
	e.stop = make(chan struct{})
	stop := e.stop
	e.mu.Unlock()

	e.events.Event(entity.LevelSuccess, "Bot started")
	e.log.Info().
		Dur("loop", e.cfg.LoopInterval).
		Int("instruments", len(e.market.Instruments())).
		Msg("Engine started")

	e.wg.Add(3)
	go e.refreshLoop(stop, e.cfg.PriceRefresh, e.market.RefreshPrices, "price refresh")
	go e.refreshLoop(stop, e.cfg.TickerRefresh, e.market.RefreshTickers, "ticker refresh")
	go e.mainLoop(stop)
}

// Stop halts the loops cooperatively: the flag is cleared and every loop
// exits at its next iteration boundary. Idempotent.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	close(e.stop)
	e.mu.Unlock()

	e.wg.Wait()
	e.events.Event(entity.LevelWarn, "Bot stopped")
	e.log.Info().Msg("Engine stopped")
}

// IsRunning reports whether the loop is active.
func (e *Engine) IsRunning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// refreshLoop runs one market-data refresh on a fixed cadence until
// stopped. A failed refresh only logs: the cache keeps its last good
// values and the next period tries again.
func (e *Engine) refreshLoop(stop <-chan struct{}, every time.Duration, refresh func(context.Context) (int, error), name string) {
	defer e.wg.Done()

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), every)
			if _, err := refresh(ctx); err != nil {
				e.log.Warn().Err(err).Str("cadence", name).Msg("Refresh failed, keeping cached values")
			}
			cancel()
		}
	}
}

// mainLoop is the fixed-cadence decision tick.
func (e *Engine) mainLoop(stop <-chan struct{}) {
	defer e.wg.Done()

	ticker := time.NewTicker(e.cfg.LoopInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			e.iterate()
		}
	}
}

// iterate runs one tick: mark open positions to market, and on every
// DecideEvery-th tick scan a random instrument sample for entries. A panic
// inside a tick is logged and abandoned; the loop itself only ends via
// Stop.
func (e *Engine) iterate() {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error().Interface("panic", r).Msg("Tick failed")
			e.events.Event(entity.LevelError, fmt.Sprintf("tick error: %v", r))
		}
	}()

	e.manager.Update()

	if e.tick%config.DecideEvery == 0 {
		ctx, cancel := context.WithTimeout(context.Background(), e.cfg.LoopInterval*2)
		e.scanForEntries(ctx)
		cancel()
	}
	e.tick++
}

// scanForEntries samples instruments, evaluates them in parallel, then
// applies the resulting opens serially so the position cap and the
// one-position-per-instrument invariant are checked under a single writer.
func (e *Engine) scanForEntries(ctx context.Context) {
	sample := e.sampleInstruments(config.SampleSize)
	if len(sample) == 0 {
		return
	}

	var (
		sigMu   sync.Mutex
		signals []*entity.Signal
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, symbol := range sample {
		symbol := symbol
		g.Go(func() error {
			// Recover here, not in iterate: a panic on a worker
			// goroutine would otherwise kill the process before the
			// tick-level recover could see it. The instrument is
			// dropped for this cycle only.
			defer func() {
				if r := recover(); r != nil {
					e.log.Error().Interface("panic", r).Str("symbol", symbol).Msg("Entry evaluation failed")
					e.events.Event(entity.LevelError, fmt.Sprintf("tick error: %v", r))
				}
			}()
			if sig := e.decider.Decide(gctx, symbol); sig != nil {
				sigMu.Lock()
				signals = append(signals, sig)
				sigMu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	for _, sig := range signals {
		if e.manager.Count() >= e.cfg.MaxPositions {
			break
		}
		e.manager.Open(sig)
		e.events.Event(entity.LevelTrade, fmt.Sprintf("%s %s @ $%.4f | confidence %.0f%% | %s",
			sig.Symbol, sig.Direction, sig.Price, sig.Confidence, joinReasons(sig.Reasons, 2)))
	}
}

// sampleInstruments draws up to n distinct instruments from the working
// set.
func (e *Engine) sampleInstruments(n int) []string {
	symbols := e.market.Instruments()
	if len(symbols) <= n {
		return symbols
	}

	e.rngMu.Lock()
	perm := e.rng.Perm(len(symbols))
	e.rngMu.Unlock()

	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = symbols[perm[i]]
	}
	return out
}

func joinReasons(reasons []string, n int) string {
	if len(reasons) > n {
		reasons = reasons[:n]
	}
	out := ""
	for i, r := range reasons {
		if i > 0 {
			out += ", "
		}
		out += r
	}
	return out
}

// Snapshot assembles the read-only state view for the control surface. It
// reads clones only and mutates nothing; it is safe to call at any time,
// including while stopped, and reflects the last-known state.
func (e *Engine) Snapshot() entity.Snapshot {
	balance := e.manager.Balance()
	totalPnL := e.manager.TotalPnL()
	trades, wins := e.manager.Stats()

	positions := e.manager.Positions()
	for sym, pos := range positions {
		pos.PnL = utils.Round2(pos.PnL)
		pos.PnLPct = utils.Round2(pos.PnLPct)
		pos.Candles = lo.Subset(pos.Candles, -config.SnapshotWindow, uint(config.SnapshotWindow))
		positions[sym] = pos
	}

	coins := e.market.Tickers()
	for sym, t := range coins {
		t.Change = utils.Round2(t.Change)
		coins[sym] = t
	}

	return entity.Snapshot{
		Balance:     utils.Round2(balance),
		TotalPnL:    utils.Round2(totalPnL),
		TotalPnLPct: utils.Round2(totalPnL / e.manager.StartBalance() * 100),
		Trades:      trades,
		Wins:        wins,
		WinRate:     utils.RoundTo(e.manager.WinRate(), 1),
		Active:      len(positions),
		Positions:   positions,
		History:     e.manager.History(config.HistoryView),
		Strategies:  e.manager.Weights(),
		Coins:       coins,
		Running:     e.IsRunning(),
		Curve:       e.manager.Curve(),
		Events:      e.events.Recent(config.EventView),
	}
}
