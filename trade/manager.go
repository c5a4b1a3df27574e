// Package trade owns the simulated account: open positions, closed-trade
// history, the equity curve and the per-strategy weights. Every mutation
// goes through one mutex so the price-driven update pass and the
// signal-driven open pass can never interleave mid-close.
package trade

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mavrikis/helmsman/config"
	"github.com/mavrikis/helmsman/entity"
	"github.com/mavrikis/helmsman/utils"
)

// PriceSource provides the last cached price for an instrument; 0 means
// unavailable.
type PriceSource interface {
	Price(symbol string) float64
}

// EventSink receives human-readable engine events.
type EventSink interface {
	Event(level, msg string)
}

// Manager holds the full mutable trading aggregate. Positions are keyed by
// symbol; at most one open position exists per instrument.
type Manager struct {
	mu sync.RWMutex

	prices PriceSource
	events EventSink
	log    zerolog.Logger
	now    func() time.Time

	positions    map[string]*entity.Position
	history      []entity.TradeRecord
	curve        []float64
	weights      map[string]float64
	balance      float64
	startBalance float64
	trades       int
	wins         int
}

// NewManager creates a manager with the starting balance on the books and
// every strategy weight at 1.0.
func NewManager(prices PriceSource, events EventSink, startBalance float64, log zerolog.Logger) *Manager {
	weights := make(map[string]float64, len(config.Strategies))
	for _, s := range config.Strategies {
		weights[s] = 1.0
	}

	return &Manager{
		prices:       prices,
		events:       events,
		log:          log.With().Str("component", "trade").Logger(),
		now:          time.Now,
		positions:    make(map[string]*entity.Position),
		curve:        []float64{startBalance},
		weights:      weights,
		balance:      startBalance,
		startBalance: startBalance,
	}
}

// Open creates a position from a signal. Size is a fixed fraction of the
// current balance; take-profit and stop-loss distances scale with leverage
// around the entry price. A second open for the same instrument is a
// no-op: the caller is expected to check first, the method enforces the
// invariant regardless.
func (m *Manager) Open(sig *entity.Signal) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.positions[sig.Symbol]; exists {
		return
	}

	entry := sig.Price
	lev := float64(sig.Leverage)
	var tp, sl float64
	if sig.Direction == entity.Long {
		tp = entry * (1 + config.TakeProfitStep*lev/config.LeverageBaseline)
		sl = entry * (1 - config.StopLossStep*lev/config.LeverageBaseline)
	} else {
		tp = entry * (1 - config.TakeProfitStep*lev/config.LeverageBaseline)
		sl = entry * (1 + config.StopLossStep*lev/config.LeverageBaseline)
	}

	m.positions[sig.Symbol] = &entity.Position{
		ID:         uuid.NewString(),
		Symbol:     sig.Symbol,
		Direction:  sig.Direction,
		Entry:      entry,
		Current:    entry,
		TakeProfit: tp,
		StopLoss:   sl,
		Size:       m.balance * config.PositionFraction,
		Leverage:   sig.Leverage,
		Strategy:   sig.Strategy,
		Reasons:    sig.Reasons,
		Indicators: sig.Indicators,
		Candles:    sig.Candles,
		OpenedAt:   m.now(),
		Confidence: sig.Confidence,
	}

	m.log.Info().
		Str("symbol", sig.Symbol).
		Str("direction", string(sig.Direction)).
		Float64("entry", entry).
		Float64("tp", tp).
		Float64("sl", sl).
		Int("leverage", sig.Leverage).
		Msg("Position opened")
}

// pendingClose is a TP/SL crossing detected during an update scan.
type pendingClose struct {
	symbol string
	reason string
}

// Update marks every open position to the current cached price, tracks
// peak and trough unrealized PnL, and closes positions whose price crossed
// take-profit or stop-loss. All crossings found in one pass are applied.
func (m *Manager) Update() {
	m.mu.Lock()

	var toClose []pendingClose
	for sym, pos := range m.positions {
		price := m.prices.Price(sym)
		if price == 0 {
			continue
		}
		pos.Current = price

		var pct float64
		if pos.Direction == entity.Long {
			pct = (price - pos.Entry) / pos.Entry * 100 * float64(pos.Leverage)
		} else {
			pct = (pos.Entry - price) / pos.Entry * 100 * float64(pos.Leverage)
		}
		pos.PnLPct = pct
		pos.PnL = pos.Size * pct / 100
		if pos.PnL > pos.PeakPnL {
			pos.PeakPnL = pos.PnL
		}
		if pos.PnL < pos.TroughPnL {
			pos.TroughPnL = pos.PnL
		}

		if pos.Direction == entity.Long {
			if price >= pos.TakeProfit {
				toClose = append(toClose, pendingClose{sym, entity.CloseTakeProfit})
			} else if price <= pos.StopLoss {
				toClose = append(toClose, pendingClose{sym, entity.CloseStopLoss})
			}
		} else {
			if price <= pos.TakeProfit {
				toClose = append(toClose, pendingClose{sym, entity.CloseTakeProfit})
			} else if price >= pos.StopLoss {
				toClose = append(toClose, pendingClose{sym, entity.CloseStopLoss})
			}
		}
	}
	m.mu.Unlock()

	for _, pc := range toClose {
		m.Close(pc.symbol, pc.reason)
	}
}

// Close realizes a position: credits PnL to the balance, updates the
// win/loss counters and the strategy weight, records the trade at the head
// of the bounded history, extends the equity curve, and removes the
// position. Closing an absent symbol is a no-op, which makes duplicate
// triggers in one update pass harmless.
func (m *Manager) Close(symbol, reason string) {
	m.mu.Lock()

	pos, ok := m.positions[symbol]
	if !ok {
		m.mu.Unlock()
		return
	}

	m.balance += pos.PnL
	m.trades++
	won := pos.PnL > 0
	if won {
		m.wins++
	}

	w := m.weights[pos.Strategy]
	if won {
		w += config.WinReward
	} else {
		w -= config.LossPenalty
	}
	if w > config.WeightMax {
		w = config.WeightMax
	}
	if w < config.WeightMin {
		w = config.WeightMin
	}
	m.weights[pos.Strategy] = w

	closedAt := m.now()
	rec := entity.TradeRecord{
		ID:         m.trades,
		Symbol:     symbol,
		Direction:  pos.Direction,
		Entry:      pos.Entry,
		Exit:       pos.Current,
		TakeProfit: pos.TakeProfit,
		StopLoss:   pos.StopLoss,
		PnL:        utils.Round2(pos.PnL),
		PnLPct:     utils.Round2(pos.PnLPct),
		Leverage:   pos.Leverage,
		Strategy:   pos.Strategy,
		Reasons:    pos.Reasons,
		Reason:     reason,
		ClosedAt:   closedAt.Format("15:04:05"),
		Held:       formatHolding(closedAt.Sub(pos.OpenedAt)),
		Won:        won,
	}

	m.history = append([]entity.TradeRecord{rec}, m.history...)
	if len(m.history) > config.HistoryCap {
		m.history = m.history[:config.HistoryCap]
	}

	m.curve = append(m.curve, utils.Round2(m.balance))
	if len(m.curve) > config.CurveCap {
		m.curve = m.curve[len(m.curve)-config.CurveCap:]
	}

	delete(m.positions, symbol)
	m.mu.Unlock()

	tag := "LOSS"
	lvl := entity.LevelWarn
	if won {
		tag = "WIN"
		lvl = entity.LevelSuccess
	}
	msg := fmt.Sprintf("[%s] %s %s | $%.2f (%.2f%%) | %s",
		tag, symbol, pos.Direction, pos.PnL, pos.PnLPct, reason)
	m.events.Event(lvl, msg)
	m.log.Info().
		Str("symbol", symbol).
		Str("reason", reason).
		Float64("pnl", pos.PnL).
		Bool("won", won).
		Msg("Position closed")
}

// formatHolding buckets a holding duration into seconds, minutes or hours
// for display.
func formatHolding(d time.Duration) string {
	secs := d.Seconds()
	switch {
	case secs < 60:
		return fmt.Sprintf("%ds", int(secs))
	case secs < 3600:
		return fmt.Sprintf("%dm", int(secs/60))
	default:
		return fmt.Sprintf("%dh", int(secs/3600))
	}
}

// Has reports whether an open position exists for symbol.
func (m *Manager) Has(symbol string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.positions[symbol]
	return ok
}

// Count returns the number of open positions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.positions)
}

// Positions returns a deep-enough copy of the open positions: the structs
// are cloned so snapshot consumers never alias live state.
func (m *Manager) Positions() map[string]entity.Position {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]entity.Position, len(m.positions))
	for sym, pos := range m.positions {
		out[sym] = *pos
	}
	return out
}

// History returns up to n most-recent trade records, newest first.
func (m *Manager) History(n int) []entity.TradeRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if n > len(m.history) {
		n = len(m.history)
	}
	return append([]entity.TradeRecord(nil), m.history[:n]...)
}

// Weights returns a copy of the current strategy weights.
func (m *Manager) Weights() map[string]float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]float64, len(m.weights))
	for k, v := range m.weights {
		out[k] = v
	}
	return out
}

// Curve returns a copy of the equity curve.
func (m *Manager) Curve() []float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]float64(nil), m.curve...)
}

// Balance returns the current account balance.
func (m *Manager) Balance() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.balance
}

// TotalPnL returns realized profit since the start of the run.
func (m *Manager) TotalPnL() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.balance - m.startBalance
}

// Stats returns the trade and win counters.
func (m *Manager) Stats() (trades, wins int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.trades, m.wins
}

// WinRate returns the win percentage, or 50 before any trade has closed.
func (m *Manager) WinRate() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.trades == 0 {
		return 50.0
	}
	return float64(m.wins) / float64(m.trades) * 100
}

// StartBalance returns the balance the run began with.
func (m *Manager) StartBalance() float64 {
	return m.startBalance
}

// SetClock overrides the time source. Test hook.
func (m *Manager) SetClock(now func() time.Time) {
	m.now = now
}
