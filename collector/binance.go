// Package collector fetches market data from Binance USDT-M futures and
// caches the last-known values. Refresh failures keep the previous cache
// contents; stale data is preferred over no data.
package collector

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/futures"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/mavrikis/helmsman/config"
	"github.com/mavrikis/helmsman/entity"
	"github.com/mavrikis/helmsman/utils"
)

const usdtSuffix = "USDT"

// Client wraps the exchange API with a last-known-value cache. The symbol
// universe is fixed once loaded; tickers and prices are overwritten in
// place by the refresh cadences and read by the decision and snapshot
// paths.
type Client struct {
	api *futures.Client
	log zerolog.Logger

	mu      sync.RWMutex
	symbols []string
	tickers map[string]entity.Ticker
	prices  map[string]float64
}

// New creates a market data client. API keys may be empty: every endpoint
// used here is public.
func New(cfg *config.Config, log zerolog.Logger) *Client {
	api := binance.NewFuturesClient(cfg.BinanceAPIKey, cfg.BinanceSecret)
	api.HTTPClient = &http.Client{Timeout: cfg.HTTPTimeout}

	return &Client{
		api:     api,
		log:     log.With().Str("component", "collector").Logger(),
		tickers: make(map[string]entity.Ticker),
		prices:  make(map[string]float64),
	}
}

// LoadInstruments resolves the working symbol set for this run: the
// priority list intersected with the exchange's tradable USDT perpetuals,
// plus up to UniverseExtra other eligible symbols. The exchangeInfo fetch
// is retried briefly; if it still fails the first UniverseFallback priority
// symbols are used so the engine can run on stale-but-plausible symbols.
// The result is immutable for the rest of the run.
func (c *Client) LoadInstruments(ctx context.Context) []string {
	eligible, err := utils.RetryWithBackoff(func() ([]string, error) {
		return c.fetchEligibleSymbols(ctx)
	}, 2)
	if err != nil {
		c.log.Warn().Err(err).Msg("Exchange info unavailable, falling back to priority symbols")
		eligible = nil
	}

	universe := SelectUniverse(config.PrioritySymbols, eligible)

	c.mu.Lock()
	c.symbols = universe
	c.mu.Unlock()

	c.log.Info().Int("count", len(universe)).Msg("Instrument universe loaded")
	return universe
}

// SelectUniverse builds the working set from the ordered priority list and
// the exchange's eligible symbols. A nil eligible slice means the exchange
// was unreachable and triggers the fallback.
func SelectUniverse(priority, eligible []string) []string {
	if eligible == nil {
		return append([]string(nil), priority[:config.UniverseFallback]...)
	}

	valid := lo.SliceToMap(eligible, func(s string) (string, struct{}) {
		return s, struct{}{}
	})

	universe := lo.Filter(priority, func(s string, _ int) bool {
		_, ok := valid[s]
		return ok
	})

	chosen := lo.SliceToMap(universe, func(s string) (string, struct{}) {
		return s, struct{}{}
	})
	extras := lo.Filter(eligible, func(s string, _ int) bool {
		_, ok := chosen[s]
		return !ok
	})
	if len(extras) > config.UniverseExtra {
		extras = extras[:config.UniverseExtra]
	}

	return append(universe, extras...)
}

// fetchEligibleSymbols returns every currently-trading USDT-margined
// perpetual symbol on the exchange.
func (c *Client) fetchEligibleSymbols(ctx context.Context) ([]string, error) {
	info, err := c.api.NewExchangeInfoService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch exchange info: %w", err)
	}

	var eligible []string
	for _, s := range info.Symbols {
		if strings.HasSuffix(s.Symbol, usdtSuffix) &&
			s.ContractType == "PERPETUAL" &&
			s.Status == "TRADING" {
			eligible = append(eligible, s.Symbol)
		}
	}
	return eligible, nil
}

// Bootstrap warms the ticker and price caches, running both bulk fetches
// in parallel. Failures are logged and tolerated; the caches simply start
// empty.
func (c *Client) Bootstrap(ctx context.Context) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if _, err := c.RefreshTickers(gctx); err != nil {
			c.log.Warn().Err(err).Msg("Initial ticker load failed")
		}
		return nil
	})
	g.Go(func() error {
		if _, err := c.RefreshPrices(gctx); err != nil {
			c.log.Warn().Err(err).Msg("Initial price load failed")
		}
		return nil
	})
	_ = g.Wait()
}

// RefreshTickers bulk-fetches 24h statistics and overwrites cached entries
// for in-scope symbols. On error the cache keeps its last good values and
// the error is returned for the caller to log.
func (c *Client) RefreshTickers(ctx context.Context) (int, error) {
	stats, err := c.api.NewListPriceChangeStatsService().Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetch 24h tickers: %w", err)
	}
	return c.applyTickerStats(stats), nil
}

// applyTickerStats folds parsed 24h statistics into the cache, ignoring
// out-of-scope symbols.
func (c *Client) applyTickerStats(stats []*futures.PriceChangeStats) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	inScope := lo.SliceToMap(c.symbols, func(s string) (string, struct{}) {
		return s, struct{}{}
	})

	updated := 0
	for _, t := range stats {
		if _, ok := inScope[t.Symbol]; !ok {
			continue
		}
		price := parseFloat(t.LastPrice)
		c.tickers[t.Symbol] = entity.Ticker{
			Price:       price,
			Change:      parseFloat(t.PriceChangePercent),
			Volume:      parseFloat(t.Volume),
			High:        parseFloat(t.HighPrice),
			Low:         parseFloat(t.LowPrice),
			QuoteVolume: parseFloat(t.QuoteVolume),
		}
		c.prices[t.Symbol] = price
		updated++
	}
	return updated
}

// RefreshPrices bulk-fetches the latest mark prices for the working set.
// Same stale-on-failure contract as RefreshTickers.
func (c *Client) RefreshPrices(ctx context.Context) (int, error) {
	prices, err := c.api.NewListPricesService().Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetch prices: %w", err)
	}
	return c.applyPrices(prices), nil
}

func (c *Client) applyPrices(prices []*futures.SymbolPrice) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	inScope := lo.SliceToMap(c.symbols, func(s string) (string, struct{}) {
		return s, struct{}{}
	})

	updated := 0
	for _, p := range prices {
		if _, ok := inScope[p.Symbol]; !ok {
			continue
		}
		price := parseFloat(p.Price)
		c.prices[p.Symbol] = price
		if t, ok := c.tickers[p.Symbol]; ok {
			t.Price = price
			c.tickers[p.Symbol] = t
		}
		updated++
	}
	return updated
}

// Candles fetches a time-ordered (oldest first) candle series. The caller
// decides how to degrade on error; no caching happens here.
func (c *Client) Candles(ctx context.Context, symbol, interval string, limit int) ([]entity.Candle, error) {
	klines, err := c.api.NewKlinesService().
		Symbol(symbol).
		Interval(interval).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch %s %s klines: %w", symbol, interval, err)
	}

	return lo.Map(klines, func(k *futures.Kline, _ int) entity.Candle {
		return ParseKline(k)
	}), nil
}

// ParseKline converts the exchange's string-encoded kline into a Candle.
func ParseKline(k *futures.Kline) entity.Candle {
	return entity.Candle{
		OpenTime: k.OpenTime,
		Open:     parseFloat(k.Open),
		High:     parseFloat(k.High),
		Low:      parseFloat(k.Low),
		Close:    parseFloat(k.Close),
		Volume:   parseFloat(k.Volume),
	}
}

// Price returns the cached price for symbol, 0 when unknown. Callers treat
// 0 as "skip this instrument this cycle".
func (c *Client) Price(symbol string) float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.prices[symbol]
}

// Ticker returns the cached 24h statistics for symbol.
func (c *Client) Ticker(symbol string) (entity.Ticker, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.tickers[symbol]
	return t, ok
}

// Tickers returns a copy of the ticker cache keyed by symbol. Symbols with
// no data yet map to a zero-valued entry so the snapshot always covers the
// full working set.
func (c *Client) Tickers() map[string]entity.Ticker {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]entity.Ticker, len(c.symbols))
	for _, s := range c.symbols {
		out[s] = c.tickers[s]
	}
	return out
}

// Instruments returns the working symbol set.
func (c *Client) Instruments() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.symbols...)
}

// SetInstruments replaces the working set. Exposed for tests and for the
// fallback path; the engine never calls it after startup.
func (c *Client) SetInstruments(symbols []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.symbols = append([]string(nil), symbols...)
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
