// Helmsman runs a simulated futures trading engine against live Binance
// market data: indicator-driven signal scoring, paper position lifecycle
// with leverage-scaled exits, and outcome-weighted strategy adaptation.
// The engine is controlled and observed over a small HTTP surface; nothing
// is persisted and no real orders are placed.
package main

import (
	"context"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mavrikis/helmsman/collector"
	"github.com/mavrikis/helmsman/config"
	"github.com/mavrikis/helmsman/decision"
	"github.com/mavrikis/helmsman/engine"
	"github.com/mavrikis/helmsman/logger"
	"github.com/mavrikis/helmsman/server"
	"github.com/mavrikis/helmsman/trade"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallback := logger.New(logger.Config{Level: "info", Pretty: true})
		fallback.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.Pretty})
	log.Info().Msg("Starting helmsman")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	market := collector.New(cfg, log)
	market.LoadInstruments(ctx)
	market.Bootstrap(ctx)

	events := engine.NewEventLog()
	manager := trade.NewManager(market, events, cfg.StartingBalance, log)

	// Separate RNGs: the decider draws from goroutines in the parallel
	// analyze pass, the engine samples instruments on the loop goroutine.
	decider := decision.New(market, manager, rand.New(rand.NewSource(time.Now().UnixNano())), log)
	loopRNG := rand.New(rand.NewSource(time.Now().UnixNano() + 1))

	eng := engine.New(engine.Config{
		LoopInterval:  cfg.LoopInterval,
		PriceRefresh:  cfg.PriceRefresh,
		TickerRefresh: cfg.TickerRefresh,
		MaxPositions:  cfg.MaxPositions,
	}, market, decider, manager, events, loopRNG, log)

	srv := server.New(eng, cfg.Port, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("Shutting down")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("HTTP server failed")
		}
	}

	eng.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}

	log.Info().Msg("Goodbye")
}
