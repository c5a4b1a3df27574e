package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8899, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, DefaultLoopInterval, cfg.LoopInterval)
	assert.Equal(t, DefaultPriceRefresh, cfg.PriceRefresh)
	assert.Equal(t, DefaultTickerRefresh, cfg.TickerRefresh)
	assert.Equal(t, DefaultMaxPositions, cfg.MaxPositions)
	assert.Equal(t, DefaultStartingBalance, cfg.StartingBalance)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9001")
	t.Setenv("LOOP_INTERVAL", "1s")
	t.Setenv("MAX_POSITIONS", "3")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_PRETTY", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9001, cfg.Port)
	assert.Equal(t, time.Second, cfg.LoopInterval)
	assert.Equal(t, 3, cfg.MaxPositions)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.False(t, cfg.Pretty)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Run("port", func(t *testing.T) {
		t.Setenv("PORT", "not-a-port")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("interval", func(t *testing.T) {
		t.Setenv("LOOP_INTERVAL", "fast")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("max positions", func(t *testing.T) {
		t.Setenv("MAX_POSITIONS", "0")
		_, err := Load()
		assert.Error(t, err)
	})
}

func TestUniverseConstantsCoherent(t *testing.T) {
	assert.GreaterOrEqual(t, len(PrioritySymbols), UniverseFallback)
	assert.Greater(t, CandleLimit, MinCandles)
	assert.Greater(t, SignalWindow, SnapshotWindow)
	assert.Contains(t, Strategies, DefaultStrategy)
}
