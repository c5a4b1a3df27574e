package server

import (
	"net/http"
	"runtime"
	"time"

	json "github.com/bytedance/sonic"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

var processStart = time.Now()

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	out, err := json.Marshal(v)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to encode response")
		http.Error(w, `{"error":"encoding failed"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(out)
}

// handleStart begins the engine loop. Idempotent.
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	s.engine.Start()
	s.writeJSON(w, http.StatusOK, map[string]any{"running": s.engine.IsRunning()})
}

// handleStop halts the engine loop. Idempotent.
func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.engine.Stop()
	s.writeJSON(w, http.StatusOK, map[string]any{"running": s.engine.IsRunning()})
}

// handleState returns the full state snapshot.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.engine.Snapshot())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"running": s.engine.IsRunning(),
		"uptime":  time.Since(processStart).Round(time.Second).String(),
	})
}

// handleSystem reports host and process statistics for the dashboard's
// footer. Collection failures degrade to zero values rather than errors.
func (s *Server) handleSystem(w http.ResponseWriter, r *http.Request) {
	out := map[string]any{
		"goroutines": runtime.NumGoroutine(),
		"uptime":     time.Since(processStart).Round(time.Second).String(),
	}

	if percents, err := cpu.Percent(100*time.Millisecond, false); err == nil && len(percents) > 0 {
		out["cpu_percent"] = percents[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		out["mem_percent"] = vm.UsedPercent
		out["mem_used_mb"] = float64(vm.Used) / 1024 / 1024
	}

	s.writeJSON(w, http.StatusOK, out)
}
