package server

import (
	"net/http"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

type healthResponse struct {
	Status        string  `json:"status"`
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	WorkerBudget  int     `json:"worker_budget"`
}

// health handles GET /health, surfacing process/host stats via gopsutil so
// operators can see worker saturation (teacher precedent:
// internal/server/system_handlers.go's cpu.Percent/mem.VirtualMemory use).
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", WorkerBudget: s.workerBudget}

	if percents, err := cpu.Percent(100*time.Millisecond, false); err == nil && len(percents) > 0 {
		resp.CPUPercent = percents[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		resp.MemoryPercent = vm.UsedPercent
	}

	writeJSON(w, http.StatusOK, resp)
}
