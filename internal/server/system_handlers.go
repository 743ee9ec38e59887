package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/coinwatch/coinwatch/internal/database"
)

// SystemHandlers exposes operational status endpoints
type SystemHandlers struct {
	log       zerolog.Logger
	coinsDB   *database.DB
	cacheDB   *database.DB
	startedAt time.Time
}

// NewSystemHandlers creates system handlers
func NewSystemHandlers(log zerolog.Logger, coinsDB, cacheDB *database.DB, startedAt time.Time) *SystemHandlers {
	return &SystemHandlers{
		log:       log.With().Str("handler", "system").Logger(),
		coinsDB:   coinsDB,
		cacheDB:   cacheDB,
		startedAt: startedAt,
	}
}

// SystemStatusResponse is the system status payload
type SystemStatusResponse struct {
	Status        string             `json:"status"`
	UptimeSeconds int64              `json:"uptime_seconds"`
	CPUPercent    float64            `json:"cpu_percent"`
	RAMPercent    float64            `json:"ram_percent"`
	DiskPercent   float64            `json:"disk_percent"`
	Databases     map[string]DBStats `json:"databases"`
	CoinCount     int64              `json:"coin_count"`
	Timestamp     string             `json:"timestamp"`
}

// DBStats summarizes one database file
type DBStats struct {
	SizeMB    float64 `json:"size_mb"`
	WALSizeMB float64 `json:"wal_size_mb"`
}

// HandleSystemStatus returns process uptime, host utilization and database sizes
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting system status")

	cpuPct, ramPct := h.getSystemStats()

	diskPct := 0.0
	if usage, err := disk.Usage("/"); err == nil {
		diskPct = usage.UsedPercent
	} else {
		h.log.Warn().Err(err).Msg("Failed to get disk usage")
	}

	var coinCount int64
	if err := h.coinsDB.Conn().QueryRow("SELECT COUNT(*) FROM coins WHERE deleted_at IS NULL").Scan(&coinCount); err != nil {
		h.log.Warn().Err(err).Msg("Failed to count coins")
	}

	response := SystemStatusResponse{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(h.startedAt).Seconds()),
		CPUPercent:    cpuPct,
		RAMPercent:    ramPct,
		DiskPercent:   diskPct,
		Databases:     make(map[string]DBStats),
		CoinCount:     coinCount,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
	}

	for _, db := range []*database.DB{h.coinsDB, h.cacheDB} {
		stats, err := db.GetStats()
		if err != nil {
			h.log.Warn().Err(err).Str("database", db.Name()).Msg("Failed to get database stats")
			continue
		}
		response.Databases[db.Name()] = DBStats{
			SizeMB:    float64(stats.SizeBytes) / 1024 / 1024,
			WALSizeMB: float64(stats.WALSizeBytes) / 1024 / 1024,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// getSystemStats calculates CPU and RAM usage percentages.
// Uses a short sampling interval so the endpoint responds quickly.
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}
