package config

// Store backends.
const (
	StoreJSON     = "json"
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Percent units accepted by the CLI and API.
const (
	UnitBps     = "bps"
	UnitPercent = "percent"
)

// Config holds all tokenhub configuration.
type Config struct {
	DefaultWallet     string `json:"default_wallet"`
	Store             string `json:"store"` // "json" | "memory" | "postgres"
	PostgresDSN       string `json:"postgres_dsn,omitempty"`
	ListenAddr        string `json:"listen_addr"`
	MetricsAddr       string `json:"metrics_addr,omitempty"` // empty serves /metrics on ListenAddr
	PercentUnit       string `json:"percent_unit"`           // "bps" | "percent"
	LiquidityLockDays int    `json:"liquidity_lock_days"`
	LogLevel          string `json:"log_level"`
	LogFormat         string `json:"log_format"` // "text" | "json"

	// internal: config dir path used for Save()
	configDir string
}
