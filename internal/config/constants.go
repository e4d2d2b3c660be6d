package config

import "time"

// Environment overrides.
const (
	EnvConfigDir   = "TOKENHUB_CONFIG_DIR"
	EnvPostgresDSN = "TOKENHUB_POSTGRES_DSN"
)

// Timeouts used by the serve command.
const (
	ReadHeaderTimeout = 5 * time.Second
	ShutdownTimeout   = 10 * time.Second
	StoreOpenTimeout  = 15 * time.Second // postgres connect + migrations
)
