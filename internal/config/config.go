package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/sirupsen/logrus"
)

const (
	defaultStore       = StoreJSON
	defaultListenAddr  = "127.0.0.1:8545"
	defaultPercentUnit = UnitPercent
	defaultLockDays    = 30
	defaultLogLevel    = "warn"
	defaultLogFormat   = "text"

	configFile    = "config.json"
	walletsFile   = "wallets.json"
	issuancesFile = "issuances.json"
)

// Keys lists the settings addressable by Get and Set.
var Keys = []string{
	"default_wallet", "store", "postgres_dsn", "listen_addr", "metrics_addr",
	"percent_unit", "liquidity_lock_days", "log_level", "log_format",
}

// Load reads config from dir (or creates defaults). dir falls back to
// $TOKENHUB_CONFIG_DIR, then ~/.tokenhub.
func Load(dir string) (*Config, error) {
	if dir == "" {
		dir = os.Getenv(EnvConfigDir)
	}
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("could not determine home dir: %w", err)
		}
		dir = filepath.Join(home, ".tokenhub")
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("could not create config dir: %w", err)
	}

	cfg, err := loadJSON(filepath.Join(dir, configFile), defaults())
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg.configDir = dir

	if dsn := os.Getenv(EnvPostgresDSN); dsn != "" {
		cfg.PostgresDSN = dsn
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config to disk.
func (c *Config) Save() error {
	if err := os.MkdirAll(c.configDir, 0o700); err != nil {
		return err
	}
	return saveJSON(filepath.Join(c.configDir, configFile), c)
}

// Validate checks enumerated fields.
func (c *Config) Validate() error {
	if !slices.Contains([]string{StoreJSON, StoreMemory, StorePostgres}, c.Store) {
		return fmt.Errorf("invalid store %q: want json, memory or postgres", c.Store)
	}
	if c.Store == StorePostgres && c.PostgresDSN == "" {
		return fmt.Errorf("store postgres requires postgres_dsn or $%s", EnvPostgresDSN)
	}
	if c.PercentUnit != UnitBps && c.PercentUnit != UnitPercent {
		return fmt.Errorf("invalid percent_unit %q: want bps or percent", c.PercentUnit)
	}
	if c.LiquidityLockDays < 0 {
		return fmt.Errorf("liquidity_lock_days must not be negative")
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level: %w", err)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("invalid log_format %q: want text or json", c.LogFormat)
	}
	return nil
}

// Get returns a setting by its JSON key.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "default_wallet":
		return c.DefaultWallet, nil
	case "store":
		return c.Store, nil
	case "postgres_dsn":
		return c.PostgresDSN, nil
	case "listen_addr":
		return c.ListenAddr, nil
	case "metrics_addr":
		return c.MetricsAddr, nil
	case "percent_unit":
		return c.PercentUnit, nil
	case "liquidity_lock_days":
		return strconv.Itoa(c.LiquidityLockDays), nil
	case "log_level":
		return c.LogLevel, nil
	case "log_format":
		return c.LogFormat, nil
	}
	return "", fmt.Errorf("unknown config key %q", key)
}

// Set updates a setting by its JSON key and validates the result. The
// config is left unchanged on error.
func (c *Config) Set(key, value string) error {
	next := *c
	switch key {
	case "default_wallet":
		next.DefaultWallet = value
	case "store":
		next.Store = value
	case "postgres_dsn":
		next.PostgresDSN = value
	case "listen_addr":
		next.ListenAddr = value
	case "metrics_addr":
		next.MetricsAddr = value
	case "percent_unit":
		next.PercentUnit = value
	case "liquidity_lock_days":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("liquidity_lock_days: %w", err)
		}
		next.LiquidityLockDays = n
	case "log_level":
		next.LogLevel = value
	case "log_format":
		next.LogFormat = value
	default:
		return fmt.Errorf("unknown config key %q", key)
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*c = next
	return nil
}

// Dir returns the config directory.
func (c *Config) Dir() string {
	return c.configDir
}

// WalletsPath is the wallet metadata file.
func (c *Config) WalletsPath() string {
	return filepath.Join(c.configDir, walletsFile)
}

// IssuancesPath is the json store file.
func (c *Config) IssuancesPath() string {
	return filepath.Join(c.configDir, issuancesFile)
}

// --- helpers ---

func defaults() *Config {
	return &Config{
		Store:             defaultStore,
		ListenAddr:        defaultListenAddr,
		PercentUnit:       defaultPercentUnit,
		LiquidityLockDays: defaultLockDays,
		LogLevel:          defaultLogLevel,
		LogFormat:         defaultLogFormat,
	}
}

func loadJSON[T any](path string, into *T) (*T, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return into, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, into); err != nil {
		return nil, err
	}
	return into, nil
}

func saveJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
