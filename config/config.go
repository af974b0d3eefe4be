package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
)

const (
	// DefaultHoldingReserve matches the reserve charged by the state layer.
	DefaultHoldingReserve uint64 = 2_039_280
	defaultNetworkName           = "fusion-local"
	defaultDataDir               = "./fusion-data"
	envPrefix                    = "FUSION_"
)

// Config holds the settings shared by the operator tooling.
type Config struct {
	DataDir     string `toml:"DataDir"`
	NetworkName string `toml:"NetworkName"`
	// HoldingReserve is the native amount locked per open escrow holding.
	HoldingReserve uint64 `toml:"HoldingReserve"`
	// WhitelistBootstrap is the only identity allowed to claim the resolver
	// registry authority, as a hex address.
	WhitelistBootstrap string `toml:"WhitelistBootstrap"`
	LogEnv             string `toml:"LogEnv"`
	LogLevel           string `toml:"LogLevel"`
	LogFile            string `toml:"LogFile,omitempty"`
	LogMaxSizeMB       int    `toml:"LogMaxSizeMB"`
}

// Defaults returns the configuration written when no file exists yet.
func Defaults() Config {
	return Config{
		DataDir:        defaultDataDir,
		NetworkName:    defaultNetworkName,
		HoldingReserve: DefaultHoldingReserve,
		LogEnv:         "dev",
		LogLevel:       "info",
		LogMaxSizeMB:   100,
	}
}

// Load loads the configuration from the given path, creating a default file
// when none exists. A .env file next to the config (or in the working
// directory) is loaded before FUSION_* environment overrides are applied.
func Load(path string) (*Config, error) {
	var cfg *Config
	if _, err := os.Stat(path); os.IsNotExist(err) {
		created, err := createDefault(path)
		if err != nil {
			return nil, err
		}
		cfg = created
	} else if err != nil {
		return nil, err
	} else {
		decoded := Defaults()
		meta, err := toml.DecodeFile(path, &decoded)
		if err != nil {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("config: unknown key %q in %s", undecoded[0].String(), path)
		}
		cfg = &decoded
	}

	if err := loadDotEnv(path); err != nil {
		return nil, err
	}
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.NetworkName) == "" {
		cfg.NetworkName = defaultNetworkName
	}
	return cfg, nil
}

func loadDotEnv(configPath string) error {
	candidates := []string{filepath.Join(filepath.Dir(configPath), ".env"), ".env"}
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err != nil {
			continue
		}
		// Load never overrides variables already present in the environment.
		if err := godotenv.Load(candidate); err != nil {
			return fmt.Errorf("config: load %s: %w", candidate, err)
		}
		return nil
	}
	return nil
}

func applyEnvOverrides(cfg *Config) error {
	setStr(&cfg.DataDir, envPrefix+"DATA_DIR")
	setStr(&cfg.NetworkName, envPrefix+"NETWORK_NAME")
	setStr(&cfg.WhitelistBootstrap, envPrefix+"WHITELIST_BOOTSTRAP")
	setStr(&cfg.LogEnv, envPrefix+"LOG_ENV")
	setStr(&cfg.LogLevel, envPrefix+"LOG_LEVEL")
	setStr(&cfg.LogFile, envPrefix+"LOG_FILE")
	if err := setUint64(&cfg.HoldingReserve, envPrefix+"HOLDING_RESERVE"); err != nil {
		return err
	}
	return setInt(&cfg.LogMaxSizeMB, envPrefix+"LOG_MAX_SIZE_MB")
}

func setStr(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		*dst = strings.TrimSpace(v)
	}
}

func setUint64(dst *uint64, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return nil
	}
	parsed, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return fmt.Errorf("config: %s: %w", key, err)
	}
	*dst = parsed
	return nil
}

func setInt(dst *int, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return nil
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("config: %s: %w", key, err)
	}
	*dst = parsed
	return nil
}

// Validate checks the configuration for values the tooling cannot run with.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config: nil config")
	}
	if strings.TrimSpace(c.DataDir) == "" {
		return errors.New("config: DataDir is required")
	}
	if c.HoldingReserve == 0 {
		return errors.New("config: HoldingReserve must be positive")
	}
	if c.LogMaxSizeMB < 0 {
		return errors.New("config: LogMaxSizeMB must not be negative")
	}
	if bootstrap := strings.TrimSpace(c.WhitelistBootstrap); bootstrap != "" {
		if !common.IsHexAddress(bootstrap) {
			return fmt.Errorf("config: WhitelistBootstrap %q is not a hex address", bootstrap)
		}
		if common.HexToAddress(bootstrap) == (common.Address{}) {
			return errors.New("config: WhitelistBootstrap must not be the zero address")
		}
	}
	return nil
}

// Bootstrap returns the configured whitelist bootstrap identity, or the zero
// address when unset.
func (c *Config) Bootstrap() common.Address {
	bootstrap := strings.TrimSpace(c.WhitelistBootstrap)
	if !common.IsHexAddress(bootstrap) {
		return common.Address{}
	}
	return common.HexToAddress(bootstrap)
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := Defaults()
	if err := persist(path, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
