package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "fusion.toml")
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, DefaultHoldingReserve, cfg.HoldingReserve)
	require.Equal(t, "fusion-local", cfg.NetworkName)
	require.NoError(t, cfg.Validate())

	_, err = os.Stat(path)
	require.NoError(t, err)

	again, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg, again)
}

func TestLoadParsesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fusion.toml")
	contents := `DataDir = "./state"
NetworkName = "devnet"
HoldingReserve = 5000
WhitelistBootstrap = "0x1111111111111111111111111111111111111111"
LogEnv = "prod"
LogLevel = "debug"
LogFile = "fusion.log"
LogMaxSizeMB = 10
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "./state", cfg.DataDir)
	require.Equal(t, "devnet", cfg.NetworkName)
	require.Equal(t, uint64(5000), cfg.HoldingReserve)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, 10, cfg.LogMaxSizeMB)
	require.Equal(t, common.HexToAddress("0x1111111111111111111111111111111111111111"), cfg.Bootstrap())
	require.NoError(t, cfg.Validate())
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fusion.toml")
	require.NoError(t, os.WriteFile(path, []byte("ListenAddress = \":6001\"\n"), 0o644))
	_, err := Load(path)
	require.ErrorContains(t, err, "ListenAddress")
}

func TestEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fusion.toml")
	require.NoError(t, os.WriteFile(path, []byte("HoldingReserve = 1\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("FUSION_NETWORK_NAME=from-dotenv\nFUSION_DATA_DIR=from-dotenv\n"), 0o644))

	t.Setenv("FUSION_HOLDING_RESERVE", "42")
	t.Setenv("FUSION_DATA_DIR", "from-env")
	t.Setenv("FUSION_NETWORK_NAME", "")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, uint64(42), cfg.HoldingReserve)
	require.Equal(t, "from-env", cfg.DataDir)
	// An empty variable set by the process wins over .env and is ignored.
	require.Equal(t, "fusion-local", cfg.NetworkName)

	t.Setenv("FUSION_LOG_MAX_SIZE_MB", "lots")
	_, err = Load(path)
	require.ErrorContains(t, err, "FUSION_LOG_MAX_SIZE_MB")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"empty data dir", func(c *Config) { c.DataDir = " " }, false},
		{"zero reserve", func(c *Config) { c.HoldingReserve = 0 }, false},
		{"negative log size", func(c *Config) { c.LogMaxSizeMB = -1 }, false},
		{"bad bootstrap", func(c *Config) { c.WhitelistBootstrap = "not-an-address" }, false},
		{"zero bootstrap", func(c *Config) { c.WhitelistBootstrap = common.Address{}.Hex() }, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Defaults()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.ok {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
			}
		})
	}
}
