package config

import (
	"os"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet(t *testing.T) {
	viper.Reset()
	config = nil

	os.Setenv("LOG_ZAP_MODE", "test_mode")
	os.Setenv("CHAIN_RPC_URLS", "1=http://localhost:8545")
	os.Setenv("PRINT_CONFIGURATION_TO_LOGS", "true")

	cfg := Get()

	assert.Equal(t, "test_mode", cfg.LogZapMode)
	assert.Equal(t, "1=http://localhost:8545", cfg.ChainRpcUrls)
	assert.Equal(t, "true", cfg.PrintConfigurationToLogs)

	// Test singleton behavior
	cfg2 := Get()
	assert.Equal(t, cfg, cfg2)
}

func TestLoadConfigWithEnvVars(t *testing.T) {
	viper.Reset()

	os.Setenv("LOG_ZAP_MODE", "debug")
	os.Setenv("RPC_PORT", "9191")
	os.Setenv("LEDGER_SPARSE_COMPACTION", "true")
	defer os.Unsetenv("RPC_PORT")
	defer os.Unsetenv("LEDGER_SPARSE_COMPACTION")

	cfg := loadConfig()

	assert.Equal(t, "debug", cfg.LogZapMode)
	assert.Equal(t, 9191, cfg.RPCPort)
	assert.True(t, cfg.LedgerSparseCompaction)
}

func TestLoadConfigDefaults(t *testing.T) {
	viper.Reset()
	os.Unsetenv("RPC_PORT")
	os.Unsetenv("WATCHER_MAX_CHUNK_SIZE")

	cfg := loadConfig()

	assert.Equal(t, 8080, cfg.RPCPort)
	assert.Equal(t, uint64(2000), cfg.WatcherMaxChunkSize)
	assert.Equal(t, "./db/badger", cfg.BadgerPath)
	assert.Equal(t, 30, cfg.EventTimeoutSeconds)
}

func TestLoadConfigWithConfigFile(t *testing.T) {
	viper.Reset()

	content := []byte(`
LOG_ZAP_MODE=prod
REGISTRY_FILE=./registry.yaml
PRINT_CONFIGURATION_TO_LOGS=true
`)
	err := os.WriteFile("config.env", content, 0644)
	assert.NoError(t, err)
	defer os.Remove("config.env")

	os.Unsetenv("LOG_ZAP_MODE")
	os.Unsetenv("REGISTRY_FILE")
	os.Unsetenv("PRINT_CONFIGURATION_TO_LOGS")

	cfg := loadConfig()

	assert.Equal(t, "prod", cfg.LogZapMode)
	assert.Equal(t, "./registry.yaml", cfg.RegistryFile)
	assert.Equal(t, "true", cfg.PrintConfigurationToLogs)
}

func TestEnvOverridesConfigFile(t *testing.T) {
	viper.Reset()
	content := []byte(`
	LOG_ZAP_MODE=prod
	REGISTRY_FILE=file_value
	`)
	err := os.WriteFile("config.env", content, 0644)
	assert.NoError(t, err)
	defer os.Remove("config.env")

	os.Setenv("LOG_ZAP_MODE", "env_override")

	cfg := loadConfig()

	assert.Equal(t, "env_override", cfg.LogZapMode)
	assert.Equal(t, "file_value", cfg.RegistryFile)
}

func TestParseChainMap(t *testing.T) {
	t.Run("parses pairs", func(t *testing.T) {
		m, err := ParseChainMap("1=http://a, 80094=http://b")
		require.NoError(t, err)
		assert.Equal(t, map[uint64]string{1: "http://a", 80094: "http://b"}, m)
	})

	t.Run("empty is empty", func(t *testing.T) {
		m, err := ParseChainMap("")
		require.NoError(t, err)
		assert.Empty(t, m)
	})

	t.Run("rejects missing value", func(t *testing.T) {
		_, err := ParseChainMap("1=")
		assert.Error(t, err)
	})

	t.Run("rejects bad chain id", func(t *testing.T) {
		_, err := ParseChainMap("mainnet=http://a")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid chain id")
	})

	t.Run("rejects global chain id", func(t *testing.T) {
		_, err := ParseChainMap("0=http://a")
		assert.ErrorContains(t, err, "reserved")
	})
}

func TestMain(m *testing.M) {
	code := m.Run()

	os.Remove("config.env")
	os.Unsetenv("LOG_ZAP_MODE")
	os.Unsetenv("CHAIN_RPC_URLS")
	os.Unsetenv("PRINT_CONFIGURATION_TO_LOGS")

	os.Exit(code)
}
