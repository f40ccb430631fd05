package config

import (
	"encoding/json"
	"fmt"
	"log"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/6529-Collections/6529stats/pkg/constants"
	"github.com/spf13/viper"
)

type Config struct {
	LogZapMode               string `mapstructure:"LOG_ZAP_MODE"`
	PrintConfigurationToLogs string `mapstructure:"PRINT_CONFIGURATION_TO_LOGS"`
	RPCPort                  int    `mapstructure:"RPC_PORT"`
	BadgerPath               string `mapstructure:"BADGER_PATH"`
	SqlitePath               string `mapstructure:"SQLITE_PATH"`
	// Comma separated list of chainId=url pairs
	ChainRpcUrls           string `mapstructure:"CHAIN_RPC_URLS"`
	WatcherMaxChunkSize    uint64 `mapstructure:"WATCHER_MAX_CHUNK_SIZE"`
	WatcherStartBlocks     string `mapstructure:"WATCHER_START_BLOCKS"`
	RegistryFile           string `mapstructure:"REGISTRY_FILE"`
	LedgerSparseCompaction bool   `mapstructure:"LEDGER_SPARSE_COMPACTION"`
	EventTimeoutSeconds    int    `mapstructure:"EVENT_TIMEOUT_SECONDS"`
	EventMaxRetrySeconds   int    `mapstructure:"EVENT_MAX_RETRY_SECONDS"`
}

var lock = &sync.Mutex{}
var config *Config

var Get = get

func get() Config {
	if config == nil {
		lock.Lock()
		defer lock.Unlock()
		if config == nil {
			c := loadConfig()
			config = &c
		}
	}
	return *config
}

func loadConfig() Config {
	viperAddConfigFile()
	viperAddEnv()
	viperAddDefaults()
	cfg := initializeCfg()
	debugConfig(cfg)
	return cfg
}

func viperAddConfigFile() {
	viper.AddConfigPath(".")
	viper.SetConfigName("config")
	viper.SetConfigType("env")
}

func viperAddEnv() {
	viper.AutomaticEnv()
	// This makes sure that all envs are binded even if they are not represented in config file (https://github.com/spf13/viper/issues/584)
	valueOfConfig := reflect.ValueOf(&Config{}).Elem()
	fieldsOfConfig := reflect.TypeOf(&Config{}).Elem()
	for i := 0; i < valueOfConfig.NumField(); i++ {
		field, _ := fieldsOfConfig.FieldByName(valueOfConfig.Type().Field(i).Name)
		mapStructureVal := field.Tag.Get("mapstructure")
		err := viper.BindEnv(mapStructureVal)
		if err != nil {
			panic(fmt.Sprintf("Error binding env val '%v': %v", mapStructureVal, err))
		}
	}
}

func viperAddDefaults() {
	viper.SetDefault("RPC_PORT", 8080)
	viper.SetDefault("BADGER_PATH", "./db/badger")
	viper.SetDefault("SQLITE_PATH", "./db/sqlite/sqlite")
	viper.SetDefault("WATCHER_MAX_CHUNK_SIZE", 2000)
	viper.SetDefault("EVENT_TIMEOUT_SECONDS", 30)
	viper.SetDefault("EVENT_MAX_RETRY_SECONDS", 300)
}

func initializeCfg() Config {
	var cfg Config
	err := viper.ReadInConfig()
	if err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		} else {
			panic(fmt.Sprintf("fatal error reading config file: %v", err))
		}
	}

	err = viper.Unmarshal(&cfg)
	if err != nil {
		panic(fmt.Sprintf("error unmarshaling config: %v", err))
	}
	return cfg
}

func debugConfig(cfg Config) {
	if cfg.PrintConfigurationToLogs == "true" {
		b, err := json.Marshal(cfg)
		var result string
		if err != nil {
			result = "[FAILED TO CONVERT CONF TO STRING]"
		} else {
			result = string(b)
		}
		log.Printf("[APP CONFIGURATION]: %v\n", result)
	}
}

// ParseChainMap parses "1=a,80094=b" style values into a chainId keyed map.
func ParseChainMap(raw string) (map[uint64]string, error) {
	result := map[uint64]string{}
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		idx := strings.Index(pair, "=")
		if idx <= 0 || idx == len(pair)-1 {
			return nil, fmt.Errorf("invalid chain entry %q, expected chainId=value", pair)
		}
		chainID, err := strconv.ParseUint(strings.TrimSpace(pair[:idx]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid chain id in %q: %w", pair, err)
		}
		if chainID == constants.GLOBAL_CHAIN_ID {
			return nil, fmt.Errorf("invalid chain id in %q: %d is reserved", pair, chainID)
		}
		result[chainID] = strings.TrimSpace(pair[idx+1:])
	}
	return result, nil
}
