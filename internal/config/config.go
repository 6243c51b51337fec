package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "YIELDSCOPE"

// MarketsConfig holds configuration for the markets command.
type MarketsConfig struct {
	RPCURL       string
	Morpho       string
	Markets      []string
	Asset        string
	PGDSN        string
	ChainID      uint64
	Out          string
	Parallelism  int
	RateOverride string
	LogLevel     string
}

// Load merges config file, environment variables, and flags into MarketsConfig.
func Load(cfgFile string, flags *pflag.FlagSet) (MarketsConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"parallelism": 4,
		"log-level":   "info",
	})
	if err != nil {
		return MarketsConfig{}, err
	}

	cfg := MarketsConfig{
		RPCURL:       v.GetString("rpc"),
		Morpho:       v.GetString("morpho"),
		Markets:      getStringSlice(v, "market"),
		Asset:        v.GetString("asset"),
		PGDSN:        v.GetString("pg-dsn"),
		ChainID:      v.GetUint64("chain-id"),
		Out:          v.GetString("out"),
		Parallelism:  v.GetInt("parallelism"),
		RateOverride: v.GetString("rate-override"),
		LogLevel:     v.GetString("log-level"),
	}

	return cfg, nil
}

// CompareConfig holds configuration for the compare command.
type CompareConfig struct {
	Symbol       string
	Mint         string
	KaminoAPI    string
	REST         map[string]string
	RPCURL       string
	AavePool     string
	Asset        string
	Out          string
	Attempts     int
	RetryDelay   time.Duration
	FetchTimeout time.Duration
	LogLevel     string
}

// LoadCompare merges config file, environment variables, and flags into CompareConfig.
func LoadCompare(cfgFile string, flags *pflag.FlagSet) (CompareConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"attempts":      3,
		"retry-delay":   500 * time.Millisecond,
		"fetch-timeout": 10 * time.Second,
		"log-level":     "info",
	})
	if err != nil {
		return CompareConfig{}, err
	}

	cfg := CompareConfig{
		Symbol:       v.GetString("symbol"),
		Mint:         v.GetString("mint"),
		KaminoAPI:    v.GetString("kamino-api"),
		REST:         getStringMap(v, "rest"),
		RPCURL:       v.GetString("rpc"),
		AavePool:     v.GetString("aave-pool"),
		Asset:        v.GetString("asset"),
		Out:          v.GetString("out"),
		Attempts:     v.GetInt("attempts"),
		RetryDelay:   v.GetDuration("retry-delay"),
		FetchTimeout: v.GetDuration("fetch-timeout"),
		LogLevel:     v.GetString("log-level"),
	}

	return cfg, nil
}

// CatalogConfig holds configuration for the catalog command.
type CatalogConfig struct {
	PGDSN    string
	RPCURL   string
	ChainID  uint64
	Markets  []string
	Disable  []string
	LogLevel string
}

// LoadCatalog merges config file, environment variables, and flags into CatalogConfig.
func LoadCatalog(cfgFile string, flags *pflag.FlagSet) (CatalogConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"log-level": "info",
	})
	if err != nil {
		return CatalogConfig{}, err
	}

	return CatalogConfig{
		PGDSN:    v.GetString("pg-dsn"),
		RPCURL:   v.GetString("rpc"),
		ChainID:  v.GetUint64("chain-id"),
		Markets:  getStringSlice(v, "market"),
		Disable:  getStringSlice(v, "disable"),
		LogLevel: v.GetString("log-level"),
	}, nil
}

func newViper(cfgFile string, flags *pflag.FlagSet, defaults map[string]interface{}) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return v, nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}

// getStringMap reads NAME=VALUE pairs from a map, a comma-separated
// string or a string slice (repeated flags).
func getStringMap(v *viper.Viper, key string) map[string]string {
	if !v.IsSet(key) {
		return map[string]string{}
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case map[string]string:
		return typed
	case map[string]interface{}:
		out := make(map[string]string, len(typed))
		for k, v := range typed {
			out[k] = fmt.Sprintf("%v", v)
		}
		return out
	case string:
		return parseStringMap(splitAndClean(typed))
	case []string:
		return parseStringMap(cleanStrings(typed))
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return parseStringMap(cleanStrings(items))
	default:
		return map[string]string{}
	}
}

func parseStringMap(pairs []string) map[string]string {
	out := make(map[string]string)
	for _, pair := range pairs {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key == "" || value == "" {
			continue
		}
		out[key] = value
	}
	return out
}
