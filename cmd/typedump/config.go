package main

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	configFileName = "typedump"
	configFileType = "yaml"
	envPrefix      = "TYPEDUMP"

	cfgKeyModel         = "model"
	cfgKeyLogLevel      = "log_level"
	cfgKeyBackend       = "backend"
	cfgKeyArenaMaxBytes = "arena_max_bytes"

	backendArena  = "arena"
	backendWazero = "wazero"

	defaultLogLevel = "warn"
)

// config is the resolved CLI configuration. Precedence: flag > env >
// config file > default.
type config struct {
	Model         string
	LogLevel      string
	Backend       string
	ArenaMaxBytes uint32
}

// loadConfig reads typedump.yaml from path, or from the working directory
// when path is empty. Only an explicitly named file must exist.
func loadConfig(path string, flags *pflag.FlagSet) (*config, error) {
	v := viper.New()
	v.SetDefault(cfgKeyLogLevel, defaultLogLevel)
	v.SetDefault(cfgKeyBackend, backendArena)
	v.SetDefault(cfgKeyArenaMaxBytes, 0)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for key, flag := range map[string]string{
		cfgKeyModel:    "model",
		cfgKeyLogLevel: "log-level",
		cfgKeyBackend:  "backend",
	} {
		if f := flags.Lookup(flag); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", flag, err)
			}
		}
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(configFileName)
		v.SetConfigType(configFileType)
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &config{
		Model:         strings.ToLower(v.GetString(cfgKeyModel)),
		LogLevel:      v.GetString(cfgKeyLogLevel),
		Backend:       strings.ToLower(v.GetString(cfgKeyBackend)),
		ArenaMaxBytes: v.GetUint32(cfgKeyArenaMaxBytes),
	}
	switch cfg.Backend {
	case backendArena, backendWazero:
	default:
		return nil, fmt.Errorf("unknown backend %q (want %s or %s)", cfg.Backend, backendArena, backendWazero)
	}
	return cfg, nil
}
