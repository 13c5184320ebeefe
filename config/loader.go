package config

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/unkn0wn-root/mongocache"
)

// Load reads configuration from configPath (optional) and the environment.
// With envPrefix "MC", MC_NAMESPACE overrides namespace and
// MC_RESOURCES_MAIN_DATABASE overrides resources.main.database when that
// key is present in the file.
func Load(configPath, envPrefix string) (*Config, error) {
	v := viper.New()

	if envPrefix != "" {
		v.SetEnvPrefix(envPrefix)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Top-level keys must be known to viper for env-only overrides.
	v.SetDefault("resource_id", mongocache.DefaultResourceID)
	v.SetDefault("namespace", "")
	v.SetDefault("namespace_separator", mongocache.DefaultNamespaceSeparator)
	v.SetDefault("ttl", 0)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(ttlHook)); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// MustLoad is Load that panics on error, for use in main.
func MustLoad(configPath, envPrefix string) *Config {
	cfg, err := Load(configPath, envPrefix)
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

func LoadFromEnv(envPrefix string) (*Config, error) {
	return Load("", envPrefix)
}

var durationType = reflect.TypeOf(time.Duration(0))

var ttlHook mapstructure.DecodeHookFuncType = func(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if to != durationType {
		return data, nil
	}
	return ParseTTL(data)
}

// ParseTTL accepts a duration string ("90s", "5m") or a whole number of
// seconds given as a number or numeric string.
func ParseTTL(v any) (time.Duration, error) {
	switch t := v.(type) {
	case time.Duration:
		return t, nil
	case int:
		return time.Duration(t) * time.Second, nil
	case int64:
		return time.Duration(t) * time.Second, nil
	case uint64:
		return time.Duration(t) * time.Second, nil
	case float64:
		if t != float64(int64(t)) {
			return 0, fmt.Errorf("ttl %v: whole seconds required", t)
		}
		return time.Duration(t) * time.Second, nil
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, nil
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return time.Duration(n) * time.Second, nil
		}
		d, err := time.ParseDuration(s)
		if err != nil {
			return 0, fmt.Errorf("ttl %q: %w", s, err)
		}
		return d, nil
	case nil:
		return 0, nil
	}
	return 0, fmt.Errorf("ttl: unsupported type %T", v)
}
