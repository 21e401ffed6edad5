package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// envPrefix scopes environment overrides, e.g. MOWKIT_LOGGING_LEVEL.
const envPrefix = "MOWKIT"

// searchPaths are tried in order when no explicit config path is given.
var searchPaths = []string{
	"./config.yml",
	"./config/config.yml",
	"/etc/mowkit/config.yml",
}

// Load reads the configuration tree from path, or from the standard
// search locations when path is empty. A .env file next to the process,
// if present, is loaded first so its variables participate in overrides.
// Defaults are applied and the tree is validated before it is returned.
func Load(path string) (*Config, error) {
	if env := os.Getenv(envPrefix + "_ENV_FILE"); env != "" {
		if err := godotenv.Load(env); err != nil {
			return nil, fmt.Errorf("config: load env file %s: %w", env, err)
		}
	} else if _, err := os.Stat(".env"); err == nil {
		// Best effort; a malformed .env is reported, a missing one is not.
		if err := godotenv.Load(".env"); err != nil {
			return nil, fmt.Errorf("config: load .env: %w", err)
		}
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = os.Getenv(envPrefix + "_CONFIG")
	}
	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	// Viper's AutomaticEnv does not surface env-only keys to Unmarshal,
	// so prefixed variables are bound into the tree explicitly.
	bindEnvOverrides(v)

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MustLoad is Load for program start paths where a bad config is fatal.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}

// bindEnvOverrides sets every MOWKIT_* variable under all plausible
// nested keys. MOWKIT_HEALTH_POLL_INTERVAL lands on both
// "health.poll.interval" and "health.poll_interval"; only keys the
// Config tree declares take effect.
func bindEnvOverrides(v *viper.Viper) {
	for _, kv := range os.Environ() {
		pair := strings.SplitN(kv, "=", 2)
		if len(pair) != 2 || !strings.HasPrefix(pair[0], envPrefix+"_") {
			continue
		}
		key := strings.ToLower(strings.TrimPrefix(pair[0], envPrefix+"_"))
		parts := strings.Split(key, "_")
		v.Set(strings.Join(parts, "."), pair[1])
		for i := 1; i < len(parts); i++ {
			v.Set(strings.Join(parts[:i], ".")+"."+strings.Join(parts[i:], "_"), pair[1])
		}
	}
}

func findConfigFile() string {
	for _, candidate := range searchPaths {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}
