package config

import (
	"strings"

	"github.com/spf13/viper"
)

// applyEnvOverrides layers CORPUSD_-prefixed environment variables over
// cfg. Keys map to env names by uppercasing and replacing dots with
// underscores, so `embedding.model` is overridden by
// CORPUSD_EMBEDDING_MODEL.
//
// Config precedence (highest to lowest):
//  1. Environment variables
//  2. config.toml file values
//  3. Defaults from NewDefaultConfig()
func applyEnvOverrides(cfg *Config) {
	v := viper.New()
	v.SetEnvPrefix("CORPUSD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, info := range configKeys {
		if val := v.GetString(key); val != "" {
			// Malformed env values lose to the file value or default.
			_ = info.set(cfg, val)
		}
	}
}
