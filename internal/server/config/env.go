package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix marks the variables read by the environment layer.
// BLOG_RATE_LIMIT_BURST maps to the rate_limit_burst key.
const EnvPrefix = "BLOG_"

const corsOriginsKey = "cors_allowed_origins"

// parseEnv overlays BLOG_* variables onto config. Only variables that are set
// change a field; values that do not parse are reported together and leave
// the rest of the overlay in place.
func parseEnv(config *Config, provider koanf.Provider) error {
	k := koanf.New(".")
	if err := k.Load(provider, nil); err != nil {
		return fmt.Errorf("load env: %w", err)
	}

	if err := k.UnmarshalWithConf("", config, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return fmt.Errorf("env: %w", err)
	}
	if k.Exists(corsOriginsKey) {
		config.CORSAllowedOrigins = splitList(k.String(corsOriginsKey))
	}
	return nil
}

func envProvider() koanf.Provider {
	return env.Provider(EnvPrefix, ".", envKey)
}

func envKey(s string) string {
	return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
}

func splitList(v string) []string {
	out := make([]string, 0)
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
