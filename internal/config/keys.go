package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "AURA_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "server.data_dir", typ: kString, env: "AURA_SERVER_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Server.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.DataDir },
	},
	{
		key: "server.api_token", typ: kString, env: "AURA_SERVER_API_TOKEN",
		apply:   func(cfg *Config, v any) { cfg.Server.APIToken = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.APIToken },
	},
	{
		key: "drive.credentials_file", typ: kString, env: "AURA_DRIVE_CREDENTIALS_FILE",
		apply:   func(cfg *Config, v any) { cfg.Drive.CredentialsFile = v.(string) },
		extract: func(cfg Config) any { return cfg.Drive.CredentialsFile },
	},
	{
		key: "enrich.base_url", typ: kString, env: "AURA_ENRICH_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Enrich.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Enrich.BaseURL },
	},
	{
		key: "enrich.model", typ: kString, env: "AURA_ENRICH_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Enrich.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.Enrich.Model },
	},
	{
		key: "enrich.api_key", typ: kString, env: "AURA_ENRICH_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Enrich.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Enrich.APIKey },
	},
	{
		key: "merge.strategy", typ: kString, env: "AURA_MERGE_STRATEGY",
		apply:   func(cfg *Config, v any) { cfg.Merge.Strategy = v.(string) },
		extract: func(cfg Config) any { return cfg.Merge.Strategy },
	},
	{
		key: "log.level", typ: kString, env: "AURA_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func applyBackend(cfg *Config, b Backend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
