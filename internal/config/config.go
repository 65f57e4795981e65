package config

import "strings"

type Config struct {
	Server ServerConfig
	Drive  DriveConfig
	Enrich EnrichConfig
	Merge  MergeConfig
	Log    LogConfig
}

type ServerConfig struct {
	Port     int
	DataDir  string
	APIToken string
}

// DriveConfig configures the Google Drive backup gateway. An empty
// CredentialsFile leaves cloud sync disabled; nothing else fails.
type DriveConfig struct {
	CredentialsFile string
}

// EnrichConfig configures the AI enrichment gateway. An empty APIKey leaves
// enrichment disabled.
type EnrichConfig struct {
	BaseURL string
	Model   string
	APIKey  string
}

type MergeConfig struct {
	// Strategy selects how sync reconciles conflicting records:
	// "local-wins" (default) or "last-write-wins".
	Strategy string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:    7788,
			DataDir: defaultDataDir(),
		},
		Enrich: EnrichConfig{
			Model: "gpt-4o-mini",
		},
		Merge: MergeConfig{
			Strategy: "local-wins",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the JSON file backend at
// $XDG_CONFIG_HOME/aura/config.json, then applies AURA_* environment
// variable overrides. Secrets (the enrichment API key) are read from the
// environment only, never from the file.
func Load() (Config, error) {
	return loadWith(newFileBackend(configFilePath()))
}

func loadWith(b Backend) (Config, error) {
	cfg := defaults()
	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}
	applyEnvOverrides(&cfg)
	cfg.Merge.Strategy = strings.ToLower(strings.TrimSpace(cfg.Merge.Strategy))
	return cfg, nil
}
