package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// EnsureAPIToken returns the local API bearer token, generating and
// persisting a fresh one on first run.
func EnsureAPIToken(cfg Config) (string, error) {
	return ensureAPITokenWith(newFileBackend(configFilePath()), cfg)
}

func ensureAPITokenWith(b Backend, cfg Config) (string, error) {
	if cfg.Server.APIToken != "" {
		return cfg.Server.APIToken, nil
	}
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating api token: %w", err)
	}
	token := hex.EncodeToString(buf)
	if err := b.SetString("server.api_token", token); err != nil {
		return "", fmt.Errorf("persisting api token: %w", err)
	}
	return token, nil
}
