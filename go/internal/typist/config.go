// Package typist is the terminal client: it signs in, talks to the round
// authority over connect and to the gateway over a websocket.
package typist

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	DefaultServerURL = "http://localhost:8080"
	DefaultBotWPM    = 60
)

// FileConfig represents the TOML configuration file. Unset keys are nil so
// flags only get overridden by values the user actually wrote.
type FileConfig struct {
	Server ServerConfig `toml:"server"`
	Bot    BotConfig    `toml:"bot"`
}

type ServerConfig struct {
	URL *string `toml:"url"`
}

type BotConfig struct {
	WPM      *int     `toml:"wpm"`
	Accuracy *float64 `toml:"accuracy"`
}

// LoadConfig reads a TOML config from path. A missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

func xdgHome(env string, fallback ...string) string {
	if v := os.Getenv(env); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(append([]string{home}, fallback...)...)
}

// DefaultConfigPath is $XDG_CONFIG_HOME/typerace/config.toml.
func DefaultConfigPath() string {
	return filepath.Join(xdgHome("XDG_CONFIG_HOME", ".config"), "typerace", "config.toml")
}

// DefaultStateDir holds the saved sign-in and the client log.
func DefaultStateDir() string {
	return filepath.Join(xdgHome("XDG_STATE_HOME", ".local", "state"), "typerace")
}

// GatewayURL turns the server's base URL into its websocket endpoint.
func GatewayURL(serverURL string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("invalid server url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported server url scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	return u.String(), nil
}
