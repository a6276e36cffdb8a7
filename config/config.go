// Package config handles rgbd node configuration.
//
// Settings come from, in increasing priority: per-network defaults, the
// config file, RGB_* environment variables and command-line flags.
package config

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/Klingon-tech/klingnet-rgb/pkg/types"
)

// Stash backends.
const (
	BackendBadger = "badger"
	BackendMemory = "memory"
)

// Config holds node runtime configuration.
type Config struct {
	// Core
	Network types.Chain `mapstructure:"network"`
	DataDir string      `mapstructure:"datadir"`

	// RPC server
	RPC RPCConfig `mapstructure:"rpc"`

	// Genesis stash
	Stash StashConfig `mapstructure:"stash"`

	// Logging
	Log LogConfig `mapstructure:"log"`
}

// RPCConfig holds RPC server settings.
type RPCConfig struct {
	Enabled     bool     `mapstructure:"enabled"`
	Addr        string   `mapstructure:"addr"`
	Port        int      `mapstructure:"port"`
	AllowedIPs  []string `mapstructure:"allowed"`
	CORSOrigins []string `mapstructure:"cors"` // Allowed CORS origins ("*" = all).
}

// StashConfig selects where accepted genesis commitments are kept.
type StashConfig struct {
	Backend string `mapstructure:"backend"` // badger or memory
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
	JSON  bool   `mapstructure:"json"`
}

// DefaultDataDir returns the platform-specific default data directory.
//
//	Linux:   ~/.rgbd
//	macOS:   ~/Library/Application Support/RGB
//	Windows: %APPDATA%\RGB
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".rgbd"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "RGB")
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "RGB")
		}
		return filepath.Join(home, "AppData", "Roaming", "RGB")
	default:
		return filepath.Join(home, ".rgbd")
	}
}

// ChainDataDir returns the network-specific data directory.
func (c *Config) ChainDataDir() string {
	return filepath.Join(c.DataDir, string(c.Network))
}

// StashDir returns the genesis stash database directory.
func (c *Config) StashDir() string {
	return filepath.Join(c.ChainDataDir(), "stash")
}

// LogsDir returns the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// ConfigFile returns the default config file path.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.DataDir, "rgbd.yaml")
}

// RPCEndpoint returns the URL clients use to reach the RPC server.
func (c *Config) RPCEndpoint() string {
	return "http://" + c.RPCListenAddr() + "/"
}
