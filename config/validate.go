package config

import (
	"fmt"
	"net"

	"github.com/Klingon-tech/klingnet-rgb/internal/log"
)

// Validate checks runtime node config for obvious operator mistakes.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if !cfg.Network.Valid() {
		return fmt.Errorf("network %q is not one of mainnet, testnet3, regtest, signet", string(cfg.Network))
	}
	if cfg.RPC.Port < 0 || cfg.RPC.Port > 65535 {
		return fmt.Errorf("rpc.port must be in range [0, 65535]")
	}
	for i, entry := range cfg.RPC.AllowedIPs {
		if _, _, err := net.ParseCIDR(entry); err == nil {
			continue
		}
		if net.ParseIP(entry) == nil {
			return fmt.Errorf("rpc.allowed[%d] %q is not an IP or CIDR", i, entry)
		}
	}
	switch cfg.Stash.Backend {
	case BackendBadger:
		if cfg.DataDir == "" {
			return fmt.Errorf("datadir is required for the badger stash")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("stash.backend must be %q or %q", BackendBadger, BackendMemory)
	}
	if cfg.Log.Level != "" && !log.ValidLevel(cfg.Log.Level) {
		return fmt.Errorf("log.level %q is not one of trace, debug, info, warn, error", cfg.Log.Level)
	}
	return nil
}
