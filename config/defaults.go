package config

import (
	"net"
	"strconv"

	"github.com/Klingon-tech/klingnet-rgb/pkg/types"
)

// Default RPC ports per network.
var defaultRPCPorts = map[types.Chain]int{
	types.Mainnet: 8745,
	types.Testnet: 8845,
	types.Regtest: 8945,
	types.Signet:  9045,
}

// Default returns the default node configuration for a network.
// Unknown networks get the mainnet settings with the network kept, so
// that Validate reports them.
func Default(network types.Chain) *Config {
	port, ok := defaultRPCPorts[network]
	if !ok {
		port = defaultRPCPorts[types.Mainnet]
	}
	return &Config{
		Network: network,
		DataDir: DefaultDataDir(),
		RPC: RPCConfig{
			Enabled:    true,
			Addr:       "127.0.0.1",
			Port:       port,
			AllowedIPs: []string{"127.0.0.1"},
		},
		Stash: StashConfig{
			Backend: BackendBadger,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// RPCListenAddr returns host:port for the RPC listener.
func (c *Config) RPCListenAddr() string {
	return net.JoinHostPort(c.RPC.Addr, strconv.Itoa(c.RPC.Port))
}
