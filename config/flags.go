package config

import (
	"github.com/spf13/pflag"

	"github.com/Klingon-tech/klingnet-rgb/pkg/types"
)

// Flag names. Each maps to the config key of the same meaning.
const (
	FlagConfig       = "config"
	FlagNetwork      = "network"
	FlagDataDir      = "datadir"
	FlagRPC          = "rpc"
	FlagRPCAddr      = "rpc-addr"
	FlagRPCPort      = "rpc-port"
	FlagRPCAllowed   = "rpc-allowed"
	FlagRPCCORS      = "rpc-cors"
	FlagStashBackend = "stash-backend"
	FlagLogLevel     = "log-level"
	FlagLogFile      = "log-file"
	FlagLogJSON      = "log-json"
)

// flagKeys binds flags to config keys.
var flagKeys = map[string]string{
	FlagNetwork:      "network",
	FlagDataDir:      "datadir",
	FlagRPC:          "rpc.enabled",
	FlagRPCAddr:      "rpc.addr",
	FlagRPCPort:      "rpc.port",
	FlagRPCAllowed:   "rpc.allowed",
	FlagRPCCORS:      "rpc.cors",
	FlagStashBackend: "stash.backend",
	FlagLogLevel:     "log.level",
	FlagLogFile:      "log.file",
	FlagLogJSON:      "log.json",
}

// RegisterFlags adds the node flags to fs. Defaults shown in help are
// those of mainnet; the effective defaults follow the chosen network.
func RegisterFlags(fs *pflag.FlagSet) {
	def := Default(types.Mainnet)
	fs.String(FlagConfig, "", "config file (default <datadir>/rgbd.yaml)")
	fs.String(FlagNetwork, string(def.Network), "base chain: mainnet, testnet, regtest or signet")
	fs.String(FlagDataDir, def.DataDir, "data directory")
	fs.Bool(FlagRPC, def.RPC.Enabled, "enable the JSON-RPC server")
	fs.String(FlagRPCAddr, def.RPC.Addr, "RPC listen address")
	fs.Int(FlagRPCPort, def.RPC.Port, "RPC listen port")
	fs.StringSlice(FlagRPCAllowed, def.RPC.AllowedIPs, "IPs or CIDRs allowed to call the RPC server")
	fs.StringSlice(FlagRPCCORS, nil, "allowed CORS origins")
	fs.String(FlagStashBackend, def.Stash.Backend, "stash backend: badger or memory")
	fs.String(FlagLogLevel, def.Log.Level, "log level: debug, info, warn or error")
	fs.String(FlagLogFile, "", "also write JSON logs to this file")
	fs.Bool(FlagLogJSON, false, "log JSON to stdout")
}
