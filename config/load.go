package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/Klingon-tech/klingnet-rgb/pkg/types"
)

// EnvPrefix prefixes environment overrides, e.g. RGB_RPC_PORT.
const EnvPrefix = "RGB"

// Load builds the configuration from defaults, the config file, the
// environment and the flags registered by RegisterFlags. fs may be nil.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	var cfgFile string
	if fs != nil {
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
		if f := fs.Lookup(FlagConfig); f != nil {
			cfgFile = f.Value.String()
		}
	}
	if cfgFile == "" {
		cfgFile = os.Getenv(EnvPrefix + "_CONFIG")
	}

	// Keys must be known to viper for env-only values to reach Unmarshal.
	mainnet := Default(types.Mainnet)
	setDefaults(v, mainnet)

	explicit := cfgFile != ""
	if !explicit {
		cfgFile = filepath.Join(v.GetString("datadir"), "rgbd.yaml")
	}
	v.SetConfigFile(cfgFile)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit || !(errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)) {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	}

	network, err := types.ParseChain(v.GetString("network"))
	if err != nil {
		return nil, err
	}
	setDefaults(v, Default(network))

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Network = network
	return cfg, nil
}

func setDefaults(v *viper.Viper, def *Config) {
	v.SetDefault("network", string(def.Network))
	v.SetDefault("datadir", def.DataDir)
	v.SetDefault("rpc.enabled", def.RPC.Enabled)
	v.SetDefault("rpc.addr", def.RPC.Addr)
	v.SetDefault("rpc.port", def.RPC.Port)
	v.SetDefault("rpc.allowed", def.RPC.AllowedIPs)
	v.SetDefault("rpc.cors", def.RPC.CORSOrigins)
	v.SetDefault("stash.backend", def.Stash.Backend)
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.file", def.Log.File)
	v.SetDefault("log.json", def.Log.JSON)
}
