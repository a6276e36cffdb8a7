// Package node provides a reusable rgbd node that can be embedded in
// any binary.
package node

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Klingon-tech/klingnet-rgb/config"
	"github.com/Klingon-tech/klingnet-rgb/internal/issuer"
	klog "github.com/Klingon-tech/klingnet-rgb/internal/log"
	"github.com/Klingon-tech/klingnet-rgb/internal/registry"
	"github.com/Klingon-tech/klingnet-rgb/internal/rpc"
	"github.com/Klingon-tech/klingnet-rgb/internal/stash"
	"github.com/Klingon-tech/klingnet-rgb/internal/storage"
	"github.com/rs/zerolog"
)

// Node is a fully-initialized rgbd node.
type Node struct {
	cfg    *config.Config
	logger zerolog.Logger

	// Core
	db       storage.DB
	stash    *stash.Stash
	registry *registry.Registry
	issuer   *issuer.Issuer

	// RPC
	rpcServer *rpc.Server
}

// New creates and initializes a new Node. It sets up logging, opens the
// stash and derives every stashed asset, but does NOT start the RPC
// server. Call Start() for that.
func New(ctx context.Context, cfg *config.Config) (*Node, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	cfg.DataDir = expandHome(cfg.DataDir)

	// ── 1. Init logger ──────────────────────────────────────────────
	logFile := cfg.Log.File
	if logFile == "" && cfg.Stash.Backend == config.BackendBadger {
		logsDir := cfg.LogsDir()
		if err := os.MkdirAll(logsDir, 0755); err != nil {
			return nil, fmt.Errorf("creating logs dir: %w", err)
		}
		logFile = filepath.Join(logsDir, "rgbd.log")
	}
	if err := klog.Init(cfg.Log.Level, cfg.Log.JSON, logFile); err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}
	logger := klog.Node

	logger.Info().
		Str("network", cfg.Network.String()).
		Str("stash", cfg.Stash.Backend).
		Msg("Starting RGB node")

	// ── 2. Open storage ─────────────────────────────────────────────
	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}

	// ── 3. Stash and registry ───────────────────────────────────────
	st := stash.New(storage.NewPrefixDB(db, stashPrefix(cfg)))
	reg := registry.New(st)
	n, err := reg.Load(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("load assets: %w", err)
	}
	logger.Info().Int("assets", n).Msg("Assets loaded from stash")

	node := &Node{
		cfg:      cfg,
		logger:   logger,
		db:       db,
		stash:    st,
		registry: reg,
		issuer:   issuer.New(),
	}

	// ── 4. RPC ──────────────────────────────────────────────────────
	if cfg.RPC.Enabled {
		node.rpcServer = rpc.New(cfg.RPCListenAddr(), cfg.Network, reg, node.issuer, cfg.RPC)
	}
	return node, nil
}

// Start begins serving RPC requests.
func (n *Node) Start() error {
	if n.rpcServer == nil {
		n.logger.Warn().Msg("RPC disabled, node is idle")
		return nil
	}
	if err := n.rpcServer.Start(); err != nil {
		return fmt.Errorf("start rpc: %w", err)
	}
	n.logger.Info().Str("addr", n.rpcServer.Addr()).Msg("RPC server started")
	return nil
}

// Stop shuts down the RPC server and closes storage.
func (n *Node) Stop() {
	if n.rpcServer != nil {
		if err := n.rpcServer.Stop(); err != nil {
			n.logger.Warn().Err(err).Msg("RPC shutdown")
		}
	}
	if n.db != nil {
		if err := n.db.Close(); err != nil {
			n.logger.Warn().Err(err).Msg("Closing storage")
		}
	}
	n.logger.Info().Msg("Goodbye!")
}

// RPCAddr returns the address the RPC server is listening on.
func (n *Node) RPCAddr() string {
	if n.rpcServer == nil {
		return ""
	}
	return n.rpcServer.Addr()
}

// Registry returns the node's asset registry.
func (n *Node) Registry() *registry.Registry { return n.registry }

// Config returns the configuration the node runs with.
func (n *Node) Config() *config.Config { return n.cfg }
