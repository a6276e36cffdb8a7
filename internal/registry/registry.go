// Package registry keeps the assets known to the node, keyed by
// contract id.
//
// Assets enter the registry once, when their genesis is derived, and
// stay for the lifetime of the process. Readers get clones; writers go
// through Update one at a time.
package registry

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"runtime"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/Klingon-tech/klingnet-rgb/internal/fungible"
	"github.com/Klingon-tech/klingnet-rgb/internal/log"
	"github.com/Klingon-tech/klingnet-rgb/internal/stash"
	"github.com/Klingon-tech/klingnet-rgb/pkg/contract"
	"github.com/Klingon-tech/klingnet-rgb/pkg/schema"
	"github.com/Klingon-tech/klingnet-rgb/pkg/types"
)

// Registry errors.
var (
	ErrExists   = errors.New("asset already registered")
	ErrNotFound = errors.New("asset not found")
)

// Registry is a concurrency-safe cache of derived assets.
type Registry struct {
	mu     sync.RWMutex
	assets map[types.ContractID]*fungible.Asset
	stash  *stash.Stash // nil keeps the registry in memory only
	schema *schema.Schema
}

// New creates a registry. Accepted genesis commitments are written to
// st when it is non-nil.
func New(st *stash.Stash) *Registry {
	return &Registry{
		assets: make(map[types.ContractID]*fungible.Asset),
		stash:  st,
		schema: schema.Fungible(),
	}
}

// Derive derives an asset from its genesis, stashes the genesis and
// registers the asset. It returns a snapshot of the new asset.
func (r *Registry) Derive(g *contract.Genesis) (*fungible.Asset, error) {
	asset, err := fungible.FromGenesis(g, r.schema)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.assets[asset.ID()]; ok {
		return nil, fmt.Errorf("%w: %s", ErrExists, asset.ID())
	}
	if r.stash != nil {
		if err := r.stash.Put(g); err != nil {
			return nil, err
		}
	}
	r.assets[asset.ID()] = asset

	logger := log.WithContract(log.Registry, asset.ID().String())
	logger.Info().
		Str("ticker", asset.Ticker()).
		Uint8("precision", asset.FractionalBits()).
		Uint64("issued", asset.Supply().KnownCirculating.Atomic()).
		Msg("Asset registered")
	return asset.Clone(), nil
}

// DeriveAll derives a batch of genesis commitments and registers them
// together. Nothing is registered or stashed unless every genesis
// derives and none is already known.
func (r *Registry) DeriveAll(gs []*contract.Genesis) ([]*fungible.Asset, error) {
	assets := make([]*fungible.Asset, len(gs))
	for i, g := range gs {
		a, err := fungible.FromGenesis(g, r.schema)
		if err != nil {
			return nil, fmt.Errorf("genesis %d: %w", i, err)
		}
		assets[i] = a
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[types.ContractID]struct{}, len(assets))
	for _, a := range assets {
		if _, ok := r.assets[a.ID()]; ok {
			return nil, fmt.Errorf("%w: %s", ErrExists, a.ID())
		}
		if _, ok := seen[a.ID()]; ok {
			return nil, fmt.Errorf("%w: %s repeated in batch", ErrExists, a.ID())
		}
		seen[a.ID()] = struct{}{}
	}
	if r.stash != nil && len(gs) > 0 {
		if err := r.stash.PutAll(gs); err != nil {
			return nil, err
		}
	}

	out := make([]*fungible.Asset, len(assets))
	for i, a := range assets {
		r.assets[a.ID()] = a
		out[i] = a.Clone()
	}
	log.Registry.Info().Int("assets", len(assets)).Msg("Asset batch registered")
	return out, nil
}

// Get returns a snapshot of an asset.
func (r *Registry) Get(id types.ContractID) (*fungible.Asset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.assets[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return a.Clone(), nil
}

// Has reports whether an asset is registered.
func (r *Registry) Has(id types.ContractID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.assets[id]
	return ok
}

// Update runs fn on the registered asset while holding the write lock.
// Changes made by fn are kept even if it returns an error. After fn
// succeeds every amount held by the asset must still carry its
// precision.
func (r *Registry) Update(id types.ContractID, fn func(*fungible.Asset) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.assets[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err := fn(a); err != nil {
		return err
	}
	if err := a.CheckPrecision(); err != nil {
		return fmt.Errorf("update %s: %w", id, err)
	}
	return nil
}

// List returns snapshots of every asset, ordered by ticker then id.
func (r *Registry) List() []*fungible.Asset {
	r.mu.RLock()
	out := make([]*fungible.Asset, 0, len(r.assets))
	for _, a := range r.assets {
		out = append(out, a.Clone())
	}
	r.mu.RUnlock()

	slices.SortFunc(out, func(a, b *fungible.Asset) int {
		if c := cmp.Compare(a.Ticker(), b.Ticker()); c != 0 {
			return c
		}
		ai, bi := a.ID(), b.ID()
		return cmp.Compare(string(ai[:]), string(bi[:]))
	})
	return out
}

// Len returns the number of registered assets.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.assets)
}

// Load derives every stashed genesis and registers the assets not yet
// present. It returns the number of assets added.
func (r *Registry) Load(ctx context.Context) (int, error) {
	if r.stash == nil {
		return 0, nil
	}
	defer log.Benchmark("registry load")()

	gs, err := r.stash.List()
	if err != nil {
		return 0, fmt.Errorf("load stash: %w", err)
	}

	assets := make([]*fungible.Asset, len(gs))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.GOMAXPROCS(0))
	for i, g := range gs {
		i, g := i, g
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			a, err := fungible.FromGenesis(g, r.schema)
			if err != nil {
				return fmt.Errorf("derive %s: %w", g.ContractID(), err)
			}
			assets[i] = a
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	added := 0
	for _, a := range assets {
		if _, ok := r.assets[a.ID()]; ok {
			continue
		}
		r.assets[a.ID()] = a
		added++
	}
	log.Registry.Info().Int("assets", added).Msg("Stash loaded")
	return added, nil
}
