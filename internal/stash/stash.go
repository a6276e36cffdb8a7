// Package stash persists the genesis commitments accepted by the node.
//
// Only inputs are stored. Asset state is always re-derived from them
// and never written to disk.
package stash

import (
	"errors"
	"fmt"

	"github.com/Klingon-tech/klingnet-rgb/internal/log"
	"github.com/Klingon-tech/klingnet-rgb/internal/storage"
	"github.com/Klingon-tech/klingnet-rgb/pkg/contract"
	"github.com/Klingon-tech/klingnet-rgb/pkg/types"
)

var prefixGenesis = []byte("g/") // g/<contractID(32)> -> genesis CBOR

// ErrIDMismatch is returned when a stored genesis does not hash to the
// contract id it is stored under.
var ErrIDMismatch = errors.New("stored genesis does not match its contract id")

// Stash persists genesis commitments.
type Stash struct {
	db storage.DB
}

// New creates a stash on top of db.
func New(db storage.DB) *Stash {
	return &Stash{db: db}
}

// Put stores a genesis under its contract id.
func (s *Stash) Put(g *contract.Genesis) error {
	if err := s.db.Put(genesisKey(g.ContractID()), g.Encode()); err != nil {
		return fmt.Errorf("stash put %s: %w", g.ContractID(), err)
	}
	return nil
}

// PutAll stores several genesis commitments in one batch when the
// database supports it.
func (s *Stash) PutAll(gs []*contract.Genesis) error {
	batcher, ok := s.db.(storage.Batcher)
	if !ok {
		for _, g := range gs {
			if err := s.Put(g); err != nil {
				return err
			}
		}
		return nil
	}
	b := batcher.NewBatch()
	for _, g := range gs {
		if err := b.Put(genesisKey(g.ContractID()), g.Encode()); err != nil {
			return fmt.Errorf("stash batch %s: %w", g.ContractID(), err)
		}
	}
	if err := b.Commit(); err != nil {
		return fmt.Errorf("stash commit: %w", err)
	}
	return nil
}

// Get loads the genesis of a contract. The error wraps
// storage.ErrNotFound when the contract is unknown.
func (s *Stash) Get(id types.ContractID) (*contract.Genesis, error) {
	data, err := s.db.Get(genesisKey(id))
	if err != nil {
		return nil, fmt.Errorf("stash get %s: %w", id, err)
	}
	return decode(id, data)
}

// Has checks if the genesis of a contract is stored.
func (s *Stash) Has(id types.ContractID) (bool, error) {
	return s.db.Has(genesisKey(id))
}

// Delete removes the genesis of a contract.
func (s *Stash) Delete(id types.ContractID) error {
	return s.db.Delete(genesisKey(id))
}

// ForEach iterates over every stored genesis in contract id order.
// Corrupt entries are logged and skipped.
// Return a non-nil error from fn to stop iteration early.
func (s *Stash) ForEach(fn func(*contract.Genesis) error) error {
	return s.db.ForEach(prefixGenesis, func(key, value []byte) error {
		if len(key) != len(prefixGenesis)+types.HashSize {
			return nil // Malformed key, skip.
		}
		var id types.ContractID
		copy(id[:], key[len(prefixGenesis):])

		g, err := decode(id, value)
		if err != nil {
			log.Stash.Warn().Err(err).Str("contract", id.String()).Msg("Skipping corrupt genesis")
			return nil
		}
		return fn(g)
	})
}

// List returns every stored genesis in contract id order.
func (s *Stash) List() ([]*contract.Genesis, error) {
	out := []*contract.Genesis{}
	err := s.ForEach(func(g *contract.Genesis) error {
		out = append(out, g)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func decode(id types.ContractID, data []byte) (*contract.Genesis, error) {
	g, err := contract.DecodeGenesis(data)
	if err != nil {
		return nil, fmt.Errorf("stash %s: %w", id, err)
	}
	if g.ContractID() != id {
		return nil, fmt.Errorf("stash %s: %w", id, ErrIDMismatch)
	}
	return g, nil
}

func genesisKey(id types.ContractID) []byte {
	key := make([]byte, len(prefixGenesis)+types.HashSize)
	copy(key, prefixGenesis)
	copy(key[len(prefixGenesis):], id[:])
	return key
}
