package contract

import (
	"fmt"

	"github.com/Klingon-tech/klingnet-rgb/pkg/crypto"
	"github.com/Klingon-tech/klingnet-rgb/pkg/schema"
	"github.com/Klingon-tech/klingnet-rgb/pkg/types"
)

// Genesis is the founding commitment of a contract. It is immutable
// once built; its node id is computed from the canonical encoding.
type Genesis struct {
	schemaID types.SchemaID
	chain    types.Chain
	metadata Metadata
	rights   OwnedRights

	encoded []byte
	nodeID  types.NodeID
}

type genesisWire struct {
	_           struct{} `cbor:",toarray"`
	SchemaID    types.SchemaID
	Chain       string
	Metadata    Metadata
	OwnedRights map[schema.OwnedRightsType][]stateEnvelope
}

// NewGenesis builds and encodes a genesis commitment.
func NewGenesis(schemaID types.SchemaID, chain types.Chain, meta Metadata, rights OwnedRights) (*Genesis, error) {
	if !chain.Valid() {
		return nil, fmt.Errorf("genesis: unknown chain %q", string(chain))
	}
	if meta == nil {
		meta = Metadata{}
	}
	if err := meta.Validate(); err != nil {
		return nil, fmt.Errorf("genesis metadata: %w", err)
	}
	if rights == nil {
		rights = OwnedRights{}
	}
	g := &Genesis{
		schemaID: schemaID,
		chain:    chain,
		metadata: meta.Clone(),
		rights:   rights.Clone(),
	}
	envs, err := encodeRights(g.rights)
	if err != nil {
		return nil, fmt.Errorf("genesis: %w", err)
	}
	data, err := encMode.Marshal(&genesisWire{
		SchemaID:    schemaID,
		Chain:       string(chain),
		Metadata:    g.metadata,
		OwnedRights: envs,
	})
	if err != nil {
		return nil, fmt.Errorf("genesis encode: %w", err)
	}
	g.encoded = data
	g.nodeID = types.NodeID(crypto.TaggedHash(crypto.TagGenesis, data))
	return g, nil
}

// DecodeGenesis parses a canonical genesis encoding.
func DecodeGenesis(data []byte) (*Genesis, error) {
	var w genesisWire
	if err := decMode.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("genesis decode: %w", err)
	}
	chain, err := types.ParseChain(w.Chain)
	if err != nil {
		return nil, fmt.Errorf("genesis decode: %w", err)
	}
	rights, err := decodeRights(w.OwnedRights)
	if err != nil {
		return nil, fmt.Errorf("genesis decode: %w", err)
	}
	g, err := NewGenesis(w.SchemaID, chain, w.Metadata, rights)
	if err != nil {
		return nil, err
	}
	return g, nil
}

// Encode returns the canonical encoding.
func (g *Genesis) Encode() []byte {
	return append([]byte(nil), g.encoded...)
}

// SchemaID returns the schema the genesis declares.
func (g *Genesis) SchemaID() types.SchemaID { return g.schemaID }

// Chain returns the base chain the contract is anchored to.
func (g *Genesis) Chain() types.Chain { return g.chain }

// NodeID returns the genesis node id.
func (g *Genesis) NodeID() types.NodeID { return g.nodeID }

// ContractID returns the contract id. It shares the bytes of the
// genesis node id.
func (g *Genesis) ContractID() types.ContractID { return types.ContractID(g.nodeID) }

// Metadata returns the genesis metadata. The map must not be modified.
func (g *Genesis) Metadata() Metadata { return g.metadata }

// OwnedRights returns the states assigned to a right category, in
// assignment order. Returns nil if the genesis has none.
func (g *Genesis) OwnedRights(rt schema.OwnedRightsType) []OwnedState {
	return g.rights[rt]
}

// HasRights reports whether at least one right of the category is
// declared. An empty category counts as absent.
func (g *Genesis) HasRights(rt schema.OwnedRightsType) bool {
	return len(g.rights[rt]) > 0
}
