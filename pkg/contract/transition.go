package contract

import (
	"fmt"

	"github.com/Klingon-tech/klingnet-rgb/pkg/crypto"
	"github.com/Klingon-tech/klingnet-rgb/pkg/schema"
	"github.com/Klingon-tech/klingnet-rgb/pkg/types"
)

// TransitionType identifies what a state transition does.
type TransitionType uint16

const (
	TransitionIssue TransitionType = iota
	TransitionTransfer
	TransitionPrune
	TransitionEpoch
	TransitionBurn
	TransitionRenomination
)

// Transition is a state transition node. It closes the seals of its
// parent outpoints and assigns new owned state.
type Transition struct {
	contractID types.ContractID
	kind       TransitionType
	parents    []types.Outpoint
	metadata   Metadata
	rights     OwnedRights

	nodeID types.NodeID
}

type transitionWire struct {
	_           struct{} `cbor:",toarray"`
	ContractID  types.ContractID
	Type        TransitionType
	Parents     []types.Outpoint
	Metadata    Metadata
	OwnedRights map[schema.OwnedRightsType][]stateEnvelope
}

// NewTransition builds a state transition and computes its node id.
func NewTransition(contractID types.ContractID, kind TransitionType, parents []types.Outpoint, meta Metadata, rights OwnedRights) (*Transition, error) {
	if meta == nil {
		meta = Metadata{}
	}
	if err := meta.Validate(); err != nil {
		return nil, fmt.Errorf("transition metadata: %w", err)
	}
	if rights == nil {
		rights = OwnedRights{}
	}
	t := &Transition{
		contractID: contractID,
		kind:       kind,
		parents:    append([]types.Outpoint(nil), parents...),
		metadata:   meta.Clone(),
		rights:     rights.Clone(),
	}
	envs, err := encodeRights(t.rights)
	if err != nil {
		return nil, fmt.Errorf("transition: %w", err)
	}
	data, err := encMode.Marshal(&transitionWire{
		ContractID:  contractID,
		Type:        kind,
		Parents:     t.parents,
		Metadata:    t.metadata,
		OwnedRights: envs,
	})
	if err != nil {
		return nil, fmt.Errorf("transition encode: %w", err)
	}
	t.nodeID = types.NodeID(crypto.TaggedHash(crypto.TagTransition, data))
	return t, nil
}

// NodeID returns the transition node id.
func (t *Transition) NodeID() types.NodeID { return t.nodeID }

// ContractID returns the contract the transition belongs to.
func (t *Transition) ContractID() types.ContractID { return t.contractID }

// Type returns the transition type.
func (t *Transition) Type() TransitionType { return t.kind }

// Parents returns the outpoints whose seals the transition closes.
func (t *Transition) Parents() []types.Outpoint { return t.parents }

// Metadata returns the transition metadata.
func (t *Transition) Metadata() Metadata { return t.metadata }

// OwnedRights returns the states assigned to a right category.
func (t *Transition) OwnedRights(rt schema.OwnedRightsType) []OwnedState {
	return t.rights[rt]
}
