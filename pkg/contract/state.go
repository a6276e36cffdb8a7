package contract

import (
	"fmt"

	"github.com/Klingon-tech/klingnet-rgb/pkg/types"
)

// StateKind tags which parts of an owned state are disclosed.
type StateKind uint8

const (
	// KindRevealed discloses both the seal and the amount.
	KindRevealed StateKind = iota + 1
	// KindConfidentialSeal hides the seal, discloses the amount.
	KindConfidentialSeal
	// KindConfidentialAmount discloses the seal, hides the amount.
	KindConfidentialAmount
	// KindConfidential hides both.
	KindConfidential
)

func (k StateKind) String() string {
	switch k {
	case KindRevealed:
		return "revealed"
	case KindConfidentialSeal:
		return "confidential_seal"
	case KindConfidentialAmount:
		return "confidential_amount"
	case KindConfidential:
		return "confidential"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// OwnedState is one assignment of state to a seal. The concrete types
// are Revealed, ConfidentialSeal, ConfidentialAmount and Confidential.
type OwnedState interface {
	Kind() StateKind
	// Conceal returns the fully confidential form of the state.
	Conceal() Confidential
}

// Revealed discloses the seal and the amount.
type Revealed struct {
	Seal  SealDefinition
	Value RevealedValue
}

// ConfidentialSeal discloses the amount but hides the seal.
type ConfidentialSeal struct {
	SealHash types.Hash
	Value    RevealedValue
}

// ConfidentialAmount discloses the seal but hides the amount.
type ConfidentialAmount struct {
	Seal       SealDefinition
	Commitment types.Hash
}

// Confidential hides both the seal and the amount.
type Confidential struct {
	SealHash   types.Hash
	Commitment types.Hash
}

func (Revealed) Kind() StateKind           { return KindRevealed }
func (ConfidentialSeal) Kind() StateKind   { return KindConfidentialSeal }
func (ConfidentialAmount) Kind() StateKind { return KindConfidentialAmount }
func (Confidential) Kind() StateKind       { return KindConfidential }

func (s Revealed) Conceal() Confidential {
	return Confidential{SealHash: s.Seal.Conceal(), Commitment: s.Value.Commit()}
}

func (s ConfidentialSeal) Conceal() Confidential {
	return Confidential{SealHash: s.SealHash, Commitment: s.Value.Commit()}
}

func (s ConfidentialAmount) Conceal() Confidential {
	return Confidential{SealHash: s.Seal.Conceal(), Commitment: s.Commitment}
}

func (s Confidential) Conceal() Confidential { return s }

// ConcealSeal hides the seal of a revealed state.
func (s Revealed) ConcealSeal() ConfidentialSeal {
	return ConfidentialSeal{SealHash: s.Seal.Conceal(), Value: s.Value}
}

// ConcealAmount hides the amount of a revealed state.
func (s Revealed) ConcealAmount() ConfidentialAmount {
	return ConfidentialAmount{Seal: s.Seal, Commitment: s.Value.Commit()}
}

// KnownValue returns the disclosed amount of a state, if any.
func KnownValue(s OwnedState) (uint64, bool) {
	switch st := s.(type) {
	case Revealed:
		return st.Value.Value, true
	case ConfidentialSeal:
		return st.Value.Value, true
	default:
		return 0, false
	}
}
