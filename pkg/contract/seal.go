// Package contract models the validated commitments a client receives
// for an asset contract: the genesis, state transitions, their metadata
// and the owned state they assign to single-use seals.
//
// Commitments arrive here already checked for cryptographic integrity;
// this package only represents them, encodes them canonically and
// derives their identifiers.
package contract

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/Klingon-tech/klingnet-rgb/pkg/crypto"
	"github.com/Klingon-tech/klingnet-rgb/pkg/types"
)

// ErrWitnessVout is returned when a seal that points into a future
// witness transaction is resolved to a concrete outpoint.
var ErrWitnessVout = errors.New("seal references an output of the witness transaction")

// ErrSealKind is returned for a seal whose kind is neither SealTxOutpoint
// nor SealWitnessVout.
var ErrSealKind = errors.New("unknown seal kind")

// SealKind tells how a revealed seal names its output.
type SealKind uint8

const (
	// SealTxOutpoint binds to an existing output of a known transaction.
	SealTxOutpoint SealKind = iota + 1
	// SealWitnessVout binds to an output of the transaction that will
	// carry the commitment itself.
	SealWitnessVout
)

// SealDefinition is a revealed single-use seal.
type SealDefinition struct {
	_        struct{} `cbor:",toarray"`
	Kind     SealKind
	TxID     types.Hash // zero for witness seals
	Vout     uint32
	Blinding uint64
}

// TxOutpointSeal returns a seal bound to an existing outpoint.
func TxOutpointSeal(op types.Outpoint, blinding uint64) SealDefinition {
	return SealDefinition{Kind: SealTxOutpoint, TxID: op.TxID, Vout: op.Index, Blinding: blinding}
}

// WitnessVoutSeal returns a seal bound to an output of the witness tx.
func WitnessVoutSeal(vout uint32, blinding uint64) SealDefinition {
	return SealDefinition{Kind: SealWitnessVout, Vout: vout, Blinding: blinding}
}

// Outpoint resolves the seal to a chain output. Witness seals cannot be
// resolved without the witness transaction and fail with ErrWitnessVout.
func (s SealDefinition) Outpoint() (types.Outpoint, error) {
	switch s.Kind {
	case SealTxOutpoint:
		return types.Outpoint{TxID: s.TxID, Index: s.Vout}, nil
	case SealWitnessVout:
		return types.Outpoint{}, ErrWitnessVout
	default:
		return types.Outpoint{}, fmt.Errorf("%w %d", ErrSealKind, s.Kind)
	}
}

// Validate checks the seal kind.
func (s SealDefinition) Validate() error {
	switch s.Kind {
	case SealTxOutpoint, SealWitnessVout:
		return nil
	default:
		return fmt.Errorf("%w %d", ErrSealKind, s.Kind)
	}
}

// Conceal returns the commitment that replaces the seal when it is not
// disclosed.
func (s SealDefinition) Conceal() types.Hash {
	var buf [1 + types.HashSize + 4 + 8]byte
	buf[0] = byte(s.Kind)
	copy(buf[1:], s.TxID[:])
	binary.LittleEndian.PutUint32(buf[1+types.HashSize:], s.Vout)
	binary.LittleEndian.PutUint64(buf[1+types.HashSize+4:], s.Blinding)
	return crypto.TaggedHash(crypto.TagSealConceal, buf[:])
}

// RevealedValue is a disclosed amount together with its blinding factor.
type RevealedValue struct {
	_        struct{} `cbor:",toarray"`
	Value    uint64
	Blinding types.Hash
}

// Commit returns the commitment that replaces the value when the amount
// is kept confidential.
func (v RevealedValue) Commit() types.Hash {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v.Value)
	return crypto.TaggedHash(crypto.TagValueCommitment, buf[:], v.Blinding[:])
}
