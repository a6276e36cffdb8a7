package types

import (
	"bytes"
	"cmp"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// Outpoint references a specific output of a base chain transaction.
// TxID is stored in internal byte order, like chainhash.Hash.
type Outpoint struct {
	TxID  Hash   `json:"txid"`
	Index uint32 `json:"index"`
}

// OutpointFromWire converts a btcd outpoint.
func OutpointFromWire(op wire.OutPoint) Outpoint {
	return Outpoint{TxID: Hash(op.Hash), Index: op.Index}
}

// Wire returns the btcd representation of the outpoint.
func (o Outpoint) Wire() wire.OutPoint {
	return wire.OutPoint{Hash: chainhash.Hash(o.TxID), Index: o.Index}
}

// IsZero returns true if the outpoint has a zero TxID and zero index.
func (o Outpoint) IsZero() bool {
	return o.TxID.IsZero() && o.Index == 0
}

// Compare orders outpoints by txid bytes, then by output index.
func (o Outpoint) Compare(other Outpoint) int {
	if c := bytes.Compare(o.TxID[:], other.TxID[:]); c != 0 {
		return c
	}
	return cmp.Compare(o.Index, other.Index)
}

// String returns "txid:vout" with the txid in the usual reversed display order.
func (o Outpoint) String() string {
	return fmt.Sprintf("%s:%d", chainhash.Hash(o.TxID).String(), o.Index)
}

// ParseOutpoint parses a "txid:vout" string as produced by String.
func ParseOutpoint(s string) (Outpoint, error) {
	txid, vout, ok := strings.Cut(s, ":")
	if !ok {
		return Outpoint{}, fmt.Errorf("outpoint %q: expected txid:vout", s)
	}
	if len(txid) != 2*HashSize {
		return Outpoint{}, fmt.Errorf("outpoint %q: txid must be %d hex chars", s, 2*HashSize)
	}
	h, err := chainhash.NewHashFromStr(txid)
	if err != nil {
		return Outpoint{}, fmt.Errorf("outpoint %q: %w", s, err)
	}
	idx, err := strconv.ParseUint(vout, 10, 32)
	if err != nil {
		return Outpoint{}, fmt.Errorf("outpoint %q: invalid vout: %w", s, err)
	}
	return Outpoint{TxID: Hash(*h), Index: uint32(idx)}, nil
}

// MarshalText encodes the outpoint as "txid:vout". This also lets
// outpoints be used as JSON object keys.
func (o Outpoint) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText decodes a "txid:vout" string.
func (o *Outpoint) UnmarshalText(text []byte) error {
	parsed, err := ParseOutpoint(string(text))
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}

// MarshalJSON encodes the outpoint as a "txid:vout" string.
func (o Outpoint) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.String())
}

// UnmarshalJSON decodes a "txid:vout" string.
func (o *Outpoint) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	return o.UnmarshalText([]byte(s))
}
