// Package types defines core primitive types for client-validated assets.
package types

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// HashSize is the length of a hash in bytes.
const HashSize = 32

// Hash represents a 256-bit hash value.
type Hash [HashSize]byte

// ContractID identifies a contract. It is derived from the genesis node.
type ContractID Hash

// NodeID identifies a genesis or state transition node.
type NodeID Hash

// SchemaID identifies a schema definition.
type SchemaID Hash

// IsZero returns true if the hash is all zeros.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// String returns the hex-encoded hash.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// Bytes returns a copy of the hash as a byte slice.
func (h Hash) Bytes() []byte {
	b := make([]byte, HashSize)
	copy(b, h[:])
	return b
}

// MarshalJSON encodes the hash as a hex string.
func (h Hash) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.String())
}

// UnmarshalJSON decodes a hex string into a hash.
func (h *Hash) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*h = Hash{}
		return nil
	}
	parsed, err := HexToHash(s)
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// HexToHash converts a hex string to a Hash.
// Returns an error if the string is not exactly 64 hex characters.
func HexToHash(s string) (Hash, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Hash{}, fmt.Errorf("invalid hex: %w", err)
	}
	if len(b) != HashSize {
		return Hash{}, fmt.Errorf("hash must be %d bytes, got %d", HashSize, len(b))
	}
	var h Hash
	copy(h[:], b)
	return h, nil
}

// HexToContractID parses a hex contract id.
func HexToContractID(s string) (ContractID, error) {
	h, err := HexToHash(s)
	if err != nil {
		return ContractID{}, fmt.Errorf("contract id: %w", err)
	}
	return ContractID(h), nil
}

// String returns the hex-encoded contract ID.
func (c ContractID) String() string {
	return Hash(c).String()
}

// MarshalJSON encodes the contract ID as a hex string.
func (c ContractID) MarshalJSON() ([]byte, error) {
	return Hash(c).MarshalJSON()
}

// UnmarshalJSON decodes a hex string into a contract ID.
func (c *ContractID) UnmarshalJSON(data []byte) error {
	return (*Hash)(c).UnmarshalJSON(data)
}

// String returns the hex-encoded node ID.
func (n NodeID) String() string {
	return Hash(n).String()
}

// MarshalJSON encodes the node ID as a hex string.
func (n NodeID) MarshalJSON() ([]byte, error) {
	return Hash(n).MarshalJSON()
}

// UnmarshalJSON decodes a hex string into a node ID.
func (n *NodeID) UnmarshalJSON(data []byte) error {
	return (*Hash)(n).UnmarshalJSON(data)
}

// String returns the hex-encoded schema ID.
func (s SchemaID) String() string {
	return Hash(s).String()
}

// MarshalJSON encodes the schema ID as a hex string.
func (s SchemaID) MarshalJSON() ([]byte, error) {
	return Hash(s).MarshalJSON()
}

// UnmarshalJSON decodes a hex string into a schema ID.
func (s *SchemaID) UnmarshalJSON(data []byte) error {
	return (*Hash)(s).UnmarshalJSON(data)
}
