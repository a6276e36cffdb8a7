// Package crypto provides hashing primitives for contract identifiers
// and confidential commitments.
package crypto

import (
	"github.com/Klingon-tech/klingnet-rgb/pkg/types"
	"github.com/zeebo/blake3"
)

// Domain tags for TaggedHash. Each identifier kind gets its own tag so
// that a schema encoding can never collide with a genesis encoding.
const (
	TagSchema          = "rgb:schema"
	TagGenesis         = "rgb:genesis"
	TagTransition      = "rgb:transition"
	TagSealConceal     = "rgb:seal"
	TagValueCommitment = "rgb:value"
)

// Hash computes a BLAKE3-256 hash of the input data.
func Hash(data []byte) types.Hash {
	return blake3.Sum256(data)
}

// TaggedHash computes BLAKE3(BLAKE3(tag) || BLAKE3(tag) || data parts...).
func TaggedHash(tag string, parts ...[]byte) types.Hash {
	tagHash := blake3.Sum256([]byte(tag))
	h := blake3.New()
	h.Write(tagHash[:])
	h.Write(tagHash[:])
	for _, p := range parts {
		h.Write(p)
	}
	var out types.Hash
	copy(out[:], h.Sum(nil))
	return out
}
