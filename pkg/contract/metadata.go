package contract

import (
	"errors"
	"fmt"
	"math"

	"github.com/Klingon-tech/klingnet-rgb/pkg/schema"
)

// ErrValueRange is returned when a metadata value does not fit its
// declared format.
var ErrValueRange = errors.New("metadata value out of range for its format")

// Value is one typed metadata value.
type Value struct {
	_      struct{} `cbor:",toarray"`
	Format schema.DataFormat
	Uint   uint64
	Int    int64
	Str    string
	Bytes  []byte
}

// U8Value, U64Value, I64Value, StringValue and BytesValue build typed values.
func U8Value(v uint8) Value      { return Value{Format: schema.FormatU8, Uint: uint64(v)} }
func U64Value(v uint64) Value    { return Value{Format: schema.FormatU64, Uint: v} }
func I64Value(v int64) Value     { return Value{Format: schema.FormatI64, Int: v} }
func StringValue(v string) Value { return Value{Format: schema.FormatString, Str: v} }
func BytesValue(v []byte) Value  { return Value{Format: schema.FormatBytes, Bytes: v} }

// Metadata holds the metadata fields of a node by field type.
type Metadata map[schema.FieldType][]Value

// Add appends values to a field.
func (m Metadata) Add(ft schema.FieldType, values ...Value) Metadata {
	m[ft] = append(m[ft], values...)
	return m
}

// U8 returns every u8 value of a field. Values above 255 are skipped.
func (m Metadata) U8(ft schema.FieldType) []uint8 {
	var out []uint8
	for _, v := range m[ft] {
		if v.Format == schema.FormatU8 && v.Uint <= math.MaxUint8 {
			out = append(out, uint8(v.Uint))
		}
	}
	return out
}

// U64 returns every u64 value of a field.
func (m Metadata) U64(ft schema.FieldType) []uint64 {
	var out []uint64
	for _, v := range m[ft] {
		if v.Format == schema.FormatU64 {
			out = append(out, v.Uint)
		}
	}
	return out
}

// I64 returns every i64 value of a field.
func (m Metadata) I64(ft schema.FieldType) []int64 {
	var out []int64
	for _, v := range m[ft] {
		if v.Format == schema.FormatI64 {
			out = append(out, v.Int)
		}
	}
	return out
}

// Strings returns every string value of a field.
func (m Metadata) Strings(ft schema.FieldType) []string {
	var out []string
	for _, v := range m[ft] {
		if v.Format == schema.FormatString {
			out = append(out, v.Str)
		}
	}
	return out
}

// Validate checks that every value fits its declared format.
func (m Metadata) Validate() error {
	for ft, vs := range m {
		for i, v := range vs {
			if v.Format == schema.FormatU8 && v.Uint > math.MaxUint8 {
				return fmt.Errorf("%s[%d]: %w: %d > %d", ft, i, ErrValueRange, v.Uint, math.MaxUint8)
			}
		}
	}
	return nil
}

// Clone returns a deep copy.
func (m Metadata) Clone() Metadata {
	out := make(Metadata, len(m))
	for k, vs := range m {
		out[k] = append([]Value(nil), vs...)
	}
	return out
}
