// Package schema defines the fixed schema of fungible asset contracts.
//
// The schema declares which metadata fields a genesis carries, in which
// primitive format, and which owned right categories exist. Validation
// of commitments against the schema happens elsewhere; this package only
// supplies the definition, its identifier and the typed enums used to
// read fields by declared type.
package schema

import (
	"errors"
	"fmt"
	"sort"

	"github.com/Klingon-tech/klingnet-rgb/pkg/crypto"
	"github.com/Klingon-tech/klingnet-rgb/pkg/types"
	"github.com/fxamacker/cbor/v2"
)

// Schema errors.
var (
	ErrWrongSchemaID       = errors.New("genesis declares a different schema")
	ErrNotAllFieldsPresent = errors.New("not all required fields present")
)

// FieldType identifies a metadata field.
type FieldType uint16

// Fungible asset metadata fields.
const (
	Ticker FieldType = iota
	Name
	ContractText
	Precision
	IssuedSupply
	DustLimit
	PruneProof
	Timestamp
)

var fieldNames = map[FieldType]string{
	Ticker:       "ticker",
	Name:         "name",
	ContractText: "contract_text",
	Precision:    "precision",
	IssuedSupply: "issued_supply",
	DustLimit:    "dust_limit",
	PruneProof:   "prune_proof",
	Timestamp:    "timestamp",
}

func (f FieldType) String() string {
	if n, ok := fieldNames[f]; ok {
		return n
	}
	return fmt.Sprintf("field(%d)", uint16(f))
}

// OwnedRightsType identifies a category of owned rights.
type OwnedRightsType uint16

// Fungible asset owned right categories.
const (
	Inflation OwnedRightsType = iota
	Assets
	Epoch
	BurnReplace
	Renomination
)

var rightNames = map[OwnedRightsType]string{
	Inflation:    "inflation",
	Assets:       "assets",
	Epoch:        "epoch",
	BurnReplace:  "burn_replace",
	Renomination: "renomination",
}

func (r OwnedRightsType) String() string {
	if n, ok := rightNames[r]; ok {
		return n
	}
	return fmt.Sprintf("right(%d)", uint16(r))
}

// DataFormat is the primitive type a field or state value is encoded in.
type DataFormat uint8

const (
	FormatU8 DataFormat = iota + 1
	FormatU64
	FormatI64
	FormatString
	FormatBytes
	FormatNone // declarative rights carry no state
)

// Occurrences bounds how many times a field or right may appear.
type Occurrences struct {
	_   struct{} `cbor:",toarray"`
	Min uint16
	Max uint16
}

// Occurrence presets.
var (
	Once       = Occurrences{Min: 1, Max: 1}
	NoneOrOnce = Occurrences{Min: 0, Max: 1}
	NoneOrMore = Occurrences{Min: 0, Max: 0xFFFF}
	OnceOrMore = Occurrences{Min: 1, Max: 0xFFFF}
)

// Required reports whether at least one occurrence is mandatory.
func (o Occurrences) Required() bool {
	return o.Min > 0
}

// FieldDef declares a metadata field.
type FieldDef struct {
	_           struct{} `cbor:",toarray"`
	Type        FieldType
	Format      DataFormat
	Occurrences Occurrences
}

// RightDef declares an owned right category.
type RightDef struct {
	_           struct{} `cbor:",toarray"`
	Type        OwnedRightsType
	Format      DataFormat
	Occurrences Occurrences
}

// Schema is a contract schema definition.
type Schema struct {
	_           struct{} `cbor:",toarray"`
	Name        string
	Fields      []FieldDef
	OwnedRights []RightDef
}

// Field returns the definition of a field type.
func (s *Schema) Field(ft FieldType) (FieldDef, bool) {
	for _, f := range s.Fields {
		if f.Type == ft {
			return f, true
		}
	}
	return FieldDef{}, false
}

// Right returns the definition of an owned right category.
func (s *Schema) Right(rt OwnedRightsType) (RightDef, bool) {
	for _, r := range s.OwnedRights {
		if r.Type == rt {
			return r, true
		}
	}
	return RightDef{}, false
}

// Encode returns the canonical CBOR encoding of the schema. Fields and
// rights are sorted by type so that declaration order does not change
// the identifier.
func (s *Schema) Encode() ([]byte, error) {
	c := *s
	c.Fields = append([]FieldDef(nil), s.Fields...)
	c.OwnedRights = append([]RightDef(nil), s.OwnedRights...)
	sort.Slice(c.Fields, func(i, j int) bool { return c.Fields[i].Type < c.Fields[j].Type })
	sort.Slice(c.OwnedRights, func(i, j int) bool { return c.OwnedRights[i].Type < c.OwnedRights[j].Type })

	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		return nil, err
	}
	data, err := em.Marshal(&c)
	if err != nil {
		return nil, fmt.Errorf("schema encode: %w", err)
	}
	return data, nil
}

// ID returns the schema identifier, a tagged hash of its encoding.
func (s *Schema) ID() types.SchemaID {
	data, err := s.Encode()
	if err != nil {
		// Encoding a fixed set of integers and strings cannot fail.
		panic(fmt.Sprintf("schema %q: %v", s.Name, err))
	}
	return types.SchemaID(crypto.TaggedHash(crypto.TagSchema, data))
}
