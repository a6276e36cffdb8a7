package fungible

import (
	"errors"
	"fmt"

	"github.com/Klingon-tech/klingnet-rgb/pkg/contract"
	"github.com/Klingon-tech/klingnet-rgb/pkg/schema"
)

// Derivation errors.
var (
	ErrGenesisSeal                 = errors.New("genesis seal references a witness transaction output")
	ErrIssueApplicationUnsupported = errors.New("applying issue transitions is not supported")
)

// ErrorKind classifies a derivation failure.
type ErrorKind uint8

const (
	// SchemaMismatch: the genesis declares a different schema.
	SchemaMismatch ErrorKind = iota + 1
	// MissingField: a required metadata field is absent.
	MissingField
	// InvalidGenesisSeal: a genesis right has a seal that does not name
	// an existing outpoint.
	InvalidGenesisSeal
)

func (k ErrorKind) String() string {
	switch k {
	case SchemaMismatch:
		return "schema mismatch"
	case MissingField:
		return "missing field"
	case InvalidGenesisSeal:
		return "invalid genesis seal"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Error is returned when an asset cannot be derived from a genesis.
// The wrapped error is one of schema.ErrWrongSchemaID, a *FieldError,
// ErrGenesisSeal or contract.ErrSealKind.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("asset derivation: %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// FieldError names the required metadata field that was not present.
type FieldError struct {
	Field schema.FieldType
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%v: %s", schema.ErrNotAllFieldsPresent, e.Field)
}

func (e *FieldError) Unwrap() error { return schema.ErrNotAllFieldsPresent }

func schemaMismatch(err error) error {
	return &Error{Kind: SchemaMismatch, Err: err}
}

func missingField(ft schema.FieldType) error {
	return &Error{Kind: MissingField, Err: &FieldError{Field: ft}}
}

// invalidSeal reports a genesis right whose seal does not resolve to an
// outpoint. Witness seals map to ErrGenesisSeal; any other cause is kept.
func invalidSeal(rt schema.OwnedRightsType, index int, err error) error {
	if errors.Is(err, contract.ErrWitnessVout) {
		err = ErrGenesisSeal
	}
	return &Error{Kind: InvalidGenesisSeal, Err: fmt.Errorf("%s[%d]: %w", rt, index, err)}
}
