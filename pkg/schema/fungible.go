package schema

import (
	"sync"

	"github.com/Klingon-tech/klingnet-rgb/pkg/types"
)

var (
	fungibleOnce sync.Once
	fungible     *Schema
	fungibleID   types.SchemaID
)

// Fungible returns the fixed fungible asset schema.
func Fungible() *Schema {
	fungibleOnce.Do(func() {
		fungible = &Schema{
			Name: "rgb20",
			Fields: []FieldDef{
				{Type: Ticker, Format: FormatString, Occurrences: Once},
				{Type: Name, Format: FormatString, Occurrences: Once},
				{Type: ContractText, Format: FormatString, Occurrences: NoneOrOnce},
				{Type: Precision, Format: FormatU8, Occurrences: Once},
				{Type: IssuedSupply, Format: FormatU64, Occurrences: Once},
				{Type: DustLimit, Format: FormatU64, Occurrences: NoneOrOnce},
				{Type: PruneProof, Format: FormatBytes, Occurrences: NoneOrMore},
				{Type: Timestamp, Format: FormatI64, Occurrences: Once},
			},
			OwnedRights: []RightDef{
				{Type: Inflation, Format: FormatU64, Occurrences: NoneOrMore},
				{Type: Assets, Format: FormatU64, Occurrences: NoneOrMore},
				{Type: Epoch, Format: FormatNone, Occurrences: NoneOrOnce},
				{Type: BurnReplace, Format: FormatNone, Occurrences: NoneOrMore},
				{Type: Renomination, Format: FormatNone, Occurrences: NoneOrOnce},
			},
		}
		fungibleID = fungible.ID()
	})
	return fungible
}

// FungibleID returns the identifier of the fungible asset schema.
func FungibleID() types.SchemaID {
	Fungible()
	return fungibleID
}
