package fungible

import (
	"errors"
	"testing"
	"time"

	"github.com/Klingon-tech/klingnet-rgb/pkg/amount"
	"github.com/Klingon-tech/klingnet-rgb/pkg/contract"
	"github.com/Klingon-tech/klingnet-rgb/pkg/schema"
	"github.com/Klingon-tech/klingnet-rgb/pkg/types"
)

const testSupply = 1_000_000

func outpoint(b byte, vout uint32) types.Outpoint {
	var h types.Hash
	h[0] = b
	return types.Outpoint{TxID: h, Index: vout}
}

func revealed(op types.Outpoint, v uint64) contract.Revealed {
	return contract.Revealed{
		Seal:  contract.TxOutpointSeal(op, uint64(op.Index)+1),
		Value: contract.RevealedValue{Value: v, Blinding: types.Hash{byte(v)}},
	}
}

func baseMetadata() contract.Metadata {
	m := contract.Metadata{}
	m.Add(schema.Ticker, contract.StringValue("USDT"))
	m.Add(schema.Name, contract.StringValue("Tether"))
	m.Add(schema.Precision, contract.U8Value(8))
	m.Add(schema.IssuedSupply, contract.U64Value(testSupply))
	m.Add(schema.Timestamp, contract.I64Value(1_600_000_000))
	return m
}

func buildGenesis(t *testing.T, meta contract.Metadata, rights contract.OwnedRights) *contract.Genesis {
	t.Helper()
	g, err := contract.NewGenesis(schema.FungibleID(), types.Testnet, meta, rights)
	if err != nil {
		t.Fatalf("NewGenesis: %v", err)
	}
	return g
}

func derive(t *testing.T, rights contract.OwnedRights) *Asset {
	t.Helper()
	a, err := FromGenesis(buildGenesis(t, baseMetadata(), rights), nil)
	if err != nil {
		t.Fatalf("FromGenesis: %v", err)
	}
	return a
}

func TestFromGenesis_Basic(t *testing.T) {
	g := buildGenesis(t, baseMetadata(), nil)
	a, err := FromGenesis(g, schema.Fungible())
	if err != nil {
		t.Fatalf("FromGenesis: %v", err)
	}

	if a.ID() != g.ContractID() {
		t.Errorf("ID = %s, want %s", a.ID(), g.ContractID())
	}
	if a.Ticker() != "USDT" || a.Name() != "Tether" {
		t.Errorf("ticker/name = %q/%q", a.Ticker(), a.Name())
	}
	if _, ok := a.Description(); ok {
		t.Error("Description present without contract text")
	}
	if a.FractionalBits() != 8 {
		t.Errorf("FractionalBits = %d, want 8", a.FractionalBits())
	}
	if a.Chain() != types.Testnet {
		t.Errorf("Chain = %s, want testnet3", a.Chain())
	}
	if want := time.Unix(1_600_000_000, 0).UTC(); !a.Date().Equal(want) {
		t.Errorf("Date = %v, want %v", a.Date(), want)
	}
	if err := a.CheckPrecision(); err != nil {
		t.Errorf("CheckPrecision: %v", err)
	}
}

func TestFromGenesis_PrimaryIssue(t *testing.T) {
	g := buildGenesis(t, baseMetadata(), nil)
	a, err := FromGenesis(g, nil)
	if err != nil {
		t.Fatalf("FromGenesis: %v", err)
	}
	issues := a.KnownIssues()
	if len(issues) != 1 {
		t.Fatalf("issues = %d, want 1", len(issues))
	}
	is := issues[0]
	if !is.IsPrimary() || is.IsSecondary() {
		t.Error("genesis issue should be primary")
	}
	if is.ID != g.NodeID() {
		t.Errorf("issue id = %s, want %s", is.ID, g.NodeID())
	}
	if is.AssetID != g.ContractID() {
		t.Errorf("issue asset id = %s, want %s", is.AssetID, g.ContractID())
	}
	if is.Amount != amount.FromAtomic(8, testSupply) {
		t.Errorf("issue amount = %s, want %d@8", is.Amount, testSupply)
	}

	sup := a.Supply()
	if sup.KnownCirculating != amount.FromAtomic(8, testSupply) {
		t.Errorf("KnownCirculating = %s", sup.KnownCirculating)
	}
	if sup.IsIssuedKnown != nil {
		t.Error("IsIssuedKnown should be undetermined at genesis")
	}
	if _, ok := sup.TotalCirculating(); ok {
		t.Error("TotalCirculating should be absent at genesis")
	}
}

func TestFromGenesis_Description(t *testing.T) {
	meta := baseMetadata()
	meta.Add(schema.ContractText, contract.StringValue("terms"))
	a, err := FromGenesis(buildGenesis(t, meta, nil), nil)
	if err != nil {
		t.Fatalf("FromGenesis: %v", err)
	}
	if d, ok := a.Description(); !ok || d != "terms" {
		t.Errorf("Description = (%q, %v), want (terms, true)", d, ok)
	}
}

func TestFromGenesis_WrongSchema(t *testing.T) {
	g, err := contract.NewGenesis(types.SchemaID{1}, types.Testnet, baseMetadata(), nil)
	if err != nil {
		t.Fatalf("NewGenesis: %v", err)
	}
	a, err := FromGenesis(g, nil)
	if a != nil {
		t.Error("asset returned on failure")
	}
	if !errors.Is(err, schema.ErrWrongSchemaID) {
		t.Fatalf("err = %v, want ErrWrongSchemaID", err)
	}
	var de *Error
	if !errors.As(err, &de) || de.Kind != SchemaMismatch {
		t.Errorf("err = %v, want kind %s", err, SchemaMismatch)
	}
}

func TestFromGenesis_MissingFields(t *testing.T) {
	for _, ft := range []schema.FieldType{schema.Ticker, schema.Name, schema.Precision, schema.IssuedSupply, schema.Timestamp} {
		t.Run(ft.String(), func(t *testing.T) {
			meta := baseMetadata()
			delete(meta, ft)
			a, err := FromGenesis(buildGenesis(t, meta, nil), nil)
			if a != nil {
				t.Error("asset returned on failure")
			}
			if !errors.Is(err, schema.ErrNotAllFieldsPresent) {
				t.Fatalf("err = %v, want ErrNotAllFieldsPresent", err)
			}
			var de *Error
			if !errors.As(err, &de) || de.Kind != MissingField {
				t.Errorf("err = %v, want kind %s", err, MissingField)
			}
			var fe *FieldError
			if !errors.As(err, &fe) || fe.Field != ft {
				t.Errorf("field error = %v, want %s", fe, ft)
			}
		})
	}
}

func TestFromGenesis_WrongFieldType(t *testing.T) {
	meta := baseMetadata()
	meta[schema.Ticker] = []contract.Value{contract.U64Value(5)}
	_, err := FromGenesis(buildGenesis(t, meta, nil), nil)
	var fe *FieldError
	if !errors.As(err, &fe) || fe.Field != schema.Ticker {
		t.Fatalf("err = %v, want missing ticker", err)
	}
}

func TestFromGenesis_ConfidentialInflationDominates(t *testing.T) {
	op := outpoint(1, 0)
	hidden := revealed(outpoint(2, 0), 500).Conceal()
	partial := revealed(outpoint(3, 0), 700).ConcealSeal()

	orders := map[string][]contract.OwnedState{
		"confidential last":  {revealed(op, 300), partial, hidden},
		"confidential first": {hidden, revealed(op, 300), partial},
	}
	for name, inflation := range orders {
		t.Run(name, func(t *testing.T) {
			a := derive(t, contract.OwnedRights{schema.Inflation: inflation})

			if !a.UnknownInflation().IsMax() {
				t.Errorf("UnknownInflation = %s, want max", a.UnknownInflation())
			}
			ops := a.KnownInflationOutpoints()
			if len(ops) != 1 || ops[0] != op {
				t.Fatalf("known inflation outpoints = %v, want [%s]", ops, op)
			}
			if v, _ := a.KnownInflation(op); v != amount.FromAtomic(8, 300) {
				t.Errorf("known inflation = %s, want 300@8", v)
			}
		})
	}
}

func TestFromGenesis_PartialInflation(t *testing.T) {
	a := derive(t, contract.OwnedRights{schema.Inflation: {
		revealed(outpoint(1, 0), 100).ConcealSeal(),
		revealed(outpoint(1, 1), 250).ConcealSeal(),
	}})
	if got := a.UnknownInflation(); got != amount.FromAtomic(8, 350) {
		t.Errorf("UnknownInflation = %s, want 350@8", got)
	}
	if len(a.KnownInflationOutpoints()) != 0 {
		t.Error("confidential seals should not be keyed by outpoint")
	}
}

func TestFromGenesis_PartialInflationSaturates(t *testing.T) {
	a := derive(t, contract.OwnedRights{schema.Inflation: {
		revealed(outpoint(1, 0), amount.MaxAtomic-1).ConcealSeal(),
		revealed(outpoint(1, 1), 5).ConcealSeal(),
	}})
	if !a.UnknownInflation().IsMax() {
		t.Errorf("UnknownInflation = %s, want max", a.UnknownInflation())
	}
	if !a.Supply().MaxCap.IsMax() {
		t.Errorf("MaxCap = %s, want max", a.Supply().MaxCap)
	}
}

func TestFromGenesis_MaxCap(t *testing.T) {
	tests := []struct {
		name      string
		inflation []contract.OwnedState
		want      uint64
	}{
		{"no inflation rights", nil, testSupply},
		{"revealed", []contract.OwnedState{revealed(outpoint(1, 0), 400)}, 400},
		{
			"revealed and confidential seal",
			[]contract.OwnedState{revealed(outpoint(1, 0), 400), revealed(outpoint(2, 0), 600).ConcealSeal()},
			1000,
		},
		{
			"hidden amounts not counted",
			[]contract.OwnedState{revealed(outpoint(1, 0), 400), revealed(outpoint(2, 0), 600).ConcealAmount()},
			400,
		},
		{"all hidden", []contract.OwnedState{revealed(outpoint(2, 0), 600).Conceal()}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rights := contract.OwnedRights{}
			if tt.inflation != nil {
				rights[schema.Inflation] = tt.inflation
			}
			a := derive(t, rights)
			if got := a.Supply().MaxCap; got != amount.FromAtomic(8, tt.want) {
				t.Errorf("MaxCap = %s, want %d@8", got, tt.want)
			}
		})
	}
}

func TestFromGenesis_EmptyInflationCategory(t *testing.T) {
	a := derive(t, contract.OwnedRights{schema.Inflation: {}})
	if got := a.Supply().MaxCap; got != amount.FromAtomic(8, testSupply) {
		t.Errorf("MaxCap = %s, want %d@8", got, testSupply)
	}
}

func TestFromGenesis_PrecisionOutOfRange(t *testing.T) {
	meta := baseMetadata()
	meta[schema.Precision] = []contract.Value{{Format: schema.FormatU8, Uint: 264}}
	if _, err := contract.NewGenesis(schema.FungibleID(), types.Testnet, meta, nil); !errors.Is(err, contract.ErrValueRange) {
		t.Errorf("NewGenesis err = %v, want ErrValueRange", err)
	}

	// Values that bypass construction are still never narrowed.
	g := &genesisOverride{Genesis: buildGenesis(t, baseMetadata(), nil), meta: meta}
	_, err := FromGenesis(g, nil)
	var de *Error
	if !errors.As(err, &de) || de.Kind != MissingField {
		t.Errorf("err = %v, want kind %s", err, MissingField)
	}
}

// genesisOverride serves a genesis with substituted metadata or rights.
type genesisOverride struct {
	*contract.Genesis
	meta   contract.Metadata
	rights contract.OwnedRights
}

func (g *genesisOverride) Metadata() contract.Metadata {
	if g.meta != nil {
		return g.meta
	}
	return g.Genesis.Metadata()
}

func (g *genesisOverride) OwnedRights(rt schema.OwnedRightsType) []contract.OwnedState {
	if g.rights != nil {
		return g.rights[rt]
	}
	return g.Genesis.OwnedRights(rt)
}

func (g *genesisOverride) HasRights(rt schema.OwnedRightsType) bool {
	return len(g.OwnedRights(rt)) > 0
}

func TestFromGenesis_UnknownSealKind(t *testing.T) {
	bad := contract.Revealed{
		Seal:  contract.SealDefinition{Vout: 1},
		Value: contract.RevealedValue{Value: 10},
	}
	for _, rt := range []schema.OwnedRightsType{schema.Assets, schema.Inflation} {
		t.Run(rt.String(), func(t *testing.T) {
			g := &genesisOverride{
				Genesis: buildGenesis(t, baseMetadata(), nil),
				rights:  contract.OwnedRights{rt: {bad}},
			}
			_, err := FromGenesis(g, nil)
			var de *Error
			if !errors.As(err, &de) || de.Kind != InvalidGenesisSeal {
				t.Fatalf("err = %v, want kind %s", err, InvalidGenesisSeal)
			}
			if !errors.Is(err, contract.ErrSealKind) {
				t.Errorf("err = %v, want ErrSealKind", err)
			}
			if errors.Is(err, ErrGenesisSeal) {
				t.Errorf("err = %v, should not report a witness seal", err)
			}
		})
	}
}

func TestFromGenesis_Allocations(t *testing.T) {
	op := outpoint(7, 3)
	g := buildGenesis(t, baseMetadata(), contract.OwnedRights{
		schema.Assets: {revealed(op, testSupply)},
	})
	a, err := FromGenesis(g, nil)
	if err != nil {
		t.Fatalf("FromGenesis: %v", err)
	}

	bucket, ok := a.Allocations(op)
	if !ok || len(bucket) != 1 {
		t.Fatalf("Allocations(%s) = %v, %v; want one entry", op, bucket, ok)
	}
	alloc := bucket[0]
	if alloc.NodeID != types.NodeID(g.ContractID()) {
		t.Errorf("NodeID = %s, want %s", alloc.NodeID, g.ContractID())
	}
	if alloc.Index != 0 {
		t.Errorf("Index = %d, want 0", alloc.Index)
	}
	if alloc.Outpoint != op {
		t.Errorf("Outpoint = %s, want %s", alloc.Outpoint, op)
	}
	if alloc.Value.Value != testSupply {
		t.Errorf("Value = %d, want %d", alloc.Value.Value, testSupply)
	}
}

func TestFromGenesis_AllocationIndexes(t *testing.T) {
	a := derive(t, contract.OwnedRights{schema.Assets: {
		revealed(outpoint(1, 0), 10),
		revealed(outpoint(1, 1), 20).ConcealSeal(),
		revealed(outpoint(1, 2), 30),
	}})
	ops := a.KnownAllocationOutpoints()
	if len(ops) != 2 {
		t.Fatalf("outpoints = %v, want 2", ops)
	}
	bucket, _ := a.Allocations(outpoint(1, 2))
	if len(bucket) != 1 || bucket[0].Index != 2 {
		t.Errorf("third right index = %v, want 2", bucket)
	}
}

func TestFromGenesis_WitnessSeal(t *testing.T) {
	witness := contract.Revealed{
		Seal:  contract.WitnessVoutSeal(0, 1),
		Value: contract.RevealedValue{Value: 10},
	}
	for _, rt := range []schema.OwnedRightsType{schema.Assets, schema.Inflation} {
		t.Run(rt.String(), func(t *testing.T) {
			g := buildGenesis(t, baseMetadata(), contract.OwnedRights{rt: {witness}})
			a, err := FromGenesis(g, nil)
			if a != nil {
				t.Error("asset returned on failure")
			}
			if !errors.Is(err, ErrGenesisSeal) {
				t.Fatalf("err = %v, want ErrGenesisSeal", err)
			}
			var de *Error
			if !errors.As(err, &de) || de.Kind != InvalidGenesisSeal {
				t.Errorf("err = %v, want kind %s", err, InvalidGenesisSeal)
			}
		})
	}
}
