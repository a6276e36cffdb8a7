// Package amount implements precision-tagged fixed-point asset amounts.
//
// An Amount is an atomic uint64 value paired with the fractional bits of
// the asset it belongs to. The split between the integer and fractional
// parts mixes a binary shift with a decimal scale:
//
//	integer    = atomic >> bits
//	remainder  = atomic XOR (integer << bits)
//	accounting = integer + remainder / 10^bits
//
// Converting from an accounting value goes the other way without the
// shift: atomic = trunc(value) + fract(value) * 10^bits. The two
// conversions are kept exactly as the asset protocol defines them; they
// are not inverse to each other for most inputs.
package amount

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/big"

	"github.com/shopspring/decimal"
)

// MaxAtomic is the largest representable atomic value.
const MaxAtomic = math.MaxUint64

// ErrPrecisionMismatch is the panic value raised when amounts of
// different fractional bits are combined.
var ErrPrecisionMismatch = errors.New("addition of amounts with different fractional bits")

// Amount is an atomic value tagged with its fractional bits.
type Amount struct {
	atomic uint64
	bits   uint8
}

// FromAtomic creates an amount from an atomic value.
func FromAtomic(bits uint8, atomic uint64) Amount {
	return Amount{atomic: atomic, bits: bits}
}

// FromAccounting creates an amount from an accounting (display) value.
// The fractional part is scaled by 10^bits and added, not shifted.
func FromAccounting(bits uint8, value float64) Amount {
	whole, fract := math.Modf(value)
	scaled := uint64(fract * math.Pow10(int(bits)))
	return Amount{atomic: uint64(whole) + scaled, bits: bits}
}

// Transmutate converts an accounting value into an atomic value.
func Transmutate(bits uint8, value float64) uint64 {
	return FromAccounting(bits, value).Atomic()
}

// Zero returns the zero amount at the given precision.
func Zero(bits uint8) Amount {
	return Amount{bits: bits}
}

// Max returns the maximum representable amount at the given precision.
func Max(bits uint8) Amount {
	return Amount{atomic: MaxAtomic, bits: bits}
}

// Atomic returns the atomic value.
func (a Amount) Atomic() uint64 {
	return a.atomic
}

// FractionalBits returns the precision tag.
func (a Amount) FractionalBits() uint8 {
	return a.bits
}

// IsMax reports whether the amount is the maximum representable value.
func (a Amount) IsMax() bool {
	return a.atomic == MaxAtomic
}

// integerAndRemainder splits the atomic value. Shifts of 64 bits or
// more yield zero in Go, so any precision tag is safe here.
func (a Amount) integerAndRemainder() (uint64, uint64) {
	whole := a.atomic >> a.bits
	return whole, a.atomic ^ (whole << a.bits)
}

// Accounting returns the display value.
func (a Amount) Accounting() float64 {
	whole, rem := a.integerAndRemainder()
	return float64(whole) + float64(rem)/math.Pow10(int(a.bits))
}

// Decimal returns the display value computed exactly.
func (a Amount) Decimal() decimal.Decimal {
	whole, rem := a.integerAndRemainder()
	w := decimal.NewFromBigInt(new(big.Int).SetUint64(whole), 0)
	r := decimal.NewFromBigInt(new(big.Int).SetUint64(rem), -int32(a.bits))
	return w.Add(r)
}

// Add returns a + b. Both amounts must carry the same fractional bits;
// a mismatch is a programming error and panics with ErrPrecisionMismatch.
// The atomic sum wraps on overflow like any uint64.
func (a Amount) Add(b Amount) Amount {
	mustMatch(a, b)
	return Amount{atomic: a.atomic + b.atomic, bits: a.bits}
}

// AddAssign adds b to a in place. Same precision rule as Add.
func (a *Amount) AddAssign(b Amount) {
	mustMatch(*a, b)
	a.atomic += b.atomic
}

// SaturatingAdd returns a + b clamped to MaxAtomic. Same precision rule
// as Add.
func (a Amount) SaturatingAdd(b Amount) Amount {
	mustMatch(a, b)
	if b.atomic > MaxAtomic-a.atomic {
		return Max(a.bits)
	}
	return Amount{atomic: a.atomic + b.atomic, bits: a.bits}
}

// SamePrecision reports whether b can be combined with a.
func (a Amount) SamePrecision(b Amount) bool {
	return a.bits == b.bits
}

func mustMatch(a, b Amount) {
	if !a.SamePrecision(b) {
		panic(fmt.Errorf("%w: %d != %d", ErrPrecisionMismatch, a.bits, b.bits))
	}
}

// String returns "atomic@bits".
func (a Amount) String() string {
	return fmt.Sprintf("%d@%d", a.atomic, a.bits)
}

type amountJSON struct {
	Atomic    uint64 `json:"atomic"`
	Precision uint8  `json:"precision"`
}

// MarshalJSON encodes the amount with its precision.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(amountJSON{Atomic: a.atomic, Precision: a.bits})
}

// UnmarshalJSON decodes an amount encoded by MarshalJSON.
func (a *Amount) UnmarshalJSON(data []byte) error {
	var v amountJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("amount: %w", err)
	}
	*a = Amount{atomic: v.Atomic, bits: v.Precision}
	return nil
}
