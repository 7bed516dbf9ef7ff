package ferry

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/iov-one/ferry/errors"
)

// Fraction is a non-negative rational number. It is used to convert
// block based durations between chains with different block times.
type Fraction struct {
	Numerator   uint32 `json:"numerator"`
	Denominator uint32 `json:"denominator"`
}

// One is the identity conversion.
var One = Fraction{Numerator: 1, Denominator: 1}

// String returns a human readable fraction representation.
func (f Fraction) String() string {
	if f.Numerator == 0 {
		return "0"
	}
	if f.Denominator == 1 {
		return fmt.Sprint(f.Numerator)
	}
	return fmt.Sprintf("%d/%d", f.Numerator, f.Denominator)
}

// UnmarshalJSON accepts both the "n/d" string and the object form.
func (f *Fraction) UnmarshalJSON(raw []byte) error {
	var human string
	if err := json.Unmarshal(raw, &human); err == nil {
		frac, err := ParseFraction(human)
		if err != nil {
			return errors.Wrap(err, "fraction string")
		}
		*f = frac
		return nil
	}

	var frac struct {
		Numerator   uint32
		Denominator uint32
	}
	if err := json.Unmarshal(raw, &frac); err != nil {
		return errors.Wrap(errors.ErrInput, err.Error())
	}
	f.Numerator = frac.Numerator
	f.Denominator = frac.Denominator
	return nil
}

// Validate returns an error if this fraction cannot be used for scaling.
func (f Fraction) Validate() error {
	if f.Denominator == 0 {
		return errors.Wrap(errors.ErrState, "zero division")
	}
	return nil
}

// IsZero returns true for the zero value, which most configurations treat
// as "not set".
func (f Fraction) IsZero() bool {
	return f.Numerator == 0 && f.Denominator == 0
}

// Normalize returns the fraction reduced to its smallest representation.
func (f Fraction) Normalize() Fraction {
	div := uintGcd(f.Numerator, f.Denominator)
	if div == 0 {
		return f
	}
	return Fraction{
		Numerator:   f.Numerator / div,
		Denominator: f.Denominator / div,
	}
}

// Scale returns n multiplied by the fraction, rounded down. The result
// saturates at the maximum uint64 value.
func (f Fraction) Scale(n uint64) (uint64, error) {
	if err := f.Validate(); err != nil {
		return 0, err
	}
	num, den := uint64(f.Numerator), uint64(f.Denominator)
	// Split n so that both products fit into 64 bits.
	q, r := n/den, n%den
	if num != 0 && q > math.MaxUint64/num {
		return math.MaxUint64, nil
	}
	hi := q * num
	lo := r * num / den
	if hi > math.MaxUint64-lo {
		return math.MaxUint64, nil
	}
	return hi + lo, nil
}

func uintGcd(a, b uint32) uint32 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// ParseFraction returns the fraction represented by given "n" or "n/d"
// string. Surrounding whitespace is ignored. The value is not validated, so
// "2/0" parses.
func ParseFraction(raw string) (Fraction, error) {
	chunks := strings.SplitN(raw, "/", 2)
	n, err := strconv.ParseUint(strings.TrimSpace(chunks[0]), 10, 32)
	if err != nil {
		return Fraction{}, errors.Wrap(errors.ErrInput, "numerator")
	}
	if len(chunks) == 1 {
		return Fraction{Numerator: uint32(n), Denominator: 1}, nil
	}
	d, err := strconv.ParseUint(strings.TrimSpace(chunks[1]), 10, 32)
	if err != nil {
		return Fraction{}, errors.Wrap(errors.ErrInput, "denominator")
	}
	return Fraction{Numerator: uint32(n), Denominator: uint32(d)}, nil
}
