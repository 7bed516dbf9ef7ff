/*
Package weight implements the per block resource budget used to bound the
amount of migration work done during a single tick.

Every unit of work is described by a Weight, a pair of computation time and
proof size. A Meter is created with the block limit at the beginning of a
tick, consumed by the work done in that tick and dropped at its end, so the
budget is reset for every block.
*/
package weight

import (
	"fmt"

	"github.com/iov-one/ferry/errors"
)

// Weight is the cost of an operation.
type Weight struct {
	RefTime   uint64 `json:"ref_time"`
	ProofSize uint64 `json:"proof_size"`
}

// New returns a weight of given components.
func New(refTime, proofSize uint64) Weight {
	return Weight{RefTime: refTime, ProofSize: proofSize}
}

// Add returns the sum of both weights. Components saturate instead of
// overflowing.
func (w Weight) Add(o Weight) Weight {
	return Weight{
		RefTime:   saturatingAdd(w.RefTime, o.RefTime),
		ProofSize: saturatingAdd(w.ProofSize, o.ProofSize),
	}
}

// Mul returns the weight multiplied n times.
func (w Weight) Mul(n uint64) Weight {
	return Weight{
		RefTime:   saturatingMul(w.RefTime, n),
		ProofSize: saturatingMul(w.ProofSize, n),
	}
}

// AllLTE returns true if both components are lower or equal to the
// components of o.
func (w Weight) AllLTE(o Weight) bool {
	return w.RefTime <= o.RefTime && w.ProofSize <= o.ProofSize
}

// IsZero returns true if both components are zero.
func (w Weight) IsZero() bool {
	return w.RefTime == 0 && w.ProofSize == 0
}

func (w Weight) String() string {
	return fmt.Sprintf("(ref_time: %d, proof_size: %d)", w.RefTime, w.ProofSize)
}

func saturatingAdd(a, b uint64) uint64 {
	if c := a + b; c >= a {
		return c
	}
	return ^uint64(0)
}

func saturatingMul(a, n uint64) uint64 {
	if a == 0 || n == 0 {
		return 0
	}
	if c := a * n; c/n == a {
		return c
	}
	return ^uint64(0)
}

// Meter tracks the weight consumed within one tick.
type Meter struct {
	limit    Weight
	consumed Weight
}

// NewMeter returns a meter allowing up to limit to be consumed.
func NewMeter(limit Weight) *Meter {
	return &Meter{limit: limit}
}

// TryConsume adds w to the consumed weight if that does not exceed the
// limit. Otherwise nothing is consumed and ErrOutOfWeight is returned.
func (m *Meter) TryConsume(w Weight) error {
	if !m.CanConsume(w) {
		return errors.Wrapf(errors.ErrOutOfWeight, "cannot consume %s, remaining %s", w, m.Remaining())
	}
	m.consumed = m.consumed.Add(w)
	return nil
}

// CanConsume returns true if w fits in the remaining budget.
func (m *Meter) CanConsume(w Weight) bool {
	return m.consumed.Add(w).AllLTE(m.limit)
}

// Consumed returns the weight used so far.
func (m *Meter) Consumed() Weight {
	return m.consumed
}

// Limit returns the weight the meter was created with.
func (m *Meter) Limit() Weight {
	return m.limit
}

// Remaining returns the weight that can still be consumed.
func (m *Meter) Remaining() Weight {
	r := m.limit
	if m.consumed.RefTime >= r.RefTime {
		r.RefTime = 0
	} else {
		r.RefTime -= m.consumed.RefTime
	}
	if m.consumed.ProofSize >= r.ProofSize {
		r.ProofSize = 0
	} else {
		r.ProofSize -= m.consumed.ProofSize
	}
	return r
}

// Reset clears the consumed weight.
func (m *Meter) Reset() {
	m.consumed = Weight{}
}
