/*
Package vesting migrates vesting schedules.

A schedule unlocks PerBlock tokens every block after Start until Locked
tokens are unlocked. The lock itself travels with the account balance, this
package only moves the schedules. An account can hold a limited number of
schedules; on the destination chain the last schedules are merged when the
limit is exceeded.
*/
package vesting

import (
	"github.com/iov-one/ferry"
	"github.com/iov-one/ferry/codec"
	"github.com/iov-one/ferry/errors"
	"github.com/iov-one/ferry/orm"
)

// Schedule is a linear unlock of Locked tokens.
type Schedule struct {
	Locked   uint64 `json:"locked"`
	PerBlock uint64 `json:"per_block"`
	Start    int64  `json:"start"`
}

func (s Schedule) Validate() error {
	switch {
	case s.Locked == 0:
		return errors.Wrap(errors.ErrEmpty, "locked")
	case s.PerBlock == 0:
		return errors.Wrap(errors.ErrEmpty, "per block")
	case s.Start < 0:
		return errors.Wrap(errors.ErrInput, "negative start")
	}
	return nil
}

// End returns the first block at which everything is unlocked.
func (s Schedule) End() int64 {
	blocks := s.Locked / s.PerBlock
	if s.Locked%s.PerBlock != 0 {
		blocks++
	}
	return s.Start + int64(blocks)
}

// LockedAt returns the amount still locked at given block.
func (s Schedule) LockedAt(height int64) uint64 {
	if height <= s.Start {
		return s.Locked
	}
	elapsed := uint64(height - s.Start)
	if s.PerBlock != 0 && elapsed >= s.Locked/s.PerBlock+1 {
		return 0
	}
	unlocked := elapsed * s.PerBlock
	if unlocked >= s.Locked {
		return 0
	}
	return s.Locked - unlocked
}

// Merge combines two schedules at given block into one that ends with the
// later of both. It returns false if both schedules already ended.
func Merge(a, b Schedule, now int64) (Schedule, bool) {
	lockedA, lockedB := a.LockedAt(now), b.LockedAt(now)
	switch {
	case lockedA == 0 && lockedB == 0:
		return Schedule{}, false
	case lockedA == 0:
		return b, true
	case lockedB == 0:
		return a, true
	}
	locked := lockedA + lockedB
	end := a.End()
	if e := b.End(); e > end {
		end = e
	}
	start := now
	if a.Start > start {
		start = a.Start
	}
	if b.Start > start {
		start = b.Start
	}
	perBlock := locked
	if duration := end - start; duration > 0 {
		perBlock = locked / uint64(duration)
		if perBlock == 0 {
			perBlock = 1
		}
	}
	return Schedule{Locked: locked, PerBlock: perBlock, Start: start}, true
}

// Vesting is the list of schedules of one account.
type Vesting struct {
	Who       ferry.Address `json:"who"`
	Schedules []Schedule    `json:"schedules"`
}

var _ orm.Model = (*Vesting)(nil)

func (v *Vesting) Marshal() ([]byte, error) {
	return codec.Marshal(v)
}

func (v *Vesting) Unmarshal(raw []byte) error {
	return codec.Unmarshal(raw, v)
}

func (v *Vesting) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Who", v.Who.Validate())
	if len(v.Schedules) == 0 {
		errs = errors.AppendField(errs, "Schedules", errors.ErrEmpty)
	}
	for _, s := range v.Schedules {
		if err := s.Validate(); err != nil {
			errs = errors.AppendField(errs, "Schedules", err)
			break
		}
	}
	return errs
}

// Locked returns the sum of all schedules at given block.
func (v *Vesting) Locked(height int64) uint64 {
	var sum uint64
	for _, s := range v.Schedules {
		sum += s.LockedAt(height)
	}
	return sum
}

// Bucket stores schedules by account.
type Bucket struct {
	orm.ModelBucket
}

// NewBucket returns the schedule storage.
func NewBucket() Bucket {
	return Bucket{ModelBucket: orm.NewModelBucket("vesting")}
}

// Get returns the schedules of an account or nil.
func (b Bucket) Get(db ferry.ReadOnlyKVStore, who ferry.Address) (*Vesting, error) {
	var v Vesting
	switch err := b.One(db, who, &v); {
	case err == nil:
		return &v, nil
	case errors.ErrNotFound.Is(err):
		return nil, nil
	default:
		return nil, err
	}
}
