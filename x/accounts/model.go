package accounts

import (
	"github.com/iov-one/ferry"
	"github.com/iov-one/ferry/codec"
	"github.com/iov-one/ferry/errors"
	"github.com/iov-one/ferry/orm"
)

// Hold is a part of the reserved balance kept for a named reason.
type Hold struct {
	Reason string `json:"reason"`
	Amount uint64 `json:"amount"`
}

// Freeze prevents a part of the balance from being spent, for a named
// reason.
type Freeze struct {
	Reason string `json:"reason"`
	Amount uint64 `json:"amount"`
}

// LockReasons declares which kind of withdrawals a lock prevents.
type LockReasons int32

const (
	LockFee LockReasons = 1 << iota
	LockMisc
	LockAll = LockFee | LockMisc
)

// Lock is an identified freeze of the free balance.
type Lock struct {
	ID      string      `json:"id"`
	Amount  uint64      `json:"amount"`
	Reasons LockReasons `json:"reasons"`
}

// Account is the balance related state of a single account.
//
// Reserved includes the amounts of all holds, the rest of it is the unnamed
// reserve. Consumers and Providers count references to the account made by
// other parts of the chain state.
type Account struct {
	Free      uint64   `json:"free"`
	Reserved  uint64   `json:"reserved"`
	Holds     []Hold   `json:"holds"`
	Freezes   []Freeze `json:"freezes"`
	Locks     []Lock   `json:"locks"`
	Consumers uint32   `json:"consumers"`
	Providers uint32   `json:"providers"`
}

var _ orm.Model = (*Account)(nil)

func (a *Account) Marshal() ([]byte, error) {
	return codec.Marshal(a)
}

func (a *Account) Unmarshal(raw []byte) error {
	return codec.Unmarshal(raw, a)
}

func (a *Account) Validate() error {
	var errs error
	held, err := sumHolds(a.Holds)
	if err != nil {
		errs = errors.AppendField(errs, "Holds", err)
	} else if held > a.Reserved {
		errs = errors.AppendField(errs, "Holds", errors.Wrap(errors.ErrAmount, "holds exceed the reserved balance"))
	}
	if _, err := add(a.Free, a.Reserved); err != nil {
		errs = errors.AppendField(errs, "Reserved", err)
	}
	errs = errors.AppendField(errs, "Holds", uniqueReasons(len(a.Holds), func(i int) string { return a.Holds[i].Reason }))
	errs = errors.AppendField(errs, "Freezes", uniqueReasons(len(a.Freezes), func(i int) string { return a.Freezes[i].Reason }))
	errs = errors.AppendField(errs, "Locks", uniqueReasons(len(a.Locks), func(i int) string { return a.Locks[i].ID }))
	return errs
}

func uniqueReasons(n int, reason func(int) string) error {
	seen := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		r := reason(i)
		if r == "" {
			return errors.Wrap(errors.ErrEmpty, "reason")
		}
		if _, ok := seen[r]; ok {
			return errors.Wrapf(errors.ErrDuplicate, "reason %q", r)
		}
		seen[r] = struct{}{}
	}
	return nil
}

// Total returns the free and the reserved balance together.
func (a *Account) Total() uint64 {
	return a.Free + a.Reserved
}

// UnnamedReserve returns the reserved balance that is not held for any
// reason.
func (a *Account) UnnamedReserve() uint64 {
	held, _ := sumHolds(a.Holds)
	if held > a.Reserved {
		return 0
	}
	return a.Reserved - held
}

// HasReferences returns true if other chain state depends on this account.
func (a *Account) HasReferences() bool {
	return a.Consumers != 0 || a.Providers != 0
}

// IsZero returns true if the account holds no balance at all.
func (a *Account) IsZero() bool {
	return a.Free == 0 && a.Reserved == 0
}

// IsEmpty returns true if nothing is left that would justify keeping the
// account in the state.
func (a *Account) IsEmpty() bool {
	return a.IsZero() && !a.HasReferences() &&
		len(a.Holds) == 0 && len(a.Freezes) == 0 && len(a.Locks) == 0
}

// WithdrawnAccount is everything that moves from the origin chain to the
// destination chain for a single account.
type WithdrawnAccount struct {
	Who            ferry.Address
	Free           uint64
	UnnamedReserve uint64
	Holds          []Hold
	Freezes        []Freeze
	Locks          []Lock
	Consumers      uint32
	Providers      uint32
}

func (w *WithdrawnAccount) Marshal() ([]byte, error) {
	return codec.Marshal(w)
}

func (w *WithdrawnAccount) Unmarshal(raw []byte) error {
	return codec.Unmarshal(raw, w)
}

func (w *WithdrawnAccount) Validate() error {
	if err := w.Who.Validate(); err != nil {
		return errors.Field("Who", err, "invalid account")
	}
	return nil
}

// Total returns the whole balance carried by the record.
func (w *WithdrawnAccount) Total() (uint64, error) {
	held, err := sumHolds(w.Holds)
	if err != nil {
		return 0, err
	}
	total, err := add(w.Free, w.UnnamedReserve)
	if err != nil {
		return 0, err
	}
	return add(total, held)
}

func sumHolds(holds []Hold) (uint64, error) {
	var sum uint64
	for _, h := range holds {
		var err error
		if sum, err = add(sum, h.Amount); err != nil {
			return 0, err
		}
	}
	return sum, nil
}

func add(a, b uint64) (uint64, error) {
	c := a + b
	if c < a {
		return 0, errors.Wrapf(errors.ErrOverflow, "%d + %d", a, b)
	}
	return c, nil
}

func sub(a, b uint64) (uint64, error) {
	if b > a {
		return 0, errors.Wrapf(errors.ErrOverflow, "%d - %d", a, b)
	}
	return a - b, nil
}
