/*
Package multisig migrates pending multisig operations.

An operation is opened by its creator, who reserves a deposit until the
operation is executed or cancelled. Pending operations are not carried over
to the destination chain: the creator gets the deposit back there, since
the reserved balance arrived with the account. A creator that stays on the
origin chain gets the deposit back on the origin chain.
*/
package multisig

import (
	"github.com/iov-one/ferry"
	"github.com/iov-one/ferry/codec"
	"github.com/iov-one/ferry/errors"
	"github.com/iov-one/ferry/orm"
)

// Multisig is a pending operation of a multisig account.
type Multisig struct {
	Account   ferry.Address   `json:"account"`
	CallHash  []byte          `json:"call_hash"`
	Creator   ferry.Address   `json:"creator"`
	Deposit   uint64          `json:"deposit"`
	Approvals []ferry.Address `json:"approvals"`
	// Height of the block the operation was opened in.
	Height int64 `json:"height"`
}

var _ orm.Model = (*Multisig)(nil)

func (m *Multisig) Marshal() ([]byte, error) {
	return codec.Marshal(m)
}

func (m *Multisig) Unmarshal(raw []byte) error {
	return codec.Unmarshal(raw, m)
}

func (m *Multisig) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Account", m.Account.Validate())
	errs = errors.AppendField(errs, "Creator", m.Creator.Validate())
	if len(m.CallHash) != 32 {
		errs = errors.AppendField(errs, "CallHash", errors.Wrap(errors.ErrInput, "must be 32 bytes"))
	}
	for _, a := range m.Approvals {
		if err := a.Validate(); err != nil {
			errs = errors.AppendField(errs, "Approvals", err)
			break
		}
	}
	return errs
}

// Key returns the primary key of the operation.
func (m *Multisig) Key() []byte {
	return append(append([]byte(nil), m.Account...), m.CallHash...)
}

// Record is the part of an operation sent to the destination chain.
type Record struct {
	Creator ferry.Address
	Deposit uint64
}

func (r *Record) Marshal() ([]byte, error) {
	return codec.Marshal(r)
}

func (r *Record) Unmarshal(raw []byte) error {
	return codec.Unmarshal(raw, r)
}

// Bucket stores pending operations.
type Bucket struct {
	orm.ModelBucket
}

// NewBucket returns the storage of pending operations.
func NewBucket() Bucket {
	return Bucket{ModelBucket: orm.NewModelBucket("msig")}
}

// Create stores a new pending operation.
func (b Bucket) Create(db ferry.KVStore, m *Multisig) error {
	key := m.Key()
	switch ok, err := b.Has(db, key); {
	case err != nil:
		return err
	case ok:
		return errors.Wrapf(errors.ErrDuplicate, "multisig %X", key)
	}
	return b.Put(db, key, m)
}

// Count returns the number of pending operations.
func (b Bucket) Count(db ferry.ReadOnlyKVStore) (int, error) {
	it, err := b.IterateFrom(db, nil)
	if err != nil {
		return 0, err
	}
	defer it.Release()

	var n int
	for {
		var m Multisig
		switch _, err := it.LoadNext(&m); {
		case err == nil:
			n++
		case errors.ErrIteratorDone.Is(err):
			return n, nil
		default:
			return 0, err
		}
	}
}
