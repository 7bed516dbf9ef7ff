package accounts

import (
	"encoding/binary"

	"github.com/iov-one/ferry"
	"github.com/iov-one/ferry/errors"
	"github.com/iov-one/ferry/orm"
)

var (
	issuanceKey = []byte("issuance")
	dustKey     = []byte("dust")
)

// Bucket stores accounts together with the chain totals and the list of
// preserved accounts.
type Bucket struct {
	accounts  orm.ModelBucket
	totals    orm.Bucket
	preserved orm.Bucket
}

// NewBucket returns the accounts storage.
func NewBucket() Bucket {
	return Bucket{
		accounts:  orm.NewModelBucket("acc"),
		totals:    orm.NewBucket("acc_total"),
		preserved: orm.NewBucket("acc_keep"),
	}
}

// Get returns the account or nil if it does not exist.
func (b Bucket) Get(db ferry.ReadOnlyKVStore, who ferry.Address) (*Account, error) {
	var acc Account
	switch err := b.accounts.One(db, who, &acc); {
	case err == nil:
		return &acc, nil
	case errors.ErrNotFound.Is(err):
		return nil, nil
	default:
		return nil, err
	}
}

// Save stores the account. Empty accounts are removed.
func (b Bucket) Save(db ferry.KVStore, who ferry.Address, acc *Account) error {
	if err := who.Validate(); err != nil {
		return err
	}
	if acc.IsEmpty() {
		return b.remove(db, who)
	}
	return b.accounts.Put(db, who, acc)
}

func (b Bucket) remove(db ferry.KVStore, who ferry.Address) error {
	err := b.accounts.Delete(db, who)
	if errors.ErrNotFound.Is(err) {
		return nil
	}
	return err
}

// Iterate walks all accounts starting with the given address.
func (b Bucket) Iterate(db ferry.ReadOnlyKVStore, from ferry.Address) (*orm.ModelIterator, error) {
	return b.accounts.IterateFrom(db, from)
}

// Mint creates new free balance.
func (b Bucket) Mint(db ferry.KVStore, who ferry.Address, amount uint64) error {
	acc, err := b.Get(db, who)
	if err != nil {
		return err
	}
	if acc == nil {
		acc = &Account{}
	}
	if acc.Free, err = add(acc.Free, amount); err != nil {
		return err
	}
	if err := b.Save(db, who, acc); err != nil {
		return err
	}
	return b.addTotal(db, issuanceKey, amount)
}

// Reserve moves free balance into the unnamed reserve.
func (b Bucket) Reserve(db ferry.KVStore, who ferry.Address, amount uint64) error {
	acc, err := b.Get(db, who)
	if err != nil {
		return err
	}
	if acc == nil || acc.Free < amount {
		return errors.Wrapf(errors.ErrAmount, "cannot reserve %d", amount)
	}
	acc.Free -= amount
	acc.Reserved += amount
	return b.Save(db, who, acc)
}

// Unreserve moves up to amount from the unnamed reserve back to the free
// balance and returns the amount that was moved.
func (b Bucket) Unreserve(db ferry.KVStore, who ferry.Address, amount uint64) (uint64, error) {
	acc, err := b.Get(db, who)
	if err != nil || acc == nil {
		return 0, err
	}
	if unnamed := acc.UnnamedReserve(); amount > unnamed {
		amount = unnamed
	}
	acc.Reserved -= amount
	acc.Free += amount
	return amount, b.Save(db, who, acc)
}

// Issuance returns the sum of all balances on this chain.
func (b Bucket) Issuance(db ferry.ReadOnlyKVStore) (uint64, error) {
	return b.total(db, issuanceKey)
}

// Dust returns the amount removed from accounts that fell below the
// minimum balance on integration.
func (b Bucket) Dust(db ferry.ReadOnlyKVStore) (uint64, error) {
	return b.total(db, dustKey)
}

func (b Bucket) total(db ferry.ReadOnlyKVStore, key []byte) (uint64, error) {
	raw, err := b.totals.Get(db, key)
	if err != nil || raw == nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(raw), nil
}

func (b Bucket) addTotal(db ferry.KVStore, key []byte, amount uint64) error {
	cur, err := b.total(db, key)
	if err != nil {
		return err
	}
	if cur, err = add(cur, amount); err != nil {
		return errors.Wrapf(err, "total %s", key)
	}
	return b.totals.Set(db, key, encodeAmount(cur))
}

func (b Bucket) subTotal(db ferry.KVStore, key []byte, amount uint64) error {
	cur, err := b.total(db, key)
	if err != nil {
		return err
	}
	if cur, err = sub(cur, amount); err != nil {
		return errors.Wrapf(err, "total %s", key)
	}
	return b.totals.Set(db, key, encodeAmount(cur))
}

func encodeAmount(n uint64) []byte {
	raw := make([]byte, 8)
	binary.BigEndian.PutUint64(raw, n)
	return raw
}

// Preserve excludes an account from the migration.
func (b Bucket) Preserve(db ferry.KVStore, who ferry.Address) error {
	if err := who.Validate(); err != nil {
		return err
	}
	return b.preserved.Set(db, who, []byte{1})
}

// IsPreserved returns true if the account is excluded from the migration.
func (b Bucket) IsPreserved(db ferry.ReadOnlyKVStore, who ferry.Address) (bool, error) {
	return b.preserved.Has(db, who)
}

// IsReferenced returns true if other chain state depends on the account.
func (b Bucket) IsReferenced(db ferry.ReadOnlyKVStore, who ferry.Address) (bool, error) {
	acc, err := b.Get(db, who)
	if err != nil || acc == nil {
		return false, err
	}
	return acc.HasReferences(), nil
}

// AddReferences increments the reference counters of an account.
func (b Bucket) AddReferences(db ferry.KVStore, who ferry.Address, consumers, providers uint32) error {
	acc, err := b.Get(db, who)
	if err != nil {
		return err
	}
	if acc == nil {
		acc = &Account{}
	}
	acc.Consumers += consumers
	acc.Providers += providers
	return b.Save(db, who, acc)
}

// Sum adds up the balances of all accounts.
func (b Bucket) Sum(db ferry.ReadOnlyKVStore) (uint64, error) {
	it, err := b.accounts.IterateFrom(db, nil)
	if err != nil {
		return 0, err
	}
	defer it.Release()

	var sum uint64
	for {
		var acc Account
		switch _, err := it.LoadNext(&acc); {
		case err == nil:
			if sum, err = add(sum, acc.Total()); err != nil {
				return 0, err
			}
		case errors.ErrIteratorDone.Is(err):
			return sum, nil
		default:
			return 0, err
		}
	}
}
