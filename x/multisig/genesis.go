package multisig

import (
	"github.com/iov-one/ferry"
	"github.com/iov-one/ferry/errors"
)

// Initializer loads pending operations from the genesis file.
type Initializer struct{}

var _ ferry.Initializer = (*Initializer)(nil)

// FromGenesis reads the "multisigs" list.
func (*Initializer) FromGenesis(opts ferry.Options, db ferry.KVStore) error {
	var ms []Multisig
	if err := opts.ReadOptions("multisigs", &ms); err != nil {
		return errors.Wrap(errors.ErrInput, err.Error())
	}
	b := NewBucket()
	for i := range ms {
		if err := b.Create(db, &ms[i]); err != nil {
			return errors.Wrapf(err, "multisig %d", i)
		}
	}
	return nil
}
