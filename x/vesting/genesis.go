package vesting

import (
	"github.com/iov-one/ferry"
	"github.com/iov-one/ferry/errors"
	"github.com/iov-one/ferry/gconf"
)

// Initializer loads vesting schedules from the genesis file.
type Initializer struct{}

var _ ferry.Initializer = (*Initializer)(nil)

// FromGenesis reads the "vesting" list and the "vesting" configuration
// section.
func (*Initializer) FromGenesis(opts ferry.Options, db ferry.KVStore) error {
	c := DefaultConfiguration()
	if err := gconf.InitConfig(db, opts, packageName, &c); err != nil && !errors.ErrNotFound.Is(err) {
		return err
	}
	var vs []Vesting
	if err := opts.ReadOptions("vesting", &vs); err != nil {
		return errors.Wrap(errors.ErrInput, err.Error())
	}
	b := NewBucket()
	for i := range vs {
		if existing, err := b.Get(db, vs[i].Who); err != nil {
			return err
		} else if existing != nil {
			return errors.Wrapf(errors.ErrDuplicate, "vesting of %s", vs[i].Who)
		}
		if err := b.Put(db, vs[i].Who, &vs[i]); err != nil {
			return errors.Wrapf(err, "vesting %d", i)
		}
	}
	return nil
}
