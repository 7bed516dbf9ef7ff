package referenda

import (
	"github.com/iov-one/ferry"
	"github.com/iov-one/ferry/errors"
)

// Initializer loads referenda from the genesis file.
type Initializer struct{}

var _ ferry.Initializer = (*Initializer)(nil)

// FromGenesis reads the "referenda" list and the optional
// "referendum_count". The counter is never lower than the highest index.
func (*Initializer) FromGenesis(opts ferry.Options, db ferry.KVStore) error {
	var rs []Referendum
	if err := opts.ReadOptions("referenda", &rs); err != nil {
		return errors.Wrap(errors.ErrInput, err.Error())
	}
	var count uint32
	if err := opts.ReadOptions("referendum_count", &count); err != nil {
		return errors.Wrap(errors.ErrInput, err.Error())
	}
	b := NewBucket()
	for i := range rs {
		if existing, err := b.Get(db, rs[i].Index); err != nil {
			return err
		} else if existing != nil {
			return errors.Wrapf(errors.ErrDuplicate, "referendum %d", rs[i].Index)
		}
		if err := b.Save(db, &rs[i]); err != nil {
			return errors.Wrapf(err, "referendum %d", i)
		}
	}
	have, err := b.Count(db)
	if err != nil {
		return err
	}
	if count > have {
		return b.SetCount(db, count)
	}
	return nil
}
