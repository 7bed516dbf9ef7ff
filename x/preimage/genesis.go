package preimage

import (
	"github.com/iov-one/ferry"
	"github.com/iov-one/ferry/errors"
	"github.com/iov-one/ferry/gconf"
)

// Initializer loads preimages from the genesis file.
type Initializer struct{}

var _ ferry.Initializer = (*Initializer)(nil)

// FromGenesis reads the "preimages" list and the "preimage" configuration
// section. Preimages are stored under the hash of their data.
func (*Initializer) FromGenesis(opts ferry.Options, db ferry.KVStore) error {
	c := DefaultConfiguration()
	if err := gconf.InitConfig(db, opts, packageName, &c); err != nil && !errors.ErrNotFound.Is(err) {
		return err
	}
	var ps []Preimage
	if err := opts.ReadOptions("preimages", &ps); err != nil {
		return errors.Wrap(errors.ErrInput, err.Error())
	}
	s := NewStore()
	for i := range ps {
		if _, err := s.Put(db, &ps[i]); err != nil {
			return errors.Wrapf(err, "preimage %d", i)
		}
	}
	return nil
}
