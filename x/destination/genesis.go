package destination

import (
	"github.com/iov-one/ferry"
	"github.com/iov-one/ferry/errors"
	"github.com/iov-one/ferry/gconf"
)

// Initializer stores the receiver configuration and the initial manager.
type Initializer struct{}

var _ ferry.Initializer = (*Initializer)(nil)

// FromGenesis reads the "destination" configuration section and the
// optional "migration" section holding the manager.
func (*Initializer) FromGenesis(opts ferry.Options, db ferry.KVStore) error {
	conf := DefaultConfiguration()
	if err := gconf.InitConfig(db, opts, packageName, &conf); err != nil && !errors.ErrNotFound.Is(err) {
		return err
	}
	var operators struct {
		Manager ferry.Address `json:"manager"`
	}
	if err := opts.ReadOptions("migration", &operators); err != nil {
		return errors.Wrap(errors.ErrInput, err.Error())
	}
	if operators.Manager == nil {
		return nil
	}
	b := NewStateBucket()
	st, err := b.Load(db)
	if err != nil {
		return err
	}
	st.Manager = operators.Manager
	if err := st.Validate(); err != nil {
		return errors.Wrap(err, "migration")
	}
	return b.Save(db, st)
}
