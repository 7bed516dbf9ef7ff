package origin

import (
	"github.com/iov-one/ferry"
	"github.com/iov-one/ferry/errors"
	"github.com/iov-one/ferry/gconf"
)

// Initializer stores the coordinator configuration and the initial
// operators found in the genesis file.
type Initializer struct{}

var _ ferry.Initializer = (*Initializer)(nil)

// FromGenesis reads the "origin" configuration section and the optional
// "migration" section holding the manager and the canceller.
func (*Initializer) FromGenesis(opts ferry.Options, db ferry.KVStore) error {
	conf := DefaultConfiguration()
	if err := gconf.InitConfig(db, opts, packageName, &conf); err != nil && !errors.ErrNotFound.Is(err) {
		return err
	}

	var operators struct {
		Manager   ferry.Address `json:"manager"`
		Canceller ferry.Address `json:"canceller"`
	}
	if err := opts.ReadOptions("migration", &operators); err != nil {
		return errors.Wrap(errors.ErrInput, err.Error())
	}
	if operators.Manager == nil && operators.Canceller == nil {
		return nil
	}
	b := NewStateBucket()
	st, err := b.Load(db)
	if err != nil {
		return err
	}
	st.Manager = operators.Manager
	st.Canceller = operators.Canceller
	if err := st.Validate(); err != nil {
		return errors.Wrap(err, "migration")
	}
	return b.Save(db, st)
}
