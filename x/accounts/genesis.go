package accounts

import (
	"github.com/iov-one/ferry"
	"github.com/iov-one/ferry/errors"
	"github.com/iov-one/ferry/gconf"
)

// GenesisAccount is an account as declared in the genesis file.
type GenesisAccount struct {
	Address ferry.Address `json:"address"`
	Account
}

// Initializer loads accounts and the configuration from the genesis file.
type Initializer struct{}

var _ ferry.Initializer = (*Initializer)(nil)

// FromGenesis reads the "accounts" list, the optional "preserved" list and
// the "accounts" configuration section.
func (*Initializer) FromGenesis(opts ferry.Options, db ferry.KVStore) error {
	c := DefaultConfiguration()
	if err := gconf.InitConfig(db, opts, packageName, &c); err != nil && !errors.ErrNotFound.Is(err) {
		return err
	}

	var accounts []GenesisAccount
	if err := opts.ReadOptions("accounts", &accounts); err != nil {
		return errors.Wrap(errors.ErrInput, err.Error())
	}
	b := NewBucket()
	for i, ga := range accounts {
		if err := ga.Account.Validate(); err != nil {
			return errors.Wrapf(err, "account %d", i)
		}
		if existing, err := b.Get(db, ga.Address); err != nil {
			return err
		} else if existing != nil {
			return errors.Wrapf(errors.ErrDuplicate, "account %s", ga.Address)
		}
		acc := ga.Account
		if err := b.Save(db, ga.Address, &acc); err != nil {
			return errors.Wrapf(err, "account %d", i)
		}
		if err := b.addTotal(db, issuanceKey, acc.Total()); err != nil {
			return err
		}
	}

	var preserved []ferry.Address
	if err := opts.ReadOptions("preserved", &preserved); err != nil {
		return errors.Wrap(errors.ErrInput, err.Error())
	}
	for _, who := range preserved {
		if err := b.Preserve(db, who); err != nil {
			return err
		}
	}
	return nil
}
