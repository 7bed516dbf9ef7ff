package proxy

import (
	"github.com/iov-one/ferry"
	"github.com/iov-one/ferry/errors"
	"github.com/iov-one/ferry/gconf"
)

// Initializer loads proxies from the genesis file.
type Initializer struct{}

var _ ferry.Initializer = (*Initializer)(nil)

// FromGenesis reads the "proxies", "proxy_announcements" and "pure_proxies"
// lists and the "proxy" configuration section.
func (*Initializer) FromGenesis(opts ferry.Options, db ferry.KVStore) error {
	c := DefaultConfiguration()
	if err := gconf.InitConfig(db, opts, packageName, &c); err != nil && !errors.ErrNotFound.Is(err) {
		return err
	}
	b := NewBuckets()

	var sets []ProxySet
	if err := opts.ReadOptions("proxies", &sets); err != nil {
		return errors.Wrap(errors.ErrInput, err.Error())
	}
	for i := range sets {
		switch ok, err := b.Proxies.Has(db, sets[i].Delegator); {
		case err != nil:
			return err
		case ok:
			return errors.Wrapf(errors.ErrDuplicate, "proxies of %s", sets[i].Delegator)
		}
		if err := b.Proxies.Put(db, sets[i].Delegator, &sets[i]); err != nil {
			return errors.Wrapf(err, "proxy set %d", i)
		}
	}

	var anns []Announcement
	if err := opts.ReadOptions("proxy_announcements", &anns); err != nil {
		return errors.Wrap(errors.ErrInput, err.Error())
	}
	for i := range anns {
		if err := b.Announcements.Put(db, anns[i].Depositor, &anns[i]); err != nil {
			return errors.Wrapf(err, "announcement %d", i)
		}
	}

	var pure []ferry.Address
	if err := opts.ReadOptions("pure_proxies", &pure); err != nil {
		return errors.Wrap(errors.ErrInput, err.Error())
	}
	for _, who := range pure {
		if err := b.MarkPure(db, who); err != nil {
			return err
		}
	}
	return nil
}
