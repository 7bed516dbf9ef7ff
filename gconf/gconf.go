package gconf

import (
	"github.com/iov-one/ferry"
	"github.com/iov-one/ferry/errors"
)

// ReadStore is the part of ferry.ReadOnlyKVStore needed to load records.
type ReadStore interface {
	Get([]byte) ([]byte, error)
}

// Store is the part of ferry.KVStore needed to save records.
type Store interface {
	ReadStore
	Set([]byte, []byte) error
}

// Configuration is implemented by the configuration record of an extension.
type Configuration interface {
	Marshal() ([]byte, error)
	Unmarshal([]byte) error
	Validate() error
}

// Key returns the database key of the record of given package.
func Key(pkg string) []byte {
	return append([]byte("_c:"), pkg...)
}

// Save writes the record of pkg. Invalid records are rejected.
func Save(db Store, pkg string, conf Configuration) error {
	if err := conf.Validate(); err != nil {
		return errors.Wrapf(err, "%s configuration", pkg)
	}
	raw, err := conf.Marshal()
	if err != nil {
		return errors.Wrapf(err, "marshal %s configuration", pkg)
	}
	return db.Set(Key(pkg), raw)
}

// Load reads the record of pkg into dst. It returns ErrNotFound if no record
// was saved.
func Load(db ReadStore, pkg string, dst Configuration) error {
	raw, err := db.Get(Key(pkg))
	switch {
	case err != nil:
		return errors.Wrapf(err, "load %s configuration", pkg)
	case raw == nil:
		return errors.Wrapf(errors.ErrNotFound, "%s configuration", pkg)
	}
	return errors.Wrapf(dst.Unmarshal(raw), "unmarshal %s configuration", pkg)
}

// LoadOr is Load, except that a missing record calls fallback instead of
// failing. fallback is expected to fill dst with the defaults.
func LoadOr(db ReadStore, pkg string, dst Configuration, fallback func()) error {
	err := Load(db, pkg, dst)
	if errors.ErrNotFound.Is(err) {
		fallback()
		return nil
	}
	return err
}

// InitConfig saves the record found in the genesis under conf.<pkg>. It
// returns ErrNotFound when the genesis has none.
func InitConfig(db Store, opts ferry.Options, pkg string, conf Configuration) error {
	var sections ferry.Options
	if err := opts.ReadOptions("conf", &sections); err != nil {
		return errors.Wrap(err, "conf section")
	}
	if _, ok := sections[pkg]; !ok {
		return errors.Wrapf(errors.ErrNotFound, "genesis has no %s configuration", pkg)
	}
	if err := sections.ReadOptions(pkg, conf); err != nil {
		return errors.Wrapf(err, "genesis %s configuration", pkg)
	}
	return Save(db, pkg, conf)
}
