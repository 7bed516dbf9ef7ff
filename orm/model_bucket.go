package orm

import (
	"github.com/iov-one/ferry"
	"github.com/iov-one/ferry/errors"
)

// Model is impelemented by any entity that can be stored using ModelBucket.
type Model interface {
	ferry.Persistent
	Validate() error
}

// ModelBucket stores models of a single type, keyed by primary key.
type ModelBucket struct {
	b Bucket
}

// NewModelBucket returns a ModelBucket instance using a bucket of the given
// name.
func NewModelBucket(name string) ModelBucket {
	return ModelBucket{b: NewBucket(name)}
}

// Bucket returns the underlying raw bucket.
func (mb ModelBucket) Bucket() Bucket {
	return mb.b
}

// One query the database for a single model instance. Lookup is done
// by the primary index key. Result is loaded into given destination
// model.
// This method returns ErrNotFound if the entity does not exist in the
// database.
func (mb ModelBucket) One(db ferry.ReadOnlyKVStore, key []byte, dest Model) error {
	raw, err := mb.b.Get(db, key)
	if err != nil {
		return err
	}
	if raw == nil {
		return errors.Wrapf(errors.ErrNotFound, "%T not in the store", dest)
	}
	if err := dest.Unmarshal(raw); err != nil {
		return errors.Wrapf(err, "cannot unmarshal %T", dest)
	}
	return nil
}

// Has returns true if an entity with given key exists.
func (mb ModelBucket) Has(db ferry.ReadOnlyKVStore, key []byte) (bool, error) {
	return mb.b.Has(db, key)
}

// Put saves given model in the database.
func (mb ModelBucket) Put(db ferry.KVStore, key []byte, m Model) error {
	if err := m.Validate(); err != nil {
		return errors.Wrap(err, "invalid model")
	}
	raw, err := m.Marshal()
	if err != nil {
		return errors.Wrap(err, "cannot marshal")
	}
	if err := mb.b.Set(db, key, raw); err != nil {
		return errors.Wrap(err, "cannot store in the database")
	}
	return nil
}

// Delete removes an entity with given primary key from the database.
// It returns ErrNotFound if an entity with given key does not exist.
func (mb ModelBucket) Delete(db ferry.KVStore, key []byte) error {
	ok, err := mb.b.Has(db, key)
	if err != nil {
		return err
	}
	if !ok {
		return errors.Wrapf(errors.ErrNotFound, "key %X", key)
	}
	return mb.b.Delete(db, key)
}

// IterateFrom returns an iterator over all models with a key greater or
// equal to from, in ascending key order.
func (mb ModelBucket) IterateFrom(db ferry.ReadOnlyKVStore, from []byte) (*ModelIterator, error) {
	it, err := mb.b.Range(db, from)
	if err != nil {
		return nil, err
	}
	return &ModelIterator{it: it, b: mb.b}, nil
}

// ModelIterator walks the models of a bucket.
type ModelIterator struct {
	it ferry.Iterator
	b  Bucket
}

// LoadNext loads the next model into dest and returns its key. It returns
// ErrIteratorDone when all models were read.
func (mi *ModelIterator) LoadNext(dest Model) ([]byte, error) {
	k, v, err := mi.it.Next()
	if err != nil {
		return nil, err
	}
	if err := dest.Unmarshal(v); err != nil {
		return nil, errors.Wrapf(err, "cannot unmarshal %T", dest)
	}
	return mi.b.Unprefix(k), nil
}

// Release releases the underlying iterator.
func (mi *ModelIterator) Release() {
	mi.it.Release()
}
