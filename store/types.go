package store

import (
	"github.com/iov-one/ferry"
	"github.com/iov-one/ferry/errors"
)

// Short names for the storage interfaces declared in the root package.
type (
	ReadOnlyKVStore  = ferry.ReadOnlyKVStore
	SetDeleter       = ferry.SetDeleter
	KVStore          = ferry.KVStore
	Batch            = ferry.Batch
	Iterator         = ferry.Iterator
	CacheableKVStore = ferry.CacheableKVStore
	KVCacheWrap      = ferry.KVCacheWrap
	CommitKVStore    = ferry.CommitKVStore
	CommitID         = ferry.CommitID
)

// KV is a key with its value.
type KV struct {
	Key   []byte
	Value []byte
}

// Pair returns a KV.
func Pair(key, value []byte) KV {
	return KV{Key: key, Value: value}
}

// sliceIterator returns the pairs of a slice in order.
type sliceIterator []KV

// NewSliceIterator returns an Iterator over pairs, in the order given.
func NewSliceIterator(pairs []KV) Iterator {
	it := sliceIterator(pairs)
	return &it
}

func (s *sliceIterator) Next() ([]byte, []byte, error) {
	if len(*s) == 0 {
		return nil, nil, errors.ErrIteratorDone
	}
	kv := (*s)[0]
	*s = (*s)[1:]
	return kv.Key, kv.Value, nil
}

func (s *sliceIterator) Release() {
	*s = nil
}

// EmptyKVStore holds nothing and drops every write. It is the bottom layer
// of the in memory stores.
type EmptyKVStore struct{}

var _ KVStore = EmptyKVStore{}

func (EmptyKVStore) Get([]byte) ([]byte, error) { return nil, nil }
func (EmptyKVStore) Has([]byte) (bool, error)   { return false, nil }
func (EmptyKVStore) Set(_, _ []byte) error      { return nil }
func (EmptyKVStore) Delete([]byte) error        { return nil }
func (e EmptyKVStore) NewBatch() Batch          { return NewOpBatch(e) }
func (EmptyKVStore) Iterator(_, _ []byte) (Iterator, error) {
	return NewSliceIterator(nil), nil
}
func (EmptyKVStore) ReverseIterator(_, _ []byte) (Iterator, error) {
	return NewSliceIterator(nil), nil
}
