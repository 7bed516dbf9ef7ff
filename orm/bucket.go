/*
Package orm provides an easy to use db wrapper

Break state space into prefixed sections called Buckets.
* Each bucket contains only one type of object.
* Keys are ordered, so a bucket can be walked from any key onwards,
which is how the migration cursors resume their work.
* Easy queries for one and iteration.
*/
package orm

import (
	"fmt"
	"regexp"

	"github.com/iov-one/ferry"
	"github.com/iov-one/ferry/errors"
)

var (
	isBucketName = regexp.MustCompile(`^[a-z_]{3,12}$`).MatchString
)

// Bucket is a prefixed subspace of the DB. All keys stored through a bucket
// are prefixed with "<name>:".
//
// This is a generic building block that should generally
// be embedded in a type-safe wrapper to ensure all data
// is the same type.
type Bucket struct {
	name   string
	prefix []byte
}

// NewBucket creates a bucket to store data
func NewBucket(name string) Bucket {
	if !isBucketName(name) {
		panic(fmt.Sprintf("Illegal bucket: %s", name))
	}
	return Bucket{
		name:   name,
		prefix: append([]byte(name), ':'),
	}
}

// Name returns the name of the bucket.
func (b Bucket) Name() string {
	return b.name
}

// DBKey is the full key we store in the db, including prefix
// We copy into a new array rather than use append, as we don't
// want consecutive calls to overwrite the same byte array.
func (b Bucket) DBKey(key []byte) []byte {
	// Long story: annoying bug... storing with keys "ab" and "acd"
	// would cause the second to overwrite the first.
	l := len(b.prefix)
	res := make([]byte, l+len(key))
	copy(res, b.prefix)
	copy(res[l:], key)
	return res
}

// Get returns the raw value stored under the key or nil.
func (b Bucket) Get(db ferry.ReadOnlyKVStore, key []byte) ([]byte, error) {
	raw, err := db.Get(b.DBKey(key))
	if err != nil {
		return nil, errors.Wrap(err, "cannot load from the database")
	}
	return raw, nil
}

// Has returns true if the key is present.
func (b Bucket) Has(db ferry.ReadOnlyKVStore, key []byte) (bool, error) {
	ok, err := db.Has(b.DBKey(key))
	if err != nil {
		return false, errors.Wrap(err, "cannot query the database")
	}
	return ok, nil
}

// Set stores a raw value.
func (b Bucket) Set(db ferry.KVStore, key, value []byte) error {
	if len(key) == 0 {
		return errors.Wrap(errors.ErrEmpty, "key")
	}
	return db.Set(b.DBKey(key), value)
}

// Delete removes a value.
func (b Bucket) Delete(db ferry.KVStore, key []byte) error {
	return db.Delete(b.DBKey(key))
}

// Sequence returns a Sequence by name
func (b Bucket) Sequence(name string) Sequence {
	return NewSequence(b.name, name)
}

// Range returns the raw iterator over all keys of the bucket that are
// greater or equal to from. A nil from walks the whole bucket. Returned
// keys still carry the bucket prefix, use Unprefix to strip it.
func (b Bucket) Range(db ferry.ReadOnlyKVStore, from []byte) (ferry.Iterator, error) {
	start := b.prefix
	if from != nil {
		start = b.DBKey(from)
	}
	return db.Iterator(start, PrefixEnd(b.prefix))
}

// Unprefix removes the bucket prefix from a full database key.
func (b Bucket) Unprefix(dbKey []byte) []byte {
	return dbKey[len(b.prefix):]
}

// PrefixEnd returns the first key that does not start with the given prefix.
// It returns nil when no such key exists (prefix is all 0xff).
func PrefixEnd(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for len(end) > 0 {
		last := len(end) - 1
		if end[last] != 0xff {
			end[last]++
			return end
		}
		end = end[:last]
	}
	return nil
}

// KeyAfter returns the smallest key that is greater than key. Use it to turn
// the last processed key into the start of the next iteration.
func KeyAfter(key []byte) []byte {
	return append(append([]byte(nil), key...), 0)
}
