package x

import (
	"github.com/iov-one/ferry"
	"github.com/iov-one/ferry/errors"
	"github.com/iov-one/ferry/orm"
)

// MigrateBucket is the common body of Domain.Migrate for domains stored in
// a single bucket.
//
// Keys are visited in order, starting with cursor. step withdraws the
// record stored under the key and returns its encoded form, or nil if the
// record is not migrated. Once step returns ErrOutOfWeight the key is
// returned as the cursor of the next call. All collected records are passed
// to the sender before returning.
func MigrateBucket(
	ctx ferry.Context,
	db ferry.KVStore,
	b orm.Bucket,
	cursor []byte,
	domain string,
	out Sender,
	step func(key []byte) ([]byte, error),
) (next []byte, done bool, err error) {
	it, err := b.Range(db, cursor)
	if err != nil {
		return nil, false, err
	}
	defer it.Release()

	var items [][]byte
	for {
		k, _, err := it.Next()
		if errors.ErrIteratorDone.Is(err) {
			done = true
			break
		}
		if err != nil {
			return nil, false, err
		}
		key := b.Unprefix(k)
		item, err := step(key)
		if errors.ErrOutOfWeight.Is(err) {
			next = append([]byte(nil), key...)
			break
		}
		if err != nil {
			return nil, false, errors.Wrapf(err, "%s %X", domain, key)
		}
		if item != nil {
			items = append(items, item)
		}
	}

	if len(items) > 0 {
		if err := out.SendChunked(ctx, db, domain, items); err != nil {
			return nil, false, err
		}
	}
	return next, done, nil
}
