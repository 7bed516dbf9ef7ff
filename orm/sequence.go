package orm

import (
	"encoding/binary"

	"github.com/iov-one/ferry"
	"github.com/iov-one/ferry/errors"
)

// Sequence hands out increasing uint64 values, starting at 0. Values encoded
// with EncodeSequence sort the same way as bytes and as numbers, so they can
// be used as keys of ordered buckets.
type Sequence struct {
	key []byte
}

// NewSequence returns the sequence stored under _s.<bucket>:<name>.
func NewSequence(bucket, name string) Sequence {
	return Sequence{key: []byte("_s." + bucket + ":" + name)}
}

// Peek returns the value the next call to Next hands out.
func (s Sequence) Peek(db ferry.ReadOnlyKVStore) (uint64, error) {
	raw, err := db.Get(s.key)
	if err != nil {
		return 0, err
	}
	return DecodeSequence(raw)
}

// Next returns a value that was never handed out before and advances the
// sequence.
func (s Sequence) Next(db ferry.KVStore) (uint64, error) {
	n, err := s.Peek(db)
	if err != nil {
		return 0, err
	}
	if n+1 == 0 {
		return 0, errors.Wrap(errors.ErrOverflow, "sequence exhausted")
	}
	if err := db.Set(s.key, EncodeSequence(n+1)); err != nil {
		return 0, err
	}
	return n, nil
}

// DecodeSequence reads a value written by EncodeSequence. A missing value
// decodes as 0.
func DecodeSequence(raw []byte) (uint64, error) {
	switch len(raw) {
	case 0:
		return 0, nil
	case 8:
		return binary.BigEndian.Uint64(raw), nil
	default:
		return 0, errors.Wrapf(errors.ErrModel, "sequence of %d bytes", len(raw))
	}
}

// EncodeSequence writes n as 8 big endian bytes.
func EncodeSequence(n uint64) []byte {
	raw := make([]byte, 8)
	binary.BigEndian.PutUint64(raw, n)
	return raw
}
