package orm

import (
	"bytes"
	"testing"

	"github.com/iov-one/ferry/errors"
	"github.com/iov-one/ferry/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequence(t *testing.T) {
	db := store.MemStore()

	ids := NewSequence("queries", "id")
	other := NewBucket("queries").Sequence("other")

	n, err := ids.Peek(db)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), n)

	var prev []byte
	for want := uint64(0); want < 300; want++ {
		got, err := ids.Next(db)
		require.NoError(t, err)
		require.Equal(t, want, got)

		key := EncodeSequence(got)
		if prev != nil {
			require.Equal(t, 1, bytes.Compare(key, prev), "keys must sort like values")
		}
		prev = key
	}

	n, err = ids.Peek(db)
	require.NoError(t, err)
	assert.Equal(t, uint64(300), n)

	// Sequences of the same bucket do not share state.
	n, err = other.Next(db)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), n)
}

func TestSequenceOverflow(t *testing.T) {
	db := store.MemStore()
	s := NewSequence("b", "n")
	require.NoError(t, db.Set(s.key, EncodeSequence(^uint64(0))))
	_, err := s.Next(db)
	assert.True(t, errors.ErrOverflow.Is(err))

	require.NoError(t, db.Set(s.key, []byte{1, 2, 3}))
	_, err = s.Peek(db)
	assert.True(t, errors.ErrModel.Is(err))
}
