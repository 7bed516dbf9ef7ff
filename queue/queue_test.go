package queue

import (
	"testing"

	"github.com/iov-one/ferry/errors"
	"github.com/iov-one/ferry/migtest/assert"
	"github.com/iov-one/ferry/store"
)

func TestQueueFIFO(t *testing.T) {
	db := store.MemStore()
	q := New("outbox")

	_, err := q.Pop(db)
	assert.IsErr(t, errors.ErrEmpty, err)

	for _, m := range []string{"first", "second", "third"} {
		assert.Nil(t, q.Push(db, []byte(m)))
	}
	n, err := q.Len(db)
	assert.Nil(t, err)
	assert.Equal(t, uint64(3), n)

	all, err := q.All(db)
	assert.Nil(t, err)
	assert.Equal(t, [][]byte{[]byte("first"), []byte("second"), []byte("third")}, all)

	head, err := q.Peek(db)
	assert.Nil(t, err)
	assert.Equal(t, []byte("first"), head)

	for _, want := range []string{"first", "second"} {
		got, err := q.Pop(db)
		assert.Nil(t, err)
		assert.Equal(t, []byte(want), got)
	}

	// Pushing after a pop keeps the order.
	assert.Nil(t, q.Push(db, []byte("fourth")))
	for _, want := range []string{"third", "fourth"} {
		got, err := q.Pop(db)
		assert.Nil(t, err)
		assert.Equal(t, []byte(want), got)
	}
	n, err = q.Len(db)
	assert.Nil(t, err)
	assert.Equal(t, uint64(0), n)
	_, err = q.Peek(db)
	assert.IsErr(t, errors.ErrEmpty, err)
}

func TestQueuesAreIndependent(t *testing.T) {
	db := store.MemStore()
	in, out := New("inbox"), New("outbox")

	assert.Nil(t, in.Push(db, []byte("a")))
	assert.Nil(t, out.Push(db, []byte("b")))

	got, err := out.Pop(db)
	assert.Nil(t, err)
	assert.Equal(t, []byte("b"), got)

	n, err := in.Len(db)
	assert.Nil(t, err)
	assert.Equal(t, uint64(1), n)
}

func TestQueueDiscardedCacheLeavesNoTrace(t *testing.T) {
	db := store.MemStore()
	q := New("inbox")
	assert.Nil(t, q.Push(db, []byte("a")))

	cache := db.CacheWrap()
	_, err := q.Pop(cache)
	assert.Nil(t, err)
	cache.Discard()

	got, err := q.Peek(db)
	assert.Nil(t, err)
	assert.Equal(t, []byte("a"), got)
}
