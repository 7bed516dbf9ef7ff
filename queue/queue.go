/*
Package queue implements a FIFO queue of raw messages stored in a KVStore.

The cross-chain channel of both chains is made of two such queues: an outbox
filled by the chain's state machine and drained by the relay, and an inbox
filled by the relay and drained by the state machine at the beginning of the
next block. Entries are keyed by a big endian position counter so iteration
order is insertion order.
*/
package queue

import (
	"encoding/binary"

	"github.com/iov-one/ferry"
	"github.com/iov-one/ferry/errors"
	"github.com/iov-one/ferry/orm"
)

// Queue is a named FIFO queue. The zero value is not usable, use New.
type Queue struct {
	items orm.Bucket
	// head points to the oldest item, tail to the next free position.
	head []byte
	tail []byte
}

// New returns a queue instance that stores its data using given name as the
// prefix.
func New(name string) Queue {
	return Queue{
		items: orm.NewBucket(name),
		head:  []byte("_q." + name + ":head"),
		tail:  []byte("_q." + name + ":tail"),
	}
}

// Push appends raw message at the end of the queue.
func (q Queue) Push(db ferry.KVStore, msg []byte) error {
	tail, err := q.pos(db, q.tail)
	if err != nil {
		return err
	}
	if err := q.items.Set(db, encodePos(tail), msg); err != nil {
		return errors.Wrap(err, "cannot update queue")
	}
	return db.Set(q.tail, encodePos(tail+1))
}

// Peek returns the oldest message without removing it. It returns ErrEmpty
// if the queue is empty.
func (q Queue) Peek(db ferry.ReadOnlyKVStore) ([]byte, error) {
	head, err := q.pos(db, q.head)
	if err != nil {
		return nil, err
	}
	raw, err := q.items.Get(db, encodePos(head))
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, errors.Wrap(errors.ErrEmpty, "queue")
	}
	return raw, nil
}

// Pop removes from the queue the oldest message and returns it. It returns
// ErrEmpty if there is no message.
func (q Queue) Pop(db ferry.KVStore) ([]byte, error) {
	raw, err := q.Peek(db)
	if err != nil {
		return nil, err
	}
	head, err := q.pos(db, q.head)
	if err != nil {
		return nil, err
	}
	if err := q.items.Delete(db, encodePos(head)); err != nil {
		return nil, errors.Wrap(err, "cannot update queue")
	}
	if err := db.Set(q.head, encodePos(head+1)); err != nil {
		return nil, errors.Wrap(err, "cannot update queue")
	}
	return raw, nil
}

// Len returns the number of messages currently in the queue.
func (q Queue) Len(db ferry.ReadOnlyKVStore) (uint64, error) {
	head, err := q.pos(db, q.head)
	if err != nil {
		return 0, err
	}
	tail, err := q.pos(db, q.tail)
	if err != nil {
		return 0, err
	}
	return tail - head, nil
}

// All returns every message in the queue, oldest first, without removing
// them.
func (q Queue) All(db ferry.ReadOnlyKVStore) ([][]byte, error) {
	it, err := q.items.Range(db, nil)
	if err != nil {
		return nil, err
	}
	defer it.Release()

	var msgs [][]byte
	for {
		switch _, v, err := it.Next(); {
		case err == nil:
			msgs = append(msgs, v)
		case errors.ErrIteratorDone.Is(err):
			return msgs, nil
		default:
			return nil, err
		}
	}
}

func (q Queue) pos(db ferry.ReadOnlyKVStore, key []byte) (uint64, error) {
	raw, err := db.Get(key)
	if err != nil {
		return 0, errors.Wrap(err, "cannot read queue position")
	}
	if raw == nil {
		return 0, nil
	}
	return binary.BigEndian.Uint64(raw), nil
}

func encodePos(n uint64) []byte {
	raw := make([]byte, 8)
	binary.BigEndian.PutUint64(raw, n)
	return raw
}
