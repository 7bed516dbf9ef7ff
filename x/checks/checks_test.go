package checks

import (
	"testing"

	"github.com/iov-one/ferry"
	"github.com/iov-one/ferry/errors"
	"github.com/iov-one/ferry/migtest/assert"
	"github.com/iov-one/ferry/store"
)

func TestHarnessOrderAndPayloads(t *testing.T) {
	var calls []string

	record := func(name string, payload int, postErr error) Check {
		return Func{
			CheckName: name,
			Pre: func(oc, dc ferry.ReadOnlyKVStore) (Payload, error) {
				calls = append(calls, "pre:"+name)
				return payload, nil
			},
			Post: func(oc, dc ferry.ReadOnlyKVStore, p Payload) error {
				calls = append(calls, "post:"+name)
				if p.(int) != payload {
					t.Fatalf("%s: want payload %d, got %v", name, payload, p)
				}
				return postErr
			},
		}
	}

	h := NewHarness(record("accounts", 1, nil), record("proxy", 2, errors.ErrState))
	h.Add(record("stage", 3, errors.ErrNotFound))
	assert.Equal(t, []string{"accounts", "proxy", "stage"}, h.Names())

	oc, dc := store.MemStore(), store.MemStore()
	snap, err := h.PreCheck(oc, dc)
	assert.Nil(t, err)
	p, ok := snap.Payload("proxy")
	assert.True(t, ok, "proxy payload")
	assert.Equal(t, 2, p)

	err = h.PostCheck(oc, dc, snap)
	// All post checks are run, both failures are reported.
	assert.IsErr(t, errors.ErrState, err)
	assert.IsErr(t, errors.ErrNotFound, err)
	assert.Equal(t, []string{
		"pre:accounts", "pre:proxy", "pre:stage",
		"post:accounts", "post:proxy", "post:stage",
	}, calls)
}

func TestHarnessPreCheckFailure(t *testing.T) {
	h := NewHarness(Func{
		CheckName: "broken",
		Pre: func(oc, dc ferry.ReadOnlyKVStore) (Payload, error) {
			return nil, errors.ErrModel
		},
	})
	_, err := h.PreCheck(store.MemStore(), store.MemStore())
	assert.IsErr(t, errors.ErrModel, err)
}

func TestHarnessRejectsForeignSnapshot(t *testing.T) {
	a := NewHarness(Func{CheckName: "a"})
	b := NewHarness(Func{CheckName: "b"}, Func{CheckName: "c"})
	snap, err := a.PreCheck(store.MemStore(), store.MemStore())
	assert.Nil(t, err)
	assert.IsErr(t, errors.ErrState, b.PostCheck(store.MemStore(), store.MemStore(), snap))
	assert.IsErr(t, errors.ErrState, a.PostCheck(store.MemStore(), store.MemStore(), nil))
}
