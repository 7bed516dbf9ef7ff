package govremap

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/iov-one/ferry"
	"github.com/iov-one/ferry/errors"
	"github.com/iov-one/ferry/migtest/assert"
	"github.com/iov-one/ferry/store"
	"github.com/iov-one/ferry/x/preimage"
	"github.com/stretchr/testify/require"
)

func table() Configuration {
	return Configuration{Modules: []ModuleMapping{
		{Name: "system", From: 0, To: 0},
		{Name: "treasury", From: 19, To: 60},
		{Name: "referenda", From: 21, To: 62, Calls: []CallMapping{{From: 0, To: 0}, {From: 3, To: 1}}},
	}}
}

func TestMapCall(t *testing.T) {
	m := NewMapper(table())
	cases := map[string]struct {
		call    []byte
		want    []byte
		wantErr *errors.Error
	}{
		"arguments are kept": {
			call: []byte{19, 5, 0xaa, 0xbb},
			want: []byte{60, 5, 0xaa, 0xbb},
		},
		"identity module": {
			call: []byte{0, 1},
			want: []byte{0, 1},
		},
		"renumbered call": {
			call: []byte{21, 3, 7},
			want: []byte{62, 1, 7},
		},
		"call not listed": {
			call:    []byte{21, 2},
			wantErr: errors.ErrCallNotMigratable,
		},
		"unknown module": {
			call:    []byte{99, 0},
			wantErr: errors.ErrCallNotMigratable,
		},
		"empty": {
			call:    nil,
			wantErr: errors.ErrInput,
		},
		"no call index": {
			call:    []byte{19},
			wantErr: errors.ErrInput,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := m.MapCall(tc.call)
			if tc.wantErr != nil {
				assert.IsErr(t, tc.wantErr, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestMapCallDoesNotModifyInput(t *testing.T) {
	call := []byte{19, 1, 2}
	_, err := NewMapper(table()).MapCall(call)
	require.NoError(t, err)
	assert.Equal(t, []byte{19, 1, 2}, call)
}

func TestMapBounded(t *testing.T) {
	db := store.MemStore()
	ps := preimage.NewStore()
	m := NewMapper(table())

	// Short calls stay inline.
	got, err := m.MapBounded(db, ps, Inline([]byte{19, 0, 1}))
	require.NoError(t, err)
	assert.Equal(t, Inline([]byte{60, 0, 1}), got)

	// A short call behind a preimage becomes inline and releases the
	// preimage.
	short := []byte{21, 0, 9}
	hash, err := ps.Note(db, short)
	require.NoError(t, err)
	got, err = m.MapBounded(db, ps, Lookup(hash, uint32(len(short))))
	require.NoError(t, err)
	assert.Equal(t, Inline([]byte{62, 0, 9}), got)
	p, err := ps.Get(db, hash)
	require.NoError(t, err)
	assert.Nil(t, p)

	// Long calls are noted as a new preimage.
	long := append([]byte{19, 4}, bytes.Repeat([]byte{7}, 200)...)
	hash, err = ps.Put(db, &preimage.Preimage{Data: long})
	require.NoError(t, err)
	got, err = m.MapBounded(db, ps, Lookup(hash, uint32(len(long))))
	require.NoError(t, err)
	require.True(t, got.IsLookup())
	assert.Equal(t, uint32(len(long)), got.Len)
	data, err := ps.Fetch(db, got.Hash, got.Len)
	require.NoError(t, err)
	assert.Equal(t, byte(60), data[0])

	_, err = m.MapBounded(db, ps, Lookup(preimage.Hash([]byte("missing")), 3))
	assert.IsErr(t, errors.ErrNotFound, err)

	_, err = m.MapBounded(db, ps, Inline([]byte{99, 1}))
	assert.IsErr(t, errors.ErrCallNotMigratable, err)

	_, err = m.MapBounded(db, ps, Bounded{})
	assert.IsErr(t, errors.ErrEmpty, err)
}

func TestConfiguration(t *testing.T) {
	db := store.MemStore()
	c, err := LoadConfiguration(db)
	require.NoError(t, err)
	assert.Equal(t, 0, len(c.Modules))

	require.NoError(t, SaveConfiguration(db, table()))
	m, err := LoadMapper(db)
	require.NoError(t, err)
	got, err := m.MapCall([]byte{19, 0})
	require.NoError(t, err)
	assert.Equal(t, []byte{60, 0}, got)

	dup := table()
	dup.Modules = append(dup.Modules, ModuleMapping{Name: "again", From: 19, To: 1})
	assert.IsErr(t, errors.ErrDuplicate, dup.Validate())
}

func TestGenesis(t *testing.T) {
	var opts ferry.Options
	require.NoError(t, json.Unmarshal([]byte(`{
		"conf": {"govremap": {"modules": [{"name": "treasury", "from": 19, "to": 60}]}}
	}`), &opts))

	db := store.MemStore()
	var init Initializer
	require.NoError(t, init.FromGenesis(opts, db))
	c, err := LoadConfiguration(db)
	require.NoError(t, err)
	assert.Equal(t, []ModuleMapping{{Name: "treasury", From: 19, To: 60}}, c.Modules)

	require.NoError(t, init.FromGenesis(ferry.Options{}, store.MemStore()))
}
