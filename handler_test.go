package ferry_test

import (
	"encoding/json"
	"testing"

	"github.com/iov-one/ferry"
	"github.com/iov-one/ferry/errors"
	"github.com/iov-one/ferry/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadOptions(t *testing.T) {
	var opts ferry.Options
	require.NoError(t, json.Unmarshal([]byte(`{"lag": 3, "accounts": [{"free": 1}], "broken": "x"}`), &opts))

	var lag int
	require.NoError(t, opts.ReadOptions("lag", &lag))
	assert.Equal(t, 3, lag)

	var accounts []struct{ Free uint64 }
	require.NoError(t, opts.ReadOptions("accounts", &accounts))
	assert.Equal(t, uint64(1), accounts[0].Free)

	missing := 42
	require.NoError(t, opts.ReadOptions("missing", &missing))
	assert.Equal(t, 42, missing)

	var n int
	assert.Error(t, opts.ReadOptions("broken", &n))
}

type recordingInit struct {
	name string
	fail bool
	log  *[]string
}

func (r recordingInit) FromGenesis(opts ferry.Options, db ferry.KVStore) error {
	*r.log = append(*r.log, r.name)
	if r.fail {
		return errors.Wrap(errors.ErrInput, r.name)
	}
	return db.Set([]byte(r.name), []byte{1})
}

func TestChainInitializers(t *testing.T) {
	var log []string
	db := store.MemStore()
	init := ferry.ChainInitializers(
		recordingInit{name: "origin", log: &log},
		recordingInit{name: "xcm", log: &log},
	)
	require.NoError(t, init.FromGenesis(ferry.Options{}, db))
	assert.Equal(t, []string{"origin", "xcm"}, log)

	log = nil
	init = ferry.ChainInitializers(
		recordingInit{name: "first", fail: true, log: &log},
		recordingInit{name: "never", log: &log},
	)
	err := init.FromGenesis(ferry.Options{}, db)
	assert.True(t, errors.ErrInput.Is(err))
	assert.Equal(t, []string{"first"}, log)
}
