package app

import (
	"encoding/json"
	"io/ioutil"

	"github.com/iov-one/ferry"
	"github.com/iov-one/ferry/errors"
)

// Genesis file format, designed to be overlayed with tendermint genesis
type Genesis struct {
	ChainID  string        `json:"chain_id"`
	AppState ferry.Options `json:"app_state"`
}

// LoadGenesis tries to load a given file into a Genesis struct
func LoadGenesis(filePath string) (Genesis, error) {
	var gen Genesis

	raw, err := ioutil.ReadFile(filePath)
	if err != nil {
		return gen, errors.Wrap(errors.ErrInput, err.Error())
	}
	if err := json.Unmarshal(raw, &gen); err != nil {
		return gen, errors.Wrapf(errors.ErrInput, "cannot unmarshal genesis file: %s", err)
	}
	return gen, nil
}

const chainIDKey = "_app:chain_id"

// loadChainID returns the chain id stored if any
func loadChainID(kv ferry.ReadOnlyKVStore) (string, error) {
	v, err := kv.Get([]byte(chainIDKey))
	return string(v), err
}

// saveChainID stores a chain id in the kv store.
// Returns error if already set, or invalid name
func saveChainID(kv ferry.KVStore, chainID string) error {
	if !ferry.IsValidChainID(chainID) {
		return errors.Wrapf(errors.ErrInput, "chain id: %s", chainID)
	}
	k := []byte(chainIDKey)
	switch ok, err := kv.Has(k); {
	case err != nil:
		return err
	case ok:
		return errors.Wrap(errors.ErrDuplicate, "chain id already set")
	}
	return kv.Set(k, []byte(chainID))
}
