package ferry

import (
	"encoding/json"

	"github.com/iov-one/ferry/errors"
)

// Checker validates a transaction without committing its effects.
type Checker interface {
	Check(ctx Context, db KVStore, tx Tx) (*CheckResult, error)
}

// Deliverer executes a transaction.
type Deliverer interface {
	Deliver(ctx Context, db KVStore, tx Tx) (*DeliverResult, error)
}

// Handler processes the messages of one or more paths, like the migration
// admin messages of a chain.
type Handler interface {
	Checker
	Deliverer
}

// Decorator runs around the next handler of a stack, for example to verify
// signatures or to recover from panics.
type Decorator interface {
	Check(ctx Context, db KVStore, tx Tx, next Checker) (*CheckResult, error)
	Deliver(ctx Context, db KVStore, tx Tx, next Deliverer) (*DeliverResult, error)
}

// Ticker runs at the beginning of every block. The migration state machines
// of both chains are tickers.
type Ticker interface {
	Tick(ctx Context, db KVStore) (*TickResult, error)
}

// Registry binds message paths to handlers.
type Registry interface {
	Handle(m Msg, h Handler)
}

// Options is the app state of a genesis file, one JSON section per
// extension.
type Options map[string]json.RawMessage

// ReadOptions decodes the section under key into obj. A missing section
// leaves obj untouched.
func (o Options) ReadOptions(key string, obj interface{}) error {
	raw, ok := o[key]
	if !ok || len(raw) == 0 {
		return nil
	}
	return errors.Wrapf(json.Unmarshal(raw, obj), "genesis section %q", key)
}

// Initializer loads the genesis state of an extension.
type Initializer interface {
	FromGenesis(opts Options, db KVStore) error
}

// ChainInitializers returns an Initializer running inits in order. The first
// failure stops the chain.
func ChainInitializers(inits ...Initializer) Initializer {
	return initializers(inits)
}

type initializers []Initializer

func (all initializers) FromGenesis(opts Options, db KVStore) error {
	for _, init := range all {
		if err := init.FromGenesis(opts, db); err != nil {
			return err
		}
	}
	return nil
}
