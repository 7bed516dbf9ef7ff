/*
Package ferry holds the interfaces shared by the migration extensions and
the few types every one of them needs: addresses, conditions, stores,
transactions and handlers.

Block data travels in a context.Context. Each value has a WithX function
that sets it and a GetX function that reads it. Values describing the block
can be set only once, so an extension cannot rewrite the height or the
header seen by the handlers below it.
*/
package ferry

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/iov-one/ferry/errors"
	abci "github.com/tendermint/tendermint/abci/types"
	"github.com/tendermint/tendermint/libs/log"
)

// Context is the context.Context passed through all handlers.
type Context = context.Context

type (
	headerKey  struct{}
	heightKey  struct{}
	chainIDKey struct{}
	loggerKey  struct{}
)

var (
	// DefaultLogger is returned by GetLogger when no logger was set.
	DefaultLogger = log.NewNopLogger()

	chainIDRx = regexp.MustCompile(`^[a-zA-Z0-9_\-]{6,20}$`)
)

// IsValidChainID returns true for 6 to 20 letters, digits, dashes or
// underscores.
func IsValidChainID(id string) bool {
	return chainIDRx.MatchString(id)
}

func setOnce(ctx Context, key, val interface{}, name string) Context {
	if ctx.Value(key) != nil {
		panic(name + " already set")
	}
	return context.WithValue(ctx, key, val)
}

// WithHeader sets the header of the current block. It panics if a header is
// already set.
func WithHeader(ctx Context, header abci.Header) Context {
	return setOnce(ctx, headerKey{}, header, "header")
}

// GetHeader returns the header of the current block.
func GetHeader(ctx Context) (abci.Header, bool) {
	h, ok := ctx.Value(headerKey{}).(abci.Header)
	return h, ok
}

// WithHeight sets the current block height. It panics if a height is
// already set.
func WithHeight(ctx Context, height int64) Context {
	return setOnce(ctx, heightKey{}, height, "height")
}

// GetHeight returns the current block height.
func GetHeight(ctx Context) (int64, bool) {
	h, ok := ctx.Value(heightKey{}).(int64)
	return h, ok
}

// MustGetHeight is GetHeight for callers that always run within a block,
// like tickers. It panics without a height.
func MustGetHeight(ctx Context) int64 {
	h, ok := GetHeight(ctx)
	if !ok {
		panic("no height in context")
	}
	return h
}

// BlockTime returns the time declared in the block header.
func BlockTime(ctx Context) (time.Time, error) {
	h, ok := GetHeader(ctx)
	if !ok {
		return time.Time{}, errors.Wrap(errors.ErrState, "no header in context")
	}
	return h.Time, nil
}

// WithChainID sets the chain id. It panics for an invalid id or if one is
// already set.
func WithChainID(ctx Context, chainID string) Context {
	if !IsValidChainID(chainID) {
		panic(fmt.Sprintf("invalid chain id %q", chainID))
	}
	return setOnce(ctx, chainIDKey{}, chainID, "chain id")
}

// GetChainID returns the chain id. The app always sets it, so a missing id
// panics.
func GetChainID(ctx Context) string {
	id, ok := ctx.Value(chainIDKey{}).(string)
	if !ok {
		panic("no chain id in context")
	}
	return id
}

// WithLogger replaces the logger of the context.
func WithLogger(ctx Context, logger log.Logger) Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// GetLogger returns the logger of the context, or DefaultLogger.
func GetLogger(ctx Context) log.Logger {
	if l, ok := ctx.Value(loggerKey{}).(log.Logger); ok {
		return l
	}
	return DefaultLogger
}

// WithLogInfo adds key value pairs to every line logged with the returned
// context.
func WithLogInfo(ctx Context, keyvals ...interface{}) Context {
	return WithLogger(ctx, GetLogger(ctx).With(keyvals...))
}
