/*
Package app turns the ferry extensions into a running chain.

A Chain owns a CommitKVStore and advances it block by block: BeginBlock runs
the tickers, DeliverTx routes the signed transactions through the decorator
stack to the handlers and Commit persists the block. Every ticker and every
transaction works on its own cache wrap, so a failure never leaves partial
state behind and never halts the chain.
*/
package app

import (
	"context"
	"fmt"

	"github.com/iov-one/ferry"
	"github.com/iov-one/ferry/errors"
	abci "github.com/tendermint/tendermint/abci/types"
	"github.com/tendermint/tendermint/libs/log"
)

// Chain is a block synchronous state machine over a CommitKVStore.
type Chain struct {
	name   string
	logger log.Logger

	committed ferry.CommitKVStore
	// deliver collects all changes of the current block
	deliver ferry.KVCacheWrap

	decoder     ferry.TxDecoder
	handler     ferry.Handler
	tickers     []ferry.Ticker
	initializer ferry.Initializer

	chainID string
	height  int64
	debug   bool

	// baseContext contains context info that is valid for
	// lifetime of this app (eg. chainID)
	baseContext ferry.Context
	// blockContext contains context info that is valid for the
	// current block (eg. height, header), reset on BeginBlock
	blockContext ferry.Context
}

// NewChain loads the latest state of the store. It panics if the store
// cannot be loaded.
func NewChain(name string, store ferry.CommitKVStore, handler ferry.Handler, init ferry.Initializer, tickers ...ferry.Ticker) *Chain {
	if err := store.LoadLatestVersion(); err != nil {
		panic(err)
	}
	c := &Chain{
		name:        name,
		committed:   store,
		deliver:     store.CacheWrap(),
		decoder:     DecodeTx,
		handler:     handler,
		tickers:     tickers,
		initializer: init,
		baseContext: context.Background(),
	}
	c = c.WithLogger(log.NewNopLogger())

	if id, err := store.LatestVersion(); err == nil {
		c.height = id.Version
	}
	chainID, err := loadChainID(c.deliver)
	if err != nil {
		panic(err)
	}
	if chainID != "" {
		c.chainID = chainID
		c.baseContext = ferry.WithChainID(c.baseContext, chainID)
	}
	c.blockContext = c.baseContext
	return c
}

// WithLogger sets the logger on the Chain and returns it,
// to make it easy to chain in initialization
func (c *Chain) WithLogger(logger log.Logger) *Chain {
	c.logger = logger.With("chain", c.name)
	c.baseContext = ferry.WithLogger(c.baseContext, c.logger)
	return c
}

// WithDebug makes the transaction results carry full error details.
func (c *Chain) WithDebug(debug bool) *Chain {
	c.debug = debug
	return c
}

// Name returns the name given to the chain.
func (c *Chain) Name() string {
	return c.name
}

// ChainID returns the chain id set in genesis.
func (c *Chain) ChainID() string {
	return c.chainID
}

// Height returns the height of the last block started.
func (c *Chain) Height() int64 {
	return c.height
}

// Logger returns the chain logger.
func (c *Chain) Logger() log.Logger {
	return c.logger
}

// DeliverStore returns the state of the current block. Changes written to
// it are committed with the block.
func (c *Chain) DeliverStore() ferry.CacheableKVStore {
	return c.deliver
}

// InitChain stores the chain id and initializes all extensions from the
// genesis application state.
func (c *Chain) InitChain(gen Genesis) error {
	if c.chainID != "" {
		return errors.Wrapf(errors.ErrState, "genesis previously loaded for chain %s", c.chainID)
	}
	cache := c.deliver.CacheWrap()
	defer cache.Discard()

	if err := saveChainID(cache, gen.ChainID); err != nil {
		return err
	}
	if c.initializer != nil {
		if err := c.initializer.FromGenesis(gen.AppState, cache); err != nil {
			return errors.Wrap(err, "genesis")
		}
	}
	if err := cache.Write(); err != nil {
		return err
	}
	c.chainID = gen.ChainID
	c.baseContext = ferry.WithChainID(c.baseContext, gen.ChainID)
	c.blockContext = c.baseContext
	c.logger.Info("chain initialized", "chain_id", gen.ChainID)
	return nil
}

// BeginBlock sets the block context and runs all tickers. A failing ticker
// is logged and its changes are discarded.
func (c *Chain) BeginBlock(header abci.Header) abci.ResponseBeginBlock {
	c.height = header.Height
	ctx := ferry.WithHeader(c.baseContext, header)
	ctx = ferry.WithHeight(ctx, header.Height)
	c.blockContext = ctx

	var response abci.ResponseBeginBlock
	ctx = ferry.WithLogInfo(ctx, "call", "begin_block", "height", header.Height)
	for _, t := range c.tickers {
		res, err := c.tick(ctx, t)
		if err != nil {
			ferry.GetLogger(ctx).Error("ticker failed", "ticker", fmt.Sprintf("%T", t), "err", err)
			continue
		}
		if res != nil {
			response.Tags = append(response.Tags, res.Tags...)
		}
	}
	return response
}

func (c *Chain) tick(ctx ferry.Context, t ferry.Ticker) (res *ferry.TickResult, err error) {
	defer errors.Recover(&err)

	cache := c.deliver.CacheWrap()
	defer cache.Discard()
	res, err = t.Tick(ctx, cache)
	if err != nil {
		return nil, err
	}
	return res, cache.Write()
}

// BlockContext returns the context of the current block.
func (c *Chain) BlockContext() ferry.Context {
	return c.blockContext
}

// DeliverTx decodes the transaction and passes it to the handler.
func (c *Chain) DeliverTx(txBytes []byte) abci.ResponseDeliverTx {
	tx, err := c.loadTx(txBytes)
	if err != nil {
		return ferry.DeliverTxError(err, c.debug)
	}
	res, err := c.Deliver(tx)
	return ferry.DeliverOrError(res, err, c.debug)
}

// Deliver passes a decoded transaction to the handler. Changes are applied
// only if the handler succeeds.
func (c *Chain) Deliver(tx ferry.Tx) (*ferry.DeliverResult, error) {
	ctx := ferry.WithLogInfo(c.blockContext,
		"call", "deliver_tx",
		"path", ferry.GetPath(tx))

	cache := c.deliver.CacheWrap()
	defer cache.Discard()

	res, err := c.handler.Deliver(ctx, cache, tx)
	if err == nil {
		err = cache.Write()
	}
	if err != nil {
		ferry.GetLogger(ctx).Debug("transaction failed", "err", err)
	}
	return res, err
}

// CheckTx validates the transaction against the current block state without
// applying it.
func (c *Chain) CheckTx(txBytes []byte) abci.ResponseCheckTx {
	tx, err := c.loadTx(txBytes)
	if err != nil {
		return ferry.CheckTxError(err, c.debug)
	}
	ctx := ferry.WithLogInfo(c.blockContext,
		"call", "check_tx",
		"path", ferry.GetPath(tx))

	cache := c.deliver.CacheWrap()
	defer cache.Discard()
	res, err := c.handler.Check(ctx, cache, tx)
	return ferry.CheckOrError(res, err, c.debug)
}

// Commit writes the block to the underlying store.
func (c *Chain) Commit() (ferry.CommitID, error) {
	if err := c.deliver.Write(); err != nil {
		return ferry.CommitID{}, errors.Wrap(err, "cannot flush block")
	}
	id, err := c.committed.Commit()
	if err != nil {
		return id, err
	}
	c.deliver = c.committed.CacheWrap()
	c.logger.Debug("block committed", "height", id.Version, "hash", fmt.Sprintf("%X", id.Hash))
	return id, nil
}

// loadTx calls the decoder, and capture any panics
func (c *Chain) loadTx(txBytes []byte) (tx ferry.Tx, err error) {
	defer errors.Recover(&err)
	tx, err = c.decoder(txBytes)
	return
}
