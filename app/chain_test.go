package app

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/iov-one/ferry"
	"github.com/iov-one/ferry/codec"
	"github.com/iov-one/ferry/errors"
	"github.com/iov-one/ferry/migtest/assert"
	"github.com/iov-one/ferry/store/iavl"
	"github.com/iov-one/ferry/x/sigs"
	abci "github.com/tendermint/tendermint/abci/types"
)

// counterMsg increments the counter stored under Key.
type counterMsg struct {
	Key  string
	Fail bool
}

func init() {
	codec.RegisterMsg(&counterMsg{}, "test/counter")
}

func (m *counterMsg) Path() string               { return "test/counter" }
func (m *counterMsg) Marshal() ([]byte, error)   { return codec.Marshal(m) }
func (m *counterMsg) Unmarshal(raw []byte) error { return codec.Unmarshal(raw, m) }

func (m *counterMsg) Validate() error {
	if m.Key == "" {
		return errors.Wrap(errors.ErrEmpty, "key")
	}
	return nil
}

type counterHandler struct{}

func (counterHandler) Check(ctx ferry.Context, db ferry.KVStore, tx ferry.Tx) (*ferry.CheckResult, error) {
	var msg counterMsg
	if err := ferry.LoadMsg(tx, &msg); err != nil {
		return nil, err
	}
	return &ferry.CheckResult{}, nil
}

func (counterHandler) Deliver(ctx ferry.Context, db ferry.KVStore, tx ferry.Tx) (*ferry.DeliverResult, error) {
	var msg counterMsg
	if err := ferry.LoadMsg(tx, &msg); err != nil {
		return nil, err
	}
	if err := incr(db, msg.Key); err != nil {
		return nil, err
	}
	if msg.Fail {
		return nil, errors.Wrap(errors.ErrState, "requested failure")
	}
	return &ferry.DeliverResult{Tags: []ferry.KVPair{ferry.Tag("counter", msg.Key)}}, nil
}

func incr(db ferry.KVStore, key string) error {
	raw, err := db.Get([]byte(key))
	if err != nil {
		return err
	}
	return db.Set([]byte(key), append(raw, 'x'))
}

// blockTicker counts blocks and fails on odd heights, after writing.
type blockTicker struct{}

func (blockTicker) Tick(ctx ferry.Context, db ferry.KVStore) (*ferry.TickResult, error) {
	if err := incr(db, "blocks"); err != nil {
		return nil, err
	}
	if ferry.MustGetHeight(ctx)%2 == 1 {
		return nil, errors.Wrap(errors.ErrState, "odd block")
	}
	return &ferry.TickResult{Tags: []ferry.KVPair{ferry.Tag("tick", "even")}}, nil
}

func TestChainLifecycle(t *testing.T) {
	key, err := sigs.PrivateKeyFromSeed(make([]byte, 32))
	assert.Nil(t, err)

	router := NewRouter()
	router.Handle(&counterMsg{}, counterHandler{})
	handler := ChainDecorators(NewRecovery(), sigs.NewDecorator()).WithHandler(router)

	db := iavl.NewMemCommitStore()
	chain := NewChain("test", db, handler, nil, blockTicker{})

	gen := Genesis{ChainID: "test-chain", AppState: ferry.Options{"any": json.RawMessage(`{}`)}}
	assert.Nil(t, chain.InitChain(gen))
	assert.IsErr(t, errors.ErrState, chain.InitChain(gen))
	assert.Equal(t, "test-chain", chain.ChainID())

	signed := func(msg *counterMsg, nonce uint64) []byte {
		tx := NewTx(msg)
		assert.Nil(t, tx.Sign(key, "test-chain", nonce))
		raw, err := tx.Marshal()
		assert.Nil(t, err)
		return raw
	}

	for h := int64(1); h <= 2; h++ {
		res := chain.BeginBlock(abci.Header{Height: h, Time: time.Unix(h*6, 0)})
		if h == 2 {
			assert.Equal(t, 1, len(res.Tags))
		} else {
			assert.Equal(t, 0, len(res.Tags))
		}

		dres := chain.DeliverTx(signed(&counterMsg{Key: "c"}, uint64(h-1)*2))
		assert.Equal(t, uint32(0), dres.Code)
		// A failing message leaves no trace, except the nonce is not
		// consumed either.
		dres = chain.DeliverTx(signed(&counterMsg{Key: "c", Fail: true}, uint64(h-1)*2+1))
		assert.True(t, dres.Code != 0, "failing message must return an error code")
		dres = chain.DeliverTx(signed(&counterMsg{Key: "c"}, uint64(h-1)*2+1))
		assert.Equal(t, uint32(0), dres.Code)

		_, err := chain.Commit()
		assert.Nil(t, err)
	}

	// Unsigned transactions are rejected.
	raw, err := NewTx(&counterMsg{Key: "c"}).Marshal()
	assert.Nil(t, err)
	assert.True(t, chain.DeliverTx(raw).Code != 0, "unsigned transaction accepted")
	assert.True(t, chain.CheckTx([]byte("garbage")).Code != 0, "garbage accepted")

	got, err := chain.DeliverStore().Get([]byte("c"))
	assert.Nil(t, err)
	assert.Equal(t, []byte("xxxx"), got)
	// The ticker changes of the odd block were discarded.
	got, err = chain.DeliverStore().Get([]byte("blocks"))
	assert.Nil(t, err)
	assert.Equal(t, []byte("x"), got)

	// A restarted chain recovers its chain id and height.
	restarted := NewChain("test", db, handler, nil)
	assert.Equal(t, "test-chain", restarted.ChainID())
	assert.Equal(t, int64(2), restarted.Height())
}
