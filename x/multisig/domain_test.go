package multisig

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/iov-one/ferry"
	"github.com/iov-one/ferry/errors"
	"github.com/iov-one/ferry/migtest"
	"github.com/iov-one/ferry/migtest/assert"
	"github.com/iov-one/ferry/store"
	"github.com/iov-one/ferry/x/accounts"
	"github.com/iov-one/ferry/x/sovereign"
	"github.com/iov-one/ferry/x/weight"
	"github.com/iov-one/ferry/x/xcm"
	"github.com/stretchr/testify/require"
)

type collect struct {
	items [][]byte
}

func (c *collect) SendChunked(ctx ferry.Context, db ferry.KVStore, domain string, items [][]byte) error {
	c.items = append(c.items, items...)
	return nil
}

func callHash(b byte) []byte {
	h := make([]byte, 32)
	h[0] = b
	return h
}

func fund(t *testing.T, db ferry.KVStore, who ferry.Address, free, reserved uint64) {
	t.Helper()
	b := accounts.NewBucket()
	require.NoError(t, b.Mint(db, who, free+reserved))
	if reserved > 0 {
		require.NoError(t, b.Reserve(db, who, reserved))
	}
}

func TestMigrateMultisigs(t *testing.T) {
	ctx := context.Background()
	oc, dc := store.MemStore(), store.MemStore()

	msig := migtest.NewAddress()
	moved := migtest.NewAddress()
	stays := migtest.NewAddress()
	para := sovereign.ParaAccount(2004)

	// The migrated creators already arrived on the destination chain
	// together with their reserve.
	fund(t, dc, moved, 10, 50)
	fund(t, dc, sovereign.SiblingAccount(2004), 0, 30)
	fund(t, oc, stays, 5, 40)

	b := NewBucket()
	ops := []Multisig{
		{Account: msig, CallHash: callHash(1), Creator: moved, Deposit: 50},
		{Account: msig, CallHash: callHash(2), Creator: stays, Deposit: 40, Approvals: []ferry.Address{stays}},
		{Account: msig, CallHash: callHash(3), Creator: para, Deposit: 30},
	}
	for i := range ops {
		require.NoError(t, b.Create(oc, &ops[i]))
	}
	assert.IsErr(t, errors.ErrDuplicate, b.Create(oc, &ops[0]))

	d := NewDomain(sovereign.NewTranslator())
	snap, err := d.PreCheck(oc, dc)
	require.NoError(t, err)

	var out collect
	meter := weight.NewMeter(OperationWeight.Add(xcm.ItemWeight).Mul(2))
	cursor, done, err := d.Migrate(ctx, oc, nil, meter, &out)
	require.NoError(t, err)
	require.False(t, done)
	require.NotNil(t, cursor)

	cursor, done, err = d.Migrate(ctx, oc, cursor, weight.NewMeter(weight.New(1<<30, 1<<30)), &out)
	require.NoError(t, err)
	require.True(t, done)
	require.Nil(t, cursor)

	// The operation of the creator kept on the origin chain is refunded
	// there and not sent.
	require.Len(t, out.items, 2)
	acc, err := accounts.NewBucket().Get(oc, stays)
	require.NoError(t, err)
	assert.Equal(t, uint64(45), acc.Free)
	assert.Equal(t, uint64(0), acc.Reserved)

	require.NoError(t, d.Integrate(ctx, dc, out.items))
	require.NoError(t, d.PostCheck(oc, dc, snap))

	acc, err = accounts.NewBucket().Get(dc, moved)
	require.NoError(t, err)
	assert.Equal(t, uint64(60), acc.Free)

	acc, err = accounts.NewBucket().Get(dc, sovereign.SiblingAccount(2004))
	require.NoError(t, err)
	assert.Equal(t, uint64(30), acc.Free)
}

func TestIntegrateShortfallDoesNotFail(t *testing.T) {
	dc := store.MemStore()
	who := migtest.NewAddress()
	fund(t, dc, who, 0, 10)

	rec := Record{Creator: who, Deposit: 25}
	raw, err := rec.Marshal()
	require.NoError(t, err)

	d := NewDomain(sovereign.NewTranslator())
	require.NoError(t, d.Integrate(context.Background(), dc, [][]byte{raw}))

	acc, err := accounts.NewBucket().Get(dc, who)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), acc.Free)

	err = d.Integrate(context.Background(), dc, [][]byte{{0xff}})
	assert.IsErr(t, errors.ErrIntegration, err)
}

func TestPostCheckDetectsLeftovers(t *testing.T) {
	oc, dc := store.MemStore(), store.MemStore()
	creator := migtest.NewAddress()
	require.NoError(t, NewBucket().Create(oc, &Multisig{
		Account:  migtest.NewAddress(),
		CallHash: callHash(9),
		Creator:  creator,
		Deposit:  1,
	}))

	d := NewDomain(sovereign.NewTranslator())
	snap, err := d.PreCheck(oc, dc)
	require.NoError(t, err)

	// Nothing was migrated: the operation is still there and the creator
	// exists on neither chain.
	err = d.PostCheck(oc, dc, snap)
	assert.IsErr(t, errors.ErrState, err)
	assert.IsErr(t, errors.ErrType, d.PostCheck(oc, dc, 1))
}

func TestValidate(t *testing.T) {
	cases := map[string]struct {
		m    Multisig
		want *errors.Error
	}{
		"valid": {
			m: Multisig{Account: migtest.NewAddress(), Creator: migtest.NewAddress(), CallHash: callHash(1)},
		},
		"short call hash": {
			m:    Multisig{Account: migtest.NewAddress(), Creator: migtest.NewAddress(), CallHash: []byte{1}},
			want: errors.ErrInput,
		},
		"missing creator": {
			m:    Multisig{Account: migtest.NewAddress(), CallHash: callHash(1)},
			want: errors.ErrInput,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			err := tc.m.Validate()
			if tc.want == nil {
				assert.Nil(t, err)
				return
			}
			assert.IsErr(t, tc.want, err)
		})
	}
}

func TestGenesis(t *testing.T) {
	creator := migtest.NewAddress()
	account := migtest.NewAddress()
	raw := `{"multisigs": [{
		"account": "` + account.String() + `",
		"call_hash": "AQAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA=",
		"creator": "` + creator.String() + `",
		"deposit": 7
	}]}`
	var opts ferry.Options
	require.NoError(t, json.Unmarshal([]byte(raw), &opts))

	db := store.MemStore()
	var init Initializer
	require.NoError(t, init.FromGenesis(opts, db))

	n, err := NewBucket().Count(db)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
