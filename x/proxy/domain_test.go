package proxy

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
	"github.com/stretchr/testify/require"
)

type collect struct {
	items [][]byte
}

func (c *collect) SendChunked(ctx ferry.Context, db ferry.KVStore, domain string, items [][]byte) error {
	c.items = append(c.items, items...)
	return nil
}

func bigMeter() *weight.Meter {
	return weight.NewMeter(weight.New(1<<40, 1<<40))
}

func TestMigrateProxies(t *testing.T) {
	ctx := context.Background()
	oc, dc := store.MemStore(), store.MemStore()

	dcConf := DefaultConfiguration()
	dcConf.DelayRatio = ferry.Fraction{Numerator: 1, Denominator: 2}
	require.NoError(t, SaveConfiguration(dc, dcConf))

	var (
		alice = migtest.NewAddress()
		bob   = migtest.NewAddress()
		carol = migtest.NewAddress()
		dave  = migtest.NewAddress()
		pure  = migtest.NewAddress()
	)
	b := NewBuckets()
	sets := []ProxySet{
		{
			Delegator: alice,
			Proxies: []Definition{
				{Delegate: bob, Kind: "any", Delay: 10},
				{Delegate: carol, Kind: "auction"},
			},
			Deposit: 20,
		},
		{
			Delegator: pure,
			Proxies: []Definition{
				{Delegate: alice, Kind: "any"},
				{Delegate: bob, Kind: "governance"},
			},
			Deposit: 30,
		},
		{
			Delegator: dave,
			Proxies:   []Definition{{Delegate: bob, Kind: "auction"}},
			Deposit:   5,
		},
		{
			Delegator: sovereign.ParaAccount(2000),
			Proxies:   []Definition{{Delegate: sovereign.ParaAccount(2004), Kind: "staking"}},
			Deposit:   1,
		},
	}
	for i := range sets {
		require.NoError(t, b.Proxies.Put(oc, sets[i].Delegator, &sets[i]))
	}
	require.NoError(t, b.MarkPure(oc, pure))

	// Dave arrived on the destination chain with the deposit reserved.
	ab := accounts.NewBucket()
	require.NoError(t, ab.Mint(dc, dave, 5))
	require.NoError(t, ab.Reserve(dc, dave, 5))

	d := NewDomain(sovereign.NewTranslator())
	snap, err := d.PreCheck(oc, dc)
	require.NoError(t, err)

	var out collect
	_, done, err := d.Migrate(ctx, oc, nil, bigMeter(), &out)
	require.NoError(t, err)
	require.True(t, done)
	require.Len(t, out.items, 4)

	require.NoError(t, d.Integrate(ctx, dc, out.items))
	require.NoError(t, d.PostCheck(oc, dc, snap))

	got, err := b.GetProxies(dc, alice)
	require.NoError(t, err)
	assert.Equal(t, &ProxySet{
		Delegator: alice,
		Proxies:   []Definition{{Delegate: bob, Kind: "any", Delay: 5}},
		Deposit:   20,
	}, got)

	// The pure proxy keeps its free proxy on the origin chain without a
	// deposit.
	kept, err := b.GetProxies(oc, pure)
	require.NoError(t, err)
	assert.Equal(t, &ProxySet{
		Delegator: pure,
		Proxies:   []Definition{{Delegate: alice, Kind: "any"}},
	}, kept)
	got, err = b.GetProxies(dc, pure)
	require.NoError(t, err)
	assert.Equal(t, 2, len(got.Proxies))

	// Nothing of dave's set is supported, so the deposit is returned.
	got, err = b.GetProxies(dc, dave)
	require.NoError(t, err)
	assert.Nil(t, got)
	acc, err := ab.Get(dc, dave)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), acc.Free)

	got, err = b.GetProxies(dc, sovereign.SiblingAccount(2000))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Has(sovereign.SiblingAccount(2004), "staking"), "delegate must be translated")
}

func TestIntegrateMergesAndTruncates(t *testing.T) {
	ctx := context.Background()
	dc := store.MemStore()
	conf := DefaultConfiguration()
	conf.MaxProxies = 2
	require.NoError(t, SaveConfiguration(dc, conf))

	who := migtest.NewAddress()
	bob := migtest.NewAddress()
	b := NewBuckets()
	require.NoError(t, b.Proxies.Put(dc, who, &ProxySet{
		Delegator: who,
		Proxies:   []Definition{{Delegate: bob, Kind: "any"}},
		Deposit:   3,
	}))

	set := ProxySet{
		Delegator: who,
		Proxies: []Definition{
			{Delegate: bob, Kind: "any"},
			{Delegate: bob, Kind: "staking"},
			{Delegate: migtest.NewAddress(), Kind: "governance"},
		},
		Deposit: 4,
	}
	raw, err := set.Marshal()
	require.NoError(t, err)

	d := NewDomain(sovereign.NewTranslator())
	require.NoError(t, d.Integrate(ctx, dc, [][]byte{raw}))

	got, err := b.GetProxies(dc, who)
	require.NoError(t, err)
	assert.Equal(t, 2, len(got.Proxies))
	assert.True(t, got.Has(bob, "staking"), "new proxy must be added")
	assert.Equal(t, uint64(7), got.Deposit)

	assert.IsErr(t, errors.ErrIntegration, d.Integrate(ctx, dc, [][]byte{{0xff}}))
}

func TestAnnouncements(t *testing.T) {
	ctx := context.Background()
	oc, dc := store.MemStore(), store.MemStore()
	who := migtest.NewAddress()

	b := NewBuckets()
	require.NoError(t, b.Announcements.Put(oc, who, &Announcement{Depositor: who, Deposit: 8}))
	ab := accounts.NewBucket()
	require.NoError(t, ab.Mint(dc, who, 8))
	require.NoError(t, ab.Reserve(dc, who, 8))

	d := NewAnnouncementsDomain(sovereign.NewTranslator())
	snap, err := d.PreCheck(oc, dc)
	require.NoError(t, err)
	assert.IsErr(t, errors.ErrState, d.PostCheck(oc, dc, snap))

	// Too little weight for a single announcement.
	var out collect
	cursor, done, err := d.Migrate(ctx, oc, nil, weight.NewMeter(weight.New(1, 1)), &out)
	require.NoError(t, err)
	require.False(t, done)
	assert.Equal(t, []byte(who), cursor)

	_, done, err = d.Migrate(ctx, oc, cursor, bigMeter(), &out)
	require.NoError(t, err)
	require.True(t, done)
	require.NoError(t, d.Integrate(ctx, dc, out.items))
	require.NoError(t, d.PostCheck(oc, dc, snap))

	acc, err := ab.Get(dc, who)
	require.NoError(t, err)
	assert.Equal(t, uint64(8), acc.Free)
}

func TestConfiguration(t *testing.T) {
	c := DefaultConfiguration()
	require.NoError(t, c.Validate())

	kind, ok := c.MapKind("governance")
	assert.True(t, ok, "governance is supported")
	assert.Equal(t, "governance", kind)
	_, ok = c.MapKind("auction")
	assert.True(t, !ok, "auction is not supported")

	c.MaxProxies = 0
	assert.FieldError(t, c.Validate(), "MaxProxies", errors.ErrEmpty)

	c = DefaultConfiguration()
	c.Kinds = append(c.Kinds, KindMapping{From: "any", To: "non_transfer"})
	assert.FieldError(t, c.Validate(), "Kinds", errors.ErrDuplicate)
}

func TestGenesis(t *testing.T) {
	alice := migtest.NewAddress()
	bob := migtest.NewAddress()
	raw := `{
		"conf": {"proxy": {"kinds": [{"from": "any", "to": "any"}], "max_proxies": 4, "delay_ratio": "1/2"}},
		"proxies": [{"delegator": "` + alice.String() + `", "proxies": [{"delegate": "` + bob.String() + `", "kind": "any", "delay": 4}], "deposit": 2}],
		"proxy_announcements": [{"depositor": "` + bob.String() + `", "deposit": 1}],
		"pure_proxies": ["` + alice.String() + `"]
	}`
	var opts ferry.Options
	require.NoError(t, json.Unmarshal([]byte(raw), &opts))

	db := store.MemStore()
	var init Initializer
	require.NoError(t, init.FromGenesis(opts, db))

	b := NewBuckets()
	set, err := b.GetProxies(db, alice)
	require.NoError(t, err)
	assert.Equal(t, uint32(4), set.Proxies[0].Delay)

	ok, err := b.IsPure(db, alice)
	require.NoError(t, err)
	assert.True(t, ok, "alice is pure")

	conf, err := LoadConfiguration(db)
	require.NoError(t, err)
	assert.Equal(t, ferry.Fraction{Numerator: 1, Denominator: 2}, conf.DelayRatio)

	assert.IsErr(t, errors.ErrDuplicate, init.FromGenesis(opts, db))
}
