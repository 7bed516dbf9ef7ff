package accounts

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/iov-one/ferry"
	"github.com/iov-one/ferry/errors"
	"github.com/iov-one/ferry/migtest"
	"github.com/iov-one/ferry/migtest/assert"
	"github.com/iov-one/ferry/store"
	"github.com/iov-one/ferry/x/sovereign"
	"github.com/iov-one/ferry/x/weight"
	"github.com/iov-one/ferry/x/xcm"
)

// recordingSender keeps all sent items in memory.
type recordingSender struct {
	items [][]byte
	calls int
}

func (s *recordingSender) SendChunked(ctx ferry.Context, db ferry.KVStore, domain string, items [][]byte) error {
	if domain != DomainName {
		return errors.Wrapf(errors.ErrInput, "domain %q", domain)
	}
	s.calls++
	s.items = append(s.items, items...)
	return nil
}

func TestDomainMigration(t *testing.T) {
	ctx := context.Background()
	oc, dc := store.MemStore(), store.MemStore()

	referenced := migtest.NewAddress()
	stays := migtest.NewAddress()
	dusted := migtest.NewAddress()
	put(t, oc, referenced, Account{Free: 300, Consumers: 2, Providers: 1})
	put(t, oc, stays, Account{Free: 5, Reserved: 200})
	put(t, oc, dusted, Account{Free: 7})
	put(t, oc, sovereign.ParaAccount(2000), Account{Free: 10000})
	for i := 0; i < 6; i++ {
		put(t, oc, migtest.NewAddress(), Account{Free: 1000 + uint64(i)})
	}
	put(t, dc, sovereign.SiblingAccount(2000), Account{Free: 50, Providers: 1})

	d := NewDomain(sovereign.NewTranslator())
	snap, err := d.PreCheck(oc, dc)
	assert.Nil(t, err)

	// Every block can afford three accounts only.
	perBlock := AccountWeight.Add(xcm.ItemWeight).Mul(3)
	var (
		cursor []byte
		done   bool
		blocks int
		out    recordingSender
	)
	for !done {
		blocks++
		if blocks > 10 {
			t.Fatal("migration does not finish")
		}
		cursor, done, err = d.Migrate(ctx, oc, cursor, weight.NewMeter(perBlock), &out)
		assert.Nil(t, err)
	}
	// Ten accounts, three per block.
	assert.Equal(t, 4, blocks)
	// The account kept on the origin chain is not sent.
	assert.Equal(t, 9, len(out.items))

	left, err := NewBucket().Get(oc, stays)
	assert.Nil(t, err)
	assert.Equal(t, uint64(5), left.Free)

	assert.Nil(t, d.Integrate(ctx, dc, out.items))
	assert.Nil(t, d.PostCheck(oc, dc, snap))

	b := NewBucket()
	acc, err := b.Get(dc, referenced)
	assert.Nil(t, err)
	assert.Equal(t, uint32(2), acc.Consumers)

	acc, err = b.Get(dc, sovereign.SiblingAccount(2000))
	assert.Nil(t, err)
	assert.Equal(t, uint64(10050), acc.Free)
	assert.Equal(t, uint32(1), acc.Providers)

	acc, err = b.Get(dc, dusted)
	assert.Nil(t, err)
	assert.Nil(t, acc)
	dust, err := b.Dust(dc)
	assert.Nil(t, err)
	assert.Equal(t, uint64(7), dust)
}

func TestPostCheckDetectsLoss(t *testing.T) {
	oc, dc := store.MemStore(), store.MemStore()
	lost := migtest.NewAddress()
	put(t, oc, lost, Account{Free: 100, Consumers: 1})

	d := NewDomain(sovereign.NewTranslator())
	snap, err := d.PreCheck(oc, dc)
	assert.Nil(t, err)

	// Withdraw without integrating.
	_, err = d.Withdraw(context.Background(), oc, lost, bigMeter(), weight.Weight{})
	assert.Nil(t, err)

	err = d.PostCheck(oc, dc, snap)
	assert.IsErr(t, errors.ErrState, err)

	assert.IsErr(t, errors.ErrType, d.PostCheck(oc, dc, "not a snapshot"))
}

func TestPostCheckDetectsMissingProvider(t *testing.T) {
	oc, dc := store.MemStore(), store.MemStore()
	// Balances are conserved but the reserve has nothing keeping it alive.
	orphan := migtest.NewAddress()
	put(t, dc, orphan, Account{Reserved: 500})

	d := NewDomain(sovereign.NewTranslator())
	snap, err := d.PreCheck(oc, dc)
	assert.Nil(t, err)
	assert.IsErr(t, errors.ErrState, d.PostCheck(oc, dc, snap))

	assert.Nil(t, NewBucket().Save(dc, orphan, &Account{Reserved: 500, Providers: 1}))
	assert.Nil(t, d.PostCheck(oc, dc, snap))
}

func TestIntegrateBrokenItem(t *testing.T) {
	d := NewDomain(sovereign.NewTranslator())
	err := d.Integrate(context.Background(), store.MemStore(), [][]byte{{0xff, 0x01}})
	assert.IsErr(t, errors.ErrIntegration, err)
}

func TestGenesis(t *testing.T) {
	alice := migtest.NewAddress()
	bob := migtest.NewAddress()
	raw := `{
		"conf": {"accounts": {"origin_deposit": 10, "destination_deposit": 1, "origin_exclusive_holds": ["staking"]}},
		"accounts": [
			{"address": "` + alice.String() + `", "free": 100, "reserved": 10, "holds": [{"reason": "staking", "amount": 10}]},
			{"address": "` + bob.String() + `", "free": 5, "consumers": 1}
		],
		"preserved": ["` + bob.String() + `"]
	}`
	var opts ferry.Options
	assert.Nil(t, json.Unmarshal([]byte(raw), &opts))

	db := store.MemStore()
	var init Initializer
	assert.Nil(t, init.FromGenesis(opts, db))

	b := NewBucket()
	issued, err := b.Issuance(db)
	assert.Nil(t, err)
	assert.Equal(t, uint64(115), issued)

	ok, err := b.IsPreserved(db, bob)
	assert.Nil(t, err)
	assert.True(t, ok, "bob must be preserved")

	ok, err = b.IsReferenced(db, bob)
	assert.Nil(t, err)
	assert.True(t, ok, "bob is referenced")

	conf, err := LoadConfiguration(db)
	assert.Nil(t, err)
	assert.Equal(t, uint64(1), conf.DestinationDeposit)

	// Accounts cannot be declared twice.
	assert.IsErr(t, errors.ErrDuplicate, init.FromGenesis(opts, db))
}

func TestReserveUnreserve(t *testing.T) {
	db := store.MemStore()
	who := migtest.NewAddress()
	b := NewBucket()
	assert.Nil(t, b.Mint(db, who, 100))
	assert.Nil(t, b.Reserve(db, who, 60))
	assert.IsErr(t, errors.ErrAmount, b.Reserve(db, who, 41))

	acc, err := b.Get(db, who)
	assert.Nil(t, err)
	acc.Holds = []Hold{{Reason: "proxy", Amount: 20}}
	assert.Nil(t, b.Save(db, who, acc))

	// Only the unnamed reserve can be released.
	n, err := b.Unreserve(db, who, 100)
	assert.Nil(t, err)
	assert.Equal(t, uint64(40), n)

	acc, err = b.Get(db, who)
	assert.Nil(t, err)
	assert.Equal(t, uint64(80), acc.Free)
	assert.Equal(t, uint64(20), acc.Reserved)
}
