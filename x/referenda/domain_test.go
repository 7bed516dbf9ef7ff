package referenda

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/iov-one/ferry"
	"github.com/iov-one/ferry/errors"
	"github.com/iov-one/ferry/migtest/assert"
	"github.com/iov-one/ferry/store"
	"github.com/iov-one/ferry/x/govremap"
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

func remapTable() govremap.Configuration {
	return govremap.Configuration{Modules: []govremap.ModuleMapping{
		{Name: "treasury", From: 19, To: 60},
	}}
}

func TestMigrateReferenda(t *testing.T) {
	oc, dc := store.MemStore(), store.MemStore()
	require.NoError(t, govremap.SaveConfiguration(dc, remapTable()))

	b := NewBucket()
	require.NoError(t, b.Save(oc, &Referendum{Index: 0, Status: StatusApproved, Ended: 5}))
	require.NoError(t, b.Save(oc, &Referendum{
		Index:             1,
		Status:            StatusOngoing,
		Track:             2,
		Proposal:          govremap.Inline([]byte{19, 0, 1}),
		Enactment:         Enactment{After: 10},
		Submitted:         7,
		SubmissionDeposit: &Deposit{Who: sovereign.ParaAccount(2004), Amount: 100},
	}))
	require.NoError(t, b.Save(oc, &Referendum{
		Index:    2,
		Status:   StatusOngoing,
		Proposal: govremap.Inline([]byte{99, 0}),
	}))
	require.NoError(t, b.SetCount(oc, 5))

	d := NewDomain(sovereign.NewTranslator())
	snap, err := d.PreCheck(oc, dc)
	require.NoError(t, err)

	var out collect
	meter := weight.NewMeter(ReferendumWeight.Add(xcm.ItemWeight).Mul(10))
	_, done, err := d.Migrate(context.Background(), oc, nil, meter, &out)
	require.NoError(t, err)
	require.True(t, done)
	assert.Equal(t, 4, len(out.items))

	ctx := ferry.WithHeight(context.Background(), 50)
	require.NoError(t, d.Integrate(ctx, dc, out.items))
	require.NoError(t, d.PostCheck(oc, dc, snap))

	count, err := b.Count(dc)
	require.NoError(t, err)
	assert.Equal(t, uint32(5), count)

	r, err := b.Get(dc, 1)
	require.NoError(t, err)
	assert.Equal(t, StatusOngoing, r.Status)
	assert.Equal(t, govremap.Inline([]byte{60, 0, 1}), r.Proposal)
	assert.Equal(t, sovereign.SiblingAccount(2004), r.SubmissionDeposit.Who)

	r, err = b.Get(dc, 2)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, r.Status)
	assert.Equal(t, int64(50), r.Ended)

	// Running the same batch again must not overwrite anything.
	require.NoError(t, d.Integrate(ctx, dc, out.items))
	r, err = b.Get(dc, 1)
	require.NoError(t, err)
	assert.Equal(t, govremap.Inline([]byte{60, 0, 1}), r.Proposal)
}

func TestMigrateReferendaOutOfWeight(t *testing.T) {
	oc := store.MemStore()
	b := NewBucket()
	require.NoError(t, b.Save(oc, &Referendum{Index: 3, Status: StatusKilled, Ended: 1}))

	d := NewDomain(sovereign.NewTranslator())
	var out collect

	next, done, err := d.Migrate(context.Background(), oc, nil, weight.NewMeter(weight.Weight{}), &out)
	require.NoError(t, err)
	assert.Equal(t, false, done)
	assert.Nil(t, next)
	assert.Equal(t, 0, len(out.items))

	next, done, err = d.Migrate(context.Background(), oc, nil, weight.NewMeter(xcm.ItemWeight), &out)
	require.NoError(t, err)
	assert.Equal(t, false, done)
	assert.Equal(t, indexKey(3), next)
	assert.Equal(t, 1, len(out.items))
	count, err := b.Count(oc)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), count)

	next, done, err = d.Migrate(context.Background(), oc, next, weight.NewMeter(ReferendumWeight.Add(xcm.ItemWeight)), &out)
	require.NoError(t, err)
	assert.Equal(t, true, done)
	assert.Equal(t, 2, len(out.items))
}

func TestPostCheckDetectsMissingReferendum(t *testing.T) {
	oc, dc := store.MemStore(), store.MemStore()
	require.NoError(t, NewBucket().Save(oc, &Referendum{Index: 0, Status: StatusRejected, Ended: 2}))

	d := NewDomain(sovereign.NewTranslator())
	snap, err := d.PreCheck(oc, dc)
	require.NoError(t, err)
	require.NoError(t, NewBucket().Delete(oc, indexKey(0)))
	assert.IsErr(t, errors.ErrState, d.PostCheck(oc, dc, snap))
}

func TestValidate(t *testing.T) {
	cases := map[string]struct {
		r       Referendum
		field   string
		wantErr *errors.Error
	}{
		"no status": {
			r:       Referendum{},
			field:   "Status",
			wantErr: errors.ErrInput,
		},
		"ongoing without proposal": {
			r:       Referendum{Status: StatusOngoing},
			field:   "Proposal",
			wantErr: errors.ErrEmpty,
		},
		"both enactments": {
			r: Referendum{
				Status:    StatusOngoing,
				Proposal:  govremap.Inline([]byte{1, 2}),
				Enactment: Enactment{At: 1, After: 2},
			},
			field:   "Enactment",
			wantErr: errors.ErrInput,
		},
		"bad depositor": {
			r:       Referendum{Status: StatusKilled, DecisionDeposit: &Deposit{Who: ferry.Address{1}}},
			field:   "DecisionDeposit",
			wantErr: errors.ErrInput,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.FieldError(t, tc.r.Validate(), tc.field, tc.wantErr)
		})
	}
}

func TestGenesis(t *testing.T) {
	raw := `{
		"referendum_count": 9,
		"referenda": [
			{"index": 4, "status": "timed_out", "ended": 3},
			{"index": 11, "status": "ongoing", "proposal": {"inline": "EwAB"}}
		]
	}`
	var opts ferry.Options
	require.NoError(t, json.Unmarshal([]byte(raw), &opts))

	db := store.MemStore()
	var init Initializer
	require.NoError(t, init.FromGenesis(opts, db))

	b := NewBucket()
	count, err := b.Count(db)
	require.NoError(t, err)
	assert.Equal(t, uint32(12), count)

	r, err := b.Get(db, 4)
	require.NoError(t, err)
	assert.Equal(t, StatusTimedOut, r.Status)
	r, err = b.Get(db, 11)
	require.NoError(t, err)
	assert.Equal(t, []byte{19, 0, 1}, r.Proposal.Inline)

	assert.IsErr(t, errors.ErrDuplicate, init.FromGenesis(opts, db))
}
