package origin

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/iov-one/ferry"
	"github.com/iov-one/ferry/app"
	"github.com/iov-one/ferry/errors"
	"github.com/iov-one/ferry/migtest"
	"github.com/iov-one/ferry/migtest/assert"
	"github.com/iov-one/ferry/store"
	"github.com/iov-one/ferry/x"
	"github.com/iov-one/ferry/x/accounts"
	"github.com/iov-one/ferry/x/xcm"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	db        ferry.KVStore
	auth      *migtest.CtxAuth
	router    *app.Router
	admin     ferry.Condition
	manager   ferry.Condition
	canceller ferry.Condition
	stranger  ferry.Condition
}

func newFixture(t *testing.T, st *State) *fixture {
	t.Helper()
	f := &fixture{
		db:        store.MemStore(),
		auth:      &migtest.CtxAuth{Key: "auth"},
		router:    app.NewRouter(),
		admin:     migtest.NewCondition(),
		manager:   migtest.NewCondition(),
		canceller: migtest.NewCondition(),
		stranger:  migtest.NewCondition(),
	}
	conf := DefaultConfiguration()
	conf.EpochLength = 10
	conf.EraLength = 100
	conf.Admin = f.admin.Address()
	require.NoError(t, SaveConfiguration(f.db, conf))

	if st == nil {
		st = &State{Stage: Pending()}
	}
	st.Manager = f.manager.Address()
	st.Canceller = f.canceller.Address()
	require.NoError(t, NewStateBucket().Save(f.db, st))

	RegisterRoutes(f.router, f.auth, NewCoordinator(xcm.NewTracker()))
	return f
}

func (f *fixture) deliver(height int64, signer ferry.Condition, msg ferry.Msg) (*ferry.DeliverResult, error) {
	ctx := ferry.WithHeight(context.Background(), height)
	ctx = f.auth.SetConditions(ctx, signer)
	return f.router.Deliver(ctx, f.db, &migtest.Tx{Msg: msg})
}

func (f *fixture) state(t *testing.T) *State {
	t.Helper()
	st, err := NewStateBucket().Load(f.db)
	require.NoError(t, err)
	return st
}

func TestScheduleGuard(t *testing.T) {
	cases := map[string]struct {
		msg     ScheduleMigrationMsg
		wantErr *errors.Error
	}{
		"exactly two epochs ahead is too soon": {
			msg:     ScheduleMigrationMsg{Start: 50 + 20},
			wantErr: errors.ErrEraEndsTooSoon,
		},
		"one block later is accepted": {
			msg: ScheduleMigrationMsg{Start: 50 + 21},
		},
		"the guard can be skipped": {
			msg: ScheduleMigrationMsg{Start: 51, IgnoreGuard: true},
		},
		"warm up must end after the start": {
			msg:     ScheduleMigrationMsg{Start: 200, WarmUp: DispatchTime{At: 150}},
			wantErr: errors.ErrInput,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, nil)
			msg := tc.msg
			_, err := f.deliver(50, f.manager, &msg)
			if !tc.wantErr.Is(err) {
				t.Fatalf("want %+v error, got %+v", tc.wantErr, err)
			}
			st := f.state(t)
			if tc.wantErr != nil {
				assert.Equal(t, StagePending, st.Stage.Kind)
				return
			}
			assert.Equal(t, StageScheduled, st.Stage.Kind)
			assert.Equal(t, tc.msg.Start, st.Stage.At)
		})
	}
}

func TestScheduleBeforeEraEndPausesElections(t *testing.T) {
	f := newFixture(t, nil)
	res, err := f.deliver(50, f.admin, &ScheduleMigrationMsg{Start: 90})
	require.NoError(t, err)
	assert.True(t, f.state(t).ElectionsPaused, "elections must be paused")

	var found bool
	for _, tag := range res.Tags {
		if string(tag.Key) == "elections_paused" {
			found = true
		}
	}
	assert.True(t, found, "missing elections_paused tag")

	_, err = f.deliver(51, f.canceller, &CancelMigrationMsg{})
	require.NoError(t, err)
	st := f.state(t)
	assert.Equal(t, StagePending, st.Stage.Kind)
	assert.True(t, !st.ElectionsPaused, "elections must be resumed")
}

func TestRoles(t *testing.T) {
	type call struct {
		msg     ferry.Msg
		allowed []string
	}
	calls := map[string]call{
		"schedule":      {msg: &ScheduleMigrationMsg{Start: 500}, allowed: []string{"root", "admin", "manager"}},
		"pause":         {msg: &PauseMigrationMsg{}, allowed: []string{"root", "admin", "manager", "canceller"}},
		"force":         {msg: &ForceSetStageMsg{Stage: Stage{Kind: StageDone}}, allowed: []string{"root", "admin", "manager"}},
		"set manager":   {msg: &SetManagerMsg{Who: migtest.NewAddress()}, allowed: []string{"root", "admin"}},
		"set canceller": {msg: &SetCancellerMsg{}, allowed: []string{"root", "admin"}},
		"preserve":      {msg: &PreserveAccountsMsg{Accounts: []ferry.Address{migtest.NewAddress()}}, allowed: []string{"root", "admin"}},
	}
	for name, c := range calls {
		t.Run(name, func(t *testing.T) {
			for _, who := range []string{"root", "admin", "manager", "canceller", "stranger"} {
				f := newFixture(t, &State{Stage: Stage{Kind: StageWarmUp, At: 900}})
				signer := map[string]ferry.Condition{
					"root":      x.RootCondition(),
					"admin":     f.admin,
					"manager":   f.manager,
					"canceller": f.canceller,
					"stranger":  f.stranger,
				}[who]
				if name == "schedule" {
					require.NoError(t, NewStateBucket().Save(f.db, &State{
						Stage:     Pending(),
						Manager:   f.manager.Address(),
						Canceller: f.canceller.Address(),
					}))
				}

				_, err := f.deliver(10, signer, c.msg)
				if contains(c.allowed, who) {
					assert.Nil(t, err)
				} else {
					assert.IsErr(t, errors.ErrUnauthorized, err)
				}
			}
		})
	}
}

func TestForceSetStageDomain(t *testing.T) {
	cases := map[string]struct {
		stage   Stage
		wantErr *errors.Error
	}{
		"registered domain": {stage: Stage{Kind: StageDomainOngoing, Domain: "first", Cursor: []byte{2}}},
		"unknown domain":    {stage: Stage{Kind: StageDomainOngoing, Domain: "unknown"}, wantErr: errors.ErrInput},
		"unknown done":      {stage: Stage{Kind: StageDomainDone, Domain: "unknown"}, wantErr: errors.ErrInput},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, &State{Stage: Stage{Kind: StageWarmUp, At: 900}})
			f.router = app.NewRouter()
			RegisterRoutes(f.router, f.auth, NewCoordinator(xcm.NewTracker(), &fakeDomain{name: "first", records: 3}))

			_, err := f.deliver(10, f.manager, &ForceSetStageMsg{Stage: tc.stage})
			if !tc.wantErr.Is(err) {
				t.Fatalf("want %+v error, got %+v", tc.wantErr, err)
			}
			st := f.state(t)
			if tc.wantErr != nil {
				assert.Equal(t, StageWarmUp, st.Stage.Kind)
				return
			}
			assert.Equal(t, true, st.Stage.Equals(tc.stage))
		})
	}
}

func contains(list []string, s string) bool {
	for _, e := range list {
		if e == s {
			return true
		}
	}
	return false
}

func TestPauseResume(t *testing.T) {
	ongoing := Stage{Kind: StageDomainOngoing, Domain: "accounts", Cursor: []byte{7}}
	f := newFixture(t, &State{Stage: ongoing})

	_, err := f.deliver(10, f.canceller, &ResumeMigrationMsg{})
	assert.IsErr(t, errors.ErrUnauthorized, err)
	_, err = f.deliver(10, f.manager, &ResumeMigrationMsg{})
	assert.IsErr(t, errors.ErrState, err)

	_, err = f.deliver(10, f.canceller, &PauseMigrationMsg{})
	require.NoError(t, err)
	st := f.state(t)
	assert.Equal(t, StagePaused, st.Stage.Kind)
	assert.True(t, st.ResumePoint.Equals(ongoing), "resume point")

	_, err = f.deliver(11, f.manager, &PauseMigrationMsg{})
	assert.IsErr(t, errors.ErrState, err)

	_, err = f.deliver(12, f.manager, &ResumeMigrationMsg{})
	require.NoError(t, err)
	st = f.state(t)
	assert.True(t, st.Stage.Equals(ongoing), "stage after resume")
	assert.True(t, st.ResumePoint == nil, "resume point must be cleared")
}

func TestCancel(t *testing.T) {
	cases := map[string]struct {
		state   State
		wantErr *errors.Error
	}{
		"scheduled": {state: State{Stage: Stage{Kind: StageScheduled, At: 100}}},
		"warm up":   {state: State{Stage: Stage{Kind: StageWarmUp, At: 100}}},
		"paused while waiting": {
			state: State{Stage: Stage{Kind: StagePaused}, ResumePoint: &Stage{Kind: StageWaitingForAck}},
		},
		"started": {
			state:   State{Stage: Stage{Kind: StageDomainInit, Domain: "accounts"}},
			wantErr: errors.ErrState,
		},
		"paused after start": {
			state:   State{Stage: Stage{Kind: StagePaused}, ResumePoint: &Stage{Kind: StageCoolOff}},
			wantErr: errors.ErrState,
		},
		"pending": {
			state:   State{Stage: Pending()},
			wantErr: errors.ErrState,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			st := tc.state
			f := newFixture(t, &st)
			_, err := f.deliver(10, f.canceller, &CancelMigrationMsg{})
			if !tc.wantErr.Is(err) {
				t.Fatalf("want %+v error, got %+v", tc.wantErr, err)
			}
			if tc.wantErr == nil {
				got := f.state(t)
				assert.Equal(t, StagePending, got.Stage.Kind)
				assert.True(t, got.ResumePoint == nil, "resume point must be cleared")
			}
		})
	}
}

func TestReferencedAccountsCannotTakeRoles(t *testing.T) {
	f := newFixture(t, nil)
	busy := migtest.NewAddress()
	require.NoError(t, accounts.NewBucket().AddReferences(f.db, busy, 1, 0))

	_, err := f.deliver(10, f.admin, &SetManagerMsg{Who: busy})
	assert.IsErr(t, errors.ErrAccountReferenced, err)
	_, err = f.deliver(10, f.admin, &SetCancellerMsg{Who: busy})
	assert.IsErr(t, errors.ErrAccountReferenced, err)
	_, err = f.deliver(10, f.admin, &PreserveAccountsMsg{Accounts: []ferry.Address{busy}})
	assert.IsErr(t, errors.ErrAccountReferenced, err)

	free := migtest.NewAddress()
	_, err = f.deliver(10, f.admin, &PreserveAccountsMsg{Accounts: []ferry.Address{free}})
	require.NoError(t, err)
	ok, err := accounts.NewBucket().IsPreserved(f.db, free)
	require.NoError(t, err)
	assert.True(t, ok, "account must be preserved")

	_, err = f.deliver(10, f.admin, &SetManagerMsg{})
	require.NoError(t, err)
	assert.Equal(t, 0, len(f.state(t).Manager))
}

func TestStartDataMigration(t *testing.T) {
	f := newFixture(t, &State{Stage: Stage{Kind: StageWaitingForAck}, WarmUp: DispatchTime{After: 5}})
	_, err := f.deliver(10, f.manager, &StartDataMigrationMsg{})
	require.NoError(t, err)
	st := f.state(t)
	assert.True(t, st.Stage.Equals(Stage{Kind: StageWarmUp, At: 15}), "warm up stage")

	_, err = f.deliver(11, f.manager, &StartDataMigrationMsg{})
	assert.IsErr(t, errors.ErrState, err)
}

func TestResendXCM(t *testing.T) {
	f := newFixture(t, nil)
	tr := xcm.NewTracker()
	require.NoError(t, tr.SendChunked(context.Background(), f.db, "accounts", [][]byte{{1}}))

	_, err := f.deliver(10, f.manager, &ResendXCMMsg{QueryID: 0})
	require.NoError(t, err)
	pending, err := tr.PendingQueries(f.db)
	require.NoError(t, err)
	assert.Equal(t, []uint64{0, 1}, pending)

	_, err = f.deliver(10, f.manager, &ResendXCMMsg{QueryID: 9})
	assert.IsErr(t, errors.ErrQueryNotFound, err)
}

func TestGenesis(t *testing.T) {
	manager := migtest.NewAddress()
	genesis := `{
		"conf": {"origin": {"epoch_length": 5, "era_length": 50, "block_weight": {"ref_time": 100, "proof_size": 10}}},
		"migration": {"manager": "` + manager.String() + `"}
	}`
	var opts ferry.Options
	require.NoError(t, json.Unmarshal([]byte(genesis), &opts))

	db := store.MemStore()
	var init Initializer
	require.NoError(t, init.FromGenesis(opts, db))

	conf, err := LoadConfiguration(db)
	require.NoError(t, err)
	assert.Equal(t, int64(5), conf.EpochLength)
	assert.Equal(t, int64(50), conf.EraLength)

	st, err := NewStateBucket().Load(db)
	require.NoError(t, err)
	assert.Equal(t, manager, st.Manager)
	assert.Equal(t, StagePending, st.Stage.Kind)
}
