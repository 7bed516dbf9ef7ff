package sim

import (
	"encoding/json"
	"testing"

	"github.com/iov-one/ferry"
	"github.com/iov-one/ferry/app"
	"github.com/iov-one/ferry/errors"
	"github.com/iov-one/ferry/migtest"
	"github.com/iov-one/ferry/migtest/assert"
	"github.com/iov-one/ferry/x/accounts"
	"github.com/iov-one/ferry/x/destination"
	"github.com/iov-one/ferry/x/multisig"
	"github.com/iov-one/ferry/x/origin"
	"github.com/iov-one/ferry/x/preimage"
	"github.com/iov-one/ferry/x/sigs"
	"github.com/iov-one/ferry/x/sovereign"
	"github.com/iov-one/ferry/x/vesting"
	"github.com/iov-one/ferry/x/xcm"
	"github.com/stretchr/testify/require"
)

// world is the state both chains start with.
type world struct {
	admin *sigs.PrivateKey

	alice     ferry.Address
	bob       ferry.Address
	staker    ferry.Address
	preserved ferry.Address
	para      ferry.Address
}

func newWorld(t testing.TB) *world {
	t.Helper()
	admin, err := sigs.PrivateKeyFromSeed([]byte("sim admin seed, 32 bytes long!!!"))
	require.NoError(t, err)
	return &world{
		admin:     admin,
		alice:     migtest.NewAddress(),
		bob:       migtest.NewAddress(),
		staker:    migtest.NewAddress(),
		preserved: migtest.NewAddress(),
		para:      sovereign.ParaAccount(2000),
	}
}

func appState(t testing.TB, sections map[string]interface{}) ferry.Options {
	t.Helper()
	opts := make(ferry.Options, len(sections))
	for k, v := range sections {
		raw, err := json.Marshal(v)
		require.NoError(t, err)
		opts[k] = raw
	}
	return opts
}

func (w *world) config(t testing.TB) Config {
	t.Helper()
	callHash := make([]byte, 32)
	callHash[0] = 1

	ocState := appState(t, map[string]interface{}{
		"conf": map[string]interface{}{
			"origin": origin.Configuration{
				Admin:       w.admin.PublicKey().Address(),
				EpochLength: 10,
				EraLength:   100,
				BlockWeight: accounts.AccountWeight.Add(xcm.ItemWeight).Mul(3),
			},
			"xcm": xcm.Configuration{MaxBatchItems: 2, MaxBatchBytes: 4096, MaxPendingMessages: 4},
		},
		"accounts": []accounts.GenesisAccount{
			{Address: w.alice, Account: accounts.Account{Free: 1000}},
			{Address: w.bob, Account: accounts.Account{Free: 500, Reserved: 50, Consumers: 1}},
			{Address: w.staker, Account: accounts.Account{
				Free:     300,
				Reserved: 200,
				Holds:    []accounts.Hold{{Reason: "staking", Amount: 200}},
			}},
			{Address: w.preserved, Account: accounts.Account{Free: 700}},
			{Address: w.para, Account: accounts.Account{Free: 5000, Providers: 1}},
		},
		"preserved": []ferry.Address{w.preserved},
		"multisigs": []multisig.Multisig{
			{Account: w.para, CallHash: callHash, Creator: w.bob, Deposit: 50, Approvals: []ferry.Address{w.bob}, Height: 1},
		},
		"vesting": []vesting.Vesting{
			{Who: w.alice, Schedules: []vesting.Schedule{{Locked: 400, PerBlock: 1, Start: 1000}}},
		},
		"preimages": []preimage.Preimage{
			{Data: []byte("remark: hello destination"), Requests: 1},
		},
	})
	dcState := appState(t, map[string]interface{}{
		"conf": map[string]interface{}{
			"destination": destination.Configuration{MaxBatchesPerBlock: 3},
		},
		"accounts": []accounts.GenesisAccount{
			{Address: w.alice, Account: accounts.Account{Free: 10}},
		},
	})
	return Config{
		Origin:      app.Genesis{ChainID: "ferry-origin", AppState: ocState},
		Destination: app.Genesis{ChainID: "ferry-destination", AppState: dcState},
		Lag:         2,
	}
}

func newSim(t testing.TB, w *world) *Sim {
	t.Helper()
	s, err := New(w.config(t))
	require.NoError(t, err)
	return s
}

// schedule starts the migration as soon as the guard allows it.
func schedule(t testing.TB, s *Sim) {
	t.Helper()
	_, err := s.Sudo(s.OC, &origin.ScheduleMigrationMsg{
		Start:   s.Height() + 21,
		WarmUp:  origin.DispatchTime{After: 2},
		CoolOff: origin.DispatchTime{After: 2},
	})
	require.NoError(t, err)
}

func balance(t testing.TB, db ferry.ReadOnlyKVStore, who ferry.Address) *accounts.Account {
	t.Helper()
	acc, err := accounts.NewBucket().Get(db, who)
	require.NoError(t, err)
	return acc
}

func TestFullMigration(t *testing.T) {
	w := newWorld(t)
	s := newSim(t, w)
	schedule(t, s)

	blocks, err := s.Run(1000)
	require.NoError(t, err)
	assert.True(t, blocks > 21, "migration cannot finish before its start block")
	require.NoError(t, s.Verify())

	oc, dc := s.OC.DeliverStore(), s.DC.DeliverStore()

	// Preserved and staking accounts stay where they are.
	assert.Equal(t, uint64(700), balance(t, oc, w.preserved).Free)
	assert.Equal(t, uint64(300), balance(t, oc, w.staker).Free)
	assert.Nil(t, balance(t, dc, w.staker))

	assert.Nil(t, balance(t, oc, w.alice))
	assert.Equal(t, uint64(1010), balance(t, dc, w.alice).Free)

	// The multisig deposit was returned on arrival.
	bob := balance(t, dc, w.bob)
	require.NotNil(t, bob)
	assert.Equal(t, uint64(550), bob.Free)
	assert.Equal(t, uint32(1), bob.Consumers)

	sibling := balance(t, dc, sovereign.SiblingAccount(2000))
	require.NotNil(t, sibling)
	assert.Equal(t, uint64(5000), sibling.Free)
	assert.Nil(t, balance(t, dc, w.para))

	v, err := vesting.NewBucket().Get(dc, w.alice)
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, uint64(400), v.Locked(0))

	assert.Equal(t, []destination.StageKind{
		destination.StagePending,
		destination.StageDataMigrationOngoing,
		destination.StageDone,
	}, s.DestinationStages())

	pending, err := xcm.NewTracker().PendingCount(oc)
	require.NoError(t, err)
	assert.Equal(t, 0, pending)
	assert.Equal(t, 0, s.Relay().InFlight())
}

func TestMonotonicProgress(t *testing.T) {
	w := newWorld(t)
	s := newSim(t, w)
	schedule(t, s)
	_, err := s.Run(1000)
	require.NoError(t, err)

	stages := s.OriginStages()
	require.NoError(t, MonotonicProgress(stages, s.domains))
	assert.Equal(t, origin.StagePending, stages[0].Kind)
	assert.Equal(t, origin.StageDone, stages[len(stages)-1].Kind)

	backwards := []origin.Stage{{Kind: origin.StageWarmUp}, {Kind: origin.StageScheduled, At: 5}}
	if err := MonotonicProgress(backwards, s.domains); !errors.ErrState.Is(err) {
		t.Fatalf("want state error, got %+v", err)
	}
}

func TestScheduleGuard(t *testing.T) {
	w := newWorld(t)
	s := newSim(t, w)

	_, err := s.Sudo(s.OC, &origin.ScheduleMigrationMsg{Start: s.Height() + 5})
	if !errors.ErrEraEndsTooSoon.Is(err) {
		t.Fatalf("want era ends too soon error, got %+v", err)
	}
	stage, err := origin.CurrentStage(s.OC.DeliverStore())
	require.NoError(t, err)
	assert.Equal(t, origin.StagePending, stage.Kind)

	_, err = s.Sudo(s.OC, &origin.ScheduleMigrationMsg{Start: s.Height() + 5, IgnoreGuard: true})
	require.NoError(t, err)
}

func TestLostBatchIsResent(t *testing.T) {
	w := newWorld(t)
	s := newSim(t, w)
	schedule(t, s)

	var lost bool
	s.Relay().Filter = func(p *Packet) bool {
		if lost || p.From != OriginChain {
			return true
		}
		var d xcm.Delivery
		require.NoError(t, d.Unmarshal(p.Raw))
		env, err := d.Envelope()
		require.NoError(t, err)
		if env.Kind == xcm.KindBatch && env.Domain == accounts.DomainName {
			lost = true
			return false
		}
		return true
	}

	_, err := s.Run(300)
	if !errors.ErrState.Is(err) {
		t.Fatalf("migration must wait for the lost batch, got %+v", err)
	}
	require.True(t, lost)
	assert.Equal(t, 1, s.Relay().Dropped())

	stage, err := origin.CurrentStage(s.OC.DeliverStore())
	require.NoError(t, err)
	assert.Equal(t, origin.StageCoolOff, stage.Kind)

	queries, err := xcm.NewTracker().PendingQueries(s.OC.DeliverStore())
	require.NoError(t, err)
	require.Len(t, queries, 1)
	_, err = s.Sudo(s.OC, &origin.ResendXCMMsg{QueryID: queries[0]})
	require.NoError(t, err)

	_, err = s.Run(300)
	require.NoError(t, err)
	// Conservation fails if any record was integrated twice or not at all.
	require.NoError(t, s.Verify())
	assert.Equal(t, uint64(1010), balance(t, s.DC.DeliverStore(), w.alice).Free)
}

func TestPauseResume(t *testing.T) {
	w := newWorld(t)
	s := newSim(t, w)
	schedule(t, s)

	for i := 0; i < 300; i++ {
		stage, err := origin.CurrentStage(s.OC.DeliverStore())
		require.NoError(t, err)
		if stage.Kind == origin.StageDomainOngoing {
			break
		}
		require.NoError(t, s.Step())
	}
	_, err := s.Sudo(s.OC, &origin.PauseMigrationMsg{})
	require.NoError(t, err)

	st, err := origin.NewStateBucket().Load(s.OC.DeliverStore())
	require.NoError(t, err)
	paused := *st.ResumePoint
	for i := 0; i < 20; i++ {
		require.NoError(t, s.Step())
	}
	st, err = origin.NewStateBucket().Load(s.OC.DeliverStore())
	require.NoError(t, err)
	assert.Equal(t, origin.StagePaused, st.Stage.Kind)
	assert.True(t, paused.Equals(*st.ResumePoint), "a paused migration must not move")

	_, err = s.Sudo(s.OC, &origin.ResumeMigrationMsg{})
	require.NoError(t, err)
	_, err = s.Run(1000)
	require.NoError(t, err)
	require.NoError(t, s.Verify())
}

func TestNothingChangesAfterDone(t *testing.T) {
	w := newWorld(t)
	s := newSim(t, w)
	schedule(t, s)
	_, err := s.Run(1000)
	require.NoError(t, err)

	ocStages, dcStages := len(s.OriginStages()), len(s.DestinationStages())
	before := balance(t, s.DC.DeliverStore(), w.alice)
	for i := 0; i < 10; i++ {
		require.NoError(t, s.Step())
	}
	assert.Equal(t, ocStages, len(s.OriginStages()))
	assert.Equal(t, dcStages, len(s.DestinationStages()))
	assert.Equal(t, before, balance(t, s.DC.DeliverStore(), w.alice))
	require.NoError(t, s.Verify())
}

func TestSignedAdminTransaction(t *testing.T) {
	w := newWorld(t)
	s := newSim(t, w)

	stranger, err := sigs.PrivateKeyFromSeed([]byte("some stranger seed, 32 bytes!!!!"))
	require.NoError(t, err)
	msg := &origin.ScheduleMigrationMsg{Start: s.Height() + 50}

	res := s.Submit(s.OC, stranger, msg)
	assert.True(t, res.Code != 0, "a stranger cannot schedule")

	res = s.Submit(s.OC, w.admin, msg)
	require.Equal(t, uint32(0), res.Code, res.Log)

	stage, err := origin.CurrentStage(s.OC.DeliverStore())
	require.NoError(t, err)
	assert.True(t, stage.Equals(origin.Stage{Kind: origin.StageScheduled, At: msg.Start}), "migration must be scheduled")

	// The nonce moved on, so the same transaction can be signed again.
	res = s.Submit(s.OC, w.admin, &origin.PauseMigrationMsg{})
	require.Equal(t, uint32(0), res.Code, res.Log)
}
