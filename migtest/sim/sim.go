/*
Package sim runs an origin and a destination chain side by side.

Both chains are full app.Chain instances that produce blocks in lockstep.
A relay moves the messages left in the outbox of one chain at the end of a
block into the inbox of the other chain, a configurable number of blocks
later, preserving the order per direction. The simulator records the stages
both chains go through and runs the migration checks around the whole
process.
*/
package sim

import (
	"time"

	"github.com/iov-one/ferry"
	"github.com/iov-one/ferry/app"
	"github.com/iov-one/ferry/errors"
	"github.com/iov-one/ferry/migtest"
	"github.com/iov-one/ferry/store/iavl"
	"github.com/iov-one/ferry/x"
	"github.com/iov-one/ferry/x/accounts"
	"github.com/iov-one/ferry/x/checks"
	"github.com/iov-one/ferry/x/destination"
	"github.com/iov-one/ferry/x/govremap"
	"github.com/iov-one/ferry/x/multisig"
	"github.com/iov-one/ferry/x/origin"
	"github.com/iov-one/ferry/x/preimage"
	"github.com/iov-one/ferry/x/proxy"
	"github.com/iov-one/ferry/x/referenda"
	"github.com/iov-one/ferry/x/sigs"
	"github.com/iov-one/ferry/x/sovereign"
	"github.com/iov-one/ferry/x/vesting"
	"github.com/iov-one/ferry/x/xcm"
	abci "github.com/tendermint/tendermint/abci/types"
	"github.com/tendermint/tendermint/libs/log"
)

// BlockTime is the time between two simulated blocks.
const BlockTime = 6 * time.Second

// Domains returns all migrated domains in the order they are migrated.
func Domains(t accounts.Translator) []x.Domain {
	return []x.Domain{
		accounts.NewDomain(t),
		multisig.NewDomain(t),
		proxy.NewDomain(t),
		preimage.NewDomain(t),
		vesting.NewDomain(t),
		referenda.NewDomain(t),
	}
}

// Config describes a simulation.
type Config struct {
	Origin      app.Genesis
	Destination app.Genesis
	// Lag is the number of blocks a message travels. It is at least one.
	Lag int64
	// OriginStore and DestinationStore default to in memory iavl trees.
	OriginStore      ferry.CommitKVStore
	DestinationStore ferry.CommitKVStore
	// Domains defaults to all domains with the sovereign translator.
	Domains []x.Domain
	Logger  log.Logger
}

// Sim is a pair of chains connected by a relay.
type Sim struct {
	OC *app.Chain
	DC *app.Chain

	ocRouter *app.Router
	dcRouter *app.Router
	root     *migtest.CtxAuth

	domains  x.Domains
	harness  *checks.Harness
	snapshot *checks.Snapshot

	relay  *Relay
	height int64
	start  time.Time

	ocStages []origin.Stage
	dcStages []destination.StageKind
	logger   log.Logger
}

// New initializes both chains from their genesis and takes the snapshot of
// the pre migration checks.
func New(conf Config) (*Sim, error) {
	if conf.Lag < 1 {
		conf.Lag = 1
	}
	if conf.OriginStore == nil {
		conf.OriginStore = iavl.NewMemCommitStore()
	}
	if conf.DestinationStore == nil {
		conf.DestinationStore = iavl.NewMemCommitStore()
	}
	if conf.Domains == nil {
		conf.Domains = Domains(sovereign.NewTranslator())
	}
	if conf.Logger == nil {
		conf.Logger = log.NewNopLogger()
	}

	s := &Sim{
		ocRouter: app.NewRouter(),
		dcRouter: app.NewRouter(),
		root:     &migtest.CtxAuth{Key: "sim_root"},
		domains:  conf.Domains,
		relay:    NewRelay(conf.Lag),
		start:    time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		logger:   conf.Logger,
	}
	auth := x.ChainAuth(sigs.Authenticate{}, s.root)

	coordinator := origin.NewCoordinator(xcm.NewTracker(), conf.Domains...)
	origin.RegisterRoutes(s.ocRouter, auth, coordinator)
	s.OC = app.NewChain("origin", conf.OriginStore, handler(s.ocRouter),
		ferry.ChainInitializers(
			&origin.Initializer{},
			&xcm.Initializer{},
			&accounts.Initializer{},
			&multisig.Initializer{},
			&proxy.Initializer{},
			&preimage.Initializer{},
			&vesting.Initializer{},
			&referenda.Initializer{},
		),
		coordinator,
	).WithLogger(conf.Logger)

	receiver := destination.NewReceiver(xcm.NewTracker(), conf.Domains...)
	destination.RegisterRoutes(s.dcRouter, auth, receiver)
	s.DC = app.NewChain("destination", conf.DestinationStore, handler(s.dcRouter),
		ferry.ChainInitializers(
			&destination.Initializer{},
			&xcm.Initializer{},
			&govremap.Initializer{},
			&accounts.Initializer{},
			&multisig.Initializer{},
			&proxy.Initializer{},
			&preimage.Initializer{},
			&vesting.Initializer{},
			&referenda.Initializer{},
		),
		receiver,
	).WithLogger(conf.Logger)

	if err := s.OC.InitChain(conf.Origin); err != nil {
		return nil, errors.Wrap(err, "origin chain")
	}
	if err := s.DC.InitChain(conf.Destination); err != nil {
		return nil, errors.Wrap(err, "destination chain")
	}

	s.harness = checks.NewHarness(s.domains.Checks()...)
	snap, err := s.harness.PreCheck(s.OC.DeliverStore(), s.DC.DeliverStore())
	if err != nil {
		return nil, err
	}
	s.snapshot = snap

	if err := s.openBlock(); err != nil {
		return nil, err
	}
	return s, nil
}

func handler(r *app.Router) ferry.Handler {
	return app.ChainDecorators(app.NewRecovery(), sigs.NewDecorator()).WithHandler(r)
}

// Height returns the height of the open block.
func (s *Sim) Height() int64 {
	return s.height
}

// Relay returns the message relay between both chains.
func (s *Sim) Relay() *Relay {
	return s.relay
}

// Step closes the open block on both chains and opens the next one.
// Transactions submitted between two steps are part of the open block.
func (s *Sim) Step() error {
	if err := s.relay.Collect(s.height, OriginChain, s.OC.DeliverStore()); err != nil {
		return errors.Wrap(err, "collect from origin")
	}
	if err := s.relay.Collect(s.height, DestinationChain, s.DC.DeliverStore()); err != nil {
		return errors.Wrap(err, "collect from destination")
	}
	if _, err := s.OC.Commit(); err != nil {
		return errors.Wrap(err, "origin commit")
	}
	if _, err := s.DC.Commit(); err != nil {
		return errors.Wrap(err, "destination commit")
	}
	return s.openBlock()
}

func (s *Sim) openBlock() error {
	s.height++
	if err := s.relay.Deliver(s.height, OriginChain, s.OC.DeliverStore()); err != nil {
		return errors.Wrap(err, "deliver to origin")
	}
	if err := s.relay.Deliver(s.height, DestinationChain, s.DC.DeliverStore()); err != nil {
		return errors.Wrap(err, "deliver to destination")
	}
	header := abci.Header{
		Height: s.height,
		Time:   s.start.Add(time.Duration(s.height) * BlockTime),
	}
	header.ChainID = s.OC.ChainID()
	s.OC.BeginBlock(header)
	header.ChainID = s.DC.ChainID()
	s.DC.BeginBlock(header)
	return s.record()
}

func (s *Sim) record() error {
	oc, err := origin.CurrentStage(s.OC.DeliverStore())
	if err != nil {
		return err
	}
	if n := len(s.ocStages); n == 0 || !s.ocStages[n-1].Equals(oc) {
		s.ocStages = append(s.ocStages, oc)
		s.logger.Info("origin stage", "height", s.height, "stage", oc)
	}
	dc, err := destination.CurrentStage(s.DC.DeliverStore())
	if err != nil {
		return err
	}
	if n := len(s.dcStages); n == 0 || s.dcStages[n-1] != dc {
		s.dcStages = append(s.dcStages, dc)
		s.logger.Info("destination stage", "height", s.height, "stage", dc)
	}
	return nil
}

// Run steps both chains until both finished the migration or max blocks
// were produced. It returns the number of blocks produced.
func (s *Sim) Run(max int) (int, error) {
	for i := 0; i < max; i++ {
		if s.Finished() {
			return i, nil
		}
		if err := s.Step(); err != nil {
			return i, err
		}
	}
	if s.Finished() {
		return max, nil
	}
	return max, errors.Wrapf(errors.ErrState, "migration not finished after %d blocks, origin %s, destination %s",
		max, s.ocStages[len(s.ocStages)-1], s.dcStages[len(s.dcStages)-1])
}

// Finished returns true once both chains reached their final stage.
func (s *Sim) Finished() bool {
	return len(s.ocStages) != 0 && s.ocStages[len(s.ocStages)-1].IsTerminal() &&
		len(s.dcStages) != 0 && s.dcStages[len(s.dcStages)-1] == destination.StageDone
}

// OriginStages returns every distinct stage the origin chain went through.
func (s *Sim) OriginStages() []origin.Stage {
	return s.ocStages
}

// DestinationStages returns every distinct stage of the destination chain.
func (s *Sim) DestinationStages() []destination.StageKind {
	return s.dcStages
}

// Verify runs the post migration checks and verifies that the origin chain
// never moved backwards.
func (s *Sim) Verify() error {
	var errs error
	if err := s.harness.PostCheck(s.OC.DeliverStore(), s.DC.DeliverStore(), s.snapshot); err != nil {
		errs = errors.Append(errs, err)
	}
	if err := MonotonicProgress(s.ocStages, s.domains); err != nil {
		errs = errors.Append(errs, err)
	}
	return errs
}

// MonotonicProgress returns an error if a stage precedes the one before
// it. Paused stages are ignored.
func MonotonicProgress(stages []origin.Stage, domains x.Domains) error {
	var prev *origin.Stage
	for i := range stages {
		s := stages[i]
		if s.Kind == origin.StagePaused {
			continue
		}
		if prev != nil && origin.Compare(*prev, s, domains) > 0 {
			return errors.Wrapf(errors.ErrState, "stage %s after %s", s, *prev)
		}
		prev = &stages[i]
	}
	return nil
}

// Sudo runs a message on the chain as root, within the open block.
func (s *Sim) Sudo(on *app.Chain, msg ferry.Msg) (*ferry.DeliverResult, error) {
	router := s.ocRouter
	if on == s.DC {
		router = s.dcRouter
	}
	ctx := s.root.SetConditions(on.BlockContext(), x.RootCondition())
	cache := on.DeliverStore().CacheWrap()
	defer cache.Discard()
	res, err := router.Deliver(ctx, cache, &migtest.Tx{Msg: msg})
	if err != nil {
		return nil, err
	}
	return res, cache.Write()
}

// Submit signs the message with given key and delivers it to the chain,
// within the open block.
func (s *Sim) Submit(on *app.Chain, key *sigs.PrivateKey, msg ferry.Msg) abci.ResponseDeliverTx {
	nonce, err := sigs.NextNonce(on.DeliverStore(), key.PublicKey().Address())
	if err != nil {
		return ferry.DeliverTxError(err, true)
	}
	tx := app.NewTx(msg)
	if err := tx.Sign(key, on.ChainID(), nonce); err != nil {
		return ferry.DeliverTxError(err, true)
	}
	raw, err := tx.Marshal()
	if err != nil {
		return ferry.DeliverTxError(err, true)
	}
	return on.DeliverTx(raw)
}
