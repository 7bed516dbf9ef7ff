package origin

import (
	"bytes"
	"strconv"

	"github.com/iov-one/ferry"
	"github.com/iov-one/ferry/errors"
	"github.com/iov-one/ferry/x"
	"github.com/iov-one/ferry/x/accounts"
	"github.com/iov-one/ferry/x/weight"
	"github.com/iov-one/ferry/x/xcm"
)

// Coordinator drives the migration of the origin chain, one stage
// evaluation per block.
type Coordinator struct {
	domains  x.Domains
	tracker  *xcm.Tracker
	states   StateBucket
	accounts accounts.Bucket
}

var _ ferry.Ticker = (*Coordinator)(nil)

// NewCoordinator returns a coordinator migrating the domains in given
// order.
func NewCoordinator(tracker *xcm.Tracker, domains ...x.Domain) *Coordinator {
	return &Coordinator{
		domains:  domains,
		tracker:  tracker,
		states:   NewStateBucket(),
		accounts: accounts.NewBucket(),
	}
}

// Domains returns the migrated domains in order.
func (c *Coordinator) Domains() x.Domains {
	return c.domains
}

// Tick processes the messages received from the destination chain and then
// evaluates the current stage once.
func (c *Coordinator) Tick(ctx ferry.Context, db ferry.KVStore) (*ferry.TickResult, error) {
	ctx = ferry.WithLogInfo(ctx, "module", packageName)
	st, err := c.states.Load(db)
	if err != nil {
		return nil, err
	}
	before := st.Stage

	var tags []ferry.KVPair
	inbound, err := c.drainInbox(ctx, db, st)
	if err != nil {
		return nil, err
	}
	tags = append(tags, inbound...)

	stepped, err := c.step(ctx, db, st)
	if err != nil {
		return nil, err
	}
	tags = append(tags, stepped...)

	if err := c.states.Save(db, st); err != nil {
		return nil, err
	}
	if !before.Equals(st.Stage) {
		ferry.GetLogger(ctx).Debug("tick finished", "from", before, "to", st.Stage)
	}
	return &ferry.TickResult{Tags: tags}, nil
}

func (c *Coordinator) drainInbox(ctx ferry.Context, db ferry.KVStore, st *State) ([]ferry.KVPair, error) {
	log := ferry.GetLogger(ctx)
	var tags []ferry.KVPair
	for {
		raw, err := xcm.Inbox.Pop(db)
		if errors.ErrEmpty.Is(err) {
			return tags, nil
		}
		if err != nil {
			return nil, err
		}
		var d xcm.Delivery
		if err := d.Unmarshal(raw); err != nil {
			log.Error("dropping malformed delivery", "err", err)
			continue
		}
		env, err := d.Envelope()
		if err != nil {
			log.Error("dropping malformed envelope", "err", err)
			continue
		}
		switch env.Kind {
		case xcm.KindResponse:
			err := c.tracker.OnResponse(ctx, db, env.QueryID, env.Success)
			switch {
			case errors.ErrQueryNotFound.Is(err):
				log.Error("response to unknown query", "query_id", env.QueryID)
			case err != nil:
				return nil, err
			case !env.Success:
				tags = append(tags, ferry.Tag("batch_failed", strconv.FormatUint(env.QueryID, 10)))
				log.Error("batch rejected", "query_id", env.QueryID, "reason", env.Error)
			}
		case xcm.KindStartAck:
			t, err := c.startDataMigration(ctx, db, st)
			if errors.ErrState.Is(err) {
				log.Error("unexpected start acknowledgment", "stage", st.Stage)
				continue
			}
			if err != nil {
				return nil, err
			}
			tags = append(tags, t...)
		default:
			log.Error("unexpected envelope", "kind", env.Kind)
		}
	}
}

func (c *Coordinator) step(ctx ferry.Context, db ferry.KVStore, st *State) ([]ferry.KVPair, error) {
	now := ferry.MustGetHeight(ctx)
	s := st.Stage
	switch s.Kind {
	case StageScheduled:
		if now < s.At {
			return nil, nil
		}
		if err := c.tracker.SendSignal(ctx, db, xcm.KindStart); err != nil {
			return nil, err
		}
		return c.setStage(ctx, st, Stage{Kind: StageWaitingForAck}), nil

	case StageWarmUp:
		if now < s.At {
			return nil, nil
		}
		return c.setStage(ctx, st, Stage{Kind: StageStarting}), nil

	case StageStarting:
		if len(c.domains) == 0 {
			return c.enterCoolOff(ctx, st), nil
		}
		return c.setStage(ctx, st, Stage{Kind: StageDomainInit, Domain: c.domains[0].Name()}), nil

	case StageDomainInit:
		return c.setStage(ctx, st, Stage{Kind: StageDomainOngoing, Domain: s.Domain}), nil

	case StageDomainOngoing:
		return c.migrate(ctx, db, st)

	case StageDomainDone:
		next := c.domains.Next(s.Domain)
		if next == "" {
			return c.enterCoolOff(ctx, st), nil
		}
		return c.setStage(ctx, st, Stage{Kind: StageDomainInit, Domain: next}), nil

	case StageCoolOff:
		if now < s.At {
			return nil, nil
		}
		pending, err := c.tracker.PendingCount(db)
		if err != nil {
			return nil, err
		}
		if pending != 0 {
			ferry.GetLogger(ctx).Debug("waiting for acknowledgments", "pending", pending)
			return nil, nil
		}
		return c.setStage(ctx, st, Stage{Kind: StageSignalFinish}), nil

	case StageSignalFinish:
		if err := c.tracker.SendSignal(ctx, db, xcm.KindFinish); err != nil {
			return nil, err
		}
		return c.setStage(ctx, st, Stage{Kind: StageDone}), nil
	}
	// Pending, WaitingForAck, Done and Paused wait for an external event.
	return nil, nil
}

func (c *Coordinator) enterCoolOff(ctx ferry.Context, st *State) []ferry.KVPair {
	end := st.CoolOff.Evaluate(ferry.MustGetHeight(ctx))
	return c.setStage(ctx, st, Stage{Kind: StageCoolOff, At: end})
}

// migrate runs a bounded slice of the current domain.
func (c *Coordinator) migrate(ctx ferry.Context, db ferry.KVStore, st *State) ([]ferry.KVPair, error) {
	s := st.Stage
	d, ok := c.domains.Get(s.Domain)
	if !ok {
		return nil, errors.Wrapf(errors.ErrState, "unknown domain %q", s.Domain)
	}

	xconf, err := xcm.LoadConfiguration(db)
	if err != nil {
		return nil, err
	}
	switch pending, err := c.tracker.PendingCount(db); {
	case err != nil:
		return nil, err
	case pending >= int(xconf.MaxPendingMessages):
		ferry.GetLogger(ctx).Info("too many pending batches", "pending", pending)
		return nil, nil
	}

	conf, err := LoadConfiguration(db)
	if err != nil {
		return nil, err
	}
	meter := weight.NewMeter(conf.BlockWeight)
	next, done, err := d.Migrate(ctx, db, s.Cursor, meter, c.tracker)
	if err != nil {
		return nil, errors.Wrapf(err, "domain %s", s.Domain)
	}
	if done {
		return c.setStage(ctx, st, Stage{Kind: StageDomainDone, Domain: s.Domain}), nil
	}
	if meter.Consumed().IsZero() && bytes.Equal(next, s.Cursor) {
		// Not even a single record fits into an empty block. Only a force
		// set stage or a configuration change can unblock the migration.
		ferry.GetLogger(ctx).Error("record exceeds the block weight",
			"domain", s.Domain, "cursor", s.Cursor, "limit", meter.Limit())
		return []ferry.KVPair{ferry.Tag("migration_stuck", s.Domain)}, nil
	}
	ferry.GetLogger(ctx).Debug("domain progressed", "domain", s.Domain, "consumed", meter.Consumed())
	return c.setStage(ctx, st, Stage{Kind: StageDomainOngoing, Domain: s.Domain, Cursor: next}), nil
}

// startDataMigration moves from WaitingForAck to WarmUp. A paused migration
// is resumed in WarmUp.
func (c *Coordinator) startDataMigration(ctx ferry.Context, db ferry.KVStore, st *State) ([]ferry.KVPair, error) {
	warmUp := Stage{Kind: StageWarmUp, At: st.WarmUp.Evaluate(ferry.MustGetHeight(ctx))}
	switch {
	case st.Stage.Kind == StageWaitingForAck:
		return c.setStage(ctx, st, warmUp), nil
	case st.Stage.Kind == StagePaused && st.ResumePoint != nil && st.ResumePoint.Kind == StageWaitingForAck:
		st.ResumePoint = &warmUp
		return nil, nil
	}
	return nil, errors.Wrapf(errors.ErrState, "stage %s", st.Stage)
}

// setStage is the only place that changes the stage of the migration,
// including the cursor of an ongoing domain. Moving the cursor within the
// same domain emits no tag. The resume point of a paused migration is kept
// beside the stage and is not a stage change.
func (c *Coordinator) setStage(ctx ferry.Context, st *State, next Stage) []ferry.KVPair {
	height, _ := ferry.GetHeight(ctx)
	prev := st.Stage
	st.Stage = next
	if prev.Kind == StageDomainOngoing && next.Kind == StageDomainOngoing && prev.Domain == next.Domain {
		return nil
	}

	tags := []ferry.KVPair{ferry.Tag("origin_stage", next.String())}
	switch next.Kind {
	case StageStarting:
		st.StartBlock = height
	case StageDone:
		st.EndBlock = height
		if st.ElectionsPaused {
			st.ElectionsPaused = false
			tags = append(tags, ferry.Tag("elections_resumed", strconv.FormatInt(height, 10)))
		}
	}
	ferry.GetLogger(ctx).Info("stage changed", "from", prev, "to", next, "height", height)
	return tags
}
