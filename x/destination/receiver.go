package destination

import (
	"strconv"

	"github.com/iov-one/ferry"
	"github.com/iov-one/ferry/errors"
	"github.com/iov-one/ferry/store"
	"github.com/iov-one/ferry/x"
	"github.com/iov-one/ferry/x/xcm"
)

// Receiver integrates the batches sent by the origin chain.
type Receiver struct {
	domains x.Domains
	tracker *xcm.Tracker
	states  StateBucket
}

var _ ferry.Ticker = (*Receiver)(nil)

// NewReceiver returns a receiver dispatching batches to given domains.
func NewReceiver(tracker *xcm.Tracker, domains ...x.Domain) *Receiver {
	return &Receiver{
		domains: domains,
		tracker: tracker,
		states:  NewStateBucket(),
	}
}

// Domains returns the domains known to the receiver.
func (r *Receiver) Domains() x.Domains {
	return r.domains
}

// Tick consumes the inbox in order. A batch received before the start
// signal stops the processing until the migration starts.
func (r *Receiver) Tick(ctx ferry.Context, db ferry.KVStore) (*ferry.TickResult, error) {
	ctx = ferry.WithLogInfo(ctx, "module", packageName)
	log := ferry.GetLogger(ctx)

	st, err := r.states.Load(db)
	if err != nil {
		return nil, err
	}
	conf, err := LoadConfiguration(db)
	if err != nil {
		return nil, err
	}

	var tags []ferry.KVPair
	for batches := uint32(0); batches < conf.MaxBatchesPerBlock; {
		raw, err := xcm.Inbox.Peek(db)
		if errors.ErrEmpty.Is(err) {
			break
		}
		if err != nil {
			return nil, err
		}
		var d xcm.Delivery
		if err := d.Unmarshal(raw); err != nil {
			log.Error("dropping malformed delivery", "err", err)
			if _, err := xcm.Inbox.Pop(db); err != nil {
				return nil, err
			}
			continue
		}
		env, envErr := d.Envelope()
		if envErr != nil {
			log.Error("dropping malformed envelope", "query_id", d.QueryID, "err", envErr)
			if d.Tracked {
				if err := xcm.Respond(db, d.QueryID, envErr); err != nil {
					return nil, err
				}
			}
			if _, err := xcm.Inbox.Pop(db); err != nil {
				return nil, err
			}
			continue
		}
		if env.Kind == xcm.KindBatch && st.Stage == StagePending {
			log.Debug("batch waits for the start signal", "query_id", d.QueryID)
			break
		}
		if _, err := xcm.Inbox.Pop(db); err != nil {
			return nil, err
		}

		switch env.Kind {
		case xcm.KindStart:
			t, err := r.start(ctx, db, st)
			if err != nil {
				return nil, err
			}
			tags = append(tags, t...)
		case xcm.KindBatch:
			batches++
			t, err := r.integrate(ctx, db, st, &d, env)
			if err != nil {
				return nil, err
			}
			tags = append(tags, t...)
		case xcm.KindFinish:
			st.FinishReceived = true
			log.Info("finish signal received")
		default:
			log.Error("unexpected envelope", "kind", env.Kind)
		}
	}

	if st.Stage == StageDataMigrationOngoing && st.FinishReceived {
		n, err := xcm.Inbox.Len(db)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			tags = append(tags, r.setStage(ctx, st, StageDone)...)
		}
	}

	if err := r.states.Save(db, st); err != nil {
		return nil, err
	}
	return &ferry.TickResult{Tags: tags}, nil
}

// start acknowledges the start signal. A repeated signal is acknowledged
// again without changing the stage.
func (r *Receiver) start(ctx ferry.Context, db ferry.KVStore, st *State) ([]ferry.KVPair, error) {
	var tags []ferry.KVPair
	switch st.Stage {
	case StagePending:
		tags = r.setStage(ctx, st, StageDataMigrationOngoing)
	case StageDataMigrationOngoing:
		ferry.GetLogger(ctx).Info("repeated start signal")
	default:
		ferry.GetLogger(ctx).Error("start signal after the migration", "stage", st.Stage)
		return nil, nil
	}
	if err := r.tracker.SendSignal(ctx, db, xcm.KindStartAck); err != nil {
		return nil, err
	}
	return tags, nil
}

// integrate applies a batch in a cache wrap and reports the outcome to the
// origin chain under the query id the batch was delivered with.
func (r *Receiver) integrate(ctx ferry.Context, db ferry.KVStore, st *State, d *xcm.Delivery, env *xcm.Envelope) ([]ferry.KVPair, error) {
	log := ferry.GetLogger(ctx)
	result := r.apply(ctx, db, st, env)
	if result != nil {
		st.Rejected++
		log.Error("batch rejected", "query_id", d.QueryID, "domain", env.Domain, "err", result)
	} else {
		st.Integrated++
		log.Debug("batch integrated", "query_id", d.QueryID, "domain", env.Domain, "items", len(env.Items))
	}
	if err := xcm.Respond(db, d.QueryID, result); err != nil {
		return nil, err
	}
	if result != nil {
		return []ferry.KVPair{ferry.Tag("batch_rejected", strconv.FormatUint(d.QueryID, 10))}, nil
	}
	return nil, nil
}

func (r *Receiver) apply(ctx ferry.Context, db ferry.KVStore, st *State, env *xcm.Envelope) (err error) {
	defer errors.Recover(&err)

	if st.Stage != StageDataMigrationOngoing {
		return errors.Wrapf(errors.ErrState, "stage %s", st.Stage)
	}
	d, ok := r.domains.Get(env.Domain)
	if !ok {
		return errors.Wrapf(errors.ErrIntegration, "unknown domain %q", env.Domain)
	}
	cache := store.BTreeCacheable{KVStore: db}.CacheWrap()
	defer cache.Discard()
	if err := d.Integrate(ctx, cache, env.Items); err != nil {
		return err
	}
	return cache.Write()
}

// setStage is the only place that changes the stage of the receiver.
func (r *Receiver) setStage(ctx ferry.Context, st *State, next StageKind) []ferry.KVPair {
	height, _ := ferry.GetHeight(ctx)
	prev := st.Stage
	st.Stage = next
	switch next {
	case StageDataMigrationOngoing:
		st.StartBlock = height
	case StageDone:
		st.EndBlock = height
	}
	ferry.GetLogger(ctx).Info("stage changed", "from", prev, "to", next, "height", height)
	return []ferry.KVPair{ferry.Tag("destination_stage", next.String())}
}
