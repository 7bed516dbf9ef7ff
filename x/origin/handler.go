package origin

import (
	"strconv"

	"github.com/iov-one/ferry"
	"github.com/iov-one/ferry/errors"
	"github.com/iov-one/ferry/x"
)

// RegisterRoutes registers the privileged operations of the coordinator.
func RegisterRoutes(r ferry.Registry, auth x.Authenticator, c *Coordinator) {
	all := []x.Role{x.RoleRoot, x.RoleAdmin, x.RoleManager, x.RoleCanceller}
	operators := []x.Role{x.RoleRoot, x.RoleAdmin, x.RoleManager}
	governance := []x.Role{x.RoleRoot, x.RoleAdmin}

	r.Handle(&ScheduleMigrationMsg{}, c.handler(auth, operators, c.schedule))
	r.Handle(&PauseMigrationMsg{}, c.handler(auth, all, c.pause))
	r.Handle(&ResumeMigrationMsg{}, c.handler(auth, operators, c.resume))
	r.Handle(&CancelMigrationMsg{}, c.handler(auth, all, c.cancel))
	r.Handle(&ForceSetStageMsg{}, c.handler(auth, operators, c.forceSetStage))
	r.Handle(&SetManagerMsg{}, c.handler(auth, governance, c.setManager))
	r.Handle(&SetCancellerMsg{}, c.handler(auth, governance, c.setCanceller))
	r.Handle(&PreserveAccountsMsg{}, c.handler(auth, governance, c.preserveAccounts))
	r.Handle(&ResendXCMMsg{}, c.handler(auth, operators, c.resend))
	r.Handle(&StartDataMigrationMsg{}, c.handler(auth, operators, c.startDataMigrationTx))
}

// operation changes the state according to the message of tx. It must load
// and validate the message itself.
type operation func(ctx ferry.Context, db ferry.KVStore, st *State, tx ferry.Tx) ([]ferry.KVPair, error)

// roleHandler authorizes the signers of a transaction against the roles
// allowed to run an operation.
type roleHandler struct {
	auth    x.Authenticator
	states  StateBucket
	allowed []x.Role
	op      operation
}

var _ ferry.Handler = (*roleHandler)(nil)

func (c *Coordinator) handler(auth x.Authenticator, allowed []x.Role, op operation) ferry.Handler {
	return &roleHandler{auth: auth, states: c.states, allowed: allowed, op: op}
}

// Check runs the operation in full. The store given to Check is never
// committed.
func (h *roleHandler) Check(ctx ferry.Context, db ferry.KVStore, tx ferry.Tx) (*ferry.CheckResult, error) {
	if _, err := h.Deliver(ctx, db, tx); err != nil {
		return nil, err
	}
	return &ferry.CheckResult{}, nil
}

func (h *roleHandler) Deliver(ctx ferry.Context, db ferry.KVStore, tx ferry.Tx) (*ferry.DeliverResult, error) {
	st, err := h.states.Load(db)
	if err != nil {
		return nil, err
	}
	conf, err := LoadConfiguration(db)
	if err != nil {
		return nil, errors.Wrap(err, "configuration")
	}
	roles := x.Roles{Admin: conf.Admin, Manager: st.Manager, Canceller: st.Canceller}
	if !x.HasAnyRole(ctx, h.auth, roles, h.allowed...) {
		return nil, errors.Wrapf(errors.ErrUnauthorized, "requires one of %v", h.allowed)
	}
	tags, err := h.op(ctx, db, st, tx)
	if err != nil {
		return nil, err
	}
	if err := h.states.Save(db, st); err != nil {
		return nil, err
	}
	return &ferry.DeliverResult{Tags: tags}, nil
}

func (c *Coordinator) schedule(ctx ferry.Context, db ferry.KVStore, st *State, tx ferry.Tx) ([]ferry.KVPair, error) {
	var msg ScheduleMigrationMsg
	if err := ferry.LoadMsg(tx, &msg); err != nil {
		return nil, errors.Wrap(err, "load msg")
	}
	if k := st.Stage.Kind; k != StagePending && k != StageScheduled {
		return nil, errors.Wrapf(errors.ErrState, "cannot schedule in stage %s", st.Stage)
	}
	conf, err := LoadConfiguration(db)
	if err != nil {
		return nil, err
	}
	now := ferry.MustGetHeight(ctx)
	if !msg.IgnoreGuard && msg.Start <= now+2*conf.EpochLength {
		return nil, errors.Wrapf(errors.ErrEraEndsTooSoon,
			"start %d must be after block %d", msg.Start, now+2*conf.EpochLength)
	}

	st.WarmUp = msg.WarmUp
	st.CoolOff = msg.CoolOff
	tags := c.setStage(ctx, st, Stage{Kind: StageScheduled, At: msg.Start})

	eraEnd := (now/conf.EraLength + 1) * conf.EraLength
	if msg.Start < eraEnd && !st.ElectionsPaused {
		st.ElectionsPaused = true
		tags = append(tags, ferry.Tag("elections_paused", strconv.FormatInt(now, 10)))
		ferry.GetLogger(ctx).Info("elections paused", "era_end", eraEnd)
	}
	return tags, nil
}

func (c *Coordinator) pause(ctx ferry.Context, db ferry.KVStore, st *State, tx ferry.Tx) ([]ferry.KVPair, error) {
	var msg PauseMigrationMsg
	if err := ferry.LoadMsg(tx, &msg); err != nil {
		return nil, errors.Wrap(err, "load msg")
	}
	switch st.Stage.Kind {
	case StagePending, StageDone, StagePaused:
		return nil, errors.Wrapf(errors.ErrState, "cannot pause in stage %s", st.Stage)
	}
	resume := st.Stage
	st.ResumePoint = &resume
	return c.setStage(ctx, st, Stage{Kind: StagePaused}), nil
}

func (c *Coordinator) resume(ctx ferry.Context, db ferry.KVStore, st *State, tx ferry.Tx) ([]ferry.KVPair, error) {
	var msg ResumeMigrationMsg
	if err := ferry.LoadMsg(tx, &msg); err != nil {
		return nil, errors.Wrap(err, "load msg")
	}
	if st.Stage.Kind != StagePaused || st.ResumePoint == nil {
		return nil, errors.Wrapf(errors.ErrState, "cannot resume in stage %s", st.Stage)
	}
	next := *st.ResumePoint
	st.ResumePoint = nil
	return c.setStage(ctx, st, next), nil
}

func (c *Coordinator) cancel(ctx ferry.Context, db ferry.KVStore, st *State, tx ferry.Tx) ([]ferry.KVPair, error) {
	var msg CancelMigrationMsg
	if err := ferry.LoadMsg(tx, &msg); err != nil {
		return nil, errors.Wrap(err, "load msg")
	}
	current := st.Stage
	if current.Kind == StagePaused && st.ResumePoint != nil {
		current = *st.ResumePoint
	}
	switch current.Kind {
	case StageScheduled, StageWaitingForAck, StageWarmUp:
	default:
		return nil, errors.Wrapf(errors.ErrState, "cannot cancel in stage %s", current)
	}
	st.ResumePoint = nil
	st.WarmUp = DispatchTime{}
	st.CoolOff = DispatchTime{}
	tags := c.setStage(ctx, st, Pending())
	if st.ElectionsPaused {
		st.ElectionsPaused = false
		tags = append(tags, ferry.Tag("elections_resumed", strconv.FormatInt(ferry.MustGetHeight(ctx), 10)))
	}
	return tags, nil
}

func (c *Coordinator) forceSetStage(ctx ferry.Context, db ferry.KVStore, st *State, tx ferry.Tx) ([]ferry.KVPair, error) {
	var msg ForceSetStageMsg
	if err := ferry.LoadMsg(tx, &msg); err != nil {
		return nil, errors.Wrap(err, "load msg")
	}
	switch msg.Stage.Kind {
	case StageDomainInit, StageDomainOngoing, StageDomainDone:
		if c.domains.Index(msg.Stage.Domain) < 0 {
			return nil, errors.Wrapf(errors.ErrInput, "unknown domain %q", msg.Stage.Domain)
		}
	}
	if msg.Stage.Kind != StagePaused {
		st.ResumePoint = nil
	} else if st.ResumePoint == nil {
		resume := st.Stage
		st.ResumePoint = &resume
	}
	ferry.GetLogger(ctx).Info("stage forced", "stage", msg.Stage)
	return c.setStage(ctx, st, msg.Stage), nil
}

// designate checks that an account can take an operational role.
func (c *Coordinator) designate(db ferry.ReadOnlyKVStore, who ferry.Address) error {
	if len(who) == 0 {
		return nil
	}
	switch ok, err := c.accounts.IsReferenced(db, who); {
	case err != nil:
		return err
	case ok:
		return errors.Wrapf(errors.ErrAccountReferenced, "account %s", who)
	}
	return nil
}

func (c *Coordinator) setManager(ctx ferry.Context, db ferry.KVStore, st *State, tx ferry.Tx) ([]ferry.KVPair, error) {
	var msg SetManagerMsg
	if err := ferry.LoadMsg(tx, &msg); err != nil {
		return nil, errors.Wrap(err, "load msg")
	}
	if err := c.designate(db, msg.Who); err != nil {
		return nil, err
	}
	st.Manager = msg.Who
	return []ferry.KVPair{ferry.Tag("manager", msg.Who.String())}, nil
}

func (c *Coordinator) setCanceller(ctx ferry.Context, db ferry.KVStore, st *State, tx ferry.Tx) ([]ferry.KVPair, error) {
	var msg SetCancellerMsg
	if err := ferry.LoadMsg(tx, &msg); err != nil {
		return nil, errors.Wrap(err, "load msg")
	}
	if err := c.designate(db, msg.Who); err != nil {
		return nil, err
	}
	st.Canceller = msg.Who
	return []ferry.KVPair{ferry.Tag("canceller", msg.Who.String())}, nil
}

func (c *Coordinator) preserveAccounts(ctx ferry.Context, db ferry.KVStore, st *State, tx ferry.Tx) ([]ferry.KVPair, error) {
	var msg PreserveAccountsMsg
	if err := ferry.LoadMsg(tx, &msg); err != nil {
		return nil, errors.Wrap(err, "load msg")
	}
	for _, who := range msg.Accounts {
		if err := c.designate(db, who); err != nil {
			return nil, err
		}
		if err := c.accounts.Preserve(db, who); err != nil {
			return nil, err
		}
	}
	return []ferry.KVPair{ferry.Tag("preserved", strconv.Itoa(len(msg.Accounts)))}, nil
}

func (c *Coordinator) resend(ctx ferry.Context, db ferry.KVStore, st *State, tx ferry.Tx) ([]ferry.KVPair, error) {
	var msg ResendXCMMsg
	if err := ferry.LoadMsg(tx, &msg); err != nil {
		return nil, errors.Wrap(err, "load msg")
	}
	id, err := c.tracker.Resend(ctx, db, msg.QueryID)
	if err != nil {
		return nil, err
	}
	return []ferry.KVPair{ferry.Tag("query_id", strconv.FormatUint(id, 10))}, nil
}

func (c *Coordinator) startDataMigrationTx(ctx ferry.Context, db ferry.KVStore, st *State, tx ferry.Tx) ([]ferry.KVPair, error) {
	var msg StartDataMigrationMsg
	if err := ferry.LoadMsg(tx, &msg); err != nil {
		return nil, errors.Wrap(err, "load msg")
	}
	return c.startDataMigration(ctx, db, st)
}
