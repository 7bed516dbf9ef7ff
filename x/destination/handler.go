package destination

import (
	"github.com/iov-one/ferry"
	"github.com/iov-one/ferry/errors"
	"github.com/iov-one/ferry/x"
	"github.com/iov-one/ferry/x/accounts"
)

// RegisterRoutes registers the privileged operations of the receiver.
func RegisterRoutes(r ferry.Registry, auth x.Authenticator, rcv *Receiver) {
	r.Handle(&ForceSetStageMsg{}, &forceSetStageHandler{auth: auth, r: rcv})
	r.Handle(&SetManagerMsg{}, &setManagerHandler{auth: auth, states: rcv.states, accounts: accounts.NewBucket()})
}

// authorize loads the state and fails unless the signers hold one of the
// allowed roles.
func authorize(ctx ferry.Context, auth x.Authenticator, db ferry.ReadOnlyKVStore, states StateBucket, allowed ...x.Role) (*State, error) {
	st, err := states.Load(db)
	if err != nil {
		return nil, err
	}
	conf, err := LoadConfiguration(db)
	if err != nil {
		return nil, errors.Wrap(err, "configuration")
	}
	if !x.HasAnyRole(ctx, auth, x.Roles{Admin: conf.Admin, Manager: st.Manager}, allowed...) {
		return nil, errors.Wrapf(errors.ErrUnauthorized, "requires one of %v", allowed)
	}
	return st, nil
}

type forceSetStageHandler struct {
	auth x.Authenticator
	r    *Receiver
}

var _ ferry.Handler = (*forceSetStageHandler)(nil)

func (h *forceSetStageHandler) Check(ctx ferry.Context, db ferry.KVStore, tx ferry.Tx) (*ferry.CheckResult, error) {
	if _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &ferry.CheckResult{}, nil
}

func (h *forceSetStageHandler) Deliver(ctx ferry.Context, db ferry.KVStore, tx ferry.Tx) (*ferry.DeliverResult, error) {
	msg, st, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	if msg.Stage == StagePending {
		st.FinishReceived = false
	}
	ferry.GetLogger(ctx).Info("stage forced", "stage", msg.Stage)
	tags := h.r.setStage(ctx, st, msg.Stage)
	if err := h.r.states.Save(db, st); err != nil {
		return nil, err
	}
	return &ferry.DeliverResult{Tags: tags}, nil
}

func (h *forceSetStageHandler) validate(ctx ferry.Context, db ferry.KVStore, tx ferry.Tx) (*ForceSetStageMsg, *State, error) {
	var msg ForceSetStageMsg
	if err := ferry.LoadMsg(tx, &msg); err != nil {
		return nil, nil, errors.Wrap(err, "load msg")
	}
	st, err := authorize(ctx, h.auth, db, h.r.states, x.RoleRoot, x.RoleAdmin, x.RoleManager)
	if err != nil {
		return nil, nil, err
	}
	return &msg, st, nil
}

type setManagerHandler struct {
	auth     x.Authenticator
	states   StateBucket
	accounts accounts.Bucket
}

var _ ferry.Handler = (*setManagerHandler)(nil)

func (h *setManagerHandler) Check(ctx ferry.Context, db ferry.KVStore, tx ferry.Tx) (*ferry.CheckResult, error) {
	if _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &ferry.CheckResult{}, nil
}

func (h *setManagerHandler) Deliver(ctx ferry.Context, db ferry.KVStore, tx ferry.Tx) (*ferry.DeliverResult, error) {
	msg, st, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	st.Manager = msg.Who
	if err := h.states.Save(db, st); err != nil {
		return nil, err
	}
	return &ferry.DeliverResult{Tags: []ferry.KVPair{ferry.Tag("manager", msg.Who.String())}}, nil
}

func (h *setManagerHandler) validate(ctx ferry.Context, db ferry.KVStore, tx ferry.Tx) (*SetManagerMsg, *State, error) {
	var msg SetManagerMsg
	if err := ferry.LoadMsg(tx, &msg); err != nil {
		return nil, nil, errors.Wrap(err, "load msg")
	}
	st, err := authorize(ctx, h.auth, db, h.states, x.RoleRoot, x.RoleAdmin)
	if err != nil {
		return nil, nil, err
	}
	if len(msg.Who) != 0 {
		switch ok, err := h.accounts.IsReferenced(db, msg.Who); {
		case err != nil:
			return nil, nil, err
		case ok:
			return nil, nil, errors.Wrapf(errors.ErrAccountReferenced, "account %s", msg.Who)
		}
	}
	return &msg, st, nil
}
