package migtest

import (
	"context"
	"encoding/binary"
	"sync/atomic"

	"github.com/iov-one/ferry"
)

// Auth authenticates a fixed set of conditions, whatever the context.
type Auth struct {
	Signer  ferry.Condition
	Signers []ferry.Condition
}

func (a *Auth) GetConditions(ferry.Context) []ferry.Condition {
	if a.Signer == nil {
		return a.Signers
	}
	return append(append([]ferry.Condition(nil), a.Signers...), a.Signer)
}

func (a *Auth) HasAddress(ctx ferry.Context, addr ferry.Address) bool {
	return ferry.AnyHasAddress(a.GetConditions(ctx), addr)
}

// CtxAuth authenticates the conditions stored in the context under Key. Two
// CtxAuth with different keys do not see each other's conditions.
type CtxAuth struct {
	Key string
}

type ctxAuthKey string

// SetConditions returns a context authorized by conds.
func (a *CtxAuth) SetConditions(ctx ferry.Context, conds ...ferry.Condition) ferry.Context {
	return context.WithValue(ctx, ctxAuthKey(a.Key), conds)
}

func (a *CtxAuth) GetConditions(ctx ferry.Context) []ferry.Condition {
	conds, _ := ctx.Value(ctxAuthKey(a.Key)).([]ferry.Condition)
	return conds
}

func (a *CtxAuth) HasAddress(ctx ferry.Context, addr ferry.Address) bool {
	return ferry.AnyHasAddress(a.GetConditions(ctx), addr)
}

var conditions uint64

// NewCondition returns a condition that was never returned before.
func NewCondition() ferry.Condition {
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], atomic.AddUint64(&conditions, 1))
	return ferry.NewCondition("test", "seq", n[:])
}

// NewAddress returns an account that was never returned before.
func NewAddress() ferry.Address {
	return NewCondition().Address()
}
