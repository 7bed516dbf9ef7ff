package app

import (
	"context"
	"testing"

	"github.com/iov-one/ferry"
	"github.com/iov-one/ferry/errors"
	"github.com/iov-one/ferry/migtest"
	"github.com/iov-one/ferry/migtest/assert"
	"github.com/iov-one/ferry/store"
)

// orderDecorator records its name before calling the next handler.
type orderDecorator struct {
	name string
	log  *[]string
}

func (d orderDecorator) Check(ctx ferry.Context, db ferry.KVStore, tx ferry.Tx, next ferry.Checker) (*ferry.CheckResult, error) {
	*d.log = append(*d.log, d.name)
	return next.Check(ctx, db, tx)
}

func (d orderDecorator) Deliver(ctx ferry.Context, db ferry.KVStore, tx ferry.Tx, next ferry.Deliverer) (*ferry.DeliverResult, error) {
	*d.log = append(*d.log, d.name)
	return next.Deliver(ctx, db, tx)
}

type panicHandler struct{}

func (panicHandler) Check(ferry.Context, ferry.KVStore, ferry.Tx) (*ferry.CheckResult, error) {
	panic("check")
}

func (panicHandler) Deliver(ferry.Context, ferry.KVStore, ferry.Tx) (*ferry.DeliverResult, error) {
	panic("deliver")
}

func TestDecoratorsOrder(t *testing.T) {
	var log []string
	var nilRecovery *Recovery

	h := &migtest.Handler{}
	stack := ChainDecorators(
		orderDecorator{"first", &log},
		nil,
		nilRecovery,
	).Chain(
		orderDecorator{"second", &log},
	).WithHandler(h)

	_, err := stack.Deliver(context.Background(), store.MemStore(), &migtest.Tx{})
	assert.Nil(t, err)
	assert.Equal(t, []string{"first", "second"}, log)
	assert.Equal(t, 1, h.DeliverCallCount())
}

func TestRecovery(t *testing.T) {
	stack := ChainDecorators(NewRecovery()).WithHandler(panicHandler{})

	_, err := stack.Check(context.Background(), store.MemStore(), &migtest.Tx{})
	assert.IsErr(t, errors.ErrPanic, err)
	_, err = stack.Deliver(context.Background(), store.MemStore(), &migtest.Tx{})
	assert.IsErr(t, errors.ErrPanic, err)
}
