/*
Package sigs authenticates transactions signed with ed25519 keys. Each key
has a nonce that every accepted transaction consumes, so a signed transaction
cannot be delivered twice.
*/
package sigs

import (
	"github.com/iov-one/ferry"
	"github.com/iov-one/ferry/errors"
)

// Decorator verifies the signatures of a transaction and exposes the signers
// to the handlers below it through Authenticate.
type Decorator struct {
	optional bool
}

var _ ferry.Decorator = Decorator{}

// NewDecorator returns a decorator rejecting unsigned transactions.
func NewDecorator() Decorator {
	return Decorator{}
}

// AllowMissingSigs returns a decorator that lets unsigned transactions
// through, without signers.
func (d Decorator) AllowMissingSigs() Decorator {
	return Decorator{optional: true}
}

func (d Decorator) Check(ctx ferry.Context, db ferry.KVStore, tx ferry.Tx, next ferry.Checker) (*ferry.CheckResult, error) {
	ctx, err := d.authenticate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	return next.Check(ctx, db, tx)
}

func (d Decorator) Deliver(ctx ferry.Context, db ferry.KVStore, tx ferry.Tx, next ferry.Deliverer) (*ferry.DeliverResult, error) {
	ctx, err := d.authenticate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	return next.Deliver(ctx, db, tx)
}

func (d Decorator) authenticate(ctx ferry.Context, db ferry.KVStore, tx ferry.Tx) (ferry.Context, error) {
	var signers []ferry.Condition
	if stx, ok := tx.(SignedTx); ok {
		var err error
		signers, err = Verify(db, stx, ferry.GetChainID(ctx))
		if err != nil {
			return nil, err
		}
	}
	if len(signers) == 0 && !d.optional {
		return nil, errors.Wrap(errors.ErrUnauthorized, "transaction is not signed")
	}
	return withSigners(ctx, signers), nil
}
