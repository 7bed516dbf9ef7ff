package sigs

import (
	"context"

	"github.com/iov-one/ferry"
	"github.com/iov-one/ferry/x"
)

type signersKey struct{}

func withSigners(ctx ferry.Context, signers []ferry.Condition) ferry.Context {
	return context.WithValue(ctx, signersKey{}, signers)
}

// Authenticate returns the signers verified by the Decorator.
type Authenticate struct{}

var _ x.Authenticator = Authenticate{}

func (Authenticate) GetConditions(ctx ferry.Context) []ferry.Condition {
	signers, _ := ctx.Value(signersKey{}).([]ferry.Condition)
	return signers
}

func (a Authenticate) HasAddress(ctx ferry.Context, addr ferry.Address) bool {
	return ferry.AnyHasAddress(a.GetConditions(ctx), addr)
}
