package x

import (
	"github.com/iov-one/ferry"
)

// Authenticator reports who authorized the current transaction. Handlers
// receive one in their constructor, so the source of the conditions can be
// swapped, for example for a mock in tests.
type Authenticator interface {
	GetConditions(ferry.Context) []ferry.Condition
	HasAddress(ferry.Context, ferry.Address) bool
}

// ChainAuth returns an Authenticator reporting the conditions of all auths.
func ChainAuth(auths ...Authenticator) Authenticator {
	return multiAuth(auths)
}

type multiAuth []Authenticator

func (m multiAuth) GetConditions(ctx ferry.Context) []ferry.Condition {
	var all []ferry.Condition
	for _, a := range m {
		all = append(all, a.GetConditions(ctx)...)
	}
	return all
}

func (m multiAuth) HasAddress(ctx ferry.Context, addr ferry.Address) bool {
	for _, a := range m {
		if a.HasAddress(ctx, addr) {
			return true
		}
	}
	return false
}

// RootCondition is fulfilled only by the chain itself, for example by a
// governance enactment or by the operator running the simulator.
func RootCondition() ferry.Condition {
	return ferry.NewCondition("sudo", "root", []byte("root"))
}

// IsRoot returns true if the context is authorized by RootCondition.
func IsRoot(ctx ferry.Context, auth Authenticator) bool {
	return auth.HasAddress(ctx, RootCondition().Address())
}
