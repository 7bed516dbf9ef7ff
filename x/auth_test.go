package x

import (
	"context"
	"testing"

	"github.com/iov-one/ferry"
	"github.com/iov-one/ferry/migtest"
	"github.com/iov-one/ferry/migtest/assert"
)

func TestAuth(t *testing.T) {
	a, b, c := migtest.NewCondition(), migtest.NewCondition(), migtest.NewCondition()
	foo := &migtest.CtxAuth{Key: "foo"}
	bar := &migtest.CtxAuth{Key: "bar"}
	signed := foo.SetConditions(context.Background(), a, b)

	cases := map[string]struct {
		ctx     ferry.Context
		auth    Authenticator
		want    []ferry.Condition
		missing ferry.Condition
	}{
		"nobody": {
			ctx:     context.Background(),
			auth:    &migtest.Auth{},
			missing: a,
		},
		"single signer": {
			ctx:     context.Background(),
			auth:    &migtest.Auth{Signer: a},
			want:    []ferry.Condition{a},
			missing: b,
		},
		"chained auths keep their order": {
			ctx:     context.Background(),
			auth:    ChainAuth(&migtest.Auth{Signer: b}, &migtest.Auth{Signer: a}),
			want:    []ferry.Condition{b, a},
			missing: c,
		},
		"context auth reads its own key": {
			ctx:     signed,
			auth:    foo,
			want:    []ferry.Condition{a, b},
			missing: c,
		},
		"context auth ignores other keys": {
			ctx:     signed,
			auth:    bar,
			missing: a,
		},
		"chain of context auths": {
			ctx:     bar.SetConditions(signed, c),
			auth:    ChainAuth(bar, foo),
			want:    []ferry.Condition{c, a, b},
			missing: RootCondition(),
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got := tc.auth.GetConditions(tc.ctx)
			assert.Equal(t, tc.want, got)
			for _, w := range tc.want {
				assert.True(t, tc.auth.HasAddress(tc.ctx, w.Address()), "signer not found")
			}
			assert.True(t, !tc.auth.HasAddress(tc.ctx, tc.missing.Address()), "unexpected signer")
			assert.True(t, !IsRoot(tc.ctx, tc.auth), "unexpected root")
		})
	}

	root := &migtest.Auth{Signer: RootCondition()}
	assert.True(t, IsRoot(context.Background(), ChainAuth(&migtest.Auth{}, root)), "root not found")
}

func TestRoles(t *testing.T) {
	admin := migtest.NewCondition()
	manager := migtest.NewCondition()
	canceller := migtest.NewCondition()
	stranger := migtest.NewCondition()

	roles := Roles{
		Admin:     admin.Address(),
		Manager:   manager.Address(),
		Canceller: canceller.Address(),
	}

	cases := map[string]struct {
		signer  ferry.Condition
		allowed []Role
		want    bool
	}{
		"root is root": {
			signer:  RootCondition(),
			allowed: []Role{RoleRoot},
			want:    true,
		},
		"admin is allowed as admin": {
			signer:  admin,
			allowed: []Role{RoleRoot, RoleAdmin},
			want:    true,
		},
		"manager is not admin": {
			signer:  manager,
			allowed: []Role{RoleRoot, RoleAdmin},
		},
		"canceller may cancel": {
			signer:  canceller,
			allowed: []Role{RoleRoot, RoleAdmin, RoleManager, RoleCanceller},
			want:    true,
		},
		"canceller may not manage": {
			signer:  canceller,
			allowed: []Role{RoleRoot, RoleAdmin, RoleManager},
		},
		"stranger has no role": {
			signer:  stranger,
			allowed: []Role{RoleRoot, RoleAdmin, RoleManager, RoleCanceller},
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			auth := &migtest.Auth{Signer: tc.signer}
			got := HasAnyRole(context.Background(), auth, roles, tc.allowed...)
			assert.Equal(t, tc.want, got)
		})
	}

	// Unassigned roles never match.
	auth := &migtest.Auth{Signer: stranger}
	assert.Equal(t, 0, len(RolesOf(context.Background(), auth, Roles{})))
	assert.Equal(t, "manager", RoleManager.String())
}
