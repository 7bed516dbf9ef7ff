/*
Package checks runs the invariant checks that surround a migration.

Every migrated domain provides a Check: PreCheck inspects the state of both
chains before the migration starts and returns an opaque payload, PostCheck
receives that exact payload once the destination chain reached its final
stage and verifies that the state moved as expected. A Harness runs all
checks in a fixed order.
*/
package checks

import (
	"github.com/iov-one/ferry"
	"github.com/iov-one/ferry/errors"
)

// Payload is the value passed unchanged from PreCheck to PostCheck.
type Payload interface{}

// Check is a pair of functions verifying one migrated domain.
type Check interface {
	// Name returns the name of the checked domain.
	Name() string
	// PreCheck is called once before the migration starts.
	PreCheck(oc, dc ferry.ReadOnlyKVStore) (Payload, error)
	// PostCheck is called once after the migration is done, with the
	// payload returned by PreCheck.
	PostCheck(oc, dc ferry.ReadOnlyKVStore, p Payload) error
}

// Harness is an ordered list of checks.
type Harness struct {
	checks []Check
}

// NewHarness returns a harness running given checks in the given order.
func NewHarness(checks ...Check) *Harness {
	return &Harness{checks: checks}
}

// Add appends checks to the end of the list.
func (h *Harness) Add(checks ...Check) {
	h.checks = append(h.checks, checks...)
}

// Names returns the names of all checks in the order they are run.
func (h *Harness) Names() []string {
	names := make([]string, len(h.checks))
	for i, c := range h.checks {
		names[i] = c.Name()
	}
	return names
}

// Snapshot holds the payloads returned by all PreCheck calls.
type Snapshot struct {
	names    []string
	payloads []Payload
}

// Payload returns the payload produced by the named check.
func (s *Snapshot) Payload(name string) (Payload, bool) {
	for i, n := range s.names {
		if n == name {
			return s.payloads[i], true
		}
	}
	return nil, false
}

// PreCheck runs all checks and returns their payloads. The first failing
// check aborts the run.
func (h *Harness) PreCheck(oc, dc ferry.ReadOnlyKVStore) (*Snapshot, error) {
	s := &Snapshot{
		names:    make([]string, 0, len(h.checks)),
		payloads: make([]Payload, 0, len(h.checks)),
	}
	for _, c := range h.checks {
		p, err := c.PreCheck(oc, dc)
		if err != nil {
			return nil, errors.Wrapf(err, "pre check %q", c.Name())
		}
		s.names = append(s.names, c.Name())
		s.payloads = append(s.payloads, p)
	}
	return s, nil
}

// PostCheck runs all checks with the payloads of the given snapshot. All
// checks are run and all failures are returned.
func (h *Harness) PostCheck(oc, dc ferry.ReadOnlyKVStore, s *Snapshot) error {
	if s == nil || len(s.names) != len(h.checks) {
		return errors.Wrap(errors.ErrState, "snapshot does not match the harness")
	}
	var errs error
	for i, c := range h.checks {
		if s.names[i] != c.Name() {
			return errors.Wrapf(errors.ErrState, "snapshot entry %d is %q, want %q", i, s.names[i], c.Name())
		}
		if err := c.PostCheck(oc, dc, s.payloads[i]); err != nil {
			errs = errors.Append(errs, errors.Wrapf(err, "post check %q", c.Name()))
		}
	}
	return errs
}

// Func adapts plain functions to the Check interface.
type Func struct {
	CheckName string
	Pre       func(oc, dc ferry.ReadOnlyKVStore) (Payload, error)
	Post      func(oc, dc ferry.ReadOnlyKVStore, p Payload) error
}

var _ Check = Func{}

func (f Func) Name() string {
	return f.CheckName
}

func (f Func) PreCheck(oc, dc ferry.ReadOnlyKVStore) (Payload, error) {
	if f.Pre == nil {
		return nil, nil
	}
	return f.Pre(oc, dc)
}

func (f Func) PostCheck(oc, dc ferry.ReadOnlyKVStore, p Payload) error {
	if f.Post == nil {
		return nil
	}
	return f.Post(oc, dc, p)
}
