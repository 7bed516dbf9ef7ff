package x

import (
	"github.com/iov-one/ferry"
	"github.com/iov-one/ferry/x/checks"
	"github.com/iov-one/ferry/x/weight"
)

// Sender moves encoded records to the destination chain. Items are split
// into bounded batches, each one tracked until acknowledged.
type Sender interface {
	SendChunked(ctx ferry.Context, db ferry.KVStore, domain string, items [][]byte) error
}

// Domain is a part of the chain state that is migrated as a whole.
//
// Migrate runs on the origin chain. It continues from cursor, withdraws as
// many records as the meter allows, passes them to the sender and returns
// the cursor to continue from in the next block. A nil cursor starts from
// the beginning. done is true once all records were sent.
//
// Integrate runs on the destination chain for every batch received. It is
// executed in a cache wrap: a returned error discards all of its changes.
type Domain interface {
	checks.Check

	Migrate(ctx ferry.Context, db ferry.KVStore, cursor []byte, meter *weight.Meter, out Sender) (next []byte, done bool, err error)
	Integrate(ctx ferry.Context, db ferry.KVStore, items [][]byte) error
}

// Domains is the ordered list of migrated domains.
type Domains []Domain

// Get returns the domain with given name.
func (ds Domains) Get(name string) (Domain, bool) {
	for _, d := range ds {
		if d.Name() == name {
			return d, true
		}
	}
	return nil, false
}

// Next returns the name of the domain that follows the named one, or an
// empty string if it is the last one.
func (ds Domains) Next(name string) string {
	for i, d := range ds {
		if d.Name() == name && i+1 < len(ds) {
			return ds[i+1].Name()
		}
	}
	return ""
}

// Index returns the position of the named domain or -1.
func (ds Domains) Index(name string) int {
	for i, d := range ds {
		if d.Name() == name {
			return i
		}
	}
	return -1
}

// Checks returns the checks of all domains, in order.
func (ds Domains) Checks() []checks.Check {
	cs := make([]checks.Check, len(ds))
	for i, d := range ds {
		cs[i] = d
	}
	return cs
}
