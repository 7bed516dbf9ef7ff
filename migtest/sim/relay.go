package sim

import (
	"github.com/iov-one/ferry"
	"github.com/iov-one/ferry/errors"
	"github.com/iov-one/ferry/x/xcm"
)

// Chain identifies one side of the simulation.
type Chain int

const (
	OriginChain Chain = iota
	DestinationChain
)

func (c Chain) String() string {
	if c == OriginChain {
		return "origin"
	}
	return "destination"
}

// Packet is a message travelling between the chains.
type Packet struct {
	From   Chain
	Sent   int64
	Arrive int64
	Raw    []byte
}

// Relay is a FIFO channel in each direction with a fixed lag.
type Relay struct {
	lag      int64
	inflight []Packet

	// Filter, when set, is called for every collected packet. Returning
	// false drops the packet.
	Filter func(p *Packet) bool

	delivered int
	dropped   int
}

// NewRelay returns a relay delivering packets lag blocks after they were
// sent.
func NewRelay(lag int64) *Relay {
	return &Relay{lag: lag}
}

// Collect empties the outbox of a chain at the end of a block.
func (r *Relay) Collect(height int64, from Chain, db ferry.KVStore) error {
	for {
		raw, err := xcm.Outbox.Pop(db)
		if errors.ErrEmpty.Is(err) {
			return nil
		}
		if err != nil {
			return err
		}
		p := Packet{From: from, Sent: height, Arrive: height + r.lag, Raw: raw}
		if r.Filter != nil && !r.Filter(&p) {
			r.dropped++
			continue
		}
		r.inflight = append(r.inflight, p)
	}
}

// Deliver pushes into the inbox of a chain all packets for it that arrived
// by the given height, in the order they were sent.
func (r *Relay) Deliver(height int64, to Chain, db ferry.KVStore) error {
	kept := r.inflight[:0]
	for _, p := range r.inflight {
		if p.From == to || p.Arrive > height {
			kept = append(kept, p)
			continue
		}
		if err := xcm.Inbox.Push(db, p.Raw); err != nil {
			return err
		}
		r.delivered++
	}
	r.inflight = kept
	return nil
}

// InFlight returns the number of packets not delivered yet.
func (r *Relay) InFlight() int {
	return len(r.inflight)
}

// Delivered returns the number of packets delivered so far.
func (r *Relay) Delivered() int {
	return r.delivered
}

// Dropped returns the number of packets rejected by the filter.
func (r *Relay) Dropped() int {
	return r.dropped
}
