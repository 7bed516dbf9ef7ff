/*
Package referenda migrates the referenda of the origin chain.

Finished referenda are copied as they are. The proposal of an ongoing
referendum is an encoded call of the origin chain; it is remapped onto the
destination chain using the govremap table and the preimages migrated before.
A referendum whose proposal cannot be remapped is cancelled on arrival,
keeping its deposits so they can be refunded.
*/
package referenda

import (
	"encoding/binary"
	"encoding/json"

	"github.com/iov-one/ferry"
	"github.com/iov-one/ferry/codec"
	"github.com/iov-one/ferry/errors"
	"github.com/iov-one/ferry/orm"
	"github.com/iov-one/ferry/x/govremap"
)

// Status of a referendum.
type Status int32

const (
	StatusInvalid Status = iota
	StatusOngoing
	StatusApproved
	StatusRejected
	StatusCancelled
	StatusTimedOut
	StatusKilled
)

var statusNames = map[Status]string{
	StatusOngoing:   "ongoing",
	StatusApproved:  "approved",
	StatusRejected:  "rejected",
	StatusCancelled: "cancelled",
	StatusTimedOut:  "timed_out",
	StatusKilled:    "killed",
}

func (s Status) String() string {
	if n, ok := statusNames[s]; ok {
		return n
	}
	return "invalid"
}

// MarshalJSON writes the status name.
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON reads the status name.
func (s *Status) UnmarshalJSON(raw []byte) error {
	var name string
	if err := json.Unmarshal(raw, &name); err != nil {
		return errors.Wrapf(errors.ErrInput, "status %s", raw)
	}
	for st, n := range statusNames {
		if n == name {
			*s = st
			return nil
		}
	}
	return errors.Wrapf(errors.ErrInput, "unknown status %q", name)
}

// Enactment tells when an approved proposal is dispatched: at an absolute
// block or a number of blocks after approval.
type Enactment struct {
	At    int64 `json:"at,omitempty"`
	After int64 `json:"after,omitempty"`
}

func (e Enactment) Validate() error {
	if e.At < 0 || e.After < 0 || (e.At != 0 && e.After != 0) {
		return errors.Wrap(errors.ErrInput, "enactment")
	}
	return nil
}

// Deposit is an amount reserved from an account.
type Deposit struct {
	Who    ferry.Address `json:"who"`
	Amount uint64        `json:"amount"`
}

// Referendum is a single referendum. Proposal, Track, Enactment and
// Submitted are kept for ongoing referenda only; finished ones carry the
// block they ended at.
type Referendum struct {
	Index             uint32           `json:"index"`
	Status            Status           `json:"status"`
	Track             uint32           `json:"track,omitempty"`
	Proposal          govremap.Bounded `json:"proposal,omitempty"`
	Enactment         Enactment        `json:"enactment,omitempty"`
	Submitted         int64            `json:"submitted,omitempty"`
	Ended             int64            `json:"ended,omitempty"`
	SubmissionDeposit *Deposit         `json:"submission_deposit,omitempty"`
	DecisionDeposit   *Deposit         `json:"decision_deposit,omitempty"`
	Metadata          []byte           `json:"metadata,omitempty"`
}

var _ orm.Model = (*Referendum)(nil)

func (r *Referendum) Marshal() ([]byte, error) {
	return codec.Marshal(r)
}

func (r *Referendum) Unmarshal(raw []byte) error {
	return codec.Unmarshal(raw, r)
}

func (r *Referendum) Validate() error {
	var errs error
	if _, ok := statusNames[r.Status]; !ok {
		errs = errors.AppendField(errs, "Status", errors.ErrInput)
	}
	if r.Status == StatusOngoing {
		errs = errors.AppendField(errs, "Proposal", r.Proposal.Validate())
		errs = errors.AppendField(errs, "Enactment", r.Enactment.Validate())
		if r.Submitted < 0 {
			errs = errors.AppendField(errs, "Submitted", errors.ErrInput)
		}
	}
	for name, d := range map[string]*Deposit{
		"SubmissionDeposit": r.SubmissionDeposit,
		"DecisionDeposit":   r.DecisionDeposit,
	} {
		if d != nil {
			errs = errors.AppendField(errs, name, d.Who.Validate())
		}
	}
	if len(r.Metadata) != 0 && len(r.Metadata) != 32 {
		errs = errors.AppendField(errs, "Metadata", errors.ErrInput)
	}
	return errs
}

// Cancel turns the referendum into a cancelled one at given block.
func (r *Referendum) Cancel(height int64) {
	r.Status = StatusCancelled
	r.Ended = height
	r.Proposal = govremap.Bounded{}
	r.Enactment = Enactment{}
	r.Track = 0
	r.Submitted = 0
}

// Bucket stores referenda by index and keeps the referendum counter.
type Bucket struct {
	orm.ModelBucket
	count []byte
}

// NewBucket returns the referenda storage.
func NewBucket() Bucket {
	return Bucket{
		ModelBucket: orm.NewModelBucket("referendum"),
		count:       []byte("_referenda:count"),
	}
}

func indexKey(index uint32) []byte {
	k := make([]byte, 4)
	binary.BigEndian.PutUint32(k, index)
	return k
}

// Get returns the referendum with given index or nil.
func (b Bucket) Get(db ferry.ReadOnlyKVStore, index uint32) (*Referendum, error) {
	var r Referendum
	switch err := b.One(db, indexKey(index), &r); {
	case err == nil:
		return &r, nil
	case errors.ErrNotFound.Is(err):
		return nil, nil
	default:
		return nil, err
	}
}

// Save stores the referendum and makes sure the counter is past its index.
func (b Bucket) Save(db ferry.KVStore, r *Referendum) error {
	if err := b.Put(db, indexKey(r.Index), r); err != nil {
		return err
	}
	n, err := b.Count(db)
	if err != nil {
		return err
	}
	if r.Index >= n {
		return b.SetCount(db, r.Index+1)
	}
	return nil
}

// Count returns the number of referenda ever submitted, which is also the
// next free index.
func (b Bucket) Count(db ferry.ReadOnlyKVStore) (uint32, error) {
	raw, err := db.Get(b.count)
	if err != nil || raw == nil {
		return 0, err
	}
	if len(raw) != 4 {
		return 0, errors.Wrap(errors.ErrState, "referendum count")
	}
	return binary.BigEndian.Uint32(raw), nil
}

// SetCount overwrites the referendum counter.
func (b Bucket) SetCount(db ferry.KVStore, n uint32) error {
	return db.Set(b.count, indexKey(n))
}
