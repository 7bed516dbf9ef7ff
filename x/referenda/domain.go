package referenda

import (
	"github.com/iov-one/ferry"
	"github.com/iov-one/ferry/codec"
	"github.com/iov-one/ferry/errors"
	"github.com/iov-one/ferry/x"
	"github.com/iov-one/ferry/x/accounts"
	"github.com/iov-one/ferry/x/checks"
	"github.com/iov-one/ferry/x/govremap"
	"github.com/iov-one/ferry/x/preimage"
	"github.com/iov-one/ferry/x/weight"
	"github.com/iov-one/ferry/x/xcm"
)

// DomainName identifies referenda in batches and checks.
const DomainName = "referenda"

// ReferendumWeight is the cost of migrating a single referendum.
var ReferendumWeight = weight.New(18000, 900)

// item is a single record of a referenda batch. The first batch starts
// with the referendum counter, all others carry referenda only.
type item struct {
	Count      uint32
	Referendum *Referendum
}

func (i *item) Marshal() ([]byte, error) {
	return codec.Marshal(i)
}

func (i *item) Unmarshal(raw []byte) error {
	return codec.Unmarshal(raw, i)
}

// Domain migrates referenda.
type Domain struct {
	bucket     Bucket
	preimages  preimage.Store
	translator accounts.Translator
}

var _ x.Domain = (*Domain)(nil)

// NewDomain returns the referenda domain.
func NewDomain(translator accounts.Translator) *Domain {
	return &Domain{
		bucket:     NewBucket(),
		preimages:  preimage.NewStore(),
		translator: translator,
	}
}

func (*Domain) Name() string {
	return DomainName
}

// Migrate sends the referendum counter and then every referendum in index
// order.
func (d *Domain) Migrate(ctx ferry.Context, db ferry.KVStore, cursor []byte, meter *weight.Meter, out x.Sender) ([]byte, bool, error) {
	if cursor == nil {
		if err := d.migrateCount(ctx, db, meter, out); err != nil {
			if errors.ErrOutOfWeight.Is(err) {
				return nil, false, nil
			}
			return nil, false, err
		}
	}
	return x.MigrateBucket(ctx, db, d.bucket.Bucket(), cursor, DomainName, out, func(key []byte) ([]byte, error) {
		if err := meter.TryConsume(ReferendumWeight.Add(xcm.ItemWeight)); err != nil {
			return nil, err
		}
		var r Referendum
		if err := d.bucket.One(db, key, &r); err != nil {
			return nil, err
		}
		if err := d.bucket.Delete(db, key); err != nil {
			return nil, err
		}
		return (&item{Referendum: &r}).Marshal()
	})
}

func (d *Domain) migrateCount(ctx ferry.Context, db ferry.KVStore, meter *weight.Meter, out x.Sender) error {
	n, err := d.bucket.Count(db)
	if err != nil || n == 0 {
		return err
	}
	if err := meter.TryConsume(xcm.ItemWeight); err != nil {
		return err
	}
	raw, err := (&item{Count: n}).Marshal()
	if err != nil {
		return err
	}
	if err := db.Delete(d.bucket.count); err != nil {
		return err
	}
	return out.SendChunked(ctx, db, DomainName, [][]byte{raw})
}

// Integrate stores received referenda. Ongoing proposals are remapped and
// a referendum whose proposal cannot be remapped is cancelled.
func (d *Domain) Integrate(ctx ferry.Context, db ferry.KVStore, items [][]byte) error {
	mapper, err := govremap.LoadMapper(db)
	if err != nil {
		return errors.Wrap(errors.ErrIntegration, err.Error())
	}
	height, _ := ferry.GetHeight(ctx)
	log := ferry.GetLogger(ctx).With("module", DomainName)

	var good, bad, cancelled int
	for i, raw := range items {
		var it item
		if err := it.Unmarshal(raw); err != nil {
			return errors.Wrapf(errors.ErrIntegration, "item %d: %s", i, err)
		}
		if it.Referendum == nil {
			if err := d.integrateCount(db, it.Count); err != nil {
				return errors.Wrapf(errors.ErrIntegration, "count: %s", err)
			}
			continue
		}
		r := it.Referendum
		switch ok, err := d.integrate(db, mapper, r, height); {
		case err != nil:
			bad++
			log.Error("cannot integrate referendum", "index", r.Index, "err", err)
		case !ok:
			cancelled++
			log.Error("referendum cancelled", "index", r.Index)
		default:
			good++
		}
	}
	log.Info("batch processed", "good", good, "cancelled", cancelled, "bad", bad)
	return nil
}

func (d *Domain) integrateCount(db ferry.KVStore, n uint32) error {
	have, err := d.bucket.Count(db)
	if err != nil {
		return err
	}
	if n > have {
		return d.bucket.SetCount(db, n)
	}
	return nil
}

// integrate returns false if the referendum had to be cancelled.
func (d *Domain) integrate(db ferry.KVStore, mapper *govremap.Mapper, r *Referendum, height int64) (bool, error) {
	if existing, err := d.bucket.Get(db, r.Index); err != nil {
		return false, err
	} else if existing != nil {
		return false, errors.Wrapf(errors.ErrDuplicate, "referendum %d", r.Index)
	}
	for _, dep := range []*Deposit{r.SubmissionDeposit, r.DecisionDeposit} {
		if dep != nil {
			dep.Who = d.translator.Translate(dep.Who)
		}
	}
	ok := true
	if r.Status == StatusOngoing {
		proposal, err := mapper.MapBounded(db, d.preimages, r.Proposal)
		if err != nil {
			r.Cancel(height)
			ok = false
		} else {
			r.Proposal = proposal
		}
	}
	return ok, d.bucket.Save(db, r)
}

type snapshot struct {
	statuses map[uint32]Status
	ocCount  uint32
	dcCount  uint32
}

// PreCheck records the status of every origin referendum and both
// counters.
func (d *Domain) PreCheck(oc, dc ferry.ReadOnlyKVStore) (checks.Payload, error) {
	s := snapshot{statuses: make(map[uint32]Status)}
	err := d.each(oc, func(r *Referendum) error {
		s.statuses[r.Index] = r.Status
		return nil
	})
	if err != nil {
		return nil, err
	}
	if s.ocCount, err = d.bucket.Count(oc); err != nil {
		return nil, err
	}
	if s.dcCount, err = d.bucket.Count(dc); err != nil {
		return nil, err
	}
	return &s, nil
}

// PostCheck verifies that every referendum arrived with its status, or
// cancelled if it was ongoing, and that the counter did not go back.
func (d *Domain) PostCheck(oc, dc ferry.ReadOnlyKVStore, p checks.Payload) error {
	s, ok := p.(*snapshot)
	if !ok {
		return errors.Wrapf(errors.ErrType, "payload %T", p)
	}
	var errs error
	var left int
	if err := d.each(oc, func(*Referendum) error { left++; return nil }); err != nil {
		return err
	}
	if left != 0 {
		errs = errors.Append(errs, errors.Wrapf(errors.ErrState, "%d referenda left on origin", left))
	}
	if n, err := d.bucket.Count(oc); err != nil {
		return err
	} else if n != 0 {
		errs = errors.Append(errs, errors.Wrap(errors.ErrState, "referendum count left on origin"))
	}

	count, err := d.bucket.Count(dc)
	if err != nil {
		return err
	}
	if count < s.ocCount || count < s.dcCount {
		errs = errors.Append(errs, errors.Wrapf(errors.ErrState, "referendum count %d went back", count))
	}
	for index, want := range s.statuses {
		r, err := d.bucket.Get(dc, index)
		if err != nil {
			return err
		}
		switch {
		case r == nil:
			errs = errors.Append(errs, errors.Wrapf(errors.ErrState, "referendum %d missing", index))
		case r.Status == want:
		case want == StatusOngoing && r.Status == StatusCancelled:
		default:
			errs = errors.Append(errs, errors.Wrapf(errors.ErrState, "referendum %d is %s, was %s", index, r.Status, want))
		}
	}
	return errs
}

func (d *Domain) each(db ferry.ReadOnlyKVStore, fn func(*Referendum) error) error {
	it, err := d.bucket.IterateFrom(db, nil)
	if err != nil {
		return err
	}
	defer it.Release()
	for {
		var r Referendum
		_, err := it.LoadNext(&r)
		if errors.ErrIteratorDone.Is(err) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(&r); err != nil {
			return err
		}
	}
}
