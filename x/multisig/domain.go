package multisig

import (
	"github.com/iov-one/ferry"
	"github.com/iov-one/ferry/errors"
	"github.com/iov-one/ferry/x"
	"github.com/iov-one/ferry/x/accounts"
	"github.com/iov-one/ferry/x/checks"
	"github.com/iov-one/ferry/x/weight"
	"github.com/iov-one/ferry/x/xcm"
)

// DomainName identifies multisig operations in batches and checks.
const DomainName = "multisig"

// OperationWeight is the cost of migrating a single operation.
var OperationWeight = weight.New(10000, 600)

// Domain migrates pending multisig operations.
type Domain struct {
	bucket     Bucket
	accounts   accounts.Bucket
	translator accounts.Translator
}

var _ x.Domain = (*Domain)(nil)

// NewDomain returns the multisig domain.
func NewDomain(translator accounts.Translator) *Domain {
	return &Domain{
		bucket:     NewBucket(),
		accounts:   accounts.NewBucket(),
		translator: translator,
	}
}

func (*Domain) Name() string {
	return DomainName
}

// Migrate removes pending operations. The deposit is returned on the
// origin chain when the creator was not migrated, otherwise the operation
// is sent so that the destination chain returns it.
func (d *Domain) Migrate(ctx ferry.Context, db ferry.KVStore, cursor []byte, meter *weight.Meter, out x.Sender) ([]byte, bool, error) {
	log := ferry.GetLogger(ctx).With("module", DomainName)
	return x.MigrateBucket(ctx, db, d.bucket.Bucket(), cursor, DomainName, out, func(key []byte) ([]byte, error) {
		if err := meter.TryConsume(OperationWeight.Add(xcm.ItemWeight)); err != nil {
			return nil, err
		}
		var m Multisig
		if err := d.bucket.One(db, key, &m); err != nil {
			return nil, err
		}
		if err := d.bucket.Delete(db, key); err != nil {
			return nil, err
		}
		creator, err := d.accounts.Get(db, m.Creator)
		if err != nil {
			return nil, err
		}
		if creator != nil {
			n, err := d.accounts.Unreserve(db, m.Creator, m.Deposit)
			if err != nil {
				return nil, err
			}
			if n != m.Deposit {
				log.Error("deposit partially returned", "creator", m.Creator, "missing", m.Deposit-n)
			}
			return nil, nil
		}
		rec := Record{Creator: m.Creator, Deposit: m.Deposit}
		return rec.Marshal()
	})
}

// Integrate returns the deposits of a batch. A deposit that cannot be
// returned in full does not fail the batch.
func (d *Domain) Integrate(ctx ferry.Context, db ferry.KVStore, items [][]byte) error {
	log := ferry.GetLogger(ctx).With("module", DomainName)
	var good, bad int
	for i, raw := range items {
		var rec Record
		if err := rec.Unmarshal(raw); err != nil {
			return errors.Wrapf(errors.ErrIntegration, "item %d: %s", i, err)
		}
		creator := d.translator.Translate(rec.Creator)
		n, err := d.accounts.Unreserve(db, creator, rec.Deposit)
		if err != nil {
			return errors.Wrapf(errors.ErrIntegration, "item %d: %s", i, err)
		}
		if n != rec.Deposit {
			bad++
			log.Error("cannot unreserve deposit", "creator", creator, "missing", rec.Deposit-n)
			continue
		}
		good++
	}
	log.Info("batch processed", "good", good, "bad", bad)
	return nil
}

type snapshot struct {
	creators []ferry.Address
	dcCount  int
}

// PreCheck records the creators of all operations.
func (d *Domain) PreCheck(oc, dc ferry.ReadOnlyKVStore) (checks.Payload, error) {
	var s snapshot
	it, err := d.bucket.IterateFrom(oc, nil)
	if err != nil {
		return nil, err
	}
	defer it.Release()
	for {
		var m Multisig
		_, err := it.LoadNext(&m)
		if errors.ErrIteratorDone.Is(err) {
			break
		}
		if err != nil {
			return nil, err
		}
		s.creators = append(s.creators, m.Creator)
	}
	if s.dcCount, err = d.bucket.Count(dc); err != nil {
		return nil, err
	}
	return &s, nil
}

// PostCheck verifies that no operation is left on the origin chain, none was
// created on the destination chain and every creator still exists on one of
// the chains.
func (d *Domain) PostCheck(oc, dc ferry.ReadOnlyKVStore, p checks.Payload) error {
	s, ok := p.(*snapshot)
	if !ok {
		return errors.Wrapf(errors.ErrType, "payload %T", p)
	}
	var errs error
	if n, err := d.bucket.Count(oc); err != nil {
		return err
	} else if n != 0 {
		errs = errors.Append(errs, errors.Wrapf(errors.ErrState, "%d operations left on origin", n))
	}
	if n, err := d.bucket.Count(dc); err != nil {
		return err
	} else if n != s.dcCount {
		errs = errors.Append(errs, errors.Wrapf(errors.ErrState, "destination operations changed from %d to %d", s.dcCount, n))
	}
	for _, c := range s.creators {
		if acc, err := d.accounts.Get(oc, c); err != nil {
			return err
		} else if acc != nil {
			continue
		}
		to := d.translator.Translate(c)
		if acc, err := d.accounts.Get(dc, to); err != nil {
			return err
		} else if acc == nil {
			errs = errors.Append(errs, errors.Wrapf(errors.ErrState, "creator %s disappeared", to))
		}
	}
	return errs
}
