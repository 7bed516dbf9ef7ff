package accounts

import (
	"github.com/iov-one/ferry"
	"github.com/iov-one/ferry/errors"
	"github.com/iov-one/ferry/x"
	"github.com/iov-one/ferry/x/checks"
	"github.com/iov-one/ferry/x/weight"
	"github.com/iov-one/ferry/x/xcm"
)

// DomainName identifies the balances in batches and checks.
const DomainName = "accounts"

// Domain migrates all account balances.
type Domain struct {
	*Transform
}

var _ x.Domain = (*Domain)(nil)

// NewDomain returns the balances domain.
func NewDomain(translator Translator) *Domain {
	return &Domain{Transform: NewTransform(translator)}
}

func (*Domain) Name() string {
	return DomainName
}

// Migrate withdraws accounts in address order.
func (d *Domain) Migrate(ctx ferry.Context, db ferry.KVStore, cursor []byte, meter *weight.Meter, out x.Sender) ([]byte, bool, error) {
	return x.MigrateBucket(ctx, db, d.bucket.accounts.Bucket(), cursor, DomainName, out, func(key []byte) ([]byte, error) {
		rec, err := d.Withdraw(ctx, db, key, meter, xcm.ItemWeight)
		if err != nil || rec == nil {
			return nil, err
		}
		return rec.Marshal()
	})
}

// Integrate recreates all accounts of a batch.
func (d *Domain) Integrate(ctx ferry.Context, db ferry.KVStore, items [][]byte) error {
	for i, raw := range items {
		var rec WithdrawnAccount
		if err := rec.Unmarshal(raw); err != nil {
			return errors.Wrapf(errors.ErrIntegration, "item %d: %s", i, err)
		}
		if err := d.Transform.Integrate(ctx, db, &rec); err != nil {
			return errors.Wrapf(err, "item %d", i)
		}
	}
	return nil
}

type refs struct {
	consumers uint32
	providers uint32
}

type snapshot struct {
	ocSum    uint64
	dcSum    uint64
	dcDust   uint64
	ocRefs   map[string]refs
	dcRefs   map[string]refs
	ocIssued uint64
}

// PreCheck records the balance totals of both chains and the references of
// all referenced origin accounts.
func (d *Domain) PreCheck(oc, dc ferry.ReadOnlyKVStore) (checks.Payload, error) {
	var (
		s   = snapshot{ocRefs: make(map[string]refs), dcRefs: make(map[string]refs)}
		err error
	)
	if s.ocSum, err = d.bucket.Sum(oc); err != nil {
		return nil, err
	}
	if s.ocIssued, err = d.bucket.Issuance(oc); err != nil {
		return nil, err
	}
	if s.ocSum != s.ocIssued {
		return nil, errors.Wrapf(errors.ErrState, "origin balances %d do not match issuance %d", s.ocSum, s.ocIssued)
	}
	if s.dcSum, err = d.bucket.Sum(dc); err != nil {
		return nil, err
	}
	if s.dcDust, err = d.bucket.Dust(dc); err != nil {
		return nil, err
	}

	err = d.eachAccount(oc, func(who ferry.Address, acc *Account) error {
		if !acc.HasReferences() {
			return nil
		}
		s.ocRefs[string(who)] = refs{acc.Consumers, acc.Providers}
		to := d.translator.Translate(who)
		dcAcc, err := d.bucket.Get(dc, to)
		if err != nil {
			return err
		}
		if dcAcc != nil {
			s.dcRefs[string(to)] = refs{dcAcc.Consumers, dcAcc.Providers}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// PostCheck verifies that no balance was created or lost, except for the
// dust, and that every referenced account either stayed on the origin chain
// or carried its references to the destination chain.
func (d *Domain) PostCheck(oc, dc ferry.ReadOnlyKVStore, p checks.Payload) error {
	s, ok := p.(*snapshot)
	if !ok {
		return errors.Wrapf(errors.ErrType, "payload %T", p)
	}
	ocSum, err := d.bucket.Sum(oc)
	if err != nil {
		return err
	}
	dcSum, err := d.bucket.Sum(dc)
	if err != nil {
		return err
	}
	dust, err := d.bucket.Dust(dc)
	if err != nil {
		return err
	}

	var errs error
	before := s.ocSum + s.dcSum
	after := ocSum + dcSum + (dust - s.dcDust)
	if before != after {
		errs = errors.Append(errs, errors.Wrapf(errors.ErrState,
			"balance not conserved: %d before, %d after", before, after))
	}
	if issued, err := d.bucket.Issuance(dc); err != nil {
		return err
	} else if issued != dcSum {
		errs = errors.Append(errs, errors.Wrapf(errors.ErrState,
			"destination balances %d do not match issuance %d", dcSum, issued))
	}

	for key, want := range s.ocRefs {
		who := ferry.Address(key)
		acc, err := d.bucket.Get(oc, who)
		if err != nil {
			return err
		}
		if acc != nil {
			if acc.Consumers != want.consumers || acc.Providers != want.providers {
				errs = errors.Append(errs, errors.Wrapf(errors.ErrState, "references of %s changed", who))
			}
			continue
		}
		to := d.translator.Translate(who)
		dcAcc, err := d.bucket.Get(dc, to)
		if err != nil {
			return err
		}
		prev := s.dcRefs[string(to)]
		if dcAcc == nil ||
			dcAcc.Consumers < prev.consumers+want.consumers ||
			dcAcc.Providers < prev.providers+want.providers {
			errs = errors.Append(errs, errors.Wrapf(errors.ErrState, "references of %s were dropped", who))
		}
	}

	conf, err := LoadConfiguration(dc)
	if err != nil {
		return err
	}
	err = d.eachAccount(dc, func(who ferry.Address, acc *Account) error {
		if acc.Free < conf.DestinationDeposit && acc.Providers == 0 {
			errs = errors.Append(errs, errors.Wrapf(errors.ErrState, "account %s exists without a provider", who))
		}
		return nil
	})
	if err != nil {
		return err
	}
	return errs
}

func (d *Domain) eachAccount(db ferry.ReadOnlyKVStore, fn func(ferry.Address, *Account) error) error {
	it, err := d.bucket.Iterate(db, nil)
	if err != nil {
		return err
	}
	defer it.Release()
	for {
		var acc Account
		key, err := it.LoadNext(&acc)
		if errors.ErrIteratorDone.Is(err) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(ferry.Address(key), &acc); err != nil {
			return err
		}
	}
}
