package proxy

import (
	"github.com/iov-one/ferry"
	"github.com/iov-one/ferry/errors"
	"github.com/iov-one/ferry/x"
	"github.com/iov-one/ferry/x/accounts"
	"github.com/iov-one/ferry/x/checks"
	"github.com/iov-one/ferry/x/weight"
	"github.com/iov-one/ferry/x/xcm"
)

const (
	// DomainName identifies proxy sets in batches and checks.
	DomainName = "proxy"
	// AnnouncementsDomainName identifies proxy announcements.
	AnnouncementsDomainName = "proxy_announcements"
)

// ProxyWeight is the cost of migrating a single proxy set or announcement.
var ProxyWeight = weight.New(15000, 800)

// Domain migrates proxy sets.
type Domain struct {
	buckets    Buckets
	accounts   accounts.Bucket
	translator accounts.Translator
}

var _ x.Domain = (*Domain)(nil)

// NewDomain returns the proxy sets domain.
func NewDomain(translator accounts.Translator) *Domain {
	return &Domain{
		buckets:    NewBuckets(),
		accounts:   accounts.NewBucket(),
		translator: translator,
	}
}

func (*Domain) Name() string {
	return DomainName
}

// Migrate removes proxy sets from the origin chain and sends them. Pure
// proxy accounts keep their free proxies on the origin chain.
func (d *Domain) Migrate(ctx ferry.Context, db ferry.KVStore, cursor []byte, meter *weight.Meter, out x.Sender) ([]byte, bool, error) {
	conf, err := LoadConfiguration(db)
	if err != nil {
		return nil, false, err
	}
	log := ferry.GetLogger(ctx).With("module", DomainName)
	return x.MigrateBucket(ctx, db, d.buckets.Proxies.Bucket(), cursor, DomainName, out, func(key []byte) ([]byte, error) {
		if err := meter.TryConsume(ProxyWeight.Add(xcm.ItemWeight)); err != nil {
			return nil, err
		}
		var set ProxySet
		if err := d.buckets.Proxies.One(db, key, &set); err != nil {
			return nil, err
		}
		pure, err := d.buckets.IsPure(db, set.Delegator)
		if err != nil {
			return nil, err
		}
		var free []Definition
		if pure {
			for _, p := range set.Proxies {
				if conf.IsFree(p.Kind) {
					free = append(free, p)
				}
			}
		}
		if len(free) > 0 {
			kept := ProxySet{Delegator: set.Delegator, Proxies: free}
			if err := d.buckets.Proxies.Put(db, key, &kept); err != nil {
				return nil, err
			}
		} else {
			if pure {
				log.Info("pure proxy loses access on origin", "account", set.Delegator)
			}
			if err := d.buckets.Proxies.Delete(db, key); err != nil {
				return nil, err
			}
		}
		return set.Marshal()
	})
}

// Integrate stores the proxy sets of a batch. Sets that cannot be stored
// are logged and skipped.
func (d *Domain) Integrate(ctx ferry.Context, db ferry.KVStore, items [][]byte) error {
	conf, err := LoadConfiguration(db)
	if err != nil {
		return errors.Wrap(errors.ErrIntegration, err.Error())
	}
	log := ferry.GetLogger(ctx).With("module", DomainName)
	var good, bad int
	for i, raw := range items {
		var set ProxySet
		if err := set.Unmarshal(raw); err != nil {
			return errors.Wrapf(errors.ErrIntegration, "item %d: %s", i, err)
		}
		if err := d.integrate(ctx, db, &conf, &set); err != nil {
			bad++
			log.Error("cannot integrate proxy set", "delegator", set.Delegator, "err", err)
			continue
		}
		good++
	}
	log.Info("batch processed", "good", good, "bad", bad)
	return nil
}

func (d *Domain) integrate(ctx ferry.Context, db ferry.KVStore, conf *Configuration, set *ProxySet) error {
	log := ferry.GetLogger(ctx).With("module", DomainName)
	delegator := d.translator.Translate(set.Delegator)
	mapped, err := d.mapProxies(conf, set)
	if err != nil {
		return err
	}
	for _, p := range set.Proxies {
		if _, ok := conf.MapKind(p.Kind); !ok {
			log.Info("dropping unsupported proxy kind", "kind", p.Kind, "delegator", delegator)
		}
	}
	if len(mapped) == 0 {
		// Nothing left to pay for.
		n, err := d.accounts.Unreserve(db, delegator, set.Deposit)
		if err != nil {
			return err
		}
		if n != set.Deposit {
			log.Error("cannot unreserve proxy deposit", "delegator", delegator, "missing", set.Deposit-n)
		}
		return nil
	}

	existing, err := d.buckets.GetProxies(db, delegator)
	if err != nil {
		return err
	}
	if existing == nil {
		existing = &ProxySet{Delegator: delegator}
	}
	for _, p := range mapped {
		if !existing.Has(p.Delegate, p.Kind) {
			existing.Proxies = append(existing.Proxies, p)
		}
	}
	if limit := int(conf.MaxProxies); len(existing.Proxies) > limit {
		log.Error("truncating proxy list", "delegator", delegator, "len", len(existing.Proxies))
		existing.Proxies = existing.Proxies[:limit]
	}
	existing.Deposit += set.Deposit
	return d.buckets.Proxies.Put(db, delegator, existing)
}

// mapProxies returns the proxies of the set as they are stored on the
// destination chain. Unknown kinds are left out.
func (d *Domain) mapProxies(conf *Configuration, set *ProxySet) ([]Definition, error) {
	var mapped []Definition
	for _, p := range set.Proxies {
		kind, ok := conf.MapKind(p.Kind)
		if !ok {
			continue
		}
		delay, err := conf.DelayRatio.Scale(uint64(p.Delay))
		if err != nil {
			return nil, err
		}
		if delay > uint64(^uint32(0)) {
			return nil, errors.Wrap(errors.ErrOverflow, "delay")
		}
		mapped = append(mapped, Definition{
			Delegate: d.translator.Translate(p.Delegate),
			Kind:     kind,
			Delay:    uint32(delay),
		})
	}
	return mapped, nil
}

type expected struct {
	delegator ferry.Address
	proxies   []Definition
}

type snapshot struct {
	sets []expected
}

// PreCheck records every proxy expected on the destination chain.
func (d *Domain) PreCheck(oc, dc ferry.ReadOnlyKVStore) (checks.Payload, error) {
	conf, err := LoadConfiguration(dc)
	if err != nil {
		return nil, err
	}
	it, err := d.buckets.Proxies.IterateFrom(oc, nil)
	if err != nil {
		return nil, err
	}
	defer it.Release()

	var s snapshot
	for {
		var set ProxySet
		_, err := it.LoadNext(&set)
		if errors.ErrIteratorDone.Is(err) {
			return &s, nil
		}
		if err != nil {
			return nil, err
		}
		mapped, err := d.mapProxies(&conf, &set)
		if err != nil {
			return nil, err
		}
		if len(mapped) > int(conf.MaxProxies) {
			mapped = mapped[:conf.MaxProxies]
		}
		s.sets = append(s.sets, expected{
			delegator: d.translator.Translate(set.Delegator),
			proxies:   mapped,
		})
	}
}

// PostCheck verifies that every supported proxy arrived and only free
// proxies without a deposit remain on the origin chain.
func (d *Domain) PostCheck(oc, dc ferry.ReadOnlyKVStore, p checks.Payload) error {
	s, ok := p.(*snapshot)
	if !ok {
		return errors.Wrapf(errors.ErrType, "payload %T", p)
	}
	conf, err := LoadConfiguration(oc)
	if err != nil {
		return err
	}
	dcConf, err := LoadConfiguration(dc)
	if err != nil {
		return err
	}

	var errs error
	it, err := d.buckets.Proxies.IterateFrom(oc, nil)
	if err != nil {
		return err
	}
	defer it.Release()
	for {
		var set ProxySet
		_, err := it.LoadNext(&set)
		if errors.ErrIteratorDone.Is(err) {
			break
		}
		if err != nil {
			return err
		}
		if set.Deposit != 0 {
			errs = errors.Append(errs, errors.Wrapf(errors.ErrState, "proxy deposit left on origin for %s", set.Delegator))
		}
		for _, p := range set.Proxies {
			if !conf.IsFree(p.Kind) {
				errs = errors.Append(errs, errors.Wrapf(errors.ErrState, "proxy %q left on origin for %s", p.Kind, set.Delegator))
			}
		}
	}

	for _, e := range s.sets {
		if len(e.proxies) == 0 {
			continue
		}
		got, err := d.buckets.GetProxies(dc, e.delegator)
		if err != nil {
			return err
		}
		if got == nil {
			errs = errors.Append(errs, errors.Wrapf(errors.ErrState, "proxies of %s missing", e.delegator))
			continue
		}
		for _, p := range e.proxies {
			if !got.Has(p.Delegate, p.Kind) && len(got.Proxies) < int(dcConf.MaxProxies) {
				errs = errors.Append(errs, errors.Wrapf(errors.ErrState, "proxy %q of %s missing", p.Kind, e.delegator))
			}
		}
	}
	return errs
}

// AnnouncementsDomain migrates proxy announcements. Only their deposits
// are returned on the destination chain.
type AnnouncementsDomain struct {
	buckets    Buckets
	accounts   accounts.Bucket
	translator accounts.Translator
}

var _ x.Domain = (*AnnouncementsDomain)(nil)

// NewAnnouncementsDomain returns the proxy announcements domain.
func NewAnnouncementsDomain(translator accounts.Translator) *AnnouncementsDomain {
	return &AnnouncementsDomain{
		buckets:    NewBuckets(),
		accounts:   accounts.NewBucket(),
		translator: translator,
	}
}

func (*AnnouncementsDomain) Name() string {
	return AnnouncementsDomainName
}

func (d *AnnouncementsDomain) Migrate(ctx ferry.Context, db ferry.KVStore, cursor []byte, meter *weight.Meter, out x.Sender) ([]byte, bool, error) {
	return x.MigrateBucket(ctx, db, d.buckets.Announcements.Bucket(), cursor, AnnouncementsDomainName, out, func(key []byte) ([]byte, error) {
		if err := meter.TryConsume(ProxyWeight.Add(xcm.ItemWeight)); err != nil {
			return nil, err
		}
		var a Announcement
		if err := d.buckets.Announcements.One(db, key, &a); err != nil {
			return nil, err
		}
		if err := d.buckets.Announcements.Delete(db, key); err != nil {
			return nil, err
		}
		rec := AnnouncementRecord{Depositor: a.Depositor, Deposit: a.Deposit}
		return rec.Marshal()
	})
}

func (d *AnnouncementsDomain) Integrate(ctx ferry.Context, db ferry.KVStore, items [][]byte) error {
	log := ferry.GetLogger(ctx).With("module", AnnouncementsDomainName)
	for i, raw := range items {
		var rec AnnouncementRecord
		if err := rec.Unmarshal(raw); err != nil {
			return errors.Wrapf(errors.ErrIntegration, "item %d: %s", i, err)
		}
		who := d.translator.Translate(rec.Depositor)
		n, err := d.accounts.Unreserve(db, who, rec.Deposit)
		if err != nil {
			return errors.Wrapf(errors.ErrIntegration, "item %d: %s", i, err)
		}
		if n != rec.Deposit {
			log.Error("cannot unreserve announcement deposit", "depositor", who, "missing", rec.Deposit-n)
		}
	}
	return nil
}

func (d *AnnouncementsDomain) PreCheck(oc, dc ferry.ReadOnlyKVStore) (checks.Payload, error) {
	return nil, nil
}

// PostCheck verifies that no announcement is left on the origin chain.
func (d *AnnouncementsDomain) PostCheck(oc, dc ferry.ReadOnlyKVStore, _ checks.Payload) error {
	it, err := d.buckets.Announcements.Bucket().Range(oc, nil)
	if err != nil {
		return err
	}
	defer it.Release()
	switch _, _, err := it.Next(); {
	case errors.ErrIteratorDone.Is(err):
		return nil
	case err != nil:
		return err
	default:
		return errors.Wrap(errors.ErrState, "announcements left on origin")
	}
}
