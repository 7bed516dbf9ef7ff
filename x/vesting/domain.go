package vesting

import (
	"github.com/iov-one/ferry"
	"github.com/iov-one/ferry/codec"
	"github.com/iov-one/ferry/errors"
	"github.com/iov-one/ferry/gconf"
	"github.com/iov-one/ferry/x"
	"github.com/iov-one/ferry/x/accounts"
	"github.com/iov-one/ferry/x/checks"
	"github.com/iov-one/ferry/x/weight"
	"github.com/iov-one/ferry/x/xcm"
)

const (
	// DomainName identifies vesting schedules in batches and checks.
	DomainName  = "vesting"
	packageName = "vesting"
)

// ScheduleWeight is the cost of migrating the schedules of one account.
var ScheduleWeight = weight.New(12000, 700)

// Configuration of the vesting migration.
type Configuration struct {
	MaxSchedules uint32 `json:"max_schedules"`
}

// DefaultConfiguration is used when no configuration was stored.
func DefaultConfiguration() Configuration {
	return Configuration{MaxSchedules: 28}
}

// SaveConfiguration validates and stores the configuration.
func SaveConfiguration(db ferry.KVStore, c Configuration) error {
	return gconf.Save(db, packageName, &c)
}

func (c *Configuration) Marshal() ([]byte, error) {
	return codec.Marshal(c)
}

func (c *Configuration) Unmarshal(raw []byte) error {
	return codec.Unmarshal(raw, c)
}

func (c *Configuration) Validate() error {
	if c.MaxSchedules < 2 {
		return errors.Field("MaxSchedules", errors.ErrInput, "at least two schedules are required for merging")
	}
	return nil
}

// LoadConfiguration returns the stored configuration or the default one.
func LoadConfiguration(db ferry.ReadOnlyKVStore) (Configuration, error) {
	var c Configuration
	err := gconf.LoadOr(db, packageName, &c, func() { c = DefaultConfiguration() })
	return c, err
}

// Domain migrates vesting schedules.
type Domain struct {
	bucket     Bucket
	translator accounts.Translator
}

var _ x.Domain = (*Domain)(nil)

// NewDomain returns the vesting domain.
func NewDomain(translator accounts.Translator) *Domain {
	return &Domain{bucket: NewBucket(), translator: translator}
}

func (*Domain) Name() string {
	return DomainName
}

// Migrate removes all schedules from the origin chain and sends them.
func (d *Domain) Migrate(ctx ferry.Context, db ferry.KVStore, cursor []byte, meter *weight.Meter, out x.Sender) ([]byte, bool, error) {
	return x.MigrateBucket(ctx, db, d.bucket.Bucket(), cursor, DomainName, out, func(key []byte) ([]byte, error) {
		if err := meter.TryConsume(ScheduleWeight.Add(xcm.ItemWeight)); err != nil {
			return nil, err
		}
		var v Vesting
		if err := d.bucket.One(db, key, &v); err != nil {
			return nil, err
		}
		if err := d.bucket.Delete(db, key); err != nil {
			return nil, err
		}
		return v.Marshal()
	})
}

// Integrate appends received schedules to the schedules of the translated
// account.
func (d *Domain) Integrate(ctx ferry.Context, db ferry.KVStore, items [][]byte) error {
	conf, err := LoadConfiguration(db)
	if err != nil {
		return errors.Wrap(errors.ErrIntegration, err.Error())
	}
	height, _ := ferry.GetHeight(ctx)
	log := ferry.GetLogger(ctx).With("module", DomainName)

	var good, bad int
	for i, raw := range items {
		var v Vesting
		if err := v.Unmarshal(raw); err != nil {
			return errors.Wrapf(errors.ErrIntegration, "item %d: %s", i, err)
		}
		if err := d.integrate(db, &conf, &v, height); err != nil {
			bad++
			log.Error("cannot integrate vesting", "who", v.Who, "err", err)
			continue
		}
		good++
	}
	log.Info("batch processed", "good", good, "bad", bad)
	return nil
}

func (d *Domain) integrate(db ferry.KVStore, conf *Configuration, v *Vesting, height int64) error {
	who := d.translator.Translate(v.Who)
	existing, err := d.bucket.Get(db, who)
	if err != nil {
		return err
	}
	if existing == nil {
		existing = &Vesting{Who: who}
	}
	all := append(existing.Schedules, v.Schedules...)
	limit := int(conf.MaxSchedules)
	if len(all) <= limit {
		existing.Schedules = all
		return d.bucket.Put(db, who, existing)
	}
	// Make room for every truncated schedule by merging the last two.
	bounded := append([]Schedule(nil), all[:limit]...)
	for _, t := range all[limit:] {
		n := len(bounded)
		merged, ok := Merge(bounded[n-2], bounded[n-1], height)
		bounded = bounded[:n-2]
		if ok {
			bounded = append(bounded, merged)
		}
		bounded = append(bounded, t)
	}
	existing.Schedules = bounded
	return d.bucket.Put(db, who, existing)
}

type snapshot struct {
	locked map[string]uint64
}

// PreCheck records the locked amount per destination account.
func (d *Domain) PreCheck(oc, dc ferry.ReadOnlyKVStore) (checks.Payload, error) {
	s := snapshot{locked: make(map[string]uint64)}
	if err := d.sum(oc, s.locked); err != nil {
		return nil, err
	}
	if err := d.sum(dc, s.locked); err != nil {
		return nil, err
	}
	return &s, nil
}

func (d *Domain) sum(db ferry.ReadOnlyKVStore, into map[string]uint64) error {
	it, err := d.bucket.IterateFrom(db, nil)
	if err != nil {
		return err
	}
	defer it.Release()
	for {
		var v Vesting
		_, err := it.LoadNext(&v)
		if errors.ErrIteratorDone.Is(err) {
			return nil
		}
		if err != nil {
			return err
		}
		into[string(d.translator.Translate(v.Who))] += v.Locked(0)
	}
}

// PostCheck verifies that no schedule is left on the origin chain and that
// every account kept its schedules. Merging drops the part that already
// vested, so an account may not vest more than before.
func (d *Domain) PostCheck(oc, dc ferry.ReadOnlyKVStore, p checks.Payload) error {
	s, ok := p.(*snapshot)
	if !ok {
		return errors.Wrapf(errors.ErrType, "payload %T", p)
	}
	var errs error
	left := make(map[string]uint64)
	if err := d.sum(oc, left); err != nil {
		return err
	}
	if len(left) != 0 {
		errs = errors.Append(errs, errors.Wrapf(errors.ErrState, "%d vesting accounts left on origin", len(left)))
	}
	got := make(map[string]uint64)
	if err := d.sum(dc, got); err != nil {
		return err
	}
	for who, want := range s.locked {
		if got[who] > want {
			errs = errors.Append(errs, errors.Wrapf(errors.ErrState, "account %X vests %d, more than %d", who, got[who], want))
		}
		if got[who] == 0 && want != 0 {
			errs = errors.Append(errs, errors.Wrapf(errors.ErrState, "account %X lost its schedules", who))
		}
	}
	return errs
}
