package proxy

import (
	"github.com/iov-one/ferry"
	"github.com/iov-one/ferry/codec"
	"github.com/iov-one/ferry/errors"
	"github.com/iov-one/ferry/gconf"
)

const packageName = "proxy"

// KindMapping renames a proxy kind of the origin chain.
type KindMapping struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Configuration of the proxy migration.
type Configuration struct {
	// Kinds lists all kinds known on the destination chain. Kinds
	// without a mapping are dropped.
	Kinds []KindMapping `json:"kinds"`
	// FreeKinds are kept by pure proxy accounts on the origin chain
	// without a deposit.
	FreeKinds []string `json:"free_kinds"`
	// MaxProxies limits the size of a proxy set on the destination chain.
	MaxProxies uint32 `json:"max_proxies"`
	// DelayRatio converts a delay in origin blocks to destination blocks.
	DelayRatio ferry.Fraction `json:"delay_ratio"`
}

// DefaultConfiguration is used when no configuration was stored.
func DefaultConfiguration() Configuration {
	return Configuration{
		Kinds: []KindMapping{
			{From: "any", To: "any"},
			{From: "non_transfer", To: "non_transfer"},
			{From: "governance", To: "governance"},
			{From: "staking", To: "staking"},
			{From: "cancel_proxy", To: "cancel_proxy"},
			{From: "nomination_pools", To: "nomination_pools"},
		},
		FreeKinds:  []string{"any", "non_transfer", "cancel_proxy"},
		MaxProxies: 32,
		DelayRatio: ferry.One,
	}
}

func (c *Configuration) Marshal() ([]byte, error) {
	return codec.Marshal(c)
}

func (c *Configuration) Unmarshal(raw []byte) error {
	return codec.Unmarshal(raw, c)
}

func (c *Configuration) Validate() error {
	var errs error
	seen := make(map[string]struct{}, len(c.Kinds))
	for _, k := range c.Kinds {
		if k.From == "" || k.To == "" {
			errs = errors.AppendField(errs, "Kinds", errors.ErrEmpty)
			break
		}
		if _, ok := seen[k.From]; ok {
			errs = errors.AppendField(errs, "Kinds", errors.Wrapf(errors.ErrDuplicate, "kind %q", k.From))
			break
		}
		seen[k.From] = struct{}{}
	}
	if c.MaxProxies == 0 {
		errs = errors.AppendField(errs, "MaxProxies", errors.ErrEmpty)
	}
	errs = errors.AppendField(errs, "DelayRatio", c.DelayRatio.Validate())
	return errs
}

// MapKind returns the destination kind or false if the kind is not known
// on the destination chain.
func (c *Configuration) MapKind(kind string) (string, bool) {
	for _, k := range c.Kinds {
		if k.From == kind {
			return k.To, true
		}
	}
	return "", false
}

// IsFree returns true for kinds kept by pure proxies on the origin chain.
func (c *Configuration) IsFree(kind string) bool {
	for _, k := range c.FreeKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// LoadConfiguration returns the stored configuration or the default one.
func LoadConfiguration(db ferry.ReadOnlyKVStore) (Configuration, error) {
	var c Configuration
	err := gconf.LoadOr(db, packageName, &c, func() { c = DefaultConfiguration() })
	return c, err
}

// SaveConfiguration validates and stores the configuration.
func SaveConfiguration(db ferry.KVStore, c Configuration) error {
	return gconf.Save(db, packageName, &c)
}
