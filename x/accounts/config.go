package accounts

import (
	"github.com/iov-one/ferry"
	"github.com/iov-one/ferry/codec"
	"github.com/iov-one/ferry/errors"
	"github.com/iov-one/ferry/gconf"
)

const packageName = "accounts"

// ReasonMapping renames a hold or freeze reason of the origin chain to its
// destination chain name.
type ReasonMapping struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Configuration of the balance migration. The same configuration is stored
// on both chains.
type Configuration struct {
	// OriginDeposit is the minimum balance of an account on the origin
	// chain.
	OriginDeposit uint64 `json:"origin_deposit"`
	// DestinationDeposit is the minimum balance of an account on the
	// destination chain. Free balance below it is dusted on arrival.
	DestinationDeposit uint64 `json:"destination_deposit"`
	// OriginExclusiveHolds lists hold reasons that only exist on the
	// origin chain. Accounts with such holds are not migrated.
	OriginExclusiveHolds []string `json:"origin_exclusive_holds"`
	// HoldReasons and FreezeReasons rename reasons on integration.
	// Reasons without a mapping keep their name.
	HoldReasons   []ReasonMapping `json:"hold_reasons"`
	FreezeReasons []ReasonMapping `json:"freeze_reasons"`
}

// DefaultConfiguration is used when no configuration was stored.
func DefaultConfiguration() Configuration {
	return Configuration{
		OriginDeposit:        100,
		DestinationDeposit:   10,
		OriginExclusiveHolds: []string{"staking", "parachain_deposit"},
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
	if c.OriginDeposit == 0 {
		errs = errors.AppendField(errs, "OriginDeposit", errors.ErrEmpty)
	}
	if c.DestinationDeposit == 0 {
		errs = errors.AppendField(errs, "DestinationDeposit", errors.ErrEmpty)
	}
	for _, r := range c.OriginExclusiveHolds {
		if r == "" {
			errs = errors.AppendField(errs, "OriginExclusiveHolds", errors.ErrEmpty)
		}
	}
	errs = errors.AppendField(errs, "HoldReasons", validMappings(c.HoldReasons))
	errs = errors.AppendField(errs, "FreezeReasons", validMappings(c.FreezeReasons))
	return errs
}

func validMappings(ms []ReasonMapping) error {
	seen := make(map[string]struct{}, len(ms))
	for _, m := range ms {
		if m.From == "" || m.To == "" {
			return errors.Wrap(errors.ErrEmpty, "reason")
		}
		if _, ok := seen[m.From]; ok {
			return errors.Wrapf(errors.ErrDuplicate, "reason %q", m.From)
		}
		seen[m.From] = struct{}{}
	}
	return nil
}

// IsOriginExclusive returns true for hold reasons that must stay on the
// origin chain.
func (c *Configuration) IsOriginExclusive(reason string) bool {
	for _, r := range c.OriginExclusiveHolds {
		if r == reason {
			return true
		}
	}
	return false
}

// HoldReason returns the destination name of a hold reason.
func (c *Configuration) HoldReason(reason string) string {
	return mapReason(c.HoldReasons, reason)
}

// FreezeReason returns the destination name of a freeze reason.
func (c *Configuration) FreezeReason(reason string) string {
	return mapReason(c.FreezeReasons, reason)
}

func mapReason(ms []ReasonMapping, reason string) string {
	for _, m := range ms {
		if m.From == reason {
			return m.To
		}
	}
	return reason
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
