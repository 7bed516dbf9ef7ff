package xcm

import (
	"github.com/iov-one/ferry"
	"github.com/iov-one/ferry/codec"
	"github.com/iov-one/ferry/errors"
	"github.com/iov-one/ferry/gconf"
)

const packageName = "xcm"

// Configuration limits the size of the sent envelopes.
type Configuration struct {
	// MaxBatchItems is the maximum number of records in a single batch.
	MaxBatchItems uint32 `json:"max_batch_items"`
	// MaxBatchBytes is the maximum total size of the records in a single
	// batch. A record bigger than the limit is sent alone.
	MaxBatchBytes uint32 `json:"max_batch_bytes"`
	// MaxPendingMessages is the number of unacknowledged batches after
	// which the origin chain stops producing new ones.
	MaxPendingMessages uint32 `json:"max_pending_messages"`
}

// DefaultConfiguration is used when no configuration was stored.
func DefaultConfiguration() Configuration {
	return Configuration{
		MaxBatchItems:      100,
		MaxBatchBytes:      50 * 1024,
		MaxPendingMessages: 50,
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
	if c.MaxBatchItems == 0 {
		errs = errors.AppendField(errs, "MaxBatchItems", errors.ErrEmpty)
	}
	if c.MaxBatchBytes == 0 {
		errs = errors.AppendField(errs, "MaxBatchBytes", errors.ErrEmpty)
	}
	if c.MaxPendingMessages == 0 {
		errs = errors.AppendField(errs, "MaxPendingMessages", errors.ErrEmpty)
	}
	return errs
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

// Initializer stores the configuration found in the genesis file.
type Initializer struct{}

var _ ferry.Initializer = (*Initializer)(nil)

// FromGenesis reads the "xcm" section of the genesis configuration. A
// missing section keeps the defaults.
func (*Initializer) FromGenesis(opts ferry.Options, db ferry.KVStore) error {
	c := DefaultConfiguration()
	err := gconf.InitConfig(db, opts, packageName, &c)
	if errors.ErrNotFound.Is(err) {
		return nil
	}
	return err
}
