package preimage

import (
	"github.com/iov-one/ferry"
	"github.com/iov-one/ferry/codec"
	"github.com/iov-one/ferry/errors"
	"github.com/iov-one/ferry/gconf"
)

const packageName = "preimage"

// Configuration of the preimage migration.
type Configuration struct {
	// ChunkSize is the maximum number of preimage bytes in one chunk. It
	// must leave room for the envelope within the batch size limit.
	ChunkSize uint32 `json:"chunk_size"`
	// MaxChunksPerBlock limits the chunks produced in a single block.
	MaxChunksPerBlock uint32 `json:"max_chunks_per_block"`
}

// DefaultConfiguration is used when no configuration was stored.
func DefaultConfiguration() Configuration {
	return Configuration{
		ChunkSize:         49 * 1024,
		MaxChunksPerBlock: 10,
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
	if c.ChunkSize == 0 {
		errs = errors.AppendField(errs, "ChunkSize", errors.ErrEmpty)
	}
	if c.MaxChunksPerBlock == 0 {
		errs = errors.AppendField(errs, "MaxChunksPerBlock", errors.ErrEmpty)
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
