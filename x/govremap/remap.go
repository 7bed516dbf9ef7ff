/*
Package govremap translates encoded governance calls of the origin chain
into calls of the destination chain.

An encoded call starts with the index of its module and the index of the
call within that module, followed by the encoded arguments. Modules are
renumbered according to the configured table and arguments are kept as
they are. Calls of modules that do not exist on the destination chain
cannot be migrated.
*/
package govremap

import (
	"fmt"

	"github.com/iov-one/ferry"
	"github.com/iov-one/ferry/codec"
	"github.com/iov-one/ferry/errors"
	"github.com/iov-one/ferry/gconf"
)

const packageName = "govremap"

// MaxInline is the longest call stored inline in a Bounded value.
const MaxInline = 128

// CallMapping renumbers a single call within a module.
type CallMapping struct {
	From uint8 `json:"from"`
	To   uint8 `json:"to"`
}

// ModuleMapping renumbers a module. When Calls is not empty only the
// listed calls can be migrated.
type ModuleMapping struct {
	Name  string        `json:"name"`
	From  uint8         `json:"from"`
	To    uint8         `json:"to"`
	Calls []CallMapping `json:"calls,omitempty"`
}

// Configuration is the call translation table.
type Configuration struct {
	Modules []ModuleMapping `json:"modules"`
}

func (c *Configuration) Marshal() ([]byte, error) {
	return codec.Marshal(c)
}

func (c *Configuration) Unmarshal(raw []byte) error {
	return codec.Unmarshal(raw, c)
}

func (c *Configuration) Validate() error {
	var seen [256]bool
	for i, m := range c.Modules {
		if seen[m.From] {
			return errors.Field(fmt.Sprintf("Modules.%d", i), errors.ErrDuplicate, "module %d mapped twice", m.From)
		}
		seen[m.From] = true

		var calls [256]bool
		for _, cm := range m.Calls {
			if calls[cm.From] {
				return errors.Field(fmt.Sprintf("Modules.%d", i), errors.ErrDuplicate, "call %d mapped twice", cm.From)
			}
			calls[cm.From] = true
		}
	}
	return nil
}

// LoadConfiguration returns the stored table. A missing table maps nothing.
func LoadConfiguration(db ferry.ReadOnlyKVStore) (Configuration, error) {
	var c Configuration
	err := gconf.LoadOr(db, packageName, &c, func() { c = Configuration{} })
	return c, err
}

// SaveConfiguration validates and stores the table.
func SaveConfiguration(db ferry.KVStore, c Configuration) error {
	return gconf.Save(db, packageName, &c)
}

// Mapper translates encoded calls.
type Mapper struct {
	modules map[uint8]ModuleMapping
}

// NewMapper returns a mapper using given table.
func NewMapper(conf Configuration) *Mapper {
	m := &Mapper{modules: make(map[uint8]ModuleMapping, len(conf.Modules))}
	for _, mm := range conf.Modules {
		m.modules[mm.From] = mm
	}
	return m
}

// LoadMapper returns a mapper using the table stored in the database.
func LoadMapper(db ferry.ReadOnlyKVStore) (*Mapper, error) {
	conf, err := LoadConfiguration(db)
	if err != nil {
		return nil, err
	}
	return NewMapper(conf), nil
}

// MapCall returns the destination chain encoding of a call.
func (m *Mapper) MapCall(encoded []byte) ([]byte, error) {
	if len(encoded) == 0 {
		return nil, errors.Wrap(errors.ErrInput, "empty call")
	}
	if len(encoded) < 2 {
		return nil, errors.Wrap(errors.ErrInput, "call without call index")
	}
	mm, ok := m.modules[encoded[0]]
	if !ok {
		return nil, errors.Wrapf(errors.ErrCallNotMigratable, "module %d", encoded[0])
	}
	call := encoded[1]
	if len(mm.Calls) > 0 {
		found := false
		for _, cm := range mm.Calls {
			if cm.From == call {
				call, found = cm.To, true
				break
			}
		}
		if !found {
			return nil, errors.Wrapf(errors.ErrCallNotMigratable, "call %d of module %q", encoded[1], mm.Name)
		}
	}
	out := make([]byte, len(encoded))
	out[0] = mm.To
	out[1] = call
	copy(out[2:], encoded[2:])
	return out, nil
}

// Initializer stores the call translation table found in the genesis file.
type Initializer struct{}

var _ ferry.Initializer = (*Initializer)(nil)

// FromGenesis reads the "govremap" configuration section. A missing section
// maps nothing.
func (*Initializer) FromGenesis(opts ferry.Options, db ferry.KVStore) error {
	var c Configuration
	err := gconf.InitConfig(db, opts, packageName, &c)
	if errors.ErrNotFound.Is(err) {
		return nil
	}
	return err
}
