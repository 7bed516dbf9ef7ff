/*
Package destination implements the migration receiver of the destination
chain.

The receiver is a ticker consuming the inbound queue. It acknowledges the
start signal, integrates every batch in its own cache wrap and reports the
outcome of each batch back to the origin chain. The migration is done once
the finish signal was received and no batch is left to integrate.
*/
package destination

import (
	"encoding/json"

	"github.com/iov-one/ferry"
	"github.com/iov-one/ferry/codec"
	"github.com/iov-one/ferry/errors"
	"github.com/iov-one/ferry/gconf"
	"github.com/iov-one/ferry/orm"
)

const packageName = "destination"

// StageKind is the step of the migration on the destination chain.
type StageKind int32

const (
	StageInvalid StageKind = iota
	StagePending
	StageDataMigrationOngoing
	StageDone
)

var stageNames = map[StageKind]string{
	StagePending:              "pending",
	StageDataMigrationOngoing: "data_migration_ongoing",
	StageDone:                 "done",
}

func (k StageKind) String() string {
	if n, ok := stageNames[k]; ok {
		return n
	}
	return "invalid"
}

func (k StageKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

func (k *StageKind) UnmarshalJSON(raw []byte) error {
	var name string
	if err := json.Unmarshal(raw, &name); err != nil {
		return errors.Wrap(errors.ErrInput, err.Error())
	}
	for kind, n := range stageNames {
		if n == name {
			*k = kind
			return nil
		}
	}
	return errors.Wrapf(errors.ErrInput, "unknown stage %q", name)
}

func (k StageKind) Validate() error {
	if _, ok := stageNames[k]; !ok {
		return errors.Wrapf(errors.ErrInput, "stage %d", k)
	}
	return nil
}

// Configuration of the receiver.
type Configuration struct {
	Admin ferry.Address `json:"admin"`
	// MaxBatchesPerBlock bounds the number of batches integrated in a
	// single block. The rest stays in the inbox for the next blocks.
	MaxBatchesPerBlock uint32 `json:"max_batches_per_block"`
}

// DefaultConfiguration is used when no configuration was stored.
func DefaultConfiguration() Configuration {
	return Configuration{MaxBatchesPerBlock: 20}
}

func (c *Configuration) Marshal() ([]byte, error) {
	return codec.Marshal(c)
}

func (c *Configuration) Unmarshal(raw []byte) error {
	return codec.Unmarshal(raw, c)
}

func (c *Configuration) Validate() error {
	var errs error
	if len(c.Admin) != 0 {
		errs = errors.AppendField(errs, "Admin", c.Admin.Validate())
	}
	if c.MaxBatchesPerBlock == 0 {
		errs = errors.AppendField(errs, "MaxBatchesPerBlock", errors.ErrEmpty)
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

// State is the persisted migration state of the destination chain.
type State struct {
	Stage   StageKind     `json:"stage"`
	Manager ferry.Address `json:"manager,omitempty"`
	// FinishReceived is set once the origin chain signalled that it sent
	// everything.
	FinishReceived bool  `json:"finish_received,omitempty"`
	StartBlock     int64 `json:"start_block,omitempty"`
	EndBlock       int64 `json:"end_block,omitempty"`
	// Integrated and Rejected count the batches by outcome.
	Integrated uint64 `json:"integrated,omitempty"`
	Rejected   uint64 `json:"rejected,omitempty"`
}

var _ orm.Model = (*State)(nil)

func (s *State) Marshal() ([]byte, error) {
	return codec.Marshal(s)
}

func (s *State) Unmarshal(raw []byte) error {
	return codec.Unmarshal(raw, s)
}

func (s *State) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Stage", s.Stage.Validate())
	if len(s.Manager) != 0 {
		errs = errors.AppendField(errs, "Manager", s.Manager.Validate())
	}
	if s.EndBlock != 0 && s.EndBlock < s.StartBlock {
		errs = errors.AppendField(errs, "EndBlock", errors.ErrInput)
	}
	return errs
}

// StateBucket keeps the single State record.
type StateBucket struct {
	orm.ModelBucket
}

var stateKey = []byte("state")

// NewStateBucket returns the state storage.
func NewStateBucket() StateBucket {
	return StateBucket{ModelBucket: orm.NewModelBucket("destination")}
}

// Load returns the stored state, or a pending one if nothing was stored.
func (b StateBucket) Load(db ferry.ReadOnlyKVStore) (*State, error) {
	var s State
	switch err := b.One(db, stateKey, &s); {
	case err == nil:
		return &s, nil
	case errors.ErrNotFound.Is(err):
		return &State{Stage: StagePending}, nil
	default:
		return nil, err
	}
}

// Save stores the state.
func (b StateBucket) Save(db ferry.KVStore, s *State) error {
	return b.Put(db, stateKey, s)
}

// CurrentStage returns the stage stored in db.
func CurrentStage(db ferry.ReadOnlyKVStore) (StageKind, error) {
	s, err := NewStateBucket().Load(db)
	if err != nil {
		return StageInvalid, err
	}
	return s.Stage, nil
}
