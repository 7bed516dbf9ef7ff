/*
Package origin implements the migration coordinator of the origin chain.

The coordinator is a ticker that advances the migration by at most one stage
per block. It waits for the scheduled block, exchanges the start signal with
the destination chain, runs every domain migrator in order within the weight
budget of a block and finally signals the end of the migration. Operators
control the process with the messages declared in this package.
*/
package origin

import (
	"github.com/iov-one/ferry"
	"github.com/iov-one/ferry/codec"
	"github.com/iov-one/ferry/errors"
	"github.com/iov-one/ferry/gconf"
	"github.com/iov-one/ferry/orm"
	"github.com/iov-one/ferry/x/weight"
)

const packageName = "origin"

// Configuration of the coordinator.
type Configuration struct {
	// Admin is the governance account allowed to run every privileged
	// operation. It may be empty, leaving those to root only.
	Admin ferry.Address `json:"admin"`
	// EpochLength and EraLength are the lengths, in blocks, of the
	// election cycles the schedule must not disrupt.
	EpochLength int64 `json:"epoch_length"`
	EraLength   int64 `json:"era_length"`
	// BlockWeight is the budget of a single block for migrating records.
	BlockWeight weight.Weight `json:"block_weight"`
}

// DefaultConfiguration is used when no configuration was stored.
func DefaultConfiguration() Configuration {
	return Configuration{
		EpochLength: 600,
		EraLength:   3600,
		BlockWeight: weight.New(2000000, 100000),
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
	if len(c.Admin) != 0 {
		errs = errors.AppendField(errs, "Admin", c.Admin.Validate())
	}
	if c.EpochLength <= 0 {
		errs = errors.AppendField(errs, "EpochLength", errors.ErrInput)
	}
	if c.EraLength < c.EpochLength {
		errs = errors.AppendField(errs, "EraLength", errors.ErrInput)
	}
	if c.BlockWeight.IsZero() {
		errs = errors.AppendField(errs, "BlockWeight", errors.ErrEmpty)
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

// State is the persisted migration state of the origin chain.
type State struct {
	Stage Stage `json:"stage"`
	// ResumePoint is the stage that was current when the migration was
	// paused.
	ResumePoint *Stage       `json:"resume_point,omitempty"`
	WarmUp      DispatchTime `json:"warm_up"`
	CoolOff     DispatchTime `json:"cool_off"`

	Manager   ferry.Address `json:"manager,omitempty"`
	Canceller ferry.Address `json:"canceller,omitempty"`

	StartBlock int64 `json:"start_block,omitempty"`
	EndBlock   int64 `json:"end_block,omitempty"`

	// ElectionsPaused is set while the migration requires the election
	// process to stay idle.
	ElectionsPaused bool `json:"elections_paused,omitempty"`
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
	if s.ResumePoint != nil {
		if s.Stage.Kind != StagePaused {
			errs = errors.AppendField(errs, "ResumePoint", errors.ErrState)
		} else {
			errs = errors.AppendField(errs, "ResumePoint", s.ResumePoint.Validate())
		}
	}
	errs = errors.AppendField(errs, "WarmUp", s.WarmUp.Validate())
	errs = errors.AppendField(errs, "CoolOff", s.CoolOff.Validate())
	if len(s.Manager) != 0 {
		errs = errors.AppendField(errs, "Manager", s.Manager.Validate())
	}
	if len(s.Canceller) != 0 {
		errs = errors.AppendField(errs, "Canceller", s.Canceller.Validate())
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
	return StateBucket{ModelBucket: orm.NewModelBucket("origin")}
}

// Load returns the stored state, or a pending one if nothing was stored.
func (b StateBucket) Load(db ferry.ReadOnlyKVStore) (*State, error) {
	var s State
	switch err := b.One(db, stateKey, &s); {
	case err == nil:
		return &s, nil
	case errors.ErrNotFound.Is(err):
		return &State{Stage: Pending()}, nil
	default:
		return nil, err
	}
}

// Save stores the state.
func (b StateBucket) Save(db ferry.KVStore, s *State) error {
	return b.Put(db, stateKey, s)
}

// CurrentStage returns the stage stored in db.
func CurrentStage(db ferry.ReadOnlyKVStore) (Stage, error) {
	s, err := NewStateBucket().Load(db)
	if err != nil {
		return Stage{}, err
	}
	return s.Stage, nil
}
