package destination

import (
	"github.com/iov-one/ferry"
	"github.com/iov-one/ferry/codec"
	"github.com/iov-one/ferry/errors"
)

const (
	pathForceSetStageMsg = "destination/force_set_stage"
	pathSetManagerMsg    = "destination/set_manager"
)

func init() {
	codec.RegisterMsg(&ForceSetStageMsg{}, pathForceSetStageMsg)
	codec.RegisterMsg(&SetManagerMsg{}, pathSetManagerMsg)
}

// ForceSetStageMsg overwrites the stage of the receiver.
type ForceSetStageMsg struct {
	Stage StageKind
}

var _ ferry.Msg = (*ForceSetStageMsg)(nil)

func (ForceSetStageMsg) Path() string {
	return pathForceSetStageMsg
}

func (m *ForceSetStageMsg) Validate() error {
	return errors.AppendField(nil, "Stage", m.Stage.Validate())
}

func (m *ForceSetStageMsg) Marshal() ([]byte, error) {
	return codec.Marshal(m)
}

func (m *ForceSetStageMsg) Unmarshal(raw []byte) error {
	return codec.Unmarshal(raw, m)
}

// SetManagerMsg designates the manager account. An empty Who removes it.
type SetManagerMsg struct {
	Who ferry.Address
}

var _ ferry.Msg = (*SetManagerMsg)(nil)

func (SetManagerMsg) Path() string {
	return pathSetManagerMsg
}

func (m *SetManagerMsg) Validate() error {
	if len(m.Who) == 0 {
		return nil
	}
	return errors.AppendField(nil, "Who", m.Who.Validate())
}

func (m *SetManagerMsg) Marshal() ([]byte, error) {
	return codec.Marshal(m)
}

func (m *SetManagerMsg) Unmarshal(raw []byte) error {
	return codec.Unmarshal(raw, m)
}
