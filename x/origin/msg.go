package origin

import (
	"github.com/iov-one/ferry"
	"github.com/iov-one/ferry/codec"
	"github.com/iov-one/ferry/errors"
)

const (
	pathScheduleMigrationMsg  = "origin/schedule_migration"
	pathPauseMigrationMsg     = "origin/pause_migration"
	pathResumeMigrationMsg    = "origin/resume_migration"
	pathCancelMigrationMsg    = "origin/cancel_migration"
	pathForceSetStageMsg      = "origin/force_set_stage"
	pathSetManagerMsg         = "origin/set_manager"
	pathSetCancellerMsg       = "origin/set_canceller"
	pathPreserveAccountsMsg   = "origin/preserve_accounts"
	pathResendXCMMsg          = "origin/resend_xcm"
	pathStartDataMigrationMsg = "origin/start_data_migration"
)

func init() {
	codec.RegisterMsg(&ScheduleMigrationMsg{}, pathScheduleMigrationMsg)
	codec.RegisterMsg(&PauseMigrationMsg{}, pathPauseMigrationMsg)
	codec.RegisterMsg(&ResumeMigrationMsg{}, pathResumeMigrationMsg)
	codec.RegisterMsg(&CancelMigrationMsg{}, pathCancelMigrationMsg)
	codec.RegisterMsg(&ForceSetStageMsg{}, pathForceSetStageMsg)
	codec.RegisterMsg(&SetManagerMsg{}, pathSetManagerMsg)
	codec.RegisterMsg(&SetCancellerMsg{}, pathSetCancellerMsg)
	codec.RegisterMsg(&PreserveAccountsMsg{}, pathPreserveAccountsMsg)
	codec.RegisterMsg(&ResendXCMMsg{}, pathResendXCMMsg)
	codec.RegisterMsg(&StartDataMigrationMsg{}, pathStartDataMigrationMsg)
}

// ScheduleMigrationMsg schedules the migration to start at the Start
// block. The warm up and cool off periods are evaluated when their stage is
// entered.
type ScheduleMigrationMsg struct {
	Start       int64
	WarmUp      DispatchTime
	CoolOff     DispatchTime
	IgnoreGuard bool
}

var _ ferry.Msg = (*ScheduleMigrationMsg)(nil)

func (ScheduleMigrationMsg) Path() string {
	return pathScheduleMigrationMsg
}

func (m *ScheduleMigrationMsg) Validate() error {
	var errs error
	if m.Start <= 0 {
		errs = errors.AppendField(errs, "Start", errors.ErrInput)
	}
	errs = errors.AppendField(errs, "WarmUp", m.WarmUp.Validate())
	if m.WarmUp.At != 0 && m.WarmUp.At <= m.Start {
		errs = errors.AppendField(errs, "WarmUp", errors.Wrap(errors.ErrInput, "warm up must end after the start"))
	}
	errs = errors.AppendField(errs, "CoolOff", m.CoolOff.Validate())
	return errs
}

func (m *ScheduleMigrationMsg) Marshal() ([]byte, error) {
	return codec.Marshal(m)
}

func (m *ScheduleMigrationMsg) Unmarshal(raw []byte) error {
	return codec.Unmarshal(raw, m)
}

// PauseMigrationMsg suspends the migration keeping its position.
type PauseMigrationMsg struct{}

var _ ferry.Msg = (*PauseMigrationMsg)(nil)

func (PauseMigrationMsg) Path() string                  { return pathPauseMigrationMsg }
func (*PauseMigrationMsg) Validate() error              { return nil }
func (m *PauseMigrationMsg) Marshal() ([]byte, error)   { return codec.Marshal(m) }
func (m *PauseMigrationMsg) Unmarshal(raw []byte) error { return codec.Unmarshal(raw, m) }

// ResumeMigrationMsg continues a paused migration where it stopped.
type ResumeMigrationMsg struct{}

var _ ferry.Msg = (*ResumeMigrationMsg)(nil)

func (ResumeMigrationMsg) Path() string                  { return pathResumeMigrationMsg }
func (*ResumeMigrationMsg) Validate() error              { return nil }
func (m *ResumeMigrationMsg) Marshal() ([]byte, error)   { return codec.Marshal(m) }
func (m *ResumeMigrationMsg) Unmarshal(raw []byte) error { return codec.Unmarshal(raw, m) }

// CancelMigrationMsg drops a schedule that did not start yet.
type CancelMigrationMsg struct{}

var _ ferry.Msg = (*CancelMigrationMsg)(nil)

func (CancelMigrationMsg) Path() string                  { return pathCancelMigrationMsg }
func (*CancelMigrationMsg) Validate() error              { return nil }
func (m *CancelMigrationMsg) Marshal() ([]byte, error)   { return codec.Marshal(m) }
func (m *CancelMigrationMsg) Unmarshal(raw []byte) error { return codec.Unmarshal(raw, m) }

// ForceSetStageMsg overwrites the stage without any transition check.
type ForceSetStageMsg struct {
	Stage Stage
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

// SetCancellerMsg designates the canceller account. An empty Who removes
// it.
type SetCancellerMsg struct {
	Who ferry.Address
}

var _ ferry.Msg = (*SetCancellerMsg)(nil)

func (SetCancellerMsg) Path() string {
	return pathSetCancellerMsg
}

func (m *SetCancellerMsg) Validate() error {
	if len(m.Who) == 0 {
		return nil
	}
	return errors.AppendField(nil, "Who", m.Who.Validate())
}

func (m *SetCancellerMsg) Marshal() ([]byte, error) {
	return codec.Marshal(m)
}

func (m *SetCancellerMsg) Unmarshal(raw []byte) error {
	return codec.Unmarshal(raw, m)
}

// PreserveAccountsMsg keeps the listed accounts on the origin chain.
type PreserveAccountsMsg struct {
	Accounts []ferry.Address
}

var _ ferry.Msg = (*PreserveAccountsMsg)(nil)

func (PreserveAccountsMsg) Path() string {
	return pathPreserveAccountsMsg
}

func (m *PreserveAccountsMsg) Validate() error {
	if len(m.Accounts) == 0 {
		return errors.Field("Accounts", errors.ErrEmpty, "required")
	}
	for _, a := range m.Accounts {
		if err := a.Validate(); err != nil {
			return errors.Field("Accounts", err, "invalid account")
		}
	}
	return nil
}

func (m *PreserveAccountsMsg) Marshal() ([]byte, error) {
	return codec.Marshal(m)
}

func (m *PreserveAccountsMsg) Unmarshal(raw []byte) error {
	return codec.Unmarshal(raw, m)
}

// ResendXCMMsg sends again the batch of a query.
type ResendXCMMsg struct {
	QueryID uint64
}

var _ ferry.Msg = (*ResendXCMMsg)(nil)

func (ResendXCMMsg) Path() string                  { return pathResendXCMMsg }
func (*ResendXCMMsg) Validate() error              { return nil }
func (m *ResendXCMMsg) Marshal() ([]byte, error)   { return codec.Marshal(m) }
func (m *ResendXCMMsg) Unmarshal(raw []byte) error { return codec.Unmarshal(raw, m) }

// StartDataMigrationMsg marks the destination chain as ready to receive
// data.
type StartDataMigrationMsg struct{}

var _ ferry.Msg = (*StartDataMigrationMsg)(nil)

func (StartDataMigrationMsg) Path() string                  { return pathStartDataMigrationMsg }
func (*StartDataMigrationMsg) Validate() error              { return nil }
func (m *StartDataMigrationMsg) Marshal() ([]byte, error)   { return codec.Marshal(m) }
func (m *StartDataMigrationMsg) Unmarshal(raw []byte) error { return codec.Unmarshal(raw, m) }
