package origin

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/iov-one/ferry/errors"
	"github.com/iov-one/ferry/x"
)

// StageKind is the step of the migration on the origin chain.
type StageKind int32

const (
	StageInvalid StageKind = iota
	StagePending
	StageScheduled
	StageWaitingForAck
	StageWarmUp
	StageStarting
	StageDomainInit
	StageDomainOngoing
	StageDomainDone
	StageCoolOff
	StageSignalFinish
	StageDone
	StagePaused
)

var stageNames = map[StageKind]string{
	StagePending:       "pending",
	StageScheduled:     "scheduled",
	StageWaitingForAck: "waiting_for_ack",
	StageWarmUp:        "warm_up",
	StageStarting:      "starting",
	StageDomainInit:    "domain_init",
	StageDomainOngoing: "domain_ongoing",
	StageDomainDone:    "domain_done",
	StageCoolOff:       "cool_off",
	StageSignalFinish:  "signal_finish",
	StageDone:          "done",
	StagePaused:        "paused",
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

// Stage is the persisted position of the migration. Domain is set for the
// per domain stages, Cursor for DomainOngoing only. At is the start block
// of Scheduled and the end block of WarmUp and CoolOff.
type Stage struct {
	Kind   StageKind `json:"kind"`
	Domain string    `json:"domain,omitempty"`
	Cursor []byte    `json:"cursor,omitempty"`
	At     int64     `json:"at,omitempty"`
}

// Pending is the stage every chain starts with.
func Pending() Stage {
	return Stage{Kind: StagePending}
}

func (s Stage) Validate() error {
	switch s.Kind {
	case StageDomainInit, StageDomainOngoing, StageDomainDone:
		if s.Domain == "" {
			return errors.Field("Domain", errors.ErrEmpty, "domain stage")
		}
	case StagePending, StageScheduled, StageWaitingForAck, StageWarmUp, StageStarting,
		StageCoolOff, StageSignalFinish, StageDone, StagePaused:
		if s.Domain != "" {
			return errors.Field("Domain", errors.ErrInput, "not a domain stage")
		}
	default:
		return errors.Field("Kind", errors.ErrInput, "unknown stage")
	}
	if len(s.Cursor) != 0 && s.Kind != StageDomainOngoing {
		return errors.Field("Cursor", errors.ErrInput, "only ongoing stages have a cursor")
	}
	if s.At < 0 {
		return errors.Field("At", errors.ErrInput, "negative block")
	}
	return nil
}

// IsTerminal returns true once the migration finished.
func (s Stage) IsTerminal() bool {
	return s.Kind == StageDone
}

// IsStarted returns true once the migration went past the point where it
// can be cancelled.
func (s Stage) IsStarted() bool {
	return s.Kind >= StageStarting && s.Kind <= StageDone
}

// Equals compares all fields of both stages.
func (s Stage) Equals(o Stage) bool {
	return s.Kind == o.Kind && s.Domain == o.Domain && s.At == o.At && bytes.Equal(s.Cursor, o.Cursor)
}

func (s Stage) String() string {
	switch s.Kind {
	case StageScheduled, StageWarmUp, StageCoolOff:
		return fmt.Sprintf("%s(%d)", s.Kind, s.At)
	case StageDomainInit, StageDomainDone:
		return fmt.Sprintf("%s(%s)", s.Kind, s.Domain)
	case StageDomainOngoing:
		return fmt.Sprintf("%s(%s, %X)", s.Kind, s.Domain, s.Cursor)
	}
	return s.Kind.String()
}

// Compare orders two stages along the canonical order, using the order
// of domains for the per domain stages and the cursor within a domain. A
// nil cursor sorts before any other. Paused is not part of the canonical
// order and compares as equal to everything.
func Compare(a, b Stage, domains x.Domains) int {
	if a.Kind == StagePaused || b.Kind == StagePaused {
		return 0
	}
	ra, rb := rank(a, domains), rank(b, domains)
	for i := range ra {
		switch {
		case ra[i] < rb[i]:
			return -1
		case ra[i] > rb[i]:
			return 1
		}
	}
	if a.Kind == StageDomainOngoing {
		return bytes.Compare(a.Cursor, b.Cursor)
	}
	return 0
}

func rank(s Stage, domains x.Domains) [3]int {
	switch s.Kind {
	case StageDomainInit, StageDomainOngoing, StageDomainDone:
		return [3]int{int(StageDomainInit), domains.Index(s.Domain), int(s.Kind)}
	}
	return [3]int{int(s.Kind), 0, 0}
}

// DispatchTime is a block given either absolutely or relative to the moment
// it is evaluated.
type DispatchTime struct {
	At    int64 `json:"at,omitempty"`
	After int64 `json:"after,omitempty"`
}

func (d DispatchTime) Validate() error {
	if d.At < 0 || d.After < 0 || (d.At != 0 && d.After != 0) {
		return errors.Wrap(errors.ErrInput, "dispatch time")
	}
	return nil
}

// Evaluate returns the block the dispatch time points to.
func (d DispatchTime) Evaluate(now int64) int64 {
	if d.At != 0 {
		return d.At
	}
	return now + d.After
}
