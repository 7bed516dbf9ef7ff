/*
Package xcm implements the cross-chain channel used by the migration.

Both chains exchange Envelopes. Each envelope travels inside a Delivery
record through the outbox queue of the sender and the inbox queue of the
receiver. Batches of migrated records are tracked by the sending chain until
the receiver acknowledges them with a successful Response; failed batches
stay available for a resend.
*/
package xcm

import (
	"github.com/iov-one/ferry/codec"
	"github.com/iov-one/ferry/errors"
	"golang.org/x/crypto/blake2b"
)

// Version of the envelope format. Envelopes with another version are
// rejected by the receiver.
const Version = 1

// Kind is the type of an envelope.
type Kind int32

const (
	KindInvalid Kind = iota
	// KindStart asks the destination chain to start accepting data.
	KindStart
	// KindStartAck confirms that the destination chain is ready.
	KindStartAck
	// KindBatch carries records of a single domain.
	KindBatch
	// KindResponse reports the outcome of a batch.
	KindResponse
	// KindFinish tells the destination chain that all data was sent.
	KindFinish
)

var kindNames = map[Kind]string{
	KindStart:    "start",
	KindStartAck: "start_ack",
	KindBatch:    "batch",
	KindResponse: "response",
	KindFinish:   "finish",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "invalid"
}

// Envelope is a versioned cross-chain message.
type Envelope struct {
	Version uint32
	Kind    Kind
	// Domain and Items are set for batches only.
	Domain string
	Items  [][]byte
	// QueryID is the id under which a batch was first sent, or for a
	// response the id it answers.
	QueryID uint64
	Success bool
	Error   string
}

// Marshal serializes the envelope.
func (e *Envelope) Marshal() ([]byte, error) {
	return codec.Marshal(e)
}

// Unmarshal loads the envelope from its binary form.
func (e *Envelope) Unmarshal(raw []byte) error {
	return codec.Unmarshal(raw, e)
}

// Validate checks the envelope is well formed.
func (e *Envelope) Validate() error {
	if e.Version != Version {
		return errors.Wrapf(errors.ErrInput, "unsupported version %d", e.Version)
	}
	switch e.Kind {
	case KindStart, KindStartAck, KindFinish:
		if len(e.Items) != 0 {
			return errors.Wrapf(errors.ErrInput, "%s carries items", e.Kind)
		}
	case KindBatch:
		if e.Domain == "" {
			return errors.Field("Domain", errors.ErrEmpty, "required")
		}
		if len(e.Items) == 0 {
			return errors.Field("Items", errors.ErrEmpty, "batch without items")
		}
	case KindResponse:
		if e.Success && e.Error != "" {
			return errors.Wrap(errors.ErrInput, "successful response with an error")
		}
	default:
		return errors.Wrapf(errors.ErrInput, "kind %d", e.Kind)
	}
	return nil
}

// Size returns the number of item bytes carried by the envelope.
func (e *Envelope) Size() int {
	var n int
	for _, it := range e.Items {
		n += len(it)
	}
	return n
}

// Delivery is the queue record of a single send. The payload is an encoded
// Envelope. QueryID is the id this particular send was made under, which
// differs from the envelope's id for resent batches.
type Delivery struct {
	Tracked bool
	QueryID uint64
	Payload []byte
}

// Marshal serializes the delivery.
func (d *Delivery) Marshal() ([]byte, error) {
	return codec.Marshal(d)
}

// Unmarshal loads the delivery from its binary form.
func (d *Delivery) Unmarshal(raw []byte) error {
	return codec.Unmarshal(raw, d)
}

// Envelope decodes and validates the payload.
func (d *Delivery) Envelope() (*Envelope, error) {
	var e Envelope
	if err := e.Unmarshal(d.Payload); err != nil {
		return nil, errors.Wrap(err, "envelope")
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return &e, nil
}

// Hash returns the identifier of an encoded message.
func Hash(payload []byte) []byte {
	h := blake2b.Sum256(payload)
	return h[:]
}
