package ferry

import (
	"reflect"

	"github.com/iov-one/ferry/errors"
)

// Marshaller is a value with a binary form.
type Marshaller interface {
	Marshal() ([]byte, error)
}

// Persistent is a value that can be written and read back. Unmarshal
// usually needs a pointer receiver.
type Persistent interface {
	Marshaller
	Unmarshal([]byte) error
}

// Msg requests a state change, like scheduling a migration or resending a
// batch. It carries no authentication, which lives in the wrapping Tx.
type Msg interface {
	Persistent

	// Path routes the message to its handler. It matches
	// [0-9A-Za-z_\-/]+ and is shared by all messages of one type.
	Path() string

	// Validate checks the message without reading the state.
	Validate() error
}

// Tx is what a client submits: a message and whatever the decorators need to
// authorize it.
type Tx interface {
	Persistent
	GetMsg() (Msg, error)
}

// TxDecoder reads a transaction from its binary form.
type TxDecoder func(raw []byte) (Tx, error)

// GetPath returns the path of the message of tx, or "(missing)".
func GetPath(tx Tx) string {
	if msg, err := tx.GetMsg(); err == nil && msg != nil {
		return msg.Path()
	}
	return "(missing)"
}

// LoadMsg copies the message of tx into dst, which must be a non nil pointer
// to the message type, and validates it.
func LoadMsg(tx Tx, dst interface{}) error {
	msg, err := tx.GetMsg()
	if err != nil {
		return errors.Wrap(err, "transaction message")
	}
	out := reflect.ValueOf(dst)
	if out.Kind() != reflect.Ptr || out.IsNil() {
		return errors.Wrapf(errors.ErrType, "destination %T", dst)
	}
	in := reflect.Indirect(reflect.ValueOf(msg))
	if in.Type() != out.Elem().Type() {
		return errors.Wrapf(errors.ErrType, "%s message loaded into %T", msg.Path(), dst)
	}
	out.Elem().Set(in)
	return errors.Wrap(msg.Validate(), "message")
}
