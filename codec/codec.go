/*
Package codec provides the binary encoding of all persisted models,
cross-chain envelopes and transactions.

Every type is encoded with go-amino. Messages travel inside transactions as
the ferry.Msg interface, so each message type must be registered with
RegisterMsg, usually from the init function of the extension declaring it.
*/
package codec

import (
	"reflect"

	"github.com/iov-one/ferry"
	"github.com/iov-one/ferry/errors"
	amino "github.com/tendermint/go-amino"
)

var cdc = amino.NewCodec()

func init() {
	cdc.RegisterInterface((*ferry.Msg)(nil), nil)
}

// RegisterMsg registers a concrete message type under a unique name. msg
// must be a pointer.
func RegisterMsg(msg ferry.Msg, name string) {
	cdc.RegisterConcrete(msg, name, nil)
}

// Amino returns the codec shared by all packages.
func Amino() *amino.Codec {
	return cdc
}

// Marshal serializes the given value.
func Marshal(o interface{}) ([]byte, error) {
	bz, err := cdc.MarshalBinaryBare(o)
	if err != nil {
		return nil, errors.Wrap(errors.ErrModel, err.Error())
	}
	return bz, nil
}

// MustMarshal is like Marshal but panics on error. Only use it for values
// that were built by the caller.
func MustMarshal(o interface{}) []byte {
	bz, err := Marshal(o)
	if err != nil {
		panic(err)
	}
	return bz
}

// Unmarshal decodes raw into ptr. An empty input resets ptr to its zero
// value, as this is how an empty structure is serialized.
func Unmarshal(raw []byte, ptr interface{}) error {
	if len(raw) == 0 {
		v := reflect.ValueOf(ptr)
		if v.Kind() != reflect.Ptr || v.IsNil() {
			return errors.Wrap(errors.ErrType, "destination must be a non nil pointer")
		}
		v.Elem().Set(reflect.Zero(v.Elem().Type()))
		return nil
	}
	if err := cdc.UnmarshalBinaryBare(raw, ptr); err != nil {
		return errors.Wrap(errors.ErrModel, err.Error())
	}
	return nil
}
