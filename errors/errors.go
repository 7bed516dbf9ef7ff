package errors

import (
	"fmt"
	"reflect"

	"github.com/pkg/errors"
)

var (
	// ErrUnauthorized is used whenever a request without sufficient
	// authorization is handled.
	ErrUnauthorized = Register(2, "unauthorized")

	// ErrNotFound is used when a requested operation cannot be completed
	// due to missing data.
	ErrNotFound = Register(3, "not found")

	// ErrMsg is returned whenever an event is invalid and cannot be
	// handled.
	ErrMsg = Register(4, "invalid message")

	// ErrModel is returned whenever a message is invalid and cannot
	// be used (ie. persisted).
	ErrModel = Register(5, "invalid model")

	// ErrDuplicate is returned when there is a record already that has the same
	// unique key/index used
	ErrDuplicate = Register(6, "duplicate")

	// ErrHuman is returned when application reaches a code path which should not
	// ever be reached if the code was written as expected by the framework
	ErrHuman = Register(7, "coding error")

	// ErrEmpty is returned when a value fails a not empty assertion
	ErrEmpty = Register(9, "value is empty")

	// ErrState is returned when an object is in invalid state
	ErrState = Register(10, "invalid state")

	// ErrType is returned whenever the type is not what was expected
	ErrType = Register(11, "invalid type")

	// ErrAmount stands for invalid amount of whatever
	ErrAmount = Register(13, "invalid amount")

	// ErrInput stands for general input problems indication
	ErrInput = Register(14, "invalid input")

	// ErrOverflow s returned when a computation cannot be completed
	// because the result value exceeds the type.
	ErrOverflow = Register(16, "an operation cannot be completed due to value overflow")

	// ErrDatabase is returned when the underlying storage fails.
	ErrDatabase = Register(17, "database")

	// ErrIteratorDone is returned by Iterator.Next once all items were
	// read.
	ErrIteratorDone = Register(18, "iterator done")

	// ErrPanic is only set when we recover from a panic, so we know to
	// redact potentially sensitive system info
	ErrPanic = Register(111222, "panic")
)

// Migration protocol errors. Codes 100 and above are reserved for the
// cross-chain migration.
var (
	// ErrEraEndsTooSoon is returned when a migration is scheduled to
	// start too close to the current block.
	ErrEraEndsTooSoon = Register(100, "era ends too soon")

	// ErrAccountReferenced is returned when an account that is still
	// referenced by chain state is designated for an operational role.
	ErrAccountReferenced = Register(101, "account referenced")

	// ErrWithdrawal is returned when an account cannot be withdrawn from
	// the origin chain.
	ErrWithdrawal = Register(102, "withdrawal")

	// ErrIntegration is returned when a received batch cannot be applied
	// on the destination chain.
	ErrIntegration = Register(103, "integration")

	// ErrTranslation is returned for non canonical sovereign or derived
	// account identifiers.
	ErrTranslation = Register(104, "translation")

	// ErrOutOfWeight is returned when the per block budget does not allow
	// for more work.
	ErrOutOfWeight = Register(105, "out of weight")

	// ErrQueryNotFound is returned when a query id does not resolve to a
	// pending message.
	ErrQueryNotFound = Register(106, "query not found")

	// ErrCallNotMigratable is returned when an encoded call cannot be
	// mapped onto the destination chain.
	ErrCallNotMigratable = Register(107, "call not migratable")

	// ErrSignature is returned for invalid or missing transaction
	// signatures.
	ErrSignature = Register(108, "invalid signature")
)

// Register declares a root error with a code unique within the process.
// Registering a code twice panics, so call it from package level variable
// declarations only.
func Register(code uint32, description string) *Error {
	if prev, taken := usedCodes[code]; taken {
		desc := "internal"
		if prev != nil {
			desc = prev.desc
		}
		panic(fmt.Sprintf("error code %d already taken by %q", code, desc))
	}
	e := &Error{code: code, desc: description}
	usedCodes[code] = e
	return e
}

// Code 1 stays reserved for errors without a registered root.
var usedCodes = map[uint32]*Error{internalABCICode: nil}

// Error is a root error. Errors created at runtime wrap one of them, which
// gives them an ABCI code and lets callers test for their kind with Is.
type Error struct {
	code uint32
	desc string
}

func (e Error) Error() string {
	return e.desc
}

// ABCICode returns the registered code.
func (e Error) ABCICode() uint32 {
	return e.code
}

// New is Wrap(e, description).
func (e *Error) New(description string) error {
	return Wrap(e, description)
}

// Newf is New with formatting.
func (e *Error) Newf(format string, args ...interface{}) error {
	return Wrap(e, fmt.Sprintf(format, args...))
}

// Is returns true if err is e or wraps it. Every member of an appended error
// is checked. A nil root matches only nil errors, typed nil pointers
// included.
func (e *Error) Is(err error) bool {
	if e == nil {
		return isNilErr(err)
	}
	found := false
	walk(err, func(cur error) bool {
		if cur == error(e) {
			found = true
		}
		return !found
	})
	return found
}

// Wrap adds a description to err, or returns nil for a nil err. An error
// that does not wrap a registered root is reported as internal.
//
// The innermost Wrap records the stack trace.
func Wrap(err error, description string) error {
	if err == nil {
		return nil
	}
	if stackTrace(err) == nil {
		err = errors.WithStack(err)
	}
	return &wrappedError{msg: description, parent: err}
}

// Wrapf is Wrap with a formatted description.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

type wrappedError struct {
	msg    string
	parent error
}

func (e *wrappedError) Error() string {
	return e.msg + ": " + e.parent.Error()
}

func (e *wrappedError) Cause() error {
	return e.parent
}

// Recover turns a panic into an ErrPanic assigned to *err. Use it with
// defer.
func Recover(err *error) {
	if r := recover(); r != nil {
		*err = Wrapf(ErrPanic, "%v", r)
	}
}

// Cause returns the innermost error of a wrap chain.
func Cause(err error) error {
	for {
		c, ok := err.(causer)
		if !ok {
			return err
		}
		err = c.Cause()
	}
}

type causer interface {
	Cause() error
}

// isNilErr also catches typed nil pointers stored in an error interface.
func isNilErr(err error) bool {
	if err == nil {
		return true
	}
	v := reflect.ValueOf(err)
	return v.Kind() == reflect.Ptr && v.IsNil()
}
