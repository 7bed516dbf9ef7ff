package errors

import (
	"fmt"

	"github.com/pkg/errors"
)

// Field wraps err with the name of the field it was found in, or returns nil
// for a nil err. The description is optional and formatted with args.
//
// Use Go names and dots for nested fields, for example Schedule.Start or
// Proxies.0.Delegate.
func Field(fieldName string, err error, description string, args ...interface{}) error {
	if isNilErr(err) {
		return nil
	}
	// Attach the stack only at the innermost wrap.
	if stackTrace(err) == nil {
		err = errors.WithStack(err)
	}
	if len(args) != 0 {
		description = fmt.Sprintf(description, args...)
	}
	return &fieldError{parent: err, field: fieldName, desc: description}
}

// AppendField adds a field error to errorsOrNil. Nothing is added when
// fieldErrOrNil is nil.
func AppendField(errorsOrNil error, fieldName string, fieldErrOrNil error) error {
	return Append(errorsOrNil, Field(fieldName, fieldErrOrNil, ""))
}

type fieldError struct {
	parent error
	field  string
	desc   string
}

func (err *fieldError) Error() string {
	msg := fmt.Sprintf("field %q: ", err.field)
	if err.desc != "" {
		msg += err.desc + ": "
	}
	return msg + err.parent.Error()
}

func (err *fieldError) Cause() error {
	return err.parent
}

func (err *fieldError) Field() string {
	return err.field
}

// FieldErrors returns all errors reported for the given field, looking
// through wrapped and appended errors.
func FieldErrors(err error, fieldName string) []error {
	var res []error
	walk(err, func(e error) bool {
		if f, ok := e.(interface{ Field() string }); ok && f.Field() == fieldName {
			res = append(res, e)
			return false
		}
		return true
	})
	return res
}

// walk calls visit for err and every error it wraps. Appended errors are
// visited one by one. Returning false from visit skips the errors wrapped by
// the visited one.
func walk(err error, visit func(error) bool) {
	for !isNilErr(err) {
		if !visit(err) {
			return
		}
		if u, ok := err.(unpacker); ok {
			for _, e := range u.Unpack() {
				walk(e, visit)
			}
			return
		}
		c, ok := err.(causer)
		if !ok {
			return
		}
		err = c.Cause()
	}
}
