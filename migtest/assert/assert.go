/*
Package assert holds the assertions shared by the ferry tests. A failed
assertion stops the test.
*/
package assert

import (
	"reflect"

	"github.com/iov-one/ferry/errors"
)

// Tester is the part of testing.TB the assertions use.
type Tester interface {
	Helper()
	Fatal(...interface{})
	Fatalf(string, ...interface{})
	Logf(string, ...interface{})
}

// Nil fails unless value is nil or a nil chan, func, map, pointer or slice.
func Nil(t Tester, value interface{}) {
	t.Helper()
	if !isNil(value) {
		// %+v prints the stack of errors that carry one.
		t.Fatalf("want nil, got %+v", value)
	}
}

func isNil(value interface{}) bool {
	if value == nil {
		return true
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Ptr, reflect.Slice:
		return v.IsNil()
	}
	return false
}

// Equal compares using reflect.DeepEqual.
func Equal(t Tester, want, got interface{}) {
	t.Helper()
	if !reflect.DeepEqual(want, got) {
		t.Fatalf("not equal\nwant %T %v\n got %T %v", want, want, got, got)
	}
}

// True fails with msg unless cond holds.
func True(t Tester, cond bool, msg string) {
	t.Helper()
	if !cond {
		t.Fatal(msg)
	}
}

// Panics fails if fn returns normally.
func Panics(t Tester, fn func()) {
	t.Helper()
	panicked := func() (p bool) {
		defer func() { p = recover() != nil }()
		fn()
		return
	}()
	if !panicked {
		t.Fatal("want panic")
	}
}

// FieldError fails unless err holds exactly one error for fieldName and that
// error is of kind want. With a nil want it fails if any error is reported for
// the field.
func FieldError(t Tester, err error, fieldName string, want *errors.Error) {
	t.Helper()
	found := errors.FieldErrors(err, fieldName)
	switch {
	case want == nil && len(found) == 0:
	case want == nil:
		logAll(t, found)
		t.Fatalf("want no %s error, got %d", fieldName, len(found))
	case len(found) == 0:
		t.Fatalf("want %q error for %s, got none", want, fieldName)
	case len(found) > 1:
		logAll(t, found)
		t.Fatalf("want one %s error, got %d", fieldName, len(found))
	case !want.Is(found[0]):
		t.Fatalf("want %q error for %s, got %q", want, fieldName, found[0])
	}
}

func logAll(t Tester, errs []error) {
	for i, e := range errs {
		t.Logf("\t%d: %q", i, e)
	}
}

// IsErr fails unless got is want or, when want has an Is method, want.Is(got)
// holds.
func IsErr(t Tester, want, got error) {
	t.Helper()
	if want == got {
		return
	}
	if w, ok := want.(interface{ Is(error) bool }); ok && w.Is(got) {
		return
	}
	t.Fatalf("want %q, got %+v", want, got)
}
