package assert

import (
	"testing"

	"github.com/iov-one/ferry/errors"
)

func TestIsErr(t *testing.T) {
	cases := map[string]struct {
		ErrWant  error
		ErrGot   error
		WantFail bool
	}{
		"same error": {
			ErrWant: errors.ErrOutOfWeight,
			ErrGot:  errors.ErrOutOfWeight,
		},
		"compared to nil": {
			ErrWant:  nil,
			ErrGot:   errors.ErrIntegration,
			WantFail: true,
		},
		"both nil": {},
		"wrapped": {
			ErrWant: errors.ErrQueryNotFound,
			ErrGot:  errors.Wrap(errors.ErrQueryNotFound, "query 4"),
		},
		"different root": {
			ErrWant:  errors.ErrQueryNotFound,
			ErrGot:   errors.Wrap(errors.ErrIntegration, "batch"),
			WantFail: true,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			mock := &tmock{TB: t}
			IsErr(mock, tc.ErrWant, tc.ErrGot)
			if failed := mock.failcalls > 0; tc.WantFail != failed {
				t.Fatalf("unexpected failed call state: %d failures", mock.failcalls)
			}
		})
	}
}

func TestFieldErrors(t *testing.T) {
	cases := map[string]struct {
		Err      error
		Name     string
		WantErr  *errors.Error
		WantFail bool
	}{
		"single error is found": {
			Err:     errors.Field("Start", errors.ErrEraEndsTooSoon, "too close"),
			Name:    "Start",
			WantErr: errors.ErrEraEndsTooSoon,
		},
		"nil ensures no error was found": {
			Err:  errors.Field("Start", errors.ErrEraEndsTooSoon, "too close"),
			Name: "WarmUp",
		},
		"nil fails when an error was found": {
			Err:      errors.Field("Start", errors.ErrEraEndsTooSoon, "too close"),
			Name:     "Start",
			WantFail: true,
		},
		"more than one error for a field is not allowed": {
			Err: errors.Append(
				errors.Field("Start", errors.ErrInput, "first"),
				errors.Field("Start", errors.ErrInput, "second"),
			),
			Name:     "Start",
			WantErr:  errors.ErrInput,
			WantFail: true,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			mock := &tmock{TB: t}
			FieldError(mock, tc.Err, tc.Name, tc.WantErr)
			if failed := mock.failcalls > 0; tc.WantFail != failed {
				t.Fatalf("unexpected failed call state: %d failures", mock.failcalls)
			}
		})
	}
}

// tmock mocks testing.TB and only counts failure calls. It ignores all other
// input.
type tmock struct {
	testing.TB
	failcalls int
}

func (t *tmock) Fatal(args ...interface{}) {
	t.TB.Log(args...)
	t.failcalls++
}

func (t *tmock) Fatalf(s string, args ...interface{}) {
	t.TB.Logf(s, args...)
	t.failcalls++
}
