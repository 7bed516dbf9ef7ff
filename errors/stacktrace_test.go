package errors

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	errs := map[string]error{
		"wrapped root":   Wrap(ErrDuplicate, "preimage"),
		"wrapped stdlib": Wrapf(fmt.Errorf("disk full"), "commit %d", 3),
		"field":          Field("Start", ErrEraEndsTooSoon, "block %d", 12),
	}
	for name, err := range errs {
		t.Run(name, func(t *testing.T) {
			require.NotNil(t, stackTrace(err))
			msg := err.Error()

			assert.Equal(t, msg, fmt.Sprintf("%s", err))

			short := fmt.Sprintf("%v", err)
			assert.True(t, strings.HasPrefix(short, msg+" ["), short)
			assert.Contains(t, short, "errors/stacktrace_test.go:")
			assert.NotContains(t, short, "\n")

			long := fmt.Sprintf("%+v", err)
			assert.True(t, strings.HasPrefix(long, msg+"\n"), long)
			assert.Contains(t, long, "errors/stacktrace_test.go")
			assert.NotContains(t, long, "/errors/errors.go")
		})
	}
}

func TestStackIsRecordedOnce(t *testing.T) {
	inner := Wrap(ErrState, "inner")
	outer := Wrap(inner, "outer")
	assert.Equal(t, stackTrace(inner), stackTrace(outer))
	assert.Nil(t, stackTrace(ErrState))
}
