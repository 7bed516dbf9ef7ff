package errors

import (
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/pkg/errors"
)

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// stackTrace returns the outermost stack trace of the wrap chain, or nil.
func stackTrace(err error) errors.StackTrace {
	for err != nil {
		if st, ok := err.(stackTracer); ok {
			return st.StackTrace()
		}
		err = nextCause(err)
	}
	return nil
}

// Format prints
//
//	%s the message
//	%v the message and the [file:line] the error was created at
//	%+v the message and the whole stack
func (e *wrappedError) Format(s fmt.State, verb rune) {
	formatWithStack(s, verb, e)
}

func (e *fieldError) Format(s fmt.State, verb rune) {
	formatWithStack(s, verb, e)
}

func formatWithStack(s fmt.State, verb rune, err error) {
	io.WriteString(s, err.Error())
	if verb != 'v' {
		return
	}
	st := callerFrames(stackTrace(err))
	switch {
	case len(st) == 0:
	case s.Flag('+'):
		fmt.Fprintf(s, "\n%+v", st)
	default:
		file, line := fileLine(st[0])
		if i := strings.Index(file, "github.com/"); i >= 0 {
			file = file[i+len("github.com/"):]
		}
		fmt.Fprintf(s, " [%s:%d]", file, line)
	}
}

// callerFrames drops the frames of this package and of the runtime, so that
// the first frame is the code that created the error.
func callerFrames(st errors.StackTrace) errors.StackTrace {
	internal := func(f errors.Frame) bool {
		file, _ := fileLine(f)
		return strings.Contains(file, "/runtime/") ||
			(strings.Contains(file, "/errors/") && !strings.HasSuffix(file, "_test.go"))
	}
	for len(st) > 0 && internal(st[0]) {
		st = st[1:]
	}
	for len(st) > 0 && internal(st[len(st)-1]) {
		st = st[:len(st)-1]
	}
	return st
}

func fileLine(f errors.Frame) (string, int) {
	// A Frame is the program counter plus one.
	pc := uintptr(f) - 1
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return "unknown", 0
	}
	return fn.FileLine(pc)
}
