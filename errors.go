package agent

import (
	"errors"
	"fmt"
)

// ErrAsyncNotDeclared is returned when async completion is signaled on a
// transaction that was never declared async.
var ErrAsyncNotDeclared = errors.New("async completion signaled but the transaction was never declared async")

// ErrUnsupported is the panic value of operations a span kind does not
// support. It indicates a bug in the instrumentation, not a runtime failure.
type ErrUnsupported interface {
	Unsupported()
	error
}

type unsupportedError struct {
	operation string
	spanKind  string
}

func newErrUnsupported(operation, spanKind string) ErrUnsupported {
	return unsupportedError{operation: operation, spanKind: spanKind}
}

func (unsupportedError) Unsupported() {}

func (e unsupportedError) Error() string {
	return fmt.Sprintf("%s() must not be called on %s", e.operation, e.spanKind)
}
