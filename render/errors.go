package render

import "errors"

var (
	// ErrGraphIntegrity reports a command that references a missing or stale
	// node, an out-of-range port or parameter, or an operation the node kind
	// does not support. The command is dropped without side effects.
	ErrGraphIntegrity = errors.New("render: graph integrity")
	// ErrInvalidState reports a source scheduling call in the wrong state.
	ErrInvalidState = errors.New("render: invalid state")
	// ErrNotSupported reports an invalid node definition.
	ErrNotSupported = errors.New("render: not supported")
	// ErrProcessorPanic wraps a recovered processor panic.
	ErrProcessorPanic = errors.New("render: processor panic")
)
