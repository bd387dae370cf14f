package engine

import (
	"errors"
	"fmt"

	"github.com/cwbudde/algo-audiograph/dsp/iir"
	"github.com/cwbudde/algo-audiograph/render"
)

var (
	// ErrNotSupported reports a construction argument outside what a node
	// supports.
	ErrNotSupported = errors.New("engine: not supported")
	// ErrInvalidState reports an operation that is not valid in the node's
	// current state, such as starting a source twice.
	ErrInvalidState = errors.New("engine: invalid state")
	// ErrIndexOutOfRange reports a port index beyond a node's arity.
	ErrIndexOutOfRange = errors.New("engine: index out of range")
	// ErrRange reports a negative or non-finite time, offset or duration.
	ErrRange = errors.New("engine: value out of range")
	// ErrInvalidAccess reports mismatched argument lengths or nodes from
	// another context.
	ErrInvalidAccess = errors.New("engine: invalid access")
	// ErrCommandQueueFull reports that the render side did not accept a
	// command within the configured timeout.
	ErrCommandQueueFull = errors.New("engine: command queue full")
	// ErrClosed reports use of a closed Context.
	ErrClosed = errors.New("engine: context closed")
)

// ConstructionError is returned by the Create methods of Context. It matches
// both its kind (ErrNotSupported or ErrInvalidState) and the underlying cause
// with errors.Is.
type ConstructionError struct {
	Node  string
	Kind  error
	Cause error
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("create %s: %v", e.Node, e.Cause)
}

// Unwrap returns the kind and the cause.
func (e *ConstructionError) Unwrap() []error {
	return []error{e.Kind, e.Cause}
}

func constructionError(node string, cause error) error {
	kind := ErrNotSupported
	if errors.Is(cause, iir.ErrInvalidState) || errors.Is(cause, render.ErrInvalidState) {
		kind = ErrInvalidState
	}
	return &ConstructionError{Node: node, Kind: kind, Cause: cause}
}
