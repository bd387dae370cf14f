// Package engine is the control side of the audio graph.
//
// A Context owns a render.Executor and talks to it only through two bounded
// channels: graph mutations travel to the render goroutine as commands, and
// lifecycle events travel back and are dispatched to callbacks on a control
// goroutine. Node handles (GainNode, BufferSourceNode, ...) validate their
// arguments synchronously and return errors immediately; problems that can
// only be detected on the render side arrive through Context.OnError.
//
// The render goroutine is whoever calls Context.RenderQuantum, normally a
// sink from package sink.
package engine
