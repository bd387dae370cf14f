// Package render implements the real-time side of the audio graph.
//
// An [Executor] owns an arena of [Node] values and is driven by a single
// goroutine, once per render quantum. Control goroutines never touch the arena
// directly: they build [Command] values, send them over a bounded channel, and
// receive [Event] values back on a second channel.
//
// Per quantum the executor drains pending commands, refreshes the processing
// order when the graph changed, mixes every node's inputs, evaluates parameter
// automation, calls each [Processor], prunes finished nodes, and publishes
// lifecycle events.
//
// Nodes may form cycles. An edge that closes a cycle is a feedback edge: its
// consumer is processed before its producer and therefore reads the
// producer's output from the previous quantum.
package render
