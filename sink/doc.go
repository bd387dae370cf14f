// Package sink drives a render graph: it pulls quanta from a QuantumSource
// and delivers them somewhere, in real time or as fast as possible.
//
// A sink's Run method is the single render goroutine for its source. Only
// one sink may run a given source at a time.
package sink
