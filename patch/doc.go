// Package patch loads declarative audio graphs from YAML or JSON and builds
// them into an engine.Context.
//
// A patch lists nodes with their parameters and automation, the connections
// between them, and when sources start and stop:
//
//	config:
//	  sampleRate: 44100
//	duration: 2
//	nodes:
//	  - id: osc
//	    type: oscillator
//	    waveform: square
//	    params: {frequency: 220}
//	    start: {when: 0}
//	    stop: 1.5
//	  - id: amp
//	    type: gain
//	    automation:
//	      gain:
//	        - {kind: set-value, value: 0, time: 0}
//	        - {kind: linear-ramp, value: 0.5, time: 0.1}
//	connections:
//	  - {from: osc, to: amp}
//	  - {from: amp, to: _destination}
//
// The reserved id _destination names the context's destination node.
package patch
