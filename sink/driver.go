package sink

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cwbudde/algo-audiograph/dsp/buffer"
)

// Driver renders one quantum per period, approximating a real-time device
// without one. OnQuantum, when set, receives each block on the render
// goroutine and must not retain it.
type Driver struct {
	// Period defaults to the quantum duration of the source.
	Period time.Duration
	// Frames bounds the run; 0 runs until ctx is done.
	Frames    int64
	OnQuantum func(*buffer.Block)
	Log       *logrus.Entry
}

// Run implements Sink. It reports the period as output latency when src is
// a LatencyReporter.
func (d Driver) Run(ctx context.Context, src QuantumSource) error {
	period := d.Period
	if period <= 0 {
		period = QuantumDuration(src)
	}
	log := d.Log
	if log == nil {
		log = logrus.WithField("component", "sink")
	}
	if lr, ok := src.(LatencyReporter); ok {
		lr.SetOutputLatency(period)
	}

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	q := int64(src.QuantumSize())
	var done int64
	for d.Frames <= 0 || done < d.Frames {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		start := time.Now()
		b := src.RenderQuantum()
		if d.OnQuantum != nil {
			d.OnQuantum(b)
		}
		if took := time.Since(start); took > period {
			log.WithFields(logrus.Fields{
				"function": "Driver.Run",
				"frame":    done,
				"took":     took,
				"period":   period,
			}).Warn("Render quantum overran its period")
		}
		done += q
	}
	return nil
}
