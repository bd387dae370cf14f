package sink

import "context"

// Null renders and discards quanta as fast as possible. With Frames > 0 it
// stops after at least that many frames; otherwise it runs until ctx is
// done.
type Null struct {
	Frames int64
}

// Run implements Sink. It returns ctx's error when cancelled before Frames
// were rendered.
func (n Null) Run(ctx context.Context, src QuantumSource) error {
	q := int64(src.QuantumSize())
	for done := int64(0); n.Frames <= 0 || done < n.Frames; done += q {
		if err := ctx.Err(); err != nil {
			return err
		}
		src.RenderQuantum()
	}
	return nil
}
