package patch_test

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/cwbudde/algo-audiograph/engine"
	"github.com/cwbudde/algo-audiograph/patch"
)

func ExamplePatch_Build() {
	p, err := patch.Parse(strings.NewReader(`
config: {sampleRate: 8000, quantumSize: 64}
duration: 0.1
nodes:
  - id: level
    type: constant-source
    params: {offset: 0.25}
    start: {when: 0}
connections:
  - {from: level, to: _destination}
`), "yaml")
	if err != nil {
		panic(err)
	}

	log := logrus.New()
	log.SetOutput(io.Discard)
	ac, err := p.NewContext(engine.WithLogger(logrus.NewEntry(log)))
	if err != nil {
		panic(err)
	}
	defer ac.Close()

	if _, err := p.Build(context.Background(), ac); err != nil {
		panic(err)
	}
	out, err := ac.Render(context.Background(), int(p.Frames(ac.SampleRate())))
	if err != nil {
		panic(err)
	}
	fmt.Println(out.Length(), out.Channel(1)[799])
	// Output: 800 0.25
}
