package engine_test

import (
	"context"
	"fmt"

	"github.com/cwbudde/algo-audiograph/engine"
)

func ExampleContext_Render() {
	ac, err := engine.NewContext(
		engine.WithSampleRate(8000),
		engine.WithQuantumSize(64),
		engine.WithChannels(1),
	)
	if err != nil {
		fmt.Println(err)
		return
	}
	defer ac.Close()

	src, _ := ac.CreateConstantSource()
	gain, _ := ac.CreateGain()
	_ = gain.Gain().SetValue(0.25)
	_ = src.Connect(gain)
	_ = gain.Connect(ac.Destination())
	_ = src.StartAt(0.01)

	out, err := ac.Render(context.Background(), 128)
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(out.Length(), out.Channel(0)[79], out.Channel(0)[80])
	// Output: 128 0 0.25
}

func ExampleAudioParam_LinearRampToValueAtTime() {
	ac, _ := engine.NewContext(engine.WithSampleRate(4000), engine.WithChannels(1))
	defer ac.Close()

	src, _ := ac.CreateConstantSource()
	_ = src.Offset().SetValueAtTime(0, 0)
	_ = src.Offset().LinearRampToValueAtTime(1, 0.5)
	_ = src.Connect(ac.Destination())
	_ = src.Start()

	out, _ := ac.Render(context.Background(), 2000)
	fmt.Printf("%.2f %.2f %.2f\n", out.Channel(0)[0], out.Channel(0)[1000], out.Channel(0)[1999])
	// Output: 0.00 0.50 1.00
}
