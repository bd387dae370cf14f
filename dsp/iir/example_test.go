package iir_test

import (
	"fmt"

	"github.com/cwbudde/algo-audiograph/dsp/iir"
)

func ExampleNewCoefficients() {
	c, err := iir.NewCoefficients([]float64{2}, []float64{2, -1})
	if err != nil {
		panic(err)
	}
	fmt.Println(c.Feedforward, c.Feedback)
	fmt.Printf("%.3f\n", c.ImpulseResponse(4))
	// Output:
	// [1 0] [1 -0.5]
	// [1.000 0.500 0.250 0.125]
}
