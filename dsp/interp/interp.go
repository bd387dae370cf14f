package interp

// Mode selects an interpolation algorithm.
type Mode int

const (
	// Linear interpolates between the two neighbouring samples.
	Linear Mode = iota
	// Hermite uses 4-point cubic Hermite interpolation.
	Hermite
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case Linear:
		return "linear"
	case Hermite:
		return "hermite"
	default:
		return "unknown"
	}
}

// Linear2 interpolates from x0 (t=0) to x1 (t=1).
func Linear2(t, x0, x1 float64) float64 {
	return x0 + t*(x1-x0)
}

// Hermite4 computes cubic 4-point interpolation.
// It interpolates from x0 to x1 using neighbor points xm1 and x2.
func Hermite4(t, xm1, x0, x1, x2 float64) float64 {
	c0 := x0
	c1 := 0.5 * (x1 - xm1)
	c2 := xm1 - 2.5*x0 + 2*x1 - 0.5*x2
	c3 := 0.5*(x2-xm1) + 1.5*(x0-x1)
	return ((c3*t+c2)*t+c1)*t + c0
}

// At reads data at fractional index pos with linear interpolation. Positions
// outside [0, len(data)-1] read the nearest edge sample; the neighbour past the
// last sample is next, or the last sample itself when next is negative.
func At(data []float64, pos float64, next int) float64 {
	n := len(data)
	if n == 0 {
		return 0
	}
	if pos <= 0 {
		return data[0]
	}
	i := int(pos)
	if i >= n-1 {
		if i == n-1 && next >= 0 && next < n {
			return Linear2(pos-float64(i), data[i], data[next])
		}
		return data[n-1]
	}
	return Linear2(pos-float64(i), data[i], data[i+1])
}
