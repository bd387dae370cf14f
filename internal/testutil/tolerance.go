package testutil

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

// RequireNear fails t unless got and want have the same length and every
// pair is within eps. The first offending index is reported.
func RequireNear(t testing.TB, got, want []float64, eps float64) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range got {
		require.InDelta(t, want[i], got[i], eps, "index %d", i)
	}
}

// RequireFinite fails t at the first NaN or infinite sample.
func RequireFinite(t testing.TB, data []float64) {
	t.Helper()
	for i, v := range data {
		require.False(t, math.IsNaN(v) || math.IsInf(v, 0), "index %d is %v", i, v)
	}
}

// PeakDiff returns the largest absolute difference over the common prefix
// of a and b.
func PeakDiff(a, b []float64) float64 {
	peak := 0.0
	for i := range min(len(a), len(b)) {
		peak = math.Max(peak, math.Abs(a[i]-b[i]))
	}
	return peak
}
