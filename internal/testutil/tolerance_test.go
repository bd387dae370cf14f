package testutil

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPeakDiff(t *testing.T) {
	tests := []struct {
		name string
		a, b []float64
		want float64
	}{
		{"identical", []float64{1, 2, 3}, []float64{1, 2, 3}, 0},
		{"one off", []float64{1, 2, 3}, []float64{1, 2.5, 3}, 0.5},
		{"sign", []float64{-1}, []float64{1}, 2},
		{"prefix", []float64{1, 2}, []float64{1, 2, 100}, 0},
		{"empty", nil, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PeakDiff(tt.a, tt.b))
		})
	}
}

func TestRequireHelpersPass(t *testing.T) {
	RequireNear(t, []float64{1, 2}, []float64{1.05, 1.95}, 0.1)
	RequireFinite(t, []float64{0, -1, math.MaxFloat64})
}
