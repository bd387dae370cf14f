package window

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSymmetric(t *testing.T) {
	for _, typ := range []Type{TypeHann, TypeHamming, TypeBlackman} {
		w := Generate(typ, 33)
		require.Len(t, w, 33, typ.String())
		for i := range w {
			assert.InDelta(t, w[i], w[len(w)-1-i], 1e-12, typ.String())
		}
		assert.InDelta(t, 1.0, w[16], 1e-12, typ.String())
	}
}

func TestGenerateEdges(t *testing.T) {
	assert.InDelta(t, 0.0, Generate(TypeHann, 8)[0], 1e-12)
	assert.InDelta(t, 0.08, Generate(TypeHamming, 8)[0], 1e-12)
	assert.InDelta(t, 0.0, Generate(TypeBlackman, 8)[0], 1e-12)
	assert.Equal(t, []float64{1, 1, 1}, Generate(TypeRectangular, 3))
	assert.Nil(t, Generate(TypeHann, 0))
}

func TestPeriodicDiffersFromSymmetric(t *testing.T) {
	sym := Generate(TypeBlackman, 16)
	per := Generate(TypeBlackman, 16, WithPeriodic())
	assert.NotEqual(t, sym, per)
	// The periodic window peaks at N/2.
	assert.InDelta(t, 1.0, per[8], 1e-12)
}

func TestApplyCoefficients(t *testing.T) {
	dst := make([]float64, 3)
	require.NoError(t, ApplyCoefficients(dst, []float64{1, 2, 3}, []float64{2, 2, 0.5}))
	assert.Equal(t, []float64{2, 4, 1.5}, dst)

	require.Error(t, ApplyCoefficients(dst, []float64{1}, []float64{1, 2}))
}

func TestTypeString(t *testing.T) {
	assert.Equal(t, "Blackman", TypeBlackman.String())
	assert.Equal(t, "Type(99)", Type(99).String())
}
