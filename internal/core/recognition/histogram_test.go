package recognition

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCosineSimilarity(t *testing.T) {
	t.Parallel()

	t.Run("identical vectors score one", func(t *testing.T) {
		t.Parallel()
		v := []float64{0.2, 0.4, 0.8}
		assert.InDelta(t, 1.0, cosineSimilarity(v, v), 1e-9)
	})

	t.Run("orthogonal vectors score one half", func(t *testing.T) {
		t.Parallel()
		a := []float64{1, 0}
		b := []float64{0, 1}
		assert.InDelta(t, 0.5, cosineSimilarity(a, b), 1e-9)
	})

	t.Run("opposite vectors score zero", func(t *testing.T) {
		t.Parallel()
		a := []float64{1, 0}
		b := []float64{-1, 0}
		assert.InDelta(t, 0.0, cosineSimilarity(a, b), 1e-9)
	})

	t.Run("scaling does not change similarity", func(t *testing.T) {
		t.Parallel()
		a := []float64{0.3, 0.1, 0.6}
		b := []float64{0.6, 0.2, 1.2}
		assert.InDelta(t, 1.0, cosineSimilarity(a, b), 1e-9)
	})

	t.Run("is symmetric", func(t *testing.T) {
		t.Parallel()
		a := []float64{0.9, 0.1, 0.4}
		b := []float64{0.2, 0.7, 0.3}
		assert.InDelta(t, cosineSimilarity(a, b), cosineSimilarity(b, a), 1e-12)
	})

	t.Run("dimension mismatch scores zero", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, 0.0, cosineSimilarity([]float64{1, 2}, []float64{1, 2, 3}))
	})

	t.Run("zero and empty vectors score zero", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, 0.0, cosineSimilarity([]float64{0, 0}, []float64{1, 1}))
		assert.Equal(t, 0.0, cosineSimilarity(nil, nil))
	})

	t.Run("result stays within unit interval", func(t *testing.T) {
		t.Parallel()
		a := []float64{0.123, 0.987, 0.555}
		b := []float64{0.444, 0.001, 0.876}
		s := cosineSimilarity(a, b)
		assert.GreaterOrEqual(t, s, 0.0)
		assert.LessOrEqual(t, s, 1.0)
	})
}

func TestClampConfidence(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0.0, clampConfidence(-0.5))
	assert.Equal(t, 1.0, clampConfidence(1.5))
	assert.Equal(t, 0.42, clampConfidence(0.42))
	assert.Equal(t, 0.0, clampConfidence(0))
	assert.Equal(t, 1.0, clampConfidence(1))
}

func TestGeometricConfidenceMapping(t *testing.T) {
	t.Parallel()

	// The distance-to-confidence mapping used by the embedding backend:
	// zero distance is full confidence, the threshold maps to zero.
	threshold := 0.6
	for _, tc := range []struct {
		distance float64
		want     float64
	}{
		{0, 1},
		{0.3, 0.5},
		{0.6, 0},
	} {
		got := clampConfidence(1 - tc.distance/threshold)
		assert.InDelta(t, tc.want, got, 1e-9, "distance %v", tc.distance)
	}
}

func TestDescriptorToVector(t *testing.T) {
	t.Parallel()

	var d [128]float32
	d[0] = 0.25
	d[127] = -1.5

	v := descriptorToVector(d)
	assert.Len(t, v, 128)
	assert.InDelta(t, 0.25, v[0], 1e-9)
	assert.InDelta(t, -1.5, v[127], 1e-9)
	assert.True(t, math.Abs(v[64]) < 1e-12)
}
