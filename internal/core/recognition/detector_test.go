package recognition

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLargestRegion(t *testing.T) {
	t.Parallel()

	t.Run("empty input", func(t *testing.T) {
		t.Parallel()
		_, ok := LargestRegion(nil)
		assert.False(t, ok)

		_, ok = LargestRegion([]image.Rectangle{})
		assert.False(t, ok)
	})

	t.Run("single region", func(t *testing.T) {
		t.Parallel()
		r := image.Rect(10, 10, 50, 50)
		best, ok := LargestRegion([]image.Rectangle{r})
		assert.True(t, ok)
		assert.Equal(t, r, best)
	})

	t.Run("picks maximum area", func(t *testing.T) {
		t.Parallel()
		small := image.Rect(0, 0, 30, 30)
		large := image.Rect(100, 100, 250, 250)
		medium := image.Rect(0, 0, 80, 80)

		best, ok := LargestRegion([]image.Rectangle{small, large, medium})
		assert.True(t, ok)
		assert.Equal(t, large, best)
	})

	t.Run("tie broken by first encountered", func(t *testing.T) {
		t.Parallel()
		first := image.Rect(0, 0, 40, 40)
		second := image.Rect(200, 200, 240, 240)

		best, ok := LargestRegion([]image.Rectangle{first, second})
		assert.True(t, ok)
		assert.Equal(t, first, best)
	})

	t.Run("degenerate regions never win", func(t *testing.T) {
		t.Parallel()
		empty := image.Rect(5, 5, 5, 5)
		real := image.Rect(0, 0, 10, 10)

		best, ok := LargestRegion([]image.Rectangle{empty, real})
		assert.True(t, ok)
		assert.Equal(t, real, best)

		_, ok = LargestRegion([]image.Rectangle{empty})
		assert.False(t, ok, "zero-area regions alone yield no result")
	})
}
