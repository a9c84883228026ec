package recognition

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// smallPNG renders a tiny valid image for decode tests.
func smallPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 30), G: uint8(y * 30), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestIngestorDecode(t *testing.T) {
	t.Parallel()
	var ingestor Ingestor

	t.Run("rejects unsupported input type", func(t *testing.T) {
		t.Parallel()
		_, err := ingestor.Decode(42)
		assert.ErrorIs(t, err, ErrUnsupportedInput)
	})

	t.Run("rejects string that is neither data URI nor file", func(t *testing.T) {
		t.Parallel()
		_, err := ingestor.Decode("definitely/not/a/real/path.jpg")
		assert.ErrorIs(t, err, ErrUnsupportedInput)
	})

	t.Run("rejects empty byte slice", func(t *testing.T) {
		t.Parallel()
		_, err := ingestor.Decode([]byte{})
		assert.ErrorIs(t, err, ErrEmptyImage)
	})

	t.Run("rejects corrupt bytes", func(t *testing.T) {
		t.Parallel()
		_, err := ingestor.Decode([]byte("this is not an image"))
		assert.ErrorIs(t, err, ErrCorruptImage)
	})

	t.Run("rejects data URI without payload", func(t *testing.T) {
		t.Parallel()
		_, err := ingestor.Decode("data:image/png;base64,")
		assert.ErrorIs(t, err, ErrEmptyImage)
	})

	t.Run("rejects data URI with invalid base64", func(t *testing.T) {
		t.Parallel()
		_, err := ingestor.Decode("data:image/png;base64,!!!not-base64!!!")
		assert.ErrorIs(t, err, ErrCorruptImage)
	})

	t.Run("rejects empty stream", func(t *testing.T) {
		t.Parallel()
		_, err := ingestor.Decode(bytes.NewReader(nil))
		assert.ErrorIs(t, err, ErrEmptyImage)
	})

	t.Run("decodes png bytes", func(t *testing.T) {
		t.Parallel()
		img, err := ingestor.Decode(smallPNG(t))
		require.NoError(t, err)
		defer img.Close()

		assert.Equal(t, "bytes", img.Source)
		assert.False(t, img.Mat.Empty())
		assert.Equal(t, 8, img.Mat.Cols())
		assert.Equal(t, 8, img.Mat.Rows())
	})

	t.Run("decodes data URI", func(t *testing.T) {
		t.Parallel()
		uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString(smallPNG(t))
		img, err := ingestor.Decode(uri)
		require.NoError(t, err)
		defer img.Close()

		assert.Equal(t, "data-uri", img.Source)
		assert.False(t, img.Mat.Empty())
	})

	t.Run("decodes stream and resets seekable position", func(t *testing.T) {
		t.Parallel()
		reader := bytes.NewReader(smallPNG(t))

		// Consume part of the stream first; Decode must rewind it.
		scratch := make([]byte, 4)
		_, err := reader.Read(scratch)
		require.NoError(t, err)

		img, decodeErr := ingestor.Decode(reader)
		require.NoError(t, decodeErr)
		defer img.Close()
		assert.Equal(t, "stream", img.Source)
	})

	t.Run("passes through decoded image without taking ownership", func(t *testing.T) {
		t.Parallel()
		original, err := ingestor.Decode(smallPNG(t))
		require.NoError(t, err)
		defer original.Close()

		again, err := ingestor.Decode(original)
		require.NoError(t, err)
		assert.Equal(t, original.Source, again.Source)

		// Closing the pass-through wrapper must leave the caller's
		// pixel buffer intact.
		again.Close()
		assert.False(t, original.Mat.Empty())
		assert.Equal(t, 8, original.Mat.Cols())
	})

	t.Run("wraps caller mat without taking ownership", func(t *testing.T) {
		t.Parallel()
		original, err := ingestor.Decode(smallPNG(t))
		require.NoError(t, err)
		defer original.Close()

		wrapped, err := ingestor.Decode(original.Mat)
		require.NoError(t, err)
		assert.Equal(t, "buffer", wrapped.Source)

		wrapped.Close()
		assert.False(t, original.Mat.Empty())
		assert.Equal(t, 8, original.Mat.Rows())
	})
}
