package recognition

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEncoding(t *testing.T) {
	t.Parallel()

	t.Run("parses deep record", func(t *testing.T) {
		t.Parallel()
		data := []byte(`{"model":"deep","username":"alice","confidence":0.93,"face_region":[10,20,100,100]}`)

		enc, err := ParseEncoding(data)
		require.NoError(t, err)
		assert.Equal(t, ModelDeep, enc.Model)
		assert.Equal(t, "alice", enc.Username)
		assert.InDelta(t, 0.93, enc.Confidence, 1e-9)
		assert.Equal(t, []int{10, 20, 100, 100}, enc.FaceRegion)
	})

	t.Run("parses geometric record", func(t *testing.T) {
		t.Parallel()
		vector := make([]float64, geometricDimensions)
		vector[0] = 0.5
		data, err := json.Marshal(Encoding{Model: ModelGeometric, Vector: vector})
		require.NoError(t, err)

		enc, err := ParseEncoding(data)
		require.NoError(t, err)
		assert.Equal(t, ModelGeometric, enc.Model)
		assert.Len(t, enc.Vector, geometricDimensions)
	})

	t.Run("parses histogram record", func(t *testing.T) {
		t.Parallel()
		data := []byte(`{"model":"histogram","encoding":[0.1,0.2,0.3],"normalized":true}`)

		enc, err := ParseEncoding(data)
		require.NoError(t, err)
		assert.Equal(t, ModelHistogram, enc.Model)
		assert.True(t, enc.Normalized)
		assert.Len(t, enc.Vector, 3)
	})

	t.Run("accepts legacy bare vector as geometric", func(t *testing.T) {
		t.Parallel()
		vector := make([]float64, geometricDimensions)
		data, err := json.Marshal(vector)
		require.NoError(t, err)

		enc, err := ParseEncoding(data)
		require.NoError(t, err)
		assert.Equal(t, ModelGeometric, enc.Model)
		assert.Len(t, enc.Vector, geometricDimensions)
	})

	t.Run("rejects legacy vector with wrong length", func(t *testing.T) {
		t.Parallel()
		data, err := json.Marshal(make([]float64, 64))
		require.NoError(t, err)

		_, err = ParseEncoding(data)
		assert.Error(t, err)
	})

	t.Run("rejects record without model tag", func(t *testing.T) {
		t.Parallel()
		_, err := ParseEncoding([]byte(`{"username":"alice"}`))
		assert.Error(t, err)
	})

	t.Run("rejects empty and null records", func(t *testing.T) {
		t.Parallel()
		_, err := ParseEncoding(nil)
		assert.Error(t, err)

		_, err = ParseEncoding([]byte("  "))
		assert.Error(t, err)

		_, err = ParseEncoding([]byte("null"))
		assert.Error(t, err)
	})

	t.Run("unknown model tag parses cleanly", func(t *testing.T) {
		t.Parallel()
		enc, err := ParseEncoding([]byte(`{"model":"experimental","encoding":[1,2]}`))
		require.NoError(t, err)
		assert.Equal(t, "experimental", enc.Model)
	})
}

func TestEncodingMarshalRoundTrip(t *testing.T) {
	t.Parallel()

	original := &Encoding{
		Model:      ModelHistogram,
		Vector:     []float64{0.25, 0.5, 0.25},
		Normalized: true,
	}
	data, err := original.Marshal()
	require.NoError(t, err)

	parsed, err := ParseEncoding(data)
	require.NoError(t, err)
	assert.Equal(t, original, parsed)
}

func TestEncodingJSONShape(t *testing.T) {
	t.Parallel()

	// The persisted field names must not drift; stored records depend
	// on them.
	enc := &Encoding{Model: ModelDeep, Username: "bob", Confidence: 0.8, FaceRegion: []int{1, 2, 3, 4}}
	data, err := enc.Marshal()
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Contains(t, raw, "model")
	assert.Contains(t, raw, "username")
	assert.Contains(t, raw, "confidence")
	assert.Contains(t, raw, "face_region")
	assert.NotContains(t, raw, "encoding")
}
