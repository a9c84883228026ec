package recognition

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend is a scriptable Backend for cascade tests.
type fakeBackend struct {
	name        string
	available   bool
	registerEnc *Encoding
	registerErr error
	match       *StoredEncoding
	confidence  float64

	registerCalls  int
	recognizeCalls int
}

func (f *fakeBackend) Name() string    { return f.name }
func (f *fakeBackend) Available() bool { return f.available }

func (f *fakeBackend) Register(img *DecodedImage, username string) (*Encoding, error) {
	f.registerCalls++
	return f.registerEnc, f.registerErr
}

func (f *fakeBackend) Recognize(img *DecodedImage, stored []StoredEncoding) (*StoredEncoding, float64) {
	f.recognizeCalls++
	return f.match, f.confidence
}

func TestNewCascadeExcludesUnavailableBackends(t *testing.T) {
	t.Parallel()

	first := &fakeBackend{name: "deep", available: false}
	second := &fakeBackend{name: "geometric", available: true}

	cascade := NewCascade(first, second, nil)
	assert.Equal(t, []string{"geometric"}, cascade.Backends())
}

func TestCascadeRecognize(t *testing.T) {
	t.Parallel()

	t.Run("short-circuits on first match", func(t *testing.T) {
		t.Parallel()
		match := &StoredEncoding{UserID: 7, Username: "alice"}
		first := &fakeBackend{name: "deep", available: true, match: match, confidence: 0.9}
		second := &fakeBackend{name: "geometric", available: true}

		cascade := NewCascade(first, second)
		result, err := cascade.Recognize(nil, nil)
		require.NoError(t, err)

		assert.True(t, result.Matched)
		assert.Equal(t, uint(7), result.UserID)
		assert.Equal(t, "alice", result.Username)
		assert.Equal(t, "deep", result.Backend)
		assert.InDelta(t, 0.9, result.Confidence, 1e-9)
		assert.Equal(t, 1, first.recognizeCalls)
		assert.Equal(t, 0, second.recognizeCalls, "lower-priority backend must not run after a match")
	})

	t.Run("falls through to next backend on miss", func(t *testing.T) {
		t.Parallel()
		match := &StoredEncoding{UserID: 3, Username: "bob"}
		first := &fakeBackend{name: "deep", available: true, confidence: 0.2}
		second := &fakeBackend{name: "histogram", available: true, match: match, confidence: 0.55}

		cascade := NewCascade(first, second)
		result, err := cascade.Recognize(nil, nil)
		require.NoError(t, err)

		assert.True(t, result.Matched)
		assert.Equal(t, "histogram", result.Backend)
		assert.Equal(t, 1, first.recognizeCalls)
		assert.Equal(t, 1, second.recognizeCalls)
	})

	t.Run("no match from any backend", func(t *testing.T) {
		t.Parallel()
		first := &fakeBackend{name: "deep", available: true}
		second := &fakeBackend{name: "histogram", available: true}

		cascade := NewCascade(first, second)
		result, err := cascade.Recognize(nil, nil)
		require.NoError(t, err)

		assert.False(t, result.Matched)
		assert.Empty(t, result.Backend)
	})

	t.Run("errors with no backends", func(t *testing.T) {
		t.Parallel()
		cascade := NewCascade(&fakeBackend{name: "deep", available: false})

		_, err := cascade.Recognize(nil, nil)
		assert.ErrorIs(t, err, ErrNoBackendAvailable)
	})

	t.Run("confidence clamped to unit interval", func(t *testing.T) {
		t.Parallel()
		match := &StoredEncoding{UserID: 1, Username: "carol"}
		backend := &fakeBackend{name: "deep", available: true, match: match, confidence: 1.4}

		cascade := NewCascade(backend)
		result, err := cascade.Recognize(nil, nil)
		require.NoError(t, err)
		assert.Equal(t, 1.0, result.Confidence)
	})
}

func TestCascadeRegister(t *testing.T) {
	t.Parallel()

	t.Run("uses highest-priority backend", func(t *testing.T) {
		t.Parallel()
		enc := &Encoding{Model: ModelDeep, Username: "alice"}
		first := &fakeBackend{name: "deep", available: true, registerEnc: enc}
		second := &fakeBackend{name: "geometric", available: true}

		cascade := NewCascade(first, second)
		got, err := cascade.Register(nil, "alice")
		require.NoError(t, err)

		assert.Equal(t, enc, got)
		assert.Equal(t, 0, second.registerCalls)
	})

	t.Run("face-count errors abort without fallback", func(t *testing.T) {
		t.Parallel()
		for _, sentinel := range []error{ErrNoFaceDetected, ErrMultipleFaces} {
			first := &fakeBackend{name: "deep", available: true, registerErr: sentinel}
			second := &fakeBackend{name: "geometric", available: true}

			cascade := NewCascade(first, second)
			_, err := cascade.Register(nil, "alice")
			assert.ErrorIs(t, err, sentinel)
			assert.Equal(t, 0, second.registerCalls)
		}
	})

	t.Run("other failures try next backend", func(t *testing.T) {
		t.Parallel()
		enc := &Encoding{Model: ModelGeometric}
		first := &fakeBackend{name: "deep", available: true, registerErr: errors.New("forward pass failed")}
		second := &fakeBackend{name: "geometric", available: true, registerEnc: enc}

		cascade := NewCascade(first, second)
		got, err := cascade.Register(nil, "alice")
		require.NoError(t, err)
		assert.Equal(t, enc, got)
	})

	t.Run("returns last error when every backend fails", func(t *testing.T) {
		t.Parallel()
		lastErr := errors.New("dlib unavailable")
		first := &fakeBackend{name: "deep", available: true, registerErr: errors.New("forward pass failed")}
		second := &fakeBackend{name: "geometric", available: true, registerErr: lastErr}

		cascade := NewCascade(first, second)
		_, err := cascade.Register(nil, "alice")
		assert.ErrorIs(t, err, lastErr)
	})

	t.Run("errors with no backends", func(t *testing.T) {
		t.Parallel()
		cascade := NewCascade()
		_, err := cascade.Register(nil, "alice")
		assert.ErrorIs(t, err, ErrNoBackendAvailable)
	})
}
