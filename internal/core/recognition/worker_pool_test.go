package recognition

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerPoolRecognize(t *testing.T) {
	store := newFakeStore()
	store.encodings = []StoredEncoding{{UserID: 2, Username: "bob", Encoding: Encoding{Model: ModelDeep}}}
	backend := &fakeBackend{name: "deep", available: true, match: &store.encodings[0], confidence: 0.75}

	pool := NewWorkerPool(NewService(NewIngestor(), nil, NewCascade(backend), store))
	defer pool.Shutdown()

	assert.GreaterOrEqual(t, pool.WorkerCount(), 2)
	assert.Equal(t, pool.WorkerCount()*2, pool.QueueCapacity())

	result, err := pool.Recognize(context.Background(), smallPNG(t), "upload")
	require.NoError(t, err)
	assert.True(t, result.Matched)
	assert.Equal(t, "bob", result.Username)
}

func TestWorkerPoolHonorsContextCancellation(t *testing.T) {
	store := newFakeStore()
	store.encodings = []StoredEncoding{{UserID: 1, Username: "alice"}}
	backend := &fakeBackend{name: "deep", available: true}

	pool := NewWorkerPool(NewService(NewIngestor(), nil, NewCascade(backend), store))
	defer pool.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := pool.Recognize(ctx, smallPNG(t), "upload")
	// Either the job was never submitted or its result was abandoned;
	// both surface the context error.
	if err != nil {
		assert.ErrorIs(t, err, context.Canceled)
	}
}

func TestWorkerPoolActiveJobCountSettles(t *testing.T) {
	store := newFakeStore()
	store.encodings = []StoredEncoding{{UserID: 1, Username: "alice"}}
	backend := &fakeBackend{name: "deep", available: true}

	pool := NewWorkerPool(NewService(NewIngestor(), nil, NewCascade(backend), store))
	defer pool.Shutdown()

	for i := 0; i < 4; i++ {
		_, err := pool.Recognize(context.Background(), smallPNG(t), "upload")
		require.NoError(t, err)
	}

	assert.Eventually(t, func() bool {
		return pool.ActiveJobCount() == 0
	}, time.Second, 10*time.Millisecond)
}
