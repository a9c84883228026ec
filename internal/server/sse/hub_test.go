package sse

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/chaimanaouali/SmartCourses/internal/core/recognition"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receiveOrTimeout(t *testing.T, client Client) []byte {
	t.Helper()
	select {
	case msg := <-client:
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for SSE message")
		return nil
	}
}

func TestHubBroadcast(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	first := make(Client, 10)
	second := make(Client, 10)
	hub.Register(first)
	hub.Register(second)

	hub.Broadcast([]byte("hello"))

	assert.Equal(t, []byte("hello"), receiveOrTimeout(t, first))
	assert.Equal(t, []byte("hello"), receiveOrTimeout(t, second))
}

func TestHubUnregisterClosesClient(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := make(Client, 10)
	hub.Register(client)
	hub.Unregister(client)

	select {
	case _, open := <-client:
		assert.False(t, open, "unregistered client channel must be closed")
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for client channel to close")
	}
}

func TestBroadcastRecognition(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := make(Client, 10)
	hub.Register(client)

	t.Run("matched result carries identity", func(t *testing.T) {
		hub.BroadcastRecognition("camera", &recognition.Result{
			Matched:    true,
			Username:   "alice",
			Confidence: 0.87,
			Backend:    "geometric",
		})

		var data RecognitionEventData
		require.NoError(t, json.Unmarshal(receiveOrTimeout(t, client), &data))
		assert.Equal(t, "camera", data.Source)
		assert.True(t, data.Matched)
		assert.Equal(t, "alice", data.Username)
		assert.Equal(t, "geometric", data.Backend)
		assert.InDelta(t, 0.87, data.Confidence, 1e-9)
	})

	t.Run("miss omits identity fields", func(t *testing.T) {
		hub.BroadcastRecognition("upload", &recognition.Result{Matched: false})

		var data RecognitionEventData
		require.NoError(t, json.Unmarshal(receiveOrTimeout(t, client), &data))
		assert.Equal(t, "upload", data.Source)
		assert.False(t, data.Matched)
		assert.Empty(t, data.Username)
	})
}
