package sse

import (
	"encoding/json"
	"time"

	"sync"

	"github.com/chaimanaouali/SmartCourses/internal/core/recognition"

	log "github.com/sirupsen/logrus"
)

// Client is a single connected SSE subscriber.
type Client chan []byte

// Hub tracks the set of active clients and fans broadcasts out to them.
type Hub struct {
	clients map[Client]bool

	broadcast  chan []byte
	register   chan Client
	unregister chan Client

	mu sync.Mutex
}

// RecognitionEventData is the shape pushed to SSE clients whenever a
// recognition pass completes, live or uploaded.
type RecognitionEventData struct {
	Timestamp  time.Time `json:"timestamp"`
	Source     string    `json:"source"`
	Matched    bool      `json:"matched"`
	Username   string    `json:"username,omitempty"`
	Confidence float64   `json:"confidence,omitempty"`
	Backend    string    `json:"backend,omitempty"`
	FaceRegion []int     `json:"face_region,omitempty"`
}

// NewHub creates a new hub instance.
func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan []byte, 100),
		register:   make(chan Client),
		unregister: make(chan Client),
		clients:    make(map[Client]bool),
	}
}

// Run starts the hub's processing loop. Run it in its own goroutine.
func (h *Hub) Run() {
	log.Info("SSE hub started and running")

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			clientCount := len(h.clients)
			h.mu.Unlock()
			log.Infof("SSE client registered. Total clients: %d", clientCount)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client)
				log.Infof("SSE client unregistered. Total clients: %d", len(h.clients))
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.Lock()
			log.Debugf("Broadcasting message to %d SSE clients", len(h.clients))

			for client := range h.clients {
				select {
				case client <- message:
				default:
					// Client channel full or closed
					log.Warn("SSE client channel full or closed, removing client")
					delete(h.clients, client)
					close(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Register registers a new client with the hub.
func (h *Hub) Register(client Client) {
	h.register <- client
}

// Unregister removes a client from the hub.
func (h *Hub) Unregister(client Client) {
	h.unregister <- client
}

// Broadcast queues a message for all registered clients. Messages are
// dropped rather than blocking when the queue is full.
func (h *Hub) Broadcast(message []byte) {
	select {
	case h.broadcast <- message:
	default:
		log.Warn("SSE broadcast channel full, message dropped")
	}
}

// BroadcastRecognition formats a recognition result and broadcasts it.
func (h *Hub) BroadcastRecognition(source string, result *recognition.Result) {
	data := RecognitionEventData{
		Timestamp: time.Now(),
		Source:    source,
		Matched:   result.Matched,
	}
	if result.Matched {
		data.Username = result.Username
		data.Confidence = result.Confidence
		data.Backend = result.Backend
		data.FaceRegion = result.FaceRegion
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		log.Errorf("Failed to marshal recognition event for SSE: %v", err)
		return
	}
	h.Broadcast(jsonData)
}
