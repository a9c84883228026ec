package camera

import (
	"fmt"
	"sync"
	"time"

	"github.com/chaimanaouali/SmartCourses/config"
	"github.com/chaimanaouali/SmartCourses/internal/core/recognition"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Manager tracks live recognition sessions by opaque handle. The
// capture device is exclusive, so only one live session may run at a
// time; Start while a session is active returns the existing handle's
// conflict error instead of fighting over the device.
type Manager struct {
	cfg     config.CameraConfig
	service *recognition.Service

	mu         sync.Mutex
	sessionID  string
	session    *Session
	recognizer *LiveRecognizer
}

// NewManager creates a camera session manager.
func NewManager(cfg config.CameraConfig, service *recognition.Service) *Manager {
	return &Manager{cfg: cfg, service: service}
}

// Start opens the device and begins live recognition, returning the
// new session's handle.
func (m *Manager) Start(callback FrameCallback) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session != nil {
		return "", fmt.Errorf("live session %s is already running", m.sessionID)
	}

	session, err := Open(m.cfg)
	if err != nil {
		return "", err
	}

	interval := time.Duration(m.cfg.IntervalSeconds * float64(time.Second))
	recognizer := NewLiveRecognizer(session, m.service, interval, callback)
	recognizer.Start()

	m.sessionID = uuid.New().String()
	m.session = session
	m.recognizer = recognizer
	log.Infof("Live camera session %s started", m.sessionID)
	return m.sessionID, nil
}

// Stop ends the live session identified by the handle. Stopping an
// unknown or already stopped handle is an error the caller can report.
func (m *Manager) Stop(sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil || m.sessionID != sessionID {
		return fmt.Errorf("no live session with id %s", sessionID)
	}

	m.recognizer.Stop()
	if err := m.session.Close(); err != nil {
		log.WithError(err).Warn("Error closing camera session")
	}

	log.Infof("Live camera session %s stopped", sessionID)
	m.sessionID = ""
	m.session = nil
	m.recognizer = nil
	return nil
}

// Active returns the running session's handle, or false when idle.
func (m *Manager) Active() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionID, m.session != nil
}

// Snapshot captures a single frame outside any live session. When a
// live session holds the device, the cached last frame is returned
// instead of opening the device a second time.
func (m *Manager) Snapshot() ([]byte, error) {
	m.mu.Lock()
	session := m.session
	m.mu.Unlock()

	if session != nil {
		frame, ok := session.LastFrame()
		if !ok {
			return nil, fmt.Errorf("live session has not produced a frame yet")
		}
		defer frame.Close()
		return encodeJPEG(frame)
	}

	oneShot, err := Open(m.cfg)
	if err != nil {
		return nil, err
	}
	defer oneShot.Close()

	frame, err := oneShot.ReadFrame()
	if err != nil {
		return nil, err
	}
	defer frame.Close()
	return encodeJPEG(frame)
}

// Shutdown force-stops any running session.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil {
		return
	}
	m.recognizer.Stop()
	if err := m.session.Close(); err != nil {
		log.WithError(err).Warn("Error closing camera session during shutdown")
	}
	m.sessionID = ""
	m.session = nil
	m.recognizer = nil
}
