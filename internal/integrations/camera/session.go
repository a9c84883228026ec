package camera

import (
	"fmt"
	"sync"

	"github.com/chaimanaouali/SmartCourses/config"

	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

// Session owns one open capture device. Frames are read on demand; the
// most recent frame is cached so concurrent readers (snapshot endpoint,
// live recognizer) never contend on the device itself.
type Session struct {
	cfg     config.CameraConfig
	capture *gocv.VideoCapture

	mu        sync.Mutex
	lastFrame gocv.Mat
	hasFrame  bool
	closed    bool
}

// Open opens the configured capture device and applies the frame
// geometry and rate settings.
func Open(cfg config.CameraConfig) (*Session, error) {
	capture, err := gocv.OpenVideoCapture(cfg.DeviceIndex)
	if err != nil {
		return nil, fmt.Errorf("opening capture device %d: %w", cfg.DeviceIndex, err)
	}

	capture.Set(gocv.VideoCaptureFrameWidth, float64(cfg.FrameWidth))
	capture.Set(gocv.VideoCaptureFrameHeight, float64(cfg.FrameHeight))
	capture.Set(gocv.VideoCaptureFPS, float64(cfg.FPS))

	log.Infof("Camera device %d opened (%dx%d @ %d fps)",
		cfg.DeviceIndex, cfg.FrameWidth, cfg.FrameHeight, cfg.FPS)

	return &Session{
		cfg:       cfg,
		capture:   capture,
		lastFrame: gocv.NewMat(),
	}, nil
}

// ReadFrame grabs the next frame from the device and updates the
// cached copy. The returned Mat is a clone owned by the caller.
func (s *Session) ReadFrame() (gocv.Mat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return gocv.Mat{}, fmt.Errorf("camera session is closed")
	}

	frame := gocv.NewMat()
	if ok := s.capture.Read(&frame); !ok || frame.Empty() {
		frame.Close()
		return gocv.Mat{}, fmt.Errorf("failed to read frame from device %d", s.cfg.DeviceIndex)
	}

	s.lastFrame.Close()
	s.lastFrame = frame
	s.hasFrame = true
	return frame.Clone(), nil
}

// LastFrame returns a clone of the most recently read frame, or false
// when no frame has been read yet.
func (s *Session) LastFrame() (gocv.Mat, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hasFrame || s.closed {
		return gocv.Mat{}, false
	}
	return s.lastFrame.Clone(), true
}

// Close releases the device and the cached frame. Safe to call more
// than once.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.lastFrame.Close()
	if err := s.capture.Close(); err != nil {
		return fmt.Errorf("closing capture device: %w", err)
	}
	log.Infof("Camera device %d closed", s.cfg.DeviceIndex)
	return nil
}
