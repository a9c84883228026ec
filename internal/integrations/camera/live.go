package camera

import (
	"time"

	"github.com/chaimanaouali/SmartCourses/internal/core/recognition"

	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

// FrameCallback receives the outcome of each live recognition pass.
// The frame Mat has already been released when the callback runs; the
// callback gets the result only.
type FrameCallback func(result *recognition.Result, err error)

// frameSource yields frames for the loop; *Session satisfies it.
type frameSource interface {
	ReadFrame() (gocv.Mat, error)
}

type recognizeFunc func(input interface{}) (*recognition.Result, error)

// LiveRecognizer drives a background loop that samples frames from a
// source at a fixed interval and runs each through the recognition
// service. Callback panics are recovered so a misbehaving subscriber
// cannot kill the loop.
type LiveRecognizer struct {
	source    frameSource
	recognize recognizeFunc
	interval  time.Duration
	callback  FrameCallback

	stop chan struct{}
	done chan struct{}
}

// NewLiveRecognizer prepares a live recognition loop; Start begins it.
func NewLiveRecognizer(session *Session, service *recognition.Service, interval time.Duration, callback FrameCallback) *LiveRecognizer {
	return newLiveRecognizer(session, service.RecognizeFace, interval, callback)
}

func newLiveRecognizer(source frameSource, recognize recognizeFunc, interval time.Duration, callback FrameCallback) *LiveRecognizer {
	return &LiveRecognizer{
		source:    source,
		recognize: recognize,
		interval:  interval,
		callback:  callback,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start launches the sampling loop in its own goroutine.
func (l *LiveRecognizer) Start() {
	go l.run()
	log.Infof("Live recognition started (interval %v)", l.interval)
}

func (l *LiveRecognizer) run() {
	defer close(l.done)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.step()
		}
	}
}

func (l *LiveRecognizer) step() {
	frame, err := l.source.ReadFrame()
	if err != nil {
		log.WithError(err).Warn("Live recognition: frame read failed")
		l.invoke(nil, err)
		return
	}

	result, err := l.recognize(frame)
	frame.Close()

	// An empty database is the normal state before anyone registers;
	// treat it as "no match" instead of spamming the error callback.
	if err == recognition.ErrNoStoredEncodings {
		l.invoke(&recognition.Result{Matched: false}, nil)
		return
	}
	l.invoke(result, err)
}

func (l *LiveRecognizer) invoke(result *recognition.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("Live recognition callback panicked: %v", r)
		}
	}()
	l.callback(result, err)
}

// Stop signals the loop to end and waits briefly for it to drain. A
// loop stuck inside a recognition pass is abandoned after the timeout
// rather than blocking the caller indefinitely.
func (l *LiveRecognizer) Stop() {
	select {
	case <-l.stop:
		// already stopped
		return
	default:
		close(l.stop)
	}

	select {
	case <-l.done:
	case <-time.After(2 * time.Second):
		log.Warn("Live recognition loop did not stop within timeout")
	}
	log.Info("Live recognition stopped")
}
