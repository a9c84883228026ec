package recognition

import (
	"errors"

	log "github.com/sirupsen/logrus"
)

// Cascade runs the recognition backends in fixed priority order and
// short-circuits on the first match. Backend availability is probed
// once at construction: a backend that cannot initialize is excluded
// for the lifetime of the cascade, it is never retried per request.
type Cascade struct {
	backends []Backend
}

// NewCascade probes the given backends in order and keeps the available
// ones. Pass backends highest-priority first.
func NewCascade(backends ...Backend) *Cascade {
	c := &Cascade{}
	for _, b := range backends {
		if b == nil {
			continue
		}
		if !b.Available() {
			log.Warnf("Recognition backend '%s' unavailable, excluded from cascade", b.Name())
			continue
		}
		c.backends = append(c.backends, b)
		log.Infof("Recognition backend '%s' active", b.Name())
	}
	return c
}

// Backends returns the names of the active backends in priority order.
func (c *Cascade) Backends() []string {
	names := make([]string, len(c.backends))
	for i, b := range c.backends {
		names[i] = b.Name()
	}
	return names
}

// Register encodes the face with the highest-priority backend that
// succeeds. Face-count errors (none or several) abort immediately; other
// backend failures fall through to the next backend.
func (c *Cascade) Register(img *DecodedImage, username string) (*Encoding, error) {
	if len(c.backends) == 0 {
		return nil, ErrNoBackendAvailable
	}

	var lastErr error
	for _, b := range c.backends {
		enc, err := b.Register(img, username)
		if err == nil {
			log.Infof("Registered face for '%s' via '%s' backend", username, b.Name())
			return enc, nil
		}
		if errors.Is(err, ErrNoFaceDetected) || errors.Is(err, ErrMultipleFaces) {
			return nil, err
		}
		log.WithError(err).Warnf("Backend '%s' failed to register, trying next", b.Name())
		lastErr = err
	}
	return nil, lastErr
}

// Recognize tries each active backend in order and returns the first
// match. A backend returning no match falls through to the next; the
// final result carries the name of the backend that produced it.
func (c *Cascade) Recognize(img *DecodedImage, stored []StoredEncoding) (*Result, error) {
	if len(c.backends) == 0 {
		return nil, ErrNoBackendAvailable
	}

	for _, b := range c.backends {
		match, confidence := b.Recognize(img, stored)
		if match != nil {
			return &Result{
				Matched:    true,
				UserID:     match.UserID,
				Username:   match.Username,
				Confidence: clampConfidence(confidence),
				Backend:    b.Name(),
			}, nil
		}
		log.Debugf("Backend '%s' produced no match (best %.4f), falling through", b.Name(), confidence)
	}

	return &Result{Matched: false}, nil
}
