package recognition

import "errors"

// Decode failures. Callers distinguish "no image supplied" from "image
// supplied but undecodable" for user-facing messaging.
var (
	ErrEmptyImage       = errors.New("empty image payload")
	ErrCorruptImage     = errors.New("image data could not be decoded")
	ErrUnsupportedInput = errors.New("unsupported image input type")
)

// Detection and registration failures.
var (
	ErrNoFaceDetected = errors.New("no face detected")
	ErrMultipleFaces  = errors.New("multiple faces detected")
	ErrEncodingFailed = errors.New("failed to compute face encoding")
)

// Backend and cascade failures.
var (
	ErrModelUnavailable   = errors.New("recognition model unavailable")
	ErrNoBackendAvailable = errors.New("no recognition backend available")
	ErrNoStoredEncodings  = errors.New("no registered faces found")
)
