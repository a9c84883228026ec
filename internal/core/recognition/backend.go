package recognition

// Backend is one face-encoding/matching implementation. The cascade
// iterates an ordered list of them; each backend matches only against
// the stored encodings whose shape it recognizes and silently ignores
// the rest.
type Backend interface {
	// Name returns the backend's model tag.
	Name() string

	// Available reports whether the backend's model initialized. An
	// unavailable backend is excluded from the cascade for the process
	// lifetime, not retried per call.
	Available() bool

	// Register produces the encoding record to persist for username.
	Register(img *DecodedImage, username string) (*Encoding, error)

	// Recognize matches img against stored and returns the matched
	// entry with a confidence in [0,1], or (nil, confidence) when no
	// match is accepted. Internal failures surface as (nil, 0), never
	// as a panic.
	Recognize(img *DecodedImage, stored []StoredEncoding) (*StoredEncoding, float64)
}

// Result is the transient outcome of one recognition call.
type Result struct {
	Matched    bool    `json:"matched"`
	UserID     uint    `json:"user_id,omitempty"`
	Username   string  `json:"username,omitempty"`
	Confidence float64 `json:"confidence"`
	Backend    string  `json:"backend,omitempty"`
	FaceRegion []int   `json:"face_region,omitempty"`
}

// clampConfidence bounds a score to [0,1].
func clampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
