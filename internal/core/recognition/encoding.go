package recognition

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Backend model tags. The tag is the discriminator of the persisted
// encoding record; every encoding is traceable to exactly one backend.
const (
	ModelDeep      = "deep"
	ModelGeometric = "geometric"
	ModelHistogram = "histogram"
)

// geometricDimensions is the descriptor length of the pretrained
// embedding model; bare float lists of this length are accepted as
// legacy geometric encodings.
const geometricDimensions = 128

// Encoding is a backend-tagged face descriptor. Exactly one shape per
// model tag is populated:
//
//	deep:      Username, Confidence, FaceRegion
//	geometric: Vector (128 floats)
//	histogram: Vector (flattened face pixels), Normalized
//
// An Encoding is immutable once produced. The serialized JSON shape is
// stability-critical: previously registered records must keep decoding.
type Encoding struct {
	Model      string    `json:"model"`
	Username   string    `json:"username,omitempty"`
	Confidence float64   `json:"confidence,omitempty"`
	FaceRegion []int     `json:"face_region,omitempty"`
	Vector     []float64 `json:"encoding,omitempty"`
	Normalized bool      `json:"normalized,omitempty"`
}

// StoredEncoding associates a user identity with one persisted Encoding.
type StoredEncoding struct {
	UserID   uint
	Username string
	Encoding Encoding
}

// ParseEncoding decodes a persisted encoding record. A legacy bare list
// of 128 floats is accepted as an implicit geometric encoding; records
// with an unrecognized model tag parse cleanly and are skipped by every
// backend at match time rather than rejected here.
func ParseEncoding(data []byte) (*Encoding, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, fmt.Errorf("empty encoding record")
	}

	if trimmed[0] == '[' {
		var vector []float64
		if err := json.Unmarshal(trimmed, &vector); err != nil {
			return nil, fmt.Errorf("malformed legacy encoding: %w", err)
		}
		if len(vector) != geometricDimensions {
			return nil, fmt.Errorf("legacy encoding has %d values, want %d", len(vector), geometricDimensions)
		}
		return &Encoding{Model: ModelGeometric, Vector: vector}, nil
	}

	var enc Encoding
	if err := json.Unmarshal(trimmed, &enc); err != nil {
		return nil, fmt.Errorf("malformed encoding record: %w", err)
	}
	if enc.Model == "" {
		return nil, fmt.Errorf("encoding record has no model tag")
	}
	return &enc, nil
}

// Marshal serializes the encoding to its persisted JSON shape.
func (e *Encoding) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// EncodingStore is the identity-store surface the recognition core
// consumes: all identities with a non-null stored encoding, plus writes
// at registration time. The relational layer implements it.
type EncodingStore interface {
	ListEncodings() ([]StoredEncoding, error)
	SaveEncoding(userID uint, enc *Encoding) error
}
