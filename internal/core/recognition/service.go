package recognition

import (
	"fmt"

	log "github.com/sirupsen/logrus"
)

// Service is the façade the HTTP handlers and camera loop talk to. It
// owns the decode step, the cascade and the persistence of encodings;
// callers hand it raw inputs (bytes, data URIs, file paths, frames) and
// get back domain results.
type Service struct {
	ingestor *Ingestor
	detector *Detector
	cascade  *Cascade
	store    EncodingStore
}

// NewService assembles the recognition façade.
func NewService(ingestor *Ingestor, detector *Detector, cascade *Cascade, store EncodingStore) *Service {
	return &Service{
		ingestor: ingestor,
		detector: detector,
		cascade:  cascade,
		store:    store,
	}
}

// Backends exposes the active backend names, highest priority first.
func (s *Service) Backends() []string {
	return s.cascade.Backends()
}

// RegisterFace decodes the input, encodes the single face it contains
// and persists the encoding for the user.
func (s *Service) RegisterFace(input interface{}, userID uint, username string) (*Encoding, error) {
	img, err := s.ingestor.Decode(input)
	if err != nil {
		return nil, err
	}
	defer img.Close()

	enc, err := s.cascade.Register(img, username)
	if err != nil {
		return nil, err
	}

	if err := s.store.SaveEncoding(userID, enc); err != nil {
		return nil, fmt.Errorf("persisting encoding: %w", err)
	}
	return enc, nil
}

// RecognizeFace decodes the input and runs it through the cascade
// against every stored encoding. An empty store is reported before any
// image work happens.
func (s *Service) RecognizeFace(input interface{}) (*Result, error) {
	stored, err := s.store.ListEncodings()
	if err != nil {
		return nil, fmt.Errorf("loading stored encodings: %w", err)
	}
	if len(stored) == 0 {
		return nil, ErrNoStoredEncodings
	}

	img, err := s.ingestor.Decode(input)
	if err != nil {
		return nil, err
	}
	defer img.Close()

	result, err := s.cascade.Recognize(img, stored)
	if err != nil {
		return nil, err
	}

	// Matched results carry the largest face's bounding box so clients
	// can annotate the frame they submitted.
	if result.Matched && s.detector != nil {
		if region, ok := LargestRegion(s.detector.Detect(img)); ok {
			result.FaceRegion = []int{region.Min.X, region.Min.Y, region.Dx(), region.Dy()}
		}
	}
	return result, nil
}

// Engagement statuses: one focused face, several faces competing for
// the frame, or nobody there at all.
const (
	EngagementFocused    = "engaged"
	EngagementDistracted = "distracted"
	EngagementAbsent     = "no_face"
)

// Engagement summarizes face presence in a frame. This is deliberately
// detection-only: it never touches stored identities, so it works with
// an empty database and costs one Haar pass.
type Engagement struct {
	Status    string `json:"status"`
	Engaged   bool   `json:"engaged"`
	FaceCount int    `json:"face_count"`
	Region    []int  `json:"face_region,omitempty"`
}

// DetectEngagement classifies the input as absent, focused (exactly one
// face) or distracted (several faces), with the largest face's region
// when one is visible.
func (s *Service) DetectEngagement(input interface{}) (*Engagement, error) {
	img, err := s.ingestor.Decode(input)
	if err != nil {
		return nil, err
	}
	defer img.Close()

	faces := s.detector.Detect(img)
	eng := &Engagement{Engaged: len(faces) == 1, FaceCount: len(faces)}
	switch len(faces) {
	case 0:
		eng.Status = EngagementAbsent
	case 1:
		eng.Status = EngagementFocused
	default:
		eng.Status = EngagementDistracted
	}
	if region, ok := LargestRegion(faces); ok {
		eng.Region = []int{region.Min.X, region.Min.Y, region.Dx(), region.Dy()}
	}
	log.Debugf("Engagement check: %d face(s) detected (%s)", len(faces), eng.Status)
	return eng, nil
}
