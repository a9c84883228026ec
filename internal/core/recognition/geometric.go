package recognition

import (
	"fmt"
	"os"
	"sync"

	"github.com/chaimanaouali/SmartCourses/config"

	face "github.com/Kagami/go-face"
	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/floats"
)

// GeometricBackend derives a 128-dimensional facial embedding via dlib
// and matches by Euclidean distance. Unlike the deep classifier it needs
// no per-identity training: any face registered once is matchable.
type GeometricBackend struct {
	cfg config.GeometricConfig

	loadOnce sync.Once
	loadErr  error
	rec      *face.Recognizer
	recMu    sync.Mutex
}

// NewGeometricBackend wires the dlib embedding backend. Model files are
// loaded lazily on first use.
func NewGeometricBackend(cfg config.GeometricConfig) *GeometricBackend {
	return &GeometricBackend{cfg: cfg}
}

// Name returns the backend's model tag.
func (b *GeometricBackend) Name() string { return ModelGeometric }

// Available reports whether the dlib models loaded.
func (b *GeometricBackend) Available() bool {
	if !b.cfg.Enabled {
		return false
	}
	return b.lazyLoad() == nil
}

func (b *GeometricBackend) lazyLoad() error {
	b.loadOnce.Do(func() {
		if _, err := os.Stat(b.cfg.ModelsDir); err != nil {
			b.loadErr = fmt.Errorf("%w: dlib models dir %s: %v", ErrModelUnavailable, b.cfg.ModelsDir, err)
			return
		}
		rec, err := face.NewRecognizer(b.cfg.ModelsDir)
		if err != nil {
			b.loadErr = fmt.Errorf("%w: dlib recognizer: %v", ErrModelUnavailable, err)
			return
		}
		b.rec = rec
		log.Infof("Geometric face recognizer loaded from %s", b.cfg.ModelsDir)
	})
	return b.loadErr
}

// Register computes the 128-d embedding of the first detected face. At
// least one face is required; additional faces are ignored rather than
// rejected, dlib's own detector orders them deterministically.
func (b *GeometricBackend) Register(img *DecodedImage, username string) (*Encoding, error) {
	if err := b.lazyLoad(); err != nil {
		return nil, err
	}

	faces, err := b.embed(img)
	if err != nil {
		return nil, err
	}
	if len(faces) == 0 {
		return nil, ErrNoFaceDetected
	}

	vector := descriptorToVector(faces[0].Descriptor)
	r := faces[0].Rectangle
	return &Encoding{
		Model:      ModelGeometric,
		Vector:     vector,
		FaceRegion: []int{r.Min.X, r.Min.Y, r.Dx(), r.Dy()},
	}, nil
}

// Recognize embeds the first detected face and returns the stored entry
// with the smallest Euclidean distance, when that distance is within the
// acceptance threshold. Confidence maps the distance linearly onto
// [0,1]: zero distance is full confidence, the threshold is zero.
func (b *GeometricBackend) Recognize(img *DecodedImage, stored []StoredEncoding) (*StoredEncoding, float64) {
	if err := b.lazyLoad(); err != nil {
		log.WithError(err).Debug("Geometric backend not loaded")
		return nil, 0
	}

	faces, err := b.embed(img)
	if err != nil {
		log.WithError(err).Warn("Geometric backend: embedding failed")
		return nil, 0
	}
	if len(faces) == 0 {
		log.Debug("Geometric backend: no faces detected")
		return nil, 0
	}

	probe := descriptorToVector(faces[0].Descriptor)

	var best *StoredEncoding
	bestDist := b.cfg.Threshold
	for si := range stored {
		entry := &stored[si]
		if entry.Encoding.Model != ModelGeometric {
			continue
		}
		if len(entry.Encoding.Vector) != geometricDimensions {
			continue
		}
		d := floats.Distance(probe, entry.Encoding.Vector, 2)
		if d <= bestDist {
			bestDist = d
			best = entry
		}
	}

	if best == nil {
		return nil, 0
	}
	confidence := clampConfidence(1 - bestDist/b.cfg.Threshold)
	log.Debugf("Geometric backend: matched '%s' at distance %.4f (confidence %.2f)",
		best.Username, bestDist, confidence)
	return best, confidence
}

// embed hands the image to dlib as JPEG bytes; dlib runs its own face
// detector and returns one descriptor per face.
func (b *GeometricBackend) embed(img *DecodedImage) ([]face.Face, error) {
	buf, err := gocv.IMEncode(".jpg", img.Mat)
	if err != nil {
		return nil, fmt.Errorf("%w: jpeg encode: %v", ErrEncodingFailed, err)
	}
	defer buf.Close()

	b.recMu.Lock()
	defer b.recMu.Unlock()

	faces, err := b.rec.Recognize(buf.GetBytes())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncodingFailed, err)
	}
	return faces, nil
}

func descriptorToVector(d face.Descriptor) []float64 {
	v := make([]float64, len(d))
	for i, f := range d {
		v[i] = float64(f)
	}
	return v
}

// Close releases the dlib recognizer.
func (b *GeometricBackend) Close() {
	b.recMu.Lock()
	defer b.recMu.Unlock()
	if b.rec != nil {
		b.rec.Close()
		b.rec = nil
	}
}
