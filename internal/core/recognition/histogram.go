package recognition

import (
	"image"

	"github.com/chaimanaouali/SmartCourses/config"

	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/floats"
)

// HistogramBackend is the dependency-free fallback: the face crop is
// grayscaled, resized to a fixed square and flattened into an intensity
// vector, and matching is cosine similarity. It is crude but always
// available as long as the Haar detector is.
type HistogramBackend struct {
	cfg      config.HistogramConfig
	detector *Detector
}

// NewHistogramBackend wires the pixel-intensity fallback backend.
func NewHistogramBackend(cfg config.HistogramConfig, detector *Detector) *HistogramBackend {
	return &HistogramBackend{cfg: cfg, detector: detector}
}

// Name returns the backend's model tag.
func (b *HistogramBackend) Name() string { return ModelHistogram }

// Available is true whenever the backend is enabled; there is no model
// to load beyond the shared detector.
func (b *HistogramBackend) Available() bool {
	return b.cfg.Enabled && b.detector != nil
}

// Register flattens the largest detected face into a normalized
// intensity vector.
func (b *HistogramBackend) Register(img *DecodedImage, username string) (*Encoding, error) {
	faces := b.detector.Detect(img)
	if len(faces) == 0 {
		return nil, ErrNoFaceDetected
	}

	region, _ := LargestRegion(faces)
	vector, err := b.vectorize(img.Mat, region)
	if err != nil {
		return nil, err
	}
	return &Encoding{
		Model:      ModelHistogram,
		Vector:     vector,
		Normalized: true,
		FaceRegion: []int{region.Min.X, region.Min.Y, region.Dx(), region.Dy()},
	}, nil
}

// Recognize vectorizes the largest detected face and picks the stored
// histogram entry with the highest cosine similarity, remapped from
// [-1,1] onto [0,1]. Entries whose vector length differs from the probe
// score zero rather than erroring.
func (b *HistogramBackend) Recognize(img *DecodedImage, stored []StoredEncoding) (*StoredEncoding, float64) {
	faces := b.detector.Detect(img)
	if len(faces) == 0 {
		log.Debug("Histogram backend: no faces detected")
		return nil, 0
	}

	region, _ := LargestRegion(faces)
	probe, err := b.vectorize(img.Mat, region)
	if err != nil {
		log.WithError(err).Warn("Histogram backend: vectorize failed")
		return nil, 0
	}

	var best *StoredEncoding
	bestScore := 0.0
	for i := range stored {
		entry := &stored[i]
		if entry.Encoding.Model != ModelHistogram {
			continue
		}
		score := cosineSimilarity(probe, entry.Encoding.Vector)
		if score > bestScore {
			bestScore = score
			best = entry
		}
	}

	if best == nil || bestScore < b.cfg.Threshold {
		return nil, bestScore
	}
	log.Debugf("Histogram backend: matched '%s' with similarity %.4f", best.Username, bestScore)
	return best, bestScore
}

// vectorize crops, grayscales and resizes the face region, then
// flattens it to a unit-length float vector.
func (b *HistogramBackend) vectorize(mat gocv.Mat, region image.Rectangle) ([]float64, error) {
	crop := mat.Region(region)
	defer crop.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(crop, &gray, gocv.ColorBGRToGray)

	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(gray, &resized, image.Pt(b.cfg.FaceSize, b.cfg.FaceSize), 0, 0, gocv.InterpolationLinear)

	pixels, err := resized.DataPtrUint8()
	if err != nil {
		return nil, ErrEncodingFailed
	}

	vector := make([]float64, len(pixels))
	for i, p := range pixels {
		vector[i] = float64(p)
	}

	norm := floats.Norm(vector, 2)
	if norm == 0 {
		return nil, ErrEncodingFailed
	}
	floats.Scale(1/norm, vector)
	return vector, nil
}

// cosineSimilarity remaps cosine from [-1,1] to [0,1]. Mismatched or
// degenerate vectors score zero.
func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	normA := floats.Norm(a, 2)
	normB := floats.Norm(b, 2)
	if normA == 0 || normB == 0 {
		return 0
	}
	cos := floats.Dot(a, b) / (normA * normB)
	return clampConfidence((cos + 1) / 2)
}
