package recognition

import (
	"encoding/json"
	"fmt"
	"image"
	"os"
	"sync"

	"github.com/chaimanaouali/SmartCourses/config"

	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

// DeepBackend classifies a normalized face crop against a closed label
// vocabulary (one label per identity the CNN was trained on). It is the
// most accurate backend but brittle: matching couples the classifier's
// training-time label to the username persisted at registration time.
type DeepBackend struct {
	cfg      config.DeepConfig
	detector *Detector

	loadOnce sync.Once
	loadErr  error
	net      gocv.Net
	labels   []string
	netMu    sync.Mutex
}

// NewDeepBackend wires the CNN classifier backend. The model itself is
// loaded lazily on first use; loading is expensive and runs exactly once.
func NewDeepBackend(cfg config.DeepConfig, detector *Detector) *DeepBackend {
	return &DeepBackend{cfg: cfg, detector: detector}
}

// Name returns the backend's model tag.
func (b *DeepBackend) Name() string { return ModelDeep }

// Available reports whether the classifier loaded. The first call
// triggers the load; concurrent first use is serialized by sync.Once.
func (b *DeepBackend) Available() bool {
	if !b.cfg.Enabled || b.detector == nil {
		return false
	}
	return b.lazyLoad() == nil
}

func (b *DeepBackend) lazyLoad() error {
	b.loadOnce.Do(func() {
		if _, err := os.Stat(b.cfg.ModelFile); err != nil {
			b.loadErr = fmt.Errorf("%w: model file %s: %v", ErrModelUnavailable, b.cfg.ModelFile, err)
			return
		}

		labelData, err := os.ReadFile(b.cfg.LabelsFile)
		if err != nil {
			b.loadErr = fmt.Errorf("%w: labels file %s: %v", ErrModelUnavailable, b.cfg.LabelsFile, err)
			return
		}
		if err := json.Unmarshal(labelData, &b.labels); err != nil {
			b.loadErr = fmt.Errorf("%w: malformed labels file: %v", ErrModelUnavailable, err)
			return
		}

		net := gocv.ReadNet(b.cfg.ModelFile, "")
		if net.Empty() {
			b.loadErr = fmt.Errorf("%w: failed to load classifier %s", ErrModelUnavailable, b.cfg.ModelFile)
			return
		}
		b.net = net
		log.Infof("Deep face classifier loaded from %s with %d labels", b.cfg.ModelFile, len(b.labels))
	})
	return b.loadErr
}

// Register requires exactly one detected face. The classifier runs purely
// to sanity-check recognizability; the persisted record stores the
// registering username, not the classifier's own label guess.
func (b *DeepBackend) Register(img *DecodedImage, username string) (*Encoding, error) {
	if err := b.lazyLoad(); err != nil {
		return nil, err
	}

	faces := b.detector.Detect(img)
	if len(faces) == 0 {
		return nil, ErrNoFaceDetected
	}
	if len(faces) > 1 {
		return nil, ErrMultipleFaces
	}

	region := faces[0]
	_, confidence, err := b.classify(img.Mat, region)
	if err != nil {
		return nil, err
	}

	return &Encoding{
		Model:      ModelDeep,
		Username:   username,
		Confidence: confidence,
		FaceRegion: []int{region.Min.X, region.Min.Y, region.Dx(), region.Dy()},
	}, nil
}

// Recognize classifies the largest detected face and scans stored for an
// entry whose persisted username equals the predicted label. The match
// is accepted at confidence >= MatchMinConf; when no username matches
// but exactly one stored encoding exists and confidence >= SoleMinConf,
// that sole entry is accepted as a last-resort heuristic.
func (b *DeepBackend) Recognize(img *DecodedImage, stored []StoredEncoding) (*StoredEncoding, float64) {
	if err := b.lazyLoad(); err != nil {
		log.WithError(err).Debug("Deep backend not loaded")
		return nil, 0
	}

	faces := b.detector.Detect(img)
	if len(faces) == 0 {
		log.Debug("Deep backend: no faces detected")
		return nil, 0
	}

	region, _ := LargestRegion(faces)
	class, confidence, err := b.classify(img.Mat, region)
	if err != nil {
		log.WithError(err).Warn("Deep backend: classification failed")
		return nil, 0
	}

	if class < 0 || class >= len(b.labels) {
		log.Warnf("Deep backend: predicted class %d outside label vocabulary (%d labels)", class, len(b.labels))
		return nil, confidence
	}
	predicted := b.labels[class]
	log.Debugf("Deep backend: predicted '%s' with confidence %.4f", predicted, confidence)

	for i := range stored {
		entry := &stored[i]
		if entry.Encoding.Model != ModelDeep {
			continue
		}
		if entry.Encoding.Username == predicted {
			if confidence >= b.cfg.MatchMinConf {
				return entry, confidence
			}
			log.Debugf("Deep backend: match for '%s' rejected, confidence %.2f < %.2f",
				predicted, confidence, b.cfg.MatchMinConf)
			return nil, confidence
		}
	}

	// No username matched. With a single registered face and high
	// confidence, accept the sole entry; a misattribution risk that is
	// documented, not accidental.
	if len(stored) == 1 && confidence >= b.cfg.SoleMinConf {
		log.Debugf("Deep backend: accepting sole stored encoding at confidence %.2f", confidence)
		return &stored[0], confidence
	}

	return nil, confidence
}

// classify runs the crop through the CNN and returns the arg-max class
// and its probability.
func (b *DeepBackend) classify(mat gocv.Mat, region image.Rectangle) (int, float64, error) {
	face := mat.Region(region)
	defer face.Close()

	size := b.cfg.InputSize
	blob := gocv.BlobFromImage(
		face,
		1.0/255.0,
		image.Pt(size, size),
		gocv.NewScalar(0, 0, 0, 0),
		true,  // swap BGR to RGB
		false, // no crop
	)
	defer blob.Close()

	b.netMu.Lock()
	defer b.netMu.Unlock()

	b.net.SetInput(blob, "")
	prob := b.net.Forward("")
	defer prob.Close()

	if prob.Empty() || prob.Total() == 0 {
		return 0, 0, fmt.Errorf("%w: classifier produced no output", ErrEncodingFailed)
	}

	best := 0
	bestProb := float32(-1)
	for i := 0; i < prob.Cols(); i++ {
		p := prob.GetFloatAt(0, i)
		if p > bestProb {
			bestProb = p
			best = i
		}
	}
	return best, float64(bestProb), nil
}

// Close releases the loaded network.
func (b *DeepBackend) Close() {
	b.netMu.Lock()
	defer b.netMu.Unlock()
	if !b.net.Empty() {
		b.net.Close()
	}
}
