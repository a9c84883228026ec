package recognition

import (
	"fmt"
	"image"
	"os"
	"sync"

	"github.com/chaimanaouali/SmartCourses/config"

	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

// Detector locates face bounding boxes using the classical Haar cascade
// classifier. It is fast enough for live camera use at the cost of missed
// profile or occluded faces; that trade-off is intentional.
type Detector struct {
	cfg        config.DetectorConfig
	classifier gocv.CascadeClassifier
	mu         sync.Mutex
}

// NewDetector loads the cascade file and returns a ready detector.
func NewDetector(cfg config.DetectorConfig) (*Detector, error) {
	if _, err := os.Stat(cfg.CascadeFile); err != nil {
		return nil, fmt.Errorf("%w: cascade file %s: %v", ErrModelUnavailable, cfg.CascadeFile, err)
	}

	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(cfg.CascadeFile) {
		classifier.Close()
		return nil, fmt.Errorf("%w: failed to load cascade %s", ErrModelUnavailable, cfg.CascadeFile)
	}

	log.Infof("Face detector loaded from %s", cfg.CascadeFile)
	return &Detector{cfg: cfg, classifier: classifier}, nil
}

// Detect returns the face bounding boxes found in img. Zero detections is
// a valid outcome, signaled as an empty slice.
func (d *Detector) Detect(img *DecodedImage) []image.Rectangle {
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(img.Mat, &gray, gocv.ColorBGRToGray)

	// The underlying classifier is not safe for concurrent use.
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.classifier.DetectMultiScaleWithParams(
		gray,
		d.cfg.ScaleFactor,
		d.cfg.MinNeighbors,
		0,
		image.Pt(d.cfg.MinSizeWidth, d.cfg.MinSizeHeight),
		image.Pt(0, 0),
	)
}

// Close releases the classifier resources.
func (d *Detector) Close() {
	d.classifier.Close()
}

// LargestRegion selects the face of maximum area; ties are broken by
// first-encountered order. ok is false when regions is empty.
func LargestRegion(regions []image.Rectangle) (best image.Rectangle, ok bool) {
	bestArea := 0
	for _, r := range regions {
		area := r.Dx() * r.Dy()
		if area > bestArea {
			bestArea = area
			best = r
			ok = true
		}
	}
	return best, ok
}
