package recognition

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"io"
	"os"
	"strings"

	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

// dataURIPrefix marks a base64-encoded inline image.
const dataURIPrefix = "data:image"

// DecodedImage is the canonical in-memory representation of an ingested
// image: a 3-channel BGR pixel buffer plus the provenance of how it was
// obtained. Images produced by decoding own their Mat and must be
// Closed; images wrapping a caller-provided Mat leave its lifetime to
// the caller.
type DecodedImage struct {
	Mat    gocv.Mat
	Source string

	// borrowed marks a Mat owned by the caller. Close leaves it alone
	// so that a frame passed through Decode is not freed twice.
	borrowed bool
}

// Close releases the pixel buffer, unless the Mat is caller-owned.
func (d *DecodedImage) Close() {
	if d == nil || d.borrowed {
		return
	}
	if !d.Mat.Empty() {
		d.Mat.Close()
	}
}

// Ingestor normalizes heterogeneous image inputs into a DecodedImage.
// It is stateless and safe for concurrent use.
type Ingestor struct{}

// NewIngestor creates an Ingestor.
func NewIngestor() *Ingestor {
	return &Ingestor{}
}

// Decode accepts, in this fixed order: a pre-decoded gocv.Mat, a raw byte
// buffer, a base64 data-URI string, a file-path string, or an io.Reader.
// The decode is pure; nothing is written to disk.
func (Ingestor) Decode(input interface{}) (*DecodedImage, error) {
	switch v := input.(type) {
	case gocv.Mat:
		if v.Empty() {
			return nil, ErrEmptyImage
		}
		return &DecodedImage{Mat: v, Source: "buffer", borrowed: true}, nil

	case *DecodedImage:
		if v == nil || v.Mat.Empty() {
			return nil, ErrEmptyImage
		}
		return &DecodedImage{Mat: v.Mat, Source: v.Source, borrowed: true}, nil

	case []byte:
		return decodeBytes(v, "bytes")

	case string:
		if strings.HasPrefix(v, dataURIPrefix) {
			return decodeDataURI(v)
		}
		if _, err := os.Stat(v); err == nil {
			return decodeFile(v)
		}
		return nil, fmt.Errorf("%w: string is neither a data URI nor an existing file", ErrUnsupportedInput)

	case io.Reader:
		return decodeReader(v)
	}

	return nil, fmt.Errorf("%w: %T", ErrUnsupportedInput, input)
}

// decodeDataURI splits off the base64 payload of a data URI and decodes it.
func decodeDataURI(uri string) (*DecodedImage, error) {
	idx := strings.Index(uri, ",")
	if idx < 0 || idx == len(uri)-1 {
		return nil, ErrEmptyImage
	}
	payload, err := base64.StdEncoding.DecodeString(uri[idx+1:])
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base64 payload: %v", ErrCorruptImage, err)
	}
	if len(payload) == 0 {
		return nil, ErrEmptyImage
	}
	return decodeBytes(payload, "data-uri")
}

// decodeFile reads an image directly from disk.
func decodeFile(path string) (*DecodedImage, error) {
	mat := gocv.IMRead(path, gocv.IMReadColor)
	if mat.Empty() {
		return nil, fmt.Errorf("%w: %s", ErrCorruptImage, path)
	}
	return &DecodedImage{Mat: mat, Source: "file"}, nil
}

// decodeReader drains a stream and decodes its content. The position is
// reset first when the stream is seekable.
func decodeReader(r io.Reader) (*DecodedImage, error) {
	if seeker, ok := r.(io.Seeker); ok {
		if _, err := seeker.Seek(0, io.SeekStart); err != nil {
			log.Warnf("Failed to rewind image stream: %v", err)
		}
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptImage, err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}
	return decodeBytes(data, "stream")
}

// decodeBytes decodes raw image bytes, trying OpenCV first and the Go
// image codecs (jpeg/png/bmp/webp) as a fallback.
func decodeBytes(data []byte, source string) (*DecodedImage, error) {
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}

	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err == nil && !mat.Empty() {
		return &DecodedImage{Mat: mat, Source: source}, nil
	}
	if err == nil {
		mat.Close()
	}

	// Fallback: standard library / x/image decoders, converted to BGR.
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptImage, err)
	}
	log.Debugf("OpenCV decode failed, loaded %s image via Go codec fallback", format)

	rgb, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptImage, err)
	}
	defer rgb.Close()

	bgr := gocv.NewMat()
	gocv.CvtColor(rgb, &bgr, gocv.ColorRGBToBGR)
	return &DecodedImage{Mat: bgr, Source: source}, nil
}
