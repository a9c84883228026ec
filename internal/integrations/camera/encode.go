package camera

import (
	"fmt"

	"gocv.io/x/gocv"
)

// encodeJPEG turns a frame into JPEG bytes for HTTP responses and
// snapshot files.
func encodeJPEG(frame gocv.Mat) ([]byte, error) {
	buf, err := gocv.IMEncode(".jpg", frame)
	if err != nil {
		return nil, fmt.Errorf("encoding frame: %w", err)
	}
	defer buf.Close()

	data := make([]byte, len(buf.GetBytes()))
	copy(data, buf.GetBytes())
	return data, nil
}
