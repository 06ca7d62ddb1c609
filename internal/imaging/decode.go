// Package imaging holds the pixel work around the models: decoding, the
// detection pyramid, face chip alignment and jittering.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/kozaktomas/facerec/internal/model"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Decode decodes an image in any registered format.
func Decode(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, model.ImageDecodeError("empty image", nil)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, model.ImageDecodeError("failed to decode image", err)
	}
	if img.Bounds().Empty() {
		return nil, model.ImageDecodeError("image has no pixels", nil)
	}
	return img, nil
}

// DecodeFile reads and decodes the image at path.
func DecodeFile(path string) (image.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, model.ImageDecodeError(fmt.Sprintf("failed to read %s", path), err)
	}
	return Decode(data)
}
