package common

import (
	"bytes"
	"errors"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
)

var ErrUnsupportedImage = errors.New("we just accept jpeg, gif or png")

// DecodeImage decodes a jpeg, png or gif image from its raw bytes.
func DecodeImage(data []byte) (image.Image, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, ErrUnsupportedImage
		}

		return nil, err
	}

	switch format {
	case "jpeg", "png", "gif":
		return img, nil
	default:
		return nil, ErrUnsupportedImage
	}
}
