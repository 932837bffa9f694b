package client

import (
	"context"
	"fmt"
	"image/color"

	"github.com/nfnt/resize"
	"github.com/terraed/backend/internal/common"
)

type Hasher interface {
	// Hash returns a 64-bit perceptual hash, visually similar media have
	// hashes with a small hamming distance.
	Hash(ctx context.Context, media *Media) (uint64, error)
}

type differenceHasher struct{}

// NewDifferenceHasher returns a dHash implementation: the image is shrunk to
// 9x8 gray pixels and each bit tells whether a pixel is brighter than its
// right neighbour.
func NewDifferenceHasher() *differenceHasher {
	return &differenceHasher{}
}

func (h *differenceHasher) Hash(ctx context.Context, media *Media) (uint64, error) {
	if media.IsVideo() {
		return 0, ErrUnsupportedMedia
	}

	// A format we cannot decode will not decode on a retry either.
	img, err := common.DecodeImage(media.Data)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnsupportedMedia, err)
	}

	small := resize.Resize(9, 8, img, resize.Bilinear)
	bounds := small.Bounds()

	var hash uint64
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			left := gray(small.At(bounds.Min.X+x, bounds.Min.Y+y))
			right := gray(small.At(bounds.Min.X+x+1, bounds.Min.Y+y))

			hash <<= 1
			if left > right {
				hash |= 1
			}
		}
	}

	return hash, nil
}

func gray(c color.Color) uint8 {
	return color.GrayModel.Convert(c).(color.Gray).Y
}
