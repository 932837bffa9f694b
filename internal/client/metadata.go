package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rwcarlsen/goexif/exif"
)

var ErrNoMetadata = errors.New("media has no capture metadata")

type Metadata struct {
	CaptureTime time.Time

	HasLocation bool
	Latitude    float64
	Longitude   float64
}

type MetadataExtractor interface {
	Extract(ctx context.Context, media *Media) (*Metadata, error)
}

type exifExtractor struct{}

func NewExifExtractor() *exifExtractor {
	return &exifExtractor{}
}

func (e *exifExtractor) Extract(ctx context.Context, media *Media) (*Metadata, error) {
	if media.IsVideo() {
		return nil, ErrUnsupportedMedia
	}

	x, err := exif.Decode(bytes.NewReader(media.Data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoMetadata, err)
	}

	captureTime, err := x.DateTime()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoMetadata, err)
	}

	metadata := &Metadata{CaptureTime: captureTime}
	if lat, lng, err := x.LatLong(); err == nil {
		metadata.HasLocation = true
		metadata.Latitude = lat
		metadata.Longitude = lng
	}

	return metadata, nil
}
