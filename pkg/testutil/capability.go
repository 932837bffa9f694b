package testutil

import (
	"context"
	"time"

	"github.com/terraed/backend/internal/client"
	"github.com/terraed/backend/pkg/errorx"
)

type MockClassifier struct {
	ClassifyFunc func(context.Context, *client.Media, []string) (*client.Classification, error)
}

func (m *MockClassifier) Classify(
	ctx context.Context, media *client.Media, vocabulary []string,
) (*client.Classification, error) {
	if m.ClassifyFunc != nil {
		return m.ClassifyFunc(ctx, media, vocabulary)
	}

	return nil, errorx.New(errorx.NotImplemented, "Not implemented")
}

// NewStaticClassifier always detects labels with the given confidence.
func NewStaticClassifier(confidence float64, labels ...string) *MockClassifier {
	return &MockClassifier{
		ClassifyFunc: func(context.Context, *client.Media, []string) (*client.Classification, error) {
			result := &client.Classification{Confidence: confidence}
			for _, l := range labels {
				result.Labels = append(result.Labels, client.Label{Name: l, Score: confidence})
			}
			return result, nil
		},
	}
}

type MockHasher struct {
	HashFunc func(context.Context, *client.Media) (uint64, error)
}

func (m *MockHasher) Hash(ctx context.Context, media *client.Media) (uint64, error) {
	if m.HashFunc != nil {
		return m.HashFunc(ctx, media)
	}

	return 0, errorx.New(errorx.NotImplemented, "Not implemented")
}

// NewMapHasher hashes media by looking up their url in hashes.
func NewMapHasher(hashes map[string]uint64) *MockHasher {
	return &MockHasher{
		HashFunc: func(_ context.Context, media *client.Media) (uint64, error) {
			h, ok := hashes[media.URL]
			if !ok {
				return 0, client.ErrUnsupportedMedia
			}
			return h, nil
		},
	}
}

type MockMetadataExtractor struct {
	ExtractFunc func(context.Context, *client.Media) (*client.Metadata, error)
}

func (m *MockMetadataExtractor) Extract(ctx context.Context, media *client.Media) (*client.Metadata, error) {
	if m.ExtractFunc != nil {
		return m.ExtractFunc(ctx, media)
	}

	return nil, errorx.New(errorx.NotImplemented, "Not implemented")
}

// NewCapturedAt returns an extractor which reports every media as captured
// at t.
func NewCapturedAt(t time.Time) *MockMetadataExtractor {
	return &MockMetadataExtractor{
		ExtractFunc: func(context.Context, *client.Media) (*client.Metadata, error) {
			return &client.Metadata{CaptureTime: t}, nil
		},
	}
}

type MockMediaFetcher struct {
	FetchFunc func(context.Context, string) (*client.Media, error)
}

func (m *MockMediaFetcher) Fetch(ctx context.Context, url string) (*client.Media, error) {
	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, url)
	}

	return &client.Media{URL: url, ContentType: "image/jpeg"}, nil
}
