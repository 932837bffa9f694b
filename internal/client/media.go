package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	lru "github.com/hashicorp/golang-lru"
	"github.com/terraed/backend/pkg/storage"
	"github.com/terraed/backend/pkg/xcontext"
)

// ErrUnsupportedMedia is returned by capabilities which cannot process the
// given kind of media, e.g. hashing a video.
var ErrUnsupportedMedia = errors.New("unsupported media")

const maxMediaSize = 32 << 20

type Media struct {
	URL         string
	ContentType string
	Data        []byte
}

func (m *Media) IsVideo() bool {
	return strings.HasPrefix(m.ContentType, "video/")
}

func (m *Media) IsImage() bool {
	return strings.HasPrefix(m.ContentType, "image/")
}

type MediaFetcher interface {
	Fetch(ctx context.Context, url string) (*Media, error)
}

type mediaFetcher struct {
	storage storage.Storage
	cache   *lru.Cache
}

// NewMediaFetcher downloads s3:// references through the storage and any
// other url over http. Recently fetched media are cached since every checker
// of a submission reads the same proof.
func NewMediaFetcher(storage storage.Storage, cacheSize int) (*mediaFetcher, error) {
	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, err
	}

	return &mediaFetcher{storage: storage, cache: cache}, nil
}

func (f *mediaFetcher) Fetch(ctx context.Context, url string) (*Media, error) {
	if v, ok := f.cache.Get(url); ok {
		return v.(*Media), nil
	}

	var media *Media
	var err error
	if strings.HasPrefix(url, "s3://") {
		media, err = f.fetchObject(ctx, url)
	} else {
		media, err = f.fetchHTTP(ctx, url)
	}
	if err != nil {
		return nil, err
	}

	f.cache.Add(url, media)
	return media, nil
}

func (f *mediaFetcher) fetchObject(ctx context.Context, url string) (*Media, error) {
	if f.storage == nil {
		return nil, fmt.Errorf("no storage configured for %s", url)
	}

	object, err := storage.ParseURL(url)
	if err != nil {
		return nil, err
	}

	data, err := f.storage.Download(ctx, object)
	if err != nil {
		return nil, err
	}

	return &Media{URL: url, ContentType: http.DetectContentType(data), Data: data}, nil
}

func (f *mediaFetcher) fetchHTTP(ctx context.Context, url string) (*Media, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := xcontext.HTTPClient(ctx).Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", url, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxMediaSize+1))
	if err != nil {
		return nil, err
	}

	if len(data) > maxMediaSize {
		return nil, fmt.Errorf("fetch %s: media is larger than %d bytes", url, maxMediaSize)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}

	return &Media{URL: url, ContentType: contentType, Data: data}, nil
}
