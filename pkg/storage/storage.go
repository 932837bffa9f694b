package storage

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

type Storage interface {
	Download(ctx context.Context, object *Object) ([]byte, error)
}

type Object struct {
	Bucket string
	Key    string
}

// ParseURL parses an s3://bucket/key reference.
func ParseURL(ref string) (*Object, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return nil, err
	}

	if u.Scheme != "s3" {
		return nil, fmt.Errorf("expected s3 scheme, got %q", u.Scheme)
	}

	key := strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || key == "" {
		return nil, fmt.Errorf("invalid s3 reference %q", ref)
	}

	return &Object{Bucket: u.Host, Key: key}, nil
}
