package client

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/mitchellh/mapstructure"
	"github.com/terraed/backend/config"
	"github.com/terraed/backend/pkg/api"
)

type Label struct {
	Name  string  `mapstructure:"name"`
	Score float64 `mapstructure:"score"`
}

type Classification struct {
	Labels     []Label `mapstructure:"labels"`
	Confidence float64 `mapstructure:"confidence"`
}

func (c *Classification) LabelNames() []string {
	names := make([]string, 0, len(c.Labels))
	for _, l := range c.Labels {
		names = append(names, l.Name)
	}
	return names
}

type Classifier interface {
	// Classify detects content labels in the media. The vocabulary hints the
	// labels the caller is interested in, the confidence tells how well the
	// media matches it.
	Classify(ctx context.Context, media *Media, vocabulary []string) (*Classification, error)
}

type httpClassifier struct {
	generator api.Generator
	apiKey    string
}

func NewHTTPClassifier(cfg config.ClassifierConfigs) *httpClassifier {
	return &httpClassifier{
		generator: api.NewGenerator(cfg.Endpoints...),
		apiKey:    cfg.APIKey,
	}
}

func (c *httpClassifier) Classify(
	ctx context.Context, media *Media, vocabulary []string,
) (*Classification, error) {
	resp, err := c.generator.New("/v1/classify").
		Body(api.JSON{
			"media_url":    media.URL,
			"content_type": media.ContentType,
			"data":         base64.StdEncoding.EncodeToString(media.Data),
			"vocabulary":   vocabulary,
		}).
		POST(ctx, api.OAuth2("Bearer", c.apiKey))
	if err != nil {
		return nil, err
	}

	if resp.Code != http.StatusOK {
		return nil, fmt.Errorf("classifier returned status %d: %s", resp.Code, resp.RawBody)
	}

	result := &Classification{}
	if err := mapstructure.Decode(resp.Body, result); err != nil {
		return nil, fmt.Errorf("cannot decode classifier response: %w", err)
	}

	if result.Confidence < 0 || result.Confidence > 1 {
		return nil, fmt.Errorf("classifier returned confidence out of range: %v", result.Confidence)
	}

	return result, nil
}
