package integrity

import (
	"context"
	"fmt"
	"strings"

	"github.com/terraed/backend/internal/client"
	"github.com/terraed/backend/internal/entity"
	"github.com/terraed/backend/pkg/xcontext"
	"golang.org/x/exp/slices"
)

type contentChecker struct {
	classifier client.Classifier
}

// NewContentChecker asks the classifier whether the proof shows the subject
// of the quest. Each attempt is bounded by the classify timeout.
func NewContentChecker(classifier client.Classifier) *contentChecker {
	return &contentChecker{classifier: classifier}
}

func (c *contentChecker) Name() string {
	return ContentChecker
}

func (c *contentChecker) Evaluate(ctx context.Context, in *Input) (*Evidence, error) {
	ev := &Evidence{Checker: ContentChecker}
	if in.Media == nil {
		ev.Unavailable = true
		ev.addReason("Proof has no media to classify")
		return ev, nil
	}

	cfg := xcontext.Configs(ctx).Verification
	vocabulary := Vocabulary(ctx, in.Quest)

	var result *client.Classification
	err := withRetry(ctx, ContentChecker, func(ctx context.Context) error {
		attemptCtx, cancel := context.WithTimeout(ctx, cfg.ClassifyTimeout.Duration)
		defer cancel()

		var err error
		result, err = c.classifier.Classify(attemptCtx, in.Media, vocabulary)
		return err
	})
	if err != nil {
		ev.Unavailable = true
		ev.addReason("Content classifier is unavailable")
		return ev, nil
	}

	ev.Confidence = result.Confidence
	ev.Labels = result.LabelNames()
	ev.OnTopic = Intersects(ev.Labels, vocabulary)

	if !ev.OnTopic {
		ev.addReason(fmt.Sprintf("None of the expected subjects (%s) was detected", strings.Join(vocabulary, ", ")))
	}

	if ev.Confidence < cfg.LowConfidence {
		ev.addReason(fmt.Sprintf("Content confidence %.2f is too low", ev.Confidence))
	}

	ev.Valid = ev.OnTopic && ev.Confidence >= cfg.HighConfidence
	return ev, nil
}

// Vocabulary returns the labels expected in a proof of quest: the labels
// declared by the quest and the default labels of its category.
func Vocabulary(ctx context.Context, quest *entity.Quest) []string {
	vocabulary := []string{}
	add := func(labels []string) {
		for _, l := range labels {
			l = normalizeLabel(l)
			if l != "" && !slices.Contains(vocabulary, l) {
				vocabulary = append(vocabulary, l)
			}
		}
	}

	add(quest.ExpectedLabels)
	add(xcontext.Configs(ctx).Verification.CategoryVocabulary[string(quest.Category)])
	return vocabulary
}

// Intersects reports whether any label belongs to vocabulary, ignoring case.
func Intersects(labels, vocabulary []string) bool {
	for _, l := range labels {
		if slices.Contains(vocabulary, normalizeLabel(l)) {
			return true
		}
	}

	return false
}

func normalizeLabel(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}
