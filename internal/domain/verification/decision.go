package verification

import (
	"github.com/terraed/backend/config"
	"github.com/terraed/backend/internal/domain/integrity"
	"github.com/terraed/backend/internal/entity"
)

// Result is the evidence of every checker of a submission, joined.
type Result struct {
	Confidence float64
	Labels     []string
	OnTopic    bool
	Reasons    []string

	ExifValid bool
	GpsValid  bool

	Duplicate           bool
	MatchedSubmissionID string
	Hash                string
	PHashScore          *float64

	// Unavailable lists the checkers whose capability failed.
	Unavailable []string
}

// Merge joins the evidence of the checkers. Reasons keep the order of the
// evidence.
func Merge(evidences []*integrity.Evidence) *Result {
	result := &Result{ExifValid: true, GpsValid: true}
	for _, ev := range evidences {
		result.Reasons = append(result.Reasons, ev.Reasons...)
		if ev.Unavailable {
			result.Unavailable = append(result.Unavailable, ev.Checker)
		}

		switch ev.Checker {
		case integrity.ExifChecker:
			result.ExifValid = ev.Valid
		case integrity.GPSChecker:
			result.GpsValid = ev.Valid
		case integrity.DuplicateChecker:
			result.Duplicate = ev.Duplicate
			result.MatchedSubmissionID = ev.MatchedSubmissionID
			result.Hash = ev.Hash
			result.PHashScore = ev.PHashScore
		case integrity.ContentChecker:
			result.Confidence = ev.Confidence
			result.Labels = ev.Labels
			result.OnTopic = ev.OnTopic
		}
	}

	return result
}

// Decide applies the auto-decision policy, the first matching rule wins:
//  1. a duplicate is rejected,
//  2. invalid capture metadata or location goes to review,
//  3. an inconclusive capability goes to review,
//  4. a confident on-topic proof passes,
//  5. a low confidence proof is rejected,
//  6. anything else goes to review.
func Decide(result *Result, cfg config.VerificationConfigs) entity.AutoDecision {
	switch {
	case result.Duplicate:
		return entity.DecisionReject
	case !result.ExifValid || !result.GpsValid:
		return entity.DecisionReview
	case len(result.Unavailable) > 0:
		return entity.DecisionReview
	case result.Confidence >= cfg.HighConfidence && result.OnTopic:
		return entity.DecisionPass
	case result.Confidence < cfg.LowConfidence:
		return entity.DecisionReject
	default:
		return entity.DecisionReview
	}
}
