package verification

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/terraed/backend/config"
	"github.com/terraed/backend/internal/domain/integrity"
	"github.com/terraed/backend/internal/entity"
)

func TestDecide(t *testing.T) {
	cfg := config.Default().Verification
	valid := func() *Result {
		return &Result{ExifValid: true, GpsValid: true, OnTopic: true, Confidence: 0.9}
	}

	testCases := []struct {
		name   string
		modify func(r *Result)
		want   entity.AutoDecision
	}{
		{name: "confident and on topic", want: entity.DecisionPass},
		{name: "exactly the high threshold", modify: func(r *Result) { r.Confidence = 0.85 }, want: entity.DecisionPass},
		{name: "duplicate wins over everything", modify: func(r *Result) {
			r.Duplicate = true
			r.ExifValid = false
		}, want: entity.DecisionReject},
		{name: "gps invalid", modify: func(r *Result) { r.GpsValid = false }, want: entity.DecisionReview},
		{name: "exif invalid with low confidence", modify: func(r *Result) {
			r.ExifValid = false
			r.Confidence = 0.1
		}, want: entity.DecisionReview},
		{name: "classifier unavailable", modify: func(r *Result) {
			r.Confidence = 0
			r.OnTopic = false
			r.Unavailable = []string{integrity.ContentChecker}
		}, want: entity.DecisionReview},
		{name: "hash unavailable", modify: func(r *Result) {
			r.Unavailable = []string{integrity.DuplicateChecker}
		}, want: entity.DecisionReview},
		{name: "confident but off topic", modify: func(r *Result) { r.OnTopic = false }, want: entity.DecisionReview},
		{name: "middle band", modify: func(r *Result) { r.Confidence = 0.5 }, want: entity.DecisionReview},
		{name: "exactly the low threshold", modify: func(r *Result) { r.Confidence = 0.3 }, want: entity.DecisionReview},
		{name: "low confidence", modify: func(r *Result) { r.Confidence = 0.29 }, want: entity.DecisionReject},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			r := valid()
			if tt.modify != nil {
				tt.modify(r)
			}
			require.Equal(t, tt.want, Decide(r, cfg))
		})
	}
}

func TestMerge(t *testing.T) {
	score := 0.98
	result := Merge([]*integrity.Evidence{
		{Checker: integrity.ExifChecker, Valid: true},
		{Checker: integrity.GPSChecker, Valid: false, Reasons: []string{"too far"}},
		{
			Checker:             integrity.DuplicateChecker,
			Duplicate:           true,
			MatchedSubmissionID: "prior",
			Hash:                "00000000000000ff",
			PHashScore:          &score,
			Reasons:             []string{"duplicate"},
		},
		{Checker: integrity.ContentChecker, Unavailable: true, Reasons: []string{"timeout"}},
	})

	require.True(t, result.ExifValid)
	require.False(t, result.GpsValid)
	require.True(t, result.Duplicate)
	require.Equal(t, "prior", result.MatchedSubmissionID)
	require.Equal(t, []string{"too far", "duplicate", "timeout"}, result.Reasons)
	require.Equal(t, []string{integrity.ContentChecker}, result.Unavailable)
	require.Equal(t, entity.DecisionReject, Decide(result, config.Default().Verification))
}
