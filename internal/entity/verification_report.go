package entity

import (
	"database/sql"
	"time"

	"github.com/terraed/backend/pkg/enum"
)

type AutoDecision string

var (
	DecisionPass   = enum.New(AutoDecision("pass"))
	DecisionReview = enum.New(AutoDecision("review"))
	DecisionReject = enum.New(AutoDecision("reject"))
)

// Status returns the submission status an auto decision leads to.
func (d AutoDecision) Status() SubmissionStatus {
	switch d {
	case DecisionPass:
		return AutoPass
	case DecisionReject:
		return Rejected
	default:
		return Review
	}
}

// VerificationReport is written once together with the status transition out
// of pending, and never updated.
type VerificationReport struct {
	SubmissionID string `gorm:"primaryKey"`
	CreatedAt    time.Time

	Confidence float64
	Labels     Array[string]
	Reasons    Array[string]

	// DuplicateCheck is true when a near-identical prior submission exists,
	// it is a collision flag and not a "check passed" flag.
	DuplicateCheck      bool
	MatchedSubmissionID string
	PHashScore          sql.NullFloat64
	MediaHash           string

	ExifValid bool
	GpsValid  bool

	AutoDecision AutoDecision
}
