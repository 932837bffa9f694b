package entity

import (
	"database/sql"
	"time"

	"github.com/terraed/backend/pkg/enum"
	"golang.org/x/exp/slices"
)

type SubmissionStatus string

var (
	Pending  = enum.New(SubmissionStatus("pending"))
	AutoPass = enum.New(SubmissionStatus("auto_pass"))
	Review   = enum.New(SubmissionStatus("review"))
	Approved = enum.New(SubmissionStatus("approved"))
	Rejected = enum.New(SubmissionStatus("rejected"))
)

var submissionTransitions = map[SubmissionStatus][]SubmissionStatus{
	Pending: {AutoPass, Review, Rejected},
	Review:  {Approved, Rejected},
}

// CanTransition reports whether a submission may move from one status to
// another. Terminal statuses have no outgoing edge.
func CanTransition(from, to SubmissionStatus) bool {
	return slices.Contains(submissionTransitions[from], to)
}

func (s SubmissionStatus) IsTerminal() bool {
	return len(submissionTransitions[s]) == 0
}

// IsAccepted is true for the statuses which award points.
func (s SubmissionStatus) IsAccepted() bool {
	return s == AutoPass || s == Approved
}

type Submission struct {
	Base

	QuestID string `gorm:"index"`
	UserID  string `gorm:"index"`

	ProofKind ProofKind
	ImageURL  string
	VideoURL  string
	Caption   string `gorm:"type:text"`
	Latitude  sql.NullFloat64
	Longitude sql.NullFloat64

	Status        SubmissionStatus `gorm:"index"`
	PointsAwarded uint64
	SubmittedAt   time.Time

	ReviewedBy  sql.NullString
	ReviewNotes string `gorm:"type:text"`
	ReviewedAt  sql.NullTime
}

// MediaRef returns the proof media, empty for text proofs.
func (s Submission) MediaRef() string {
	if s.ImageURL != "" {
		return s.ImageURL
	}

	return s.VideoURL
}

func (s Submission) HasCoordinates() bool {
	return s.Latitude.Valid && s.Longitude.Valid
}
