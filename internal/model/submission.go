package model

type Submission struct {
	ID            string   `json:"id"`
	QuestID       string   `json:"quest_id"`
	UserID        string   `json:"user_id"`
	ProofKind     string   `json:"proof_kind"`
	ImageURL      string   `json:"image_url,omitempty"`
	VideoURL      string   `json:"video_url,omitempty"`
	Caption       string   `json:"caption,omitempty"`
	Latitude      *float64 `json:"latitude,omitempty"`
	Longitude     *float64 `json:"longitude,omitempty"`
	Status        string   `json:"status"`
	PointsAwarded uint64   `json:"points_awarded"`
	SubmittedAt   string   `json:"submitted_at"`
	ReviewedBy    string   `json:"reviewed_by,omitempty"`
	ReviewNotes   string   `json:"review_notes,omitempty"`
	ReviewedAt    string   `json:"reviewed_at,omitempty"`
}

type VerificationReport struct {
	SubmissionID        string   `json:"submission_id"`
	Confidence          float64  `json:"confidence"`
	Labels              []string `json:"labels"`
	Reasons             []string `json:"reasons"`
	DuplicateCheck      bool     `json:"duplicate_check"`
	MatchedSubmissionID string   `json:"matched_submission_id,omitempty"`
	PHashScore          *float64 `json:"phash_score,omitempty"`
	ExifValid           bool     `json:"exif_valid"`
	GpsValid            bool     `json:"gps_valid"`
	AutoDecision        string   `json:"auto_decision"`
	CreatedAt           string   `json:"created_at"`
}

type SubmitProofRequest struct {
	QuestID   string   `json:"quest_id"`
	ImageURL  string   `json:"image_url"`
	VideoURL  string   `json:"video_url"`
	Caption   string   `json:"caption"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

type SubmitProofResponse struct {
	Submission Submission `json:"submission"`
}

type GetSubmissionRequest struct {
	ID string `form:"id" json:"id"`
}

type GetSubmissionResponse struct {
	Submission Submission `json:"submission"`
}

type GetVerificationReportRequest struct {
	SubmissionID string `form:"submission_id" json:"submission_id"`
}

// GetVerificationReportResponse has no report while the submission is
// pending.
type GetVerificationReportResponse struct {
	SubmissionID string              `json:"submission_id"`
	Status       string              `json:"status"`
	Report       *VerificationReport `json:"report,omitempty"`
}

type ResolveReviewRequest struct {
	SubmissionID string `json:"submission_id"`
	Decision     string `json:"decision"`
	Notes        string `json:"notes"`
}

type ResolveReviewResponse struct {
	Submission Submission `json:"submission"`
}

type GetPendingReviewsRequest struct {
	QuestID string `form:"quest_id" json:"quest_id"`
	Offset  int    `form:"offset" json:"offset"`
	Limit   int    `form:"limit" json:"limit"`
}

type GetPendingReviewsResponse struct {
	Submissions []Submission `json:"submissions"`
}
