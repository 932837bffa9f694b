package model

import (
	"time"

	"github.com/terraed/backend/internal/domain/leaderboard"
	"github.com/terraed/backend/internal/entity"
)

const DefaultTimeLayout string = time.RFC3339Nano

func ConvertSubmission(s *entity.Submission) Submission {
	if s == nil {
		return Submission{}
	}

	result := Submission{
		ID:            s.ID,
		QuestID:       s.QuestID,
		UserID:        s.UserID,
		ProofKind:     string(s.ProofKind),
		ImageURL:      s.ImageURL,
		VideoURL:      s.VideoURL,
		Caption:       s.Caption,
		Status:        string(s.Status),
		PointsAwarded: s.PointsAwarded,
		SubmittedAt:   s.SubmittedAt.Format(DefaultTimeLayout),
		ReviewedBy:    s.ReviewedBy.String,
		ReviewNotes:   s.ReviewNotes,
	}

	if s.HasCoordinates() {
		lat, lng := s.Latitude.Float64, s.Longitude.Float64
		result.Latitude = &lat
		result.Longitude = &lng
	}

	if s.ReviewedAt.Valid {
		result.ReviewedAt = s.ReviewedAt.Time.Format(DefaultTimeLayout)
	}

	return result
}

func ConvertVerificationReport(r *entity.VerificationReport) VerificationReport {
	if r == nil {
		return VerificationReport{}
	}

	result := VerificationReport{
		SubmissionID:        r.SubmissionID,
		Confidence:          r.Confidence,
		Labels:              r.Labels,
		Reasons:             r.Reasons,
		DuplicateCheck:      r.DuplicateCheck,
		MatchedSubmissionID: r.MatchedSubmissionID,
		ExifValid:           r.ExifValid,
		GpsValid:            r.GpsValid,
		AutoDecision:        string(r.AutoDecision),
		CreatedAt:           r.CreatedAt.Format(DefaultTimeLayout),
	}

	if result.Labels == nil {
		result.Labels = []string{}
	}

	if result.Reasons == nil {
		result.Reasons = []string{}
	}

	if r.PHashScore.Valid {
		score := r.PHashScore.Float64
		result.PHashScore = &score
	}

	return result
}

func ConvertWalletTransaction(tx *entity.WalletTransaction) WalletTransaction {
	if tx == nil {
		return WalletTransaction{}
	}

	return WalletTransaction{
		ID:           tx.ID,
		Type:         string(tx.Type),
		Amount:       tx.Amount,
		Description:  tx.Description,
		QuestID:      tx.QuestID.String,
		SubmissionID: tx.SubmissionID.String,
		VoucherCode:  tx.VoucherCode.String,
		CreatedAt:    tx.CreatedAt.Format(DefaultTimeLayout),
	}
}

func ConvertImpactStats(s entity.ImpactStats) ImpactStats {
	return ImpactStats{
		TreesPlanted:   s.TreesPlanted,
		WasteCollected: s.WasteCollected,
		CarbonSaved:    s.CarbonSaved,
		WaterSaved:     s.WaterSaved,
		EnergySaved:    s.EnergySaved,
	}
}

func ConvertLeaderboardEntry(e leaderboard.Entry) LeaderboardEntry {
	return LeaderboardEntry{
		Rank:            e.Rank,
		UserID:          e.UserID,
		Points:          e.Points,
		Streak:          e.Streak,
		QuestsCompleted: e.QuestsCompleted,
	}
}
