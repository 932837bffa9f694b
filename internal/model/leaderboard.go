package model

type LeaderboardEntry struct {
	Rank            int    `json:"rank"`
	UserID          string `json:"user_id"`
	Points          int64  `json:"points"`
	Streak          int    `json:"streak"`
	QuestsCompleted int64  `json:"quests_completed"`
}

type GetLeaderboardRequest struct {
	Period string `form:"period" json:"period"`
	Limit  int    `form:"limit" json:"limit"`
}

type GetLeaderboardResponse struct {
	Period  string             `json:"period"`
	Entries []LeaderboardEntry `json:"entries"`

	// Me is the entry of the requesting user, which may be out of the
	// returned page.
	Me *LeaderboardEntry `json:"me,omitempty"`
}
