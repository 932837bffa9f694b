package model

type WalletTransaction struct {
	ID           int64  `json:"id"`
	Type         string `json:"type"`
	Amount       int64  `json:"amount"`
	Description  string `json:"description"`
	QuestID      string `json:"quest_id,omitempty"`
	SubmissionID string `json:"submission_id,omitempty"`
	VoucherCode  string `json:"voucher_code,omitempty"`
	CreatedAt    string `json:"created_at"`
}

type ImpactStats struct {
	TreesPlanted   float64 `json:"trees_planted"`
	WasteCollected float64 `json:"waste_collected"`
	CarbonSaved    float64 `json:"carbon_saved"`
	WaterSaved     float64 `json:"water_saved"`
	EnergySaved    float64 `json:"energy_saved"`
}

type GetWalletRequest struct {
	UserID string `form:"user_id" json:"user_id"`
	Offset int    `form:"offset" json:"offset"`
	Limit  int    `form:"limit" json:"limit"`
}

type GetWalletResponse struct {
	UserID          string              `json:"user_id"`
	Points          int64               `json:"points"`
	MonthlyPoints   int64               `json:"monthly_points"`
	Streak          int                 `json:"streak"`
	QuestsCompleted int64               `json:"quests_completed"`
	TotalEarned     int64               `json:"total_earned"`
	TotalRedeemed   int64               `json:"total_redeemed"`
	TotalBonus      int64               `json:"total_bonus"`
	Impact          ImpactStats         `json:"impact"`
	Transactions    []WalletTransaction `json:"transactions"`
}

type AppendTransactionRequest struct {
	UserID      string `json:"user_id"`
	Type        string `json:"type"`
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
	QuestID     string `json:"quest_id"`
	VoucherCode string `json:"voucher_code"`
}

type AppendTransactionResponse struct {
	Transaction WalletTransaction `json:"transaction"`
	Points      int64             `json:"points"`
}
