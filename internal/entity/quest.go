package entity

import (
	"database/sql"
	"time"

	"github.com/terraed/backend/pkg/enum"
	"golang.org/x/exp/slices"
)

type ProofKind string

var (
	ProofPhoto = enum.New(ProofKind("photo"))
	ProofVideo = enum.New(ProofKind("video"))
	ProofText  = enum.New(ProofKind("text"))
)

type QuestCategory string

var (
	CategoryWaste        = enum.New(QuestCategory("waste"))
	CategoryEnergy       = enum.New(QuestCategory("energy"))
	CategoryWater        = enum.New(QuestCategory("water"))
	CategoryBiodiversity = enum.New(QuestCategory("biodiversity"))
	CategoryTransport    = enum.New(QuestCategory("transport"))
)

// ImpactMetric is the environmental measure a quest contributes to.
type ImpactMetric string

var (
	ImpactTreesPlanted   = enum.New(ImpactMetric("trees_planted"))
	ImpactWasteCollected = enum.New(ImpactMetric("waste_collected"))
	ImpactCarbonSaved    = enum.New(ImpactMetric("carbon_saved"))
	ImpactWaterSaved     = enum.New(ImpactMetric("water_saved"))
	ImpactEnergySaved    = enum.New(ImpactMetric("energy_saved"))
)

type Difficulty string

var (
	Easy   = enum.New(Difficulty("easy"))
	Medium = enum.New(Difficulty("medium"))
	Hard   = enum.New(Difficulty("hard"))
)

// Quest is owned by the content team, this service only reads it.
type Quest struct {
	Base

	Title        string
	Summary      string
	Instructions string `gorm:"type:text"`
	SafetyNotes  string `gorm:"type:text"`
	ImageURL     string

	Points     uint64
	ProofTypes Array[ProofKind]
	Category   QuestCategory
	Difficulty Difficulty

	LocationHint    string
	LocationLat     sql.NullFloat64
	LocationLng     sql.NullFloat64
	LocationRadiusM float64

	// ExpectedLabels is the subject vocabulary a proof must show.
	ExpectedLabels Array[string]

	// ImpactAmount of ImpactMetric is credited for every accepted proof:
	// trees, kg of waste, kg of CO2, liters of water or kWh.
	ImpactMetric ImpactMetric
	ImpactAmount float64

	EstimatedTime int
	AIGenerated   bool
	CreatedBy     string
	Expiry        time.Time
}

// RequiresLocation is true if the quest declares coordinates, a free-text
// hint alone is not checkable.
func (q Quest) RequiresLocation() bool {
	return q.LocationLat.Valid && q.LocationLng.Valid
}

// Accepts reports whether kind is a valid proof, a quest without declared
// proof types accepts photos only.
func (q Quest) Accepts(kind ProofKind) bool {
	if len(q.ProofTypes) == 0 {
		return kind == ProofPhoto
	}

	return slices.Contains(q.ProofTypes, kind)
}

// IsExpired reports whether the quest is closed at t, a quest without expiry
// never closes.
func (q Quest) IsExpired(t time.Time) bool {
	return !q.Expiry.IsZero() && t.After(q.Expiry)
}
