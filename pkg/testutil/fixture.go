package testutil

import (
	"context"
	"database/sql"
	"time"

	"github.com/terraed/backend/internal/entity"
	"github.com/terraed/backend/internal/repository"
)

var (
	// Far enough in the future for every test.
	questExpiry = time.Now().AddDate(10, 0, 0)

	User1    = "user1"
	User2    = "user2"
	User3    = "user3"
	Reviewer = "reviewer1"
	Partner  = "partner1"

	Users = []*entity.User{
		{Base: entity.Base{ID: User1}, Name: "Alice", Role: entity.RoleStudent},
		{Base: entity.Base{ID: User2}, Name: "Bob", Role: entity.RoleStudent},
		{Base: entity.Base{ID: User3}, Name: "Carol", Role: entity.RoleStudent},
		{Base: entity.Base{ID: Reviewer}, Name: "Ms. Green", Role: entity.RoleTeacher},
		{Base: entity.Base{ID: Partner}, Name: "Eco Shop", Role: entity.RolePartner},
	}

	// Quest1 is a photo quest without location.
	Quest1 = &entity.Quest{
		Base:           entity.Base{ID: "quest1"},
		Title:          "Plant a tree",
		Summary:        "Plant a sapling in your neighbourhood",
		Points:         50,
		ProofTypes:     entity.Array[entity.ProofKind]{entity.ProofPhoto},
		Category:       entity.CategoryBiodiversity,
		Difficulty:     entity.Easy,
		ExpectedLabels: entity.Array[string]{"tree", "sapling"},
		ImpactMetric:   entity.ImpactTreesPlanted,
		ImpactAmount:   1,
		CreatedBy:      "content-team",
		Expiry:         questExpiry,
	}

	// QuestPark requires a proof taken within 500m of the park.
	QuestPark = &entity.Quest{
		Base:            entity.Base{ID: "quest_park"},
		Title:           "Clean the park",
		Points:          100,
		ProofTypes:      entity.Array[entity.ProofKind]{entity.ProofPhoto, entity.ProofVideo},
		Category:        entity.CategoryWaste,
		Difficulty:      entity.Medium,
		LocationHint:    "Central park",
		LocationLat:     sql.NullFloat64{Valid: true, Float64: 10.7769},
		LocationLng:     sql.NullFloat64{Valid: true, Float64: 106.7009},
		LocationRadiusM: 500,
		ExpectedLabels:  entity.Array[string]{"litter"},
		ImpactMetric:    entity.ImpactWasteCollected,
		ImpactAmount:    2.5,
		CreatedBy:       "content-team",
		Expiry:          questExpiry,
	}

	// QuestExpired cannot be submitted anymore.
	QuestExpired = &entity.Quest{
		Base:       entity.Base{ID: "quest_expired"},
		Title:      "Old quest",
		Points:     10,
		ProofTypes: entity.Array[entity.ProofKind]{entity.ProofPhoto},
		Category:   entity.CategoryEnergy,
		Difficulty: entity.Easy,
		CreatedBy:  "content-team",
		Expiry:     time.Now().AddDate(0, 0, -1),
	}

	// QuestText accepts a written reflection as proof.
	QuestText = &entity.Quest{
		Base:       entity.Base{ID: "quest_text"},
		Title:      "Write about water",
		Points:     20,
		ProofTypes: entity.Array[entity.ProofKind]{entity.ProofText},
		Category:   entity.CategoryWater,
		Difficulty: entity.Hard,
		CreatedBy:  "content-team",
		Expiry:     questExpiry,
	}

	Quests = []*entity.Quest{Quest1, QuestPark, QuestExpired, QuestText}
)

// CreateFixtureDb inserts the users and the quest catalog into the database
// of ctx.
func CreateFixtureDb(ctx context.Context) {
	userRepo := repository.NewUserRepository()
	for _, u := range Users {
		user := *u
		if err := userRepo.Create(ctx, &user); err != nil {
			panic(err)
		}
	}

	questRepo := repository.NewQuestRepository()
	for _, q := range Quests {
		quest := *q
		if err := questRepo.Create(ctx, &quest); err != nil {
			panic(err)
		}
	}
}
