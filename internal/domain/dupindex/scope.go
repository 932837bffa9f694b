package dupindex

import (
	"fmt"

	"github.com/terraed/backend/pkg/enum"
)

// Scope tells which prior submissions a new proof is compared with.
type Scope string

var (
	// ScopeQuestUser compares with the proofs of the same user for the same
	// quest.
	ScopeQuestUser = enum.New(Scope("quest_user"))

	// ScopeQuest compares with the proofs of every user for the same quest.
	ScopeQuest = enum.New(Scope("quest"))

	ScopeGlobal = enum.New(Scope("global"))
)

// ScopeKey returns the partition of the index a submission belongs to.
func ScopeKey(scope Scope, questID, userID string) string {
	switch scope {
	case ScopeQuest:
		return fmt.Sprintf("quest:%s", questID)
	case ScopeGlobal:
		return "global"
	default:
		return fmt.Sprintf("quest_user:%s:%s", questID, userID)
	}
}
