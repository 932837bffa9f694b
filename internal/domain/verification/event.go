package verification

import (
	"context"
	"encoding/json"
	"time"

	"github.com/terraed/backend/internal/entity"
	"github.com/terraed/backend/pkg/pubsub"
	"github.com/terraed/backend/pkg/xcontext"
)

const (
	EventVerified = "verified"
	EventResolved = "resolved"
)

// Event notifies other services, e.g. notifications and badges, that a
// submission left a status. It is published after the commit.
type Event struct {
	Type          string    `json:"type"`
	SubmissionID  string    `json:"submission_id"`
	QuestID       string    `json:"quest_id"`
	UserID        string    `json:"user_id"`
	Status        string    `json:"status"`
	PointsAwarded uint64    `json:"points_awarded"`
	At            time.Time `json:"at"`
}

// Request asks a worker to verify a pending submission.
type Request struct {
	SubmissionID string `json:"submission_id"`
}

func publishEvent(ctx context.Context, publisher pubsub.Publisher, eventType string, s *entity.Submission) {
	if publisher == nil {
		return
	}

	b, err := json.Marshal(Event{
		Type:          eventType,
		SubmissionID:  s.ID,
		QuestID:       s.QuestID,
		UserID:        s.UserID,
		Status:        string(s.Status),
		PointsAwarded: s.PointsAwarded,
		At:            time.Now(),
	})
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot marshal event of %s: %v", s.ID, err)
		return
	}

	topic := xcontext.Configs(ctx).Kafka.SubmissionEventsTopic
	if err := publisher.Publish(ctx, topic, &pubsub.Pack{Key: []byte(s.UserID), Msg: b}); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot publish %s event of %s: %v", eventType, s.ID, err)
	}
}

// PublishRequest enqueues the verification of a pending submission.
func PublishRequest(ctx context.Context, publisher pubsub.Publisher, submissionID string) error {
	b, err := json.Marshal(Request{SubmissionID: submissionID})
	if err != nil {
		return err
	}

	topic := xcontext.Configs(ctx).Kafka.VerificationTopic
	return publisher.Publish(ctx, topic, &pubsub.Pack{Key: []byte(submissionID), Msg: b})
}
