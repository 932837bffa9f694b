package pubsub

import (
	"context"
	"time"
)

type SubscribeHandler func(context.Context, *Pack, time.Time)

type Subscriber interface {
	// Subscribe blocks until ctx is canceled.
	Subscribe(ctx context.Context)
	Stop(ctx context.Context) error
}
