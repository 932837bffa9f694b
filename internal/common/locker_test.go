package common_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/terraed/backend/internal/common"
	"github.com/terraed/backend/pkg/testutil"
)

func testLocker(t *testing.T, locker common.Locker) {
	ctx := testutil.NewMockContext()

	counter := 0
	wg := sync.WaitGroup{}
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locker.Lock(ctx, common.RedisKeyUserLock("user1"))
			require.NoError(t, err)
			defer unlock()

			// Not atomic on purpose, the lock is what protects it.
			v := counter
			time.Sleep(time.Millisecond)
			counter = v + 1
		}()
	}
	wg.Wait()
	require.Equal(t, 10, counter)

	// Other keys are independent.
	unlock, err := locker.Lock(ctx, common.RedisKeyUserLock("user1"))
	require.NoError(t, err)
	unlock2, err := locker.Lock(ctx, common.RedisKeyScopeLock("global"))
	require.NoError(t, err)
	unlock2()

	timeoutCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(timeoutCtx, common.RedisKeyUserLock("user1"))
	require.ErrorIs(t, err, context.DeadlineExceeded)
	unlock()
}

func TestLocalLocker(t *testing.T) {
	testLocker(t, common.NewLocalLocker())
}

func TestRedisLocker(t *testing.T) {
	testLocker(t, common.NewRedisLocker(testutil.NewMockRedisClient(), time.Second))
}

func TestRedisLocker_Error(t *testing.T) {
	client := testutil.NewMockRedisClient()
	client.SetNXFunc = func(context.Context, string, string, time.Duration) (bool, error) {
		return false, errors.New("connection refused")
	}

	_, err := common.NewRedisLocker(client, time.Second).Lock(testutil.NewMockContext(), "k")
	require.Error(t, err)
}
