package common

import "fmt"

func RedisKeyUserLock(userID string) string {
	return fmt.Sprintf("lock:user:%s", userID)
}

func RedisKeyScopeLock(scope string) string {
	return fmt.Sprintf("lock:scope:%s", scope)
}
