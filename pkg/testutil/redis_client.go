package testutil

import (
	"context"
	"sync"
	"time"
)

// MockRedisClient keeps keys in memory, expirations are ignored.
type MockRedisClient struct {
	mutex sync.Mutex
	keys  map[string]string

	SetNXFunc func(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
}

func NewMockRedisClient() *MockRedisClient {
	return &MockRedisClient{keys: map[string]string{}}
}

func (m *MockRedisClient) Exist(ctx context.Context, key string) (bool, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	_, ok := m.keys[key]
	return ok, nil
}

func (m *MockRedisClient) Del(ctx context.Context, keys ...string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for _, k := range keys {
		delete(m.keys, k)
	}
	return nil
}

func (m *MockRedisClient) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	if m.SetNXFunc != nil {
		return m.SetNXFunc(ctx, key, value, ttl)
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, ok := m.keys[key]; ok {
		return false, nil
	}

	m.keys[key] = value
	return true, nil
}

func (m *MockRedisClient) DelIfEqual(ctx context.Context, key, value string) (bool, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.keys[key] != value {
		return false, nil
	}

	delete(m.keys, key)
	return true, nil
}
