package services

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockCache is an in-memory Cache for tests. Without hooks it behaves like a
// real TTL store; the Func fields override individual calls.
type MockCache struct {
	PingFunc              func(ctx context.Context) error
	SetFunc               func(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	SetNXFunc             func(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error)
	GetFunc               func(ctx context.Context, key string) (string, error)
	DelFunc               func(ctx context.Context, keys ...string) error
	ExistsFunc            func(ctx context.Context, keys ...string) (bool, error)
	CloseFunc             func() error
	WaitForConnectionFunc func(ctx context.Context) error

	// Now is the clock used for expiry.
	Now func() time.Time

	// Track calls for testing
	PingCalls              int
	SetCalls               []SetCall
	GetCalls               []string
	DelCalls               [][]string
	ExistsCalls            [][]string
	CloseCalls             int
	WaitForConnectionCalls int

	data map[string]mockEntry
	mu   sync.Mutex
}

type SetCall struct {
	Key        string
	Value      interface{}
	Expiration time.Duration
}

type mockEntry struct {
	value     string
	expiresAt time.Time
}

// NewMockCache creates a new mock cache
func NewMockCache() *MockCache {
	return &MockCache{
		Now:  time.Now,
		data: make(map[string]mockEntry),
	}
}

func (m *MockCache) Ping(ctx context.Context) error {
	m.mu.Lock()
	m.PingCalls++
	fn := m.PingFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx)
	}
	return nil
}

func (m *MockCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SetCalls = append(m.SetCalls, SetCall{Key: key, Value: value, Expiration: expiration})
	if m.SetFunc != nil {
		return m.SetFunc(ctx, key, value, expiration)
	}
	m.store(key, value, expiration)
	return nil
}

func (m *MockCache) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SetCalls = append(m.SetCalls, SetCall{Key: key, Value: value, Expiration: expiration})
	if m.SetNXFunc != nil {
		return m.SetNXFunc(ctx, key, value, expiration)
	}
	if _, ok := m.lookup(key); ok {
		return false, nil
	}
	m.store(key, value, expiration)
	return true, nil
}

func (m *MockCache) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.GetCalls = append(m.GetCalls, key)
	if m.GetFunc != nil {
		return m.GetFunc(ctx, key)
	}
	v, _ := m.lookup(key)
	return v, nil
}

func (m *MockCache) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.DelCalls = append(m.DelCalls, keys)
	if m.DelFunc != nil {
		return m.DelFunc(ctx, keys...)
	}
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *MockCache) Exists(ctx context.Context, keys ...string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ExistsCalls = append(m.ExistsCalls, keys)
	if m.ExistsFunc != nil {
		return m.ExistsFunc(ctx, keys...)
	}
	for _, k := range keys {
		if _, ok := m.lookup(k); ok {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockCache) Close() error {
	m.mu.Lock()
	m.CloseCalls++
	fn := m.CloseFunc
	m.mu.Unlock()

	if fn != nil {
		return fn()
	}
	return nil
}

func (m *MockCache) WaitForConnection(ctx context.Context) error {
	m.mu.Lock()
	m.WaitForConnectionCalls++
	fn := m.WaitForConnectionFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx)
	}
	return nil
}

// SetPingError sets up the mock to return an error on Ping
func (m *MockCache) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PingFunc = func(ctx context.Context) error {
		return err
	}
}

// SetPingSuccess sets up the mock to return success on Ping
func (m *MockCache) SetPingSuccess() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PingFunc = nil
}

// Keys returns the live keys, for assertions.
func (m *MockCache) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		if _, ok := m.lookup(k); ok {
			keys = append(keys, k)
		}
	}
	return keys
}

// store and lookup expect m.mu to be held.
func (m *MockCache) store(key string, value interface{}, expiration time.Duration) {
	e := mockEntry{value: toString(value)}
	if expiration > 0 {
		e.expiresAt = m.Now().Add(expiration)
	}
	m.data[key] = e
}

func (m *MockCache) lookup(key string) (string, bool) {
	e, ok := m.data[key]
	if !ok {
		return "", false
	}
	if !e.expiresAt.IsZero() && !m.Now().Before(e.expiresAt) {
		delete(m.data, key)
		return "", false
	}
	return e.value, true
}

func toString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(t)
	}
}

// Ensure MockCache implements Cache interface
var _ Cache = (*MockCache)(nil)
