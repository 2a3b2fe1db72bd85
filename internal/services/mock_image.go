package services

import (
	"context"
	"sync"
)

// MockImageService is an ImageService for tests
type MockImageService struct {
	GenerateFunc func(ctx context.Context, prompt string) (string, error)

	// URL is returned when GenerateFunc is nil
	URL string

	Prompts []string
	mu      sync.Mutex
}

var _ ImageService = (*MockImageService)(nil)

func NewMockImageService() *MockImageService {
	return &MockImageService{URL: "https://replicate.delivery/mock/scene.webp"}
}

func (m *MockImageService) Generate(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.Prompts = append(m.Prompts, prompt)
	fn := m.GenerateFunc
	url := m.URL
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, prompt)
	}
	return url, nil
}

// Calls returns the prompts seen so far.
func (m *MockImageService) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Prompts...)
}
