package services

import (
	"context"
	"sync"

	"github.com/zackedds/no-rulez-web/pkg/chat"
)

// MockRefereeResponse is a well-formed referee reply: Player 2 drops to 85.
const MockRefereeResponse = `===NARRATIVE===
A rubber chicken smacks straight into the opponent! The crowd goes wild.

===SCENE===
  O    -->  O
 /|\   🐔  /|\
 / \       / \

===STATE===
{"p1_hp": 100, "p2_hp": 85, "situation": "Feathers drift across the arena.", "last_action": "Player 1 threw a rubber chicken.", "image_safe": true, "image_prompt": "Two cartoon fighters, one hit by a flying rubber chicken."}`

// MockLLMAPI is a mock implementation of LLMService for testing
type MockLLMAPI struct {
	InitModelFunc func(ctx context.Context, modelName string) error
	ChatFunc      func(ctx context.Context, messages []chat.ChatMessage, opts chat.Options) (string, error)

	// Response is returned by Chat when ChatFunc is nil
	Response string

	// Track calls for testing
	InitModelCalls []string
	ChatCalls      []ChatCall

	mu sync.Mutex // protects all fields above
}

type ChatCall struct {
	Messages []chat.ChatMessage
	Options  chat.Options
}

var _ LLMService = (*MockLLMAPI)(nil)

// NewMockLLMAPI creates a mock that answers every call with MockRefereeResponse
func NewMockLLMAPI() *MockLLMAPI {
	return &MockLLMAPI{Response: MockRefereeResponse}
}

func (m *MockLLMAPI) Name() string { return "mock" }

func (m *MockLLMAPI) InitModel(ctx context.Context, modelName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.InitModelCalls = append(m.InitModelCalls, modelName)
	if m.InitModelFunc != nil {
		return m.InitModelFunc(ctx, modelName)
	}
	return nil
}

func (m *MockLLMAPI) Chat(ctx context.Context, messages []chat.ChatMessage, opts chat.Options) (string, error) {
	m.mu.Lock()
	m.ChatCalls = append(m.ChatCalls, ChatCall{Messages: messages, Options: opts})
	fn := m.ChatFunc
	resp := m.Response
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, messages, opts)
	}
	return resp, nil
}

// LastCall returns the most recent Chat call, or false when none was made.
func (m *MockLLMAPI) LastCall() (ChatCall, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.ChatCalls) == 0 {
		return ChatCall{}, false
	}
	return m.ChatCalls[len(m.ChatCalls)-1], true
}

// CallCount returns how many times Chat was invoked.
func (m *MockLLMAPI) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.ChatCalls)
}
