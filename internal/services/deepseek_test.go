package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zackedds/no-rulez-web/pkg/chat"
)

func TestDeepSeekService_Chat(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"NARRATIVE:\nBoom."},"finish_reason":"stop"}],"usage":{"prompt_tokens":10,"completion_tokens":3,"total_tokens":13}}`))
	}))
	defer srv.Close()

	svc := NewDeepSeekService("sk-test", srv.URL+"/", "deepseek-chat", 5*time.Second, testLogger())
	out, err := svc.Chat(context.Background(), []chat.ChatMessage{
		{Role: chat.ChatRoleSystem, Content: "rules"},
		{Role: chat.ChatRoleUser, Content: "I throw a rock"},
	}, chat.Options{MaxTokens: 1000, Temperature: 1.0})

	require.NoError(t, err)
	assert.Equal(t, "NARRATIVE:\nBoom.", out)
	assert.Equal(t, "deepseek-chat", got["model"])
	assert.EqualValues(t, 1000, got["max_tokens"])
	assert.EqualValues(t, 1, got["temperature"])
	assert.Len(t, got["messages"], 2)
	assert.Equal(t, "deepseek", svc.Name())
}

func TestDeepSeekService_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		is     error
	}{
		{"server error", http.StatusInternalServerError, `{"error":{"message":"overloaded","type":"server_error"}}`, nil},
		{"no choices", http.StatusOK, `{"choices":[]}`, ErrEmptyResponse},
		{"blank content", http.StatusOK, `{"choices":[{"message":{"role":"assistant","content":"  "}}]}`, ErrEmptyResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			svc := NewDeepSeekService("k", srv.URL, "deepseek-chat", 5*time.Second, testLogger())
			_, err := svc.Chat(context.Background(), []chat.ChatMessage{{Role: chat.ChatRoleUser, Content: "x"}}, chat.Options{})
			require.Error(t, err)
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			}
		})
	}
}
