package llm

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"twinkit/core"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newChatServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func chatResponse(content string) string {
	return `{"choices":[{"index":0,"message":{"role":"assistant","content":` + mustJSONString(content) + `}}]}`
}

func mustJSONString(s string) string {
	data, _ := sonic.Marshal(s)
	return string(data)
}

func TestChatReturnsTrimmedReply(t *testing.T) {
	var gotBody []byte
	server := newChatServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(chatResponse("  hello from the model \n")))
	})

	service, err := NewOpenAIChatService(Config{APIKey: "k", BaseURL: server.URL}, nil)
	require.NoError(t, err)

	reply, err := service.Chat(context.Background(), []core.LLMMessage{
		{Role: core.LLMMessageRoleSystem, Content: "be brief"},
		{Role: core.LLMMessageRoleUser, Content: "hi"},
	}, core.ChatOptions{Temperature: 0.5})
	require.NoError(t, err)
	assert.Equal(t, "hello from the model", reply)

	var req map[string]interface{}
	require.NoError(t, sonic.Unmarshal(gotBody, &req))
	assert.Equal(t, "gpt-4o-mini", req["model"])
	assert.InDelta(t, 0.5, req["temperature"], 1e-6)
	messages := req["messages"].([]interface{})
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]interface{})["role"])
	assert.Equal(t, "user", messages[1].(map[string]interface{})["role"])
}

func TestChatRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	server := newChatServer(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, `{"error":{"message":"overloaded"}}`, http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(chatResponse("recovered")))
	})

	service, err := NewOpenAIChatService(Config{APIKey: "k", BaseURL: server.URL}, nil)
	require.NoError(t, err)

	reply, err := service.Chat(context.Background(), core.SystemMessage("ping"), core.ChatOptions{})
	require.NoError(t, err)
	assert.Equal(t, "recovered", reply)
	assert.Equal(t, int32(2), calls.Load())
}

func TestChatGivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	server := newChatServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"error":{"message":"overloaded"}}`, http.StatusInternalServerError)
	})

	service, err := NewOpenAIChatService(Config{APIKey: "k", BaseURL: server.URL, MaxRetries: 2}, nil)
	require.NoError(t, err)

	_, err = service.Chat(context.Background(), core.SystemMessage("ping"), core.ChatOptions{})
	require.Error(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestNewServiceRequiresAPIKey(t *testing.T) {
	_, err := NewOpenAIChatService(Config{}, nil)
	require.Error(t, err)
}
