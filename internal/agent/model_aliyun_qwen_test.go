package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewAliyunQwenChatModelRequiresAPIKey 验证缺少API密钥时初始化失败
func TestNewAliyunQwenChatModelRequiresAPIKey(t *testing.T) {
	_, err := NewAliyunQwenChatModel("  ", "qwen-plus", "")
	assert.Error(t, err, "空API密钥应返回错误")
}

// TestNewAliyunQwenChatModelDefaults 验证模型名和URL的默认值
func TestNewAliyunQwenChatModelDefaults(t *testing.T) {
	m, err := NewAliyunQwenChatModel("test-key", "", "")
	require.NoError(t, err)
	assert.Equal(t, defaultQwenModelName, m.modelName)
	assert.Equal(t, openAICompatibleQwenAPIURL, m.apiURL)
}

// TestGenerate 验证请求格式和响应解析
func TestGenerate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "qwen-plus", req["model"])
		messages := req["messages"].([]interface{})
		require.Len(t, messages, 2)

		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1717000000,
			"model": "qwen-plus",
			"choices": [{
				"index": 0,
				"message": {"role": "assistant", "content": "Our leave policy allows 20 days."},
				"finish_reason": "stop"
			}]
		}`))
	}))
	defer server.Close()

	m, err := NewAliyunQwenChatModel("test-key", "qwen-plus", server.URL)
	require.NoError(t, err)

	resp, err := m.Generate(context.Background(), []*schema.Message{
		{Role: schema.System, Content: "You are an HR assistant."},
		{Role: schema.User, Content: "How many leave days?"},
	})
	require.NoError(t, err)
	assert.Equal(t, schema.Assistant, resp.Role)
	assert.Equal(t, "Our leave policy allows 20 days.", resp.Content)
}

// TestGenerateAPIError 验证非200响应返回错误
func TestGenerateAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error": {"message": "rate limit exceeded"}}`))
	}))
	defer server.Close()

	m, err := NewAliyunQwenChatModel("test-key", "", server.URL)
	require.NoError(t, err)

	_, err = m.Generate(context.Background(), []*schema.Message{{Role: schema.User, Content: "hi"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit exceeded")
}

// TestGenerateEmptyChoices 验证空choices返回错误
func TestGenerateEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"id": "chatcmpl-2", "choices": []}`))
	}))
	defer server.Close()

	m, err := NewAliyunQwenChatModel("test-key", "", server.URL)
	require.NoError(t, err)

	_, err = m.Generate(context.Background(), []*schema.Message{{Role: schema.User, Content: "hi"}})
	assert.Error(t, err)
}
