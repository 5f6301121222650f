package handler

import (
	"context"
	"strings"
	"testing"

	"hr-agent-go/internal/config"
	"hr-agent-go/internal/constants"
	"hr-agent-go/internal/processor"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestChatHandler(store ChatStore, reply string) *ChatHandler {
	return &ChatHandler{
		cfg:       config.DefaultConfig(),
		store:     store,
		responder: processor.NewResponder(&stubChatModel{reply: reply}),
	}
}

// TestChatPersistsBothTurns 一轮问答应持久化用户消息和助手回复
func TestChatPersistsBothTurns(t *testing.T) {
	store := &fakeChatStore{}
	longReply := strings.Repeat("Your leave balance is 12 days. ", 3)
	h := newTestChatHandler(store, longReply)

	resp, err := h.HandleChat(context.Background(), "sess-chat-1", "How many leave days do I have?")
	require.NoError(t, err)
	assert.Equal(t, longReply, resp.Response)
	assert.Equal(t, 0.85, resp.Confidence, "长回复应是高置信度")
	assert.False(t, resp.Escalated)

	require.Len(t, store.messages, 2, "应写入两条消息")
	assert.Equal(t, constants.RoleUser, store.messages[0].Role)
	assert.Equal(t, constants.RoleAssistant, store.messages[1].Role)
	require.NotNil(t, store.messages[1].Confidence)
	assert.Equal(t, 0.85, *store.messages[1].Confidence)
}

// TestChatHistoryAscendingOrder 会话历史按时间正序返回，包含之前问答的两端消息
func TestChatHistoryAscendingOrder(t *testing.T) {
	store := &fakeChatStore{}
	h := newTestChatHandler(store, strings.Repeat("Our reimbursement policy covers travel expenses. ", 2))
	ctx := context.Background()

	_, err := h.HandleChat(ctx, "sess-hist-1", "first question")
	require.NoError(t, err)
	_, err = h.HandleChat(ctx, "sess-hist-1", "second question")
	require.NoError(t, err)
	_, err = h.HandleChat(ctx, "sess-other", "unrelated question")
	require.NoError(t, err)

	msgs, err := h.HandleChatHistory(ctx, "sess-hist-1")
	require.NoError(t, err)
	require.Len(t, msgs, 4, "两轮问答共四条消息")

	for i := 1; i < len(msgs); i++ {
		assert.False(t, msgs[i].Timestamp.Before(msgs[i-1].Timestamp), "消息应按时间正序")
	}
	assert.Equal(t, constants.RoleUser, msgs[0].Role)
	assert.Equal(t, "first question", msgs[0].Content)
	assert.Equal(t, constants.RoleAssistant, msgs[1].Role)
	assert.Equal(t, constants.RoleUser, msgs[2].Role)
	assert.Equal(t, "second question", msgs[2].Content)
}
