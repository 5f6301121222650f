package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestInterviewSessionTurnsRoundTrip 验证messages列的序列化与反序列化
func TestInterviewSessionTurnsRoundTrip(t *testing.T) {
	session := &InterviewSession{SessionID: "s1"}

	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	original := []InterviewTurn{
		{Role: "assistant", Content: "Hello Alice!", Timestamp: now},
		{Role: "user", Content: "Hi, I'm ready.", Timestamp: now.Add(time.Minute)},
	}

	require.NoError(t, session.SetTurns(original))

	restored, err := session.Turns()
	require.NoError(t, err)
	assert.Equal(t, original, restored)
}

// TestInterviewSessionTurnsEmpty 验证空messages列返回nil而非错误
func TestInterviewSessionTurnsEmpty(t *testing.T) {
	session := &InterviewSession{SessionID: "s1"}

	turns, err := session.Turns()
	require.NoError(t, err)
	assert.Nil(t, turns)
}

// TestInterviewSessionTurnsInvalidJSON 验证非法JSON返回错误
func TestInterviewSessionTurnsInvalidJSON(t *testing.T) {
	session := &InterviewSession{SessionID: "s1", Messages: []byte("{not json")}

	_, err := session.Turns()
	assert.Error(t, err)
}

// TestAssistantTurnCount 验证助手轮次统计只计assistant角色
func TestAssistantTurnCount(t *testing.T) {
	session := &InterviewSession{SessionID: "s1"}
	require.NoError(t, session.SetTurns([]InterviewTurn{
		{Role: "assistant", Content: "q1"},
		{Role: "user", Content: "a1"},
		{Role: "assistant", Content: "q2"},
		{Role: "user", Content: "a2"},
		{Role: "assistant", Content: "q3"},
	}))

	count, err := session.AssistantTurnCount()
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}
