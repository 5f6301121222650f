package processor

import (
	"context"
	"testing"
	"time"

	"hr-agent-go/internal/storage/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestIntroMessage 验证面试开场白的固定格式
func TestIntroMessage(t *testing.T) {
	intro := IntroMessage("Alice", "Backend Engineer")
	expected := "Hello Alice! I'm your AI interviewer today for the Backend Engineer position. Let's begin with a simple question: Can you tell me about your background and why you're interested in this role?"
	assert.Equal(t, expected, intro)
}

func makeTurns(contents ...string) []models.InterviewTurn {
	turns := make([]models.InterviewTurn, 0, len(contents))
	role := "assistant"
	for _, c := range contents {
		turns = append(turns, models.InterviewTurn{Role: role, Content: c, Timestamp: time.Now()})
		if role == "assistant" {
			role = "user"
		} else {
			role = "assistant"
		}
	}
	return turns
}

// TestBuildNextQuestionPromptRecentTurnsOnly 验证追问提示词只携带最近四轮对话
func TestBuildNextQuestionPromptRecentTurnsOnly(t *testing.T) {
	turns := makeTurns("q1", "a1", "q2", "a2", "q3", "a3")

	prompt := buildNextQuestionPrompt("Data Engineer", turns)

	assert.Contains(t, prompt, "Data Engineer")
	assert.NotContains(t, prompt, "q1", "最早的轮次不应出现在提示词中")
	assert.NotContains(t, prompt, "a1")
	assert.Contains(t, prompt, "assistant: q2")
	assert.Contains(t, prompt, "user: a2")
	assert.Contains(t, prompt, "assistant: q3")
	assert.Contains(t, prompt, "user: a3")
}

// TestBuildNextQuestionPromptFewTurns 验证对话不足四轮时全部带入
func TestBuildNextQuestionPromptFewTurns(t *testing.T) {
	turns := makeTurns("q1", "a1")

	prompt := buildNextQuestionPrompt("QA Engineer", turns)

	assert.Contains(t, prompt, "assistant: q1")
	assert.Contains(t, prompt, "user: a1")
}

// TestNextQuestion 验证追问直接返回LLM生成的问题
func TestNextQuestion(t *testing.T) {
	m := &stubChatModel{reply: "What testing frameworks have you used in Go?"}
	i := NewInterviewer(m)

	question := i.NextQuestion(context.Background(), "Go Developer", makeTurns("q1", "a1"))

	assert.Equal(t, "What testing frameworks have you used in Go?", question)
	require.Len(t, m.lastInput, 2)
	assert.Contains(t, m.lastInput[0].Content, "Go Developer")
}

// TestEvaluate 验证评估返回LLM文本和固定分数，提示词包含完整对话
func TestEvaluate(t *testing.T) {
	m := &stubChatModel{reply: "Overall assessment: solid candidate."}
	i := NewInterviewer(m)

	turns := makeTurns("q1", "a1", "q2", "a2", "q3", "a3", "q4", "a4", "q5", "a5")
	evaluation, score := i.Evaluate(context.Background(), "SRE", "Bob", turns)

	assert.Equal(t, "Overall assessment: solid candidate.", evaluation)
	assert.Equal(t, 75.0, score)

	require.Len(t, m.lastInput, 2)
	assert.Contains(t, m.lastInput[0].Content, "Position: SRE")
	assert.Contains(t, m.lastInput[0].Content, "Candidate: Bob")
	// 评估提示词应携带全部轮次
	assert.Contains(t, m.lastInput[0].Content, "assistant: q1")
	assert.Contains(t, m.lastInput[0].Content, "user: a5")
}
