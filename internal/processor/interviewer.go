package processor

import (
	"context"
	"fmt"

	"hr-agent-go/internal/storage/models"

	"github.com/cloudwego/eino/components/model"
)

const (
	// 面试评估未解析出分数时的默认值
	defaultInterviewScore = 75.0

	// 生成下一个问题时带入的最近对话轮数
	interviewContextTurns = 4

	nextQuestionUserPrompt = "Ask the next interview question."
	evaluationUserPrompt   = "Please evaluate this interview."
)

// Interviewer 负责面试开场、追问和最终评估
type Interviewer struct {
	model model.ChatModel
}

// NewInterviewer 创建面试处理器
func NewInterviewer(chatModel model.ChatModel) *Interviewer {
	return &Interviewer{model: chatModel}
}

// IntroMessage 面试开场白，固定为背景与动机问题
func IntroMessage(candidateName, position string) string {
	return fmt.Sprintf("Hello %s! I'm your AI interviewer today for the %s position. Let's begin with a simple question: Can you tell me about your background and why you're interested in this role?", candidateName, position)
}

// buildNextQuestionPrompt 构造追问的系统提示词，只带入最近几轮对话
func buildNextQuestionPrompt(position string, turns []models.InterviewTurn) string {
	prompt := fmt.Sprintf(`You are an AI Interviewer for a %s position. Based on the conversation so far, ask the next relevant interview question.

Make questions:
- Relevant to the position
- Progressive (build on previous answers)
- Mix of technical and behavioral
- Clear and professional

Previous conversation:
`, position)

	start := len(turns) - interviewContextTurns
	if start < 0 {
		start = 0
	}
	for _, turn := range turns[start:] {
		prompt += fmt.Sprintf("\n%s: %s", turn.Role, turn.Content)
	}
	return prompt
}

// buildEvaluationPrompt 构造最终评估的系统提示词，带入完整对话
func buildEvaluationPrompt(position, candidateName string, turns []models.InterviewTurn) string {
	prompt := fmt.Sprintf(`You are an AI Interview Evaluator. Review the interview conversation and provide:

1. Overall assessment
2. Strengths demonstrated
3. Areas of concern
4. Score (0-100)
5. Hiring recommendation

Position: %s
Candidate: %s

Interview Transcript:
`, position, candidateName)

	for _, turn := range turns {
		prompt += fmt.Sprintf("\n%s: %s", turn.Role, turn.Content)
	}
	return prompt
}

// NextQuestion 根据已有对话生成下一个面试问题
func (i *Interviewer) NextQuestion(ctx context.Context, position string, turns []models.InterviewTurn) string {
	systemPrompt := buildNextQuestionPrompt(position, turns)
	question, _ := generateWithFallback(ctx, i.model, systemPrompt, nextQuestionUserPrompt)
	return question
}

// Evaluate 生成面试评估，返回评估文本和分数
func (i *Interviewer) Evaluate(ctx context.Context, position, candidateName string, turns []models.InterviewTurn) (evaluation string, score float64) {
	systemPrompt := buildEvaluationPrompt(position, candidateName, turns)
	evaluation, _ = generateWithFallback(ctx, i.model, systemPrompt, evaluationUserPrompt)
	return evaluation, defaultInterviewScore
}
