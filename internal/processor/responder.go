package processor

import (
	"context"
	"fmt"
	"strings"

	"hr-agent-go/internal/logger"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

const (
	// LLM调用失败时的兜底回复
	fallbackReply      = "I apologize, but I'm having trouble processing your request. Please try again."
	fallbackConfidence = 0.5

	// 低置信度时覆盖回复，引导用户提供联系信息
	escalationReply = "I will escalate this request to the HR/Support team. Can I get your employee ID and contact details?"

	// 置信度阈值：长回复视为高置信度，低于0.60触发升级
	highConfidence      = 0.85
	lowConfidence       = 0.60
	confidenceLenCutoff = 50
	escalateThreshold   = 0.60
)

// ResponderResult 一次问答的结果
type ResponderResult struct {
	Reply      string
	Confidence float64
	Escalated  bool
}

// Responder 基于知识库上下文回答HR与支持类问题
type Responder struct {
	model model.ChatModel
}

// NewResponder 创建问答处理器
func NewResponder(chatModel model.ChatModel) *Responder {
	return &Responder{model: chatModel}
}

// buildChatSystemPrompt 构造带知识库上下文的系统提示词
func buildChatSystemPrompt(contextDocs []string) string {
	contextText := "No relevant documents found."
	if len(contextDocs) > 0 {
		contextText = strings.Join(contextDocs, "\n\n")
	}

	return fmt.Sprintf(`You are an AI HR & Support Assistant. Your responsibilities:

1. Answer HR-related queries about leaves, attendance, payroll, benefits, policies, onboarding
2. Provide general customer support
3. Be professional, friendly, and supportive
4. Respond concisely (3-6 lines) unless more detail is requested

Knowledge Base Context:
%s

Rules:
- Use the knowledge base to answer questions
- If information is not in the knowledge base and you're not confident, say: "I will escalate this to the HR team. Can I get your employee ID and contact details?"
- Never invent company-specific information
- Ask clarifying questions if needed`, contextText)
}

// generateWithFallback 调用LLM，失败时返回兜底回复而不是错误
func generateWithFallback(ctx context.Context, chatModel model.ChatModel, systemPrompt, userMessage string) (string, float64) {
	messages := []*schema.Message{
		{Role: schema.System, Content: systemPrompt},
		{Role: schema.User, Content: userMessage},
	}

	resp, err := chatModel.Generate(ctx, messages)
	if err != nil {
		logger.Error().Err(err).Msg("LLM调用失败，返回兜底回复")
		return fallbackReply, fallbackConfidence
	}

	confidence := lowConfidence
	if len(resp.Content) > confidenceLenCutoff {
		confidence = highConfidence
	}
	return resp.Content, confidence
}

// GetResponse 回答用户消息。置信度低于阈值时标记升级，
// 且回复中未提及升级时用固定升级话术覆盖。
func (r *Responder) GetResponse(ctx context.Context, userMessage string, contextDocs []string) ResponderResult {
	systemPrompt := buildChatSystemPrompt(contextDocs)
	reply, confidence := generateWithFallback(ctx, r.model, systemPrompt, userMessage)

	escalated := confidence < escalateThreshold
	if escalated && !strings.Contains(strings.ToLower(reply), "escalate") {
		reply = escalationReply
	}

	return ResponderResult{
		Reply:      reply,
		Confidence: confidence,
		Escalated:  escalated,
	}
}
