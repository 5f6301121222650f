package handler

import (
	"context"
	"fmt"
	"time"

	"hr-agent-go/internal/config"
	"hr-agent-go/internal/constants"
	"hr-agent-go/internal/logger"
	"hr-agent-go/internal/processor"
	"hr-agent-go/internal/storage"
	"hr-agent-go/internal/storage/models"

	"github.com/google/uuid"
)

// ChatStore 对话消息的持久化接口，由storage.MySQL实现
type ChatStore interface {
	CreateChatMessage(ctx context.Context, msg *models.ChatMessage) error
	ListChatMessages(ctx context.Context, sessionID string) ([]models.ChatMessage, error)
}

// ChatHandler 问答处理器，协调知识库检索、LLM问答和会话持久化
type ChatHandler struct {
	cfg       *config.Config
	store     ChatStore
	vectors   storage.VectorDatabase
	queue     storage.MessageQueue
	embedder  processor.Embedder
	responder *processor.Responder
}

// NewChatHandler 创建问答处理器
func NewChatHandler(cfg *config.Config, st *storage.Storage, embedder processor.Embedder, responder *processor.Responder) *ChatHandler {
	h := &ChatHandler{
		cfg:       cfg,
		embedder:  embedder,
		responder: responder,
	}
	if st != nil {
		if st.MySQL != nil {
			h.store = st.MySQL
		}
		if st.Qdrant != nil {
			h.vectors = st.Qdrant
		}
		if st.RabbitMQ != nil {
			h.queue = st.RabbitMQ
		}
	}
	return h
}

// ChatResponse 问答响应
type ChatResponse struct {
	Response   string  `json:"response"`
	Confidence float64 `json:"confidence"`
	Escalated  bool    `json:"escalated"`
}

// retrieveContext 检索与用户问题最相关的知识库文档内容。
// 检索失败时返回空上下文，问答流程继续。
func (h *ChatHandler) retrieveContext(ctx context.Context, query string) []string {
	if h.vectors == nil {
		return nil
	}

	vectors, err := h.embedder.EmbedStrings(ctx, []string{query})
	if err != nil || len(vectors) == 0 {
		logger.Warn().Err(err).Msg("问题向量化失败，跳过知识库检索")
		return nil
	}

	topK := h.cfg.Qdrant.DefaultSearchLimit
	if topK <= 0 {
		topK = constants.DefaultRetrievalTopK
	}
	results, err := h.vectors.Search(ctx, h.cfg.Qdrant.DocumentCollection, vectors[0], topK)
	if err != nil {
		logger.Warn().Err(err).Msg("知识库检索失败，使用空上下文")
		return nil
	}

	var docs []string
	for _, res := range results {
		if content, ok := res.Payload["content"].(string); ok && content != "" {
			docs = append(docs, content)
		}
	}
	return docs
}

// HandleChat 处理一轮问答：记录用户消息、检索上下文、生成回复并持久化
func (h *ChatHandler) HandleChat(ctx context.Context, sessionID, message string) (*ChatResponse, error) {
	now := time.Now().UTC()
	userMsg := &models.ChatMessage{
		MessageID: uuid.NewString(),
		SessionID: sessionID,
		Role:      constants.RoleUser,
		Content:   message,
		Timestamp: now,
	}
	if err := h.store.CreateChatMessage(ctx, userMsg); err != nil {
		return nil, fmt.Errorf("保存用户消息失败: %w", err)
	}

	contextDocs := h.retrieveContext(ctx, message)
	result := h.responder.GetResponse(ctx, message, contextDocs)

	assistantMsg := &models.ChatMessage{
		MessageID:  uuid.NewString(),
		SessionID:  sessionID,
		Role:       constants.RoleAssistant,
		Content:    result.Reply,
		Confidence: &result.Confidence,
		Escalated:  &result.Escalated,
		Timestamp:  time.Now().UTC(),
	}
	if err := h.store.CreateChatMessage(ctx, assistantMsg); err != nil {
		return nil, fmt.Errorf("保存助手消息失败: %w", err)
	}

	// 升级事件发布到消息队列，失败只记录日志
	if result.Escalated && h.queue != nil {
		event := storage.EscalationMessage{
			SessionID:   sessionID,
			UserMessage: message,
			AgentReply:  result.Reply,
			Confidence:  result.Confidence,
			EscalatedAt: time.Now().UTC(),
		}
		if err := h.queue.PublishJSON(ctx, h.cfg.RabbitMQ.EscalationExchange, h.cfg.RabbitMQ.EscalationRoutingKey, event, true); err != nil {
			logger.Warn().Err(err).Str("session_id", sessionID).Msg("发布会话升级事件失败")
		}
	}

	return &ChatResponse{
		Response:   result.Reply,
		Confidence: result.Confidence,
		Escalated:  result.Escalated,
	}, nil
}

// HandleChatHistory 返回会话的全部消息，按时间正序
func (h *ChatHandler) HandleChatHistory(ctx context.Context, sessionID string) ([]models.ChatMessage, error) {
	msgs, err := h.store.ListChatMessages(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("查询会话历史失败: %w", err)
	}
	return msgs, nil
}
