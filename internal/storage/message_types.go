package storage

import "time"

// EscalationMessage 会话升级事件，发布到RabbitMQ供人工支持系统消费
type EscalationMessage struct {
	SessionID   string    `json:"session_id"`
	UserMessage string    `json:"user_message"`
	AgentReply  string    `json:"agent_reply"`
	Confidence  float64   `json:"confidence"`
	EscalatedAt time.Time `json:"escalated_at"`
}
