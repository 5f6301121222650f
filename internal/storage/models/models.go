package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// Document 知识库文档元数据
type Document struct {
	DocID       string    `gorm:"column:doc_id;type:varchar(36);primaryKey" json:"doc_id"`
	Filename    string    `gorm:"column:filename;type:varchar(255);not null" json:"filename"`
	DocType     string    `gorm:"column:doc_type;type:varchar(32);not null;index" json:"doc_type"`
	ContentText string    `gorm:"column:content_text;type:text" json:"content"` // 预览文本，截断保存
	FileMD5     string    `gorm:"column:file_md5;type:varchar(32);index" json:"-"`
	ObjectKey   string    `gorm:"column:object_key;type:varchar(512)" json:"-"` // MinIO中原始文件的对象键
	UploadedAt  time.Time `gorm:"column:uploaded_at;not null;index" json:"uploaded_at"`
}

// TableName 指定Document对应的表名
func (Document) TableName() string {
	return "documents"
}

// ChatMessage 对话消息记录，用户消息和助手回复各占一行
type ChatMessage struct {
	MessageID  string    `gorm:"column:message_id;type:varchar(36);primaryKey" json:"message_id"`
	SessionID  string    `gorm:"column:session_id;type:varchar(64);not null;index" json:"session_id"`
	Role       string    `gorm:"column:role;type:varchar(16);not null" json:"role"`
	Content    string    `gorm:"column:content;type:text;not null" json:"content"`
	Confidence *float64  `gorm:"column:confidence;type:double" json:"confidence,omitempty"` // 仅助手消息有置信度
	Escalated  *bool     `gorm:"column:escalated" json:"escalated,omitempty"`
	Timestamp  time.Time `gorm:"column:timestamp;not null;index" json:"timestamp"`
}

// TableName 指定ChatMessage对应的表名
func (ChatMessage) TableName() string {
	return "chat_messages"
}

// Resume 候选人简历记录
type Resume struct {
	ResumeID      string     `gorm:"column:resume_id;type:varchar(36);primaryKey" json:"resume_id"`
	CandidateName string     `gorm:"column:candidate_name;type:varchar(128);not null" json:"candidate_name"`
	Filename      string     `gorm:"column:filename;type:varchar(255);not null" json:"filename"`
	ContentText   string     `gorm:"column:content_text;type:text" json:"content"` // 预览文本，截断保存
	FileMD5       string     `gorm:"column:file_md5;type:varchar(32);index" json:"-"`
	ObjectKey     string     `gorm:"column:object_key;type:varchar(512)" json:"-"`
	Score         *float64   `gorm:"column:score;type:double" json:"score,omitempty"` // 筛选前为NULL
	Analysis      string     `gorm:"column:analysis;type:text" json:"analysis,omitempty"`
	Screened      bool       `gorm:"column:screened;not null;default:false" json:"screened"`
	ScreenedAt    *time.Time `gorm:"column:screened_at" json:"screened_at,omitempty"`
	UploadedAt    time.Time  `gorm:"column:uploaded_at;not null;index" json:"uploaded_at"`
}

// TableName 指定Resume对应的表名
func (Resume) TableName() string {
	return "resumes"
}

// InterviewTurn 面试会话中的一轮发言
type InterviewTurn struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// InterviewSession 面试会话，完整对话以JSON数组保存在messages列
type InterviewSession struct {
	SessionID     string         `gorm:"column:session_id;type:varchar(64);primaryKey" json:"session_id"`
	CandidateName string         `gorm:"column:candidate_name;type:varchar(128);not null" json:"candidate_name"`
	Position      string         `gorm:"column:position;type:varchar(128);not null" json:"position"`
	Messages      datatypes.JSON `gorm:"column:messages;type:json" json:"-"`
	Evaluation    string         `gorm:"column:evaluation;type:text" json:"evaluation,omitempty"`
	Score         *float64       `gorm:"column:score;type:double" json:"score,omitempty"`
	Completed     bool           `gorm:"column:completed;not null;default:false" json:"completed"`
	CreatedAt     time.Time      `gorm:"column:created_at;not null" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"column:updated_at;not null" json:"updated_at"`
}

// TableName 指定InterviewSession对应的表名
func (InterviewSession) TableName() string {
	return "interview_sessions"
}

// Turns 反序列化messages列为发言列表
func (s *InterviewSession) Turns() ([]InterviewTurn, error) {
	if len(s.Messages) == 0 {
		return nil, nil
	}
	var turns []InterviewTurn
	if err := json.Unmarshal(s.Messages, &turns); err != nil {
		return nil, fmt.Errorf("反序列化面试消息失败: %w", err)
	}
	return turns, nil
}

// SetTurns 序列化发言列表写回messages列
func (s *InterviewSession) SetTurns(turns []InterviewTurn) error {
	data, err := json.Marshal(turns)
	if err != nil {
		return fmt.Errorf("序列化面试消息失败: %w", err)
	}
	s.Messages = datatypes.JSON(data)
	return nil
}

// AssistantTurnCount 统计助手已发言的轮次数
func (s *InterviewSession) AssistantTurnCount() (int, error) {
	turns, err := s.Turns()
	if err != nil {
		return 0, err
	}
	count := 0
	for _, t := range turns {
		if t.Role == "assistant" {
			count++
		}
	}
	return count, nil
}
