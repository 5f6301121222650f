package processor

import (
	"context"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// stubChatModel 测试用的假LLM，返回预设的回复或错误，并记录最近一次输入
type stubChatModel struct {
	reply     string
	err       error
	lastInput []*schema.Message
}

var _ model.ChatModel = (*stubChatModel)(nil)

func (m *stubChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	m.lastInput = input
	if m.err != nil {
		return nil, m.err
	}
	return &schema.Message{Role: schema.Assistant, Content: m.reply}, nil
}

func (m *stubChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, nil
}

func (m *stubChatModel) BindTools(tools []*schema.ToolInfo) error {
	return nil
}
