package router

import (
	"fmt"
	"testing"

	"hr-agent-go/internal/api/handler"

	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/stretchr/testify/assert"
)

// TestStatusForError 验证处理器错误到HTTP状态码的映射
func TestStatusForError(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		expected int
	}{
		{"不支持的格式", handler.ErrUnsupportedFormat, consts.StatusBadRequest},
		{"文档无文本", handler.ErrEmptyDocumentText, consts.StatusBadRequest},
		{"简历无文本", handler.ErrEmptyResumeText, consts.StatusBadRequest},
		{"会话不存在", handler.ErrSessionNotFound, consts.StatusNotFound},
		{"文档不存在", handler.ErrDocumentNotFound, consts.StatusNotFound},
		{"会话被占用", handler.ErrSessionBusy, consts.StatusConflict},
		{"包装后的会话不存在", fmt.Errorf("查询失败: %w", handler.ErrSessionNotFound), consts.StatusNotFound},
		{"未知错误", fmt.Errorf("db connection refused"), consts.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, statusForError(tc.err))
		})
	}
}
