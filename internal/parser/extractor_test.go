package parser

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeExtractor 测试用的假提取器，固定返回预设文本
type fakeExtractor struct {
	text string
}

func (f *fakeExtractor) ExtractText(ctx context.Context, reader io.Reader, uri string) (string, error) {
	return f.text, nil
}

// TestFileExtractorSupported 验证扩展名支持判断，大小写不敏感
func TestFileExtractorSupported(t *testing.T) {
	f := NewFileExtractor(&fakeExtractor{}, &fakeExtractor{})

	assert.True(t, f.Supported("resume.pdf"))
	assert.True(t, f.Supported("Resume.PDF"))
	assert.True(t, f.Supported("policy.docx"))
	assert.True(t, f.Supported("POLICY.DOCX"))
	assert.False(t, f.Supported("notes.txt"))
	assert.False(t, f.Supported("archive.doc"))
	assert.False(t, f.Supported("noext"))
}

// TestFileExtractorDispatch 验证按扩展名分发到对应的提取器
func TestFileExtractorDispatch(t *testing.T) {
	f := NewFileExtractor(&fakeExtractor{text: "pdf text"}, &fakeExtractor{text: "docx text"})
	ctx := context.Background()

	text, err := f.ExtractText(ctx, strings.NewReader("data"), "handbook.pdf")
	require.NoError(t, err)
	assert.Equal(t, "pdf text", text)

	text, err = f.ExtractText(ctx, strings.NewReader("data"), "handbook.docx")
	require.NoError(t, err)
	assert.Equal(t, "docx text", text)
}

// TestFileExtractorUnsupportedFormat 验证不支持的格式返回哨兵错误
func TestFileExtractorUnsupportedFormat(t *testing.T) {
	f := NewFileExtractor(&fakeExtractor{}, &fakeExtractor{})

	_, err := f.ExtractText(context.Background(), strings.NewReader("data"), "notes.txt")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
