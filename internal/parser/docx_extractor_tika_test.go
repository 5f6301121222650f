package parser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"hr-agent-go/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewTikaDOCXExtractorRequiresURL 验证缺少服务器URL时初始化失败
func TestNewTikaDOCXExtractorRequiresURL(t *testing.T) {
	_, err := NewTikaDOCXExtractor(config.TikaConfig{})
	assert.Error(t, err, "空服务器URL应返回错误")
}

// TestTikaExtractText 验证请求头和响应解析
func TestTikaExtractText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/tika", r.URL.Path)
		assert.Equal(t, "application/vnd.openxmlformats-officedocument.wordprocessingml.document", r.Header.Get("Content-Type"))
		assert.Equal(t, "text/plain", r.Header.Get("Accept"))

		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Extracted policy text."))
	}))
	defer server.Close()

	extractor, err := NewTikaDOCXExtractor(config.TikaConfig{ServerURL: server.URL})
	require.NoError(t, err)

	text, err := extractor.ExtractText(context.Background(), strings.NewReader("docx bytes"), "policy.docx")
	require.NoError(t, err)
	assert.Equal(t, "Extracted policy text.", text)
}

// TestTikaExtractTextServerError 验证服务器错误被透传
func TestTikaExtractTextServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte("cannot parse document"))
	}))
	defer server.Close()

	extractor, err := NewTikaDOCXExtractor(config.TikaConfig{ServerURL: server.URL})
	require.NoError(t, err)

	_, err = extractor.ExtractText(context.Background(), strings.NewReader("bad bytes"), "broken.docx")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "422")
}
