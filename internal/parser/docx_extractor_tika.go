package parser

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"hr-agent-go/internal/config"
)

// TikaDOCXExtractor 通过Tika服务器提取DOCX文本
type TikaDOCXExtractor struct {
	serverURL  string
	httpClient *http.Client
	logger     *log.Logger
}

// TikaOption Tika提取器的配置选项
type TikaOption func(*TikaDOCXExtractor)

// WithTikaLogger 配置自定义日志记录器
func WithTikaLogger(logger *log.Logger) TikaOption {
	return func(t *TikaDOCXExtractor) {
		t.logger = logger
	}
}

// WithTikaTimeout 设置HTTP客户端超时
func WithTikaTimeout(timeout time.Duration) TikaOption {
	return func(t *TikaDOCXExtractor) {
		t.httpClient = &http.Client{Timeout: timeout}
	}
}

// NewTikaDOCXExtractor 创建Tika DOCX文本提取器
func NewTikaDOCXExtractor(cfg config.TikaConfig, options ...TikaOption) (*TikaDOCXExtractor, error) {
	serverURL := cfg.ServerURL
	if serverURL == "" {
		return nil, fmt.Errorf("Tika服务器URL不能为空")
	}

	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	extractor := &TikaDOCXExtractor{
		serverURL:  serverURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     log.New(os.Stderr, "[Tika解析器] ", log.LstdFlags),
	}

	for _, option := range options {
		option(extractor)
	}

	return extractor, nil
}

// ExtractText 将DOCX内容发送到Tika服务器，返回纯文本
func (t *TikaDOCXExtractor) ExtractText(ctx context.Context, reader io.Reader, uri string) (string, error) {
	startTime := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, t.serverURL+"/tika", reader)
	if err != nil {
		return "", fmt.Errorf("创建Tika请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/vnd.openxmlformats-officedocument.wordprocessingml.document")
	req.Header.Set("Accept", "text/plain")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("发送Tika请求失败: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("读取Tika响应失败: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("Tika服务器返回错误, 状态码: %d, 响应: %s", resp.StatusCode, string(body))
	}

	duration := time.Since(startTime)
	t.logger.Printf("DOCX提取完成 (URI: %s): %d 个字符 (用时 %.2f秒)", uri, len(body), duration.Seconds())
	return string(body), nil
}
