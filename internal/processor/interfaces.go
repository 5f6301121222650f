package processor

import (
	"context"
	"io"

	"github.com/cloudwego/eino/components/embedding"
)

// Embedder 文本向量化接口，由parser.AliyunEmbedder实现
type Embedder interface {
	EmbedStrings(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float64, error)
}

// TextExtractor 文件文本提取接口，由parser.FileExtractor实现
type TextExtractor interface {
	ExtractText(ctx context.Context, reader io.Reader, filename string) (string, error)
	Supported(filename string) bool
}
