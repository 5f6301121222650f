package parser

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
)

// ErrUnsupportedFormat 上传的文件扩展名不在支持范围内
var ErrUnsupportedFormat = fmt.Errorf("unsupported file format")

// TextExtractor 从文件内容中提取纯文本
type TextExtractor interface {
	ExtractText(ctx context.Context, reader io.Reader, uri string) (string, error)
}

// FileExtractor 按文件扩展名分发到对应的提取器，当前支持 .pdf 和 .docx
type FileExtractor struct {
	pdf  TextExtractor
	docx TextExtractor
}

// NewFileExtractor 创建按扩展名分发的文本提取器
func NewFileExtractor(pdf TextExtractor, docx TextExtractor) *FileExtractor {
	return &FileExtractor{
		pdf:  pdf,
		docx: docx,
	}
}

// Supported 判断文件名的扩展名是否受支持
func (f *FileExtractor) Supported(filename string) bool {
	switch strings.ToLower(path.Ext(filename)) {
	case ".pdf", ".docx":
		return true
	}
	return false
}

// ExtractText 根据文件扩展名选择提取器并提取文本
func (f *FileExtractor) ExtractText(ctx context.Context, reader io.Reader, filename string) (string, error) {
	switch strings.ToLower(path.Ext(filename)) {
	case ".pdf":
		if f.pdf == nil {
			return "", fmt.Errorf("PDF提取器未初始化")
		}
		return f.pdf.ExtractText(ctx, reader, filename)
	case ".docx":
		if f.docx == nil {
			return "", fmt.Errorf("DOCX提取器未初始化")
		}
		return f.docx.ExtractText(ctx, reader, filename)
	default:
		return "", ErrUnsupportedFormat
	}
}
