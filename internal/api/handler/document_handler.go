package handler

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"hr-agent-go/internal/config"
	"hr-agent-go/internal/constants"
	"hr-agent-go/internal/logger"
	"hr-agent-go/internal/processor"
	"hr-agent-go/internal/storage"
	"hr-agent-go/internal/storage/models"

	"github.com/gofrs/uuid/v5"
	"gorm.io/gorm"
)

// DocumentStore 文档元数据的持久化接口，由storage.MySQL实现
type DocumentStore interface {
	CreateDocument(ctx context.Context, doc *models.Document) error
	GetDocument(ctx context.Context, docID string) (*models.Document, error)
	ListDocuments(ctx context.Context) ([]models.Document, error)
}

// FileDeduplicator 文件MD5去重接口，由storage.Redis实现
type FileDeduplicator interface {
	CheckAndAddFileMD5(ctx context.Context, setKey, fileMD5 string) (bool, error)
	RemoveFileMD5(ctx context.Context, setKey, fileMD5 string) error
}

// DocumentHandler 知识库文档处理器，负责文档的入库流程
type DocumentHandler struct {
	cfg       *config.Config
	store     DocumentStore
	dedup     FileDeduplicator
	objects   storage.ObjectStorage
	vectors   storage.VectorDatabase
	extractor processor.TextExtractor
	embedder  processor.Embedder
}

// NewDocumentHandler 创建文档处理器
func NewDocumentHandler(cfg *config.Config, st *storage.Storage, extractor processor.TextExtractor, embedder processor.Embedder) *DocumentHandler {
	h := &DocumentHandler{
		cfg:       cfg,
		extractor: extractor,
		embedder:  embedder,
	}
	if st != nil {
		if st.MySQL != nil {
			h.store = st.MySQL
		}
		if st.Redis != nil {
			h.dedup = st.Redis
		}
		if st.MinIO != nil {
			h.objects = st.MinIO
		}
		if st.Qdrant != nil {
			h.vectors = st.Qdrant
		}
	}
	return h
}

// DocumentUploadResponse 文档上传响应
type DocumentUploadResponse struct {
	Message string `json:"message"`
	DocID   string `json:"doc_id"`
}

// HandleDocumentUpload 处理文档上传：去重、提取文本、归档原件、写入向量库和元数据库
func (h *DocumentHandler) HandleDocumentUpload(ctx context.Context, reader io.Reader, filename string, docType string) (*DocumentUploadResponse, error) {
	if docType == "" {
		docType = constants.DocTypeHR
	}

	if !h.extractor.Supported(filename) {
		return nil, ErrUnsupportedFormat
	}

	fileBytes, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("读取上传文件内容失败: %w", err)
	}

	// 文件MD5去重，Redis不可用时跳过去重继续入库
	md5Sum := md5.Sum(fileBytes)
	fileMD5Hex := hex.EncodeToString(md5Sum[:])
	if h.dedup != nil {
		exists, err := h.dedup.CheckAndAddFileMD5(ctx, constants.DocumentMD5SetKey, fileMD5Hex)
		if err != nil {
			logger.Warn().Err(err).Str("md5", fileMD5Hex).Msg("文档MD5去重检查失败，跳过去重")
		} else if exists {
			logger.Info().Str("md5", fileMD5Hex).Str("filename", filename).Msg("检测到重复文档，跳过入库")
			return &DocumentUploadResponse{Message: "Duplicate document skipped", DocID: ""}, nil
		}
	}

	text, err := h.extractor.ExtractText(ctx, bytes.NewReader(fileBytes), filename)
	if err != nil {
		h.rollbackMD5(ctx, constants.DocumentMD5SetKey, fileMD5Hex)
		return nil, fmt.Errorf("提取文档文本失败: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		h.rollbackMD5(ctx, constants.DocumentMD5SetKey, fileMD5Hex)
		return nil, ErrEmptyDocumentText
	}

	uuidV7, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("生成UUIDv7失败: %w", err)
	}
	docID := uuidV7.String()
	uploadedAt := time.Now().UTC()

	// 归档原始文件，失败不阻断入库
	var objectKey string
	if h.objects != nil {
		objectKey, err = h.objects.UploadDocumentFile(ctx, docID, filename, bytes.NewReader(fileBytes), int64(len(fileBytes)))
		if err != nil {
			logger.Warn().Err(err).Str("doc_id", docID).Msg("归档文档原件到MinIO失败")
			objectKey = ""
		}
	}

	// 向量化并写入Qdrant，超长文本在rune边界截断后再送Embedding
	embedInput := truncateUTF8(text, constants.EmbeddingInputMaxLen)
	vectors, err := h.embedder.EmbedStrings(ctx, []string{embedInput})
	if err != nil {
		h.rollbackMD5(ctx, constants.DocumentMD5SetKey, fileMD5Hex)
		return nil, fmt.Errorf("文档向量化失败: %w", err)
	}
	if len(vectors) == 0 {
		h.rollbackMD5(ctx, constants.DocumentMD5SetKey, fileMD5Hex)
		return nil, fmt.Errorf("Embedding接口未返回向量")
	}

	payload := map[string]interface{}{
		"content":     text,
		"filename":    filename,
		"doc_type":    docType,
		"uploaded_at": uploadedAt.Format(time.RFC3339),
	}
	if err := h.vectors.UpsertPoint(ctx, h.cfg.Qdrant.DocumentCollection, docID, vectors[0], payload); err != nil {
		h.rollbackMD5(ctx, constants.DocumentMD5SetKey, fileMD5Hex)
		return nil, fmt.Errorf("写入向量库失败: %w", err)
	}

	doc := &models.Document{
		DocID:       docID,
		Filename:    filename,
		DocType:     docType,
		ContentText: truncateUTF8(text, constants.DocumentPreviewLen),
		FileMD5:     fileMD5Hex,
		ObjectKey:   objectKey,
		UploadedAt:  uploadedAt,
	}
	if err := h.store.CreateDocument(ctx, doc); err != nil {
		h.rollbackMD5(ctx, constants.DocumentMD5SetKey, fileMD5Hex)
		h.cleanupArchive(ctx, objectKey)
		return nil, fmt.Errorf("保存文档元数据失败: %w", err)
	}

	logger.Info().Str("doc_id", docID).Str("filename", filename).Str("doc_type", docType).Msg("文档入库完成")
	return &DocumentUploadResponse{Message: "Document uploaded successfully", DocID: docID}, nil
}

// rollbackMD5 入库失败时移除去重记录，允许同一文件重试
func (h *DocumentHandler) rollbackMD5(ctx context.Context, setKey, md5Hex string) {
	if h.dedup == nil {
		return
	}
	if err := h.dedup.RemoveFileMD5(ctx, setKey, md5Hex); err != nil {
		logger.Warn().Err(err).Str("md5", md5Hex).Msg("回滚MD5去重记录失败")
	}
}

// cleanupArchive 元数据保存失败时删除已归档的原件，避免孤儿对象
func (h *DocumentHandler) cleanupArchive(ctx context.Context, objectKey string) {
	if h.objects == nil || objectKey == "" {
		return
	}
	if err := h.objects.DeleteFile(ctx, objectKey); err != nil {
		logger.Warn().Err(err).Str("object_key", objectKey).Msg("清理归档文件失败")
	}
}

// HandleListDocuments 返回全部文档元数据
func (h *DocumentHandler) HandleListDocuments(ctx context.Context) ([]models.Document, error) {
	docs, err := h.store.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("查询文档列表失败: %w", err)
	}
	return docs, nil
}

// HandleDocumentFile 下载文档的归档原件。文档不存在或未归档时返回ErrDocumentNotFound
func (h *DocumentHandler) HandleDocumentFile(ctx context.Context, docID string) ([]byte, string, error) {
	doc, err := h.store.GetDocument(ctx, docID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrDocumentNotFound
		}
		return nil, "", fmt.Errorf("查询文档元数据失败: %w", err)
	}
	if doc.ObjectKey == "" || h.objects == nil {
		return nil, "", ErrDocumentNotFound
	}

	data, err := h.objects.DownloadFile(ctx, doc.ObjectKey)
	if err != nil {
		return nil, "", fmt.Errorf("下载文档原件失败: %w", err)
	}

	filename := doc.Filename
	if filename == "" {
		filename = path.Base(doc.ObjectKey)
	}
	return data, filename, nil
}
