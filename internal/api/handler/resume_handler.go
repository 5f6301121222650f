package handler

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"hr-agent-go/internal/config"
	"hr-agent-go/internal/constants"
	"hr-agent-go/internal/logger"
	"hr-agent-go/internal/processor"
	"hr-agent-go/internal/storage"
	"hr-agent-go/internal/storage/models"

	"github.com/gofrs/uuid/v5"
)

// ResumeStore 简历记录的持久化接口，由storage.MySQL实现
type ResumeStore interface {
	CreateResume(ctx context.Context, resume *models.Resume) error
	ListResumes(ctx context.Context) ([]models.Resume, error)
	UpdateResumeScreening(ctx context.Context, resumeID string, score float64, analysis string) error
}

// ResumeHandler 简历处理器，负责简历入库和批量筛选
type ResumeHandler struct {
	cfg       *config.Config
	store     ResumeStore
	dedup     FileDeduplicator
	objects   storage.ObjectStorage
	vectors   storage.VectorDatabase
	extractor processor.TextExtractor
	embedder  processor.Embedder
	screener  *processor.Screener
}

// NewResumeHandler 创建简历处理器
func NewResumeHandler(cfg *config.Config, st *storage.Storage, extractor processor.TextExtractor, embedder processor.Embedder, screener *processor.Screener) *ResumeHandler {
	h := &ResumeHandler{
		cfg:       cfg,
		extractor: extractor,
		embedder:  embedder,
		screener:  screener,
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

// ResumeUploadResponse 简历上传响应
type ResumeUploadResponse struct {
	Message  string `json:"message"`
	ResumeID string `json:"resume_id"`
}

// HandleResumeUpload 处理简历上传：去重、提取文本、归档原件、写入向量库和元数据库
func (h *ResumeHandler) HandleResumeUpload(ctx context.Context, reader io.Reader, filename string, candidateName string) (*ResumeUploadResponse, error) {
	if !h.extractor.Supported(filename) {
		return nil, ErrUnsupportedFormat
	}

	fileBytes, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("读取上传文件内容失败: %w", err)
	}

	md5Sum := md5.Sum(fileBytes)
	fileMD5Hex := hex.EncodeToString(md5Sum[:])
	if h.dedup != nil {
		exists, err := h.dedup.CheckAndAddFileMD5(ctx, constants.ResumeMD5SetKey, fileMD5Hex)
		if err != nil {
			logger.Warn().Err(err).Str("md5", fileMD5Hex).Msg("简历MD5去重检查失败，跳过去重")
		} else if exists {
			logger.Info().Str("md5", fileMD5Hex).Str("filename", filename).Msg("检测到重复简历，跳过入库")
			return &ResumeUploadResponse{Message: "Duplicate resume skipped", ResumeID: ""}, nil
		}
	}

	text, err := h.extractor.ExtractText(ctx, bytes.NewReader(fileBytes), filename)
	if err != nil {
		h.rollbackMD5(ctx, fileMD5Hex)
		return nil, fmt.Errorf("提取简历文本失败: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		h.rollbackMD5(ctx, fileMD5Hex)
		return nil, ErrEmptyResumeText
	}

	uuidV7, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("生成UUIDv7失败: %w", err)
	}
	resumeID := uuidV7.String()
	uploadedAt := time.Now().UTC()

	var objectKey string
	if h.objects != nil {
		objectKey, err = h.objects.UploadResumeFile(ctx, resumeID, filename, bytes.NewReader(fileBytes), int64(len(fileBytes)))
		if err != nil {
			logger.Warn().Err(err).Str("resume_id", resumeID).Msg("归档简历原件到MinIO失败")
			objectKey = ""
		}
	}

	embedInput := truncateUTF8(text, constants.EmbeddingInputMaxLen)
	vectors, err := h.embedder.EmbedStrings(ctx, []string{embedInput})
	if err != nil {
		h.rollbackMD5(ctx, fileMD5Hex)
		return nil, fmt.Errorf("简历向量化失败: %w", err)
	}
	if len(vectors) == 0 {
		h.rollbackMD5(ctx, fileMD5Hex)
		return nil, fmt.Errorf("Embedding接口未返回向量")
	}

	payload := map[string]interface{}{
		"content":     text,
		"filename":    filename,
		"uploaded_at": uploadedAt.Format(time.RFC3339),
	}
	if err := h.vectors.UpsertPoint(ctx, h.cfg.Qdrant.ResumeCollection, resumeID, vectors[0], payload); err != nil {
		h.rollbackMD5(ctx, fileMD5Hex)
		return nil, fmt.Errorf("写入向量库失败: %w", err)
	}

	resume := &models.Resume{
		ResumeID:      resumeID,
		CandidateName: candidateName,
		Filename:      filename,
		ContentText:   truncateUTF8(text, constants.ResumePreviewLen),
		FileMD5:       fileMD5Hex,
		ObjectKey:     objectKey,
		UploadedAt:    uploadedAt,
	}
	if err := h.store.CreateResume(ctx, resume); err != nil {
		h.rollbackMD5(ctx, fileMD5Hex)
		h.cleanupArchive(ctx, objectKey)
		return nil, fmt.Errorf("保存简历记录失败: %w", err)
	}

	logger.Info().Str("resume_id", resumeID).Str("filename", filename).Msg("简历入库完成")
	return &ResumeUploadResponse{Message: "Resume uploaded successfully", ResumeID: resumeID}, nil
}

func (h *ResumeHandler) rollbackMD5(ctx context.Context, md5Hex string) {
	if h.dedup == nil {
		return
	}
	if err := h.dedup.RemoveFileMD5(ctx, constants.ResumeMD5SetKey, md5Hex); err != nil {
		logger.Warn().Err(err).Str("md5", md5Hex).Msg("回滚MD5去重记录失败")
	}
}

// cleanupArchive 记录保存失败时删除已归档的原件，避免孤儿对象
func (h *ResumeHandler) cleanupArchive(ctx context.Context, objectKey string) {
	if h.objects == nil || objectKey == "" {
		return
	}
	if err := h.objects.DeleteFile(ctx, objectKey); err != nil {
		logger.Warn().Err(err).Str("object_key", objectKey).Msg("清理归档文件失败")
	}
}

// ScreeningResult 单份简历的筛选结果
type ScreeningResult struct {
	ResumeID string  `json:"resume_id"`
	Filename string  `json:"filename"`
	Score    float64 `json:"score"`
	Analysis string  `json:"analysis"`
}

// ScreenResumesResponse 批量筛选响应
type ScreenResumesResponse struct {
	Message string            `json:"message,omitempty"`
	Results []ScreeningResult `json:"results"`
}

// HandleScreenResumes 将库中全部简历逐份交给LLM与职位描述比对，
// 写回分数后按分数降序返回。两次调用之间固定间隔以规避上游限流。
func (h *ResumeHandler) HandleScreenResumes(ctx context.Context, jobDescription string) (*ScreenResumesResponse, error) {
	resumes, err := h.store.ListResumes(ctx)
	if err != nil {
		return nil, fmt.Errorf("查询简历列表失败: %w", err)
	}

	if len(resumes) == 0 {
		return &ScreenResumesResponse{Message: "No resumes to screen", Results: []ScreeningResult{}}, nil
	}

	results := make([]ScreeningResult, 0, len(resumes))
	for _, resume := range resumes {
		analysis, score := h.screener.Screen(ctx, jobDescription, resume.ContentText)

		if err := h.store.UpdateResumeScreening(ctx, resume.ResumeID, score, analysis); err != nil {
			logger.Warn().Err(err).Str("resume_id", resume.ResumeID).Msg("写回筛选结果失败")
		}

		results = append(results, ScreeningResult{
			ResumeID: resume.ResumeID,
			Filename: resume.Filename,
			Score:    score,
			Analysis: analysis,
		})

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(constants.ScreeningThrottleInterval):
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	return &ScreenResumesResponse{Results: results}, nil
}

// HandleListResumes 返回全部简历记录
func (h *ResumeHandler) HandleListResumes(ctx context.Context) ([]models.Resume, error) {
	resumes, err := h.store.ListResumes(ctx)
	if err != nil {
		return nil, fmt.Errorf("查询简历列表失败: %w", err)
	}
	return resumes, nil
}
