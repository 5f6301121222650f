package handler

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"hr-agent-go/internal/config"
	"hr-agent-go/internal/constants"
	"hr-agent-go/internal/storage/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fakeResumeStore 内存版简历存储
type fakeResumeStore struct {
	resumes []models.Resume
}

func (s *fakeResumeStore) CreateResume(ctx context.Context, resume *models.Resume) error {
	s.resumes = append(s.resumes, *resume)
	return nil
}

func (s *fakeResumeStore) ListResumes(ctx context.Context) ([]models.Resume, error) {
	return append([]models.Resume(nil), s.resumes...), nil
}

func (s *fakeResumeStore) UpdateResumeScreening(ctx context.Context, resumeID string, score float64, analysis string) error {
	for i := range s.resumes {
		if s.resumes[i].ResumeID == resumeID {
			s.resumes[i].Score = &score
			s.resumes[i].Analysis = analysis
			s.resumes[i].Screened = true
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

// TestResumeUploadPreviewRuneBoundary 简历预览截断后必须是合法UTF-8
func TestResumeUploadPreviewRuneBoundary(t *testing.T) {
	store := &fakeResumeStore{}
	text := strings.Repeat("五年后端开发经验，精通分布式系统", 100)
	h := &ResumeHandler{
		cfg:       config.DefaultConfig(),
		store:     store,
		vectors:   newFakeVectors(),
		extractor: &fakeExtractor{text: text},
		embedder:  &fakeEmbedder{},
	}

	resp, err := h.HandleResumeUpload(context.Background(), strings.NewReader("pdf bytes"), "resume.pdf", "张三")
	require.NoError(t, err)
	require.NotEmpty(t, resp.ResumeID)

	require.Len(t, store.resumes, 1)
	preview := store.resumes[0].ContentText
	assert.True(t, utf8.ValidString(preview), "预览文本不应包含被截断的字符")
	assert.LessOrEqual(t, len(preview), constants.ResumePreviewLen)
}
