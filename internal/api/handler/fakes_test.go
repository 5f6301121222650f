package handler

import (
	"context"
	"errors"
	"io"
	"sort"

	"hr-agent-go/internal/storage"
	"hr-agent-go/internal/storage/models"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"gorm.io/gorm"
)

// stubChatModel 测试用的假LLM，返回预设的回复或错误
type stubChatModel struct {
	reply string
	err   error
}

var _ model.ChatModel = (*stubChatModel)(nil)

func (m *stubChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
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

// fakeInterviewStore 内存版面试会话存储
type fakeInterviewStore struct {
	sessions map[string]*models.InterviewSession
}

func newFakeInterviewStore() *fakeInterviewStore {
	return &fakeInterviewStore{sessions: make(map[string]*models.InterviewSession)}
}

func (s *fakeInterviewStore) CreateInterviewSession(ctx context.Context, session *models.InterviewSession) error {
	copied := *session
	s.sessions[session.SessionID] = &copied
	return nil
}

func (s *fakeInterviewStore) GetInterviewSession(ctx context.Context, sessionID string) (*models.InterviewSession, error) {
	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *session
	return &copied, nil
}

func (s *fakeInterviewStore) UpdateInterviewSession(ctx context.Context, session *models.InterviewSession) error {
	if _, ok := s.sessions[session.SessionID]; !ok {
		return gorm.ErrRecordNotFound
	}
	copied := *session
	s.sessions[session.SessionID] = &copied
	return nil
}

// fakeLocker 可配置的会话锁，记录释放调用
type fakeLocker struct {
	lockValue     string
	acquireErr    error
	releasedWith  string
	releasedCalls int
}

func (l *fakeLocker) AcquireInterviewLock(ctx context.Context, sessionID string) (string, error) {
	return l.lockValue, l.acquireErr
}

func (l *fakeLocker) ReleaseInterviewLock(ctx context.Context, sessionID string, lockValue string) (bool, error) {
	l.releasedWith = lockValue
	l.releasedCalls++
	return true, nil
}

// fakeChatStore 内存版对话消息存储，查询时按时间正序返回
type fakeChatStore struct {
	messages []models.ChatMessage
}

func (s *fakeChatStore) CreateChatMessage(ctx context.Context, msg *models.ChatMessage) error {
	s.messages = append(s.messages, *msg)
	return nil
}

func (s *fakeChatStore) ListChatMessages(ctx context.Context, sessionID string) ([]models.ChatMessage, error) {
	var msgs []models.ChatMessage
	for _, m := range s.messages {
		if m.SessionID == sessionID {
			msgs = append(msgs, m)
		}
	}
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].Timestamp.Before(msgs[j].Timestamp)
	})
	return msgs, nil
}

// fakeDocumentStore 内存版文档元数据存储
type fakeDocumentStore struct {
	docs      map[string]*models.Document
	createErr error
}

func newFakeDocumentStore() *fakeDocumentStore {
	return &fakeDocumentStore{docs: make(map[string]*models.Document)}
}

func (s *fakeDocumentStore) CreateDocument(ctx context.Context, doc *models.Document) error {
	if s.createErr != nil {
		return s.createErr
	}
	copied := *doc
	s.docs[doc.DocID] = &copied
	return nil
}

func (s *fakeDocumentStore) GetDocument(ctx context.Context, docID string) (*models.Document, error) {
	doc, ok := s.docs[docID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *doc
	return &copied, nil
}

func (s *fakeDocumentStore) ListDocuments(ctx context.Context) ([]models.Document, error) {
	var docs []models.Document
	for _, d := range s.docs {
		docs = append(docs, *d)
	}
	return docs, nil
}

// fakeVectors 记录写入的向量点
type fakeVectors struct {
	upserted map[string]map[string]interface{}
}

var _ storage.VectorDatabase = (*fakeVectors)(nil)

func newFakeVectors() *fakeVectors {
	return &fakeVectors{upserted: make(map[string]map[string]interface{})}
}

func (v *fakeVectors) UpsertPoint(ctx context.Context, collection string, pointID string, vector []float64, payload map[string]interface{}) error {
	v.upserted[pointID] = payload
	return nil
}

func (v *fakeVectors) Search(ctx context.Context, collection string, queryVector []float64, limit int) ([]storage.SearchResult, error) {
	return nil, nil
}

// fakeObjects 内存版对象存储，记录删除调用
type fakeObjects struct {
	files       map[string][]byte
	deletedKeys []string
}

var _ storage.ObjectStorage = (*fakeObjects)(nil)

func newFakeObjects() *fakeObjects {
	return &fakeObjects{files: make(map[string][]byte)}
}

func (o *fakeObjects) UploadDocumentFile(ctx context.Context, docID, filename string, reader io.Reader, fileSize int64) (string, error) {
	key := "documents/" + docID + "/" + filename
	data, _ := io.ReadAll(reader)
	o.files[key] = data
	return key, nil
}

func (o *fakeObjects) UploadResumeFile(ctx context.Context, resumeID, filename string, reader io.Reader, fileSize int64) (string, error) {
	key := "resumes/" + resumeID + "/" + filename
	data, _ := io.ReadAll(reader)
	o.files[key] = data
	return key, nil
}

func (o *fakeObjects) DownloadFile(ctx context.Context, objectName string) ([]byte, error) {
	data, ok := o.files[objectName]
	if !ok {
		return nil, errors.New("object not found")
	}
	return data, nil
}

func (o *fakeObjects) DeleteFile(ctx context.Context, objectName string) error {
	delete(o.files, objectName)
	o.deletedKeys = append(o.deletedKeys, objectName)
	return nil
}

// fakeExtractor 返回预设文本的提取器
type fakeExtractor struct {
	text string
}

func (e *fakeExtractor) ExtractText(ctx context.Context, reader io.Reader, filename string) (string, error) {
	return e.text, nil
}

func (e *fakeExtractor) Supported(filename string) bool {
	return true
}

// fakeEmbedder 返回固定向量的Embedder
type fakeEmbedder struct{}

func (e *fakeEmbedder) EmbedStrings(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float64, error) {
	vectors := make([][]float64, len(texts))
	for i := range texts {
		vectors[i] = []float64{0.1, 0.2, 0.3}
	}
	return vectors, nil
}
