package storage

import (
	"context"
	"fmt"
	"io"
	"log"
	"path"

	"hr-agent-go/internal/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ObjectStorage 对象存储接口
type ObjectStorage interface {
	// UploadDocumentFile 归档知识库文档的原始文件，返回对象键
	UploadDocumentFile(ctx context.Context, docID, filename string, reader io.Reader, fileSize int64) (string, error)

	// UploadResumeFile 归档简历的原始文件，返回对象键
	UploadResumeFile(ctx context.Context, resumeID, filename string, reader io.Reader, fileSize int64) (string, error)

	// DownloadFile 下载文件
	DownloadFile(ctx context.Context, objectName string) ([]byte, error)

	// DeleteFile 删除文件
	DeleteFile(ctx context.Context, objectName string) error
}

// 确保MinIO实现了ObjectStorage接口
var _ ObjectStorage = (*MinIO)(nil)

// MinIO 提供对象存储功能，保存上传文件的原始副本
type MinIO struct {
	client *minio.Client
	cfg    *config.MinIOConfig
	bucket string
	logger *log.Logger
}

// NewMinIO 创建MinIO客户端
func NewMinIO(cfg *config.MinIOConfig, logger *log.Logger) (*MinIO, error) {
	if cfg == nil {
		return nil, fmt.Errorf("MinIO配置不能为空")
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("创建MinIO客户端失败: %w", err)
	}

	bucket := cfg.BucketName
	if bucket == "" {
		bucket = "hr-agent-uploads"
	}

	m := &MinIO{
		client: client,
		cfg:    cfg,
		bucket: bucket,
		logger: logger,
	}

	if err := m.ensureBucketExists(bucket, cfg.Location); err != nil {
		return nil, fmt.Errorf("确保存储桶 %s 存在失败: %w", bucket, err)
	}

	logger.Printf("[MinIO] 客户端初始化完成, endpoint: %s, bucket: %s", cfg.Endpoint, bucket)
	return m, nil
}

// ensureBucketExists 确保存储桶存在
func (m *MinIO) ensureBucketExists(bucketName, location string) error {
	exists, err := m.client.BucketExists(context.Background(), bucketName)
	if err != nil {
		return fmt.Errorf("检查存储桶 %s 是否存在时出错: %w", bucketName, err)
	}
	if !exists {
		m.logger.Printf("[MinIO] 存储桶 %s 不存在，准备创建", bucketName)
		if err := m.client.MakeBucket(context.Background(), bucketName, minio.MakeBucketOptions{Region: location}); err != nil {
			return fmt.Errorf("创建存储桶 %s 失败: %w", bucketName, err)
		}
	}
	return nil
}

// UploadDocumentFile 归档知识库文档的原始文件，对象键格式: documents/{doc_id}/{filename}
func (m *MinIO) UploadDocumentFile(ctx context.Context, docID, filename string, reader io.Reader, fileSize int64) (string, error) {
	objectName := path.Join("documents", docID, filename)
	return m.uploadObject(ctx, objectName, reader, fileSize)
}

// UploadResumeFile 归档简历的原始文件，对象键格式: resumes/{resume_id}/{filename}
func (m *MinIO) UploadResumeFile(ctx context.Context, resumeID, filename string, reader io.Reader, fileSize int64) (string, error) {
	objectName := path.Join("resumes", resumeID, filename)
	return m.uploadObject(ctx, objectName, reader, fileSize)
}

func (m *MinIO) uploadObject(ctx context.Context, objectName string, reader io.Reader, fileSize int64) (string, error) {
	contentType := "application/octet-stream"
	switch path.Ext(objectName) {
	case ".pdf":
		contentType = "application/pdf"
	case ".docx":
		contentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	}

	_, err := m.client.PutObject(ctx, m.bucket, objectName, reader, fileSize, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("上传对象 %s 失败: %w", objectName, err)
	}
	return objectName, nil
}

// DownloadFile 下载文件
func (m *MinIO) DownloadFile(ctx context.Context, objectName string) ([]byte, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("获取对象 %s 失败: %w", objectName, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("读取对象 %s 失败: %w", objectName, err)
	}
	return data, nil
}

// DeleteFile 删除文件
func (m *MinIO) DeleteFile(ctx context.Context, objectName string) error {
	if err := m.client.RemoveObject(ctx, m.bucket, objectName, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("删除对象 %s 失败: %w", objectName, err)
	}
	return nil
}
