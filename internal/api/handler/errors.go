package handler

import "errors"

// 客户端错误的哨兵值，路由层据此映射HTTP状态码
var (
	// ErrUnsupportedFormat 文件扩展名不受支持
	ErrUnsupportedFormat = errors.New("Unsupported file format")

	// ErrEmptyDocumentText 文档中提取不到文本
	ErrEmptyDocumentText = errors.New("Could not extract text from document")

	// ErrEmptyResumeText 简历中提取不到文本
	ErrEmptyResumeText = errors.New("Could not extract text from resume")

	// ErrSessionNotFound 面试会话不存在
	ErrSessionNotFound = errors.New("Interview session not found")

	// ErrSessionBusy 面试会话正在被另一个请求推进
	ErrSessionBusy = errors.New("Interview session is being processed, please retry")

	// ErrDocumentNotFound 文档不存在或没有归档原件
	ErrDocumentNotFound = errors.New("Document not found")
)
