package constants

import "time"

const (
	// 文档与简历的类别标签
	DocTypeHR      = "hr"
	DocTypePolicy  = "policy"
	DocTypeGeneral = "general"

	// 对话角色
	RoleUser      = "user"
	RoleAssistant = "assistant"

	// Redis Key 常量
	// 上传文件MD5去重集合 (SET)
	DocumentMD5SetKey = "hr_agent:documents:file_md5s"
	ResumeMD5SetKey   = "hr_agent:resumes:file_md5s"
	// 面试会话轮次锁 (STRING), 格式: hr_agent:interview:lock:{session_id}
	InterviewLockKeyFmt = "hr_agent:interview:lock:%s"

	// 面试轮次锁的过期时间，覆盖一次LLM调用的最长耗时
	InterviewLockTTL = 2 * time.Minute

	// 简历筛选时两次LLM调用之间的固定间隔，避免触发上游限流
	ScreeningThrottleInterval = 500 * time.Millisecond

	// 面试在第5个助手轮次后进入评估阶段
	InterviewQuestionRounds = 5

	// 知识库检索默认返回的文档数
	DefaultRetrievalTopK = 3

	// 元数据库中保存的文本预览长度
	DocumentPreviewLen = 500
	ResumePreviewLen   = 1000

	// 送入Embedding接口的文本长度上限（字节）
	EmbeddingInputMaxLen = 8000
)
