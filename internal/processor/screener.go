package processor

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
)

const (
	// 筛选标签未命中时的默认分数
	defaultScreeningScore = 75.0

	screeningUserPrompt = "Please analyze this resume."
)

// Screener 将简历与职位描述交给LLM分析并解析匹配分数
type Screener struct {
	model model.ChatModel
}

// NewScreener 创建简历筛选处理器
func NewScreener(chatModel model.ChatModel) *Screener {
	return &Screener{model: chatModel}
}

// buildScreeningPrompt 构造简历筛选的系统提示词
func buildScreeningPrompt(jobDescription, resumeContent string) string {
	return fmt.Sprintf(`You are a Resume Screening AI. Analyze the resume against the job description and provide:

1. Match score (0-100)
2. Key strengths
3. Gaps or concerns
4. Recommendation (Strong Match / Good Match / Weak Match / No Match)

Job Description:
%s

Resume:
%s

Provide a concise analysis.`, jobDescription, resumeContent)
}

// ParseScreeningScore 从分析文本中按推荐标签解析分数。
// 按 Strong/Good/Weak/No Match 的顺序匹配，均未命中时返回默认值75。
func ParseScreeningScore(analysis string) float64 {
	switch {
	case strings.Contains(analysis, "Strong Match"):
		return 90.0
	case strings.Contains(analysis, "Good Match"):
		return 75.0
	case strings.Contains(analysis, "Weak Match"):
		return 50.0
	case strings.Contains(analysis, "No Match"):
		return 30.0
	default:
		return defaultScreeningScore
	}
}

// Screen 分析一份简历，返回分析文本和匹配分数
func (s *Screener) Screen(ctx context.Context, jobDescription, resumeContent string) (analysis string, score float64) {
	systemPrompt := buildScreeningPrompt(jobDescription, resumeContent)
	analysis, _ = generateWithFallback(ctx, s.model, systemPrompt, screeningUserPrompt)
	return analysis, ParseScreeningScore(analysis)
}
