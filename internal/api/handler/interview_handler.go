package handler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hr-agent-go/internal/config"
	"hr-agent-go/internal/constants"
	"hr-agent-go/internal/logger"
	"hr-agent-go/internal/processor"
	"hr-agent-go/internal/storage"
	"hr-agent-go/internal/storage/models"

	"gorm.io/gorm"
)

// InterviewStore 面试会话的持久化接口，由storage.MySQL实现
type InterviewStore interface {
	CreateInterviewSession(ctx context.Context, session *models.InterviewSession) error
	GetInterviewSession(ctx context.Context, sessionID string) (*models.InterviewSession, error)
	UpdateInterviewSession(ctx context.Context, session *models.InterviewSession) error
}

// SessionLocker 面试会话锁接口，由storage.Redis实现
type SessionLocker interface {
	AcquireInterviewLock(ctx context.Context, sessionID string) (string, error)
	ReleaseInterviewLock(ctx context.Context, sessionID string, lockValue string) (bool, error)
}

// InterviewHandler 面试处理器，维护脚本化的五问面试流程
type InterviewHandler struct {
	cfg         *config.Config
	store       InterviewStore
	locker      SessionLocker
	interviewer *processor.Interviewer
}

// NewInterviewHandler 创建面试处理器
func NewInterviewHandler(cfg *config.Config, st *storage.Storage, interviewer *processor.Interviewer) *InterviewHandler {
	h := &InterviewHandler{
		cfg:         cfg,
		interviewer: interviewer,
	}
	if st != nil {
		if st.MySQL != nil {
			h.store = st.MySQL
		}
		if st.Redis != nil {
			h.locker = st.Redis
		}
	}
	return h
}

// InterviewRequest 面试推进请求
type InterviewRequest struct {
	SessionID     string `json:"session_id"`
	CandidateName string `json:"candidate_name"`
	Position      string `json:"position"`
	Message       string `json:"message"`
}

// InterviewResponse 面试推进响应。
// 开场和追问阶段返回question_number，评估阶段返回completed和score。
type InterviewResponse struct {
	Response       string   `json:"response"`
	QuestionNumber int      `json:"question_number,omitempty"`
	Completed      *bool    `json:"completed,omitempty"`
	Score          *float64 `json:"score,omitempty"`
}

// HandleInterview 推进一轮面试。新会话返回开场白；已有会话记录候选人回答后
// 生成下一个问题，满5轮后生成最终评估。
func (h *InterviewHandler) HandleInterview(ctx context.Context, req InterviewRequest) (*InterviewResponse, error) {
	// 会话级锁防止同一会话并发推进。Redis不可用时只告警，
	// 锁被他人持有时返回冲突，避免并发读改写丢失对话轮次。
	if h.locker != nil {
		lockValue, err := h.locker.AcquireInterviewLock(ctx, req.SessionID)
		if err != nil {
			logger.Warn().Err(err).Str("session_id", req.SessionID).Msg("获取面试会话锁失败，继续处理")
		} else if lockValue == "" {
			logger.Info().Str("session_id", req.SessionID).Msg("面试会话正在被其他请求推进")
			return nil, ErrSessionBusy
		} else {
			defer func() {
				if _, err := h.locker.ReleaseInterviewLock(ctx, req.SessionID, lockValue); err != nil {
					logger.Warn().Err(err).Str("session_id", req.SessionID).Msg("释放面试会话锁失败")
				}
			}()
		}
	}

	session, err := h.store.GetInterviewSession(ctx, req.SessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return h.startInterview(ctx, req)
		}
		return nil, fmt.Errorf("查询面试会话失败: %w", err)
	}

	return h.advanceInterview(ctx, req, session)
}

// startInterview 创建新会话并返回开场白
func (h *InterviewHandler) startInterview(ctx context.Context, req InterviewRequest) (*InterviewResponse, error) {
	now := time.Now().UTC()
	intro := processor.IntroMessage(req.CandidateName, req.Position)

	session := &models.InterviewSession{
		SessionID:     req.SessionID,
		CandidateName: req.CandidateName,
		Position:      req.Position,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	turns := []models.InterviewTurn{
		{Role: constants.RoleAssistant, Content: intro, Timestamp: now},
	}
	if err := session.SetTurns(turns); err != nil {
		return nil, err
	}
	if err := h.store.CreateInterviewSession(ctx, session); err != nil {
		return nil, fmt.Errorf("创建面试会话失败: %w", err)
	}

	logger.Info().Str("session_id", req.SessionID).Str("position", req.Position).Msg("面试会话开始")
	return &InterviewResponse{Response: intro, QuestionNumber: 1}, nil
}

// advanceInterview 记录候选人回答，生成下一个问题或最终评估
func (h *InterviewHandler) advanceInterview(ctx context.Context, req InterviewRequest, session *models.InterviewSession) (*InterviewResponse, error) {
	turns, err := session.Turns()
	if err != nil {
		return nil, err
	}

	if req.Message != "" {
		turns = append(turns, models.InterviewTurn{
			Role:      constants.RoleUser,
			Content:   req.Message,
			Timestamp: time.Now().UTC(),
		})
	}

	questionCount, err := session.AssistantTurnCount()
	if err != nil {
		return nil, err
	}

	if questionCount >= constants.InterviewQuestionRounds {
		evaluation, score := h.interviewer.Evaluate(ctx, session.Position, session.CandidateName, turns)

		session.Evaluation = evaluation
		session.Score = &score
		session.Completed = true
		if err := session.SetTurns(turns); err != nil {
			return nil, err
		}
		if err := h.store.UpdateInterviewSession(ctx, session); err != nil {
			return nil, fmt.Errorf("保存面试评估失败: %w", err)
		}

		logger.Info().Str("session_id", req.SessionID).Float64("score", score).Msg("面试评估完成")
		completed := true
		return &InterviewResponse{Response: evaluation, Completed: &completed, Score: &score}, nil
	}

	nextQuestion := h.interviewer.NextQuestion(ctx, session.Position, turns)
	turns = append(turns, models.InterviewTurn{
		Role:      constants.RoleAssistant,
		Content:   nextQuestion,
		Timestamp: time.Now().UTC(),
	})
	if err := session.SetTurns(turns); err != nil {
		return nil, err
	}
	if err := h.store.UpdateInterviewSession(ctx, session); err != nil {
		return nil, fmt.Errorf("保存面试进度失败: %w", err)
	}

	completed := false
	return &InterviewResponse{
		Response:       nextQuestion,
		QuestionNumber: questionCount + 1,
		Completed:      &completed,
	}, nil
}

// InterviewSessionView 面试会话详情
type InterviewSessionView struct {
	SessionID     string                 `json:"session_id"`
	CandidateName string                 `json:"candidate_name"`
	Position      string                 `json:"position"`
	Messages      []models.InterviewTurn `json:"messages"`
	Evaluation    string                 `json:"evaluation,omitempty"`
	Score         *float64               `json:"score,omitempty"`
	Completed     bool                   `json:"completed"`
	CreatedAt     time.Time              `json:"created_at"`
}

// HandleGetInterview 返回面试会话详情，不存在时返回ErrSessionNotFound
func (h *InterviewHandler) HandleGetInterview(ctx context.Context, sessionID string) (*InterviewSessionView, error) {
	session, err := h.store.GetInterviewSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("查询面试会话失败: %w", err)
	}

	turns, err := session.Turns()
	if err != nil {
		return nil, err
	}
	if turns == nil {
		turns = []models.InterviewTurn{}
	}

	return &InterviewSessionView{
		SessionID:     session.SessionID,
		CandidateName: session.CandidateName,
		Position:      session.Position,
		Messages:      turns,
		Evaluation:    session.Evaluation,
		Score:         session.Score,
		Completed:     session.Completed,
		CreatedAt:     session.CreatedAt,
	}, nil
}
