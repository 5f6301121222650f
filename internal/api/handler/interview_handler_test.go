package handler

import (
	"context"
	"fmt"
	"testing"

	"hr-agent-go/internal/config"
	"hr-agent-go/internal/processor"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestInterviewHandler(store InterviewStore, locker SessionLocker, reply string) *InterviewHandler {
	return &InterviewHandler{
		cfg:         config.DefaultConfig(),
		store:       store,
		locker:      locker,
		interviewer: processor.NewInterviewer(&stubChatModel{reply: reply}),
	}
}

// TestInterviewFullFlow 完整走一遍五问面试：开场、四次追问、最终评估
func TestInterviewFullFlow(t *testing.T) {
	store := newFakeInterviewStore()
	h := newTestInterviewHandler(store, nil, "Tell me about a challenging project you worked on.")
	ctx := context.Background()

	req := InterviewRequest{
		SessionID:     "sess-flow-1",
		CandidateName: "Alice",
		Position:      "Backend Engineer",
	}

	// 首次调用创建会话并返回开场白
	resp, err := h.HandleInterview(ctx, req)
	require.NoError(t, err, "开场不应失败")
	assert.Equal(t, 1, resp.QuestionNumber, "开场应是第一个问题")
	assert.Equal(t, processor.IntroMessage("Alice", "Backend Engineer"), resp.Response, "开场白应包含候选人和职位")

	// 第2到5个问题
	for i := 2; i <= 5; i++ {
		req.Message = fmt.Sprintf("My answer to question %d.", i-1)
		resp, err = h.HandleInterview(ctx, req)
		require.NoError(t, err, "追问不应失败")
		assert.Equal(t, i, resp.QuestionNumber, "问题序号应递增")
		require.NotNil(t, resp.Completed)
		assert.False(t, *resp.Completed, "追问阶段不应标记完成")
		assert.NotEmpty(t, resp.Response, "追问应返回问题文本")
	}

	// 第五个问题已提出，下一次调用进入评估
	req.Message = "My final answer."
	resp, err = h.HandleInterview(ctx, req)
	require.NoError(t, err, "评估不应失败")
	require.NotNil(t, resp.Completed)
	assert.True(t, *resp.Completed, "满五轮后应标记完成")
	require.NotNil(t, resp.Score)
	assert.Equal(t, 75.0, *resp.Score, "评估分数应为默认值")
	assert.Zero(t, resp.QuestionNumber, "评估响应不应携带问题序号")

	// 评估结果已持久化
	session, err := store.GetInterviewSession(ctx, "sess-flow-1")
	require.NoError(t, err)
	assert.True(t, session.Completed)
	assert.NotEmpty(t, session.Evaluation)
}

// TestInterviewSessionBusy 锁被其他请求持有时返回冲突而不是继续推进
func TestInterviewSessionBusy(t *testing.T) {
	store := newFakeInterviewStore()
	locker := &fakeLocker{lockValue: ""}
	h := newTestInterviewHandler(store, locker, "next question")

	_, err := h.HandleInterview(context.Background(), InterviewRequest{SessionID: "sess-busy"})
	assert.ErrorIs(t, err, ErrSessionBusy, "未抢到锁应返回会话占用错误")
	assert.Empty(t, store.sessions, "未抢到锁时不应写入会话")
}

// TestInterviewLockReleased 正常推进后锁应被释放
func TestInterviewLockReleased(t *testing.T) {
	store := newFakeInterviewStore()
	locker := &fakeLocker{lockValue: "lock-token-1"}
	h := newTestInterviewHandler(store, locker, "next question")

	_, err := h.HandleInterview(context.Background(), InterviewRequest{
		SessionID:     "sess-release",
		CandidateName: "Bob",
		Position:      "SRE",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, locker.releasedCalls, "处理结束后应释放锁")
	assert.Equal(t, "lock-token-1", locker.releasedWith, "应以持有的锁值释放")
}

// TestInterviewLockErrorContinues Redis异常时降级为无锁推进
func TestInterviewLockErrorContinues(t *testing.T) {
	store := newFakeInterviewStore()
	locker := &fakeLocker{acquireErr: fmt.Errorf("redis: connection refused")}
	h := newTestInterviewHandler(store, locker, "next question")

	resp, err := h.HandleInterview(context.Background(), InterviewRequest{
		SessionID:     "sess-degraded",
		CandidateName: "Carol",
		Position:      "QA",
	})
	require.NoError(t, err, "锁服务异常不应阻断面试")
	assert.Equal(t, 1, resp.QuestionNumber)
	assert.Zero(t, locker.releasedCalls, "未获取到锁时不应释放")
}

// TestGetInterviewNotFound 查询不存在的会话返回哨兵错误
func TestGetInterviewNotFound(t *testing.T) {
	h := newTestInterviewHandler(newFakeInterviewStore(), nil, "q")

	_, err := h.HandleGetInterview(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
