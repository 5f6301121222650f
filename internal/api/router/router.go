package router

import (
	"context"
	"errors"
	"fmt"

	"hr-agent-go/internal/api/handler"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

// Handlers 路由依赖的全部处理器
type Handlers struct {
	Document  *handler.DocumentHandler
	Chat      *handler.ChatHandler
	Resume    *handler.ResumeHandler
	Interview *handler.InterviewHandler
}

// statusForError 将处理器错误映射为HTTP状态码
func statusForError(err error) int {
	switch {
	case errors.Is(err, handler.ErrUnsupportedFormat),
		errors.Is(err, handler.ErrEmptyDocumentText),
		errors.Is(err, handler.ErrEmptyResumeText):
		return consts.StatusBadRequest
	case errors.Is(err, handler.ErrSessionNotFound),
		errors.Is(err, handler.ErrDocumentNotFound):
		return consts.StatusNotFound
	case errors.Is(err, handler.ErrSessionBusy):
		return consts.StatusConflict
	default:
		return consts.StatusInternalServerError
	}
}

func writeError(ctx *app.RequestContext, err error) {
	ctx.JSON(statusForError(err), utils.H{"error": err.Error()})
}

// RegisterRoutes 注册 API 路由
func RegisterRoutes(h *server.Hertz, handlers *Handlers) {
	api := h.Group("/api")

	// 存活探针
	api.GET("/", func(c context.Context, ctx *app.RequestContext) {
		ctx.JSON(consts.StatusOK, utils.H{"message": "AI HR & Support Agent API"})
	})

	api.POST("/upload-document", func(c context.Context, ctx *app.RequestContext) {
		fileHeader, err := ctx.FormFile("file")
		if err != nil {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": "file is required"})
			return
		}
		docType := ctx.PostForm("doc_type")

		file, err := fileHeader.Open()
		if err != nil {
			ctx.JSON(consts.StatusInternalServerError, utils.H{"error": "failed to open uploaded file"})
			return
		}
		defer file.Close()

		resp, err := handlers.Document.HandleDocumentUpload(c, file, fileHeader.Filename, docType)
		if err != nil {
			writeError(ctx, err)
			return
		}
		ctx.JSON(consts.StatusOK, resp)
	})

	api.GET("/documents", func(c context.Context, ctx *app.RequestContext) {
		docs, err := handlers.Document.HandleListDocuments(c)
		if err != nil {
			writeError(ctx, err)
			return
		}
		ctx.JSON(consts.StatusOK, utils.H{"documents": docs})
	})

	api.GET("/documents/:doc_id/file", func(c context.Context, ctx *app.RequestContext) {
		docID := ctx.Param("doc_id")
		data, filename, err := handlers.Document.HandleDocumentFile(c, docID)
		if err != nil {
			writeError(ctx, err)
			return
		}
		ctx.Response.Header.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		ctx.Data(consts.StatusOK, "application/octet-stream", data)
	})

	api.POST("/chat", func(c context.Context, ctx *app.RequestContext) {
		var req struct {
			SessionID string `json:"session_id"`
			Message   string `json:"message"`
		}
		if err := ctx.BindJSON(&req); err != nil {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": "invalid request body"})
			return
		}

		resp, err := handlers.Chat.HandleChat(c, req.SessionID, req.Message)
		if err != nil {
			writeError(ctx, err)
			return
		}
		ctx.JSON(consts.StatusOK, resp)
	})

	api.GET("/chat-history/:session_id", func(c context.Context, ctx *app.RequestContext) {
		sessionID := ctx.Param("session_id")
		msgs, err := handlers.Chat.HandleChatHistory(c, sessionID)
		if err != nil {
			writeError(ctx, err)
			return
		}
		ctx.JSON(consts.StatusOK, utils.H{"messages": msgs})
	})

	api.POST("/upload-resume", func(c context.Context, ctx *app.RequestContext) {
		fileHeader, err := ctx.FormFile("file")
		if err != nil {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": "file is required"})
			return
		}
		candidateName := ctx.PostForm("candidate_name")

		file, err := fileHeader.Open()
		if err != nil {
			ctx.JSON(consts.StatusInternalServerError, utils.H{"error": "failed to open uploaded file"})
			return
		}
		defer file.Close()

		resp, err := handlers.Resume.HandleResumeUpload(c, file, fileHeader.Filename, candidateName)
		if err != nil {
			writeError(ctx, err)
			return
		}
		ctx.JSON(consts.StatusOK, resp)
	})

	api.POST("/screen-resumes", func(c context.Context, ctx *app.RequestContext) {
		var req struct {
			JobDescription string `json:"job_description"`
		}
		if err := ctx.BindJSON(&req); err != nil {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": "invalid request body"})
			return
		}

		resp, err := handlers.Resume.HandleScreenResumes(c, req.JobDescription)
		if err != nil {
			writeError(ctx, err)
			return
		}
		ctx.JSON(consts.StatusOK, resp)
	})

	api.GET("/resumes", func(c context.Context, ctx *app.RequestContext) {
		resumes, err := handlers.Resume.HandleListResumes(c)
		if err != nil {
			writeError(ctx, err)
			return
		}
		ctx.JSON(consts.StatusOK, utils.H{"resumes": resumes})
	})

	api.POST("/interview", func(c context.Context, ctx *app.RequestContext) {
		var req handler.InterviewRequest
		if err := ctx.BindJSON(&req); err != nil {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": "invalid request body"})
			return
		}

		resp, err := handlers.Interview.HandleInterview(c, req)
		if err != nil {
			writeError(ctx, err)
			return
		}
		ctx.JSON(consts.StatusOK, resp)
	})

	api.GET("/interview/:session_id", func(c context.Context, ctx *app.RequestContext) {
		sessionID := ctx.Param("session_id")
		session, err := handlers.Interview.HandleGetInterview(c, sessionID)
		if err != nil {
			writeError(ctx, err)
			return
		}
		ctx.JSON(consts.StatusOK, session)
	})
}
