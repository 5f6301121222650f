package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hr-agent-go/internal/api/handler"
	"hr-agent-go/internal/api/router"
	"hr-agent-go/internal/config"
	appLogger "hr-agent-go/internal/logger"
	"hr-agent-go/internal/parser"
	"hr-agent-go/internal/processor"
	"hr-agent-go/internal/storage"
	"hr-agent-go/internal/tracing"

	"hr-agent-go/internal/agent"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	glog "github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/hertz-contrib/cors"
	hertzadapter "github.com/hertz-contrib/logger/zerolog"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"
	"github.com/spf13/pflag"
)

func main() {
	var configPath string
	pflag.StringVarP(&configPath, "config", "c", "internal/config/config.yaml", "Path to config file")
	pflag.Parse()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	initLogger(cfg)
	glog.Info("配置加载成功")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := tracing.InitProvider(ctx, cfg.Tracing)
	if err != nil {
		glog.Fatalf("初始化链路追踪失败: %v", err)
	}
	defer func() {
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelShutdown()
		if err := shutdownTracing(shutdownCtx); err != nil {
			glog.Warnf("关闭链路追踪失败: %v", err)
		}
	}()

	storageManager, err := storage.NewStorage(ctx, cfg)
	if err != nil {
		glog.Fatalf("初始化存储失败: %v", err)
	}
	defer storageManager.Close()
	glog.Info("存储服务初始化成功")

	embedder, err := parser.NewAliyunEmbedder(cfg.Aliyun.APIKey, cfg.Aliyun.Embedding)
	if err != nil {
		glog.Fatalf("初始化阿里云Embedder失败: %v", err)
	}
	glog.Info("阿里云Embedder初始化成功")

	chatModel, err := agent.NewAliyunQwenChatModel(cfg.Aliyun.APIKey, cfg.Aliyun.Model, cfg.Aliyun.APIURL)
	if err != nil {
		glog.Fatalf("初始化通义千问模型失败: %v", err)
	}
	glog.Info("通义千问模型初始化成功")

	pdfExtractor, err := parser.NewEinoPDFTextExtractor(ctx,
		parser.WithEinoLogger(log.New(os.Stderr, "[EinoPDFMain] ", log.LstdFlags)))
	if err != nil {
		glog.Fatalf("创建Eino PDF提取器失败: %v", err)
	}

	docxExtractor, err := parser.NewTikaDOCXExtractor(cfg.Tika,
		parser.WithTikaLogger(log.New(os.Stderr, "[TikaMain] ", log.LstdFlags)))
	if err != nil {
		glog.Fatalf("创建Tika DOCX提取器失败: %v", err)
	}

	extractor := parser.NewFileExtractor(pdfExtractor, docxExtractor)
	glog.Info("文本提取器初始化成功")

	handlers := &router.Handlers{
		Document:  handler.NewDocumentHandler(cfg, storageManager, extractor, embedder),
		Chat:      handler.NewChatHandler(cfg, storageManager, embedder, processor.NewResponder(chatModel)),
		Resume:    handler.NewResumeHandler(cfg, storageManager, extractor, embedder, processor.NewScreener(chatModel)),
		Interview: handler.NewInterviewHandler(cfg, storageManager, processor.NewInterviewer(chatModel)),
	}
	glog.Info("业务处理器初始化成功")

	tracer, tracerCfg := hertztracing.NewServerTracer()
	h := server.New(
		tracer,
		server.WithHostPorts(cfg.Server.Address),
		server.WithHandleMethodNotAllowed(true),
	)
	h.Use(hertztracing.ServerMiddleware(tracerCfg))
	h.Use(corsMiddleware(cfg))
	h.Use(requestLogMiddleware())

	router.RegisterRoutes(h, handlers)
	glog.Info("HTTP路由注册成功")

	glog.Infof("HTTP 服务器启动中，监听地址: %s", cfg.Server.Address)

	go func() {
		if err := h.Run(); err != nil {
			glog.Fatalf("启动HTTP服务器失败: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	glog.Info("接收到终止信号，正在优雅退出...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := h.Shutdown(shutdownCtx); err != nil {
		glog.Fatalf("服务器关闭失败: %v", err)
	}
	glog.Info("优雅退出完成")
}

// corsMiddleware 构造CORS中间件。来源为"*"时不能携带凭证，
// 配置了具体来源时允许凭证
func corsMiddleware(cfg *config.Config) app.HandlerFunc {
	origins := cfg.Server.CORSAllowOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	corsCfg := cors.Config{
		AllowOrigins: origins,
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		MaxAge:       12 * time.Hour,
	}
	if len(origins) != 1 || origins[0] != "*" {
		corsCfg.AllowCredentials = true
	}
	return cors.New(corsCfg)
}

// requestLogMiddleware 将zerolog日志实例注入请求上下文并记录每次访问
func requestLogMiddleware() app.HandlerFunc {
	return func(c context.Context, ctx *app.RequestContext) {
		c = appLogger.WithContext(c)
		start := time.Now()
		ctx.Next(c)
		glog.CtxInfof(c, "%s %s -> %d (%v)",
			string(ctx.Method()), string(ctx.Path()), ctx.Response.StatusCode(), time.Since(start))
	}
}

// initLogger 初始化zerolog全局日志，并通过适配器接管Hertz的日志
func initLogger(cfg *config.Config) {
	appLogger.Init(cfg.Logger)

	hertzCompatibleLogger := hertzadapter.From(appLogger.Logger)
	glog.SetLogger(hertzCompatibleLogger)

	switch cfg.Logger.Level {
	case "debug":
		glog.SetLevel(glog.LevelDebug)
	case "warn":
		glog.SetLevel(glog.LevelWarn)
	case "error":
		glog.SetLevel(glog.LevelError)
	default:
		glog.SetLevel(glog.LevelInfo)
	}
}
