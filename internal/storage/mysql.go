package storage

import (
	"context"
	"fmt"
	"log"
	"time"

	"hr-agent-go/internal/config"
	"hr-agent-go/internal/storage/models"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var mysqlTracer = otel.Tracer("hr-agent-go/storage/mysql")

type gormSpanKey struct{}

// GormTracingPlugin 是一个GORM插件，为数据库操作注册OpenTelemetry回调
type GormTracingPlugin struct {
	tracer trace.Tracer
	dbName string
}

// NewGormTracingPlugin 创建GORM追踪插件
func NewGormTracingPlugin(dbName string) *GormTracingPlugin {
	return &GormTracingPlugin{
		tracer: mysqlTracer,
		dbName: dbName,
	}
}

// Name 返回插件名称
func (p *GormTracingPlugin) Name() string {
	return "GormOpenTelemetryPlugin"
}

// Initialize 注册GORM回调以启用追踪
func (p *GormTracingPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()

	if err := cb.Create().Before("gorm:create").Register("otel:before_create", p.before("CREATE")); err != nil {
		return err
	}
	if err := cb.Create().After("gorm:create").Register("otel:after_create", p.after()); err != nil {
		return err
	}

	if err := cb.Query().Before("gorm:query").Register("otel:before_query", p.before("SELECT")); err != nil {
		return err
	}
	if err := cb.Query().After("gorm:query").Register("otel:after_query", p.after()); err != nil {
		return err
	}

	if err := cb.Update().Before("gorm:update").Register("otel:before_update", p.before("UPDATE")); err != nil {
		return err
	}
	if err := cb.Update().After("gorm:update").Register("otel:after_update", p.after()); err != nil {
		return err
	}

	if err := cb.Delete().Before("gorm:delete").Register("otel:before_delete", p.before("DELETE")); err != nil {
		return err
	}
	if err := cb.Delete().After("gorm:delete").Register("otel:after_delete", p.after()); err != nil {
		return err
	}

	if err := cb.Row().Before("gorm:row").Register("otel:before_row", p.before("ROW")); err != nil {
		return err
	}
	if err := cb.Row().After("gorm:row").Register("otel:after_row", p.after()); err != nil {
		return err
	}

	if err := cb.Raw().Before("gorm:raw").Register("otel:before_raw", p.before("RAW")); err != nil {
		return err
	}
	return cb.Raw().After("gorm:raw").Register("otel:after_raw", p.after())
}

// before 返回在GORM操作之前执行的回调函数
func (p *GormTracingPlugin) before(operation string) func(db *gorm.DB) {
	return func(db *gorm.DB) {
		ctx := db.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}

		tableName := db.Statement.Table
		if tableName == "" {
			tableName = "unknown"
		}

		spanName := fmt.Sprintf("%s %s", operation, tableName)
		newCtx, span := p.tracer.Start(ctx, spanName,
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				semconv.DBSystemMySQL,
				attribute.String("db.name", p.dbName),
				attribute.String("db.operation", operation),
				attribute.String("db.sql.table", tableName),
			),
		)

		db.Statement.Context = context.WithValue(newCtx, gormSpanKey{}, span)
	}
}

// after 返回在GORM操作之后执行的回调函数
func (p *GormTracingPlugin) after() func(db *gorm.DB) {
	return func(db *gorm.DB) {
		span, ok := db.Statement.Context.Value(gormSpanKey{}).(trace.Span)
		if !ok {
			return
		}
		defer span.End()

		span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))

		if db.Error != nil {
			if db.Error == gorm.ErrRecordNotFound {
				// 记录不存在属于正常业务分支
				span.SetAttributes(attribute.String("error.type", "record_not_found"))
				span.SetStatus(codes.Ok, "record not found")
			} else {
				span.RecordError(db.Error)
				span.SetStatus(codes.Error, db.Error.Error())
			}
			return
		}
		span.SetStatus(codes.Ok, "")
	}
}

// MySQL 提供关系数据库功能
type MySQL struct {
	db  *gorm.DB
	cfg *config.MySQLConfig
}

// NewMySQL 创建MySQL客户端并自动迁移表结构
func NewMySQL(cfg *config.MySQLConfig) (*MySQL, error) {
	if cfg == nil {
		return nil, fmt.Errorf("MySQL配置不能为空")
	}

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local&timeout=%ds&readTimeout=%ds&writeTimeout=%ds",
		cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.Database,
		cfg.ConnectTimeoutSeconds, cfg.ReadTimeoutSeconds, cfg.WriteTimeoutSeconds)

	var logLevel logger.LogLevel
	switch cfg.LogLevel {
	case 1:
		logLevel = logger.Silent
	case 2:
		logLevel = logger.Error
	case 3:
		logLevel = logger.Warn
	default:
		logLevel = logger.Info
	}

	gormConfig := &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   logger.Default.LogMode(logLevel),
		PrepareStmt:                              true,
		NowFunc: func() time.Time {
			return time.Now().Local()
		},
	}

	db, err := gorm.Open(mysql.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("连接MySQL失败: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTimeMinutes) * time.Minute)

	if err := db.Use(NewGormTracingPlugin(cfg.Database)); err != nil {
		return nil, fmt.Errorf("注册追踪插件失败: %w", err)
	}

	m := &MySQL{db: db, cfg: cfg}
	if err := m.autoMigrateSchema(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("自动迁移数据库结构失败: %w", err)
	}

	log.Println("成功连接到MySQL并完成数据库结构迁移")
	return m, nil
}

// autoMigrateSchema 使用GORM自动迁移表结构，迁移期间关闭SQL日志
func (m *MySQL) autoMigrateSchema() error {
	silentDB := m.db.Session(&gorm.Session{Logger: logger.Default.LogMode(logger.Silent)})
	return silentDB.AutoMigrate(
		&models.Document{},
		&models.ChatMessage{},
		&models.Resume{},
		&models.InterviewSession{},
	)
}

// DB 返回GORM数据库连接实例
func (m *MySQL) DB() *gorm.DB {
	return m.db
}

// Close 关闭数据库连接
func (m *MySQL) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	return sqlDB.Close()
}

// CreateDocument 保存文档元数据
func (m *MySQL) CreateDocument(ctx context.Context, doc *models.Document) error {
	return m.db.WithContext(ctx).Create(doc).Error
}

// GetDocument 通过doc_id获取文档元数据，不存在时返回gorm.ErrRecordNotFound
func (m *MySQL) GetDocument(ctx context.Context, docID string) (*models.Document, error) {
	var doc models.Document
	if err := m.db.WithContext(ctx).Where("doc_id = ?", docID).First(&doc).Error; err != nil {
		return nil, err
	}
	return &doc, nil
}

// ListDocuments 返回全部文档元数据，按上传时间倒序
func (m *MySQL) ListDocuments(ctx context.Context) ([]models.Document, error) {
	var docs []models.Document
	if err := m.db.WithContext(ctx).Order("uploaded_at DESC").Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

// CreateChatMessage 追加一条对话消息
func (m *MySQL) CreateChatMessage(ctx context.Context, msg *models.ChatMessage) error {
	return m.db.WithContext(ctx).Create(msg).Error
}

// ListChatMessages 返回某个会话的全部消息，按时间正序
func (m *MySQL) ListChatMessages(ctx context.Context, sessionID string) ([]models.ChatMessage, error) {
	var msgs []models.ChatMessage
	err := m.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("timestamp ASC").
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	return msgs, nil
}

// CreateResume 保存简历记录
func (m *MySQL) CreateResume(ctx context.Context, resume *models.Resume) error {
	return m.db.WithContext(ctx).Create(resume).Error
}

// ListResumes 返回全部简历记录，按上传时间倒序
func (m *MySQL) ListResumes(ctx context.Context) ([]models.Resume, error) {
	var resumes []models.Resume
	if err := m.db.WithContext(ctx).Order("uploaded_at DESC").Find(&resumes).Error; err != nil {
		return nil, err
	}
	return resumes, nil
}

// UpdateResumeScreening 写回筛选得分和分析并标记已筛选
func (m *MySQL) UpdateResumeScreening(ctx context.Context, resumeID string, score float64, analysis string) error {
	now := time.Now()
	return m.db.WithContext(ctx).Model(&models.Resume{}).
		Where("resume_id = ?", resumeID).
		Updates(map[string]interface{}{
			"score":       score,
			"analysis":    analysis,
			"screened":    true,
			"screened_at": now,
		}).Error
}

// CreateInterviewSession 创建面试会话
func (m *MySQL) CreateInterviewSession(ctx context.Context, session *models.InterviewSession) error {
	return m.db.WithContext(ctx).Create(session).Error
}

// GetInterviewSession 通过session_id获取面试会话，不存在时返回gorm.ErrRecordNotFound
func (m *MySQL) GetInterviewSession(ctx context.Context, sessionID string) (*models.InterviewSession, error) {
	var session models.InterviewSession
	if err := m.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&session).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

// UpdateInterviewSession 写回面试会话的messages和completed状态
func (m *MySQL) UpdateInterviewSession(ctx context.Context, session *models.InterviewSession) error {
	session.UpdatedAt = time.Now()
	return m.db.WithContext(ctx).Model(&models.InterviewSession{}).
		Where("session_id = ?", session.SessionID).
		Updates(map[string]interface{}{
			"messages":   session.Messages,
			"evaluation": session.Evaluation,
			"score":      session.Score,
			"completed":  session.Completed,
			"updated_at": session.UpdatedAt,
		}).Error
}
