package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"hr-agent-go/internal/config"
	"hr-agent-go/internal/tracing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

var qdrantTracer = otel.Tracer("hr-agent-go/storage/qdrant")

// VectorDatabase 向量数据库接口
type VectorDatabase interface {
	// UpsertPoint 向指定集合写入一个向量点
	UpsertPoint(ctx context.Context, collection string, pointID string, vector []float64, payload map[string]interface{}) error

	// Search 在指定集合中按向量检索，返回按相似度降序的结果
	Search(ctx context.Context, collection string, queryVector []float64, limit int) ([]SearchResult, error)
}

// 确保Qdrant实现了VectorDatabase接口
var _ VectorDatabase = (*Qdrant)(nil)

// Qdrant 通过REST接口访问Qdrant向量数据库
type Qdrant struct {
	endpoint       string
	vectorSize     int
	distanceMetric string
	httpClient     *http.Client
}

// SearchResult 表示一个检索结果项
type SearchResult struct {
	ID      string                 // 向量点ID
	Score   float32                // 相似度分数
	Payload map[string]interface{} // 载荷数据
}

// QdrantOption 定义Qdrant构造函数选项
type QdrantOption func(*Qdrant)

// WithDistanceMetric 设置距离度量
func WithDistanceMetric(metric string) QdrantOption {
	return func(q *Qdrant) {
		q.distanceMetric = metric
	}
}

// WithHTTPTimeout 设置HTTP客户端超时
func WithHTTPTimeout(timeout time.Duration) QdrantOption {
	return func(q *Qdrant) {
		q.httpClient = &http.Client{Timeout: timeout}
	}
}

// NewQdrant 创建Qdrant客户端并确保所有业务集合存在
func NewQdrant(cfg *config.QdrantConfig, opts ...QdrantOption) (*Qdrant, error) {
	if cfg == nil {
		return nil, fmt.Errorf("qdrant配置不能为空")
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = "http://localhost:6333"
	}

	vectorSize := cfg.Dimension
	if vectorSize <= 0 {
		vectorSize = 1024 // 与阿里云Embedding默认维度一致
	}

	q := &Qdrant{
		endpoint:       endpoint,
		vectorSize:     vectorSize,
		distanceMetric: "Cosine",
		httpClient:     &http.Client{Timeout: 30 * time.Second},
	}

	for _, opt := range opts {
		opt(q)
	}

	for _, collection := range []string{cfg.DocumentCollection, cfg.ResumeCollection} {
		if collection == "" {
			continue
		}
		if err := q.ensureCollectionExists(context.Background(), collection); err != nil {
			return nil, fmt.Errorf("确保集合 '%s' 存在失败: %w", collection, err)
		}
	}

	log.Printf("成功连接到Qdrant服务器: %s", endpoint)
	return q, nil
}

// doRequest 发送带追踪上下文的HTTP请求并校验状态码
func (q *Qdrant) doRequest(ctx context.Context, method, url string, body interface{}) ([]byte, int, error) {
	var reqBody io.Reader
	var contentLength int
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, 0, fmt.Errorf("序列化请求体失败: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
		contentLength = len(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, 0, fmt.Errorf("创建请求对象失败: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	// 注入OpenTelemetry追踪上下文到HTTP请求
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.SetAttributes(
			attribute.String("http.method", method),
			attribute.String("http.url", url),
			attribute.Int("http.request_content_length", contentLength),
		)
	}

	resp, err := q.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("发送请求失败: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("读取响应体失败: %w", err)
	}
	return respBody, resp.StatusCode, nil
}

// ensureCollectionExists 确保向量集合存在，不存在时按当前配置创建
func (q *Qdrant) ensureCollectionExists(ctx context.Context, collection string) error {
	ctx, span := qdrantTracer.Start(ctx, "Qdrant.EnsureCollectionExists",
		trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	span.SetAttributes(
		attribute.String("net.peer.name", q.endpoint),
		attribute.String("db.system", "qdrant"),
		attribute.String("db.operation", "check_collection"),
		attribute.String("db.collection", collection),
		attribute.Int("db.vector_size", q.vectorSize),
	)

	url := fmt.Sprintf("%s/collections/%s", q.endpoint, collection)
	body, statusCode, err := q.doRequest(ctx, http.MethodGet, url, nil)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeVectorDB)
		return err
	}

	if statusCode == http.StatusNotFound {
		span.AddEvent("collection_not_found", trace.WithAttributes(
			attribute.String("action", "create_collection"),
		))
		log.Printf("集合 '%s' 不存在，将创建新集合", collection)
		return q.createCollection(ctx, collection)
	}
	if statusCode != http.StatusOK {
		err := fmt.Errorf("检查集合失败，状态码: %d, 响应: %s", statusCode, string(body))
		tracing.RecordHTTPError(span, err, statusCode)
		return err
	}

	var collectionInfo struct {
		Result struct {
			Config struct {
				Params struct {
					Vectors struct {
						Size     int    `json:"size"`
						Distance string `json:"distance"`
					} `json:"vectors"`
				} `json:"params"`
			} `json:"config"`
		} `json:"result"`
	}
	if err := json.Unmarshal(body, &collectionInfo); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeVectorDB)
		return fmt.Errorf("解析集合信息失败: %w", err)
	}

	existingSize := collectionInfo.Result.Config.Params.Vectors.Size
	existingDistance := collectionInfo.Result.Config.Params.Vectors.Distance
	if existingSize != q.vectorSize || existingDistance != q.distanceMetric {
		log.Printf("警告: 集合 '%s' 配置与当前配置不匹配。现有: 维度=%d, 距离=%s; 当前: 维度=%d, 距离=%s",
			collection, existingSize, existingDistance, q.vectorSize, q.distanceMetric)
		span.AddEvent("collection_config_mismatch", trace.WithAttributes(
			attribute.Int("expected_vector_size", q.vectorSize),
			attribute.String("expected_distance", q.distanceMetric),
		))
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// createCollection 创建新的向量集合
func (q *Qdrant) createCollection(ctx context.Context, collection string) error {
	ctx, span := qdrantTracer.Start(ctx, "Qdrant.CreateCollection",
		trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	span.SetAttributes(
		attribute.String("net.peer.name", q.endpoint),
		attribute.String("db.system", "qdrant"),
		attribute.String("db.operation", "create_collection"),
		attribute.String("db.collection", collection),
		attribute.Int("db.vector_size", q.vectorSize),
		attribute.String("db.vector.distance", q.distanceMetric),
	)

	createReqBody := map[string]interface{}{
		"vectors": map[string]interface{}{
			"size":     q.vectorSize,
			"distance": q.distanceMetric,
		},
		"optimizers_config": map[string]interface{}{
			"default_segment_number": 2,
		},
	}

	url := fmt.Sprintf("%s/collections/%s", q.endpoint, collection)
	body, statusCode, err := q.doRequest(ctx, http.MethodPut, url, createReqBody)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeVectorDB)
		return err
	}
	if statusCode != http.StatusOK {
		err := fmt.Errorf("创建集合失败，状态码: %d, 响应: %s", statusCode, string(body))
		tracing.RecordHTTPError(span, err, statusCode)
		return err
	}

	span.SetStatus(codes.Ok, "")
	log.Printf("已成功创建Qdrant集合: %s，维度: %d", collection, q.vectorSize)
	return nil
}

// UpsertPoint 向指定集合写入一个向量点，点已存在时覆盖
func (q *Qdrant) UpsertPoint(ctx context.Context, collection string, pointID string, vector []float64, payload map[string]interface{}) error {
	ctx, span := qdrantTracer.Start(ctx, "Qdrant.UpsertPoint",
		trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	span.SetAttributes(
		attribute.String("db.system", "qdrant"),
		attribute.String("db.operation", "upsert_point"),
		attribute.String("db.collection", collection),
		attribute.String("db.point_id", pointID),
	)

	if len(vector) != q.vectorSize {
		err := fmt.Errorf("向量维度(%d)与配置维度(%d)不匹配", len(vector), q.vectorSize)
		tracing.RecordError(span, err, tracing.ErrorTypeValidation)
		return err
	}

	upsertReqBody := map[string]interface{}{
		"points": []map[string]interface{}{
			{
				"id":      pointID,
				"vector":  vector,
				"payload": payload,
			},
		},
	}

	url := fmt.Sprintf("%s/collections/%s/points?wait=true", q.endpoint, collection)
	body, statusCode, err := q.doRequest(ctx, http.MethodPut, url, upsertReqBody)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeVectorDB)
		return err
	}
	if statusCode != http.StatusOK {
		err := fmt.Errorf("写入向量点失败，状态码: %d, 响应: %s", statusCode, string(body))
		tracing.RecordHTTPError(span, err, statusCode)
		return err
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// Search 在指定集合中按向量检索，返回按相似度降序的结果
func (q *Qdrant) Search(ctx context.Context, collection string, queryVector []float64, limit int) ([]SearchResult, error) {
	ctx, span := qdrantTracer.Start(ctx, "Qdrant.Search",
		trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	span.SetAttributes(
		attribute.String("db.system", "qdrant"),
		attribute.String("db.operation", "search"),
		attribute.String("db.collection", collection),
		attribute.Int("db.search_limit", limit),
	)

	if limit <= 0 {
		limit = 3
	}

	searchReqBody := map[string]interface{}{
		"vector":       queryVector,
		"limit":        limit,
		"with_payload": true,
	}

	url := fmt.Sprintf("%s/collections/%s/points/search", q.endpoint, collection)
	body, statusCode, err := q.doRequest(ctx, http.MethodPost, url, searchReqBody)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeVectorDB)
		return nil, err
	}
	if statusCode != http.StatusOK {
		err := fmt.Errorf("向量检索失败，状态码: %d, 响应: %s", statusCode, string(body))
		tracing.RecordHTTPError(span, err, statusCode)
		return nil, err
	}

	var searchResp struct {
		Result []struct {
			ID      interface{}            `json:"id"`
			Score   float32                `json:"score"`
			Payload map[string]interface{} `json:"payload"`
		} `json:"result"`
	}
	if err := json.Unmarshal(body, &searchResp); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeVectorDB)
		return nil, fmt.Errorf("解析检索响应失败: %w", err)
	}

	results := make([]SearchResult, 0, len(searchResp.Result))
	for _, item := range searchResp.Result {
		results = append(results, SearchResult{
			ID:      fmt.Sprintf("%v", item.ID),
			Score:   item.Score,
			Payload: item.Payload,
		})
	}

	span.SetAttributes(attribute.Int("db.results_count", len(results)))
	span.SetStatus(codes.Ok, "")
	return results, nil
}
