package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/fyerfyer/pdf-ingest/internal/document"
	"github.com/fyerfyer/pdf-ingest/internal/models"
	"github.com/fyerfyer/pdf-ingest/pkg/storage"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// PagePolicy 请求失败时已写出页面的处理策略
type PagePolicy string

const (
	// PagePolicyLeave 保留已写出的页面文件
	PagePolicyLeave PagePolicy = "leave"
	// PagePolicyRollback 删除该请求的页面目录
	PagePolicyRollback PagePolicy = "rollback"
)

// 错误分类，供接口层映射HTTP状态码
const (
	KindMalformedDocument = "MALFORMED_DOCUMENT"
	KindStorageWrite      = "STORAGE_WRITE_FAILURE"
	KindExtraction        = "EXTRACTION_FAILURE"
	KindInternal          = "INTERNAL_ERROR"
)

// IngestError 流水线失败，Stage为失败时所处的阶段
type IngestError struct {
	RequestID string
	Stage     models.Stage
	Cause     error
}

// Error 实现error接口
func (e *IngestError) Error() string {
	return fmt.Sprintf("ingestion %s failed at %s: %v", e.RequestID, e.Stage, e.Cause)
}

// Unwrap 返回底层错误
func (e *IngestError) Unwrap() error {
	return e.Cause
}

// Kind 返回错误分类
func (e *IngestError) Kind() string {
	switch {
	case errors.Is(e.Cause, models.ErrMalformedDocument):
		return KindMalformedDocument
	case errors.Is(e.Cause, models.ErrStorageWrite):
		return KindStorageWrite
	case errors.Is(e.Cause, models.ErrExtraction):
		return KindExtraction
	default:
		return KindInternal
	}
}

// IngestService 文档处理编排服务
// 负责按顺序执行 分页 -> 文本提取 -> 清理原文件 -> 组装结果
type IngestService struct {
	storage    storage.Storage   // 临时存储
	splitter   document.Splitter // 页面分割器
	parser     document.Parser   // 文本提取器，为nil时按文件类型通过ParserFactory创建
	tracker    *StageTracker     // 阶段跟踪器（可选）
	pagePolicy PagePolicy        // 失败时页面文件的处理策略
	pagePrefix string            // 页面文件名前缀
	newID      func() string     // 请求ID生成函数
	logger     *logrus.Logger    // 日志记录器
}

// IngestOption 编排服务配置选项
type IngestOption func(*IngestService)

// NewIngestService 创建文档处理编排服务
func NewIngestService(
	storage storage.Storage,
	splitter document.Splitter,
	parser document.Parser,
	opts ...IngestOption,
) *IngestService {
	srv := &IngestService{
		storage:    storage,
		splitter:   splitter,
		parser:     parser,
		pagePolicy: PagePolicyLeave,
		pagePrefix: "page",
		newID:      func() string { return uuid.New().String() },
		logger:     logrus.New(),
	}

	for _, opt := range opts {
		opt(srv)
	}

	return srv
}

// WithLogger 设置日志记录器
func WithLogger(logger *logrus.Logger) IngestOption {
	return func(s *IngestService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithStageTracker 设置阶段跟踪器
func WithStageTracker(tracker *StageTracker) IngestOption {
	return func(s *IngestService) {
		s.tracker = tracker
	}
}

// WithPagePolicy 设置失败时页面文件的处理策略
func WithPagePolicy(policy PagePolicy) IngestOption {
	return func(s *IngestService) {
		if policy == PagePolicyLeave || policy == PagePolicyRollback {
			s.pagePolicy = policy
		}
	}
}

// WithPagePrefix 设置页面文件名前缀
func WithPagePrefix(prefix string) IngestOption {
	return func(s *IngestService) {
		if prefix != "" {
			s.pagePrefix = prefix
		}
	}
}

// WithIDGenerator 设置请求ID生成函数
func WithIDGenerator(fn func() string) IngestOption {
	return func(s *IngestService) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// Tracker 返回阶段跟踪器，未配置时为nil
func (s *IngestService) Tracker() *StageTracker {
	return s.tracker
}

// Storage 返回临时存储
func (s *IngestService) Storage() storage.Storage {
	return s.storage
}

// PagePrefix 返回页面文件名前缀
func (s *IngestService) PagePrefix() string {
	return s.pagePrefix
}

// Ingest 处理一个上传的文档
// 分页或提取失败时立即终止，原始文件保留，不返回部分结果；不做任何重试
func (s *IngestService) Ingest(ctx context.Context, src models.SourceDocument) (*models.IngestionResult, error) {
	requestID := s.newID()
	log := s.logger.WithFields(logrus.Fields{
		"request_id":  requestID,
		"filename":    src.Name,
		"source_path": src.Path,
	})
	log.WithField("size", src.Size).Info("Starting document ingestion")

	s.track(log, func() error {
		return s.tracker.MarkReceived(ctx, requestID, src.Name, src.Path)
	})

	parser, err := s.parserFor(src.Path)
	if err != nil {
		return nil, s.fail(ctx, log, requestID, models.StageSplitFailed, err)
	}

	// 1. 分页，页面写入请求独占的子目录
	pageDir, err := s.storage.Namespace(requestID)
	if err != nil {
		return nil, s.fail(ctx, log, requestID, models.StageSplitFailed, err)
	}

	pagePaths, err := s.splitter.Split(src.Content, pageDir, s.pagePrefix)
	if err != nil {
		return nil, s.fail(ctx, log, requestID, models.StageSplitFailed, err)
	}
	log.WithField("total_pages", len(pagePaths)).Info("Document split into pages")
	s.track(log, func() error {
		return s.tracker.Advance(ctx, requestID, models.StageSplit, func(r *models.StageRecord) {
			r.TotalPages = len(pagePaths)
		})
	})

	// 2. 从原始文件提取文本
	text, err := parser.Parse(src.Path)
	if err != nil {
		return nil, s.fail(ctx, log, requestID, models.StageExtractFailed, err)
	}
	log.WithField("text_length", len(text)).Debug("Text extracted")
	s.track(log, func() error {
		return s.tracker.Advance(ctx, requestID, models.StageExtracted, nil)
	})

	// 3. 删除原始上传文件，失败只记录，不影响结果
	if err := s.storage.Delete(src.Path); err != nil {
		log.WithError(err).Warn("Failed to delete original upload, file left in transient store")
		s.track(log, func() error {
			return s.tracker.MarkLeaked(ctx, requestID)
		})
	}
	s.track(log, func() error {
		return s.tracker.Advance(ctx, requestID, models.StageCleaned, nil)
	})

	// 4. 组装结果
	result := &models.IngestionResult{
		RequestID:  requestID,
		Text:       text,
		PagePaths:  pagePaths,
		TotalPages: len(pagePaths),
		Metadata:   src.Metadata,
	}
	s.track(log, func() error {
		return s.tracker.Advance(ctx, requestID, models.StageDone, nil)
	})

	log.WithField("total_pages", result.TotalPages).Info("Document ingestion completed")
	return result, nil
}

// parserFor 返回文本提取器，未指定时根据文件类型选择
func (s *IngestService) parserFor(path string) (document.Parser, error) {
	if s.parser != nil {
		return s.parser, nil
	}
	parser, err := document.ParserFactory(path)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, models.ErrMalformedDocument)
	}
	return parser, nil
}

// fail 记录失败阶段，按策略处理已写出的页面，返回统一的IngestError
func (s *IngestService) fail(ctx context.Context, log *logrus.Entry, requestID string, stage models.Stage, cause error) error {
	ingestErr := &IngestError{RequestID: requestID, Stage: stage, Cause: cause}
	log.WithFields(logrus.Fields{
		"stage":      stage,
		"error_type": ingestErr.Kind(),
	}).WithError(cause).Error("Document ingestion failed")

	s.track(log, func() error {
		return s.tracker.MarkFailed(ctx, requestID, stage, cause)
	})

	if s.pagePolicy == PagePolicyRollback {
		if err := s.storage.RemoveNamespace(requestID); err != nil {
			log.WithError(err).Warn("Failed to roll back page files")
		} else {
			log.Info("Rolled back page files of failed ingestion")
		}
	}

	return ingestErr
}

// track 执行阶段记录操作，记录失败不影响流水线
func (s *IngestService) track(log *logrus.Entry, fn func() error) {
	if s.tracker == nil {
		return
	}
	if err := fn(); err != nil {
		log.WithError(err).Warn("Failed to record ingestion stage")
	}
}
