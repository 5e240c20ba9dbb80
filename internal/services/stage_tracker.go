package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/fyerfyer/pdf-ingest/internal/cache"
	"github.com/fyerfyer/pdf-ingest/internal/models"
	"github.com/sirupsen/logrus"
)

const stageKeyPrefix = "ingest:stage"

// StageTracker 处理阶段跟踪器
// 记录每个请求在流水线中的阶段转换，供状态查询和排查使用
type StageTracker struct {
	cache  cache.Cache    // 阶段记录存储
	ttl    time.Duration  // 记录保留时间
	logger *logrus.Logger // 日志记录器
	mu     sync.Mutex     // 保证读-改-写的原子性
	now    func() time.Time
}

// NewStageTracker 创建阶段跟踪器
func NewStageTracker(c cache.Cache, ttl time.Duration, logger *logrus.Logger) *StageTracker {
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.InfoLevel)
	}

	return &StageTracker{
		cache:  c,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

// MarkReceived 创建请求记录，阶段为 received
func (m *StageTracker) MarkReceived(ctx context.Context, requestID, fileName, sourcePath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	record := &models.StageRecord{
		RequestID:  requestID,
		FileName:   fileName,
		SourcePath: sourcePath,
		Stage:      models.StageReceived,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	m.logger.WithFields(logrus.Fields{
		"request_id": requestID,
		"filename":   fileName,
	}).Debug("Ingestion received")

	return m.save(ctx, record)
}

// Advance 将请求推进到下一个阶段，update可在保存前修改记录
func (m *StageTracker) Advance(ctx context.Context, requestID string, to models.Stage, update func(*models.StageRecord)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, err := m.load(ctx, requestID)
	if err != nil {
		return err
	}

	// 已结束的请求不再变化
	if record.Stage.IsTerminal() {
		return fmt.Errorf("%w: request %s already finished in %s state",
			models.ErrInvalidStageTransition, requestID, record.Stage)
	}

	// 检查状态转换的有效性
	if !record.Stage.CanTransition(to) {
		return fmt.Errorf("%w: request %s is in %s state, cannot move to %s",
			models.ErrInvalidStageTransition, requestID, record.Stage, to)
	}

	record.Stage = to
	if update != nil {
		update(record)
	}
	record.UpdatedAt = m.now()

	m.logger.WithFields(logrus.Fields{
		"request_id": requestID,
		"stage":      to,
	}).Debug("Ingestion stage changed")

	return m.save(ctx, record)
}

// MarkFailed 将请求标记为失败阶段并记录原因
func (m *StageTracker) MarkFailed(ctx context.Context, requestID string, to models.Stage, cause error) error {
	if !to.IsFailed() {
		return fmt.Errorf("%w: %s is not a failure stage", models.ErrInvalidStageTransition, to)
	}

	return m.Advance(ctx, requestID, to, func(record *models.StageRecord) {
		if cause != nil {
			record.Error = cause.Error()
		}
	})
}

// MarkLeaked 标记原始文件删除失败，阶段不变
func (m *StageTracker) MarkLeaked(ctx context.Context, requestID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, err := m.load(ctx, requestID)
	if err != nil {
		return err
	}
	record.Leaked = true
	record.UpdatedAt = m.now()
	return m.save(ctx, record)
}

// Get 获取请求的阶段记录
func (m *StageTracker) Get(ctx context.Context, requestID string) (*models.StageRecord, error) {
	return m.load(ctx, requestID)
}

func (m *StageTracker) load(ctx context.Context, requestID string) (*models.StageRecord, error) {
	data, found, err := m.cache.Get(ctx, cache.Key(stageKeyPrefix, requestID))
	if err != nil {
		return nil, fmt.Errorf("failed to load stage record: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("request %s: %w", requestID, models.ErrRecordNotFound)
	}

	var record models.StageRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to decode stage record: %w", err)
	}
	return &record, nil
}

func (m *StageTracker) save(ctx context.Context, record *models.StageRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode stage record: %w", err)
	}
	if err := m.cache.Set(ctx, cache.Key(stageKeyPrefix, record.RequestID), data, m.ttl); err != nil {
		return fmt.Errorf("failed to save stage record: %w", err)
	}
	return nil
}
