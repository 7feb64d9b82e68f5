package ledger

import (
	"context"
	"fmt"
	"sync"

	"ecoovision-presence/internal/models"
	redisutil "ecoovision-presence/internal/redis"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// ActivityStore 活动记录的持久化存储（PostgreSQL）
type ActivityStore interface {
	Insert(ctx context.Context, activity *models.Activity) error
}

// Ledger 活动台账：行写入 PostgreSQL，同时以 JSON 发布到 Redis Stream
// 供下游（报表、通知等外部服务）消费。只追加，从不修改
type Ledger struct {
	store       ActivityStore
	redisClient *redis.Client
	stream      string
	logger      *zap.Logger
}

// New 创建活动台账
// redisClient 允许为 nil（此时只落库，不发布）
func New(store ActivityStore, redisClient *redis.Client, stream string, logger *zap.Logger) *Ledger {
	return &Ledger{
		store:       store,
		redisClient: redisClient,
		stream:      stream,
		logger:      logger,
	}
}

// Append 追加一条活动记录
// 落库失败视为追加失败；Stream 发布失败只记日志（下游可从数据库补读）
func (l *Ledger) Append(ctx context.Context, activity *models.Activity) error {
	if err := l.store.Insert(ctx, activity); err != nil {
		return fmt.Errorf("failed to insert activity: %w", err)
	}

	if l.redisClient != nil {
		if _, err := redisutil.PublishJSONToStream(ctx, l.redisClient, l.stream, activity); err != nil {
			l.logger.Warn("Failed to publish activity to stream",
				zap.String("stream", l.stream),
				zap.String("activity_id", activity.ActivityID),
				zap.Error(err),
			)
		}
	}

	return nil
}

// Memory 内存台账（用于单元测试和无数据库的联调）
type Memory struct {
	mu         sync.Mutex
	activities []models.Activity
}

// NewMemory 创建内存台账
func NewMemory() *Memory {
	return &Memory{}
}

// Append 追加一条活动记录
func (m *Memory) Append(ctx context.Context, activity *models.Activity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activities = append(m.activities, *activity)
	return nil
}

// Activities 返回全部记录（副本）
func (m *Memory) Activities() []models.Activity {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Activity, len(m.activities))
	copy(out, m.activities)
	return out
}
