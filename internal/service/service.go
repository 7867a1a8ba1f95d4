package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Jaaz7/kgag-scheduler/config"
	"github.com/Jaaz7/kgag-scheduler/internal/repository"
	"github.com/Jaaz7/kgag-scheduler/pkg/mq"
)

// ScheduleCache 排班表读缓存（Redis 实现见 pkg/redis）
type ScheduleCache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) error
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// EventPublisher 排班事件发布（RabbitMQ 实现见 pkg/mq）
type EventPublisher interface {
	PublishScheduleGenerated(ctx context.Context, ev mq.ScheduleGenerated) error
}

// Service 所有 Service 的聚合入口
type Service struct {
	Shop      ShopService
	Worker    WorkerService
	ShiftSlot ShiftSlotService
	Schedule  ScheduleService
	Export    ExportService
}

// NewService 创建 Service 聚合
// cache 与 events 可为 nil，对应功能关闭
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	cache ScheduleCache,
	events EventPublisher,
	logger *zap.Logger,
) *Service {
	return &Service{
		Shop:      NewShopService(repo, logger),
		Worker:    NewWorkerService(repo, logger),
		ShiftSlot: NewShiftSlotService(repo, logger),
		Schedule:  NewScheduleService(&cfg.Scheduler, &cfg.Redis, repo, cache, events, logger),
		Export:    NewExportService(&cfg.Scheduler, repo, logger),
	}
}

// auditID 审计字段；命令行等无调用者身份时留空
func auditID(callerID string) *string {
	if callerID == "" {
		return nil
	}
	return &callerID
}
