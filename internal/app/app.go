// Package app 组装服务端与命令行共用的依赖：数据库、缓存、消息队列与 Service 层
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Jaaz7/kgag-scheduler/config"
	"github.com/Jaaz7/kgag-scheduler/internal/model"
	"github.com/Jaaz7/kgag-scheduler/internal/repository"
	"github.com/Jaaz7/kgag-scheduler/internal/service"
	"github.com/Jaaz7/kgag-scheduler/pkg/database"
	"github.com/Jaaz7/kgag-scheduler/pkg/mq"
	"github.com/Jaaz7/kgag-scheduler/pkg/redis"
)

// App 已装配的应用依赖
type App struct {
	Config  *config.Config
	DB      *gorm.DB
	Repo    *repository.Repository
	Service *service.Service
	Redis   *redis.Client // 未配置或连接失败时为 nil
	MQ      *mq.Publisher // 未配置或连接失败时为 nil
	Logger  *zap.Logger
}

// New 连接数据库并按配置执行迁移、写入默认班次，再装配 Service 层
// Redis 与 RabbitMQ 为可选依赖，不可用时降级运行
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		return nil, err
	}

	a := &App{Config: cfg, DB: db, Logger: logger}

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(db, &cfg.Database, logger, model.All()...); err != nil {
			a.Close()
			return nil, fmt.Errorf("数据库迁移失败: %w", err)
		}
	}

	// 接口变量只在依赖可用时赋值，避免持有 nil 指针的非 nil 接口
	var cache service.ScheduleCache
	if cfg.Redis.Addr != "" {
		rdb, err := redis.NewClient(&cfg.Redis, logger)
		if err != nil {
			logger.Warn("Redis 不可用，排班缓存与限流已关闭", zap.Error(err))
		} else {
			a.Redis = rdb
			cache = rdb
		}
	}

	var events service.EventPublisher
	if cfg.MQ.URL != "" {
		pub, err := mq.NewPublisher(&cfg.MQ, logger)
		if err != nil {
			logger.Warn("RabbitMQ 不可用，排班事件将不会发布", zap.Error(err))
		} else {
			a.MQ = pub
			events = pub
		}
	}

	a.Repo = repository.NewRepository(db)
	a.Service = service.NewService(cfg, a.Repo, cache, events, logger)

	if _, err := a.Service.ShiftSlot.SeedDefaults(ctx, cfg.Scheduler.ShiftSlots); err != nil {
		a.Close()
		return nil, fmt.Errorf("写入默认班次失败: %w", err)
	}

	return a, nil
}

// Close 释放连接，可重复调用
func (a *App) Close() {
	if a.MQ != nil {
		if err := a.MQ.Close(); err != nil {
			a.Logger.Warn("关闭 RabbitMQ 连接失败", zap.Error(err))
		}
		a.MQ = nil
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Warn("关闭 Redis 连接失败", zap.Error(err))
		}
		a.Redis = nil
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			sqlDB.Close()
		}
		a.DB = nil
	}
}
