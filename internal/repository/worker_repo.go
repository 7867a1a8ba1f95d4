package repository

import (
	"context"
	"database/sql"
	"time"

	"gorm.io/gorm"

	"github.com/Jaaz7/kgag-scheduler/internal/model"
	apperrors "github.com/Jaaz7/kgag-scheduler/pkg/errors"
)

// WorkerRepository 员工档案数据访问接口
type WorkerRepository interface {
	Create(ctx context.Context, worker *model.Worker) error
	GetByID(ctx context.Context, id string) (*model.Worker, error)
	// ListByShop 按名册顺序返回；activeOnly 为 true 时仅返回在职员工
	ListByShop(ctx context.Context, shopID string, activeOnly bool) ([]model.Worker, error)
	Update(ctx context.Context, worker *model.Worker) error
	Delete(ctx context.Context, id string, deletedBy *string) error
	NextSortOrder(ctx context.Context, shopID string) (int, error)
}

type workerRepo struct {
	db *gorm.DB
}

// NewWorkerRepo 创建 WorkerRepository 实例
func NewWorkerRepo(db *gorm.DB) WorkerRepository {
	return &workerRepo{db: db}
}

func (r *workerRepo) Create(ctx context.Context, worker *model.Worker) error {
	return r.db.WithContext(ctx).Create(worker).Error
}

func (r *workerRepo) GetByID(ctx context.Context, id string) (*model.Worker, error) {
	var worker model.Worker
	err := r.db.WithContext(ctx).
		Where("worker_id = ?", id).
		First(&worker).Error
	if err != nil {
		return nil, err
	}
	return &worker, nil
}

func (r *workerRepo) ListByShop(ctx context.Context, shopID string, activeOnly bool) ([]model.Worker, error) {
	var workers []model.Worker
	q := r.db.WithContext(ctx).Where("shop_id = ?", shopID)
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	err := q.Order("sort_order ASC").
		Order("created_at ASC").
		Order("worker_id ASC").
		Find(&workers).Error
	return workers, err
}

// Update 基于 version 的乐观锁更新
func (r *workerRepo) Update(ctx context.Context, worker *model.Worker) error {
	oldVersion := worker.Version
	result := r.db.WithContext(ctx).
		Model(&model.Worker{}).
		Where("worker_id = ? AND version = ?", worker.WorkerID, oldVersion).
		Updates(map[string]interface{}{
			"name":              worker.Name,
			"weekly_quota":      worker.WeeklyQuota,
			"shift_preferences": worker.ShiftPreferences,
			"day_preferences":   worker.DayPreferences,
			"is_active":         worker.IsActive,
			"sort_order":        worker.SortOrder,
			"updated_by":        worker.UpdatedBy,
			"updated_at":        time.Now(),
			"version":           oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrOptimisticLock
	}
	worker.Version = oldVersion + 1
	return nil
}

func (r *workerRepo) Delete(ctx context.Context, id string, deletedBy *string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Worker{}).
			Where("worker_id = ?", id).
			Updates(map[string]interface{}{"deleted_by": deletedBy, "is_active": false}).Error; err != nil {
			return err
		}
		return tx.Where("worker_id = ?", id).Delete(&model.Worker{}).Error
	})
}

// NextSortOrder 新员工追加到名册末尾
func (r *workerRepo) NextSortOrder(ctx context.Context, shopID string) (int, error) {
	var maxOrder sql.NullInt64
	err := r.db.WithContext(ctx).
		Unscoped().
		Model(&model.Worker{}).
		Where("shop_id = ?", shopID).
		Select("MAX(sort_order)").
		Row().
		Scan(&maxOrder)
	if err != nil {
		return 0, err
	}
	if !maxOrder.Valid {
		return 0, nil
	}
	return int(maxOrder.Int64) + 1, nil
}
