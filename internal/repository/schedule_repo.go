package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/Jaaz7/kgag-scheduler/internal/model"
	apperrors "github.com/Jaaz7/kgag-scheduler/pkg/errors"
)

// ScheduleRepository 排班表数据访问接口
type ScheduleRepository interface {
	// Create 插入排班表头；(shop_id, month, year) 冲突时返回 ErrAlreadyExists
	Create(ctx context.Context, schedule *model.Schedule) error
	GetByID(ctx context.Context, id string) (*model.Schedule, error)
	GetByPeriod(ctx context.Context, shopID string, month, year int) (*model.Schedule, error)
	ExistsForPeriod(ctx context.Context, shopID string, month, year int) (bool, error)
	ListByShop(ctx context.Context, shopID string) ([]model.Schedule, error)
}

// AssignmentRepository 排班明细数据访问接口
type AssignmentRepository interface {
	// CommitAssignments 在单个事务内替换排班表的全部明细，失败时整体回滚
	CommitAssignments(ctx context.Context, scheduleID string, rows []model.ScheduleAssignment) error
	ListBySchedule(ctx context.Context, scheduleID string) ([]model.ScheduleAssignment, error)
	ListByScheduleAndWorker(ctx context.Context, scheduleID, workerID string) ([]model.ScheduleAssignment, error)
	// ListFilledByShopBetween 店铺在 [from, to] 内已排到人的明细（跨排班表）
	ListFilledByShopBetween(ctx context.Context, shopID string, from, to time.Time) ([]model.ScheduleAssignment, error)
}

// ── Schedule Repository 实现 ──

type scheduleRepo struct {
	db *gorm.DB
}

// NewScheduleRepo 创建 ScheduleRepository 实例
func NewScheduleRepo(db *gorm.DB) ScheduleRepository {
	return &scheduleRepo{db: db}
}

func (r *scheduleRepo) Create(ctx context.Context, schedule *model.Schedule) error {
	err := r.db.WithContext(ctx).Create(schedule).Error
	if IsUniqueViolation(err) {
		return apperrors.ErrAlreadyExists
	}
	return err
}

func (r *scheduleRepo) GetByID(ctx context.Context, id string) (*model.Schedule, error) {
	var schedule model.Schedule
	err := r.db.WithContext(ctx).
		Preload("Shop").
		Where("schedule_id = ?", id).
		First(&schedule).Error
	if err != nil {
		return nil, err
	}
	return &schedule, nil
}

func (r *scheduleRepo) GetByPeriod(ctx context.Context, shopID string, month, year int) (*model.Schedule, error) {
	var schedule model.Schedule
	err := r.db.WithContext(ctx).
		Preload("Shop").
		Where("shop_id = ? AND month = ? AND year = ?", shopID, month, year).
		First(&schedule).Error
	if err != nil {
		return nil, err
	}
	return &schedule, nil
}

func (r *scheduleRepo) ExistsForPeriod(ctx context.Context, shopID string, month, year int) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Schedule{}).
		Where("shop_id = ? AND month = ? AND year = ?", shopID, month, year).
		Count(&count).Error
	return count > 0, err
}

func (r *scheduleRepo) ListByShop(ctx context.Context, shopID string) ([]model.Schedule, error) {
	var schedules []model.Schedule
	err := r.db.WithContext(ctx).
		Where("shop_id = ?", shopID).
		Order("year DESC").
		Order("month DESC").
		Find(&schedules).Error
	return schedules, err
}

// ── Assignment Repository 实现 ──

type assignmentRepo struct {
	db *gorm.DB
}

// NewAssignmentRepo 创建 AssignmentRepository 实例
func NewAssignmentRepo(db *gorm.DB) AssignmentRepository {
	return &assignmentRepo{db: db}
}

// commitBatchSize 单条 INSERT 的最大行数
const commitBatchSize = 200

func (r *assignmentRepo) CommitAssignments(ctx context.Context, scheduleID string, rows []model.ScheduleAssignment) error {
	for i := range rows {
		rows[i].ScheduleID = scheduleID
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 先删后插，重试时结果一致
		if err := tx.Where("schedule_id = ?", scheduleID).
			Delete(&model.ScheduleAssignment{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(&rows, commitBatchSize).Error
	})
}

func (r *assignmentRepo) ListBySchedule(ctx context.Context, scheduleID string) ([]model.ScheduleAssignment, error) {
	var rows []model.ScheduleAssignment
	err := r.db.WithContext(ctx).
		Preload("Worker", unscopedWorkers).
		Where("schedule_id = ?", scheduleID).
		Order("seq ASC").
		Find(&rows).Error
	return rows, err
}

func (r *assignmentRepo) ListByScheduleAndWorker(ctx context.Context, scheduleID, workerID string) ([]model.ScheduleAssignment, error) {
	var rows []model.ScheduleAssignment
	err := r.db.WithContext(ctx).
		Where("schedule_id = ? AND worker_id = ?", scheduleID, workerID).
		Order("seq ASC").
		Find(&rows).Error
	return rows, err
}

func (r *assignmentRepo) ListFilledByShopBetween(ctx context.Context, shopID string, from, to time.Time) ([]model.ScheduleAssignment, error) {
	var rows []model.ScheduleAssignment
	err := r.db.WithContext(ctx).
		Joins("JOIN schedules ON schedules.schedule_id = schedule_assignments.schedule_id").
		Where("schedules.shop_id = ?", shopID).
		Where("schedule_assignments.work_date BETWEEN ? AND ?", from, to).
		Where("schedule_assignments.worker_id IS NOT NULL").
		Order("schedule_assignments.work_date ASC").
		Order("schedule_assignments.seq ASC").
		Find(&rows).Error
	return rows, err
}

// unscopedWorkers 已离职（软删除）的员工仍需在历史排班中显示姓名
func unscopedWorkers(db *gorm.DB) *gorm.DB {
	return db.Unscoped()
}
