package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	db *gorm.DB

	Shop       ShopRepository
	Worker     WorkerRepository
	ShiftSlot  ShiftSlotRepository
	Closure    ClosureRepository
	Schedule   ScheduleRepository
	Assignment AssignmentRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:         db,
		Shop:       NewShopRepo(db),
		Worker:     NewWorkerRepo(db),
		ShiftSlot:  NewShiftSlotRepo(db),
		Closure:    NewClosureRepo(db),
		Schedule:   NewScheduleRepo(db),
		Assignment: NewAssignmentRepo(db),
	}
}

// BeginTx 开启事务；db 为 nil（单元测试中的 mock 聚合）时返回 nil 事务
func (r *Repository) BeginTx(ctx context.Context) (*gorm.DB, error) {
	if r.db == nil {
		return nil, nil
	}
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	return tx, nil
}

// WithTx 返回绑定到事务连接的 Repository 聚合；tx 为 nil 时返回自身
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return NewRepository(tx)
}

// pgUniqueViolation PostgreSQL unique_violation 错误码
const pgUniqueViolation = "23505"

// IsUniqueViolation 判断是否为唯一约束冲突
// 兼容 gorm TranslateError、pgconn 原始错误与 SQLite 错误文本
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
