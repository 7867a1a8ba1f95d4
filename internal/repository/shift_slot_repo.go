package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/Jaaz7/kgag-scheduler/internal/model"
	apperrors "github.com/Jaaz7/kgag-scheduler/pkg/errors"
)

// ShiftSlotRepository 班次配置数据访问接口
type ShiftSlotRepository interface {
	Create(ctx context.Context, slot *model.ShiftSlot) error
	GetByID(ctx context.Context, id string) (*model.ShiftSlot, error)
	// ListForShop 店铺有专属班次时返回专属班次，否则返回全局默认班次
	ListForShop(ctx context.Context, shopID string) ([]model.ShiftSlot, error)
	ListAll(ctx context.Context) ([]model.ShiftSlot, error)
	Update(ctx context.Context, slot *model.ShiftSlot) error
	Delete(ctx context.Context, id string, deletedBy *string) error
}

type shiftSlotRepo struct {
	db *gorm.DB
}

// NewShiftSlotRepo 创建 ShiftSlotRepository 实例
func NewShiftSlotRepo(db *gorm.DB) ShiftSlotRepository {
	return &shiftSlotRepo{db: db}
}

func (r *shiftSlotRepo) Create(ctx context.Context, slot *model.ShiftSlot) error {
	return r.db.WithContext(ctx).Create(slot).Error
}

func (r *shiftSlotRepo) GetByID(ctx context.Context, id string) (*model.ShiftSlot, error) {
	var slot model.ShiftSlot
	err := r.db.WithContext(ctx).
		Where("shift_slot_id = ?", id).
		First(&slot).Error
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

func (r *shiftSlotRepo) ListForShop(ctx context.Context, shopID string) ([]model.ShiftSlot, error) {
	var slots []model.ShiftSlot
	err := r.db.WithContext(ctx).
		Where("shop_id = ? AND is_active = ?", shopID, true).
		Order("position ASC").
		Order("name ASC").
		Find(&slots).Error
	if err != nil || len(slots) > 0 {
		return slots, err
	}

	err = r.db.WithContext(ctx).
		Where("shop_id IS NULL AND is_active = ?", true).
		Order("position ASC").
		Order("name ASC").
		Find(&slots).Error
	return slots, err
}

func (r *shiftSlotRepo) ListAll(ctx context.Context) ([]model.ShiftSlot, error) {
	var slots []model.ShiftSlot
	err := r.db.WithContext(ctx).
		Order("shop_id ASC").
		Order("position ASC").
		Find(&slots).Error
	return slots, err
}

// Update 基于 version 的乐观锁更新
func (r *shiftSlotRepo) Update(ctx context.Context, slot *model.ShiftSlot) error {
	oldVersion := slot.Version
	result := r.db.WithContext(ctx).
		Model(&model.ShiftSlot{}).
		Where("shift_slot_id = ? AND version = ?", slot.ShiftSlotID, oldVersion).
		Updates(map[string]interface{}{
			"name":       slot.Name,
			"start_time": slot.StartTime,
			"end_time":   slot.EndTime,
			"position":   slot.Position,
			"is_active":  slot.IsActive,
			"updated_by": slot.UpdatedBy,
			"updated_at": time.Now(),
			"version":    oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrOptimisticLock
	}
	slot.Version = oldVersion + 1
	return nil
}

func (r *shiftSlotRepo) Delete(ctx context.Context, id string, deletedBy *string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.ShiftSlot{}).
			Where("shift_slot_id = ?", id).
			Update("deleted_by", deletedBy).Error; err != nil {
			return err
		}
		return tx.Where("shift_slot_id = ?", id).Delete(&model.ShiftSlot{}).Error
	})
}
