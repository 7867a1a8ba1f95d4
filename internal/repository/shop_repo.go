package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/Jaaz7/kgag-scheduler/internal/model"
	apperrors "github.com/Jaaz7/kgag-scheduler/pkg/errors"
)

// ShopRepository 店铺数据访问接口
type ShopRepository interface {
	Create(ctx context.Context, shop *model.Shop) error
	GetByID(ctx context.Context, id string) (*model.Shop, error)
	GetByName(ctx context.Context, name string) (*model.Shop, error)
	List(ctx context.Context) ([]model.Shop, error)
	Update(ctx context.Context, shop *model.Shop) error
	Delete(ctx context.Context, id string, deletedBy *string) error
}

// shopRepo ShopRepository 的 GORM 实现
type shopRepo struct {
	db *gorm.DB
}

// NewShopRepo 创建 ShopRepository 实例
func NewShopRepo(db *gorm.DB) ShopRepository {
	return &shopRepo{db: db}
}

func (r *shopRepo) Create(ctx context.Context, shop *model.Shop) error {
	err := r.db.WithContext(ctx).Create(shop).Error
	if IsUniqueViolation(err) {
		return apperrors.ErrAlreadyExists
	}
	return err
}

func (r *shopRepo) GetByID(ctx context.Context, id string) (*model.Shop, error) {
	var shop model.Shop
	err := r.db.WithContext(ctx).
		Where("shop_id = ?", id).
		First(&shop).Error
	if err != nil {
		return nil, err
	}
	return &shop, nil
}

func (r *shopRepo) GetByName(ctx context.Context, name string) (*model.Shop, error) {
	var shop model.Shop
	err := r.db.WithContext(ctx).
		Where("name = ?", name).
		First(&shop).Error
	if err != nil {
		return nil, err
	}
	return &shop, nil
}

func (r *shopRepo) List(ctx context.Context) ([]model.Shop, error) {
	var shops []model.Shop
	err := r.db.WithContext(ctx).
		Order("name ASC").
		Find(&shops).Error
	return shops, err
}

// Update 基于 version 的乐观锁更新
func (r *shopRepo) Update(ctx context.Context, shop *model.Shop) error {
	oldVersion := shop.Version
	result := r.db.WithContext(ctx).
		Model(&model.Shop{}).
		Where("shop_id = ? AND version = ?", shop.ShopID, oldVersion).
		Updates(map[string]interface{}{
			"name":        shop.Name,
			"description": shop.Description,
			"is_active":   shop.IsActive,
			"updated_by":  shop.UpdatedBy,
			"updated_at":  time.Now(),
			"version":     oldVersion + 1,
		})
	if result.Error != nil {
		if IsUniqueViolation(result.Error) {
			return apperrors.ErrAlreadyExists
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrOptimisticLock
	}
	shop.Version = oldVersion + 1
	return nil
}

func (r *shopRepo) Delete(ctx context.Context, id string, deletedBy *string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Shop{}).
			Where("shop_id = ?", id).
			Update("deleted_by", deletedBy).Error; err != nil {
			return err
		}
		return tx.Where("shop_id = ?", id).Delete(&model.Shop{}).Error
	})
}
