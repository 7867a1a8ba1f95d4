package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/Jaaz7/kgag-scheduler/internal/model"
)

// ClosureRepository 闭店规则数据访问接口
type ClosureRepository interface {
	Create(ctx context.Context, closure *model.ShopClosure) error
	GetByID(ctx context.Context, id string) (*model.ShopClosure, error)
	ListByShop(ctx context.Context, shopID string) ([]model.ShopClosure, error)
	Delete(ctx context.Context, id string) error
}

type closureRepo struct {
	db *gorm.DB
}

// NewClosureRepo 创建 ClosureRepository 实例
func NewClosureRepo(db *gorm.DB) ClosureRepository {
	return &closureRepo{db: db}
}

func (r *closureRepo) Create(ctx context.Context, closure *model.ShopClosure) error {
	return r.db.WithContext(ctx).Create(closure).Error
}

func (r *closureRepo) GetByID(ctx context.Context, id string) (*model.ShopClosure, error) {
	var c model.ShopClosure
	err := r.db.WithContext(ctx).
		Where("closure_id = ?", id).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *closureRepo) ListByShop(ctx context.Context, shopID string) ([]model.ShopClosure, error) {
	var closures []model.ShopClosure
	err := r.db.WithContext(ctx).
		Where("shop_id = ?", shopID).
		Order("created_at ASC").
		Order("closure_id ASC").
		Find(&closures).Error
	return closures, err
}

func (r *closureRepo) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).
		Where("closure_id = ?", id).
		Delete(&model.ShopClosure{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
