package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Jaaz7/kgag-scheduler/internal/calendar"
	"github.com/Jaaz7/kgag-scheduler/internal/dto"
	"github.com/Jaaz7/kgag-scheduler/internal/model"
	"github.com/Jaaz7/kgag-scheduler/internal/repository"
	apperrors "github.com/Jaaz7/kgag-scheduler/pkg/errors"
)

// ── 店铺模块业务错误 ──

var (
	ErrShopNotFound    = errors.New("店铺不存在")
	ErrShopNameTaken   = errors.New("店铺名称已存在")
	ErrClosureNotFound = errors.New("闭店规则不存在")
)

// ShopService 店铺与闭店规则业务接口
type ShopService interface {
	Create(ctx context.Context, req *dto.CreateShopRequest, callerID string) (*dto.ShopResponse, error)
	GetByID(ctx context.Context, id string) (*dto.ShopResponse, error)
	List(ctx context.Context) ([]dto.ShopResponse, error)
	Update(ctx context.Context, id string, req *dto.UpdateShopRequest, callerID string) (*dto.ShopResponse, error)
	Delete(ctx context.Context, id string, callerID string) error

	CreateClosure(ctx context.Context, shopID string, req *dto.CreateClosureRequest, callerID string) (*dto.ClosureResponse, error)
	ListClosures(ctx context.Context, shopID string) ([]dto.ClosureResponse, error)
	DeleteClosure(ctx context.Context, shopID, closureID string) error
}

type shopService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewShopService 创建 ShopService 实例
func NewShopService(repo *repository.Repository, logger *zap.Logger) ShopService {
	return &shopService{repo: repo, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *shopService) Create(ctx context.Context, req *dto.CreateShopRequest, callerID string) (*dto.ShopResponse, error) {
	shop := &model.Shop{
		Name:        req.Name,
		Description: req.Description,
		IsActive:    true,
	}
	shop.CreatedBy = auditID(callerID)
	shop.UpdatedBy = auditID(callerID)

	if err := s.repo.Shop.Create(ctx, shop); err != nil {
		if errors.Is(err, apperrors.ErrAlreadyExists) {
			return nil, ErrShopNameTaken
		}
		s.logger.Error("创建店铺失败", zap.Error(err))
		return nil, err
	}

	s.logger.Info("店铺已创建", zap.String("shop_id", shop.ShopID), zap.String("name", shop.Name))
	return toShopResponse(shop), nil
}

// ────────────────────── GetByID ──────────────────────

func (s *shopService) GetByID(ctx context.Context, id string) (*dto.ShopResponse, error) {
	shop, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return toShopResponse(shop), nil
}

// ────────────────────── List ──────────────────────

func (s *shopService) List(ctx context.Context) ([]dto.ShopResponse, error) {
	shops, err := s.repo.Shop.List(ctx)
	if err != nil {
		s.logger.Error("列出店铺失败", zap.Error(err))
		return nil, err
	}
	result := make([]dto.ShopResponse, 0, len(shops))
	for i := range shops {
		result = append(result, *toShopResponse(&shops[i]))
	}
	return result, nil
}

// ────────────────────── Update ──────────────────────

func (s *shopService) Update(ctx context.Context, id string, req *dto.UpdateShopRequest, callerID string) (*dto.ShopResponse, error) {
	shop, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		shop.Name = *req.Name
	}
	if req.Description != nil {
		shop.Description = *req.Description
	}
	if req.IsActive != nil {
		shop.IsActive = *req.IsActive
	}
	shop.Version = req.Version
	shop.UpdatedBy = auditID(callerID)

	if err := s.repo.Shop.Update(ctx, shop); err != nil {
		if errors.Is(err, apperrors.ErrAlreadyExists) {
			return nil, ErrShopNameTaken
		}
		if !errors.Is(err, apperrors.ErrOptimisticLock) {
			s.logger.Error("更新店铺失败", zap.String("id", id), zap.Error(err))
		}
		return nil, err
	}
	return toShopResponse(shop), nil
}

// ────────────────────── Delete ──────────────────────

func (s *shopService) Delete(ctx context.Context, id string, callerID string) error {
	if _, err := s.get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Shop.Delete(ctx, id, auditID(callerID)); err != nil {
		s.logger.Error("删除店铺失败", zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}

// ════════════════════════════════════════════════════════════
// 闭店规则
// ════════════════════════════════════════════════════════════

func (s *shopService) CreateClosure(ctx context.Context, shopID string, req *dto.CreateClosureRequest, callerID string) (*dto.ClosureResponse, error) {
	if _, err := s.get(ctx, shopID); err != nil {
		return nil, err
	}

	var startsOn *time.Time
	if req.StartsOn != "" {
		d, err := calendar.ParseDate(req.StartsOn)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidClosureRule, err)
		}
		startsOn = &d
	}

	var anchor time.Time
	if startsOn != nil {
		anchor = *startsOn
	}
	parsed, err := calendar.ParseClosure(req.RRule, anchor, req.ShiftSlot, req.Reason)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidClosureRule, err)
	}

	if parsed.Slot != "" {
		slots, err := s.repo.ShiftSlot.ListForShop(ctx, shopID)
		if err != nil {
			return nil, err
		}
		known := false
		for _, sl := range slots {
			if sl.Name == parsed.Slot {
				known = true
				break
			}
		}
		if !known {
			return nil, fmt.Errorf("%w: 未知班次 %q", ErrInvalidClosureRule, parsed.Slot)
		}
	}

	closure := &model.ShopClosure{
		ShopID:    shopID,
		ShiftSlot: parsed.Slot,
		RRule:     parsed.Rule,
		StartsOn:  startsOn,
		Reason:    req.Reason,
	}
	closure.CreatedBy = auditID(callerID)
	closure.UpdatedBy = auditID(callerID)

	if err := s.repo.Closure.Create(ctx, closure); err != nil {
		s.logger.Error("创建闭店规则失败", zap.Error(err))
		return nil, err
	}
	return toClosureResponse(closure), nil
}

func (s *shopService) ListClosures(ctx context.Context, shopID string) ([]dto.ClosureResponse, error) {
	if _, err := s.get(ctx, shopID); err != nil {
		return nil, err
	}
	rows, err := s.repo.Closure.ListByShop(ctx, shopID)
	if err != nil {
		s.logger.Error("列出闭店规则失败", zap.Error(err))
		return nil, err
	}
	result := make([]dto.ClosureResponse, 0, len(rows))
	for i := range rows {
		result = append(result, *toClosureResponse(&rows[i]))
	}
	return result, nil
}

func (s *shopService) DeleteClosure(ctx context.Context, shopID, closureID string) error {
	closure, err := s.repo.Closure.GetByID(ctx, closureID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrClosureNotFound
		}
		return err
	}
	if closure.ShopID != shopID {
		return ErrClosureNotFound
	}
	if err := s.repo.Closure.Delete(ctx, closureID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrClosureNotFound
		}
		s.logger.Error("删除闭店规则失败", zap.String("id", closureID), zap.Error(err))
		return err
	}
	return nil
}

// ── 辅助函数 ──

func (s *shopService) get(ctx context.Context, id string) (*model.Shop, error) {
	shop, err := s.repo.Shop.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrShopNotFound
		}
		s.logger.Error("查询店铺失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return shop, nil
}

func toShopResponse(shop *model.Shop) *dto.ShopResponse {
	return &dto.ShopResponse{
		ID:          shop.ShopID,
		Name:        shop.Name,
		Description: shop.Description,
		IsActive:    shop.IsActive,
		Version:     shop.Version,
		CreatedAt:   shop.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   shop.UpdatedAt.Format(time.RFC3339),
	}
}

func toClosureResponse(c *model.ShopClosure) *dto.ClosureResponse {
	resp := &dto.ClosureResponse{
		ID:        c.ClosureID,
		ShopID:    c.ShopID,
		ShiftSlot: c.ShiftSlot,
		RRule:     c.RRule,
		Reason:    c.Reason,
		CreatedAt: c.CreatedAt.Format(time.RFC3339),
	}
	if c.StartsOn != nil {
		resp.StartsOn = calendar.FormatDate(*c.StartsOn)
	}
	return resp
}
