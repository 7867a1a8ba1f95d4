package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Jaaz7/kgag-scheduler/config"
	"github.com/Jaaz7/kgag-scheduler/internal/calendar"
	"github.com/Jaaz7/kgag-scheduler/internal/dto"
	"github.com/Jaaz7/kgag-scheduler/internal/model"
	"github.com/Jaaz7/kgag-scheduler/internal/repository"
)

// ── 班次模块业务错误 ──

var (
	ErrShiftSlotNotFound  = errors.New("班次不存在")
	ErrShiftSlotNameTaken = errors.New("班次名称已存在")
	ErrInvalidTimeRange   = errors.New("班次时间无效，格式须为 HH:MM 且开始早于结束")
	ErrShiftSlotInUse     = errors.New("班次仍被员工偏好引用")
)

// ShiftSlotService 班次配置业务接口
// 班次名称创建后不可修改：员工偏好与历史排班按名称引用班次。
// 删除、停用班次或为店铺创建首个专属班次（会遮蔽全局班次）时，
// 若有员工偏好引用将失效的班次，返回 ErrShiftSlotInUse 并列出这些员工。
type ShiftSlotService interface {
	Create(ctx context.Context, req *dto.CreateShiftSlotRequest, callerID string) (*dto.ShiftSlotResponse, error)
	List(ctx context.Context, req *dto.ShiftSlotListRequest) ([]dto.ShiftSlotResponse, error)
	Update(ctx context.Context, id string, req *dto.UpdateShiftSlotRequest, callerID string) (*dto.ShiftSlotResponse, error)
	Delete(ctx context.Context, id string, callerID string) error
	// ActiveSlots 返回店铺生效的班次（按 position 排序）
	ActiveSlots(ctx context.Context, shopID string) ([]calendar.Slot, error)
	// SeedDefaults 库中没有任何班次时写入配置中的全局默认班次，返回写入数量
	SeedDefaults(ctx context.Context, defaults []config.ShiftSlotConfig) (int, error)
}

type shiftSlotService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewShiftSlotService 创建 ShiftSlotService 实例
func NewShiftSlotService(repo *repository.Repository, logger *zap.Logger) ShiftSlotService {
	return &shiftSlotService{repo: repo, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *shiftSlotService) Create(ctx context.Context, req *dto.CreateShiftSlotRequest, callerID string) (*dto.ShiftSlotResponse, error) {
	if err := validateTimeRange(req.StartTime, req.EndTime); err != nil {
		return nil, err
	}

	existing, err := s.listScope(ctx, req.ShopID)
	if err != nil {
		return nil, err
	}
	for _, e := range existing {
		if e.Name == req.Name {
			return nil, ErrShiftSlotNameTaken
		}
	}

	if req.ShopID != nil {
		if _, err := s.repo.Shop.GetByID(ctx, *req.ShopID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrShopNotFound
			}
			return nil, err
		}
		if err := s.checkFirstShopSlot(ctx, *req.ShopID, req.Name); err != nil {
			return nil, err
		}
	}

	slot := &model.ShiftSlot{
		ShopID:    req.ShopID,
		Name:      req.Name,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Position:  req.Position,
		IsActive:  true,
	}
	slot.CreatedBy = auditID(callerID)
	slot.UpdatedBy = auditID(callerID)

	if err := s.repo.ShiftSlot.Create(ctx, slot); err != nil {
		s.logger.Error("创建班次失败", zap.Error(err))
		return nil, err
	}

	return toShiftSlotResponse(slot), nil
}

// ────────────────────── List ──────────────────────

func (s *shiftSlotService) List(ctx context.Context, req *dto.ShiftSlotListRequest) ([]dto.ShiftSlotResponse, error) {
	var (
		slots []model.ShiftSlot
		err   error
	)
	if req.ShopID != "" {
		slots, err = s.repo.ShiftSlot.ListForShop(ctx, req.ShopID)
	} else {
		slots, err = s.repo.ShiftSlot.ListAll(ctx)
	}
	if err != nil {
		s.logger.Error("列出班次失败", zap.Error(err))
		return nil, err
	}

	result := make([]dto.ShiftSlotResponse, 0, len(slots))
	for i := range slots {
		result = append(result, *toShiftSlotResponse(&slots[i]))
	}
	return result, nil
}

// ────────────────────── Update ──────────────────────

func (s *shiftSlotService) Update(ctx context.Context, id string, req *dto.UpdateShiftSlotRequest, callerID string) (*dto.ShiftSlotResponse, error) {
	slot, err := s.repo.ShiftSlot.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrShiftSlotNotFound
		}
		s.logger.Error("查询班次失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	if req.StartTime != nil {
		slot.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		slot.EndTime = *req.EndTime
	}
	if err := validateTimeRange(slot.StartTime, slot.EndTime); err != nil {
		return nil, err
	}
	if req.Position != nil {
		slot.Position = *req.Position
	}
	if req.IsActive != nil {
		if slot.IsActive && !*req.IsActive {
			if err := s.checkRemoval(ctx, slot); err != nil {
				return nil, err
			}
		}
		slot.IsActive = *req.IsActive
	}
	slot.Version = req.Version
	slot.UpdatedBy = auditID(callerID)

	if err := s.repo.ShiftSlot.Update(ctx, slot); err != nil {
		s.logger.Error("更新班次失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	return toShiftSlotResponse(slot), nil
}

// ────────────────────── Delete ──────────────────────

func (s *shiftSlotService) Delete(ctx context.Context, id string, callerID string) error {
	slot, err := s.repo.ShiftSlot.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrShiftSlotNotFound
		}
		return err
	}
	if slot.IsActive {
		if err := s.checkRemoval(ctx, slot); err != nil {
			return err
		}
	}
	if err := s.repo.ShiftSlot.Delete(ctx, id, auditID(callerID)); err != nil {
		s.logger.Error("删除班次失败", zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}

// ────────────────────── ActiveSlots ──────────────────────

func (s *shiftSlotService) ActiveSlots(ctx context.Context, shopID string) ([]calendar.Slot, error) {
	rows, err := s.repo.ShiftSlot.ListForShop(ctx, shopID)
	if err != nil {
		return nil, err
	}
	return toCalendarSlots(rows), nil
}

func (s *shiftSlotService) listScope(ctx context.Context, shopID *string) ([]model.ShiftSlot, error) {
	all, err := s.repo.ShiftSlot.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	var scoped []model.ShiftSlot
	for _, sl := range all {
		sameScope := (shopID == nil && sl.ShopID == nil) ||
			(shopID != nil && sl.ShopID != nil && *sl.ShopID == *shopID)
		if sameScope {
			scoped = append(scoped, sl)
		}
	}
	return scoped, nil
}

// ────────────────────── SeedDefaults ──────────────────────

func (s *shiftSlotService) SeedDefaults(ctx context.Context, defaults []config.ShiftSlotConfig) (int, error) {
	existing, err := s.repo.ShiftSlot.ListAll(ctx)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return 0, nil
	}

	for i, d := range defaults {
		if err := validateTimeRange(d.StartTime, d.EndTime); err != nil {
			return 0, fmt.Errorf("默认班次 %q: %w", d.Name, err)
		}
		slot := &model.ShiftSlot{
			Name:      d.Name,
			StartTime: d.StartTime,
			EndTime:   d.EndTime,
			Position:  i + 1,
			IsActive:  true,
		}
		if err := s.repo.ShiftSlot.Create(ctx, slot); err != nil {
			s.logger.Error("写入默认班次失败", zap.String("name", d.Name), zap.Error(err))
			return i, err
		}
	}

	s.logger.Info("已写入默认班次", zap.Int("count", len(defaults)))
	return len(defaults), nil
}

// ── 偏好引用检查 ──

// checkRemoval 班次移除后，受影响店铺的员工偏好仍须落在可用班次内
func (s *shiftSlotService) checkRemoval(ctx context.Context, slot *model.ShiftSlot) error {
	var shopIDs []string
	if slot.ShopID != nil {
		shopIDs = []string{*slot.ShopID}
	} else {
		shops, err := s.repo.Shop.List(ctx)
		if err != nil {
			return err
		}
		for _, sh := range shops {
			shopIDs = append(shopIDs, sh.ShopID)
		}
	}

	for _, shopID := range shopIDs {
		current, err := s.repo.ShiftSlot.ListForShop(ctx, shopID)
		if err != nil {
			return err
		}
		remaining := make(map[string]bool, len(current))
		affected := false
		for _, c := range current {
			if c.ShiftSlotID == slot.ShiftSlotID {
				affected = true
				continue
			}
			remaining[c.Name] = true
		}
		if !affected {
			continue
		}
		// 移除店铺最后一个专属班次后回落到全局班次
		if len(remaining) == 0 && slot.ShopID != nil {
			if remaining, err = s.globalSlotNames(ctx); err != nil {
				return err
			}
		}
		if err := s.ensureUnreferenced(ctx, shopID, remaining); err != nil {
			return err
		}
	}
	return nil
}

// checkFirstShopSlot 店铺首个专属班次会遮蔽全部全局班次
func (s *shiftSlotService) checkFirstShopSlot(ctx context.Context, shopID, name string) error {
	current, err := s.repo.ShiftSlot.ListForShop(ctx, shopID)
	if err != nil {
		return err
	}
	for _, c := range current {
		if c.ShopID != nil {
			return nil
		}
	}
	return s.ensureUnreferenced(ctx, shopID, map[string]bool{name: true})
}

func (s *shiftSlotService) globalSlotNames(ctx context.Context) (map[string]bool, error) {
	all, err := s.repo.ShiftSlot.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[string]bool)
	for _, sl := range all {
		if sl.ShopID == nil && sl.IsActive {
			names[sl.Name] = true
		}
	}
	return names, nil
}

// ensureUnreferenced 列出偏好中含 available 之外班次的员工
func (s *shiftSlotService) ensureUnreferenced(ctx context.Context, shopID string, available map[string]bool) error {
	workers, err := s.repo.Worker.ListByShop(ctx, shopID, false)
	if err != nil {
		return err
	}
	var names []string
	for _, w := range workers {
		for _, pref := range w.ShiftPreferences {
			if !available[pref] {
				names = append(names, w.Name)
				break
			}
		}
	}
	if len(names) > 0 {
		return fmt.Errorf("%w: %s", ErrShiftSlotInUse, strings.Join(names, ", "))
	}
	return nil
}

// ── 辅助函数 ──

func validateTimeRange(start, end string) error {
	st, err := time.Parse("15:04", start)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidTimeRange, start)
	}
	et, err := time.Parse("15:04", end)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidTimeRange, end)
	}
	if !st.Before(et) {
		return ErrInvalidTimeRange
	}
	return nil
}

func toCalendarSlots(rows []model.ShiftSlot) []calendar.Slot {
	slots := make([]calendar.Slot, 0, len(rows))
	for _, r := range rows {
		slots = append(slots, calendar.Slot{Name: r.Name, StartTime: r.StartTime, EndTime: r.EndTime})
	}
	return slots
}

func toShiftSlotResponse(slot *model.ShiftSlot) *dto.ShiftSlotResponse {
	return &dto.ShiftSlotResponse{
		ID:        slot.ShiftSlotID,
		ShopID:    slot.ShopID,
		Name:      slot.Name,
		StartTime: slot.StartTime,
		EndTime:   slot.EndTime,
		Position:  slot.Position,
		IsActive:  slot.IsActive,
		Version:   slot.Version,
	}
}
