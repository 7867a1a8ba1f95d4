package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Jaaz7/kgag-scheduler/internal/dto"
	"github.com/Jaaz7/kgag-scheduler/internal/model"
	"github.com/Jaaz7/kgag-scheduler/internal/repository"
	"github.com/Jaaz7/kgag-scheduler/internal/roster"
	apperrors "github.com/Jaaz7/kgag-scheduler/pkg/errors"
)

// ── 员工模块业务错误 ──

var (
	ErrWorkerNotFound  = errors.New("员工不存在")
	ErrWorkerNotInShop = errors.New("员工不属于该店铺")
)

// WorkerService 员工档案业务接口
type WorkerService interface {
	Create(ctx context.Context, req *dto.CreateWorkerRequest, callerID string) (*dto.WorkerResponse, error)
	GetByID(ctx context.Context, id string) (*dto.WorkerResponse, error)
	List(ctx context.Context, req *dto.WorkerListRequest) ([]dto.WorkerResponse, error)
	Update(ctx context.Context, id string, req *dto.UpdateWorkerRequest, callerID string) (*dto.WorkerResponse, error)
	// UpdatePreferences 员工本人维护周配额与偏好
	UpdatePreferences(ctx context.Context, id string, req *dto.UpdatePreferencesRequest, callerID string) (*dto.WorkerResponse, error)
	Delete(ctx context.Context, id string, callerID string) error
	// ImportRoster 批量导入名册：按 ID 或姓名匹配已有员工，整体校验通过后单事务写入
	ImportRoster(ctx context.Context, shopID string, records []roster.WorkerRecord, callerID string) (*dto.ImportRosterResponse, error)
}

type workerService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewWorkerService 创建 WorkerService 实例
func NewWorkerService(repo *repository.Repository, logger *zap.Logger) WorkerService {
	return &workerService{repo: repo, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *workerService) Create(ctx context.Context, req *dto.CreateWorkerRequest, callerID string) (*dto.WorkerResponse, error) {
	if _, err := s.repo.Shop.GetByID(ctx, req.ShopID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrShopNotFound
		}
		s.logger.Error("查询店铺失败", zap.Error(err))
		return nil, err
	}

	worker := &model.Worker{
		WorkerID:    uuid.NewString(),
		ShopID:      req.ShopID,
		Name:        req.Name,
		WeeklyQuota: req.WeeklyQuota,
		IsActive:    true,
	}
	if err := s.applyPreferences(ctx, worker, req.ShiftPreferences, req.DayPreferences); err != nil {
		return nil, err
	}

	order, err := s.repo.Worker.NextSortOrder(ctx, req.ShopID)
	if err != nil {
		s.logger.Error("查询名册顺序失败", zap.Error(err))
		return nil, err
	}
	worker.SortOrder = order
	worker.CreatedBy = auditID(callerID)
	worker.UpdatedBy = auditID(callerID)

	if err := s.repo.Worker.Create(ctx, worker); err != nil {
		s.logger.Error("创建员工失败", zap.Error(err))
		return nil, err
	}

	s.logger.Info("员工已创建", zap.String("worker_id", worker.WorkerID), zap.String("shop_id", worker.ShopID))
	return toWorkerResponse(worker), nil
}

// ────────────────────── GetByID ──────────────────────

func (s *workerService) GetByID(ctx context.Context, id string) (*dto.WorkerResponse, error) {
	worker, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return toWorkerResponse(worker), nil
}

// ────────────────────── List ──────────────────────

func (s *workerService) List(ctx context.Context, req *dto.WorkerListRequest) ([]dto.WorkerResponse, error) {
	workers, err := s.repo.Worker.ListByShop(ctx, req.ShopID, !req.IncludeInactive)
	if err != nil {
		s.logger.Error("列出员工失败", zap.Error(err))
		return nil, err
	}
	result := make([]dto.WorkerResponse, 0, len(workers))
	for i := range workers {
		result = append(result, *toWorkerResponse(&workers[i]))
	}
	return result, nil
}

// ────────────────────── Update ──────────────────────

func (s *workerService) Update(ctx context.Context, id string, req *dto.UpdateWorkerRequest, callerID string) (*dto.WorkerResponse, error) {
	worker, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		worker.Name = *req.Name
	}
	if req.WeeklyQuota != nil {
		worker.WeeklyQuota = *req.WeeklyQuota
	}
	if req.IsActive != nil {
		worker.IsActive = *req.IsActive
	}
	if req.SortOrder != nil {
		worker.SortOrder = *req.SortOrder
	}
	if err := s.applyPreferences(ctx, worker, worker.ShiftPreferences, worker.DayPreferences); err != nil {
		return nil, err
	}
	worker.Version = req.Version
	worker.UpdatedBy = auditID(callerID)

	if err := s.repo.Worker.Update(ctx, worker); err != nil {
		if !errors.Is(err, apperrors.ErrOptimisticLock) {
			s.logger.Error("更新员工失败", zap.String("id", id), zap.Error(err))
		}
		return nil, err
	}
	return toWorkerResponse(worker), nil
}

// ────────────────────── UpdatePreferences ──────────────────────

func (s *workerService) UpdatePreferences(ctx context.Context, id string, req *dto.UpdatePreferencesRequest, callerID string) (*dto.WorkerResponse, error) {
	worker, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.WeeklyQuota != nil {
		worker.WeeklyQuota = *req.WeeklyQuota
	}
	shiftPrefs := []string(worker.ShiftPreferences)
	if req.ShiftPreferences != nil {
		shiftPrefs = req.ShiftPreferences
	}
	dayPrefs := []string(worker.DayPreferences)
	if req.DayPreferences != nil {
		dayPrefs = req.DayPreferences
	}
	if err := s.applyPreferences(ctx, worker, shiftPrefs, dayPrefs); err != nil {
		return nil, err
	}
	worker.Version = req.Version
	worker.UpdatedBy = auditID(callerID)

	if err := s.repo.Worker.Update(ctx, worker); err != nil {
		if !errors.Is(err, apperrors.ErrOptimisticLock) {
			s.logger.Error("更新员工偏好失败", zap.String("id", id), zap.Error(err))
		}
		return nil, err
	}
	return toWorkerResponse(worker), nil
}

// ────────────────────── Delete ──────────────────────

func (s *workerService) Delete(ctx context.Context, id string, callerID string) error {
	if _, err := s.get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Worker.Delete(ctx, id, auditID(callerID)); err != nil {
		s.logger.Error("删除员工失败", zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}

// ════════════════════════════════════════════════════════════
// ImportRoster
// ════════════════════════════════════════════════════════════

func (s *workerService) ImportRoster(ctx context.Context, shopID string, records []roster.WorkerRecord, callerID string) (*dto.ImportRosterResponse, error) {
	if _, err := s.repo.Shop.GetByID(ctx, shopID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrShopNotFound
		}
		return nil, err
	}

	slots, err := s.repo.ShiftSlot.ListForShop(ctx, shopID)
	if err != nil {
		return nil, err
	}
	// 整份名册先校验，任何一条不合法都不写入
	r, err := roster.LoadRoster(records, slotNames(toCalendarSlots(slots)))
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.Worker.ListByShop(ctx, shopID, false)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*model.Worker, len(existing))
	byName := make(map[string]*model.Worker, len(existing))
	for i := range existing {
		byID[existing[i].WorkerID] = &existing[i]
		byName[existing[i].Name] = &existing[i]
	}

	order, err := s.repo.Worker.NextSortOrder(ctx, shopID)
	if err != nil {
		return nil, err
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, apperrors.NewPersistenceError("begin", err)
	}
	txRepo := s.repo.WithTx(tx)
	rollback := func() {
		if tx != nil {
			tx.Rollback()
		}
	}

	resp := &dto.ImportRosterResponse{}
	for _, w := range r.Workers() {
		shiftPrefs, dayPrefs := canonicalPreferences(w)

		current, ok := byID[w.ID]
		if !ok {
			current, ok = byName[w.Name]
		}
		if ok {
			current.Name = w.Name
			current.WeeklyQuota = w.WeeklyQuota
			current.ShiftPreferences = shiftPrefs
			current.DayPreferences = dayPrefs
			current.IsActive = true
			current.UpdatedBy = auditID(callerID)
			if err := txRepo.Worker.Update(ctx, current); err != nil {
				rollback()
				s.logger.Error("导入名册更新员工失败", zap.String("worker", w.ID), zap.Error(err))
				return nil, err
			}
			resp.Updated++
			continue
		}

		worker := &model.Worker{
			ShopID:           shopID,
			Name:             w.Name,
			WeeklyQuota:      w.WeeklyQuota,
			ShiftPreferences: shiftPrefs,
			DayPreferences:   dayPrefs,
			IsActive:         true,
			SortOrder:        order,
		}
		if _, err := uuid.Parse(w.ID); err == nil {
			worker.WorkerID = w.ID
		}
		worker.CreatedBy = auditID(callerID)
		worker.UpdatedBy = auditID(callerID)
		if err := txRepo.Worker.Create(ctx, worker); err != nil {
			rollback()
			s.logger.Error("导入名册创建员工失败", zap.String("worker", w.ID), zap.Error(err))
			return nil, apperrors.NewPersistenceError("import roster", err)
		}
		order++
		resp.Created++
	}

	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			return nil, apperrors.NewPersistenceError("commit", err)
		}
	}

	s.logger.Info("名册导入完成",
		zap.String("shop_id", shopID),
		zap.Int("created", resp.Created),
		zap.Int("updated", resp.Updated),
	)
	return resp, nil
}

// ── 辅助函数 ──

func (s *workerService) get(ctx context.Context, id string) (*model.Worker, error) {
	worker, err := s.repo.Worker.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWorkerNotFound
		}
		s.logger.Error("查询员工失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return worker, nil
}

// applyPreferences 以店铺当前班次校验档案，通过后写回规范化的偏好
func (s *workerService) applyPreferences(ctx context.Context, worker *model.Worker, shiftPrefs, dayPrefs []string) error {
	slots, err := s.repo.ShiftSlot.ListForShop(ctx, worker.ShopID)
	if err != nil {
		s.logger.Error("查询班次失败", zap.Error(err))
		return err
	}

	r, err := roster.LoadRoster([]roster.WorkerRecord{{
		ID:               worker.WorkerID,
		Name:             worker.Name,
		WeeklyQuota:      worker.WeeklyQuota,
		ShiftPreferences: shiftPrefs,
		DayPreferences:   dayPrefs,
	}}, slotNames(toCalendarSlots(slots)))
	if err != nil {
		return err
	}

	w, _ := r.Get(worker.WorkerID)
	worker.ShiftPreferences, worker.DayPreferences = canonicalPreferences(w)
	return nil
}

// canonicalPreferences 去重后的偏好，星期统一为三字母缩写
func canonicalPreferences(w *roster.Worker) (model.StringArray, model.StringArray) {
	shifts := make(model.StringArray, 0, len(w.ShiftPrefs))
	shifts = append(shifts, w.ShiftPrefs...)
	days := make(model.StringArray, 0, len(w.DayPrefs))
	for _, d := range w.DayPrefs {
		days = append(days, roster.WeekdayShort(d))
	}
	return shifts, days
}

func toWorkerResponse(w *model.Worker) *dto.WorkerResponse {
	shifts := []string(w.ShiftPreferences)
	if shifts == nil {
		shifts = []string{}
	}
	days := []string(w.DayPreferences)
	if days == nil {
		days = []string{}
	}
	return &dto.WorkerResponse{
		ID:               w.WorkerID,
		ShopID:           w.ShopID,
		Name:             w.Name,
		WeeklyQuota:      w.WeeklyQuota,
		ShiftPreferences: shifts,
		DayPreferences:   days,
		IsActive:         w.IsActive,
		SortOrder:        w.SortOrder,
		Version:          w.Version,
		CreatedAt:        w.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        w.UpdatedAt.Format(time.RFC3339),
	}
}
