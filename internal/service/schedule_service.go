package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Jaaz7/kgag-scheduler/config"
	"github.com/Jaaz7/kgag-scheduler/internal/calendar"
	"github.com/Jaaz7/kgag-scheduler/internal/dto"
	"github.com/Jaaz7/kgag-scheduler/internal/model"
	"github.com/Jaaz7/kgag-scheduler/internal/repository"
	"github.com/Jaaz7/kgag-scheduler/internal/roster"
	"github.com/Jaaz7/kgag-scheduler/internal/scheduler"
	apperrors "github.com/Jaaz7/kgag-scheduler/pkg/errors"
	"github.com/Jaaz7/kgag-scheduler/pkg/mq"
)

// ── 排班模块业务错误 ──

var (
	ErrScheduleNotFound      = errors.New("排班表不存在")
	ErrScheduleAlreadyExists = fmt.Errorf("该店铺该月份已存在排班表: %w", apperrors.ErrAlreadyExists)
	ErrNoShiftSlots          = errors.New("店铺未配置可用班次")
	ErrInvalidClosureRule    = errors.New("闭店规则无效")
)

// publishTimeout 事件发布不阻塞排班结果返回
const publishTimeout = 3 * time.Second

// maxUnfilledWarnings 逐格列出的未排班次上限，其余合并为一条
const maxUnfilledWarnings = 10

// ScheduleService 排班业务接口
type ScheduleService interface {
	// GenerateSchedule 生成并提交某店铺某月的排班，同一月份只能生成一次
	GenerateSchedule(ctx context.Context, req *dto.GenerateScheduleRequest, callerID string) (*dto.GenerateScheduleResponse, error)
	// GetSchedule 获取排班表（含明细）
	GetSchedule(ctx context.Context, shopID string, month, year int) (*dto.ScheduleResponse, error)
	// GetMyAssignments 获取某员工在该月排到的班次
	GetMyAssignments(ctx context.Context, shopID string, month, year int, workerID string) ([]dto.AssignmentResponse, error)
	// AvailableMonths 当月与下月中尚未生成排班的月份
	AvailableMonths(ctx context.Context, shopID string, today time.Time) ([]dto.AvailableMonthResponse, error)
	// CalendarWeeks 按周（周一起）展开的月历视图
	CalendarWeeks(ctx context.Context, shopID string, month, year int) ([]dto.CalendarWeekResponse, error)
}

type scheduleService struct {
	cfg      *config.SchedulerConfig
	cacheTTL time.Duration
	repo     *repository.Repository
	cache    ScheduleCache
	events   EventPublisher
	logger   *zap.Logger
}

// NewScheduleService 创建 ScheduleService 实例
func NewScheduleService(
	cfg *config.SchedulerConfig,
	redisCfg *config.RedisConfig,
	repo *repository.Repository,
	cache ScheduleCache,
	events EventPublisher,
	logger *zap.Logger,
) ScheduleService {
	var ttl time.Duration
	if redisCfg != nil {
		ttl = redisCfg.ScheduleTTL
	}
	return &scheduleService{
		cfg:      cfg,
		cacheTTL: ttl,
		repo:     repo,
		cache:    cache,
		events:   events,
		logger:   logger,
	}
}

// ════════════════════════════════════════════════════════════
// GenerateSchedule：展开格子 → 贪心分配 → 单事务提交
// ════════════════════════════════════════════════════════════

func (s *scheduleService) GenerateSchedule(ctx context.Context, req *dto.GenerateScheduleRequest, callerID string) (*dto.GenerateScheduleResponse, error) {
	if s.cfg.GenerateTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.GenerateTimeout)
		defer cancel()
	}

	period, err := calendar.NewPeriod(req.Month, req.Year)
	if err != nil {
		return nil, err
	}

	// 1. 校验店铺
	shop, err := s.repo.Shop.GetByID(ctx, req.ShopID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrShopNotFound
		}
		s.logger.Error("查询店铺失败", zap.String("shop_id", req.ShopID), zap.Error(err))
		return nil, err
	}

	// 2. 已生成则直接拒绝（最终以唯一约束为准）
	exists, err := s.repo.Schedule.ExistsForPeriod(ctx, shop.ShopID, req.Month, req.Year)
	if err != nil {
		s.logger.Error("查询排班表失败", zap.Error(err))
		return nil, err
	}
	if exists {
		return nil, ErrScheduleAlreadyExists
	}

	// 3. 班次与名册
	slotRows, err := s.repo.ShiftSlot.ListForShop(ctx, shop.ShopID)
	if err != nil {
		s.logger.Error("查询班次失败", zap.Error(err))
		return nil, err
	}
	if len(slotRows) == 0 {
		return nil, ErrNoShiftSlots
	}
	slots := toCalendarSlots(slotRows)

	workers, err := s.repo.Worker.ListByShop(ctx, shop.ShopID, true)
	if err != nil {
		s.logger.Error("查询员工失败", zap.Error(err))
		return nil, err
	}
	r, err := roster.LoadRoster(toWorkerRecords(workers), slotNames(slots))
	if err != nil {
		return nil, err
	}

	// 4. 格子（含闭店）
	closures, err := s.loadClosures(ctx, shop.ShopID)
	if err != nil {
		return nil, err
	}
	cells, err := calendar.CellsOf(period, slots, closures...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidClosureRule, err)
	}

	// 5. 跨月 ISO 周的已排班次
	prior, err := s.loadPrior(ctx, shop.ShopID, period)
	if err != nil {
		s.logger.Error("查询相邻月份排班失败", zap.Error(err))
		return nil, err
	}

	overflow := s.cfg.AllowQuotaOverflow
	if req.AllowQuotaOverflow != nil {
		overflow = *req.AllowQuotaOverflow
	}

	result := scheduler.New(scheduler.Options{
		AllowQuotaOverflow: overflow,
		Prior:              prior,
	}).Run(r, cells)

	// 6. 提交
	schedule, err := s.commit(ctx, shop.ShopID, period, result, callerID)
	if err != nil {
		return nil, err
	}
	result.MarkCommitted()
	schedule.Shop = shop

	s.logger.Info("排班生成完成",
		zap.String("shop_id", shop.ShopID),
		zap.String("period", period.String()),
		zap.Int("filled", result.Filled),
		zap.Int("unfilled", result.Unfilled),
		zap.Int("closed", result.Closed),
		zap.Int("violations", len(result.Violations)),
	)

	s.invalidate(ctx, shop.ShopID, period)
	s.publish(ctx, schedule)

	return buildGenerateResponse(schedule, r, result), nil
}

// commit 在单个事务内写入排班表头与全部明细
func (s *scheduleService) commit(ctx context.Context, shopID string, period calendar.Period, result *scheduler.Result, callerID string) (*model.Schedule, error) {
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		s.logger.Error("开启事务失败", zap.Error(err))
		return nil, apperrors.NewPersistenceError("begin", err)
	}
	txRepo := s.repo.WithTx(tx)

	schedule := &model.Schedule{
		ShopID:        shopID,
		Month:         int(period.Month),
		Year:          period.Year,
		Status:        model.ScheduleStatusGenerated,
		TotalCells:    result.TotalCells(),
		FilledCount:   result.Filled,
		UnfilledCount: result.Unfilled,
		ClosedCount:   result.Closed,
	}
	schedule.CreatedBy = auditID(callerID)
	schedule.UpdatedBy = auditID(callerID)

	if err := txRepo.Schedule.Create(ctx, schedule); err != nil {
		if tx != nil {
			tx.Rollback()
		}
		if errors.Is(err, apperrors.ErrAlreadyExists) {
			return nil, ErrScheduleAlreadyExists
		}
		s.logger.Error("创建排班表失败", zap.Error(err))
		return nil, apperrors.NewPersistenceError("create schedule", err)
	}

	rows := toAssignmentRows(result.Persistable())
	if err := txRepo.Assignment.CommitAssignments(ctx, schedule.ScheduleID, rows); err != nil {
		if tx != nil {
			tx.Rollback()
		}
		s.logger.Error("写入排班明细失败", zap.String("schedule_id", schedule.ScheduleID), zap.Error(err))
		return nil, apperrors.NewPersistenceError("commit assignments", err)
	}

	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			s.logger.Error("提交事务失败", zap.Error(err))
			return nil, apperrors.NewPersistenceError("commit", err)
		}
	}

	schedule.Assignments = rows
	return schedule, nil
}

func (s *scheduleService) loadClosures(ctx context.Context, shopID string) ([]calendar.Closure, error) {
	rows, err := s.repo.Closure.ListByShop(ctx, shopID)
	if err != nil {
		s.logger.Error("查询闭店规则失败", zap.Error(err))
		return nil, err
	}
	closures := make([]calendar.Closure, 0, len(rows))
	for _, row := range rows {
		var startsOn time.Time
		if row.StartsOn != nil {
			startsOn = *row.StartsOn
		}
		c, err := calendar.ParseClosure(row.RRule, startsOn, row.ShiftSlot, row.Reason)
		if err != nil {
			s.logger.Warn("闭店规则无效", zap.String("closure_id", row.ClosureID), zap.Error(err))
			return nil, fmt.Errorf("%w: %s", ErrInvalidClosureRule, row.ClosureID)
		}
		closures = append(closures, c)
	}
	return closures, nil
}

// loadPrior 取首尾 ISO 周中落在本月之外、已提交的排班
func (s *scheduleService) loadPrior(ctx context.Context, shopID string, p calendar.Period) ([]scheduler.PriorAssignment, error) {
	from := calendar.MondayOf(p.First())
	to := calendar.MondayOf(p.Last()).AddDate(0, 0, 6)

	rows, err := s.repo.Assignment.ListFilledByShopBetween(ctx, shopID, from, to)
	if err != nil {
		return nil, err
	}
	var prior []scheduler.PriorAssignment
	for _, row := range rows {
		d := calendar.DateOf(row.WorkDate)
		if p.Contains(d) || row.WorkerID == nil {
			continue
		}
		prior = append(prior, scheduler.PriorAssignment{WorkerID: *row.WorkerID, Date: d})
	}
	return prior, nil
}

func (s *scheduleService) publish(ctx context.Context, schedule *model.Schedule) {
	if s.events == nil {
		return
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	ev := mq.ScheduleGenerated{
		Type:       mq.EventScheduleGenerated,
		ScheduleID: schedule.ScheduleID,
		ShopID:     schedule.ShopID,
		Month:      schedule.Month,
		Year:       schedule.Year,
		Filled:     schedule.FilledCount,
		Unfilled:   schedule.UnfilledCount,
		OccurredAt: time.Now().UTC(),
	}
	if err := s.events.PublishScheduleGenerated(pctx, ev); err != nil {
		s.logger.Warn("发布排班事件失败", zap.String("schedule_id", schedule.ScheduleID), zap.Error(err))
	}
}

// ════════════════════════════════════════════════════════════
// GetSchedule：读缓存，未命中时查库并回填
// ════════════════════════════════════════════════════════════

func (s *scheduleService) GetSchedule(ctx context.Context, shopID string, month, year int) (*dto.ScheduleResponse, error) {
	period, err := calendar.NewPeriod(month, year)
	if err != nil {
		return nil, err
	}

	key := scheduleCacheKey(shopID, period)
	if s.cache != nil {
		var cached dto.ScheduleResponse
		if err := s.cache.GetJSON(ctx, key, &cached); err == nil {
			return &cached, nil
		}
	}

	schedule, rows, err := s.loadSchedule(ctx, shopID, period)
	if err != nil {
		return nil, err
	}
	resp := toScheduleResponse(schedule, rows)

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, key, resp, s.cacheTTL); err != nil {
			s.logger.Warn("写入排班缓存失败", zap.String("key", key), zap.Error(err))
		}
	}
	return resp, nil
}

// ════════════════════════════════════════════════════════════
// GetMyAssignments
// ════════════════════════════════════════════════════════════

func (s *scheduleService) GetMyAssignments(ctx context.Context, shopID string, month, year int, workerID string) ([]dto.AssignmentResponse, error) {
	period, err := calendar.NewPeriod(month, year)
	if err != nil {
		return nil, err
	}

	schedule, err := s.repo.Schedule.GetByPeriod(ctx, shopID, int(period.Month), period.Year)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrScheduleNotFound
		}
		s.logger.Error("查询排班表失败", zap.Error(err))
		return nil, err
	}

	worker, err := s.repo.Worker.GetByID(ctx, workerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWorkerNotFound
		}
		return nil, err
	}
	if worker.ShopID != shopID {
		return nil, ErrWorkerNotInShop
	}

	rows, err := s.repo.Assignment.ListByScheduleAndWorker(ctx, schedule.ScheduleID, workerID)
	if err != nil {
		s.logger.Error("查询我的排班失败", zap.Error(err))
		return nil, err
	}

	result := make([]dto.AssignmentResponse, 0, len(rows))
	for i := range rows {
		rows[i].Worker = worker
		result = append(result, toAssignmentResponse(&rows[i]))
	}
	return result, nil
}

// ════════════════════════════════════════════════════════════
// AvailableMonths
// ════════════════════════════════════════════════════════════

func (s *scheduleService) AvailableMonths(ctx context.Context, shopID string, today time.Time) ([]dto.AvailableMonthResponse, error) {
	if _, err := s.repo.Shop.GetByID(ctx, shopID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrShopNotFound
		}
		return nil, err
	}

	current := calendar.PeriodOf(today)
	result := make([]dto.AvailableMonthResponse, 0, 2)
	for _, p := range []calendar.Period{current, current.Next()} {
		exists, err := s.repo.Schedule.ExistsForPeriod(ctx, shopID, int(p.Month), p.Year)
		if err != nil {
			s.logger.Error("查询排班表失败", zap.Error(err))
			return nil, err
		}
		if exists {
			continue
		}
		result = append(result, dto.AvailableMonthResponse{
			Month: int(p.Month),
			Year:  p.Year,
			Label: p.String(),
		})
	}
	return result, nil
}

// ════════════════════════════════════════════════════════════
// CalendarWeeks：尚未生成排班时返回空日历
// ════════════════════════════════════════════════════════════

func (s *scheduleService) CalendarWeeks(ctx context.Context, shopID string, month, year int) ([]dto.CalendarWeekResponse, error) {
	period, err := calendar.NewPeriod(month, year)
	if err != nil {
		return nil, err
	}

	byDate := make(map[string][]dto.AssignmentResponse)
	_, rows, err := s.loadSchedule(ctx, shopID, period)
	switch {
	case errors.Is(err, ErrScheduleNotFound):
	case err != nil:
		return nil, err
	default:
		for i := range rows {
			a := toAssignmentResponse(&rows[i])
			byDate[a.Date] = append(byDate[a.Date], a)
		}
	}

	weeks := calendar.WeeksOf(period)
	result := make([]dto.CalendarWeekResponse, 0, len(weeks))
	for _, w := range weeks {
		days := make([]dto.CalendarDayResponse, 0, len(w.Days))
		for i, d := range w.Days {
			date := calendar.FormatDate(d)
			day := dto.CalendarDayResponse{
				Date:    date,
				Weekday: roster.WeekdayShort(d.Weekday()),
				InMonth: w.InPeriod(period, i),
			}
			if day.InMonth {
				day.Assignments = byDate[date]
			}
			days = append(days, day)
		}
		result = append(result, dto.CalendarWeekResponse{Week: w.Key.String(), Days: days})
	}
	return result, nil
}

func (s *scheduleService) loadSchedule(ctx context.Context, shopID string, p calendar.Period) (*model.Schedule, []model.ScheduleAssignment, error) {
	schedule, err := s.repo.Schedule.GetByPeriod(ctx, shopID, int(p.Month), p.Year)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrScheduleNotFound
		}
		s.logger.Error("查询排班表失败", zap.Error(err))
		return nil, nil, err
	}
	rows, err := s.repo.Assignment.ListBySchedule(ctx, schedule.ScheduleID)
	if err != nil {
		s.logger.Error("查询排班明细失败", zap.Error(err))
		return nil, nil, err
	}
	return schedule, rows, nil
}

// invalidate 清理该月份的缓存
func (s *scheduleService) invalidate(ctx context.Context, shopID string, p calendar.Period) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, scheduleCacheKey(shopID, p)); err != nil {
		s.logger.Warn("清理排班缓存失败", zap.Error(err))
	}
}

// ── 辅助函数 ──

func scheduleCacheKey(shopID string, p calendar.Period) string {
	return fmt.Sprintf("schedule:%s:%s", shopID, p.String())
}

func slotNames(slots []calendar.Slot) []string {
	names := make([]string, 0, len(slots))
	for _, sl := range slots {
		names = append(names, sl.Name)
	}
	return names
}

func toWorkerRecords(workers []model.Worker) []roster.WorkerRecord {
	records := make([]roster.WorkerRecord, 0, len(workers))
	for _, w := range workers {
		records = append(records, roster.WorkerRecord{
			ID:               w.WorkerID,
			Name:             w.Name,
			WeeklyQuota:      w.WeeklyQuota,
			ShiftPreferences: []string(w.ShiftPreferences),
			DayPreferences:   []string(w.DayPreferences),
		})
	}
	return records
}

// toAssignmentRows 不设置 Worker 关联，避免 GORM 级联写入 workers
func toAssignmentRows(assignments []scheduler.Assignment) []model.ScheduleAssignment {
	rows := make([]model.ScheduleAssignment, 0, len(assignments))
	for _, a := range assignments {
		row := model.ScheduleAssignment{
			WorkDate:  a.Cell.Date,
			ShiftSlot: a.Cell.Slot.Name,
			StartTime: a.Cell.Slot.StartTime,
			EndTime:   a.Cell.Slot.EndTime,
			Status:    model.AssignmentUnfilled,
			OverQuota: a.OverQuota,
			Seq:       a.Seq,
		}
		if a.HasWorker() {
			id := a.WorkerID
			row.WorkerID = &id
			row.Status = model.AssignmentFilled
		}
		rows = append(rows, row)
	}
	return rows
}

func toScheduleResponse(schedule *model.Schedule, rows []model.ScheduleAssignment) *dto.ScheduleResponse {
	resp := &dto.ScheduleResponse{
		ID:            schedule.ScheduleID,
		ShopID:        schedule.ShopID,
		Month:         schedule.Month,
		Year:          schedule.Year,
		Status:        schedule.Status,
		TotalCells:    schedule.TotalCells,
		FilledCount:   schedule.FilledCount,
		UnfilledCount: schedule.UnfilledCount,
		ClosedCount:   schedule.ClosedCount,
		CreatedAt:     schedule.CreatedAt.Format(time.RFC3339),
		CreatedBy:     schedule.CreatedBy,
	}
	if schedule.Shop != nil {
		resp.ShopName = schedule.Shop.Name
	}
	resp.Assignments = make([]dto.AssignmentResponse, 0, len(rows))
	for i := range rows {
		resp.Assignments = append(resp.Assignments, toAssignmentResponse(&rows[i]))
	}
	return resp
}

func toAssignmentResponse(row *model.ScheduleAssignment) dto.AssignmentResponse {
	d := calendar.DateOf(row.WorkDate)
	resp := dto.AssignmentResponse{
		Date:      calendar.FormatDate(d),
		Weekday:   roster.WeekdayShort(d.Weekday()),
		ShiftSlot: row.ShiftSlot,
		StartTime: row.StartTime,
		EndTime:   row.EndTime,
		Status:    row.Status,
		OverQuota: row.OverQuota,
	}
	if row.WorkerID != nil {
		brief := &dto.WorkerBrief{ID: *row.WorkerID}
		if row.Worker != nil {
			brief.Name = row.Worker.Name
		}
		resp.Worker = brief
	}
	return resp
}

func buildGenerateResponse(schedule *model.Schedule, r *roster.Roster, result *scheduler.Result) *dto.GenerateScheduleResponse {
	names := make(map[string]*model.Worker, r.Len())
	for _, w := range r.Workers() {
		names[w.ID] = &model.Worker{WorkerID: w.ID, Name: w.Name}
	}
	for i := range schedule.Assignments {
		if id := schedule.Assignments[i].WorkerID; id != nil {
			schedule.Assignments[i].Worker = names[*id]
		}
	}

	resp := &dto.GenerateScheduleResponse{
		Schedule:      toScheduleResponse(schedule, schedule.Assignments),
		TotalCells:    result.TotalCells(),
		FilledCount:   result.Filled,
		UnfilledCount: result.Unfilled,
		ClosedCount:   result.Closed,
		PerWorkerLoad: make([]dto.WorkerLoadResponse, 0, len(result.Loads)),
	}

	for _, l := range result.Loads {
		wl := dto.WorkerLoadResponse{
			WorkerID: l.WorkerID,
			Name:     l.Name,
			Quota:    l.Quota,
			Total:    l.Total,
			Weeks:    make([]dto.WeekLoadResponse, 0, len(l.Weeks)),
		}
		for _, w := range l.Weeks {
			wl.Weeks = append(wl.Weeks, dto.WeekLoadResponse{Week: w.Week.String(), Count: w.Count, Prior: w.Prior})
		}
		resp.PerWorkerLoad = append(resp.PerWorkerLoad, wl)
	}

	for _, v := range result.Violations {
		resp.QuotaViolations = append(resp.QuotaViolations, dto.QuotaViolationResponse{
			WorkerID: v.WorkerID,
			Week:     v.Week.String(),
			Date:     calendar.FormatDate(v.Date),
			Slot:     v.Slot,
			Count:    v.Count,
			Quota:    v.Quota,
		})
	}

	if r.Len() == 0 && result.Unfilled > 0 {
		resp.Warnings = append(resp.Warnings, "店铺没有在职员工，全部班次未排")
		return resp
	}
	listed := 0
	for _, a := range result.Assignments {
		if a.Cell.Required == 0 || a.HasWorker() {
			continue
		}
		if listed == maxUnfilledWarnings {
			resp.Warnings = append(resp.Warnings, fmt.Sprintf("另有 %d 个班次无人可排", result.Unfilled-listed))
			break
		}
		resp.Warnings = append(resp.Warnings, fmt.Sprintf("%s %s 无人可排", calendar.FormatDate(a.Cell.Date), a.Cell.Slot.Name))
		listed++
	}
	return resp
}
