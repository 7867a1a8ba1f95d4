package repository_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Jaaz7/kgag-scheduler/internal/model"
	"github.com/Jaaz7/kgag-scheduler/internal/repository"
	apperrors "github.com/Jaaz7/kgag-scheduler/pkg/errors"
)

// ═══════════════════════════════════════════════════════════
// Test Setup（SQLite 内存库，每个测试独立）
// ═══════════════════════════════════════════════════════════

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("打开 SQLite 失败: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(model.All()...); err != nil {
		t.Fatalf("AutoMigrate 失败: %v", err)
	}
	return db
}

func seedShop(t *testing.T, repo *repository.Repository, name string) *model.Shop {
	t.Helper()
	shop := &model.Shop{Name: name, IsActive: true}
	if err := repo.Shop.Create(context.Background(), shop); err != nil {
		t.Fatalf("创建店铺失败: %v", err)
	}
	return shop
}

func seedWorker(t *testing.T, repo *repository.Repository, shopID, name string, order int) *model.Worker {
	t.Helper()
	w := &model.Worker{
		ShopID:           shopID,
		Name:             name,
		WeeklyQuota:      3,
		ShiftPreferences: model.StringArray{"morning", "late"},
		DayPreferences:   model.StringArray{"Mon"},
		IsActive:         true,
		SortOrder:        order,
	}
	if err := repo.Worker.Create(context.Background(), w); err != nil {
		t.Fatalf("创建员工失败: %v", err)
	}
	return w
}

func day(d int) time.Time {
	return time.Date(2025, time.January, d, 0, 0, 0, 0, time.UTC)
}

func strPtr(s string) *string { return &s }

func assignmentRows(workerID string) []model.ScheduleAssignment {
	return []model.ScheduleAssignment{
		{WorkDate: day(6), ShiftSlot: "morning", StartTime: "09:00", EndTime: "16:30", WorkerID: strPtr(workerID), Status: model.AssignmentFilled, Seq: 0},
		{WorkDate: day(6), ShiftSlot: "late", StartTime: "15:00", EndTime: "22:30", Status: model.AssignmentUnfilled, Seq: 1},
	}
}

// ═══════════════════════════════════════════════════════════
// Schedule
// ═══════════════════════════════════════════════════════════

func TestScheduleRepo_CreateDuplicatePeriod(t *testing.T) {
	repo := repository.NewRepository(newTestDB(t))
	ctx := context.Background()
	shop := seedShop(t, repo, "Kings Cross")

	first := &model.Schedule{ShopID: shop.ShopID, Month: 1, Year: 2025, Status: model.ScheduleStatusGenerated}
	if err := repo.Schedule.Create(ctx, first); err != nil {
		t.Fatalf("首次创建失败: %v", err)
	}

	second := &model.Schedule{ShopID: shop.ShopID, Month: 1, Year: 2025, Status: model.ScheduleStatusGenerated}
	err := repo.Schedule.Create(ctx, second)
	if !errors.Is(err, apperrors.ErrAlreadyExists) {
		t.Fatalf("期望 ErrAlreadyExists，实际 %v", err)
	}

	exists, err := repo.Schedule.ExistsForPeriod(ctx, shop.ShopID, 1, 2025)
	if err != nil || !exists {
		t.Fatalf("ExistsForPeriod = %v, %v", exists, err)
	}
	list, _ := repo.Schedule.ListByShop(ctx, shop.ShopID)
	if len(list) != 1 {
		t.Errorf("期望 1 条排班表，实际 %d", len(list))
	}

	// 其他月份不受影响
	other := &model.Schedule{ShopID: shop.ShopID, Month: 2, Year: 2025, Status: model.ScheduleStatusGenerated}
	if err := repo.Schedule.Create(ctx, other); err != nil {
		t.Errorf("创建 2 月排班失败: %v", err)
	}
}

func TestScheduleRepo_GetByPeriodNotFound(t *testing.T) {
	repo := repository.NewRepository(newTestDB(t))
	_, err := repo.Schedule.GetByPeriod(context.Background(), "00000000-0000-0000-0000-0000000000ff", 3, 2025)
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("期望 ErrRecordNotFound，实际 %v", err)
	}
}

// ═══════════════════════════════════════════════════════════
// Assignment
// ═══════════════════════════════════════════════════════════

func TestAssignmentRepo_CommitIsIdempotent(t *testing.T) {
	repo := repository.NewRepository(newTestDB(t))
	ctx := context.Background()
	shop := seedShop(t, repo, "Soho")
	w := seedWorker(t, repo, shop.ShopID, "Ann", 0)
	sched := &model.Schedule{ShopID: shop.ShopID, Month: 1, Year: 2025, Status: model.ScheduleStatusGenerated}
	if err := repo.Schedule.Create(ctx, sched); err != nil {
		t.Fatalf("创建排班表失败: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := repo.Assignment.CommitAssignments(ctx, sched.ScheduleID, assignmentRows(w.WorkerID)); err != nil {
			t.Fatalf("第 %d 次提交失败: %v", i+1, err)
		}
	}

	rows, err := repo.Assignment.ListBySchedule(ctx, sched.ScheduleID)
	if err != nil {
		t.Fatalf("ListBySchedule 失败: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("期望 2 行，实际 %d", len(rows))
	}
	if rows[0].ShiftSlot != "morning" || rows[0].Worker == nil || rows[0].Worker.Name != "Ann" {
		t.Errorf("首行 = %+v", rows[0])
	}
	if rows[1].WorkerID != nil || rows[1].Status != model.AssignmentUnfilled {
		t.Errorf("次行应为未排班: %+v", rows[1])
	}
	if !rows[0].WorkDate.Equal(day(6)) {
		t.Errorf("WorkDate = %v", rows[0].WorkDate)
	}

	mine, _ := repo.Assignment.ListByScheduleAndWorker(ctx, sched.ScheduleID, w.WorkerID)
	if len(mine) != 1 {
		t.Errorf("期望员工 1 条排班，实际 %d", len(mine))
	}
}

func TestAssignmentRepo_CommitRollsBackOnConflict(t *testing.T) {
	repo := repository.NewRepository(newTestDB(t))
	ctx := context.Background()
	shop := seedShop(t, repo, "Camden")
	w := seedWorker(t, repo, shop.ShopID, "Bob", 0)
	sched := &model.Schedule{ShopID: shop.ShopID, Month: 1, Year: 2025, Status: model.ScheduleStatusGenerated}
	if err := repo.Schedule.Create(ctx, sched); err != nil {
		t.Fatalf("创建排班表失败: %v", err)
	}
	if err := repo.Assignment.CommitAssignments(ctx, sched.ScheduleID, assignmentRows(w.WorkerID)); err != nil {
		t.Fatalf("提交失败: %v", err)
	}

	// 同一格子出现两次，违反唯一约束
	bad := append(assignmentRows(w.WorkerID), model.ScheduleAssignment{
		WorkDate: day(6), ShiftSlot: "morning", StartTime: "09:00", EndTime: "16:30", Status: model.AssignmentUnfilled, Seq: 2,
	})
	if err := repo.Assignment.CommitAssignments(ctx, sched.ScheduleID, bad); err == nil {
		t.Fatal("期望唯一约束冲突")
	}

	rows, _ := repo.Assignment.ListBySchedule(ctx, sched.ScheduleID)
	if len(rows) != 2 {
		t.Fatalf("回滚后应保留原有 2 行，实际 %d", len(rows))
	}
}

func TestAssignmentRepo_ListFilledByShopBetween(t *testing.T) {
	repo := repository.NewRepository(newTestDB(t))
	ctx := context.Background()
	shop := seedShop(t, repo, "Brixton")
	other := seedShop(t, repo, "Hackney")
	w := seedWorker(t, repo, shop.ShopID, "Cat", 0)

	for _, s := range []*model.Shop{shop, other} {
		sched := &model.Schedule{ShopID: s.ShopID, Month: 1, Year: 2025, Status: model.ScheduleStatusGenerated}
		if err := repo.Schedule.Create(ctx, sched); err != nil {
			t.Fatalf("创建排班表失败: %v", err)
		}
		if err := repo.Assignment.CommitAssignments(ctx, sched.ScheduleID, assignmentRows(w.WorkerID)); err != nil {
			t.Fatalf("提交失败: %v", err)
		}
	}

	rows, err := repo.Assignment.ListFilledByShopBetween(ctx, shop.ShopID, day(5), day(7))
	if err != nil {
		t.Fatalf("查询失败: %v", err)
	}
	if len(rows) != 1 || rows[0].WorkerID == nil || *rows[0].WorkerID != w.WorkerID {
		t.Fatalf("期望本店 1 条已排班明细，实际 %+v", rows)
	}

	rows, _ = repo.Assignment.ListFilledByShopBetween(ctx, shop.ShopID, day(7), day(9))
	if len(rows) != 0 {
		t.Errorf("区间外不应有明细，实际 %d", len(rows))
	}
}

// ═══════════════════════════════════════════════════════════
// 事务
// ═══════════════════════════════════════════════════════════

func TestTransaction_RollbackDiscardsHeaderAndRows(t *testing.T) {
	repo := repository.NewRepository(newTestDB(t))
	ctx := context.Background()
	shop := seedShop(t, repo, "Peckham")
	w := seedWorker(t, repo, shop.ShopID, "Dan", 0)

	tx, err := repo.BeginTx(ctx)
	if err != nil {
		t.Fatalf("BeginTx 失败: %v", err)
	}
	txRepo := repo.WithTx(tx)

	sched := &model.Schedule{ShopID: shop.ShopID, Month: 1, Year: 2025, Status: model.ScheduleStatusGenerated}
	if err := txRepo.Schedule.Create(ctx, sched); err != nil {
		tx.Rollback()
		t.Fatalf("事务内创建排班表失败: %v", err)
	}
	if err := txRepo.Assignment.CommitAssignments(ctx, sched.ScheduleID, assignmentRows(w.WorkerID)); err != nil {
		tx.Rollback()
		t.Fatalf("事务内提交明细失败: %v", err)
	}
	tx.Rollback()

	if _, err := repo.Schedule.GetByID(ctx, sched.ScheduleID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("回滚后不应查到排班表，err = %v", err)
	}
	rows, _ := repo.Assignment.ListBySchedule(ctx, sched.ScheduleID)
	if len(rows) != 0 {
		t.Errorf("回滚后不应有明细，实际 %d", len(rows))
	}
}

// ═══════════════════════════════════════════════════════════
// Worker / ShiftSlot / Closure
// ═══════════════════════════════════════════════════════════

func TestWorkerRepo_PreferencesAndOptimisticLock(t *testing.T) {
	repo := repository.NewRepository(newTestDB(t))
	ctx := context.Background()
	shop := seedShop(t, repo, "Angel")
	w := seedWorker(t, repo, shop.ShopID, "Eve", 0)

	got, err := repo.Worker.GetByID(ctx, w.WorkerID)
	if err != nil {
		t.Fatalf("GetByID 失败: %v", err)
	}
	if len(got.ShiftPreferences) != 2 || got.ShiftPreferences[0] != "morning" {
		t.Errorf("ShiftPreferences = %v", got.ShiftPreferences)
	}

	got.DayPreferences = model.StringArray{"Sat", "Sun"}
	if err := repo.Worker.Update(ctx, got); err != nil {
		t.Fatalf("Update 失败: %v", err)
	}
	if got.Version != 2 {
		t.Errorf("Version = %d, want 2", got.Version)
	}

	stale := *w // version 1
	stale.Name = "Stale"
	if err := repo.Worker.Update(ctx, &stale); !errors.Is(err, apperrors.ErrOptimisticLock) {
		t.Fatalf("期望 ErrOptimisticLock，实际 %v", err)
	}
}

func TestWorkerRepo_ListByShopOrderAndNextSortOrder(t *testing.T) {
	repo := repository.NewRepository(newTestDB(t))
	ctx := context.Background()
	shop := seedShop(t, repo, "Bank")

	next, err := repo.Worker.NextSortOrder(ctx, shop.ShopID)
	if err != nil || next != 0 {
		t.Fatalf("空名册 NextSortOrder = %d, %v", next, err)
	}
	seedWorker(t, repo, shop.ShopID, "Second", 1)
	first := seedWorker(t, repo, shop.ShopID, "First", 0)
	gone := seedWorker(t, repo, shop.ShopID, "Gone", 2)
	if err := repo.Worker.Delete(ctx, gone.WorkerID, &first.WorkerID); err != nil {
		t.Fatalf("Delete 失败: %v", err)
	}

	list, _ := repo.Worker.ListByShop(ctx, shop.ShopID, true)
	if len(list) != 2 || list[0].Name != "First" || list[1].Name != "Second" {
		t.Fatalf("ListByShop 顺序错误: %+v", list)
	}
	next, _ = repo.Worker.NextSortOrder(ctx, shop.ShopID)
	if next != 3 {
		t.Errorf("NextSortOrder = %d, want 3（含已删除员工）", next)
	}
}

func TestShiftSlotRepo_ListForShopFallsBackToGlobal(t *testing.T) {
	repo := repository.NewRepository(newTestDB(t))
	ctx := context.Background()
	shop := seedShop(t, repo, "Oval")

	for i, name := range []string{"morning", "late"} {
		s := &model.ShiftSlot{Name: name, StartTime: "09:00", EndTime: "17:00", Position: i + 1, IsActive: true}
		if err := repo.ShiftSlot.Create(ctx, s); err != nil {
			t.Fatalf("创建全局班次失败: %v", err)
		}
	}

	slots, _ := repo.ShiftSlot.ListForShop(ctx, shop.ShopID)
	if len(slots) != 2 || slots[0].Name != "morning" {
		t.Fatalf("期望回退到全局班次，实际 %+v", slots)
	}

	own := &model.ShiftSlot{ShopID: &shop.ShopID, Name: "allday", StartTime: "10:00", EndTime: "18:00", Position: 1, IsActive: true}
	if err := repo.ShiftSlot.Create(ctx, own); err != nil {
		t.Fatalf("创建店铺班次失败: %v", err)
	}
	slots, _ = repo.ShiftSlot.ListForShop(ctx, shop.ShopID)
	if len(slots) != 1 || slots[0].Name != "allday" {
		t.Fatalf("期望店铺专属班次，实际 %+v", slots)
	}
}

func TestClosureRepo_CRUD(t *testing.T) {
	repo := repository.NewRepository(newTestDB(t))
	ctx := context.Background()
	shop := seedShop(t, repo, "Euston")

	c := &model.ShopClosure{ShopID: shop.ShopID, RRule: "FREQ=WEEKLY;BYDAY=SU", Reason: "周日休息"}
	if err := repo.Closure.Create(ctx, c); err != nil {
		t.Fatalf("Create 失败: %v", err)
	}
	list, _ := repo.Closure.ListByShop(ctx, shop.ShopID)
	if len(list) != 1 || list[0].RRule != c.RRule {
		t.Fatalf("ListByShop = %+v", list)
	}
	if err := repo.Closure.Delete(ctx, c.ClosureID); err != nil {
		t.Fatalf("Delete 失败: %v", err)
	}
	if err := repo.Closure.Delete(ctx, c.ClosureID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("重复删除应返回 ErrRecordNotFound，实际 %v", err)
	}
}

func TestShopRepo_DuplicateName(t *testing.T) {
	repo := repository.NewRepository(newTestDB(t))
	seedShop(t, repo, "Victoria")

	err := repo.Shop.Create(context.Background(), &model.Shop{Name: "Victoria", IsActive: true})
	if !errors.Is(err, apperrors.ErrAlreadyExists) {
		t.Fatalf("期望 ErrAlreadyExists，实际 %v", err)
	}
}

func TestWorkerRepo_PreferencesWithSpecialCharacters(t *testing.T) {
	repo := repository.NewRepository(newTestDB(t))
	ctx := context.Background()
	shop := seedShop(t, repo, "Comma")

	w := &model.Worker{
		ShopID:           shop.ShopID,
		Name:             "Quinn",
		WeeklyQuota:      2,
		ShiftPreferences: model.StringArray{"late,night", `{x}`, `a "b"`},
		DayPreferences:   model.StringArray{},
		IsActive:         true,
	}
	if err := repo.Worker.Create(ctx, w); err != nil {
		t.Fatalf("创建员工失败: %v", err)
	}

	got, err := repo.Worker.GetByID(ctx, w.WorkerID)
	if err != nil {
		t.Fatalf("GetByID 失败: %v", err)
	}
	want := []string{"late,night", `{x}`, `a "b"`}
	if len(got.ShiftPreferences) != len(want) {
		t.Fatalf("ShiftPreferences = %q, want %q", got.ShiftPreferences, want)
	}
	for i := range want {
		if got.ShiftPreferences[i] != want[i] {
			t.Errorf("ShiftPreferences[%d] = %q, want %q", i, got.ShiftPreferences[i], want[i])
		}
	}
	if got.DayPreferences == nil || len(got.DayPreferences) != 0 {
		t.Errorf("空偏好应读回空数组，实际 %#v", got.DayPreferences)
	}
}
