//go:build integration

package repository_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Jaaz7/kgag-scheduler/internal/model"
	"github.com/Jaaz7/kgag-scheduler/internal/repository"
	"github.com/Jaaz7/kgag-scheduler/pkg/database"
	apperrors "github.com/Jaaz7/kgag-scheduler/pkg/errors"
)

// ═══════════════════════════════════════════════════════════
// Test Setup（PostgreSQL，使用嵌入的 SQL 迁移）
// ═══════════════════════════════════════════════════════════

var pgDB *gorm.DB

func TestMain(m *testing.M) {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		dsn = "host=localhost port=5433 user=kgag password=kgag_password dbname=kgag_test sslmode=disable TimeZone=UTC"
	}

	var err error
	pgDB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "无法连接测试数据库: %v\n", err)
		os.Exit(1)
	}

	sqlDB, _ := pgDB.DB()
	if err := database.RunMigrations(sqlDB, zap.NewNop()); err != nil {
		fmt.Fprintf(os.Stderr, "迁移失败: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()
	_ = sqlDB.Close()
	os.Exit(code)
}

func setupPGShop(t *testing.T) (*model.Shop, func()) {
	t.Helper()
	repo := repository.NewRepository(pgDB)
	shop := &model.Shop{Name: "pg-" + t.Name(), IsActive: true}
	if err := repo.Shop.Create(context.Background(), shop); err != nil {
		t.Fatalf("创建测试店铺失败: %v", err)
	}
	return shop, func() {
		pgDB.Exec("DELETE FROM schedule_assignments WHERE schedule_id IN (SELECT schedule_id FROM schedules WHERE shop_id = ?)", shop.ShopID)
		pgDB.Exec("DELETE FROM schedules WHERE shop_id = ?", shop.ShopID)
		pgDB.Exec("DELETE FROM workers WHERE shop_id = ?", shop.ShopID)
		pgDB.Exec("DELETE FROM shops WHERE shop_id = ?", shop.ShopID)
	}
}

// 未开启 TranslateError 时依赖 pgconn 错误码 23505 识别唯一冲突
func TestPG_ScheduleUniqueViolationViaPgconn(t *testing.T) {
	shop, cleanup := setupPGShop(t)
	defer cleanup()

	repo := repository.NewRepository(pgDB)
	ctx := context.Background()

	if err := repo.Schedule.Create(ctx, &model.Schedule{ShopID: shop.ShopID, Month: 5, Year: 2025, Status: model.ScheduleStatusGenerated}); err != nil {
		t.Fatalf("首次创建失败: %v", err)
	}
	err := repo.Schedule.Create(ctx, &model.Schedule{ShopID: shop.ShopID, Month: 5, Year: 2025, Status: model.ScheduleStatusGenerated})
	if !errors.Is(err, apperrors.ErrAlreadyExists) {
		t.Fatalf("期望 ErrAlreadyExists，实际 %v", err)
	}
}

func TestPG_ConcurrentCreateOnlyOneWins(t *testing.T) {
	shop, cleanup := setupPGShop(t)
	defer cleanup()

	repo := repository.NewRepository(pgDB)
	ctx := context.Background()

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = repo.Schedule.Create(ctx, &model.Schedule{ShopID: shop.ShopID, Month: 6, Year: 2025, Status: model.ScheduleStatusGenerated})
		}(i)
	}
	wg.Wait()

	wins, dups := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, apperrors.ErrAlreadyExists):
			dups++
		default:
			t.Errorf("意外错误: %v", err)
		}
	}
	if wins != 1 || dups != n-1 {
		t.Fatalf("wins = %d, dups = %d", wins, dups)
	}
}

func TestPG_StringArrayRoundTrip(t *testing.T) {
	shop, cleanup := setupPGShop(t)
	defer cleanup()

	repo := repository.NewRepository(pgDB)
	ctx := context.Background()

	w := &model.Worker{
		ShopID:           shop.ShopID,
		Name:             "Array",
		WeeklyQuota:      4,
		ShiftPreferences: model.StringArray{"late,night", "morning"},
		DayPreferences:   model.StringArray{},
		IsActive:         true,
	}
	if err := repo.Worker.Create(ctx, w); err != nil {
		t.Fatalf("创建员工失败: %v", err)
	}
	got, err := repo.Worker.GetByID(ctx, w.WorkerID)
	if err != nil {
		t.Fatalf("查询员工失败: %v", err)
	}
	if len(got.ShiftPreferences) != 2 || got.ShiftPreferences[0] != "late,night" || got.ShiftPreferences[1] != "morning" {
		t.Errorf("ShiftPreferences = %v", got.ShiftPreferences)
	}
	if len(got.DayPreferences) != 0 {
		t.Errorf("DayPreferences = %v", got.DayPreferences)
	}
}
