package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/Jaaz7/kgag-scheduler/config"
	"github.com/Jaaz7/kgag-scheduler/internal/model"
)

// ── 测试辅助 ──

func setupTestExportService() (ExportService, *scheduleFixture) {
	f := setupTestScheduleService(config.SchedulerConfig{})
	svc := NewExportService(&config.SchedulerConfig{Timezone: "UTC"}, f.repos.toRepository(), zap.NewNop())
	return svc, f
}

func openWorkbook(t *testing.T, svc ExportService, shopID string, month, year int) (*excelize.File, string) {
	t.Helper()
	buf, filename, err := svc.ExportSchedule(context.Background(), shopID, month, year)
	if err != nil {
		t.Fatalf("导出失败: %v", err)
	}
	wb, err := excelize.OpenReader(buf)
	if err != nil {
		t.Fatalf("无法解析导出的 Excel: %v", err)
	}
	t.Cleanup(func() { _ = wb.Close() })
	return wb, filename
}

func cellValue(t *testing.T, wb *excelize.File, sheet, axis string) string {
	t.Helper()
	v, err := wb.GetCellValue(sheet, axis)
	if err != nil {
		t.Fatalf("读取 %s!%s 失败: %v", sheet, axis, err)
	}
	return v
}

// ── ExportSchedule 测试 ──

func TestExportService_ExportSchedule_NoSchedule(t *testing.T) {
	svc, f := setupTestExportService()
	seedShop(f.repos)

	_, _, err := svc.ExportSchedule(context.Background(), "shop-1", 2, 2025)
	if !errors.Is(err, ErrExportNoSchedule) {
		t.Errorf("期望 ErrExportNoSchedule，实际: %v", err)
	}
}

func TestExportService_ExportSchedule_Success(t *testing.T) {
	svc, f := setupTestExportService()
	seedShop(f.repos)
	generate(t, f, "shop-1", 2, 2025)

	wb, filename := openWorkbook(t, svc, "shop-1", 2, 2025)

	if filename != "排班表_Kiosk_2025-02.xlsx" {
		t.Errorf("filename = %q", filename)
	}
	sheets := wb.GetSheetList()
	if len(sheets) != 2 || sheets[0] != "排班表" || sheets[1] != "员工统计" {
		t.Fatalf("sheets = %v", sheets)
	}

	if got := cellValue(t, wb, "排班表", "A1"); !strings.Contains(got, "Kiosk") {
		t.Errorf("标题 = %q", got)
	}
	if got := cellValue(t, wb, "排班表", "C2"); got != "morning (09:00-16:30)" {
		t.Errorf("C2 = %q", got)
	}
	if got := cellValue(t, wb, "排班表", "A3"); got != "2025-02-01" {
		t.Errorf("A3 = %q", got)
	}
	if got := cellValue(t, wb, "排班表", "B3"); got != "Sat" {
		t.Errorf("B3 = %q", got)
	}
	if got := cellValue(t, wb, "排班表", "C3"); got != "WorkerA" {
		t.Errorf("C3 = %q", got)
	}
	if got := cellValue(t, wb, "排班表", "D3"); got != "WorkerB" {
		t.Errorf("D3 = %q", got)
	}
	// 02-08(六) 为 W06 第 6 天，两人配额均已用完
	if got := cellValue(t, wb, "排班表", "C10"); got != "未排" {
		t.Errorf("C10 = %q, want 未排", got)
	}
	if got := cellValue(t, wb, "排班表", "A30"); got != "2025-02-28" {
		t.Errorf("最后一行 = %q", got)
	}

	// 员工统计：5 个 ISO 周 + 合计
	if got := cellValue(t, wb, "员工统计", "B1"); got != "2025-W05" {
		t.Errorf("B1 = %q", got)
	}
	if got := cellValue(t, wb, "员工统计", "A2"); got != "WorkerA" {
		t.Errorf("A2 = %q", got)
	}
	if got := cellValue(t, wb, "员工统计", "G2"); got != "22" {
		t.Errorf("WorkerA 合计 = %q, want 22", got)
	}
}

func TestExportService_ExportSchedule_ClosedCells(t *testing.T) {
	svc, f := setupTestExportService()
	seedShop(f.repos)
	f.repos.closure.closures["c-1"] = &model.ShopClosure{
		ClosureID: "c-1", ShopID: "shop-1", RRule: "FREQ=WEEKLY;BYDAY=SU", ShiftSlot: "late",
	}
	generate(t, f, "shop-1", 2, 2025)

	wb, _ := openWorkbook(t, svc, "shop-1", 2, 2025)

	// 02-02 为周日：晚班闭店，早班照常
	if got := cellValue(t, wb, "排班表", "D4"); got != "-" {
		t.Errorf("D4 = %q, want -", got)
	}
	if got := cellValue(t, wb, "排班表", "C4"); got != "WorkerA" {
		t.Errorf("C4 = %q", got)
	}
}

func TestExportService_ExportSchedule_InvalidPeriod(t *testing.T) {
	svc, _ := setupTestExportService()

	_, _, err := svc.ExportSchedule(context.Background(), "shop-1", 0, 2025)
	if err == nil {
		t.Fatal("期望校验错误")
	}
}

// ── ExportWorkerCalendar 测试 ──

func parseCalendar(t *testing.T, svc ExportService, workerID string) (*ics.Calendar, string) {
	t.Helper()
	buf, filename, err := svc.ExportWorkerCalendar(context.Background(), "shop-1", 2, 2025, workerID)
	if err != nil {
		t.Fatalf("导出日历失败: %v", err)
	}
	cal, err := ics.ParseCalendar(strings.NewReader(buf.String()))
	if err != nil {
		t.Fatalf("无法解析导出的日历: %v", err)
	}
	return cal, filename
}

func TestExportService_ExportWorkerCalendar_Success(t *testing.T) {
	svc, f := setupTestExportService()
	seedShop(f.repos)
	generate(t, f, "shop-1", 2, 2025)

	cal, filename := parseCalendar(t, svc, "w-a")

	if filename != "排班_WorkerA_2025-02.ics" {
		t.Errorf("filename = %q", filename)
	}
	events := cal.Events()
	if len(events) != 22 {
		t.Fatalf("WorkerA 应有 22 个班次，实际 %d", len(events))
	}

	first := events[0]
	start, err := first.GetStartAt()
	if err != nil {
		t.Fatalf("GetStartAt: %v", err)
	}
	if want := time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC); !start.Equal(want) {
		t.Errorf("首个班次开始 = %v, want %v", start, want)
	}
	end, err := first.GetEndAt()
	if err != nil {
		t.Fatalf("GetEndAt: %v", err)
	}
	if want := time.Date(2025, 2, 1, 16, 30, 0, 0, time.UTC); !end.Equal(want) {
		t.Errorf("首个班次结束 = %v, want %v", end, want)
	}
	if got := first.GetProperty(ics.ComponentPropertySummary).Value; got != "Kiosk · morning" {
		t.Errorf("SUMMARY = %q", got)
	}
	if uid := first.Id(); !strings.HasSuffix(uid, "/2025-02-01/morning@kgag-scheduler") {
		t.Errorf("UID = %q", uid)
	}
}

func TestExportService_ExportWorkerCalendar_Deterministic(t *testing.T) {
	svc, f := setupTestExportService()
	seedShop(f.repos)
	generate(t, f, "shop-1", 2, 2025)

	a, _, err := svc.ExportWorkerCalendar(context.Background(), "shop-1", 2, 2025, "w-b")
	if err != nil {
		t.Fatalf("导出日历失败: %v", err)
	}
	b, _, err := svc.ExportWorkerCalendar(context.Background(), "shop-1", 2, 2025, "w-b")
	if err != nil {
		t.Fatalf("导出日历失败: %v", err)
	}
	if a.String() != b.String() {
		t.Error("同一排班表两次导出的日历应完全一致")
	}
}

func TestExportService_ExportWorkerCalendar_ShopTimezone(t *testing.T) {
	_, f := setupTestExportService()
	seedShop(f.repos)
	generate(t, f, "shop-1", 2, 2025)

	svc := &exportService{
		repo:   f.repos.toRepository(),
		loc:    time.FixedZone("UTC+1", 3600),
		logger: zap.NewNop(),
	}
	cal, _ := parseCalendar(t, svc, "w-a")

	start, err := cal.Events()[0].GetStartAt()
	if err != nil {
		t.Fatalf("GetStartAt: %v", err)
	}
	// 店铺时区 09:00 即 UTC 08:00
	if want := time.Date(2025, 2, 1, 8, 0, 0, 0, time.UTC); !start.Equal(want) {
		t.Errorf("开始时间 = %v, want %v", start, want)
	}
}

func TestExportService_ExportWorkerCalendar_Errors(t *testing.T) {
	svc, f := setupTestExportService()
	seedShop(f.repos)
	seedSingleSlotShop(f.repos, 3)

	tests := []struct {
		name     string
		workerID string
		want     error
	}{
		{"员工不存在", "w-none", ErrWorkerNotFound},
		{"员工不属于该店铺", "w-solo", ErrWorkerNotInShop},
		{"尚未生成排班", "w-a", ErrExportNoSchedule},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.ExportWorkerCalendar(context.Background(), "shop-1", 2, 2025, tt.workerID)
			if !errors.Is(err, tt.want) {
				t.Errorf("期望 %v，实际 %v", tt.want, err)
			}
		})
	}
}
