package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Jaaz7/kgag-scheduler/config"
	"github.com/Jaaz7/kgag-scheduler/internal/calendar"
	"github.com/Jaaz7/kgag-scheduler/internal/model"
	"github.com/Jaaz7/kgag-scheduler/internal/repository"
	"github.com/Jaaz7/kgag-scheduler/internal/roster"
)

// ── 导出模块业务错误 ──

var (
	ErrExportNoSchedule   = errors.New("该月份暂无排班表")
	ErrExportGenerateFail = errors.New("生成 Excel 文件失败")
)

// 单元格占位文本
const (
	cellUnfilled = "未排"
	cellClosed   = "-"
)

// ExportService 导出业务接口
//
// 导出以 bytes.Buffer 返回，由 Handler 层设置响应头后写入 Response。
// Excel 工作簿包含两个 Sheet：
//   - 排班表：行为日期，列为班次
//   - 员工统计：每人每 ISO 周的天数与总计
type ExportService interface {
	ExportSchedule(ctx context.Context, shopID string, month, year int) (*bytes.Buffer, string, error)
	// ExportWorkerCalendar 导出员工本月班次为 .ics 日历
	ExportWorkerCalendar(ctx context.Context, shopID string, month, year int, workerID string) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	loc    *time.Location
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(cfg *config.SchedulerConfig, repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, loc: cfg.Location(), logger: logger}
}

// ═══════════════════════════════════════════════════════════
// ExportSchedule：导出月度排班为 Excel
// ═══════════════════════════════════════════════════════════

func (s *exportService) ExportSchedule(ctx context.Context, shopID string, month, year int) (*bytes.Buffer, string, error) {
	period, err := calendar.NewPeriod(month, year)
	if err != nil {
		return nil, "", err
	}

	schedule, err := s.repo.Schedule.GetByPeriod(ctx, shopID, month, year)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrExportNoSchedule
		}
		s.logger.Error("查询排班表失败", zap.Error(err))
		return nil, "", err
	}

	rows, err := s.repo.Assignment.ListBySchedule(ctx, schedule.ScheduleID)
	if err != nil {
		s.logger.Error("查询排班明细失败", zap.Error(err))
		return nil, "", err
	}

	shopName := shopID
	if schedule.Shop != nil {
		shopName = schedule.Shop.Name
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := writeScheduleSheet(f, shopName, period, rows); err != nil {
		s.logger.Error("写入排班表 Sheet 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}
	if err := writeLoadSheet(f, period, rows); err != nil {
		s.logger.Error("写入员工统计 Sheet 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}
	f.DeleteSheet("Sheet1")

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("排班表_%s_%s.xlsx", shopName, period.String())
	return buf, filename, nil
}

// ═══════════════════════════════════════════════════════════
// ExportWorkerCalendar：导出员工班次为 iCalendar
// ═══════════════════════════════════════════════════════════

func (s *exportService) ExportWorkerCalendar(ctx context.Context, shopID string, month, year int, workerID string) (*bytes.Buffer, string, error) {
	period, err := calendar.NewPeriod(month, year)
	if err != nil {
		return nil, "", err
	}

	worker, err := s.repo.Worker.GetByID(ctx, workerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrWorkerNotFound
		}
		s.logger.Error("查询员工失败", zap.String("worker_id", workerID), zap.Error(err))
		return nil, "", err
	}
	if worker.ShopID != shopID {
		return nil, "", ErrWorkerNotInShop
	}

	schedule, err := s.repo.Schedule.GetByPeriod(ctx, shopID, month, year)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrExportNoSchedule
		}
		s.logger.Error("查询排班表失败", zap.Error(err))
		return nil, "", err
	}

	rows, err := s.repo.Assignment.ListByScheduleAndWorker(ctx, schedule.ScheduleID, workerID)
	if err != nil {
		s.logger.Error("查询员工排班失败", zap.Error(err))
		return nil, "", err
	}

	shopName := shopID
	if schedule.Shop != nil {
		shopName = schedule.Shop.Name
	}

	cal, err := buildWorkerCalendar(schedule, shopName, worker.Name, rows, s.loc)
	if err != nil {
		s.logger.Error("构建日历失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("排班_%s_%s.ics", worker.Name, period.String())
	return bytes.NewBufferString(cal.Serialize()), filename, nil
}

// ── Sheet 构建 ──

const (
	scheduleSheet = "排班表"
	loadSheet     = "员工统计"
)

type exportSlot struct {
	name  string
	start string
	end   string
}

func writeScheduleSheet(f *excelize.File, shopName string, period calendar.Period, rows []model.ScheduleAssignment) error {
	idx, err := f.NewSheet(scheduleSheet)
	if err != nil {
		return err
	}
	f.SetActiveSheet(idx)

	// 列顺序取班次在明细中首次出现的顺序（明细按 seq 排序）
	var slots []exportSlot
	slotCol := make(map[string]int)
	byCell := make(map[string]*model.ScheduleAssignment, len(rows))
	for i := range rows {
		r := &rows[i]
		if _, ok := slotCol[r.ShiftSlot]; !ok {
			slotCol[r.ShiftSlot] = len(slots)
			slots = append(slots, exportSlot{name: r.ShiftSlot, start: r.StartTime, end: r.EndTime})
		}
		byCell[calendar.FormatDate(calendar.DateOf(r.WorkDate))+"/"+r.ShiftSlot] = r
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	warnStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#F8CBAD"}, Pattern: 1},
	})

	f.SetColWidth(scheduleSheet, "A", "A", 12)
	f.SetColWidth(scheduleSheet, "B", "B", 8)
	if len(slots) > 0 {
		f.SetColWidth(scheduleSheet, colName(2), colName(1+len(slots)), 20)
	}

	// 标题行
	lastCol := colName(1 + max(len(slots), 1))
	f.SetCellValue(scheduleSheet, "A1", fmt.Sprintf("%s %s 排班表", shopName, period.String()))
	f.MergeCell(scheduleSheet, "A1", cell(lastCol, 1))
	f.SetCellStyle(scheduleSheet, "A1", "A1", headerStyle)

	// 表头
	f.SetCellValue(scheduleSheet, cell("A", 2), "日期")
	f.SetCellValue(scheduleSheet, cell("B", 2), "星期")
	for i, sl := range slots {
		f.SetCellValue(scheduleSheet, cell(colName(2+i), 2), fmt.Sprintf("%s (%s-%s)", sl.name, sl.start, sl.end))
	}
	f.SetCellStyle(scheduleSheet, "A2", cell(lastCol, 2), headerStyle)

	// 数据行
	row := 3
	for _, d := range calendar.ExpandPeriod(period) {
		date := calendar.FormatDate(d)
		f.SetCellValue(scheduleSheet, cell("A", row), date)
		f.SetCellValue(scheduleSheet, cell("B", row), roster.WeekdayShort(d.Weekday()))
		for i, sl := range slots {
			c := cell(colName(2+i), row)
			a, ok := byCell[date+"/"+sl.name]
			switch {
			case !ok:
				f.SetCellValue(scheduleSheet, c, cellClosed)
			case a.WorkerID == nil:
				f.SetCellValue(scheduleSheet, c, cellUnfilled)
				f.SetCellStyle(scheduleSheet, c, c, warnStyle)
			default:
				f.SetCellValue(scheduleSheet, c, workerLabel(a))
				if a.OverQuota {
					f.SetCellStyle(scheduleSheet, c, c, warnStyle)
				}
			}
		}
		row++
	}
	return nil
}

func writeLoadSheet(f *excelize.File, period calendar.Period, rows []model.ScheduleAssignment) error {
	if _, err := f.NewSheet(loadSheet); err != nil {
		return err
	}

	weeks := calendar.WeeksOf(period)
	type load struct {
		name  string
		total int
		weeks map[calendar.WeekKey]int
	}
	var order []string
	loads := make(map[string]*load)
	for i := range rows {
		r := &rows[i]
		if r.WorkerID == nil {
			continue
		}
		l, ok := loads[*r.WorkerID]
		if !ok {
			l = &load{name: workerLabel(r), weeks: make(map[calendar.WeekKey]int)}
			loads[*r.WorkerID] = l
			order = append(order, *r.WorkerID)
		}
		l.total++
		l.weeks[calendar.WeekKeyOf(calendar.DateOf(r.WorkDate))]++
	}

	f.SetColWidth(loadSheet, "A", "A", 18)
	f.SetCellValue(loadSheet, cell("A", 1), "员工")
	for i, w := range weeks {
		f.SetCellValue(loadSheet, cell(colName(1+i), 1), w.Key.String())
	}
	f.SetCellValue(loadSheet, cell(colName(1+len(weeks)), 1), "合计")

	row := 2
	for _, id := range order {
		l := loads[id]
		f.SetCellValue(loadSheet, cell("A", row), l.name)
		for i, w := range weeks {
			f.SetCellValue(loadSheet, cell(colName(1+i), row), l.weeks[w.Key])
		}
		f.SetCellValue(loadSheet, cell(colName(1+len(weeks)), row), l.total)
		row++
	}
	return nil
}

// ── 辅助函数 ──

func workerLabel(a *model.ScheduleAssignment) string {
	if a.Worker != nil && a.Worker.Name != "" {
		return a.Worker.Name
	}
	if a.WorkerID != nil {
		return *a.WorkerID
	}
	return ""
}

// colName 0 起的列序号转列名（0 → A）
func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
