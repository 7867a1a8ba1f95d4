package service

import (
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/Jaaz7/kgag-scheduler/internal/calendar"
	"github.com/Jaaz7/kgag-scheduler/internal/model"
)

// ── ICS 导出 ──────────────────────────────────────────────
//
// 职责：将员工某月已排到的班次转为 iCalendar (RFC 5545)，便于导入手机日历。
//
//   - 每个班次一个 VEVENT，起止时间按店铺时区解释后以 UTC 输出
//   - UID 由排班表 + 日期 + 班次构成，重复导入时日历应用会覆盖而非新增
//   - DTSTAMP 取排班表生成时间，同一排班表多次导出内容一致
// ─────────────────────────────────────────────────────────────

const icsProductID = "-//kgag-scheduler//shift calendar//ZH"

// buildWorkerCalendar 构建员工月度班次日历
func buildWorkerCalendar(schedule *model.Schedule, shopName, workerName string, rows []model.ScheduleAssignment, loc *time.Location) (*ics.Calendar, error) {
	cal := ics.NewCalendar()
	cal.SetProductId(icsProductID)
	cal.SetMethod(ics.MethodPublish)
	cal.SetXWRCalName(fmt.Sprintf("%s · %s", shopName, workerName))

	stamp := schedule.CreatedAt.UTC()
	for i := range rows {
		r := &rows[i]
		start, err := slotTime(r.WorkDate, r.StartTime, loc)
		if err != nil {
			return nil, err
		}
		end, err := slotTime(r.WorkDate, r.EndTime, loc)
		if err != nil {
			return nil, err
		}

		date := calendar.FormatDate(calendar.DateOf(r.WorkDate))
		ev := cal.AddEvent(fmt.Sprintf("%s/%s/%s@kgag-scheduler", schedule.ScheduleID, date, r.ShiftSlot))
		ev.SetDtStampTime(stamp)
		ev.SetStartAt(start)
		ev.SetEndAt(end)
		ev.SetSummary(fmt.Sprintf("%s · %s", shopName, r.ShiftSlot))
		ev.SetLocation(shopName)
		if r.OverQuota {
			ev.SetDescription("超出周配额的顶班")
		}
	}
	return cal, nil
}

// slotTime 将日期与 HH:MM 组合为店铺时区下的时刻
func slotTime(day time.Time, hhmm string, loc *time.Location) (time.Time, error) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Time{}, fmt.Errorf("班次时间 %q 无效: %w", hhmm, err)
	}
	d := calendar.DateOf(day)
	return time.Date(d.Year(), d.Month(), d.Day(), t.Hour(), t.Minute(), 0, 0, loc), nil
}
