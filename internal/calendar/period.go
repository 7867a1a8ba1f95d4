// Package calendar 月份周期、ISO 周与排班格子（日期 × 班次）的计算
//
// 所有日期统一为 UTC 零点的"纯日期"，避免夏令时切换导致漏天或重复。
package calendar

import (
	"fmt"
	"time"

	apperrors "github.com/Jaaz7/kgag-scheduler/pkg/errors"
)

const (
	// MinYear 允许排班的最小年份
	MinYear = 2000
	// MaxYear 允许排班的最大年份
	MaxYear = 2100

	dateLayout = "2006-01-02"
)

// Period 排班周期：某年某月
type Period struct {
	Month time.Month
	Year  int
}

// NewPeriod 构造并校验周期
func NewPeriod(month, year int) (Period, error) {
	p := Period{Month: time.Month(month), Year: year}
	if err := p.Validate(); err != nil {
		return Period{}, err
	}
	return p, nil
}

// PeriodOf 返回日期所在的周期
func PeriodOf(t time.Time) Period {
	return Period{Month: t.Month(), Year: t.Year()}
}

// Validate 月份须在 1-12，年份须在 [MinYear, MaxYear]
func (p Period) Validate() error {
	if p.Month < time.January || p.Month > time.December {
		return apperrors.NewValidationError("", "month", fmt.Sprintf("月份 %d 不在 1-12 之间", int(p.Month)))
	}
	if p.Year < MinYear || p.Year > MaxYear {
		return apperrors.NewValidationError("", "year", fmt.Sprintf("年份 %d 不在 %d-%d 之间", p.Year, MinYear, MaxYear))
	}
	return nil
}

// First 周期第一天
func (p Period) First() time.Time {
	return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC)
}

// Last 周期最后一天
func (p Period) Last() time.Time {
	return p.First().AddDate(0, 1, -1)
}

// Days 周期天数
func (p Period) Days() int {
	return p.Last().Day()
}

// Next 下一个月
func (p Period) Next() Period {
	return PeriodOf(p.First().AddDate(0, 1, 0))
}

// Prev 上一个月
func (p Period) Prev() Period {
	return PeriodOf(p.First().AddDate(0, -1, 0))
}

// Contains 日期是否落在周期内
func (p Period) Contains(d time.Time) bool {
	return d.Year() == p.Year && d.Month() == p.Month
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// DateOf 将任意时区时间截断为 UTC 纯日期
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// FormatDate 格式化为 YYYY-MM-DD
func FormatDate(d time.Time) string {
	return d.Format(dateLayout)
}

// ParseDate 解析 YYYY-MM-DD
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("无效的日期 %q: %w", s, err)
	}
	return d, nil
}

// ExpandPeriod 返回周期内每一天（升序）
func ExpandPeriod(p Period) []time.Time {
	return daysBetween(p.First(), p.Last())
}

func daysBetween(start, end time.Time) []time.Time {
	start, end = DateOf(start), DateOf(end)
	if end.Before(start) {
		return nil
	}
	days := make([]time.Time, 0, 31)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}
