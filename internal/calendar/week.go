package calendar

import (
	"fmt"
	"time"
)

// WeekKey ISO 周标识（ISO 年 + 周序号），配额按此分桶
type WeekKey struct {
	Year int
	Week int
}

// WeekKeyOf 返回日期所属的 ISO 周
func WeekKeyOf(d time.Time) WeekKey {
	y, w := d.ISOWeek()
	return WeekKey{Year: y, Week: w}
}

func (k WeekKey) String() string {
	return fmt.Sprintf("%04d-W%02d", k.Year, k.Week)
}

// Week 日历中的一周（周一至周日），可能包含相邻月份的日期
type Week struct {
	Index int
	Key   WeekKey
	Days  [7]time.Time
}

// InPeriod 第 i 天是否属于周期内
func (w Week) InPeriod(p Period, i int) bool {
	return p.Contains(w.Days[i])
}

// WeeksOf 返回覆盖整个月份的 ISO 周，含首尾周中的跨月日期
func WeeksOf(p Period) []Week {
	first, last := p.First(), p.Last()
	start := MondayOf(first)

	var weeks []Week
	for monday := start; !monday.After(last); monday = monday.AddDate(0, 0, 7) {
		w := Week{Index: len(weeks), Key: WeekKeyOf(monday)}
		for i := 0; i < 7; i++ {
			w.Days[i] = monday.AddDate(0, 0, i)
		}
		weeks = append(weeks, w)
	}
	return weeks
}

// MondayOf 返回日期所在 ISO 周的周一
func MondayOf(d time.Time) time.Time {
	d = DateOf(d)
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}
