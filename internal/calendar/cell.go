package calendar

import (
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"
)

// Slot 班次：名称与起止时间，顺序即配置顺序
type Slot struct {
	Name      string
	StartTime string
	EndTime   string
}

// Cell 排班格子：某日某班次，Required 为所需人数（0 或 1）
type Cell struct {
	Date     time.Time
	Slot     Slot
	Required int
	Reason   string // 闭店原因，仅 Required == 0 时有值
}

// Key 格子唯一标识 YYYY-MM-DD/slot
func (c Cell) Key() string {
	return FormatDate(c.Date) + "/" + c.Slot.Name
}

// closureEpoch 未指定起始日期的闭店规则统一锚定到此日（周一）
var closureEpoch = time.Date(2000, 1, 3, 0, 0, 0, 0, time.UTC)

// Closure 闭店规则：RFC 5545 RRULE 命中的日期该班次不排人
// Slot 为空表示全天所有班次
type Closure struct {
	Rule     string
	StartsOn time.Time
	Slot     string
	Reason   string
}

// ParseClosure 校验 RRULE 语法并构造闭店规则
func ParseClosure(rule string, startsOn time.Time, slot, reason string) (Closure, error) {
	rule = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(rule), "RRULE:"))
	if rule == "" {
		return Closure{}, fmt.Errorf("闭店规则不能为空")
	}
	if _, err := rrule.StrToRRule(rule); err != nil {
		return Closure{}, fmt.Errorf("无效的闭店规则 %q: %w", rule, err)
	}
	if startsOn.IsZero() {
		startsOn = closureEpoch
	}
	return Closure{Rule: rule, StartsOn: DateOf(startsOn), Slot: slot, Reason: reason}, nil
}

// Applies 规则是否作用于该班次
func (c Closure) Applies(slot string) bool {
	return c.Slot == "" || c.Slot == slot
}

// Dates 返回 [from, to] 内命中规则的日期
// 每次调用重新解析规则，DTStart 会修改 RRule 内部状态
func (c Closure) Dates(from, to time.Time) ([]time.Time, error) {
	rule, err := rrule.StrToRRule(c.Rule)
	if err != nil {
		return nil, fmt.Errorf("解析闭店规则 %q 失败: %w", c.Rule, err)
	}
	start := c.StartsOn
	if start.IsZero() {
		start = closureEpoch
	}
	rule.DTStart(DateOf(start))

	// 区间右端取当天最后一秒，规则自带 BYHOUR 时也不会漏掉最后一天
	occ := rule.Between(DateOf(from), DateOf(to).AddDate(0, 0, 1).Add(-time.Second), true)
	dates := make([]time.Time, 0, len(occ))
	for _, o := range occ {
		dates = append(dates, DateOf(o))
	}
	return dates, nil
}

// CellsOf 返回周期内全部格子：日期升序，同日按班次配置顺序
func CellsOf(p Period, slots []Slot, closures ...Closure) ([]Cell, error) {
	return CellsBetween(p.First(), p.Last(), slots, closures...)
}

// CellsBetween 返回任意日期区间内的格子
func CellsBetween(start, end time.Time, slots []Slot, closures ...Closure) ([]Cell, error) {
	days := daysBetween(start, end)
	if len(days) == 0 || len(slots) == 0 {
		return nil, nil
	}

	// key: 日期/班次 → 闭店原因；"*" 表示全部班次
	closed := make(map[string]string)
	for _, cl := range closures {
		dates, err := cl.Dates(days[0], days[len(days)-1])
		if err != nil {
			return nil, err
		}
		slotKey := cl.Slot
		if slotKey == "" {
			slotKey = "*"
		}
		for _, d := range dates {
			k := FormatDate(d) + "/" + slotKey
			if _, ok := closed[k]; !ok {
				closed[k] = cl.Reason
			}
		}
	}

	cells := make([]Cell, 0, len(days)*len(slots))
	for _, d := range days {
		date := FormatDate(d)
		for _, s := range slots {
			c := Cell{Date: d, Slot: s, Required: 1}
			if reason, ok := closed[date+"/*"]; ok {
				c.Required, c.Reason = 0, reason
			} else if reason, ok := closed[date+"/"+s.Name]; ok {
				c.Required, c.Reason = 0, reason
			}
			cells = append(cells, c)
		}
	}
	return cells, nil
}
