// Package scheduler 约束评估与贪心排班引擎
//
// 引擎为纯内存计算：不做 I/O、不加锁、不返回错误。
// 相同的名册与格子输入必然得到相同的输出。
package scheduler

import (
	"time"

	"github.com/Jaaz7/kgag-scheduler/internal/calendar"
	"github.com/Jaaz7/kgag-scheduler/internal/roster"
)

const (
	// NeutralScore 偏好列表为空（无偏好）时该维度的得分
	NeutralScore = 1
	// PreferenceBase 命中偏好时的基础得分，名次越靠前加分越多
	PreferenceBase = 2
)

// ── 用量跟踪 ──

// Usage 记录排班过程中每位员工的占用情况
type Usage struct {
	booked map[string]map[time.Time]bool
	weekly map[string]map[calendar.WeekKey]int
	total  map[string]int
	over   map[string]int
}

// NewUsage 创建空的用量跟踪
func NewUsage() *Usage {
	return &Usage{
		booked: make(map[string]map[time.Time]bool),
		weekly: make(map[string]map[calendar.WeekKey]int),
		total:  make(map[string]int),
		over:   make(map[string]int),
	}
}

// Booked 员工当天是否已排班
func (u *Usage) Booked(workerID string, d time.Time) bool {
	return u.booked[workerID][calendar.DateOf(d)]
}

// WeekCount 员工在某 ISO 周内的已排天数（含跨月带入）
func (u *Usage) WeekCount(workerID string, k calendar.WeekKey) int {
	return u.weekly[workerID][k]
}

// Total 员工在本周期内的排班总数（不含跨月带入）
func (u *Usage) Total(workerID string) int {
	return u.total[workerID]
}

// Overflow 员工超出配额的排班数
func (u *Usage) Overflow(workerID string) int {
	return u.over[workerID]
}

// Book 记录一次排班
func (u *Usage) Book(workerID string, d time.Time, overQuota bool) {
	u.mark(workerID, d)
	u.total[workerID]++
	if overQuota {
		u.over[workerID]++
	}
}

// seed 记录周期外的既有排班，只影响同日与周配额判断
func (u *Usage) seed(workerID string, d time.Time) {
	u.mark(workerID, d)
}

func (u *Usage) mark(workerID string, d time.Time) {
	d = calendar.DateOf(d)
	if u.booked[workerID] == nil {
		u.booked[workerID] = make(map[time.Time]bool)
		u.weekly[workerID] = make(map[calendar.WeekKey]int)
	}
	if u.booked[workerID][d] {
		return
	}
	u.booked[workerID][d] = true
	u.weekly[workerID][calendar.WeekKeyOf(d)]++
}

// ── 硬约束 ──

// IsEligible 员工当天未排班且本周未达配额
func IsEligible(w *roster.Worker, cell calendar.Cell, u *Usage) bool {
	if u.Booked(w.ID, cell.Date) {
		return false
	}
	return u.WeekCount(w.ID, calendar.WeekKeyOf(cell.Date)) < w.WeeklyQuota
}

// ── 偏好得分 ──

// Score 班次偏好得分 + 星期偏好得分，越高越优先
func Score(w *roster.Worker, cell calendar.Cell) int {
	shift := component(len(w.ShiftPrefs), func() (int, bool) { return w.ShiftRank(cell.Slot.Name) })
	day := component(len(w.DayPrefs), func() (int, bool) { return w.DayRank(cell.Date.Weekday()) })
	return shift + day
}

// component 无偏好得 NeutralScore；命中第 i 名（共 n 个）得 PreferenceBase + (n-1-i)；未命中得 0
func component(n int, rank func() (int, bool)) int {
	if n == 0 {
		return NeutralScore
	}
	i, ok := rank()
	if !ok {
		return 0
	}
	return PreferenceBase + (n - 1 - i)
}

// ── 平局裁决 ──

// Candidate 某个格子的候选人及其排序依据
type Candidate struct {
	Worker   *roster.Worker
	Score    int
	Total    int
	Week     int
	Overflow int
}

// Less 候选人全序：得分降序 → 周期总数升序 → 本周天数升序 → 名册顺序
// Overflow 仅在超配额兜底时非零，优先于其他条件比较
func Less(a, b Candidate) bool {
	if a.Overflow != b.Overflow {
		return a.Overflow < b.Overflow
	}
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.Total != b.Total {
		return a.Total < b.Total
	}
	if a.Week != b.Week {
		return a.Week < b.Week
	}
	return a.Worker.Index < b.Worker.Index
}

func newCandidate(w *roster.Worker, cell calendar.Cell, u *Usage, week calendar.WeekKey) Candidate {
	return Candidate{
		Worker: w,
		Score:  Score(w, cell),
		Total:  u.Total(w.ID),
		Week:   u.WeekCount(w.ID, week),
	}
}
