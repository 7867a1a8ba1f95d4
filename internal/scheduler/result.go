package scheduler

import (
	"github.com/Jaaz7/kgag-scheduler/internal/calendar"
	"github.com/Jaaz7/kgag-scheduler/internal/roster"
)

// Result 一次排班的完整输出
type Result struct {
	Assignments []Assignment
	Filled      int
	Unfilled    int
	Closed      int
	Loads       []WorkerLoad
	Violations  []QuotaViolation
}

// WeekLoad 某 ISO 周的排班天数
type WeekLoad struct {
	Week  calendar.WeekKey
	Count int // 本周期内
	Prior int // 相邻月份带入
}

// WorkerLoad 员工在本周期的负载与配额对比
type WorkerLoad struct {
	WorkerID string
	Name     string
	Quota    int
	Total    int
	Weeks    []WeekLoad
}

// TotalCells 格子总数
func (r *Result) TotalCells() int {
	return len(r.Assignments)
}

// Persistable 需要落库的格子（闭店格子不落库），顺序不变
func (r *Result) Persistable() []Assignment {
	out := make([]Assignment, 0, r.Filled+r.Unfilled)
	for _, a := range r.Assignments {
		if a.State != Closed {
			out = append(out, a)
		}
	}
	return out
}

// MarkCommitted 持久化成功后将已决格子置为 Committed
func (r *Result) MarkCommitted() {
	for i := range r.Assignments {
		switch r.Assignments[i].State {
		case Filled, Unfilled:
			r.Assignments[i].State = Committed
		}
	}
}

// buildLoads 按名册顺序汇总每人每周负载，周按首次出现顺序排列
func buildLoads(r *roster.Roster, assignments []Assignment, prior []PriorAssignment) []WorkerLoad {
	var weeks []calendar.WeekKey
	seenWeek := make(map[calendar.WeekKey]bool)
	for _, a := range assignments {
		k := calendar.WeekKeyOf(a.Cell.Date)
		if !seenWeek[k] {
			seenWeek[k] = true
			weeks = append(weeks, k)
		}
	}

	counts := make(map[string]map[calendar.WeekKey]int)
	totals := make(map[string]int)
	for _, a := range assignments {
		if !a.HasWorker() {
			continue
		}
		if counts[a.WorkerID] == nil {
			counts[a.WorkerID] = make(map[calendar.WeekKey]int)
		}
		counts[a.WorkerID][calendar.WeekKeyOf(a.Cell.Date)]++
		totals[a.WorkerID]++
	}

	priorCounts := make(map[string]map[calendar.WeekKey]int)
	seenPrior := make(map[string]bool)
	for _, p := range prior {
		k := calendar.WeekKeyOf(p.Date)
		dedup := p.WorkerID + "|" + calendar.FormatDate(p.Date)
		if !seenWeek[k] || seenPrior[dedup] {
			continue
		}
		seenPrior[dedup] = true
		if priorCounts[p.WorkerID] == nil {
			priorCounts[p.WorkerID] = make(map[calendar.WeekKey]int)
		}
		priorCounts[p.WorkerID][k]++
	}

	loads := make([]WorkerLoad, 0, r.Len())
	for _, w := range r.Workers() {
		l := WorkerLoad{
			WorkerID: w.ID,
			Name:     w.Name,
			Quota:    w.WeeklyQuota,
			Total:    totals[w.ID],
			Weeks:    make([]WeekLoad, 0, len(weeks)),
		}
		for _, k := range weeks {
			l.Weeks = append(l.Weeks, WeekLoad{Week: k, Count: counts[w.ID][k], Prior: priorCounts[w.ID][k]})
		}
		loads = append(loads, l)
	}
	return loads
}
