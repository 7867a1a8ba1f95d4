package scheduler

import (
	"time"

	"github.com/Jaaz7/kgag-scheduler/internal/calendar"
	"github.com/Jaaz7/kgag-scheduler/internal/roster"
)

// State 格子状态：Pending → Filled | Unfilled | Closed → Committed
type State int

const (
	Pending State = iota
	Filled
	Unfilled
	Closed
	Committed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Filled:
		return "filled"
	case Unfilled:
		return "unfilled"
	case Closed:
		return "closed"
	case Committed:
		return "committed"
	default:
		return "unknown"
	}
}

// Assignment 一个格子的排班结果
type Assignment struct {
	Cell      calendar.Cell
	WorkerID  string // 未排到人时为空
	State     State
	OverQuota bool
	Seq       int // 格子在输入中的顺序
}

// HasWorker 是否排到了人（提交后状态为 Committed 时仍可判断）
func (a Assignment) HasWorker() bool {
	return a.WorkerID != ""
}

// PriorAssignment 周期外已提交的排班，用于跨月 ISO 周的配额计算
type PriorAssignment struct {
	WorkerID string
	Date     time.Time
}

// QuotaViolation 超配额记录（仅在允许超配额时产生）
type QuotaViolation struct {
	WorkerID string
	Week     calendar.WeekKey
	Date     time.Time
	Slot     string
	Count    int
	Quota    int
}

// Options 引擎选项
type Options struct {
	// AllowQuotaOverflow 无合格人选时，允许仅因配额受限的员工超额顶班
	AllowQuotaOverflow bool
	// Prior 相邻月份已提交的排班
	Prior []PriorAssignment
}

// Engine 贪心排班引擎
type Engine struct {
	opts Options
}

// New 创建排班引擎
func New(opts Options) *Engine {
	return &Engine{opts: opts}
}

// Run 按格子顺序逐一贪心分配，总是返回结果
func (e *Engine) Run(r *roster.Roster, cells []calendar.Cell) *Result {
	usage := NewUsage()
	for _, p := range e.opts.Prior {
		if _, ok := r.Get(p.WorkerID); ok {
			usage.seed(p.WorkerID, p.Date)
		}
	}

	res := &Result{Assignments: make([]Assignment, 0, len(cells))}
	for i, cell := range cells {
		a := Assignment{Cell: cell, State: Pending, Seq: i}

		if cell.Required == 0 {
			a.State = Closed
			res.Closed++
			res.Assignments = append(res.Assignments, a)
			continue
		}

		week := calendar.WeekKeyOf(cell.Date)
		if best, ok := e.pick(r, cell, usage, week); ok {
			a.WorkerID = best.Worker.ID
			a.State = Filled
			usage.Book(best.Worker.ID, cell.Date, false)
			res.Filled++
		} else if best, ok := e.pickOverflow(r, cell, usage, week); ok {
			a.WorkerID = best.Worker.ID
			a.State = Filled
			a.OverQuota = true
			usage.Book(best.Worker.ID, cell.Date, true)
			res.Filled++
			res.Violations = append(res.Violations, QuotaViolation{
				WorkerID: best.Worker.ID,
				Week:     week,
				Date:     cell.Date,
				Slot:     cell.Slot.Name,
				Count:    usage.WeekCount(best.Worker.ID, week),
				Quota:    best.Worker.WeeklyQuota,
			})
		} else {
			a.State = Unfilled
			res.Unfilled++
		}
		res.Assignments = append(res.Assignments, a)
	}

	res.Loads = buildLoads(r, res.Assignments, e.opts.Prior)
	return res
}

func (e *Engine) pick(r *roster.Roster, cell calendar.Cell, u *Usage, week calendar.WeekKey) (Candidate, bool) {
	var best Candidate
	found := false
	for _, w := range r.Workers() {
		if !IsEligible(w, cell, u) {
			continue
		}
		c := newCandidate(w, cell, u, week)
		if !found || Less(c, best) {
			best, found = c, true
		}
	}
	return best, found
}

// pickOverflow 仅考虑当天未排班的员工，已排班者永不重复排
func (e *Engine) pickOverflow(r *roster.Roster, cell calendar.Cell, u *Usage, week calendar.WeekKey) (Candidate, bool) {
	if !e.opts.AllowQuotaOverflow {
		return Candidate{}, false
	}
	var best Candidate
	found := false
	for _, w := range r.Workers() {
		if u.Booked(w.ID, cell.Date) {
			continue
		}
		c := newCandidate(w, cell, u, week)
		c.Overflow = u.Overflow(w.ID)
		if !found || Less(c, best) {
			best, found = c, true
		}
	}
	return best, found
}
