// Package roster 将员工档案校验为排班引擎使用的只读名册
package roster

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/Jaaz7/kgag-scheduler/pkg/errors"
)

// MaxWeeklyQuota 每周最多工作天数
const MaxWeeklyQuota = 7

// WorkerRecord 员工档案原始数据（来自数据库或 YAML 导入）
type WorkerRecord struct {
	ID               string   `yaml:"id" json:"id" validate:"required"`
	Name             string   `yaml:"name" json:"name" validate:"max=100"`
	WeeklyQuota      int      `yaml:"weekly_quota" json:"weekly_quota" validate:"min=1,max=7"`
	ShiftPreferences []string `yaml:"shift_preferences" json:"shift_preferences"`
	DayPreferences   []string `yaml:"day_preferences" json:"day_preferences"`
}

// Worker 校验后的员工，一次排班内不可变
type Worker struct {
	ID          string
	Name        string
	WeeklyQuota int
	// ShiftPrefs 班次偏好，按优先级排序；为空表示无偏好
	ShiftPrefs []string
	// DayPrefs 星期偏好，按优先级排序；为空表示无偏好
	DayPrefs []time.Weekday
	// Index 名册中的位置，用作最终的平局裁决
	Index int
}

// ShiftRank 班次在偏好列表中的名次（0 为最高）
func (w *Worker) ShiftRank(slot string) (int, bool) {
	for i, s := range w.ShiftPrefs {
		if s == slot {
			return i, true
		}
	}
	return 0, false
}

// DayRank 星期在偏好列表中的名次（0 为最高）
func (w *Worker) DayRank(d time.Weekday) (int, bool) {
	for i, p := range w.DayPrefs {
		if p == d {
			return i, true
		}
	}
	return 0, false
}

// Roster 有序名册，顺序即录入顺序
type Roster struct {
	workers []*Worker
	byID    map[string]*Worker
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// 错误字段名使用 json 标签，便于前端定位
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// LoadRoster 校验员工档案并构建名册
// slotNames 为已配置的班次名称，班次偏好必须落在其中
func LoadRoster(records []WorkerRecord, slotNames []string) (*Roster, error) {
	known := make(map[string]bool, len(slotNames))
	for _, s := range slotNames {
		known[s] = true
	}

	r := &Roster{
		workers: make([]*Worker, 0, len(records)),
		byID:    make(map[string]*Worker, len(records)),
	}
	for _, rec := range records {
		w, err := buildWorker(rec, known)
		if err != nil {
			return nil, err
		}
		if _, dup := r.byID[w.ID]; dup {
			return nil, apperrors.NewValidationError(w.ID, "id", "员工 ID 重复")
		}
		w.Index = len(r.workers)
		r.workers = append(r.workers, w)
		r.byID[w.ID] = w
	}
	return r, nil
}

func buildWorker(rec WorkerRecord, knownSlots map[string]bool) (*Worker, error) {
	if err := validate.Struct(rec); err != nil {
		if fieldErrs, ok := err.(validator.ValidationErrors); ok && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return nil, apperrors.NewValidationError(rec.ID, fe.Field(), describe(fe))
		}
		return nil, apperrors.NewValidationError(rec.ID, "", err.Error())
	}

	w := &Worker{ID: rec.ID, Name: rec.Name, WeeklyQuota: rec.WeeklyQuota}

	seenShift := make(map[string]bool, len(rec.ShiftPreferences))
	for _, s := range rec.ShiftPreferences {
		s = strings.TrimSpace(s)
		if !knownSlots[s] {
			return nil, apperrors.NewValidationError(rec.ID, "shift_preferences", fmt.Sprintf("未知班次 %q", s))
		}
		// 重复项保留首次出现的名次
		if seenShift[s] {
			continue
		}
		seenShift[s] = true
		w.ShiftPrefs = append(w.ShiftPrefs, s)
	}

	seenDay := make(map[time.Weekday]bool, len(rec.DayPreferences))
	for _, name := range rec.DayPreferences {
		d, err := ParseWeekday(name)
		if err != nil {
			return nil, apperrors.NewValidationError(rec.ID, "day_preferences", err.Error())
		}
		if seenDay[d] {
			continue
		}
		seenDay[d] = true
		w.DayPrefs = append(w.DayPrefs, d)
	}
	return w, nil
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "不能为空"
	case "min", "max":
		if fe.Field() == "weekly_quota" {
			return fmt.Sprintf("每周天数 %v 必须在 1-%d 之间", fe.Value(), MaxWeeklyQuota)
		}
		return fmt.Sprintf("超出范围 (%s=%s)", fe.Tag(), fe.Param())
	default:
		return fmt.Sprintf("校验规则 %s 未通过", fe.Tag())
	}
}

// Len 名册人数
func (r *Roster) Len() int { return len(r.workers) }

// Workers 按录入顺序返回员工
func (r *Roster) Workers() []*Worker { return r.workers }

// Get 按 ID 查找员工
func (r *Roster) Get(id string) (*Worker, bool) {
	w, ok := r.byID[id]
	return w, ok
}

// ── 星期名称 ──

var weekdayNames = map[string]time.Weekday{
	"mon": time.Monday, "monday": time.Monday,
	"tue": time.Tuesday, "tues": time.Tuesday, "tuesday": time.Tuesday,
	"wed": time.Wednesday, "wednesday": time.Wednesday,
	"thu": time.Thursday, "thur": time.Thursday, "thurs": time.Thursday, "thursday": time.Thursday,
	"fri": time.Friday, "friday": time.Friday,
	"sat": time.Saturday, "saturday": time.Saturday,
	"sun": time.Sunday, "sunday": time.Sunday,
}

// ParseWeekday 解析星期名称（Mon / Monday，不区分大小写）
func ParseWeekday(name string) (time.Weekday, error) {
	d, ok := weekdayNames[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("未知星期 %q", name)
	}
	return d, nil
}

// WeekdayShort 星期的三字母缩写，与 ParseWeekday 互逆
func WeekdayShort(d time.Weekday) string {
	return d.String()[:3]
}
