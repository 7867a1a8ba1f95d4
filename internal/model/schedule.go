package model

import (
	"time"

	"gorm.io/gorm"
)

// 排班明细状态
const (
	AssignmentFilled   = "filled"
	AssignmentUnfilled = "unfilled"
)

// ScheduleStatusGenerated 排班表唯一状态：生成即不可变
const ScheduleStatusGenerated = "generated"

// Schedule 排班表，对应 schedules
// (shop_id, month, year) 唯一，保证同一店铺同一月份只生成一次
type Schedule struct {
	ScheduleID    string `gorm:"type:uuid;primaryKey"                                  json:"schedule_id"`
	ShopID        string `gorm:"type:uuid;not null;uniqueIndex:uq_schedules_shop_period,priority:1" json:"shop_id"`
	Month         int    `gorm:"type:smallint;not null;uniqueIndex:uq_schedules_shop_period,priority:2" json:"month"`
	Year          int    `gorm:"type:smallint;not null;uniqueIndex:uq_schedules_shop_period,priority:3" json:"year"`
	Status        string `gorm:"type:varchar(20);not null;default:'generated'"        json:"status"`
	TotalCells    int    `gorm:"not null;default:0"                                    json:"total_cells"`
	FilledCount   int    `gorm:"not null;default:0"                                    json:"filled_count"`
	UnfilledCount int    `gorm:"not null;default:0"                                    json:"unfilled_count"`
	ClosedCount   int    `gorm:"not null;default:0"                                    json:"closed_count"`
	BaseModel

	// 关联
	Shop        *Shop                `gorm:"foreignKey:ShopID;references:ShopID" json:"shop,omitempty"`
	Assignments []ScheduleAssignment `gorm:"foreignKey:ScheduleID"                json:"assignments,omitempty"`
}

// TableName 指定表名
func (Schedule) TableName() string { return "schedules" }

// BeforeCreate 生成主键
func (s *Schedule) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ScheduleID)
	return nil
}

// ScheduleAssignment 排班明细表，对应 schedule_assignments
// 每个 (schedule_id, work_date, shift_slot) 只有一行；未排到人时 worker_id 为 NULL
type ScheduleAssignment struct {
	AssignmentID string    `gorm:"type:uuid;primaryKey"                                         json:"assignment_id"`
	ScheduleID   string    `gorm:"type:uuid;not null;uniqueIndex:uq_assignments_cell,priority:1" json:"schedule_id"`
	WorkDate     time.Time `gorm:"type:date;not null;uniqueIndex:uq_assignments_cell,priority:2" json:"work_date"`
	ShiftSlot    string    `gorm:"type:varchar(50);not null;uniqueIndex:uq_assignments_cell,priority:3" json:"shift_slot"`
	StartTime    string    `gorm:"type:varchar(5);not null"                                     json:"start_time"`
	EndTime      string    `gorm:"type:varchar(5);not null"                                     json:"end_time"`
	WorkerID     *string   `gorm:"type:uuid;index"                                              json:"worker_id,omitempty"`
	Status       string    `gorm:"type:varchar(20);not null"                                    json:"status"` // filled | unfilled
	OverQuota    bool      `gorm:"not null;default:false"                                       json:"over_quota"`
	Seq          int       `gorm:"not null"                                                     json:"seq"`
	CreatedAt    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"                           json:"created_at"`

	// 关联
	Worker *Worker `gorm:"foreignKey:WorkerID;references:WorkerID" json:"worker,omitempty"`
}

// TableName 指定表名
func (ScheduleAssignment) TableName() string { return "schedule_assignments" }

// BeforeCreate 生成主键
func (a *ScheduleAssignment) BeforeCreate(*gorm.DB) error {
	ensureID(&a.AssignmentID)
	return nil
}
