package model

import "gorm.io/gorm"

// Worker 员工档案表，对应 workers
type Worker struct {
	WorkerID         string      `gorm:"type:uuid;primaryKey"                   json:"worker_id"`
	ShopID           string      `gorm:"type:uuid;not null;index"               json:"shop_id"`
	Name             string      `gorm:"type:varchar(100);not null"             json:"name"`
	WeeklyQuota      int         `gorm:"type:smallint;not null;default:5"       json:"weekly_quota"` // 1-7，每周工作天数
	ShiftPreferences StringArray `gorm:"not null"                               json:"shift_preferences"` // 班次名称，按优先级
	DayPreferences   StringArray `gorm:"not null"                               json:"day_preferences"`   // Mon..Sun，按优先级
	IsActive         bool        `gorm:"not null;default:true"                  json:"is_active"`
	SortOrder        int         `gorm:"not null;default:0"                     json:"sort_order"` // 名册顺序，排班平局时靠前者优先
	VersionedModel

	// 关联
	Shop *Shop `gorm:"foreignKey:ShopID;references:ShopID" json:"shop,omitempty"`
}

// TableName 指定表名
func (Worker) TableName() string { return "workers" }

// BeforeCreate 生成主键
func (w *Worker) BeforeCreate(*gorm.DB) error {
	ensureID(&w.WorkerID)
	return nil
}
