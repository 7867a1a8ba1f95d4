package model

import "gorm.io/gorm"

// ShiftSlot 班次配置表，对应 shift_slots
type ShiftSlot struct {
	ShiftSlotID string  `gorm:"type:uuid;primaryKey"          json:"shift_slot_id"`
	ShopID      *string `gorm:"type:uuid;index"               json:"shop_id,omitempty"` // NULL 表示全局默认
	Name        string  `gorm:"type:varchar(50);not null"     json:"name"`
	StartTime   string  `gorm:"type:varchar(5);not null"      json:"start_time"` // HH:MM
	EndTime     string  `gorm:"type:varchar(5);not null"      json:"end_time"`
	Position    int     `gorm:"type:smallint;not null"        json:"position"` // 同日内的排班顺序
	IsActive    bool    `gorm:"not null;default:true"         json:"is_active"`
	VersionedModel
}

// TableName 指定表名
func (ShiftSlot) TableName() string { return "shift_slots" }

// BeforeCreate 生成主键
func (s *ShiftSlot) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ShiftSlotID)
	return nil
}
