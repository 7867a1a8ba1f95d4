package model

import (
	"time"

	"gorm.io/gorm"
)

// ShopClosure 闭店规则表，对应 shop_closures
// RRule 命中的日期该班次不排人；ShiftSlot 为空表示全部班次
type ShopClosure struct {
	ClosureID string     `gorm:"type:uuid;primaryKey"        json:"closure_id"`
	ShopID    string     `gorm:"type:uuid;not null;index"    json:"shop_id"`
	ShiftSlot string     `gorm:"type:varchar(50)"            json:"shift_slot,omitempty"`
	RRule     string     `gorm:"type:varchar(500);not null"  json:"rrule"`
	StartsOn  *time.Time `gorm:"type:date"                   json:"starts_on,omitempty"`
	Reason    string     `gorm:"type:varchar(200)"           json:"reason,omitempty"`
	BaseModel
}

// TableName 指定表名
func (ShopClosure) TableName() string { return "shop_closures" }

// BeforeCreate 生成主键
func (c *ShopClosure) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ClosureID)
	return nil
}
