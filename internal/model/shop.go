package model

import "gorm.io/gorm"

// Shop 店铺表，对应 shops
type Shop struct {
	ShopID      string `gorm:"type:uuid;primaryKey"                     json:"shop_id"`
	Name        string `gorm:"type:varchar(100);not null;uniqueIndex"   json:"name"`
	Description string `gorm:"type:text"                                json:"description,omitempty"`
	IsActive    bool   `gorm:"not null;default:true"                    json:"is_active"`
	VersionedModel
}

// TableName 指定表名
func (Shop) TableName() string { return "shops" }

// BeforeCreate 生成主键
func (s *Shop) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ShopID)
	return nil
}
