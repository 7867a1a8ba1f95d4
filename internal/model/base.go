package model

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// ── PostgreSQL TEXT[] 自定义类型 ──

// StringArray 对应 PostgreSQL TEXT[] 类型，编解码交给 pq.StringArray，
// 元素中的逗号、花括号、引号与反斜杠均按数组字面量规则转义。
// 非 PostgreSQL 方言以同样的数组字面量文本存入 text 列。
type StringArray []string

// Scan 解析 {a,"b,c"} 形式的数组字面量
func (a *StringArray) Scan(src interface{}) error {
	var arr pq.StringArray
	if err := arr.Scan(src); err != nil {
		return fmt.Errorf("StringArray.Scan: %w", err)
	}
	if arr == nil {
		*a = nil
		return nil
	}
	*a = StringArray(arr)
	return nil
}

// Value 序列化为数组字面量；nil 写为空数组，列为 NOT NULL
func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return "{}", nil
	}
	return pq.StringArray(a).Value()
}

// GormDBDataType PostgreSQL 使用 text[]，其余方言退化为 text
func (StringArray) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "text[]"
	}
	return "text"
}

// BaseModel 通用审计字段（所有业务模型嵌入）
type BaseModel struct {
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	CreatedBy *string   `gorm:"type:uuid"                          json:"created_by,omitempty"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	UpdatedBy *string   `gorm:"type:uuid"                          json:"updated_by,omitempty"`
}

// SoftDeleteModel 支持软删除的审计字段
type SoftDeleteModel struct {
	BaseModel
	DeletedAt gorm.DeletedAt `gorm:"index"    json:"deleted_at,omitempty"`
	DeletedBy *string        `gorm:"type:uuid" json:"deleted_by,omitempty"`
}

// VersionedModel 支持乐观锁的软删除模型
type VersionedModel struct {
	SoftDeleteModel
	Version int `gorm:"not null;default:1" json:"version"`
}

// ensureID 主键为空时生成 UUID（不依赖数据库 gen_random_uuid，SQLite 同样适用）
func ensureID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

// All 返回需要 AutoMigrate 的模型（SQLite 开发模式）
func All() []interface{} {
	return []interface{}{
		&Shop{},
		&Worker{},
		&ShiftSlot{},
		&ShopClosure{},
		&Schedule{},
		&ScheduleAssignment{},
	}
}
