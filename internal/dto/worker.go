package dto

import "github.com/Jaaz7/kgag-scheduler/internal/roster"

// ── 员工模块 DTO ──

// CreateWorkerRequest 创建员工档案
type CreateWorkerRequest struct {
	ShopID           string   `json:"shop_id"           binding:"required,uuid"`
	Name             string   `json:"name"              binding:"required,min=1,max=100"`
	WeeklyQuota      int      `json:"weekly_quota"      binding:"required,min=1,max=7"`
	ShiftPreferences []string `json:"shift_preferences" binding:"omitempty,dive,min=1,max=50"`
	DayPreferences   []string `json:"day_preferences"   binding:"omitempty,dive,min=3,max=9"`
}

// UpdateWorkerRequest 更新员工档案（管理员）
type UpdateWorkerRequest struct {
	Name        *string `json:"name"         binding:"omitempty,min=1,max=100"`
	WeeklyQuota *int    `json:"weekly_quota" binding:"omitempty,min=1,max=7"`
	IsActive    *bool   `json:"is_active"`
	SortOrder   *int    `json:"sort_order"   binding:"omitempty,min=0"`
	Version     int     `json:"version"      binding:"required,min=1"`
}

// UpdatePreferencesRequest 员工更新自己的偏好
type UpdatePreferencesRequest struct {
	WeeklyQuota      *int     `json:"weekly_quota"      binding:"omitempty,min=1,max=7"`
	ShiftPreferences []string `json:"shift_preferences" binding:"omitempty,dive,min=1,max=50"`
	DayPreferences   []string `json:"day_preferences"   binding:"omitempty,dive,min=3,max=9"`
	Version          int      `json:"version"           binding:"required,min=1"`
}

// WorkerListRequest 员工列表查询参数
type WorkerListRequest struct {
	ShopID          string `form:"shop_id"          binding:"required,uuid"`
	IncludeInactive bool   `form:"include_inactive"`
}

// WorkerResponse 员工档案响应
type WorkerResponse struct {
	ID               string   `json:"id"`
	ShopID           string   `json:"shop_id"`
	Name             string   `json:"name"`
	WeeklyQuota      int      `json:"weekly_quota"`
	ShiftPreferences []string `json:"shift_preferences"`
	DayPreferences   []string `json:"day_preferences"`
	IsActive         bool     `json:"is_active"`
	SortOrder        int      `json:"sort_order"`
	Version          int      `json:"version"`
	CreatedAt        string   `json:"created_at"`
	UpdatedAt        string   `json:"updated_at"`
}

// ImportRosterResponse 名册导入结果
type ImportRosterResponse struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
}

// ImportRosterRequest 名册导入请求
type ImportRosterRequest struct {
	Workers []roster.WorkerRecord `json:"workers" binding:"required,min=1"`
}
