package dto

// ── 店铺模块 DTO ──

// CreateShopRequest 创建店铺
type CreateShopRequest struct {
	Name        string `json:"name"        binding:"required,min=2,max=100"`
	Description string `json:"description" binding:"omitempty,max=500"`
}

// UpdateShopRequest 更新店铺
type UpdateShopRequest struct {
	Name        *string `json:"name"        binding:"omitempty,min=2,max=100"`
	Description *string `json:"description" binding:"omitempty,max=500"`
	IsActive    *bool   `json:"is_active"`
	Version     int     `json:"version"     binding:"required,min=1"`
}

// ShopResponse 店铺响应
type ShopResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	IsActive    bool   `json:"is_active"`
	Version     int    `json:"version"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// ── 班次 ──

// CreateShiftSlotRequest 创建班次
type CreateShiftSlotRequest struct {
	ShopID    *string `json:"shop_id"    binding:"omitempty,uuid"` // 为空表示全局默认
	Name      string  `json:"name"       binding:"required,min=2,max=50"`
	StartTime string  `json:"start_time" binding:"required,len=5"` // "09:00"
	EndTime   string  `json:"end_time"   binding:"required,len=5"`
	Position  int     `json:"position"   binding:"required,min=1,max=20"`
}

// UpdateShiftSlotRequest 更新班次
type UpdateShiftSlotRequest struct {
	StartTime *string `json:"start_time" binding:"omitempty,len=5"`
	EndTime   *string `json:"end_time"   binding:"omitempty,len=5"`
	Position  *int    `json:"position"   binding:"omitempty,min=1,max=20"`
	IsActive  *bool   `json:"is_active"`
	Version   int     `json:"version"    binding:"required,min=1"`
}

// ShiftSlotListRequest 班次列表查询参数
type ShiftSlotListRequest struct {
	ShopID string `form:"shop_id" binding:"omitempty,uuid"`
}

// ShiftSlotResponse 班次响应
type ShiftSlotResponse struct {
	ID        string  `json:"id"`
	ShopID    *string `json:"shop_id,omitempty"`
	Name      string  `json:"name"`
	StartTime string  `json:"start_time"`
	EndTime   string  `json:"end_time"`
	Position  int     `json:"position"`
	IsActive  bool    `json:"is_active"`
	Version   int     `json:"version"`
}

// ── 闭店规则 ──

// CreateClosureRequest 创建闭店规则
type CreateClosureRequest struct {
	ShiftSlot string `json:"shift_slot" binding:"omitempty,max=50"`
	RRule     string `json:"rrule"      binding:"required,max=500"` // FREQ=WEEKLY;BYDAY=SU
	StartsOn  string `json:"starts_on"  binding:"omitempty,datetime=2006-01-02"`
	Reason    string `json:"reason"     binding:"omitempty,max=200"`
}

// ClosureResponse 闭店规则响应
type ClosureResponse struct {
	ID        string `json:"id"`
	ShopID    string `json:"shop_id"`
	ShiftSlot string `json:"shift_slot,omitempty"`
	RRule     string `json:"rrule"`
	StartsOn  string `json:"starts_on,omitempty"`
	Reason    string `json:"reason,omitempty"`
	CreatedAt string `json:"created_at"`
}
