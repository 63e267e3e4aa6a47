package dto

import "time"

// ── 时段模块 DTO ──

// CreateSlotRequest 创建时段请求
// Status 省略时默认 BUSY
type CreateSlotRequest struct {
	Title     string    `json:"title"      binding:"required,min=1,max=200"`
	StartTime time.Time `json:"start_time" binding:"required"`
	EndTime   time.Time `json:"end_time"   binding:"required"`
	Status    string    `json:"status"     binding:"omitempty,oneof=BUSY SWAPPABLE"`
}

// UpdateSlotRequest 更新时段请求
type UpdateSlotRequest struct {
	Title     *string    `json:"title"      binding:"omitempty,min=1,max=200"`
	StartTime *time.Time `json:"start_time"`
	EndTime   *time.Time `json:"end_time"`
	Status    *string    `json:"status"     binding:"omitempty,oneof=BUSY SWAPPABLE"`
}

// ImportSlotsRequest ICS 日历导入请求
// URL 与 Content 二选一，URL 优先
type ImportSlotsRequest struct {
	URL     string `json:"url"     binding:"omitempty,url"`
	Content string `json:"content"`
}

// ImportSlotsResponse ICS 日历导入结果
type ImportSlotsResponse struct {
	Imported int            `json:"imported"`
	Slots    []SlotResponse `json:"slots"`
}

// SlotResponse 时段信息响应
type SlotResponse struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	StartTime string     `json:"start_time"`
	EndTime   string     `json:"end_time"`
	Status    string     `json:"status"`
	Owner     *UserBrief `json:"owner,omitempty"`
	CreatedAt string     `json:"created_at"`
	UpdatedAt string     `json:"updated_at"`
}
