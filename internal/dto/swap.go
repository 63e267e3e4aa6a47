package dto

// ── 换班模块 DTO ──

// CreateSwapRequest 发起换班申请请求
type CreateSwapRequest struct {
	OfferedSlotID   string `json:"offered_slot_id"   binding:"required,uuid"`
	RequestedSlotID string `json:"requested_slot_id" binding:"required,uuid"`
}

// RespondSwapRequest 响应换班申请请求
// Accept 使用指针以区分 false 与缺失
type RespondSwapRequest struct {
	Accept *bool `json:"accept" binding:"required"`
}

// SwapRequestResponse 换班申请响应
type SwapRequestResponse struct {
	ID            string        `json:"id"`
	Status        string        `json:"status"`
	Requester     *UserBrief    `json:"requester,omitempty"`
	Recipient     *UserBrief    `json:"recipient,omitempty"`
	OfferedSlot   *SlotResponse `json:"offered_slot,omitempty"`
	RequestedSlot *SlotResponse `json:"requested_slot,omitempty"`
	CreatedAt     string        `json:"created_at"`
	UpdatedAt     string        `json:"updated_at"`
}
