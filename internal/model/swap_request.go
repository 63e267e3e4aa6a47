package model

// SwapRequest 换班申请表 — 对应 swap_requests
// 状态只允许 PENDING→ACCEPTED 或 PENDING→REJECTED，处理后不再删除（审计保留）
type SwapRequest struct {
	SwapRequestID   string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"swap_request_id"`
	RequesterID     string `gorm:"type:uuid;not null"                             json:"requester_id"`
	RecipientID     string `gorm:"type:uuid;not null"                             json:"recipient_id"`
	OfferedSlotID   string `gorm:"type:uuid;not null"                             json:"offered_slot_id"`
	RequestedSlotID string `gorm:"type:uuid;not null"                             json:"requested_slot_id"`
	Status          string `gorm:"type:varchar(20);not null;default:'PENDING'"    json:"status"` // PENDING | ACCEPTED | REJECTED
	BaseModel

	// 关联
	Requester     *User `gorm:"foreignKey:RequesterID;references:UserID"     json:"requester,omitempty"`
	Recipient     *User `gorm:"foreignKey:RecipientID;references:UserID"     json:"recipient,omitempty"`
	OfferedSlot   *Slot `gorm:"foreignKey:OfferedSlotID;references:SlotID"   json:"offered_slot,omitempty"`
	RequestedSlot *Slot `gorm:"foreignKey:RequestedSlotID;references:SlotID" json:"requested_slot,omitempty"`
}

// TableName 指定表名
func (SwapRequest) TableName() string { return "swap_requests" }

// IsPending 判断申请是否仍待处理
func (r *SwapRequest) IsPending() bool { return r.Status == SwapStatusPending }
