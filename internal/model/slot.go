package model

import "time"

// Slot 日历时段表 — 对应 slots
// 同一时段任何时刻有且仅有一个 OwnerID；所有权变更只能由已接受的换班产生
type Slot struct {
	SlotID    string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"slot_id"`
	OwnerID   string    `gorm:"type:uuid;not null"                             json:"owner_id"`
	Title     string    `gorm:"type:varchar(200);not null"                     json:"title"`
	StartTime time.Time `gorm:"not null"                                       json:"start_time"`
	EndTime   time.Time `gorm:"not null"                                       json:"end_time"`
	Status    string    `gorm:"type:varchar(20);not null;default:'BUSY'"       json:"status"` // BUSY | SWAPPABLE
	SoftDeleteModel

	// 关联
	Owner *User `gorm:"foreignKey:OwnerID;references:UserID" json:"owner,omitempty"`
}

// TableName 指定表名
func (Slot) TableName() string { return "slots" }

// IsSwappable 判断时段当前是否可换
func (s *Slot) IsSwappable() bool { return s.Status == SlotStatusSwappable }
