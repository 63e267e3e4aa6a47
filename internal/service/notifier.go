package service

import "github.com/sarthakk1890/Schedule-slot-swapper/internal/dto"

// ── 实时事件名（与前端约定一致）──

const (
	EventNewSwappableSlot      = "new-swappable-slot"       // 广播：新的可换时段
	EventSlotNoLongerSwappable = "slot-no-longer-swappable" // 广播：时段不再可换
	EventSwapRequestReceived   = "swap-request-received"    // 定向：收到换班申请
	EventNewSwapRequest        = "new-swap-request"         // 广播：市场列表刷新
	EventSwapRequestAccepted   = "swap-request-accepted"    // 定向：申请被接受
	EventSwapRequestRejected   = "swap-request-rejected"    // 定向：申请被拒绝
	EventSwapCompleted         = "swap-completed"           // 定向：换班完成（双方）
	EventSwapRequestUpdated    = "swap-request-updated"     // 广播：申请状态变更
)

// Notifier 实时通知发布接口（由 ws.Hub 实现）
// 推送为尽力而为：在事务提交之后调用，失败不回滚业务变更
type Notifier interface {
	// SendToUser 向指定用户的全部在线连接推送
	SendToUser(userID, event string, payload interface{})
	// Broadcast 向所有在线连接推送
	Broadcast(event string, payload interface{})
}

// SlotEventPayload 时段事件载荷
type SlotEventPayload struct {
	Slot    *dto.SlotResponse `json:"slot"`
	Message string            `json:"message,omitempty"`
}

// SlotRemovedPayload 时段下架事件载荷（仅携带 ID，客户端据此移除本地项）
type SlotRemovedPayload struct {
	SlotID  string `json:"slot_id"`
	Message string `json:"message,omitempty"`
}

// SwapEventPayload 换班申请事件载荷
type SwapEventPayload struct {
	SwapRequest *dto.SwapRequestResponse `json:"swap_request"`
	Message     string                   `json:"message,omitempty"`
}
