package handler

import (
	"github.com/sarthakk1890/Schedule-slot-swapper/internal/service"
	"github.com/sarthakk1890/Schedule-slot-swapper/pkg/jwt"
)

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth         *AuthHandler
	Slot         *SlotHandler
	Swap         *SwapHandler
	Notification *NotificationHandler
	Export       *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service, jwtMgr *jwt.Manager) *Handler {
	return &Handler{
		Auth:         NewAuthHandler(svc.Auth, jwtMgr),
		Slot:         NewSlotHandler(svc.Slot),
		Swap:         NewSwapHandler(svc.Swap),
		Notification: NewNotificationHandler(svc.Notification),
		Export:       NewExportHandler(svc.Export),
	}
}
