package service

import (
	"go.uber.org/zap"

	"github.com/sarthakk1890/Schedule-slot-swapper/config"
	"github.com/sarthakk1890/Schedule-slot-swapper/internal/repository"
	"github.com/sarthakk1890/Schedule-slot-swapper/pkg/jwt"
	"github.com/sarthakk1890/Schedule-slot-swapper/pkg/redis"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Auth         AuthService
	Slot         SlotService
	Swap         SwapService
	Notification NotificationService
	Export       ExportService
}

// NewService 创建 Service 聚合
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	rdb *redis.Client,
	notifier Notifier,
	logger *zap.Logger,
) *Service {
	return &Service{
		Auth:         NewAuthService(cfg, repo, jwtMgr, rdb, logger),
		Slot:         NewSlotService(repo, notifier, logger),
		Swap:         NewSwapService(repo, notifier, logger),
		Notification: NewNotificationService(repo, logger),
		Export:       NewExportService(repo, logger),
	}
}
