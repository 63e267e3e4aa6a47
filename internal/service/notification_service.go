package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/sarthakk1890/Schedule-slot-swapper/internal/dto"
	"github.com/sarthakk1890/Schedule-slot-swapper/internal/model"
	"github.com/sarthakk1890/Schedule-slot-swapper/internal/repository"
)

// ── 通知模块业务错误 ──

var ErrNotificationNotFound = errors.New("通知不存在")

// NotificationService 站内通知业务接口
type NotificationService interface {
	List(ctx context.Context, userID string, onlyUnread bool) (*dto.NotificationListResponse, error)
	MarkRead(ctx context.Context, notificationID, userID string) error
	MarkAllRead(ctx context.Context, userID string) error
}

type notificationService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewNotificationService 创建 NotificationService 实例
func NewNotificationService(repo *repository.Repository, logger *zap.Logger) NotificationService {
	return &notificationService{repo: repo, logger: logger}
}

// ────────────────────── List ──────────────────────

func (s *notificationService) List(ctx context.Context, userID string, onlyUnread bool) (*dto.NotificationListResponse, error) {
	list, err := s.repo.Notification.ListByUser(ctx, userID, onlyUnread)
	if err != nil {
		s.logger.Error("查询通知列表失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	unread, err := s.repo.Notification.CountUnread(ctx, userID)
	if err != nil {
		s.logger.Error("统计未读通知失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	resp := &dto.NotificationListResponse{
		List:        make([]dto.NotificationResponse, 0, len(list)),
		UnreadCount: unread,
	}
	for i := range list {
		resp.List = append(resp.List, *toNotificationResponse(&list[i]))
	}
	return resp, nil
}

// ────────────────────── MarkRead ──────────────────────

// MarkRead 将单条通知置为已读；归属校验并入 WHERE 条件，
// 他人的通知与不存在同样返回 ErrNotificationNotFound
func (s *notificationService) MarkRead(ctx context.Context, notificationID, userID string) error {
	affected, err := s.repo.Notification.MarkRead(ctx, notificationID, userID)
	if err != nil {
		s.logger.Error("标记通知已读失败", zap.String("id", notificationID), zap.Error(err))
		return err
	}
	if affected == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

// ────────────────────── MarkAllRead ──────────────────────

func (s *notificationService) MarkAllRead(ctx context.Context, userID string) error {
	if err := s.repo.Notification.MarkAllRead(ctx, userID); err != nil {
		s.logger.Error("全部标记已读失败", zap.String("user_id", userID), zap.Error(err))
		return err
	}
	return nil
}

func toNotificationResponse(n *model.Notification) *dto.NotificationResponse {
	return &dto.NotificationResponse{
		ID:          n.NotificationID,
		Type:        n.Type,
		Title:       n.Title,
		Content:     n.Content,
		IsRead:      n.IsRead,
		RelatedType: n.RelatedType,
		RelatedID:   n.RelatedID,
		CreatedAt:   n.CreatedAt.Format(time.RFC3339),
	}
}
