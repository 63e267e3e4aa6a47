package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/sarthakk1890/Schedule-slot-swapper/internal/model"
	"github.com/sarthakk1890/Schedule-slot-swapper/internal/repository"
)

func setupNotificationTest() (NotificationService, *mockNotificationRepo) {
	userRepo := newMockUserRepo()
	slotRepo := newMockSlotRepo()
	notifRepo := newMockNotificationRepo()
	repo := &repository.Repository{
		User:         userRepo,
		Slot:         slotRepo,
		SwapRequest:  newMockSwapRequestRepo(userRepo, slotRepo),
		Notification: notifRepo,
	}
	return NewNotificationService(repo, zap.NewNop()), notifRepo
}

func addNotification(t *testing.T, repo *mockNotificationRepo, userID, title string, read bool) string {
	t.Helper()
	n := &model.Notification{
		UserID:  userID,
		Type:    "swap",
		Title:   title,
		Content: "内容",
		IsRead:  read,
	}
	if err := repo.Create(context.Background(), n); err != nil {
		t.Fatalf("创建通知应成功: %v", err)
	}
	return n.NotificationID
}

func TestNotificationList(t *testing.T) {
	svc, repo := setupNotificationTest()
	addNotification(t, repo, "alice", "未读1", false)
	addNotification(t, repo, "alice", "已读", true)
	addNotification(t, repo, "alice", "未读2", false)
	addNotification(t, repo, "bob", "他人的", false)

	resp, err := svc.List(context.Background(), "alice", false)
	if err != nil {
		t.Fatalf("List 应成功: %v", err)
	}
	if len(resp.List) != 3 {
		t.Errorf("期望 3 条通知，实际 %d", len(resp.List))
	}
	if resp.UnreadCount != 2 {
		t.Errorf("期望未读数 2，实际 %d", resp.UnreadCount)
	}
}

func TestNotificationList_OnlyUnread(t *testing.T) {
	svc, repo := setupNotificationTest()
	addNotification(t, repo, "alice", "未读", false)
	addNotification(t, repo, "alice", "已读", true)

	resp, err := svc.List(context.Background(), "alice", true)
	if err != nil {
		t.Fatalf("List 应成功: %v", err)
	}
	if len(resp.List) != 1 || resp.List[0].Title != "未读" {
		t.Errorf("仅应返回未读通知，实际: %+v", resp.List)
	}
	if resp.UnreadCount != 1 {
		t.Errorf("期望未读数 1，实际 %d", resp.UnreadCount)
	}
}

func TestNotificationList_Empty(t *testing.T) {
	svc, _ := setupNotificationTest()

	resp, err := svc.List(context.Background(), "alice", false)
	if err != nil {
		t.Fatalf("List 应成功: %v", err)
	}
	// 空列表序列化为 [] 而非 null
	if resp.List == nil {
		t.Error("空列表应为非 nil 切片")
	}
	if resp.UnreadCount != 0 {
		t.Errorf("期望未读数 0，实际 %d", resp.UnreadCount)
	}
}

func TestMarkRead(t *testing.T) {
	svc, repo := setupNotificationTest()
	id := addNotification(t, repo, "alice", "未读", false)

	if err := svc.MarkRead(context.Background(), id, "alice"); err != nil {
		t.Fatalf("MarkRead 应成功: %v", err)
	}

	resp, _ := svc.List(context.Background(), "alice", false)
	if resp.UnreadCount != 0 {
		t.Errorf("标记后未读数应为 0，实际 %d", resp.UnreadCount)
	}
}

func TestMarkRead_NotFound(t *testing.T) {
	svc, _ := setupNotificationTest()

	err := svc.MarkRead(context.Background(), "missing", "alice")
	if !errors.Is(err, ErrNotificationNotFound) {
		t.Errorf("期望 ErrNotificationNotFound，实际: %v", err)
	}
}

func TestMarkRead_OtherUser(t *testing.T) {
	svc, repo := setupNotificationTest()
	id := addNotification(t, repo, "alice", "未读", false)

	// 他人的通知与不存在同样处理
	err := svc.MarkRead(context.Background(), id, "bob")
	if !errors.Is(err, ErrNotificationNotFound) {
		t.Errorf("期望 ErrNotificationNotFound，实际: %v", err)
	}
}

func TestMarkAllRead(t *testing.T) {
	svc, repo := setupNotificationTest()
	addNotification(t, repo, "alice", "未读1", false)
	addNotification(t, repo, "alice", "未读2", false)
	addNotification(t, repo, "bob", "他人的", false)

	if err := svc.MarkAllRead(context.Background(), "alice"); err != nil {
		t.Fatalf("MarkAllRead 应成功: %v", err)
	}

	alice, _ := svc.List(context.Background(), "alice", false)
	if alice.UnreadCount != 0 {
		t.Errorf("alice 未读数应为 0，实际 %d", alice.UnreadCount)
	}
	bob, _ := svc.List(context.Background(), "bob", false)
	if bob.UnreadCount != 1 {
		t.Errorf("bob 未读数不应受影响，实际 %d", bob.UnreadCount)
	}
}
