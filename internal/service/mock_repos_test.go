package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/sarthakk1890/Schedule-slot-swapper/internal/model"
	"github.com/sarthakk1890/Schedule-slot-swapper/internal/repository"
	pkgerrors "github.com/sarthakk1890/Schedule-slot-swapper/pkg/errors"
)

// ── Mock UserRepository ──

type mockUserRepo struct {
	users map[string]*model.User // key: user_id 与 "email:"+email 双索引
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	if user.UserID == "" {
		user.UserID = fmt.Sprintf("user-%d", len(m.users)+1)
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = time.Now()
	m.users[user.UserID] = user
	m.users["email:"+user.Email] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	if u, ok := m.users["email:"+email]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) ExistsByEmail(_ context.Context, email string) (bool, error) {
	_, ok := m.users["email:"+email]
	return ok, nil
}

// ── Mock SlotRepository ──

type mockSlotRepo struct {
	slots     map[string]*model.Slot
	idCounter int
}

func newMockSlotRepo() *mockSlotRepo {
	return &mockSlotRepo{slots: make(map[string]*model.Slot)}
}

func (m *mockSlotRepo) Create(_ context.Context, slot *model.Slot) error {
	if slot.SlotID == "" {
		m.idCounter++
		slot.SlotID = fmt.Sprintf("slot-%d", m.idCounter)
	}
	slot.CreatedAt = time.Now()
	slot.UpdatedAt = time.Now()
	m.slots[slot.SlotID] = slot
	return nil
}

func (m *mockSlotRepo) CreateBatch(_ context.Context, slots []model.Slot) error {
	for i := range slots {
		m.idCounter++
		slots[i].SlotID = fmt.Sprintf("slot-%d", m.idCounter)
		cp := slots[i]
		m.slots[cp.SlotID] = &cp
	}
	return nil
}

func (m *mockSlotRepo) GetByID(_ context.Context, id string) (*model.Slot, error) {
	if s, ok := m.slots[id]; ok {
		return s, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSlotRepo) GetByIDForUpdate(ctx context.Context, id string) (*model.Slot, error) {
	return m.GetByID(ctx, id)
}

func (m *mockSlotRepo) ListByOwner(_ context.Context, ownerID string) ([]model.Slot, error) {
	var result []model.Slot
	for _, s := range m.slots {
		if s.OwnerID == ownerID {
			result = append(result, *s)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StartTime.Before(result[j].StartTime) })
	return result, nil
}

func (m *mockSlotRepo) ListSwappable(_ context.Context, excludeOwnerID string) ([]model.Slot, error) {
	var result []model.Slot
	for _, s := range m.slots {
		if s.Status == model.SlotStatusSwappable && s.OwnerID != excludeOwnerID {
			result = append(result, *s)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StartTime.Before(result[j].StartTime) })
	return result, nil
}

func (m *mockSlotRepo) Update(_ context.Context, slot *model.Slot) error {
	if _, ok := m.slots[slot.SlotID]; !ok {
		return gorm.ErrRecordNotFound
	}
	slot.UpdatedAt = time.Now()
	m.slots[slot.SlotID] = slot
	return nil
}

func (m *mockSlotRepo) Delete(_ context.Context, id string, _ string) error {
	delete(m.slots, id)
	return nil
}

// ── Mock SwapRequestRepository ──

type mockSwapRequestRepo struct {
	requests  map[string]*model.SwapRequest
	idCounter int

	// 关联解析依赖其它 mock 仓库，模拟 GetByID 的预加载
	userRepo *mockUserRepo
	slotRepo *mockSlotRepo
}

func newMockSwapRequestRepo(userRepo *mockUserRepo, slotRepo *mockSlotRepo) *mockSwapRequestRepo {
	return &mockSwapRequestRepo{
		requests: make(map[string]*model.SwapRequest),
		userRepo: userRepo,
		slotRepo: slotRepo,
	}
}

func (m *mockSwapRequestRepo) Create(_ context.Context, req *model.SwapRequest) error {
	if req.SwapRequestID == "" {
		m.idCounter++
		req.SwapRequestID = fmt.Sprintf("swap-%d", m.idCounter)
	}
	req.CreatedAt = time.Now()
	req.UpdatedAt = time.Now()
	m.requests[req.SwapRequestID] = req
	return nil
}

func (m *mockSwapRequestRepo) GetByID(ctx context.Context, id string) (*model.SwapRequest, error) {
	req, ok := m.requests[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	// 模拟预加载
	cp := *req
	if u, err := m.userRepo.GetByID(ctx, cp.RequesterID); err == nil {
		cp.Requester = u
	}
	if u, err := m.userRepo.GetByID(ctx, cp.RecipientID); err == nil {
		cp.Recipient = u
	}
	if s, err := m.slotRepo.GetByID(ctx, cp.OfferedSlotID); err == nil {
		cp.OfferedSlot = s
	}
	if s, err := m.slotRepo.GetByID(ctx, cp.RequestedSlotID); err == nil {
		cp.RequestedSlot = s
	}
	return &cp, nil
}

func (m *mockSwapRequestRepo) GetByIDForUpdate(_ context.Context, id string) (*model.SwapRequest, error) {
	if r, ok := m.requests[id]; ok {
		return r, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSwapRequestRepo) List(ctx context.Context, userID string, direction repository.SwapDirection) ([]model.SwapRequest, error) {
	var result []model.SwapRequest
	for id, r := range m.requests {
		match := false
		switch direction {
		case repository.SwapDirectionIncoming:
			match = r.RecipientID == userID
		case repository.SwapDirectionOutgoing:
			match = r.RequesterID == userID
		default:
			match = r.RecipientID == userID || r.RequesterID == userID
		}
		if match {
			populated, _ := m.GetByID(ctx, id)
			result = append(result, *populated)
		}
	}
	// PENDING 优先，组内按创建时间倒序
	sort.Slice(result, func(i, j int) bool {
		iPending := result[i].Status == model.SwapStatusPending
		jPending := result[j].Status == model.SwapStatusPending
		if iPending != jPending {
			return iPending
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (m *mockSwapRequestRepo) UpdateStatusFromPending(_ context.Context, id, newStatus, updatedBy string) error {
	r, ok := m.requests[id]
	if !ok || r.Status != model.SwapStatusPending {
		return pkgerrors.ErrOptimisticLock
	}
	r.Status = newStatus
	r.UpdatedBy = &updatedBy
	r.UpdatedAt = time.Now()
	return nil
}

// ── Mock NotificationRepository ──

type mockNotificationRepo struct {
	notifications []model.Notification
	idCounter     int
}

func newMockNotificationRepo() *mockNotificationRepo {
	return &mockNotificationRepo{}
}

func (m *mockNotificationRepo) Create(_ context.Context, n *model.Notification) error {
	m.idCounter++
	if n.NotificationID == "" {
		n.NotificationID = fmt.Sprintf("notif-%d", m.idCounter)
	}
	n.CreatedAt = time.Now()
	m.notifications = append(m.notifications, *n)
	return nil
}

func (m *mockNotificationRepo) ListByUser(_ context.Context, userID string, onlyUnread bool) ([]model.Notification, error) {
	var result []model.Notification
	for _, n := range m.notifications {
		if n.UserID != userID {
			continue
		}
		if onlyUnread && n.IsRead {
			continue
		}
		result = append(result, n)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (m *mockNotificationRepo) CountUnread(_ context.Context, userID string) (int64, error) {
	var count int64
	for _, n := range m.notifications {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (m *mockNotificationRepo) MarkRead(_ context.Context, id, userID string) (int64, error) {
	for i, n := range m.notifications {
		if n.NotificationID == id && n.UserID == userID && !n.IsRead {
			m.notifications[i].IsRead = true
			return 1, nil
		}
	}
	return 0, nil
}

func (m *mockNotificationRepo) MarkAllRead(_ context.Context, userID string) error {
	for i, n := range m.notifications {
		if n.UserID == userID {
			m.notifications[i].IsRead = true
		}
	}
	return nil
}

// ── 记录型 Notifier ──

// sentEvent 记录单次推送（定向或广播）
type sentEvent struct {
	UserID  string // 广播时为空
	Event   string
	Payload interface{}
}

type mockNotifier struct {
	mu     sync.Mutex
	events []sentEvent
}

func newMockNotifier() *mockNotifier {
	return &mockNotifier{}
}

func (m *mockNotifier) SendToUser(userID, event string, payload interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, sentEvent{UserID: userID, Event: event, Payload: payload})
}

func (m *mockNotifier) Broadcast(event string, payload interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, sentEvent{Event: event, Payload: payload})
}

// eventNames 按发送顺序返回事件名
func (m *mockNotifier) eventNames() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.events))
	for _, e := range m.events {
		names = append(names, e.Event)
	}
	return names
}

// countEvent 统计指定事件发送次数
func (m *mockNotifier) countEvent(event string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, e := range m.events {
		if e.Event == event {
			count++
		}
	}
	return count
}

// findEvent 返回第一条指定事件，找不到时第二返回值为 false
func (m *mockNotifier) findEvent(event string) (sentEvent, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.events {
		if e.Event == event {
			return e, true
		}
	}
	return sentEvent{}, false
}
