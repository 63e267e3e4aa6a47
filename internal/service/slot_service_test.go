package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/sarthakk1890/Schedule-slot-swapper/internal/dto"
	"github.com/sarthakk1890/Schedule-slot-swapper/internal/model"
	"github.com/sarthakk1890/Schedule-slot-swapper/internal/repository"
)

type slotTestEnv struct {
	svc      SlotService
	slotRepo *mockSlotRepo
	notifier *mockNotifier
}

func setupSlotTest() *slotTestEnv {
	userRepo := newMockUserRepo()
	slotRepo := newMockSlotRepo()
	repo := &repository.Repository{
		User:         userRepo,
		Slot:         slotRepo,
		SwapRequest:  newMockSwapRequestRepo(userRepo, slotRepo),
		Notification: newMockNotificationRepo(),
	}
	notifier := newMockNotifier()
	return &slotTestEnv{
		svc:      NewSlotService(repo, notifier, zap.NewNop()),
		slotRepo: slotRepo,
		notifier: notifier,
	}
}

func validCreateReq() *dto.CreateSlotRequest {
	return &dto.CreateSlotRequest{
		Title:     "周一早班",
		StartTime: time.Date(2026, 9, 7, 9, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2026, 9, 7, 12, 0, 0, 0, time.UTC),
	}
}

// ── Create 测试 ──

func TestCreateSlot_DefaultsToBusy(t *testing.T) {
	env := setupSlotTest()

	slot, err := env.svc.Create(context.Background(), validCreateReq(), "alice")
	if err != nil {
		t.Fatalf("Create 应成功: %v", err)
	}
	if slot.Status != model.SlotStatusBusy {
		t.Errorf("未指定状态时应默认 BUSY，实际 %s", slot.Status)
	}
	// BUSY 创建不广播
	if len(env.notifier.events) != 0 {
		t.Error("BUSY 时段创建不应广播事件")
	}
}

func TestCreateSlot_SwappableBroadcasts(t *testing.T) {
	env := setupSlotTest()

	req := validCreateReq()
	req.Status = model.SlotStatusSwappable
	slot, err := env.svc.Create(context.Background(), req, "alice")
	if err != nil {
		t.Fatalf("Create 应成功: %v", err)
	}
	if slot.Status != model.SlotStatusSwappable {
		t.Errorf("期望 SWAPPABLE，实际 %s", slot.Status)
	}
	if env.notifier.countEvent(EventNewSwappableSlot) != 1 {
		t.Error("SWAPPABLE 时段创建应广播 new-swappable-slot")
	}
}

func TestCreateSlot_TimeInvalid(t *testing.T) {
	env := setupSlotTest()

	req := validCreateReq()
	req.EndTime = req.StartTime
	_, err := env.svc.Create(context.Background(), req, "alice")
	if !errors.Is(err, ErrSlotTimeInvalid) {
		t.Errorf("结束时间不晚于开始时间时期望 ErrSlotTimeInvalid，实际: %v", err)
	}
}

// ── Update 测试 ──

func TestUpdateSlot_CrossIntoSwappable(t *testing.T) {
	env := setupSlotTest()
	created, _ := env.svc.Create(context.Background(), validCreateReq(), "alice")

	status := model.SlotStatusSwappable
	updated, err := env.svc.Update(context.Background(), created.ID, &dto.UpdateSlotRequest{Status: &status}, "alice")
	if err != nil {
		t.Fatalf("Update 应成功: %v", err)
	}
	if updated.Status != model.SlotStatusSwappable {
		t.Errorf("期望 SWAPPABLE，实际 %s", updated.Status)
	}
	if env.notifier.countEvent(EventNewSwappableSlot) != 1 {
		t.Error("BUSY→SWAPPABLE 应广播 new-swappable-slot")
	}
}

func TestUpdateSlot_CrossOutOfSwappable(t *testing.T) {
	env := setupSlotTest()
	req := validCreateReq()
	req.Status = model.SlotStatusSwappable
	created, _ := env.svc.Create(context.Background(), req, "alice")
	env.notifier.events = nil

	status := model.SlotStatusBusy
	if _, err := env.svc.Update(context.Background(), created.ID, &dto.UpdateSlotRequest{Status: &status}, "alice"); err != nil {
		t.Fatalf("Update 应成功: %v", err)
	}
	removed, ok := env.notifier.findEvent(EventSlotNoLongerSwappable)
	if !ok {
		t.Fatal("SWAPPABLE→BUSY 应广播 slot-no-longer-swappable")
	}
	payload, ok := removed.Payload.(SlotRemovedPayload)
	if !ok {
		t.Fatalf("载荷类型应为 SlotRemovedPayload，实际 %T", removed.Payload)
	}
	if payload.SlotID != created.ID {
		t.Errorf("载荷应携带被下架时段 ID，实际 %s", payload.SlotID)
	}
}

func TestUpdateSlot_NoBoundaryCrossNoEvent(t *testing.T) {
	env := setupSlotTest()
	created, _ := env.svc.Create(context.Background(), validCreateReq(), "alice")

	title := "改个名字"
	if _, err := env.svc.Update(context.Background(), created.ID, &dto.UpdateSlotRequest{Title: &title}, "alice"); err != nil {
		t.Fatalf("Update 应成功: %v", err)
	}
	if len(env.notifier.events) != 0 {
		t.Error("未跨越可换边界的更新不应广播事件")
	}
}

func TestUpdateSlot_NotOwned(t *testing.T) {
	env := setupSlotTest()
	created, _ := env.svc.Create(context.Background(), validCreateReq(), "alice")

	title := "越权修改"
	_, err := env.svc.Update(context.Background(), created.ID, &dto.UpdateSlotRequest{Title: &title}, "bob")
	// 非本人时段与不存在同样处理，不泄露存在性
	if !errors.Is(err, ErrSlotNotFound) {
		t.Errorf("期望 ErrSlotNotFound，实际: %v", err)
	}
}

func TestUpdateSlot_NotFound(t *testing.T) {
	env := setupSlotTest()

	title := "无"
	_, err := env.svc.Update(context.Background(), "missing", &dto.UpdateSlotRequest{Title: &title}, "alice")
	if !errors.Is(err, ErrSlotNotFound) {
		t.Errorf("期望 ErrSlotNotFound，实际: %v", err)
	}
}

// ── Delete 测试 ──

func TestDeleteSlot_SwappableBroadcastsRemoval(t *testing.T) {
	env := setupSlotTest()
	req := validCreateReq()
	req.Status = model.SlotStatusSwappable
	created, _ := env.svc.Create(context.Background(), req, "alice")
	env.notifier.events = nil

	if err := env.svc.Delete(context.Background(), created.ID, "alice"); err != nil {
		t.Fatalf("Delete 应成功: %v", err)
	}
	if env.notifier.countEvent(EventSlotNoLongerSwappable) != 1 {
		t.Error("删除可换时段应广播 slot-no-longer-swappable")
	}
	if _, ok := env.slotRepo.slots[created.ID]; ok {
		t.Error("时段应已被删除")
	}
}

func TestDeleteSlot_BusyNoBroadcast(t *testing.T) {
	env := setupSlotTest()
	created, _ := env.svc.Create(context.Background(), validCreateReq(), "alice")

	if err := env.svc.Delete(context.Background(), created.ID, "alice"); err != nil {
		t.Fatalf("Delete 应成功: %v", err)
	}
	if len(env.notifier.events) != 0 {
		t.Error("删除 BUSY 时段不应广播事件")
	}
}

func TestDeleteSlot_NotOwned(t *testing.T) {
	env := setupSlotTest()
	created, _ := env.svc.Create(context.Background(), validCreateReq(), "alice")

	err := env.svc.Delete(context.Background(), created.ID, "bob")
	if !errors.Is(err, ErrSlotNotFound) {
		t.Errorf("期望 ErrSlotNotFound，实际: %v", err)
	}
}

// ── ListMine 测试 ──

func TestListMine_SortedByStartTime(t *testing.T) {
	env := setupSlotTest()

	late := validCreateReq()
	late.Title = "晚班"
	late.StartTime = time.Date(2026, 9, 8, 18, 0, 0, 0, time.UTC)
	late.EndTime = time.Date(2026, 9, 8, 21, 0, 0, 0, time.UTC)
	if _, err := env.svc.Create(context.Background(), late, "alice"); err != nil {
		t.Fatalf("Create 应成功: %v", err)
	}
	early := validCreateReq()
	early.Title = "早班"
	if _, err := env.svc.Create(context.Background(), early, "alice"); err != nil {
		t.Fatalf("Create 应成功: %v", err)
	}
	// 他人时段不应出现
	other := validCreateReq()
	if _, err := env.svc.Create(context.Background(), other, "bob"); err != nil {
		t.Fatalf("Create 应成功: %v", err)
	}

	list, err := env.svc.ListMine(context.Background(), "alice")
	if err != nil {
		t.Fatalf("ListMine 应成功: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("期望 2 个时段，实际 %d", len(list))
	}
	if list[0].Title != "早班" || list[1].Title != "晚班" {
		t.Errorf("应按开始时间升序排列，实际 %s, %s", list[0].Title, list[1].Title)
	}
}

// ── ImportICS 测试 ──

const testICS = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//test//test//EN
BEGIN:VEVENT
UID:evt-1
SUMMARY:数学课
DTSTART:20260907T010000Z
DTEND:20260907T023000Z
END:VEVENT
BEGIN:VEVENT
UID:evt-2
SUMMARY:值班
DTSTART:20260908T060000Z
DTEND:20260908T080000Z
END:VEVENT
END:VCALENDAR`

func TestImportICS_FromContent(t *testing.T) {
	env := setupSlotTest()

	result, err := env.svc.ImportICS(context.Background(), &dto.ImportSlotsRequest{Content: testICS}, "alice")
	if err != nil {
		t.Fatalf("ImportICS 应成功: %v", err)
	}
	if result.Imported != 2 {
		t.Fatalf("期望导入 2 个时段，实际 %d", result.Imported)
	}
	for _, s := range result.Slots {
		if s.Status != model.SlotStatusBusy {
			t.Errorf("导入的时段应一律为 BUSY，实际 %s", s.Status)
		}
	}

	mine, _ := env.svc.ListMine(context.Background(), "alice")
	if len(mine) != 2 {
		t.Errorf("导入后 ListMine 应返回 2 个时段，实际 %d", len(mine))
	}
}

func TestImportICS_SourceRequired(t *testing.T) {
	env := setupSlotTest()

	_, err := env.svc.ImportICS(context.Background(), &dto.ImportSlotsRequest{}, "alice")
	if !errors.Is(err, ErrICSSourceRequired) {
		t.Errorf("期望 ErrICSSourceRequired，实际: %v", err)
	}
}

func TestImportICS_InvalidContent(t *testing.T) {
	env := setupSlotTest()

	_, err := env.svc.ImportICS(context.Background(), &dto.ImportSlotsRequest{
		Content: "这不是一个日历",
	}, "alice")
	if !errors.Is(err, ErrICSParseFailed) {
		t.Errorf("期望 ErrICSParseFailed，实际: %v", err)
	}
}
