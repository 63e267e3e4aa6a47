package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/sarthakk1890/Schedule-slot-swapper/internal/dto"
	"github.com/sarthakk1890/Schedule-slot-swapper/internal/model"
	"github.com/sarthakk1890/Schedule-slot-swapper/internal/repository"
)

// ── 时段模块业务错误 ──

var (
	ErrSlotNotFound      = errors.New("时段不存在")
	ErrSlotTimeInvalid   = errors.New("结束时间必须晚于开始时间")
	ErrICSSourceRequired = errors.New("需要提供 ICS 链接或内容")
	ErrICSParseFailed    = errors.New("ICS 日历解析失败")
)

// SlotService 时段业务接口
type SlotService interface {
	Create(ctx context.Context, req *dto.CreateSlotRequest, callerID string) (*dto.SlotResponse, error)
	ListMine(ctx context.Context, callerID string) ([]dto.SlotResponse, error)
	Update(ctx context.Context, id string, req *dto.UpdateSlotRequest, callerID string) (*dto.SlotResponse, error)
	Delete(ctx context.Context, id string, callerID string) error
	// ImportICS 将 ICS 日历中的事件批量导入为 BUSY 时段
	ImportICS(ctx context.Context, req *dto.ImportSlotsRequest, callerID string) (*dto.ImportSlotsResponse, error)
}

type slotService struct {
	repo     *repository.Repository
	notifier Notifier
	logger   *zap.Logger
}

// NewSlotService 创建 SlotService 实例
func NewSlotService(repo *repository.Repository, notifier Notifier, logger *zap.Logger) SlotService {
	return &slotService{repo: repo, notifier: notifier, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *slotService) Create(ctx context.Context, req *dto.CreateSlotRequest, callerID string) (*dto.SlotResponse, error) {
	if !req.EndTime.After(req.StartTime) {
		return nil, ErrSlotTimeInvalid
	}

	status := req.Status
	if status == "" {
		status = model.SlotStatusBusy
	}

	slot := &model.Slot{
		OwnerID:   callerID,
		Title:     req.Title,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Status:    status,
	}
	slot.CreatedBy = &callerID
	slot.UpdatedBy = &callerID

	if err := s.repo.Slot.Create(ctx, slot); err != nil {
		s.logger.Error("创建时段失败", zap.Error(err))
		return nil, err
	}

	// 重新加载以获取关联
	created, err := s.repo.Slot.GetByID(ctx, slot.SlotID)
	if err != nil {
		return nil, err
	}

	resp := toSlotResponse(created)

	// 直接以可换状态创建时向全体在线用户广播
	if s.notifier != nil && created.IsSwappable() {
		s.notifier.Broadcast(EventNewSwappableSlot, SlotEventPayload{
			Slot:    resp,
			Message: "有新的可换时段",
		})
	}

	return resp, nil
}

// ────────────────────── ListMine ──────────────────────

func (s *slotService) ListMine(ctx context.Context, callerID string) ([]dto.SlotResponse, error) {
	slots, err := s.repo.Slot.ListByOwner(ctx, callerID)
	if err != nil {
		s.logger.Error("列出时段失败", zap.String("owner_id", callerID), zap.Error(err))
		return nil, err
	}

	result := make([]dto.SlotResponse, 0, len(slots))
	for i := range slots {
		result = append(result, *toSlotResponse(&slots[i]))
	}

	return result, nil
}

// ────────────────────── Update ──────────────────────

func (s *slotService) Update(ctx context.Context, id string, req *dto.UpdateSlotRequest, callerID string) (*dto.SlotResponse, error) {
	slot, err := s.getOwnedSlot(ctx, id, callerID)
	if err != nil {
		return nil, err
	}

	wasSwappable := slot.IsSwappable()

	if req.Title != nil {
		slot.Title = *req.Title
	}
	if req.StartTime != nil {
		slot.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		slot.EndTime = *req.EndTime
	}
	if req.Status != nil {
		slot.Status = *req.Status
	}

	if !slot.EndTime.After(slot.StartTime) {
		return nil, ErrSlotTimeInvalid
	}

	slot.UpdatedBy = &callerID

	if err := s.repo.Slot.Update(ctx, slot); err != nil {
		s.logger.Error("更新时段失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	resp := toSlotResponse(slot)

	// 跨越 SWAPPABLE 边界时广播（两个方向）
	if s.notifier != nil {
		switch {
		case !wasSwappable && slot.IsSwappable():
			s.notifier.Broadcast(EventNewSwappableSlot, SlotEventPayload{
				Slot:    resp,
				Message: "有新的可换时段",
			})
		case wasSwappable && !slot.IsSwappable():
			s.notifier.Broadcast(EventSlotNoLongerSwappable, SlotRemovedPayload{
				SlotID:  slot.SlotID,
				Message: "一个时段已不再可换",
			})
		}
	}

	return resp, nil
}

// ────────────────────── Delete ──────────────────────

func (s *slotService) Delete(ctx context.Context, id string, callerID string) error {
	slot, err := s.getOwnedSlot(ctx, id, callerID)
	if err != nil {
		return err
	}

	if err := s.repo.Slot.Delete(ctx, id, callerID); err != nil {
		s.logger.Error("删除时段失败", zap.String("id", id), zap.Error(err))
		return err
	}

	if s.notifier != nil && slot.IsSwappable() {
		s.notifier.Broadcast(EventSlotNoLongerSwappable, SlotRemovedPayload{
			SlotID:  id,
			Message: "一个时段已不再可换",
		})
	}

	return nil
}

// ────────────────────── ImportICS ──────────────────────

func (s *slotService) ImportICS(ctx context.Context, req *dto.ImportSlotsRequest, callerID string) (*dto.ImportSlotsResponse, error) {
	var slots []model.Slot
	var err error

	switch {
	case req.URL != "":
		body, fetchErr := FetchICSContent(req.URL)
		if fetchErr != nil {
			s.logger.Warn("获取 ICS 内容失败", zap.String("url", req.URL), zap.Error(fetchErr))
			return nil, ErrICSParseFailed
		}
		defer body.Close()
		slots, err = ParseICS(body, callerID)
	case req.Content != "":
		slots, err = ParseICS(strings.NewReader(req.Content), callerID)
	default:
		return nil, ErrICSSourceRequired
	}

	if err != nil {
		s.logger.Warn("解析 ICS 失败", zap.Error(err))
		return nil, ErrICSParseFailed
	}

	if err := s.repo.Slot.CreateBatch(ctx, slots); err != nil {
		s.logger.Error("批量导入时段失败", zap.Int("count", len(slots)), zap.Error(err))
		return nil, err
	}

	resp := &dto.ImportSlotsResponse{
		Imported: len(slots),
		Slots:    make([]dto.SlotResponse, 0, len(slots)),
	}
	for i := range slots {
		resp.Slots = append(resp.Slots, *toSlotResponse(&slots[i]))
	}

	return resp, nil
}

// ── 内部辅助方法 ──

// getOwnedSlot 查询时段并校验归属；非本人时段与不存在同样返回 ErrSlotNotFound
func (s *slotService) getOwnedSlot(ctx context.Context, id, callerID string) (*model.Slot, error) {
	slot, err := s.repo.Slot.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSlotNotFound
		}
		s.logger.Error("查询时段失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	if slot.OwnerID != callerID {
		return nil, ErrSlotNotFound
	}
	return slot, nil
}
