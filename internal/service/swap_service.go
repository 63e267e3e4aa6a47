package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/sarthakk1890/Schedule-slot-swapper/internal/dto"
	"github.com/sarthakk1890/Schedule-slot-swapper/internal/model"
	"github.com/sarthakk1890/Schedule-slot-swapper/internal/repository"
)

// ── 换班模块业务错误 ──

var (
	ErrSwapRequestNotFound    = errors.New("换班申请不存在")
	ErrNotOfferedSlotOwner    = errors.New("只能用自己的时段发起换班")
	ErrSlotNotSwappable       = errors.New("双方时段都必须处于可换状态")
	ErrNotSwapRecipient       = errors.New("只有被申请方可以响应该换班申请")
	ErrSwapAlreadyResolved    = errors.New("该换班申请已被处理")
	ErrSlotsNoLongerAvailable = errors.New("时段已不可换，申请已自动拒绝")
)

// SwapService 换班协商业务接口
//
// 设计说明：
//   - 创建申请不锁定时段：同一时段允许多个 PENDING 申请并存
//   - 正确性在响应时保证：事务内行锁重读双方时段，任一不可换则
//     把申请补偿性置为 REJECTED 后报冲突，而不是留下永久 PENDING
//   - 所有权交换 + 双时段置 BUSY + 申请置 ACCEPTED 必须一次提交
type SwapService interface {
	// ListSwappable 列出市场上可换的时段（排除调用者自己的）
	ListSwappable(ctx context.Context, callerID string) ([]dto.SlotResponse, error)
	CreateRequest(ctx context.Context, req *dto.CreateSwapRequest, callerID string) (*dto.SwapRequestResponse, error)
	Respond(ctx context.Context, requestID string, accept bool, callerID string) (*dto.SwapRequestResponse, error)
	List(ctx context.Context, callerID string, direction repository.SwapDirection) ([]dto.SwapRequestResponse, error)
}

type swapService struct {
	repo     *repository.Repository
	notifier Notifier
	logger   *zap.Logger
}

// NewSwapService 创建 SwapService 实例
func NewSwapService(repo *repository.Repository, notifier Notifier, logger *zap.Logger) SwapService {
	return &swapService{repo: repo, notifier: notifier, logger: logger}
}

// ────────────────────── ListSwappable ──────────────────────

func (s *swapService) ListSwappable(ctx context.Context, callerID string) ([]dto.SlotResponse, error) {
	slots, err := s.repo.Slot.ListSwappable(ctx, callerID)
	if err != nil {
		s.logger.Error("查询可换时段失败", zap.Error(err))
		return nil, err
	}

	result := make([]dto.SlotResponse, 0, len(slots))
	for i := range slots {
		result = append(result, *toSlotResponse(&slots[i]))
	}

	return result, nil
}

// ────────────────────── CreateRequest ──────────────────────

func (s *swapService) CreateRequest(ctx context.Context, req *dto.CreateSwapRequest, callerID string) (*dto.SwapRequestResponse, error) {
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		s.logger.Error("开启事务失败", zap.Error(err))
		return nil, err
	}
	defer func() {
		if r := recover(); r != nil {
			if tx != nil {
				tx.Rollback()
			}
			panic(r)
		}
	}()

	txRepo := s.repo.WithTx(tx)

	// 1. 两个时段都必须存在
	offered, err := txRepo.Slot.GetByID(ctx, req.OfferedSlotID)
	if err != nil {
		s.rollback(tx)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSlotNotFound
		}
		s.logger.Error("查询时段失败", zap.String("id", req.OfferedSlotID), zap.Error(err))
		return nil, err
	}
	requested, err := txRepo.Slot.GetByID(ctx, req.RequestedSlotID)
	if err != nil {
		s.rollback(tx)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSlotNotFound
		}
		s.logger.Error("查询时段失败", zap.String("id", req.RequestedSlotID), zap.Error(err))
		return nil, err
	}

	// 2. 调用者必须持有所提供的时段
	if offered.OwnerID != callerID {
		s.rollback(tx)
		return nil, ErrNotOfferedSlotOwner
	}

	// 3. 创建时双方时段都必须可换（不预占，见响应时的复核）
	if !offered.IsSwappable() || !requested.IsSwappable() {
		s.rollback(tx)
		return nil, ErrSlotNotSwappable
	}

	swap := &model.SwapRequest{
		RequesterID:     callerID,
		RecipientID:     requested.OwnerID,
		OfferedSlotID:   offered.SlotID,
		RequestedSlotID: requested.SlotID,
		Status:          model.SwapStatusPending,
	}
	swap.CreatedBy = &callerID
	swap.UpdatedBy = &callerID

	if err := txRepo.SwapRequest.Create(ctx, swap); err != nil {
		s.rollback(tx)
		s.logger.Error("创建换班申请失败", zap.Error(err))
		return nil, err
	}

	if err := s.commit(tx); err != nil {
		return nil, err
	}

	// 提交后重新加载完整关联
	populated, err := s.repo.SwapRequest.GetByID(ctx, swap.SwapRequestID)
	if err != nil {
		s.logger.Error("重新加载换班申请失败", zap.String("id", swap.SwapRequestID), zap.Error(err))
		return nil, err
	}

	resp := toSwapRequestResponse(populated)

	// 事务提交后推送，不参与回滚
	if s.notifier != nil {
		requesterName := ""
		if populated.Requester != nil {
			requesterName = populated.Requester.Name
		}
		s.notifier.SendToUser(populated.RecipientID, EventSwapRequestReceived, SwapEventPayload{
			SwapRequest: resp,
			Message:     fmt.Sprintf("%s 想和你换班", requesterName),
		})
		s.notifier.Broadcast(EventNewSwapRequest, SwapEventPayload{SwapRequest: resp})
	}
	s.saveNotification(ctx, populated.RecipientID, EventSwapRequestReceived,
		"收到换班申请", fmt.Sprintf("%s 想用「%s」换你的「%s」", displayName(populated.Requester), slotTitle(populated.OfferedSlot), slotTitle(populated.RequestedSlot)),
		populated.SwapRequestID)

	return resp, nil
}

// ────────────────────── Respond ──────────────────────

func (s *swapService) Respond(ctx context.Context, requestID string, accept bool, callerID string) (*dto.SwapRequestResponse, error) {
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		s.logger.Error("开启事务失败", zap.Error(err))
		return nil, err
	}
	defer func() {
		if r := recover(); r != nil {
			if tx != nil {
				tx.Rollback()
			}
			panic(r)
		}
	}()

	txRepo := s.repo.WithTx(tx)

	// 1. 行锁加载申请
	swap, err := txRepo.SwapRequest.GetByIDForUpdate(ctx, requestID)
	if err != nil {
		s.rollback(tx)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSwapRequestNotFound
		}
		s.logger.Error("查询换班申请失败", zap.String("id", requestID), zap.Error(err))
		return nil, err
	}

	// 2. 只有被申请方可以响应
	if swap.RecipientID != callerID {
		s.rollback(tx)
		return nil, ErrNotSwapRecipient
	}

	// 3. 终态申请不可重复处理（幂等重试安全：不产生第二次变更）
	if !swap.IsPending() {
		s.rollback(tx)
		return nil, ErrSwapAlreadyResolved
	}

	// 4. 行锁重读双方时段。固定按 slot_id 升序加锁，避免两个并发响应互相死锁
	firstID, secondID := swap.OfferedSlotID, swap.RequestedSlotID
	if secondID < firstID {
		firstID, secondID = secondID, firstID
	}
	first, err := txRepo.Slot.GetByIDForUpdate(ctx, firstID)
	if err == nil {
		var second *model.Slot
		second, err = txRepo.Slot.GetByIDForUpdate(ctx, secondID)
		if err == nil {
			offered, requested := first, second
			if offered.SlotID != swap.OfferedSlotID {
				offered, requested = second, first
			}
			return s.resolve(ctx, tx, txRepo, swap, offered, requested, accept, callerID)
		}
	}

	s.rollback(tx)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSlotNotFound
	}
	s.logger.Error("查询申请关联时段失败", zap.String("id", requestID), zap.Error(err))
	return nil, err
}

// resolve 在已持有申请与双方时段行锁的事务内完成裁决
func (s *swapService) resolve(ctx context.Context, tx *gorm.DB, txRepo *repository.Repository,
	swap *model.SwapRequest, offered, requested *model.Slot, accept bool, callerID string) (*dto.SwapRequestResponse, error) {

	// 关键竞态闭合点：创建后任一时段被其它已接受换班消费、或被持有者
	// 改回 BUSY，都在这里转化为终态 REJECTED，而不是留下悬挂的 PENDING
	if !offered.IsSwappable() || !requested.IsSwappable() {
		if err := txRepo.SwapRequest.UpdateStatusFromPending(ctx, swap.SwapRequestID, model.SwapStatusRejected, callerID); err != nil {
			s.rollback(tx)
			s.logger.Error("补偿拒绝失败", zap.String("id", swap.SwapRequestID), zap.Error(err))
			return nil, err
		}
		if err := s.commit(tx); err != nil {
			return nil, err
		}
		s.logger.Info("换班申请因时段失效被自动拒绝",
			zap.String("swap_request_id", swap.SwapRequestID),
			zap.String("offered_status", offered.Status),
			zap.String("requested_status", requested.Status),
		)
		return nil, ErrSlotsNoLongerAvailable
	}

	if accept {
		// 交换所有者并双双置 BUSY；连同申请状态共三条记录一次提交
		offered.OwnerID, requested.OwnerID = requested.OwnerID, offered.OwnerID
		offered.Status = model.SlotStatusBusy
		requested.Status = model.SlotStatusBusy
		offered.UpdatedBy = &callerID
		requested.UpdatedBy = &callerID

		if err := txRepo.Slot.Update(ctx, offered); err != nil {
			s.rollback(tx)
			s.logger.Error("更新时段失败", zap.String("id", offered.SlotID), zap.Error(err))
			return nil, err
		}
		if err := txRepo.Slot.Update(ctx, requested); err != nil {
			s.rollback(tx)
			s.logger.Error("更新时段失败", zap.String("id", requested.SlotID), zap.Error(err))
			return nil, err
		}
		if err := txRepo.SwapRequest.UpdateStatusFromPending(ctx, swap.SwapRequestID, model.SwapStatusAccepted, callerID); err != nil {
			s.rollback(tx)
			s.logger.Error("更新申请状态失败", zap.String("id", swap.SwapRequestID), zap.Error(err))
			return nil, err
		}
	} else {
		// 拒绝只改申请状态，不触碰时段
		if err := txRepo.SwapRequest.UpdateStatusFromPending(ctx, swap.SwapRequestID, model.SwapStatusRejected, callerID); err != nil {
			s.rollback(tx)
			s.logger.Error("更新申请状态失败", zap.String("id", swap.SwapRequestID), zap.Error(err))
			return nil, err
		}
	}

	if err := s.commit(tx); err != nil {
		return nil, err
	}

	// 提交后重新加载完整关联
	populated, err := s.repo.SwapRequest.GetByID(ctx, swap.SwapRequestID)
	if err != nil {
		s.logger.Error("重新加载换班申请失败", zap.String("id", swap.SwapRequestID), zap.Error(err))
		return nil, err
	}

	resp := toSwapRequestResponse(populated)
	s.dispatchResolutionEvents(ctx, populated, resp, accept)

	return resp, nil
}

// dispatchResolutionEvents 裁决提交后的事件扇出与站内通知落库
func (s *swapService) dispatchResolutionEvents(ctx context.Context, swap *model.SwapRequest, resp *dto.SwapRequestResponse, accepted bool) {
	recipientName := displayName(swap.Recipient)

	if s.notifier != nil {
		if accepted {
			s.notifier.SendToUser(swap.RequesterID, EventSwapRequestAccepted, SwapEventPayload{
				SwapRequest: resp,
				Message:     fmt.Sprintf("%s 接受了你的换班申请", recipientName),
			})
			completed := SwapEventPayload{
				SwapRequest: resp,
				Message:     "换班完成，你的日历已更新",
			}
			s.notifier.SendToUser(swap.RequesterID, EventSwapCompleted, completed)
			s.notifier.SendToUser(swap.RecipientID, EventSwapCompleted, completed)

			// 两个时段都已被消费，通知全体刷新市场
			s.notifier.Broadcast(EventSlotNoLongerSwappable, SlotRemovedPayload{
				SlotID:  swap.OfferedSlotID,
				Message: "一个时段已不再可换",
			})
			s.notifier.Broadcast(EventSlotNoLongerSwappable, SlotRemovedPayload{
				SlotID:  swap.RequestedSlotID,
				Message: "一个时段已不再可换",
			})
		} else {
			s.notifier.SendToUser(swap.RequesterID, EventSwapRequestRejected, SwapEventPayload{
				SwapRequest: resp,
				Message:     fmt.Sprintf("%s 拒绝了你的换班申请", recipientName),
			})
		}

		s.notifier.Broadcast(EventSwapRequestUpdated, SwapEventPayload{SwapRequest: resp})
	}

	if accepted {
		s.saveNotification(ctx, swap.RequesterID, EventSwapRequestAccepted,
			"换班申请被接受", fmt.Sprintf("%s 接受了你的换班申请", recipientName), swap.SwapRequestID)
		s.saveNotification(ctx, swap.RecipientID, EventSwapCompleted,
			"换班完成", "换班完成，你的日历已更新", swap.SwapRequestID)
	} else {
		s.saveNotification(ctx, swap.RequesterID, EventSwapRequestRejected,
			"换班申请被拒绝", fmt.Sprintf("%s 拒绝了你的换班申请", recipientName), swap.SwapRequestID)
	}
}

// ────────────────────── List ──────────────────────

func (s *swapService) List(ctx context.Context, callerID string, direction repository.SwapDirection) ([]dto.SwapRequestResponse, error) {
	list, err := s.repo.SwapRequest.List(ctx, callerID, direction)
	if err != nil {
		s.logger.Error("查询换班申请列表失败", zap.String("direction", string(direction)), zap.Error(err))
		return nil, err
	}

	result := make([]dto.SwapRequestResponse, 0, len(list))
	for i := range list {
		result = append(result, *toSwapRequestResponse(&list[i]))
	}

	return result, nil
}

// ── 内部辅助方法 ──

func (s *swapService) rollback(tx *gorm.DB) {
	if tx != nil {
		tx.Rollback()
	}
}

func (s *swapService) commit(tx *gorm.DB) error {
	if tx == nil {
		return nil
	}
	if err := tx.Commit().Error; err != nil {
		s.logger.Error("提交事务失败", zap.Error(err))
		return err
	}
	return nil
}

// saveNotification 落一条站内通知；失败仅记日志，不影响主流程
func (s *swapService) saveNotification(ctx context.Context, userID, typ, title, content, swapRequestID string) {
	relatedType := "swap_request"
	n := &model.Notification{
		UserID:      userID,
		Type:        typ,
		Title:       title,
		Content:     content,
		RelatedType: &relatedType,
		RelatedID:   &swapRequestID,
	}
	if err := s.repo.Notification.Create(ctx, n); err != nil {
		s.logger.Warn("写入站内通知失败",
			zap.String("user_id", userID),
			zap.String("type", typ),
			zap.Error(err),
		)
	}
}

func displayName(u *model.User) string {
	if u == nil {
		return "对方"
	}
	return u.Name
}

func slotTitle(s *model.Slot) string {
	if s == nil {
		return ""
	}
	return s.Title
}
