package service

import (
	"time"

	"github.com/sarthakk1890/Schedule-slot-swapper/internal/dto"
	"github.com/sarthakk1890/Schedule-slot-swapper/internal/model"
)

// ── DTO 转换辅助（slot/swap 两个模块共用）──

func toUserBrief(u *model.User) *dto.UserBrief {
	if u == nil {
		return nil
	}
	return &dto.UserBrief{
		ID:    u.UserID,
		Name:  u.Name,
		Email: u.Email,
	}
}

func toSlotResponse(s *model.Slot) *dto.SlotResponse {
	if s == nil {
		return nil
	}
	return &dto.SlotResponse{
		ID:        s.SlotID,
		Title:     s.Title,
		StartTime: s.StartTime.Format(time.RFC3339),
		EndTime:   s.EndTime.Format(time.RFC3339),
		Status:    s.Status,
		Owner:     toUserBrief(s.Owner),
		CreatedAt: s.CreatedAt.Format(time.RFC3339),
		UpdatedAt: s.UpdatedAt.Format(time.RFC3339),
	}
}

func toSwapRequestResponse(r *model.SwapRequest) *dto.SwapRequestResponse {
	if r == nil {
		return nil
	}
	return &dto.SwapRequestResponse{
		ID:            r.SwapRequestID,
		Status:        r.Status,
		Requester:     toUserBrief(r.Requester),
		Recipient:     toUserBrief(r.Recipient),
		OfferedSlot:   toSlotResponse(r.OfferedSlot),
		RequestedSlot: toSlotResponse(r.RequestedSlot),
		CreatedAt:     r.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     r.UpdatedAt.Format(time.RFC3339),
	}
}
