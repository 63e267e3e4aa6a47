package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/sarthakk1890/Schedule-slot-swapper/internal/dto"
	"github.com/sarthakk1890/Schedule-slot-swapper/internal/repository"
	"github.com/sarthakk1890/Schedule-slot-swapper/internal/service"
	"github.com/sarthakk1890/Schedule-slot-swapper/pkg/response"
)

// SwapHandler 换班模块 HTTP 处理器
type SwapHandler struct {
	swapSvc service.SwapService
}

// NewSwapHandler 创建 SwapHandler
func NewSwapHandler(swapSvc service.SwapService) *SwapHandler {
	return &SwapHandler{swapSvc: swapSvc}
}

// ListSwappableSlots 获取可换时段市场
// GET /api/v1/swappable-slots
func (h *SwapHandler) ListSwappableSlots(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	slots, err := h.swapSvc.ListSwappable(c.Request.Context(), callerID)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, gin.H{"list": slots})
}

// CreateSwapRequest 发起换班申请
// POST /api/v1/swap-request
func (h *SwapHandler) CreateSwapRequest(c *gin.Context) {
	var req dto.CreateSwapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	swap, err := h.swapSvc.CreateRequest(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handleSwapError(c, err)
		return
	}

	response.Created(c, swap)
}

// RespondSwapRequest 响应换班申请（接受或拒绝）
// POST /api/v1/swap-response/:id
func (h *SwapHandler) RespondSwapRequest(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "申请ID不能为空")
		return
	}

	var req dto.RespondSwapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	swap, err := h.swapSvc.Respond(c.Request.Context(), id, *req.Accept, callerID)
	if err != nil {
		h.handleSwapError(c, err)
		return
	}

	response.OK(c, swap)
}

// ListIncoming 获取收到的换班申请
// GET /api/v1/swap-requests/incoming
func (h *SwapHandler) ListIncoming(c *gin.Context) {
	h.list(c, repository.SwapDirectionIncoming)
}

// ListOutgoing 获取发出的换班申请
// GET /api/v1/swap-requests/outgoing
func (h *SwapHandler) ListOutgoing(c *gin.Context) {
	h.list(c, repository.SwapDirectionOutgoing)
}

// ListAll 获取全部相关换班申请
// GET /api/v1/swap-requests/all
func (h *SwapHandler) ListAll(c *gin.Context) {
	h.list(c, repository.SwapDirectionAll)
}

func (h *SwapHandler) list(c *gin.Context, direction repository.SwapDirection) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	swaps, err := h.swapSvc.List(c.Request.Context(), callerID, direction)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, gin.H{"list": swaps})
}

func (h *SwapHandler) handleSwapError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSlotNotFound):
		response.NotFound(c, 14001, "时段不存在")
	case errors.Is(err, service.ErrSwapRequestNotFound):
		response.NotFound(c, 16001, "换班申请不存在")
	case errors.Is(err, service.ErrNotOfferedSlotOwner):
		response.Forbidden(c, 16002, "只能用自己的时段发起换班")
	case errors.Is(err, service.ErrNotSwapRecipient):
		response.Forbidden(c, 16003, "只有被申请方可以响应该换班申请")
	case errors.Is(err, service.ErrSlotNotSwappable):
		response.BadRequest(c, 16004, "双方时段都必须处于可换状态")
	case errors.Is(err, service.ErrSwapAlreadyResolved):
		response.BadRequest(c, 16005, "该换班申请已被处理")
	case errors.Is(err, service.ErrSlotsNoLongerAvailable):
		response.BadRequest(c, 16006, "时段已不可换，申请已自动拒绝")
	default:
		response.InternalError(c)
	}
}
