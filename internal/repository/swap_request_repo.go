package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sarthakk1890/Schedule-slot-swapper/internal/model"
	pkgerrors "github.com/sarthakk1890/Schedule-slot-swapper/pkg/errors"
)

// SwapDirection 换班申请列表方向
type SwapDirection string

const (
	SwapDirectionIncoming SwapDirection = "incoming"
	SwapDirectionOutgoing SwapDirection = "outgoing"
	SwapDirectionAll      SwapDirection = "all"
)

// SwapRequestRepository 换班申请数据访问接口
type SwapRequestRepository interface {
	Create(ctx context.Context, req *model.SwapRequest) error
	// GetByID 查询换班申请并预加载双方用户与双方时段
	GetByID(ctx context.Context, id string) (*model.SwapRequest, error)
	// GetByIDForUpdate 使用 SELECT ... FOR UPDATE 行级锁查询申请，不带预加载
	// 必须在已有事务的 *gorm.DB 上调用（通过 Repository.WithTx 注入事务连接）
	GetByIDForUpdate(ctx context.Context, id string) (*model.SwapRequest, error)
	// List 按方向查询某用户相关的申请，PENDING 优先，组内按创建时间倒序
	List(ctx context.Context, userID string, direction SwapDirection) ([]model.SwapRequest, error)
	// UpdateStatusFromPending 仅当申请仍为 PENDING 时更新状态
	// 不满足时返回 pkg/errors.ErrOptimisticLock，作为行锁之外的第二道防线
	UpdateStatusFromPending(ctx context.Context, id, newStatus, updatedBy string) error
}

type swapRequestRepo struct {
	db *gorm.DB
}

// NewSwapRequestRepo 创建 SwapRequestRepository 实例
func NewSwapRequestRepo(db *gorm.DB) SwapRequestRepository {
	return &swapRequestRepo{db: db}
}

func (r *swapRequestRepo) Create(ctx context.Context, req *model.SwapRequest) error {
	return r.db.WithContext(ctx).Create(req).Error
}

func (r *swapRequestRepo) GetByID(ctx context.Context, id string) (*model.SwapRequest, error) {
	var req model.SwapRequest
	err := r.db.WithContext(ctx).
		Preload("Requester").
		Preload("Recipient").
		Preload("OfferedSlot").
		Preload("RequestedSlot").
		Where("swap_request_id = ?", id).
		First(&req).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *swapRequestRepo) GetByIDForUpdate(ctx context.Context, id string) (*model.SwapRequest, error) {
	var req model.SwapRequest
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("swap_request_id = ?", id).
		First(&req).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *swapRequestRepo) List(ctx context.Context, userID string, direction SwapDirection) ([]model.SwapRequest, error) {
	db := r.db.WithContext(ctx).
		Preload("Requester").
		Preload("Recipient").
		Preload("OfferedSlot").
		Preload("RequestedSlot")

	switch direction {
	case SwapDirectionIncoming:
		db = db.Where("recipient_id = ?", userID)
	case SwapDirectionOutgoing:
		db = db.Where("requester_id = ?", userID)
	default:
		db = db.Where("recipient_id = ? OR requester_id = ?", userID, userID)
	}

	var list []model.SwapRequest
	err := db.
		Order("CASE WHEN status = 'PENDING' THEN 0 ELSE 1 END ASC, created_at DESC").
		Find(&list).Error
	return list, err
}

func (r *swapRequestRepo) UpdateStatusFromPending(ctx context.Context, id, newStatus, updatedBy string) error {
	result := r.db.WithContext(ctx).
		Model(&model.SwapRequest{}).
		Where("swap_request_id = ? AND status = ?", id, model.SwapStatusPending).
		Updates(map[string]interface{}{
			"status":     newStatus,
			"updated_by": updatedBy,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	return nil
}
