package repository

import (
	"context"
	"time"

	"claimflow/models"

	"gorm.io/gorm"
)

// Stage 报销单所处的审批阶段，作为审批写入的乐观锁条件
type Stage struct {
	Status     string
	Level      int
	ApproverID *uint
}

// StageOf 提取报销单当前阶段
func StageOf(c *models.Claim) Stage {
	var approverID *uint
	if c.ApproverID != nil {
		id := *c.ApproverID
		approverID = &id
	}
	return Stage{Status: c.Status, Level: c.Level, ApproverID: approverID}
}

// ClaimQuery 报销单列表查询条件
type ClaimQuery struct {
	ViewerID uint
	All      bool   // 管理员查看全部
	Scope    string // mine: 仅本人提交；tasks: 仅待本人审批；空: 两者皆有
	Status   string
	Page     int
	PageSize int
}

// ClaimRepository 报销单数据访问
type ClaimRepository struct {
	db *gorm.DB
}

// NewClaimRepository 创建报销单仓库
func NewClaimRepository(db *gorm.DB) *ClaimRepository {
	return &ClaimRepository{db: db}
}

func (r *ClaimRepository) Create(ctx context.Context, claim *models.Claim) error {
	return r.db.WithContext(ctx).Create(claim).Error
}

// GetByID 获取报销单（含提交人）
func (r *ClaimRepository) GetByID(ctx context.Context, id uint) (*models.Claim, error) {
	var claim models.Claim
	if err := r.db.WithContext(ctx).Preload("User").First(&claim, id).Error; err != nil {
		return nil, translate(err)
	}
	return &claim, nil
}

// List 分页查询，按创建时间倒序
func (r *ClaimRepository) List(ctx context.Context, q ClaimQuery) ([]models.Claim, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Claim{})

	if !q.All {
		switch q.Scope {
		case "mine":
			query = query.Where("user_id = ?", q.ViewerID)
		case "tasks":
			query = query.Where("approver_id = ? AND status = ?", q.ViewerID, models.ClaimStatusPending)
		default:
			query = query.Where("user_id = ? OR approver_id = ?", q.ViewerID, q.ViewerID)
		}
	} else if q.Scope == "tasks" {
		query = query.Where("approver_id = ? AND status = ?", q.ViewerID, models.ClaimStatusPending)
	} else if q.Scope == "mine" {
		query = query.Where("user_id = ?", q.ViewerID)
	}

	if q.Status != "" {
		query = query.Where("status = ?", q.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var claims []models.Claim
	offset := (q.Page - 1) * q.PageSize
	err := query.Preload("User").
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(q.PageSize).
		Find(&claims).Error
	return claims, total, err
}

// ListBetween 按提交时间范围查询，用于导出
func (r *ClaimRepository) ListBetween(ctx context.Context, start, end time.Time) ([]models.Claim, error) {
	var claims []models.Claim
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("created_at >= ? AND created_at <= ?", start, end).
		Order("created_at DESC").
		Find(&claims).Error
	return claims, err
}

// ApplyDecision 写入审批结果。仅当报销单仍处于 prev 阶段时才会更新，
// 否则返回 ErrStaleState，保证同一阶段最多接受一次审批。
func (r *ClaimRepository) ApplyDecision(ctx context.Context, claim *models.Claim, prev Stage) error {
	query := r.db.WithContext(ctx).Model(&models.Claim{}).
		Where("id = ? AND status = ? AND level = ?", claim.ID, prev.Status, prev.Level)
	if prev.ApproverID == nil {
		query = query.Where("approver_id IS NULL")
	} else {
		query = query.Where("approver_id = ?", *prev.ApproverID)
	}

	now := time.Now()
	res := query.Updates(map[string]interface{}{
		"status":      claim.Status,
		"approver_id": claim.ApproverID,
		"level":       claim.Level,
		"updated_at":  now,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleState
	}
	claim.UpdatedAt = now
	return nil
}

// Delete 删除报销单
func (r *ClaimRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Claim{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CountPendingForApprover 统计某审批人名下待审批数量
func (r *ClaimRepository) CountPendingForApprover(ctx context.Context, approverID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Claim{}).
		Where("approver_id = ? AND status = ?", approverID, models.ClaimStatusPending).
		Count(&count).Error
	return count, err
}
