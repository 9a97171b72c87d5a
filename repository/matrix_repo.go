package repository

import (
	"context"

	"claimflow/models"

	"gorm.io/gorm"
)

// MatrixRepository 审批矩阵数据访问
type MatrixRepository struct {
	db *gorm.DB
}

// NewMatrixRepository 创建审批矩阵仓库
func NewMatrixRepository(db *gorm.DB) *MatrixRepository {
	return &MatrixRepository{db: db}
}

// FindByLevel 查找部门指定级别的审批人，不存在时返回 (nil, nil)
func (r *MatrixRepository) FindByLevel(ctx context.Context, department string, level int) (*models.ApprovalMatrix, error) {
	var row models.ApprovalMatrix
	err := r.db.WithContext(ctx).
		Where("department = ? AND level = ?", department, level).
		Order("id ASC").
		Limit(1).
		Find(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == 0 {
		return nil, nil
	}
	return &row, nil
}

// FindByApprover 按审批人反查其在部门审批链中的级别，不存在时返回 (nil, nil)
func (r *MatrixRepository) FindByApprover(ctx context.Context, department string, approverID uint) (*models.ApprovalMatrix, error) {
	var row models.ApprovalMatrix
	err := r.db.WithContext(ctx).
		Where("department = ? AND approver_id = ?", department, approverID).
		Order("level ASC").
		Limit(1).
		Find(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == 0 {
		return nil, nil
	}
	return &row, nil
}

// ListByDepartment 按级别升序返回部门审批链（含审批人）
func (r *MatrixRepository) ListByDepartment(ctx context.Context, department string) ([]models.ApprovalMatrix, error) {
	var rows []models.ApprovalMatrix
	err := r.db.WithContext(ctx).
		Preload("Approver").
		Where("department = ?", department).
		Order("level ASC").
		Find(&rows).Error
	return rows, err
}

// List 返回全部审批规则（含审批人）
func (r *MatrixRepository) List(ctx context.Context) ([]models.ApprovalMatrix, error) {
	var rows []models.ApprovalMatrix
	err := r.db.WithContext(ctx).
		Preload("Approver").
		Order("department ASC, level ASC").
		Find(&rows).Error
	return rows, err
}

// IsApprover 用户是否出现在任一审批规则中
func (r *MatrixRepository) IsApprover(ctx context.Context, userID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ApprovalMatrix{}).Where("approver_id = ?", userID).Count(&count).Error
	return count > 0, err
}

// Upsert 按 (department, level) 新增或更新审批人
func (r *MatrixRepository) Upsert(ctx context.Context, department string, level int, approverID uint) (*models.ApprovalMatrix, error) {
	var row models.ApprovalMatrix
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("department = ? AND level = ?", department, level).First(&row).Error
		switch {
		case err == nil:
			row.ApproverID = approverID
			return tx.Save(&row).Error
		case translate(err) == ErrNotFound:
			row = models.ApprovalMatrix{Department: department, Level: level, ApproverID: approverID}
			return tx.Create(&row).Error
		default:
			return err
		}
	})
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// Delete 删除审批规则
func (r *MatrixRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.ApprovalMatrix{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteByApprover 删除某审批人的全部规则（删除用户时使用）
func (r *MatrixRepository) DeleteByApprover(ctx context.Context, approverID uint) error {
	return r.db.WithContext(ctx).Where("approver_id = ?", approverID).Delete(&models.ApprovalMatrix{}).Error
}
