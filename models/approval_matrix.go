package models

import (
	"time"
)

// ApprovalMatrix 部门审批矩阵：每个部门按 level 升序组成一条审批链
type ApprovalMatrix struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	Department string    `json:"department" gorm:"size:100;not null;uniqueIndex:idx_matrix_dept_level"`
	ApproverID uint      `json:"approverId" gorm:"not null;index"`
	Level      int       `json:"level" gorm:"not null;default:1;uniqueIndex:idx_matrix_dept_level"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
	Approver   *User     `json:"approver,omitempty" gorm:"foreignKey:ApproverID"`
}

// TableName 设置表名
func (ApprovalMatrix) TableName() string {
	return "approval_matrices"
}
