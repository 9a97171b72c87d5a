package models

import (
	"time"
)

// 报销单状态
const (
	ClaimStatusPending  = "Pending"
	ClaimStatusApproved = "Approved"
	ClaimStatusRejected = "Rejected"
)

// 报销单类型，允许自定义取值
const (
	ClaimTypeTravel  = "Travel"
	ClaimTypeExpense = "Expense"
)

// Claim 报销/差旅申请
type Claim struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	Title          string    `json:"title" gorm:"size:200;not null"`
	Type           string    `json:"type" gorm:"size:50;not null"`
	Amount         float64   `json:"amount" gorm:"type:decimal(12,2);not null"`
	Date           string    `json:"date" gorm:"size:20;not null"`
	Status         string    `json:"status" gorm:"size:20;not null;default:Pending;index"`
	Description    string    `json:"description" gorm:"type:text"`
	Category       string    `json:"category" gorm:"size:50"`
	Destination    string    `json:"destination" gorm:"size:100"`
	StartDate      string    `json:"startDate" gorm:"size:20"`
	EndDate        string    `json:"endDate" gorm:"size:20"`
	ReceiptURL     string    `json:"receiptUrl" gorm:"size:500"`
	RelatedClaimID *uint     `json:"relatedClaimId" gorm:"index"`
	Department     string    `json:"department" gorm:"size:100;index"`
	ApproverID     *uint     `json:"approverId" gorm:"index"`
	Level          int       `json:"level" gorm:"not null;default:0"` // 当前所处审批级别，0 表示未进入审批链
	UserID         uint      `json:"userId" gorm:"index;not null"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
	User           *User     `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

// TableName 设置表名
func (Claim) TableName() string {
	return "claims"
}

// IsTerminal 是否已终结（通过/驳回后不再流转）
func (c *Claim) IsTerminal() bool {
	return c.Status == ClaimStatusApproved || c.Status == ClaimStatusRejected
}

// IsPending 是否等待审批
func (c *Claim) IsPending() bool {
	return c.Status == ClaimStatusPending
}

// ValidClaimStatus 是否为合法的报销单状态
func ValidClaimStatus(status string) bool {
	switch status {
	case ClaimStatusPending, ClaimStatusApproved, ClaimStatusRejected:
		return true
	}
	return false
}
