package service

import (
	"context"
	"fmt"
	"strings"

	"claimflow/models"
	"claimflow/repository"

	"github.com/sirupsen/logrus"
)

// MatrixLookup 审批矩阵查询，未命中时返回 (nil, nil)
type MatrixLookup interface {
	FindByLevel(ctx context.Context, department string, level int) (*models.ApprovalMatrix, error)
	FindByApprover(ctx context.Context, department string, approverID uint) (*models.ApprovalMatrix, error)
}

// Assignment 提交时解析出的初始审批人
type Assignment struct {
	ApproverID *uint
	Level      int
	Status     string
}

// AutoApproved 部门未配置一级审批人时直接通过
func (a Assignment) AutoApproved() bool {
	return a.ApproverID == nil
}

// Outcome 一次审批动作的结果
type Outcome string

const (
	OutcomeAdvanced Outcome = "advanced" // 流转到下一级，仍为 Pending
	OutcomeApproved Outcome = "approved"
	OutcomeRejected Outcome = "rejected"
)

// Transition 审批引擎计算出的状态迁移
type Transition struct {
	Claim    *models.Claim
	Previous repository.Stage
	Outcome  Outcome
}

// ApprovalRouter 多级审批路由：根据部门审批矩阵决定报销单由谁审批、审批后流向何处。
// 本身不落库，也不发送通知，由调用方负责持久化与通知。
type ApprovalRouter struct {
	matrix MatrixLookup
	log    logrus.FieldLogger
}

// NewApprovalRouter 创建审批路由
func NewApprovalRouter(matrix MatrixLookup, log logrus.FieldLogger) *ApprovalRouter {
	return &ApprovalRouter{matrix: matrix, log: log}
}

// AssignInitialApprover 解析部门一级审批人。部门为空或未配置一级审批人时
// 返回自动通过，这是正常分支而不是错误。
func (r *ApprovalRouter) AssignInitialApprover(ctx context.Context, department string) (Assignment, error) {
	department = strings.TrimSpace(department)
	if department == "" {
		return autoApproval(), nil
	}

	row, err := r.matrix.FindByLevel(ctx, department, 1)
	if err != nil {
		return Assignment{}, fmt.Errorf("查询审批矩阵失败: %w", err)
	}
	if row == nil {
		return autoApproval(), nil
	}

	approverID := row.ApproverID
	return Assignment{ApproverID: &approverID, Level: 1, Status: models.ClaimStatusPending}, nil
}

func autoApproval() Assignment {
	return Assignment{Status: models.ClaimStatusApproved}
}

// Advance 对待审批的报销单应用审批结果，就地修改 claim 并返回迁移结果。
//   - Rejected：立即驳回，审批人保持为驳回人
//   - Approved：存在下一级则流转给下一级审批人并保持 Pending，否则终审通过
func (r *ApprovalRouter) Advance(ctx context.Context, claim *models.Claim, decision string) (*Transition, error) {
	if !claim.IsPending() {
		return nil, fmt.Errorf("%w: 当前状态 %s", ErrInvalidState, claim.Status)
	}
	if decision != models.ClaimStatusApproved && decision != models.ClaimStatusRejected {
		return nil, fmt.Errorf("%w: 无效的审批结果 %q", ErrValidation, decision)
	}

	prev := repository.StageOf(claim)

	if decision == models.ClaimStatusRejected {
		claim.Status = models.ClaimStatusRejected
		return &Transition{Claim: claim, Previous: prev, Outcome: OutcomeRejected}, nil
	}

	level, err := r.currentLevel(ctx, claim)
	if err != nil {
		return nil, err
	}
	if level == 0 {
		// 审批人已不在矩阵中（矩阵被中途修改），无法确定下一级，按终审处理
		r.log.WithFields(logrus.Fields{
			"claim_id":    claim.ID,
			"department":  claim.Department,
			"approver_id": derefID(claim.ApproverID),
		}).Warn("无法确定当前审批级别，按终审通过处理")
		claim.Status = models.ClaimStatusApproved
		return &Transition{Claim: claim, Previous: prev, Outcome: OutcomeApproved}, nil
	}

	next, err := r.matrix.FindByLevel(ctx, claim.Department, level+1)
	if err != nil {
		return nil, fmt.Errorf("查询审批矩阵失败: %w", err)
	}
	if next != nil {
		nextID := next.ApproverID
		claim.ApproverID = &nextID
		claim.Level = level + 1
		return &Transition{Claim: claim, Previous: prev, Outcome: OutcomeAdvanced}, nil
	}

	claim.Status = models.ClaimStatusApproved
	claim.Level = level
	return &Transition{Claim: claim, Previous: prev, Outcome: OutcomeApproved}, nil
}

// currentLevel 优先使用报销单上记录的级别；历史数据没有级别时按审批人反查，
// 查不到返回 0。
func (r *ApprovalRouter) currentLevel(ctx context.Context, claim *models.Claim) (int, error) {
	if claim.Level > 0 {
		return claim.Level, nil
	}
	if claim.ApproverID == nil {
		return 0, nil
	}
	row, err := r.matrix.FindByApprover(ctx, claim.Department, *claim.ApproverID)
	if err != nil {
		return 0, fmt.Errorf("查询审批矩阵失败: %w", err)
	}
	if row == nil {
		return 0, nil
	}
	return row.Level, nil
}

func derefID(id *uint) uint {
	if id == nil {
		return 0
	}
	return *id
}
