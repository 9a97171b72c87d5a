package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"claimflow/models"
	"claimflow/repository"

	"github.com/sirupsen/logrus"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// CreateClaimCommand 提交报销单
type CreateClaimCommand struct {
	UserID         uint
	Title          string
	Type           string
	Amount         float64
	Date           string
	Description    string
	Category       string
	Destination    string
	StartDate      string
	EndDate        string
	ReceiptURL     string
	RelatedClaimID *uint
	Department     string // 费用归属部门，为空时取提交人所在部门
}

// Validate 校验必填字段
func (c CreateClaimCommand) Validate() error {
	switch {
	case c.UserID == 0:
		return fmt.Errorf("%w: 缺少提交人", ErrValidation)
	case strings.TrimSpace(c.Title) == "":
		return fmt.Errorf("%w: 标题不能为空", ErrValidation)
	case strings.TrimSpace(c.Type) == "":
		return fmt.Errorf("%w: 类型不能为空", ErrValidation)
	case c.Amount < 0:
		return fmt.Errorf("%w: 金额不能为负数", ErrValidation)
	case strings.TrimSpace(c.Date) == "":
		return fmt.Errorf("%w: 日期不能为空", ErrValidation)
	}
	return nil
}

// DecideClaimCommand 对报销单做出审批
type DecideClaimCommand struct {
	ClaimID  uint
	Actor    Actor
	Decision string // Approved / Rejected
}

// Validate 校验审批结果
func (c DecideClaimCommand) Validate() error {
	if c.ClaimID == 0 {
		return fmt.Errorf("%w: 缺少报销单 ID", ErrValidation)
	}
	if c.Decision != models.ClaimStatusApproved && c.Decision != models.ClaimStatusRejected {
		return fmt.Errorf("%w: 审批结果只能是 Approved 或 Rejected", ErrValidation)
	}
	return nil
}

// ClaimListQuery 报销单列表查询
type ClaimListQuery struct {
	Actor    Actor
	Scope    string
	Status   string
	Page     int
	PageSize int
}

// FlowStep 审批链中的一级
type FlowStep struct {
	Level        int    `json:"level"`
	ApproverID   uint   `json:"approverId"`
	ApproverName string `json:"approverName"`
	ApproverRole string `json:"approverRole"`
	Current      bool   `json:"current"`
}

// ClaimDetail 报销单详情，附带部门审批链
type ClaimDetail struct {
	models.Claim
	ApprovalFlow []FlowStep `json:"approvalFlow"`
}

// ClaimService 报销单业务
type ClaimService struct {
	repo     *repository.Repository
	router   *ApprovalRouter
	notifier Notifier
	log      logrus.FieldLogger
}

// NewClaimService 创建报销单服务
func NewClaimService(repo *repository.Repository, router *ApprovalRouter, notifier Notifier, log logrus.FieldLogger) *ClaimService {
	return &ClaimService{repo: repo, router: router, notifier: notifier, log: log}
}

// Create 提交报销单并分配一级审批人；部门无一级审批人时直接通过
func (s *ClaimService) Create(ctx context.Context, cmd CreateClaimCommand) (*models.Claim, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	owner, err := s.repo.Users.GetByID(ctx, cmd.UserID)
	if err != nil {
		return nil, fmt.Errorf("查询提交人失败: %w", err)
	}

	if cmd.RelatedClaimID != nil {
		if _, err := s.repo.Claims.GetByID(ctx, *cmd.RelatedClaimID); err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, fmt.Errorf("%w: 关联的报销单不存在", ErrValidation)
			}
			return nil, err
		}
	}

	department := strings.TrimSpace(cmd.Department)
	if department == "" {
		department = owner.Department
	}

	assignment, err := s.router.AssignInitialApprover(ctx, department)
	if err != nil {
		return nil, err
	}

	claim := &models.Claim{
		Title:          strings.TrimSpace(cmd.Title),
		Type:           strings.TrimSpace(cmd.Type),
		Amount:         cmd.Amount,
		Date:           cmd.Date,
		Status:         assignment.Status,
		Description:    cmd.Description,
		Category:       cmd.Category,
		Destination:    cmd.Destination,
		StartDate:      cmd.StartDate,
		EndDate:        cmd.EndDate,
		ReceiptURL:     cmd.ReceiptURL,
		RelatedClaimID: cmd.RelatedClaimID,
		Department:     department,
		ApproverID:     assignment.ApproverID,
		Level:          assignment.Level,
		UserID:         owner.ID,
	}
	if err := s.repo.Claims.Create(ctx, claim); err != nil {
		return nil, fmt.Errorf("创建报销单失败: %w", err)
	}
	// 关联对象在落库后再挂上，避免 gorm 回写用户表
	claim.User = owner

	s.log.WithFields(logrus.Fields{
		"claim_id":    claim.ID,
		"user_id":     owner.ID,
		"department":  department,
		"status":      claim.Status,
		"approver_id": derefID(claim.ApproverID),
	}).Info("报销单已提交")

	if assignment.AutoApproved() {
		s.notifier.NotifyAutoApproved(owner, claim)
		return claim, nil
	}

	s.notifier.NotifySubmitted(owner, claim)
	s.notifyApprover(ctx, claim, owner)
	return claim, nil
}

// Decide 审批报销单。仅当前审批人或管理员可操作；
// 同一审批阶段的并发审批只有一个会成功，其余返回 ErrStaleState。
func (s *ClaimService) Decide(ctx context.Context, cmd DecideClaimCommand) (*Transition, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	claim, err := s.repo.Claims.GetByID(ctx, cmd.ClaimID)
	if err != nil {
		return nil, err
	}

	if !cmd.Actor.IsAdmin() && (claim.ApproverID == nil || *claim.ApproverID != cmd.Actor.ID) {
		return nil, fmt.Errorf("%w: 您不是该报销单的当前审批人", ErrForbidden)
	}

	tr, err := s.router.Advance(ctx, claim, cmd.Decision)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Claims.ApplyDecision(ctx, claim, tr.Previous); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"claim_id": claim.ID,
		"actor_id": cmd.Actor.ID,
		"decision": cmd.Decision,
		"outcome":  tr.Outcome,
		"level":    claim.Level,
	}).Info("报销单已审批")

	switch tr.Outcome {
	case OutcomeAdvanced:
		s.notifyApprover(ctx, claim, claim.User)
	case OutcomeApproved, OutcomeRejected:
		s.notifier.NotifyFinalStatus(claim.User, claim, claim.Status)
	}
	return tr, nil
}

// notifyApprover 通知当前审批人，查询失败只记录日志
func (s *ClaimService) notifyApprover(ctx context.Context, claim *models.Claim, owner *models.User) {
	if claim.ApproverID == nil {
		return
	}
	approver, err := s.repo.Users.GetByID(ctx, *claim.ApproverID)
	if err != nil {
		s.log.WithError(err).WithField("approver_id", *claim.ApproverID).Warn("查询审批人失败，跳过审批通知")
		return
	}
	requesterName := ""
	if owner != nil {
		requesterName = owner.Name
	}
	s.notifier.NotifyApprovalRequested(approver, claim, requesterName)
}

// List 管理员可查看全部，其他用户只能看到本人提交或待本人审批的报销单
func (s *ClaimService) List(ctx context.Context, q ClaimListQuery) ([]models.Claim, int64, error) {
	switch q.Scope {
	case "", "mine", "tasks":
	default:
		return nil, 0, fmt.Errorf("%w: 无效的 scope %q", ErrValidation, q.Scope)
	}
	if q.Status != "" && !models.ValidClaimStatus(q.Status) {
		return nil, 0, fmt.Errorf("%w: 无效的状态 %q", ErrValidation, q.Status)
	}

	page, pageSize := NormalizePage(q.Page, q.PageSize)
	return s.repo.Claims.List(ctx, repository.ClaimQuery{
		ViewerID: q.Actor.ID,
		All:      q.Actor.IsAdmin(),
		Scope:    q.Scope,
		Status:   q.Status,
		Page:     page,
		PageSize: pageSize,
	})
}

// Get 报销单详情，附带部门审批链
func (s *ClaimService) Get(ctx context.Context, id uint, actor Actor) (*ClaimDetail, error) {
	claim, err := s.repo.Claims.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var flow []models.ApprovalMatrix
	if claim.Department != "" {
		flow, err = s.repo.Matrix.ListByDepartment(ctx, claim.Department)
		if err != nil {
			return nil, fmt.Errorf("查询审批链失败: %w", err)
		}
	}

	if !canView(claim, flow, actor) {
		return nil, fmt.Errorf("%w: 无权查看该报销单", ErrForbidden)
	}

	detail := &ClaimDetail{Claim: *claim, ApprovalFlow: make([]FlowStep, 0, len(flow))}
	for _, row := range flow {
		step := FlowStep{
			Level:      row.Level,
			ApproverID: row.ApproverID,
			Current:    claim.IsPending() && row.Level == claim.Level,
		}
		if row.Approver != nil {
			step.ApproverName = row.Approver.Name
			step.ApproverRole = row.Approver.Role
		}
		detail.ApprovalFlow = append(detail.ApprovalFlow, step)
	}
	return detail, nil
}

func canView(claim *models.Claim, flow []models.ApprovalMatrix, actor Actor) bool {
	if actor.IsAdmin() || claim.UserID == actor.ID {
		return true
	}
	if claim.ApproverID != nil && *claim.ApproverID == actor.ID {
		return true
	}
	for _, row := range flow {
		if row.ApproverID == actor.ID {
			return true
		}
	}
	return false
}

// Delete 删除报销单，仅提交人或管理员可操作
func (s *ClaimService) Delete(ctx context.Context, id uint, actor Actor) error {
	claim, err := s.repo.Claims.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !actor.IsAdmin() && claim.UserID != actor.ID {
		return fmt.Errorf("%w: 只能删除自己的报销单", ErrForbidden)
	}
	if err := s.repo.Claims.Delete(ctx, id); err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{"claim_id": id, "actor_id": actor.ID}).Info("报销单已删除")
	return nil
}

// NormalizePage 补全分页参数，每页最多 100 条
func NormalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}
