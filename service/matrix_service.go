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

// UpsertMatrixCommand 新增或更新审批规则
type UpsertMatrixCommand struct {
	Department string
	ApproverID uint
	Level      int // 0 表示默认一级
}

// MatrixService 审批矩阵维护
type MatrixService struct {
	repo *repository.Repository
	log  logrus.FieldLogger
}

// NewMatrixService 创建审批矩阵服务
func NewMatrixService(repo *repository.Repository, log logrus.FieldLogger) *MatrixService {
	return &MatrixService{repo: repo, log: log}
}

// List 全部审批规则
func (s *MatrixService) List(ctx context.Context) ([]models.ApprovalMatrix, error) {
	return s.repo.Matrix.List(ctx)
}

// Upsert 同一 (部门, 级别) 只保留一条规则，已存在时替换审批人
func (s *MatrixService) Upsert(ctx context.Context, cmd UpsertMatrixCommand) (*models.ApprovalMatrix, error) {
	department := strings.TrimSpace(cmd.Department)
	if department == "" {
		return nil, fmt.Errorf("%w: 部门不能为空", ErrValidation)
	}
	level := cmd.Level
	if level == 0 {
		level = 1
	}
	if level < 0 {
		return nil, fmt.Errorf("%w: 审批级别必须为正整数", ErrValidation)
	}

	approver, err := s.repo.Users.GetByID(ctx, cmd.ApproverID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: 审批人不存在", ErrValidation)
		}
		return nil, err
	}

	row, err := s.repo.Matrix.Upsert(ctx, department, level, approver.ID)
	if err != nil {
		return nil, fmt.Errorf("保存审批规则失败: %w", err)
	}
	row.Approver = approver

	s.log.WithFields(logrus.Fields{
		"department":  department,
		"level":       level,
		"approver_id": approver.ID,
	}).Info("审批规则已保存")
	return row, nil
}

// Delete 删除审批规则
func (s *MatrixService) Delete(ctx context.Context, id uint) error {
	if err := s.repo.Matrix.Delete(ctx, id); err != nil {
		return err
	}
	s.log.WithField("matrix_id", id).Info("审批规则已删除")
	return nil
}
