package service

import (
	"context"
	"errors"
	"testing"

	"claimflow/models"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type matrixKey struct {
	department string
	level      int
}

// fakeMatrix 内存审批矩阵
type fakeMatrix struct {
	rows map[matrixKey]uint
	err  error
}

func newFakeMatrix() *fakeMatrix {
	return &fakeMatrix{rows: map[matrixKey]uint{}}
}

func (m *fakeMatrix) set(department string, level int, approverID uint) *fakeMatrix {
	m.rows[matrixKey{department, level}] = approverID
	return m
}

func (m *fakeMatrix) FindByLevel(_ context.Context, department string, level int) (*models.ApprovalMatrix, error) {
	if m.err != nil {
		return nil, m.err
	}
	id, ok := m.rows[matrixKey{department, level}]
	if !ok {
		return nil, nil
	}
	return &models.ApprovalMatrix{Department: department, Level: level, ApproverID: id}, nil
}

func (m *fakeMatrix) FindByApprover(_ context.Context, department string, approverID uint) (*models.ApprovalMatrix, error) {
	if m.err != nil {
		return nil, m.err
	}
	best := 0
	for k, id := range m.rows {
		if k.department == department && id == approverID && (best == 0 || k.level < best) {
			best = k.level
		}
	}
	if best == 0 {
		return nil, nil
	}
	return &models.ApprovalMatrix{Department: department, Level: best, ApproverID: approverID}, nil
}

func uintPtr(v uint) *uint { return &v }

func newTestRouter(m *fakeMatrix) (*ApprovalRouter, *test.Hook) {
	log, hook := test.NewNullLogger()
	return NewApprovalRouter(m, log), hook
}

func TestAssignInitialApprover(t *testing.T) {
	ctx := context.Background()
	router, _ := newTestRouter(newFakeMatrix().set("IT", 1, 1).set("IT", 2, 5))

	a, err := router.AssignInitialApprover(ctx, "IT")
	require.NoError(t, err)
	require.NotNil(t, a.ApproverID)
	assert.Equal(t, uint(1), *a.ApproverID)
	assert.Equal(t, 1, a.Level)
	assert.Equal(t, models.ClaimStatusPending, a.Status)
	assert.False(t, a.AutoApproved())

	for _, dept := range []string{"Sales", "", "   "} {
		a, err := router.AssignInitialApprover(ctx, dept)
		require.NoError(t, err)
		assert.Nil(t, a.ApproverID, "department=%q", dept)
		assert.Equal(t, 0, a.Level)
		assert.Equal(t, models.ClaimStatusApproved, a.Status)
		assert.True(t, a.AutoApproved())
	}
}

func TestAssignInitialApprover_OnlyHigherLevels(t *testing.T) {
	router, _ := newTestRouter(newFakeMatrix().set("Ops", 2, 9))

	a, err := router.AssignInitialApprover(context.Background(), "Ops")
	require.NoError(t, err)
	assert.True(t, a.AutoApproved())
}

func TestAssignInitialApprover_StoreError(t *testing.T) {
	m := newFakeMatrix()
	m.err = errors.New("db down")
	router, _ := newTestRouter(m)

	_, err := router.AssignInitialApprover(context.Background(), "IT")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
}

func TestAdvance_MultiLevelChain(t *testing.T) {
	ctx := context.Background()
	router, _ := newTestRouter(newFakeMatrix().set("IT", 1, 1).set("IT", 2, 5))
	claim := &models.Claim{ID: 10, Department: "IT", Status: models.ClaimStatusPending, ApproverID: uintPtr(1), Level: 1}

	tr, err := router.Advance(ctx, claim, models.ClaimStatusApproved)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAdvanced, tr.Outcome)
	assert.Equal(t, models.ClaimStatusPending, claim.Status)
	assert.Equal(t, uint(5), *claim.ApproverID)
	assert.Equal(t, 2, claim.Level)
	assert.Equal(t, 1, tr.Previous.Level)
	assert.Equal(t, uint(1), *tr.Previous.ApproverID)

	tr, err = router.Advance(ctx, claim, models.ClaimStatusApproved)
	require.NoError(t, err)
	assert.Equal(t, OutcomeApproved, tr.Outcome)
	assert.Equal(t, models.ClaimStatusApproved, claim.Status)
	assert.Equal(t, uint(5), *claim.ApproverID, "终审后审批人保持为最后一位审批人")
	assert.Equal(t, 2, claim.Level)
}

func TestAdvance_Reject(t *testing.T) {
	router, _ := newTestRouter(newFakeMatrix().set("IT", 1, 1).set("IT", 2, 5))
	claim := &models.Claim{Department: "IT", Status: models.ClaimStatusPending, ApproverID: uintPtr(1), Level: 1}

	tr, err := router.Advance(context.Background(), claim, models.ClaimStatusRejected)
	require.NoError(t, err)
	assert.Equal(t, OutcomeRejected, tr.Outcome)
	assert.Equal(t, models.ClaimStatusRejected, claim.Status)
	assert.Equal(t, uint(1), *claim.ApproverID)
	assert.Equal(t, 1, claim.Level)
}

func TestAdvance_TerminalClaim(t *testing.T) {
	router, _ := newTestRouter(newFakeMatrix().set("IT", 1, 1))

	for _, status := range []string{models.ClaimStatusApproved, models.ClaimStatusRejected} {
		claim := &models.Claim{Department: "IT", Status: status, ApproverID: uintPtr(1), Level: 1}
		_, err := router.Advance(context.Background(), claim, models.ClaimStatusApproved)
		assert.ErrorIs(t, err, ErrInvalidState)
		assert.Equal(t, status, claim.Status)
	}
}

func TestAdvance_InvalidDecision(t *testing.T) {
	router, _ := newTestRouter(newFakeMatrix().set("IT", 1, 1))
	claim := &models.Claim{Department: "IT", Status: models.ClaimStatusPending, ApproverID: uintPtr(1), Level: 1}

	_, err := router.Advance(context.Background(), claim, "Maybe")
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, models.ClaimStatusPending, claim.Status)
}

func TestAdvance_LegacyLevelFallback(t *testing.T) {
	router, _ := newTestRouter(newFakeMatrix().set("IT", 1, 1).set("IT", 2, 5).set("IT", 3, 7))
	// 历史数据没有记录级别，按审批人反查出当前是第二级
	claim := &models.Claim{Department: "IT", Status: models.ClaimStatusPending, ApproverID: uintPtr(5)}

	tr, err := router.Advance(context.Background(), claim, models.ClaimStatusApproved)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAdvanced, tr.Outcome)
	assert.Equal(t, uint(7), *claim.ApproverID)
	assert.Equal(t, 3, claim.Level)
	assert.Equal(t, 0, tr.Previous.Level)
}

func TestAdvance_ApproverRemovedFromMatrix(t *testing.T) {
	router, hook := newTestRouter(newFakeMatrix().set("IT", 1, 1).set("IT", 2, 5))
	claim := &models.Claim{ID: 3, Department: "IT", Status: models.ClaimStatusPending, ApproverID: uintPtr(42)}

	tr, err := router.Advance(context.Background(), claim, models.ClaimStatusApproved)
	require.NoError(t, err)
	assert.Equal(t, OutcomeApproved, tr.Outcome)
	assert.Equal(t, models.ClaimStatusApproved, claim.Status)
	assert.Equal(t, uint(42), *claim.ApproverID)

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

func TestAdvance_StoreError(t *testing.T) {
	m := newFakeMatrix()
	m.err = errors.New("db down")
	router, _ := newTestRouter(m)
	claim := &models.Claim{Department: "IT", Status: models.ClaimStatusPending, ApproverID: uintPtr(1), Level: 1}

	_, err := router.Advance(context.Background(), claim, models.ClaimStatusApproved)
	require.Error(t, err)
}
