package service

import (
	"context"
	"testing"

	"claimflow/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatrixService_Upsert(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sarah := env.createUser(t, "sarah", models.RoleUser, "Finance")
	admin := env.createUser(t, "admin", models.RoleAdmin, "IT")

	row, err := env.matrix.Upsert(ctx, UpsertMatrixCommand{Department: "Finance", ApproverID: sarah.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, row.Level, "级别默认为 1")
	assert.Equal(t, sarah.Name, row.Approver.Name)

	again, err := env.matrix.Upsert(ctx, UpsertMatrixCommand{Department: "Finance", ApproverID: admin.ID, Level: 1})
	require.NoError(t, err)
	assert.Equal(t, row.ID, again.ID, "同一部门同一级别只保留一条")
	assert.Equal(t, admin.ID, again.ApproverID)

	_, err = env.matrix.Upsert(ctx, UpsertMatrixCommand{Department: "Finance", ApproverID: sarah.ID, Level: 2})
	require.NoError(t, err)

	rows, err := env.matrix.List(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 1, rows[0].Level)
	assert.Equal(t, 2, rows[1].Level)

	_, err = env.matrix.Upsert(ctx, UpsertMatrixCommand{Department: " ", ApproverID: sarah.ID})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = env.matrix.Upsert(ctx, UpsertMatrixCommand{Department: "IT", ApproverID: 404})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = env.matrix.Upsert(ctx, UpsertMatrixCommand{Department: "IT", ApproverID: sarah.ID, Level: -1})
	assert.ErrorIs(t, err, ErrValidation)

	require.NoError(t, env.matrix.Delete(ctx, row.ID))
	assert.ErrorIs(t, env.matrix.Delete(ctx, row.ID), ErrNotFound)
}
