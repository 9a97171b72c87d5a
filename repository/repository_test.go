package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"claimflow/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupMockDB(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	gormDB, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)

	return New(gormDB), mock
}

func uintPtr(v uint) *uint { return &v }

func TestApplyDecision_Success(t *testing.T) {
	repo, mock := setupMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `claims` SET .* WHERE .*approver_id = \\?").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	claim := &models.Claim{ID: 1, Status: models.ClaimStatusPending, ApproverID: uintPtr(5), Level: 2}
	prev := Stage{Status: models.ClaimStatusPending, Level: 1, ApproverID: uintPtr(3)}
	require.NoError(t, repo.Claims.ApplyDecision(context.Background(), claim, prev))
	assert.WithinDuration(t, time.Now(), claim.UpdatedAt, time.Minute)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyDecision_Stale(t *testing.T) {
	repo, mock := setupMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `claims` SET .* WHERE .*approver_id IS NULL").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	claim := &models.Claim{ID: 1, Status: models.ClaimStatusApproved}
	prev := Stage{Status: models.ClaimStatusPending}
	err := repo.Claims.ApplyDecision(context.Background(), claim, prev)
	assert.ErrorIs(t, err, ErrStaleState)
	assert.True(t, claim.UpdatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyDecision_DBError(t *testing.T) {
	repo, mock := setupMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `claims`").WillReturnError(errors.New("deadlock"))
	mock.ExpectRollback()

	err := repo.Claims.ApplyDecision(context.Background(), &models.Claim{ID: 1}, Stage{Status: models.ClaimStatusPending})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrStaleState)
}

func TestStageOf_CopiesApprover(t *testing.T) {
	claim := &models.Claim{Status: models.ClaimStatusPending, Level: 1, ApproverID: uintPtr(3)}
	stage := StageOf(claim)

	*claim.ApproverID = 9
	claim.Level = 2
	assert.Equal(t, uint(3), *stage.ApproverID)
	assert.Equal(t, 1, stage.Level)
}

func TestMatrixFindByLevel(t *testing.T) {
	repo, mock := setupMockDB(t)
	cols := []string{"id", "department", "approver_id", "level", "created_at", "updated_at"}

	mock.ExpectQuery("SELECT \\* FROM `approval_matrices` WHERE department = \\? AND level = \\?").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(7, "IT", 3, 2, time.Now(), time.Now()))
	row, err := repo.Matrix.FindByLevel(context.Background(), "IT", 2)
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, uint(3), row.ApproverID)
	assert.Equal(t, 2, row.Level)

	mock.ExpectQuery("SELECT \\* FROM `approval_matrices`").
		WillReturnRows(sqlmock.NewRows(cols))
	row, err = repo.Matrix.FindByLevel(context.Background(), "IT", 3)
	require.NoError(t, err)
	assert.Nil(t, row)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMatrixFindByApprover(t *testing.T) {
	repo, mock := setupMockDB(t)
	cols := []string{"id", "department", "approver_id", "level"}

	mock.ExpectQuery("SELECT \\* FROM `approval_matrices` WHERE department = \\? AND approver_id = \\?").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(2, "IT", 5, 1))
	row, err := repo.Matrix.FindByApprover(context.Background(), "IT", 5)
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, 1, row.Level)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserGetByID_NotFound(t *testing.T) {
	repo, mock := setupMockDB(t)

	mock.ExpectQuery("SELECT \\* FROM `users`").
		WillReturnError(gorm.ErrRecordNotFound)
	_, err := repo.Users.GetByID(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNotFound)

	mock.ExpectQuery("SELECT \\* FROM `users`").
		WillReturnError(sql.ErrConnDone)
	_, err = repo.Users.GetByID(context.Background(), 1)
	assert.ErrorIs(t, err, sql.ErrConnDone)
}

func TestClaimDelete_NotFound(t *testing.T) {
	repo, mock := setupMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM `claims`").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := repo.Claims.Delete(context.Background(), 99)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsApprover(t *testing.T) {
	repo, mock := setupMockDB(t)

	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `approval_matrices`").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	ok, err := repo.Matrix.IsApprover(context.Background(), 3)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestTransaction_RollsBackOnError(t *testing.T) {
	repo, mock := setupMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM `approval_matrices` WHERE approver_id = \\?").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("DELETE FROM `users`").WillReturnError(errors.New("lock wait timeout"))
	mock.ExpectRollback()

	err := repo.Transaction(context.Background(), func(tx *Repository) error {
		if err := tx.Matrix.DeleteByApprover(context.Background(), 7); err != nil {
			return err
		}
		return tx.Users.Delete(context.Background(), 7)
	})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransaction_Commits(t *testing.T) {
	repo, mock := setupMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM `approval_matrices`").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM `users`").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Transaction(context.Background(), func(tx *Repository) error {
		if err := tx.Matrix.DeleteByApprover(context.Background(), 7); err != nil {
			return err
		}
		return tx.Users.Delete(context.Background(), 7)
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
