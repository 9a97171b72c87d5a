package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"claimflow/config"
	"claimflow/database"
	"claimflow/models"
	"claimflow/repository"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// recordingNotifier 记录通知调用
type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifier) record(format string, args ...interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, fmt.Sprintf(format, args...))
}

func (n *recordingNotifier) Events() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.events...)
}

func (n *recordingNotifier) Reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = nil
}

func (n *recordingNotifier) NotifySubmitted(user *models.User, claim *models.Claim) {
	n.record("submitted:%s", user.Username)
}

func (n *recordingNotifier) NotifyApprovalRequested(approver *models.User, claim *models.Claim, requesterName string) {
	n.record("approval:%s:%s", approver.Username, requesterName)
}

func (n *recordingNotifier) NotifyFinalStatus(user *models.User, claim *models.Claim, status string) {
	n.record("final:%s:%s", user.Username, status)
}

func (n *recordingNotifier) NotifyAutoApproved(user *models.User, claim *models.Claim) {
	n.record("auto:%s", user.Username)
}

func (n *recordingNotifier) NotifyAccountCreated(user *models.User, password string) {
	n.record("account:%s", user.Username)
}

func (n *recordingNotifier) NotifyRegistrationPending(admin *models.User, newUser *models.User) {
	n.record("registration:%s:%s", admin.Username, newUser.Username)
}

func (n *recordingNotifier) NotifyPasswordReset(user *models.User, password string) {
	n.record("reset:%s", user.Username)
}

type testEnv struct {
	db       *gorm.DB
	repo     *repository.Repository
	notifier *recordingNotifier
	claims   *ClaimService
	users    *UserService
	matrix   *MatrixService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := newTestLogger()
	db, err := database.Open(config.DatabaseConfig{Driver: database.DriverSQLite, Path: ":memory:"}, log)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close(db) })

	repo := repository.New(db)
	notifier := &recordingNotifier{}
	router := NewApprovalRouter(repo.Matrix, log)
	return &testEnv{
		db:       db,
		repo:     repo,
		notifier: notifier,
		claims:   NewClaimService(repo, router, notifier, log),
		users:    NewUserService(repo, notifier, log),
		matrix:   NewMatrixService(repo, log),
	}
}

func (e *testEnv) createUser(t *testing.T, username, role, department string) *models.User {
	t.Helper()
	hashed, err := HashPassword("password")
	require.NoError(t, err)
	u := &models.User{
		Name:       username + " name",
		Username:   username,
		Email:      username + "@example.com",
		Password:   hashed,
		Role:       role,
		IsActive:   true,
		Department: department,
	}
	require.NoError(t, e.repo.Users.Create(context.Background(), u))
	return u
}

func (e *testEnv) setRule(t *testing.T, department string, level int, approver *models.User) {
	t.Helper()
	_, err := e.repo.Matrix.Upsert(context.Background(), department, level, approver.ID)
	require.NoError(t, err)
}

func newClaimCommand(user *models.User, department string) CreateClaimCommand {
	return CreateClaimCommand{
		UserID:     user.ID,
		Title:      "出差北京",
		Type:       models.ClaimTypeTravel,
		Amount:     1200,
		Date:       "2024-05-01",
		Department: department,
	}
}
