package service

import (
	"context"
	"testing"

	"claimflow/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserService_Register(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.createUser(t, "admin", models.RoleAdmin, "IT")
	env.createUser(t, "amy", models.RoleUser, "IT")

	user, err := env.users.Register(ctx, RegisterCommand{Name: "Amy Two", Email: "Amy@Other.com", Department: "Sales"})
	require.NoError(t, err)
	assert.Equal(t, "amy2", user.Username, "用户名冲突时追加数字后缀")
	assert.Equal(t, "amy@other.com", user.Email)
	assert.False(t, user.IsActive)
	assert.Equal(t, models.RoleUser, user.Role)
	assert.Equal(t, []string{"account:amy2", "registration:admin:amy2"}, env.notifier.Events())

	stored, err := env.repo.Users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)

	_, err = env.users.Register(ctx, RegisterCommand{Name: "dup", Email: "amy@other.com"})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = env.users.Register(ctx, RegisterCommand{Name: "bad", Email: "not-an-email"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUserService_RegisterWithoutAdmin(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.users.Register(context.Background(), RegisterCommand{Name: "Solo", Email: "solo@example.com"})
	require.NoError(t, err)
	assert.Equal(t, []string{"account:solo"}, env.notifier.Events())
}

func TestUserService_Login(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sarah := env.createUser(t, "sarah", models.RoleUser, "Finance")
	env.createUser(t, "john", models.RoleUser, "IT")
	env.setRule(t, "Finance", 1, sarah)

	res, err := env.users.Login(ctx, "sarah", "password")
	require.NoError(t, err)
	assert.Equal(t, sarah.ID, res.User.ID)
	assert.True(t, res.IsApprover)

	res, err = env.users.Login(ctx, "john", "password")
	require.NoError(t, err)
	assert.False(t, res.IsApprover)

	_, err = env.users.Login(ctx, "john", "wrong")
	assert.ErrorIs(t, err, ErrAuth)
	_, err = env.users.Login(ctx, "nobody", "password")
	assert.ErrorIs(t, err, ErrAuth)

	inactive := false
	_, err = env.users.Update(ctx, Actor{}, sarah.ID, UpdateUserCommand{IsActive: &inactive})
	require.NoError(t, err)
	_, err = env.users.Login(ctx, "sarah", "password")
	assert.ErrorIs(t, err, ErrAccountDisabled)
}

func TestUserService_ForgotPassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	john := env.createUser(t, "john", models.RoleUser, "IT")

	require.NoError(t, env.users.ForgotPassword(ctx, "nobody"))
	assert.Empty(t, env.notifier.Events())

	require.NoError(t, env.users.ForgotPassword(ctx, "john"))
	assert.Equal(t, []string{"reset:john"}, env.notifier.Events())

	stored, err := env.repo.Users.GetByID(ctx, john.ID)
	require.NoError(t, err)
	assert.False(t, CheckPassword(stored.Password, "password"))
}

func TestUserService_ChangePassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	john := env.createUser(t, "john", models.RoleUser, "IT")

	assert.ErrorIs(t, env.users.ChangePassword(ctx, john.ID, "password", "123"), ErrValidation)
	assert.ErrorIs(t, env.users.ChangePassword(ctx, john.ID, "wrong", "newpassword"), ErrValidation)
	require.NoError(t, env.users.ChangePassword(ctx, john.ID, "password", "newpassword"))

	_, err := env.users.Login(ctx, "john", "newpassword")
	assert.NoError(t, err)
}

func TestUserService_CreateAndUpdate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.createUser(t, "john", models.RoleUser, "IT")

	user, err := env.users.Create(ctx, CreateUserCommand{Name: "Amy", Username: "amy", Email: "amy@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.True(t, user.IsActive)
	assert.Equal(t, models.RoleUser, user.Role)

	_, err = env.users.Create(ctx, CreateUserCommand{Name: "J", Username: "john", Email: "j2@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, ErrConflict)
	_, err = env.users.Create(ctx, CreateUserCommand{Name: "R", Username: "root", Email: "root@example.com", Password: "secret1", Role: "root"})
	assert.ErrorIs(t, err, ErrValidation)

	role := models.RoleAdmin
	dept := "Finance"
	actor := Actor{ID: 999, Role: models.RoleAdmin}
	updated, err := env.users.Update(ctx, actor, user.ID, UpdateUserCommand{Role: &role, Department: &dept})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, updated.Role)
	assert.Equal(t, "Finance", updated.Department)
	assert.Equal(t, "amy", updated.Username)

	taken := "john"
	_, err = env.users.Update(ctx, actor, user.ID, UpdateUserCommand{Username: &taken})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = env.users.Update(ctx, actor, 404, UpdateUserCommand{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserService_Delete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.createUser(t, "admin", models.RoleAdmin, "IT")
	sarah := env.createUser(t, "sarah", models.RoleUser, "Finance")
	john := env.createUser(t, "john", models.RoleUser, "Finance")
	env.setRule(t, "Finance", 1, sarah)

	actor := Actor{ID: admin.ID, Role: admin.Role}
	assert.ErrorIs(t, env.users.Delete(ctx, actor, admin.ID), ErrForbidden)

	claim, err := env.claims.Create(ctx, newClaimCommand(john, "Finance"))
	require.NoError(t, err)
	assert.ErrorIs(t, env.users.Delete(ctx, actor, sarah.ID), ErrConflict)
	rule, err := env.repo.Matrix.FindByLevel(ctx, "Finance", 1)
	require.NoError(t, err)
	require.NotNil(t, rule, "拒绝删除时审批规则保持不变")
	assert.Equal(t, sarah.ID, rule.ApproverID)

	_, err = env.claims.Decide(ctx, DecideClaimCommand{ClaimID: claim.ID, Actor: actor, Decision: models.ClaimStatusRejected})
	require.NoError(t, err)
	require.NoError(t, env.users.Delete(ctx, actor, sarah.ID))

	rule, err = env.repo.Matrix.FindByLevel(ctx, "Finance", 1)
	require.NoError(t, err)
	assert.Nil(t, rule, "审批规则随用户一并删除")

	assert.ErrorIs(t, env.users.Delete(ctx, actor, sarah.ID), ErrNotFound)
}

func TestUserService_UpdateKeepsAnAdmin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.createUser(t, "admin", models.RoleAdmin, "IT")
	other := env.createUser(t, "other", models.RoleAdmin, "IT")
	actor := Actor{ID: admin.ID, Role: admin.Role}

	demote := models.RoleUser
	inactive := false

	_, err := env.users.Update(ctx, actor, admin.ID, UpdateUserCommand{Role: &demote})
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = env.users.Update(ctx, actor, admin.ID, UpdateUserCommand{IsActive: &inactive})
	assert.ErrorIs(t, err, ErrForbidden)

	name := "Admin"
	_, err = env.users.Update(ctx, actor, admin.ID, UpdateUserCommand{Name: &name})
	require.NoError(t, err)

	updated, err := env.users.Update(ctx, actor, other.ID, UpdateUserCommand{Role: &demote})
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, updated.Role)

	// 仅剩一个启用中的管理员
	otherActor := Actor{ID: other.ID, Role: models.RoleAdmin}
	_, err = env.users.Update(ctx, otherActor, admin.ID, UpdateUserCommand{IsActive: &inactive})
	assert.ErrorIs(t, err, ErrConflict)

	stored, err := env.repo.Users.GetByID(ctx, admin.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsActive)
	assert.Equal(t, models.RoleAdmin, stored.Role)
}

func TestGeneratePassword(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		p, err := GeneratePassword()
		require.NoError(t, err)
		assert.Len(t, p, 8)
		seen[p] = true
	}
	assert.Greater(t, len(seen), 1)
}
