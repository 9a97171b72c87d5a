package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strconv"
	"strings"

	"claimflow/models"
	"claimflow/repository"

	"github.com/sirupsen/logrus"
)

const minPasswordLength = 6

// RegisterCommand 自助注册
type RegisterCommand struct {
	Name       string
	Email      string
	Department string
}

// CreateUserCommand 管理员创建用户
type CreateUserCommand struct {
	Name       string
	Username   string
	Email      string
	Password   string
	Role       string
	Department string
}

// UpdateUserCommand 管理员修改用户，nil 字段保持不变
type UpdateUserCommand struct {
	IsActive   *bool
	Name       *string
	Username   *string
	Email      *string
	Role       *string
	Department *string
	Password   *string
}

// LoginResult 登录结果
type LoginResult struct {
	User       *models.User
	IsApprover bool
}

// UserService 账号业务
type UserService struct {
	repo     *repository.Repository
	notifier Notifier
	log      logrus.FieldLogger
}

// NewUserService 创建账号服务
func NewUserService(repo *repository.Repository, notifier Notifier, log logrus.FieldLogger) *UserService {
	return &UserService{repo: repo, notifier: notifier, log: log}
}

// Register 自助注册：用户名取邮箱前缀，生成随机密码并邮件发送，账号需管理员激活
func (s *UserService) Register(ctx context.Context, cmd RegisterCommand) (*models.User, error) {
	name := strings.TrimSpace(cmd.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: 姓名不能为空", ErrValidation)
	}
	email, err := normalizeEmail(cmd.Email)
	if err != nil {
		return nil, err
	}
	if err := s.ensureEmailFree(ctx, email, 0); err != nil {
		return nil, err
	}

	username, err := s.availableUsername(ctx, strings.SplitN(email, "@", 2)[0])
	if err != nil {
		return nil, err
	}
	password, err := GeneratePassword()
	if err != nil {
		return nil, err
	}
	hashed, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Name:       name,
		Username:   username,
		Email:      email,
		Password:   hashed,
		Role:       models.RoleUser,
		IsActive:   false,
		Department: strings.TrimSpace(cmd.Department),
	}
	if err := s.repo.Users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("创建用户失败: %w", err)
	}

	s.log.WithFields(logrus.Fields{"user_id": user.ID, "username": username}).Info("新用户注册，等待激活")

	s.notifier.NotifyAccountCreated(user, password)
	admin, err := s.repo.Users.FirstActiveAdmin(ctx)
	switch {
	case err == nil:
		s.notifier.NotifyRegistrationPending(admin, user)
	case errors.Is(err, ErrNotFound):
		s.log.Warn("没有启用中的管理员，跳过注册审核通知")
	default:
		s.log.WithError(err).Warn("查询管理员失败，跳过注册审核通知")
	}
	return user, nil
}

// availableUsername 用户名冲突时追加数字后缀
func (s *UserService) availableUsername(ctx context.Context, base string) (string, error) {
	base = strings.ToLower(strings.TrimSpace(base))
	if base == "" {
		base = "user"
	}
	candidate := base
	for i := 2; i < 1000; i++ {
		exists, err := s.repo.Users.ExistsUsername(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		candidate = base + strconv.Itoa(i)
	}
	return "", fmt.Errorf("%w: 无法为 %s 分配用户名", ErrConflict, base)
}

// Login 校验用户名和密码
func (s *UserService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	user, err := s.repo.Users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrAuth
		}
		return nil, err
	}
	if !CheckPassword(user.Password, password) {
		return nil, ErrAuth
	}
	if !user.IsActive {
		return nil, ErrAccountDisabled
	}

	isApprover, err := s.repo.Matrix.IsApprover(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("查询审批人身份失败: %w", err)
	}
	return &LoginResult{User: user, IsApprover: isApprover}, nil
}

// ForgotPassword 重置为随机密码并邮件发送。用户不存在时静默返回，避免泄露账号信息
func (s *UserService) ForgotPassword(ctx context.Context, username string) error {
	user, err := s.repo.Users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}

	password, err := GeneratePassword()
	if err != nil {
		return err
	}
	hashed, err := HashPassword(password)
	if err != nil {
		return err
	}
	user.Password = hashed
	if err := s.repo.Users.Save(ctx, user); err != nil {
		return fmt.Errorf("重置密码失败: %w", err)
	}

	s.log.WithField("user_id", user.ID).Info("密码已重置")
	s.notifier.NotifyPasswordReset(user, password)
	return nil
}

// ChangePassword 修改本人密码
func (s *UserService) ChangePassword(ctx context.Context, userID uint, oldPassword, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return fmt.Errorf("%w: 新密码至少 %d 位", ErrValidation, minPasswordLength)
	}
	user, err := s.repo.Users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if !CheckPassword(user.Password, oldPassword) {
		return fmt.Errorf("%w: 原密码错误", ErrValidation)
	}
	hashed, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	user.Password = hashed
	return s.repo.Users.Save(ctx, user)
}

// Get 获取用户
func (s *UserService) Get(ctx context.Context, id uint) (*models.User, error) {
	return s.repo.Users.GetByID(ctx, id)
}

// List 用户列表
func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	return s.repo.Users.List(ctx)
}

// Create 管理员创建用户，直接启用
func (s *UserService) Create(ctx context.Context, cmd CreateUserCommand) (*models.User, error) {
	name := strings.TrimSpace(cmd.Name)
	username := strings.TrimSpace(cmd.Username)
	if name == "" || username == "" {
		return nil, fmt.Errorf("%w: 姓名和用户名不能为空", ErrValidation)
	}
	if len(cmd.Password) < minPasswordLength {
		return nil, fmt.Errorf("%w: 密码至少 %d 位", ErrValidation, minPasswordLength)
	}
	role := cmd.Role
	if role == "" {
		role = models.RoleUser
	}
	if !models.ValidRole(role) {
		return nil, fmt.Errorf("%w: 无效的角色 %q", ErrValidation, role)
	}
	email, err := normalizeEmail(cmd.Email)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUsernameFree(ctx, username, 0); err != nil {
		return nil, err
	}
	if err := s.ensureEmailFree(ctx, email, 0); err != nil {
		return nil, err
	}

	hashed, err := HashPassword(cmd.Password)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Name:       name,
		Username:   username,
		Email:      email,
		Password:   hashed,
		Role:       role,
		IsActive:   true,
		Department: strings.TrimSpace(cmd.Department),
	}
	if err := s.repo.Users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("创建用户失败: %w", err)
	}
	return user, nil
}

// Update 部分更新用户
func (s *UserService) Update(ctx context.Context, actor Actor, id uint, cmd UpdateUserCommand) (*models.User, error) {
	user, err := s.repo.Users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	wasAdmin := user.IsAdmin() && user.IsActive

	if cmd.IsActive != nil {
		user.IsActive = *cmd.IsActive
	}
	if cmd.Name != nil && strings.TrimSpace(*cmd.Name) != "" {
		user.Name = strings.TrimSpace(*cmd.Name)
	}
	if cmd.Username != nil && strings.TrimSpace(*cmd.Username) != "" {
		username := strings.TrimSpace(*cmd.Username)
		if err := s.ensureUsernameFree(ctx, username, user.ID); err != nil {
			return nil, err
		}
		user.Username = username
	}
	if cmd.Email != nil && strings.TrimSpace(*cmd.Email) != "" {
		email, err := normalizeEmail(*cmd.Email)
		if err != nil {
			return nil, err
		}
		if err := s.ensureEmailFree(ctx, email, user.ID); err != nil {
			return nil, err
		}
		user.Email = email
	}
	if cmd.Role != nil && *cmd.Role != "" {
		if !models.ValidRole(*cmd.Role) {
			return nil, fmt.Errorf("%w: 无效的角色 %q", ErrValidation, *cmd.Role)
		}
		user.Role = *cmd.Role
	}
	if cmd.Department != nil {
		user.Department = strings.TrimSpace(*cmd.Department)
	}
	if cmd.Password != nil && *cmd.Password != "" {
		if len(*cmd.Password) < minPasswordLength {
			return nil, fmt.Errorf("%w: 密码至少 %d 位", ErrValidation, minPasswordLength)
		}
		hashed, err := HashPassword(*cmd.Password)
		if err != nil {
			return nil, err
		}
		user.Password = hashed
	}

	if wasAdmin && (!user.IsAdmin() || !user.IsActive) {
		if err := s.ensureAdminRemains(ctx, actor, id); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Users.Save(ctx, user); err != nil {
		return nil, fmt.Errorf("更新用户失败: %w", err)
	}
	return user, nil
}

// ensureAdminRemains 禁止管理员降级或禁用自己，也不允许移除最后一个启用中的管理员
func (s *UserService) ensureAdminRemains(ctx context.Context, actor Actor, id uint) error {
	if actor.ID == id {
		return fmt.Errorf("%w: 不能降级或禁用当前登录的账号", ErrForbidden)
	}
	admins, err := s.repo.Users.CountActiveAdmins(ctx)
	if err != nil {
		return err
	}
	if admins <= 1 {
		return fmt.Errorf("%w: 至少需要保留一个启用中的管理员", ErrConflict)
	}
	return nil
}

// Delete 硬删除用户。不能删除自己，名下仍有待审批报销单时拒绝删除，
// 其审批规则在同一事务中一并删除。
func (s *UserService) Delete(ctx context.Context, actor Actor, id uint) error {
	if actor.ID == id {
		return fmt.Errorf("%w: 不能删除当前登录的账号", ErrForbidden)
	}
	if _, err := s.repo.Users.GetByID(ctx, id); err != nil {
		return err
	}

	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.Matrix.DeleteByApprover(ctx, id); err != nil {
			return fmt.Errorf("删除审批规则失败: %w", err)
		}
		pending, err := tx.Claims.CountPendingForApprover(ctx, id)
		if err != nil {
			return err
		}
		if pending > 0 {
			return fmt.Errorf("%w: 该用户还有 %d 张待审批的报销单", ErrConflict, pending)
		}
		return tx.Users.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{"user_id": id, "actor_id": actor.ID}).Info("用户已删除")
	return nil
}

func (s *UserService) ensureUsernameFree(ctx context.Context, username string, selfID uint) error {
	existing, err := s.repo.Users.GetByUsername(ctx, username)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if existing.ID != selfID {
		return fmt.Errorf("%w: 用户名已存在", ErrConflict)
	}
	return nil
}

func (s *UserService) ensureEmailFree(ctx context.Context, email string, selfID uint) error {
	existing, err := s.repo.Users.GetByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if existing.ID != selfID {
		return fmt.Errorf("%w: 邮箱已被注册", ErrConflict)
	}
	return nil
}

func normalizeEmail(raw string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil || addr.Name != "" {
		return "", fmt.Errorf("%w: 邮箱格式不正确", ErrValidation)
	}
	return strings.ToLower(addr.Address), nil
}
