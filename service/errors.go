package service

import (
	"errors"

	"claimflow/repository"
)

var (
	// ErrNotFound 报销单、用户或审批规则不存在
	ErrNotFound = repository.ErrNotFound
	// ErrStaleState 并发审批时本阶段已被处理
	ErrStaleState = repository.ErrStaleState
	// ErrInvalidState 报销单已终结，不能再审批
	ErrInvalidState = errors.New("报销单已处理，无法再次审批")
	// ErrValidation 请求参数不合法
	ErrValidation = errors.New("参数错误")
	// ErrAuth 用户名或密码错误
	ErrAuth = errors.New("用户名或密码错误")
	// ErrAccountDisabled 账号未激活或已停用
	ErrAccountDisabled = errors.New("账号已停用，请联系管理员")
	// ErrForbidden 无权执行该操作
	ErrForbidden = errors.New("权限不足")
	// ErrConflict 唯一字段冲突
	ErrConflict = errors.New("数据已存在")
)
