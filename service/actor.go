package service

import "claimflow/models"

// Actor 发起操作的当前登录用户
type Actor struct {
	ID   uint
	Role string
}

func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}
