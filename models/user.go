package models

import (
	"time"
)

const (
	// RoleUser 普通员工
	RoleUser = "user"
	// RoleAdmin 管理员：可查看全部报销单、维护用户与审批矩阵
	RoleAdmin = "admin"
)

// User 用户模型
type User struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	Name       string    `json:"name" gorm:"size:100;not null"`
	Username   string    `json:"username" gorm:"uniqueIndex;size:50;not null"`
	Email      string    `json:"email" gorm:"uniqueIndex;size:100;not null"`
	Password   string    `json:"-" gorm:"size:255;not null"` // bcrypt 哈希
	Role       string    `json:"role" gorm:"size:20;default:user;index"`
	IsActive   bool      `json:"isActive" gorm:"not null"` // 自助注册的账号需管理员激活
	Department string    `json:"department" gorm:"size:100;index"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// TableName 设置表名
func (User) TableName() string {
	return "users"
}

// IsAdmin 是否为管理员
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// ValidRole 校验角色取值
func ValidRole(role string) bool {
	return role == RoleUser || role == RoleAdmin
}
