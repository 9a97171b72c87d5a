package database

import (
	"context"
	"fmt"

	"claimflow/models"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultSeedPassword 演示账号的初始密码
const DefaultSeedPassword = "password"

// SeedIfEmpty 用户表为空时写入演示数据
func SeedIfEmpty(ctx context.Context, db *gorm.DB, log logrus.FieldLogger) error {
	var count int64
	if err := db.WithContext(ctx).Model(&models.User{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	log.Info("用户表为空，写入演示数据")
	return Seed(ctx, db, false)
}

// Seed 写入演示用户与审批矩阵：IT 部门由管理员审批，Finance 部门由 sarah 审批。
// reset 为 true 时先清空全部数据。
func Seed(ctx context.Context, db *gorm.DB, reset bool) error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(DefaultSeedPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("密码加密失败: %w", err)
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if reset {
			for _, m := range []interface{}{&models.Claim{}, &models.ApprovalMatrix{}, &models.User{}} {
				if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(m).Error; err != nil {
					return err
				}
			}
		}

		admin := models.User{Name: "Admin User", Username: "admin", Email: "admin@example.com",
			Password: string(hashed), Role: models.RoleAdmin, IsActive: true, Department: "IT"}
		manager := models.User{Name: "Sarah Manager", Username: "sarah", Email: "sarah@example.com",
			Password: string(hashed), Role: models.RoleUser, IsActive: true, Department: "Finance"}
		employee := models.User{Name: "John Doe", Username: "john", Email: "user@example.com",
			Password: string(hashed), Role: models.RoleUser, IsActive: true, Department: "IT"}

		for _, u := range []*models.User{&admin, &manager, &employee} {
			if err := tx.Create(u).Error; err != nil {
				return fmt.Errorf("创建用户 %s 失败: %w", u.Username, err)
			}
		}

		matrix := []models.ApprovalMatrix{
			{Department: "IT", ApproverID: admin.ID, Level: 1},
			{Department: "Finance", ApproverID: manager.ID, Level: 1},
		}
		return tx.Create(&matrix).Error
	})
}
