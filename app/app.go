// Package app 组装应用依赖，替代全局单例
package app

import (
	"context"
	"errors"
	"time"

	"claimflow/config"
	"claimflow/database"
	"claimflow/middleware"
	"claimflow/repository"
	"claimflow/service"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// 登录接口每 IP 每分钟最多 10 次
const (
	loginAttempts = 10
	loginWindow   = time.Minute
)

// App 应用上下文，启动时构建一次，注入路由与处理器
type App struct {
	Config *config.Config
	Log    *logrus.Logger
	DB     *gorm.DB
	Repo   *repository.Repository

	JWT          *middleware.JWTManager
	LoginLimiter *middleware.RateLimiter
	Mail         *service.MailQueue

	Router   *service.ApprovalRouter
	Claims   *service.ClaimService
	Users    *service.UserService
	Matrix   *service.MatrixService
	Exporter *service.ClaimExporter

	cancel context.CancelFunc
}

// New 连接数据库并组装依赖
func New(cfg *config.Config, log *logrus.Logger) (*App, error) {
	db, err := database.Open(cfg.Database, log)
	if err != nil {
		return nil, err
	}
	a, err := NewWithDB(cfg, log, db)
	if err != nil {
		database.Close(db)
		return nil, err
	}
	return a, nil
}

// NewWithDB 使用已建立的数据库连接组装依赖
func NewWithDB(cfg *config.Config, log *logrus.Logger, db *gorm.DB) (*App, error) {
	jwtManager, err := middleware.NewJWTManager(cfg.JWT.Secret, cfg.JWT.ExpireTime)
	if err != nil {
		return nil, err
	}

	repo := repository.New(db)
	mail := service.NewMailQueue(service.NewEmailService(&cfg.Email, cfg.Server.BaseURL), cfg.Notify, log.WithField("component", "mail"))
	router := service.NewApprovalRouter(repo.Matrix, log.WithField("component", "approval"))

	return &App{
		Config:       cfg,
		Log:          log,
		DB:           db,
		Repo:         repo,
		JWT:          jwtManager,
		LoginLimiter: middleware.NewRateLimiter(loginAttempts, loginWindow),
		Mail:         mail,
		Router:       router,
		Claims:       service.NewClaimService(repo, router, mail, log),
		Users:        service.NewUserService(repo, mail, log),
		Matrix:       service.NewMatrixService(repo, log),
		Exporter:     service.NewClaimExporter(repo.Claims),
	}, nil
}

// Start 启动后台任务：邮件队列与限流清理
func (a *App) Start(ctx context.Context) {
	ctx, a.cancel = context.WithCancel(ctx)
	a.Mail.Start()
	go a.LoginLimiter.Run(ctx)
}

// Close 排空邮件队列并关闭数据库
func (a *App) Close(ctx context.Context) error {
	if a.cancel != nil {
		a.cancel()
	}
	var errs []error
	if err := a.Mail.Close(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := database.Close(a.DB); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
