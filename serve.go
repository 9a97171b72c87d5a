package main

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"claimflow/app"
	"claimflow/database"
	"claimflow/router"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "启动 HTTP 服务",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadRuntime()
			if err != nil {
				return err
			}
			// 命令行参数覆盖端口配置
			if port != "" {
				if !strings.HasPrefix(port, ":") {
					port = ":" + port
				}
				cfg.Server.Port = port
			}
			cfg.PrintConfig(log)

			a, err := app.New(cfg, log)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if cfg.Seed.OnEmpty {
				if err := database.SeedIfEmpty(ctx, a.DB, log); err != nil {
					log.WithError(err).Warn("写入演示数据失败")
				}
			}

			a.Start(ctx)
			srv := &http.Server{
				Addr:              cfg.Server.Port,
				Handler:           router.SetupRouter(a),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				log.Infof("报销审批系统已启动: http://localhost%s/api/v1/  Swagger: http://localhost%s/swagger/index.html",
					cfg.Server.Port, cfg.Server.Port)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					a.Close(context.Background())
					return err
				}
			case <-ctx.Done():
				log.Info("收到退出信号，正在关闭服务")
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.WithError(err).Warn("HTTP 服务关闭超时")
			}
			if err := a.Close(shutdownCtx); err != nil {
				log.WithError(err).Warn("释放资源失败")
			}
			log.Info("服务已退出")
			return nil
		},
	}
	cmd.Flags().StringVarP(&port, "port", "p", "", "监听端口，如: 8080 或 :8080")
	return cmd
}
