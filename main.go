package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"claimflow/config"
	"claimflow/logging"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// @title 报销审批系统 API
// @version 1.0
// @description 报销/差旅申请与多级审批服务，支持按部门审批矩阵自动流转
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

var (
	configFile string
	version    = "dev"
)

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "claimflow",
		Short:         "报销审批系统",
		Long:          "报销/差旅申请与多级审批服务。报销单按费用归属部门的审批矩阵逐级流转，未配置审批人的部门自动通过。",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configFile, "config", "c", "", "外部配置文件路径（可选）")

	root.AddCommand(serveCmd())
	root.AddCommand(seedCmd())
	root.AddCommand(versionCmd())
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd().ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadRuntime 加载配置并按配置初始化日志
func loadRuntime() (*config.Config, *logrus.Logger, error) {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("加载配置失败: %w", err)
	}
	log, err := logging.New(cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "显示版本信息",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "报销审批系统 %s\n", version)
		},
	}
}
