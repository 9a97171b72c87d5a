package main

import (
	"claimflow/database"

	"github.com/spf13/cobra"
)

func seedCmd() *cobra.Command {
	var reset bool

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "写入演示用户与审批矩阵",
		Long:  "创建 admin / sarah / john 三个演示账号（密码均为 password），以及 IT→admin、Finance→sarah 两条一级审批规则。",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadRuntime()
			if err != nil {
				return err
			}
			db, err := database.Open(cfg.Database, log)
			if err != nil {
				return err
			}
			defer database.Close(db)

			if err := database.Seed(cmd.Context(), db, reset); err != nil {
				return err
			}
			log.WithField("reset", reset).Info("演示数据已写入")
			return nil
		},
	}
	cmd.Flags().BoolVar(&reset, "reset", false, "写入前清空全部数据")
	return cmd
}
