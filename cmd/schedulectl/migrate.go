package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Jaaz7/kgag-scheduler/internal/model"
	"github.com/Jaaz7/kgag-scheduler/pkg/database"
)

func migrateCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "数据库迁移",
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "执行所有未应用的迁移",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := database.NewDB(&c.cfg.Database, c.cfg.Log.Level, c.logger)
			if err != nil {
				return err
			}
			defer func() {
				if sqlDB, err := db.DB(); err == nil {
					sqlDB.Close()
				}
			}()
			return database.Migrate(db, &c.cfg.Database, c.logger, model.All()...)
		},
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "回滚最近的迁移（仅 PostgreSQL）",
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.cfg.Database.IsSQLite() {
				return fmt.Errorf("SQLite 使用自动迁移，不支持回滚")
			}
			db, err := database.NewDB(&c.cfg.Database, c.cfg.Log.Level, c.logger)
			if err != nil {
				return err
			}
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			defer sqlDB.Close()
			return database.RollbackMigrations(sqlDB, steps, c.logger)
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "回滚步数")

	cmd.AddCommand(up, down)
	return cmd
}
