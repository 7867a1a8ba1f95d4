// schedulectl 排班管理命令行：生成、查看、导出月度排班，导入员工名册，执行数据库迁移
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Jaaz7/kgag-scheduler/config"
	"github.com/Jaaz7/kgag-scheduler/internal/app"
	applogger "github.com/Jaaz7/kgag-scheduler/pkg/logger"
)

// cli 命令共享的运行时状态
type cli struct {
	configPath string
	cfg        *config.Config
	logger     *zap.Logger
	app        *app.App
	ctx        context.Context
}

func main() {
	c := &cli{ctx: context.Background()}

	rootCmd := &cobra.Command{
		Use:           "schedulectl",
		Short:         "店铺月度排班管理工具",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			c.close()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "配置文件路径（默认查找 ./config/config.yaml）")

	rootCmd.AddCommand(generateCmd(c))
	rootCmd.AddCommand(showCmd(c))
	rootCmd.AddCommand(monthsCmd(c))
	rootCmd.AddCommand(exportCmd(c))
	rootCmd.AddCommand(importRosterCmd(c))
	rootCmd.AddCommand(migrateCmd(c))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "错误:", err)
		c.close()
		os.Exit(1)
	}
}

// init 加载配置与日志
func (c *cli) init() error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	c.cfg = cfg

	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		return fmt.Errorf("初始化日志失败: %w", err)
	}
	c.logger = logger
	return nil
}

// open 按需装配数据库与 Service 层
func (c *cli) open() (*app.App, error) {
	if c.app != nil {
		return c.app, nil
	}
	a, err := app.New(c.ctx, c.cfg, c.logger)
	if err != nil {
		return nil, err
	}
	c.app = a
	return a, nil
}

func (c *cli) close() {
	if c.app != nil {
		c.app.Close()
		c.app = nil
	}
	if c.logger != nil {
		_ = c.logger.Sync()
	}
}

// resolveShop 店铺参数可为 ID 或名称
func (c *cli) resolveShop(ref string) (string, error) {
	if ref == "" {
		return "", fmt.Errorf("必须指定 --shop")
	}
	if _, err := uuid.Parse(ref); err == nil {
		return ref, nil
	}

	a, err := c.open()
	if err != nil {
		return "", err
	}
	shops, err := a.Service.Shop.List(c.ctx)
	if err != nil {
		return "", err
	}
	for _, s := range shops {
		if s.Name == ref {
			return s.ID, nil
		}
	}
	return "", fmt.Errorf("店铺 %q 不存在", ref)
}

// periodFlags 绑定 --shop/--month/--year
type periodFlags struct {
	shop  string
	month int
	year  int
}

func (p *periodFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&p.shop, "shop", "", "店铺 ID 或名称")
	cmd.Flags().IntVar(&p.month, "month", 0, "月份 1-12")
	cmd.Flags().IntVar(&p.year, "year", 0, "年份")
	_ = cmd.MarkFlagRequired("shop")
	_ = cmd.MarkFlagRequired("month")
	_ = cmd.MarkFlagRequired("year")
}
