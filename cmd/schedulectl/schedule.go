package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Jaaz7/kgag-scheduler/internal/dto"
)

func generateCmd(c *cli) *cobra.Command {
	var (
		p        periodFlags
		overflow bool
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "生成并提交某店铺某月的排班（每月只能生成一次）",
		RunE: func(cmd *cobra.Command, args []string) error {
			shopID, err := c.resolveShop(p.shop)
			if err != nil {
				return err
			}
			a, err := c.open()
			if err != nil {
				return err
			}

			req := &dto.GenerateScheduleRequest{ShopID: shopID, Month: p.month, Year: p.year}
			if cmd.Flags().Changed("allow-overflow") {
				req.AllowQuotaOverflow = &overflow
			}

			result, err := a.Service.Schedule.GenerateSchedule(c.ctx, req, "")
			if err != nil {
				return err
			}
			printGenerateResult(cmd.OutOrStdout(), result)
			return nil
		},
	}
	p.bind(cmd)
	cmd.Flags().BoolVar(&overflow, "allow-overflow", false, "无人可排时允许超出周配额（默认取配置）")
	return cmd
}

func showCmd(c *cli) *cobra.Command {
	var p periodFlags
	cmd := &cobra.Command{
		Use:   "show",
		Short: "查看已生成的排班",
		RunE: func(cmd *cobra.Command, args []string) error {
			shopID, err := c.resolveShop(p.shop)
			if err != nil {
				return err
			}
			a, err := c.open()
			if err != nil {
				return err
			}

			schedule, err := a.Service.Schedule.GetSchedule(c.ctx, shopID, p.month, p.year)
			if err != nil {
				return err
			}
			printSchedule(cmd.OutOrStdout(), schedule)
			return nil
		},
	}
	p.bind(cmd)
	return cmd
}

func monthsCmd(c *cli) *cobra.Command {
	var shop string
	cmd := &cobra.Command{
		Use:   "months",
		Short: "列出当月与下月中尚未生成排班的月份",
		RunE: func(cmd *cobra.Command, args []string) error {
			shopID, err := c.resolveShop(shop)
			if err != nil {
				return err
			}
			a, err := c.open()
			if err != nil {
				return err
			}

			months, err := a.Service.Schedule.AvailableMonths(c.ctx, shopID, time.Now())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(months) == 0 {
				fmt.Fprintln(out, "当月与下月均已生成排班")
				return nil
			}
			for _, m := range months {
				fmt.Fprintln(out, m.Label)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&shop, "shop", "", "店铺 ID 或名称")
	_ = cmd.MarkFlagRequired("shop")
	return cmd
}

func exportCmd(c *cli) *cobra.Command {
	var (
		p      periodFlags
		dir    string
		worker string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "导出排班为 Excel 文件；指定 --worker 时导出该员工的 .ics 日历",
		RunE: func(cmd *cobra.Command, args []string) error {
			shopID, err := c.resolveShop(p.shop)
			if err != nil {
				return err
			}
			a, err := c.open()
			if err != nil {
				return err
			}

			var (
				buf      *bytes.Buffer
				filename string
			)
			if worker != "" {
				buf, filename, err = a.Service.Export.ExportWorkerCalendar(c.ctx, shopID, p.month, p.year, worker)
			} else {
				buf, filename, err = a.Service.Export.ExportSchedule(c.ctx, shopID, p.month, p.year)
			}
			if err != nil {
				return err
			}
			path := filepath.Join(dir, filename)
			if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("写入文件失败: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "已导出:", path)
			return nil
		},
	}
	p.bind(cmd)
	cmd.Flags().StringVarP(&dir, "out", "o", ".", "输出目录")
	cmd.Flags().StringVar(&worker, "worker", "", "员工 ID")
	return cmd
}

// ── 输出 ──

func printGenerateResult(w io.Writer, r *dto.GenerateScheduleResponse) {
	fmt.Fprintf(w, "排班已生成: %d 个班次，已排 %d，未排 %d，闭店 %d\n",
		r.TotalCells, r.FilledCount, r.UnfilledCount, r.ClosedCount)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "员工\t周配额\t合计\t按周")
	for _, l := range r.PerWorkerLoad {
		weeks := ""
		for i, wk := range l.Weeks {
			if i > 0 {
				weeks += " "
			}
			weeks += fmt.Sprintf("%s:%d", wk.Week, wk.Count)
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", l.Name, l.Quota, l.Total, weeks)
	}
	tw.Flush()

	for _, v := range r.QuotaViolations {
		fmt.Fprintf(w, "超配额: %s %s %s（第 %d 天 / 配额 %d）\n", v.WorkerID, v.Date, v.Slot, v.Count, v.Quota)
	}
	for _, msg := range r.Warnings {
		fmt.Fprintln(w, "警告:", msg)
	}
}

func printSchedule(w io.Writer, s *dto.ScheduleResponse) {
	fmt.Fprintf(w, "%s %04d-%02d（%s）\n", s.ShopName, s.Year, s.Month, s.Status)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "日期\t星期\t班次\t时间\t员工")
	for _, a := range s.Assignments {
		name := "未排"
		if a.Worker != nil {
			name = a.Worker.Name
			if a.OverQuota {
				name += " (超配额)"
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s-%s\t%s\n", a.Date, a.Weekday, a.ShiftSlot, a.StartTime, a.EndTime, name)
	}
	tw.Flush()
}
