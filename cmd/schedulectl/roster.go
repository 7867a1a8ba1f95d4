package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Jaaz7/kgag-scheduler/internal/roster"
)

// rosterFile 名册 YAML 文件格式
//
//	workers:
//	  - id: a
//	    name: WorkerA
//	    weekly_quota: 5
//	    shift_preferences: [morning]
//	    day_preferences: [Sat, Sun]
type rosterFile struct {
	Workers []roster.WorkerRecord `yaml:"workers"`
}

// parseRosterFile 严格解析：未知字段报错
func parseRosterFile(r io.Reader) ([]roster.WorkerRecord, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f rosterFile
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("名册文件为空")
		}
		return nil, fmt.Errorf("解析名册文件失败: %w", err)
	}
	if len(f.Workers) == 0 {
		return nil, fmt.Errorf("名册文件中没有员工")
	}
	return f.Workers, nil
}

func importRosterCmd(c *cli) *cobra.Command {
	var shop string
	cmd := &cobra.Command{
		Use:   "import-roster <file.yaml>",
		Short: "从 YAML 文件导入员工名册（按 ID 或姓名更新已有员工）",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fh, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer fh.Close()

			records, err := parseRosterFile(fh)
			if err != nil {
				return err
			}

			shopID, err := c.resolveShop(shop)
			if err != nil {
				return err
			}
			a, err := c.open()
			if err != nil {
				return err
			}

			result, err := a.Service.Worker.ImportRoster(c.ctx, shopID, records, "")
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "导入完成: 新增 %d，更新 %d\n", result.Created, result.Updated)
			return nil
		},
	}
	cmd.Flags().StringVar(&shop, "shop", "", "店铺 ID 或名称")
	_ = cmd.MarkFlagRequired("shop")
	return cmd
}
