package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"repostat/internal/repo"
	"repostat/internal/report"
)

// newScanCmd 创建 scan 子命令。
// 示例：
//
//	repostat scan .
//	repostat scan ./project --format json --output result.json
//	repostat scan https://github.com/owner/name.git --gitignore
func newScanCmd(v *viper.Viper) *cobra.Command {
	scanCmd := &cobra.Command{
		Use:   "scan [path|url]",
		Short: "扫描目录或远程仓库并输出行数统计",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			current, err := loadSettings(v, cmd, "format", "output", "workers", "gitignore", "exclude", "clone-depth", "clone-timeout", "repos-dir")
			if err != nil {
				return err
			}
			log := current.logger(cmd.ErrOrStderr())

			target := "."
			if len(args) == 1 {
				target = args[0]
			}

			if repo.IsRemote(target) {
				ctx, cancel := withOptionalTimeout(cmd.Context(), current.CloneTimeout)
				defer cancel()

				log.Info("cloning repository", "url", target)
				workspace, cloneErr := current.cloner(cmd.ErrOrStderr()).Clone(ctx, target)
				if cloneErr != nil {
					return cloneErr
				}
				defer func() {
					if removeErr := workspace.Remove(); removeErr != nil {
						log.Warn("remove workspace failed", "dir", workspace.Dir, "error", removeErr)
					}
				}()
				target = workspace.Dir
			}

			service, err := current.scanService(log)
			if err != nil {
				return err
			}
			result, err := service.ScanPath(target)
			if err != nil {
				return err
			}

			switch current.Format {
			case "json":
				err = report.PrintJSON(cmd.OutOrStdout(), result)
			default:
				err = report.PrintTable(cmd.OutOrStdout(), result)
			}
			if err != nil {
				return err
			}

			if current.Output != "" {
				if err := report.WriteJSONFile(current.Output, result); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "JSON exported to %s\n", current.Output)
			}
			return nil
		},
	}

	scanCmd.Flags().String("format", "table", "输出格式: table 或 json")
	scanCmd.Flags().String("output", "", "json 导出文件路径，为空时不导出")
	scanCmd.Flags().Int("workers", 0, "并发 worker 数量，默认等于 CPU 核数")
	scanCmd.Flags().Bool("gitignore", false, "遵循根目录下的 .gitignore")
	scanCmd.Flags().StringSlice("exclude", nil, "额外排除的 glob 模式，可重复指定")
	addCloneFlags(scanCmd)

	return scanCmd
}

// addCloneFlags 注册克隆相关 flag，scan/clone/serve 共用。
func addCloneFlags(cmd *cobra.Command) {
	cmd.Flags().Int("clone-depth", repo.DefaultDepth, "浅克隆深度，0 表示完整克隆")
	cmd.Flags().Duration("clone-timeout", 0, "克隆超时时间，例如 2m")
	cmd.Flags().String("repos-dir", "", "克隆工作区所在目录")
}

func withOptionalTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
