package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"repostat/internal/model"
	"repostat/internal/server"
)

// newServeCmd 创建 serve 子命令，启动 HTTP 统计服务。
// 命令示例：repostat serve --listen :5000
func newServeCmd(v *viper.Viper) *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "启动 HTTP 服务，按请求克隆并统计仓库",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			current, err := loadSettings(v, cmd, "listen", "workers", "gitignore", "exclude", "analysis-timeout", "clone-depth", "clone-timeout", "repos-dir")
			if err != nil {
				return err
			}
			log := current.logger(cmd.ErrOrStderr())

			service, err := current.scanService(log)
			if err != nil {
				return err
			}
			analyze := func(dir string) (model.AnalysisResult, error) {
				return service.ScanPath(dir)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := server.New(current.cloner(nil), analyze, current.serverConfig(), log)
			return srv.ListenAndServe(ctx, current.Listen)
		},
	}

	serveCmd.Flags().String("listen", ":5000", "监听地址")
	serveCmd.Flags().Int("workers", 0, "每次统计的并发 worker 数量")
	serveCmd.Flags().Bool("gitignore", false, "遵循仓库根目录下的 .gitignore")
	serveCmd.Flags().StringSlice("exclude", nil, "额外排除的 glob 模式，可重复指定")
	serveCmd.Flags().Duration("analysis-timeout", 0, "单次统计超时时间，超时返回 504")
	addCloneFlags(serveCmd)

	return serveCmd
}
