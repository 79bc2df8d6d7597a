// Package cmd 提供 repostat 的命令行入口与子命令编排。
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Execute 组装根命令并执行。
// version 参数由 main 包注入，便于在 CI/CD 中打包不同版本。
func Execute(version string) error {
	return newRootCmd(version).Execute()
}

// newRootCmd 创建根命令并注册全部子命令。
// 每个根命令持有独立的 viper 实例，测试之间互不影响。
func newRootCmd(version string) *cobra.Command {
	v := newConfig()
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "repostat",
		Short: "统计仓库中文本文件的行数分布",
		Long: "repostat 遍历目录（或先克隆远程仓库），识别文本文件并统计行数，\n" +
			"按文件、目录、后缀三个维度汇总，支持表格、JSON 输出与 HTTP 服务。",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := loadConfigFile(v, cfgFile); err != nil {
				return err
			}
			return bindFlags(v, cmd.Flags(), "log-level", "log-format")
		},
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "配置文件路径（toml/yaml/json）")
	rootCmd.PersistentFlags().String("log-level", "info", "日志级别: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "text", "日志格式: text 或 json")

	rootCmd.AddCommand(newVersionCmd(version))
	rootCmd.AddCommand(newRulesCmd())
	rootCmd.AddCommand(newScanCmd(v))
	rootCmd.AddCommand(newCloneCmd(v))
	rootCmd.AddCommand(newServeCmd(v))

	return rootCmd
}

// loadSettings 绑定当前子命令的 flag 后读取最终配置。
func loadSettings(v *viper.Viper, cmd *cobra.Command, flagNames ...string) (settings, error) {
	if err := bindFlags(v, cmd.Flags(), flagNames...); err != nil {
		return settings{}, err
	}
	return readSettings(v)
}
