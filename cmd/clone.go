package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// newCloneCmd 创建 clone 子命令。
// 仓库被克隆到 repos-dir 下且不会自动删除，便于之后多次 scan。
func newCloneCmd(v *viper.Viper) *cobra.Command {
	cloneCmd := &cobra.Command{
		Use:   "clone <url>",
		Short: "克隆远程仓库到本地工作区并输出目录",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			current, err := loadSettings(v, cmd, "clone-depth", "clone-timeout", "repos-dir")
			if err != nil {
				return err
			}

			ctx, cancel := withOptionalTimeout(cmd.Context(), current.CloneTimeout)
			defer cancel()

			workspace, err := current.cloner(cmd.ErrOrStderr()).Clone(ctx, args[0])
			if err != nil {
				return err
			}

			current.logger(cmd.ErrOrStderr()).Info("repository cloned",
				"owner", workspace.Owner,
				"name", workspace.Name,
				"commit", workspace.Commit,
			)
			_, err = fmt.Fprintln(cmd.OutOrStdout(), workspace.Dir)
			return err
		},
	}

	addCloneFlags(cloneCmd)
	return cloneCmd
}
