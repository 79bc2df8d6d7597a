package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"repostat/internal/classify"
	"repostat/internal/scanner"
)

// newRulesCmd 创建 rules 子命令。
// 命令用于展示文本判定使用的后缀黑名单、文件签名、候选编码与剪枝目录。
func newRulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "展示文本判定与目录遍历规则",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			walker, err := scanner.NewWalker(scanner.WalkOptions{}, nil)
			if err != nil {
				return err
			}

			writer := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)

			if _, err := fmt.Fprintln(writer, "STAGE\tNAME"); err != nil {
				return err
			}
			for index, stage := range classify.New().Stages() {
				if _, err := fmt.Fprintf(writer, "%d\t%s\n", index+1, stage.Name); err != nil {
					return err
				}
			}

			if _, err := fmt.Fprintln(writer, "\nSIGNATURE\tMAGIC"); err != nil {
				return err
			}
			for _, item := range classify.Signatures() {
				if _, err := fmt.Fprintf(writer, "%s\t% x\n", item.Name, item.Magic); err != nil {
					return err
				}
			}

			rows := [][2]string{
				{"BINARY EXTENSIONS", strings.Join(classify.BinaryExtensions(), " ")},
				{"SAMPLE ENCODINGS", strings.Join(classify.SampleEncodings(), ", ")},
				{"PRUNED DIRS", strings.Join(walker.PrunedDirs(), ", ")},
				{"MAX FILE SIZE", fmt.Sprintf("%d bytes", classify.MaxFileSize)},
			}
			for _, row := range rows {
				if _, err := fmt.Fprintf(writer, "\n%s\t%s\n", row[0], row[1]); err != nil {
					return err
				}
			}

			return writer.Flush()
		},
	}
}
