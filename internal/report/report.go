// Package report 提供 repostat 的输出能力。
// 当前实现支持 table 控制台格式和 JSON 格式（含文件导出）。
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"repostat/internal/model"
)

// PrintTable 使用表格展示统计结果。
// 文件与目录按行数降序排列，行数相同时按路径升序。
func PrintTable(writer io.Writer, result model.AnalysisResult) error {
	tw := tabwriter.NewWriter(writer, 0, 4, 2, ' ', 0)

	if _, err := fmt.Fprintln(tw, "FILE\tTYPE\tLINES\tSIZE\tPERCENT"); err != nil {
		return err
	}
	for _, filePath := range sortedKeys(result.FileStats, func(stat model.FileStat) int64 { return stat.Lines }) {
		item := result.FileStats[filePath]
		if _, err := fmt.Fprintf(
			tw,
			"%s\t%s\t%d\t%s\t%.2f%%\n",
			filePath,
			item.FileType,
			item.Lines,
			humanize.Bytes(uint64(item.Size)),
			item.Percentage,
		); err != nil {
			return err
		}
	}

	if _, err := fmt.Fprintln(tw, "\nFOLDER\tFILES\tLINES\tPERCENT"); err != nil {
		return err
	}
	for _, folder := range sortedKeys(result.FolderStats, func(stat model.FolderStat) int64 { return stat.Lines }) {
		item := result.FolderStats[folder]
		if _, err := fmt.Fprintf(tw, "%s\t%d\t%d\t%.2f%%\n", folder, item.Files, item.Lines, item.Percentage); err != nil {
			return err
		}
	}

	if _, err := fmt.Fprintln(tw, "\nFILE TYPE\tLINES"); err != nil {
		return err
	}
	for _, fileType := range sortedKeys(result.FileTypeStats, func(lines int64) int64 { return lines }) {
		if _, err := fmt.Fprintf(tw, "%s\t%s\n", fileType, humanize.Comma(result.FileTypeStats[fileType])); err != nil {
			return err
		}
	}

	if _, err := fmt.Fprintf(
		tw,
		"\nTOTAL\t%s files\t%s lines\n",
		humanize.Comma(result.TotalFiles),
		humanize.Comma(result.TotalLines),
	); err != nil {
		return err
	}

	return tw.Flush()
}

// PrintJSON 把统计结果按易读 JSON 输出到任意 writer。
func PrintJSON(writer io.Writer, result model.AnalysisResult) error {
	content, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}

	if _, err := writer.Write(append(content, '\n')); err != nil {
		return fmt.Errorf("write json: %w", err)
	}
	return nil
}

// WriteJSONFile 将 JSON 结果导出到指定路径。
// 如果目录不存在会自动创建。
func WriteJSONFile(path string, result model.AnalysisResult) error {
	content, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}

	directory := filepath.Dir(path)
	if directory != "." && directory != "" {
		if mkErr := os.MkdirAll(directory, 0o755); mkErr != nil {
			return fmt.Errorf("create output directory: %w", mkErr)
		}
	}

	if writeErr := os.WriteFile(path, content, 0o644); writeErr != nil {
		return fmt.Errorf("write output file: %w", writeErr)
	}
	return nil
}

func sortedKeys[V any](items map[string]V, lines func(V) int64) []string {
	keys := make([]string, 0, len(items))
	for key := range items {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		left, right := lines(items[keys[i]]), lines(items[keys[j]])
		if left != right {
			return left > right
		}
		return keys[i] < keys[j]
	})
	return keys
}
