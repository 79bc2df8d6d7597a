package model

import (
	"path"
	"strings"
)

// Aggregator 把单文件结果累加到文件、后缀、目录三个维度。
// 非并发安全：扫描时只允许一个收集协程持有它。
type Aggregator struct {
	result AnalysisResult
}

// NewAggregator 创建一个空的聚合器。
func NewAggregator() *Aggregator {
	return &Aggregator{
		result: AnalysisResult{
			FileStats:     make(map[string]FileStat),
			FolderStats:   make(map[string]FolderStat),
			FileTypeStats: make(map[string]int64),
		},
	}
}

// Fold 累加一个文件记录。
// 行数为 0 的记录不计入任何统计，返回 false。
//
// 目录累加覆盖从直接父目录到根目录之前的每一级祖先，
// 根目录本身由 Finalize 依据总计推导，避免两份累计值漂移。
func (a *Aggregator) Fold(record FileRecord) bool {
	if record.Lines <= 0 {
		return false
	}

	a.result.TotalLines += record.Lines
	a.result.TotalFiles++

	fileType := record.FileType
	if fileType == "" {
		fileType = NoExtension
	}

	a.result.FileStats[record.Path] = FileStat{
		Lines:    record.Lines,
		FileType: fileType,
		Size:     record.Size,
	}
	a.result.FileTypeStats[fileType] += record.Lines

	for _, folder := range Ancestors(record.Path) {
		stat := a.result.FolderStats[folder]
		stat.Lines += record.Lines
		stat.Files++
		a.result.FolderStats[folder] = stat
	}
	return true
}

// Finalize 补齐根目录记录并计算全部占比，返回最终结果。
// 只应在遍历结束后调用一次；总行数为 0 时所有占比保持 0。
func (a *Aggregator) Finalize() AnalysisResult {
	result := a.result

	result.FolderStats[RootFolder] = FolderStat{
		Lines: result.TotalLines,
		Files: result.TotalFiles,
	}

	if result.TotalLines == 0 {
		return result
	}

	total := float64(result.TotalLines)
	for filePath, stat := range result.FileStats {
		stat.Percentage = float64(stat.Lines) / total * 100
		result.FileStats[filePath] = stat
	}
	for folder, stat := range result.FolderStats {
		stat.Percentage = float64(stat.Lines) / total * 100
		result.FolderStats[folder] = stat
	}
	return result
}

// Ancestors 返回文件路径的全部祖先目录（不含根目录），由近及远。
// 例如 src/lib/y.go 返回 [src/lib src]。
func Ancestors(filePath string) []string {
	var folders []string
	for dir := path.Dir(filePath); dir != "." && dir != "/" && dir != ""; dir = path.Dir(dir) {
		folders = append(folders, dir)
	}
	return folders
}

// ExtensionOf 返回文件名的后缀标签，大小写保持原样。
// 文件名开头的点不视为后缀分隔符，因此 .gitignore 没有后缀。
func ExtensionOf(filePath string) string {
	base := path.Base(strings.ReplaceAll(filePath, "\\", "/"))
	return path.Ext(strings.TrimLeft(base, "."))
}
