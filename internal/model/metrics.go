// Package model 定义 repostat 的核心数据模型。
// 这些结构会被扫描器、输出层、HTTP 层和命令层共同使用。
package model

// RootFolder 是根目录在 FolderStats 中的键。
const RootFolder = "."

// NoExtension 是无后缀文件使用的类型标签。
const NoExtension = "no-extension"

// FileRecord 表示一个合格文件的扫描结果。
// 由 worker 生成后不再修改。
type FileRecord struct {
	// Path 为相对扫描根目录的路径，统一使用 / 分隔。
	Path     string
	Lines    int64
	FileType string
	Size     int64
}

// FileStat 是写入结果中的单文件统计，在 FileRecord 基础上增加占比。
type FileStat struct {
	Lines      int64   `json:"lines"`
	FileType   string  `json:"fileType"`
	Size       int64   `json:"size"`
	Percentage float64 `json:"percentage"`
}

// FolderStat 表示某个目录（含全部子孙目录）的累计统计。
//
// 注意：
// - Lines/Files 只会累加，不会递减
// - 根目录的记录由总计推导，见 Aggregator.Finalize
type FolderStat struct {
	Lines      int64   `json:"lines"`
	Files      int64   `json:"files"`
	Percentage float64 `json:"percentage"`
}

// AnalysisResult 是一次完整分析的输出模型。
//
// 不变量：
// - TotalLines == 全部 FileStats 行数之和 == FolderStats["."].Lines
// - 任意目录 F 的行数 == F 之下全部合格文件的行数之和
type AnalysisResult struct {
	TotalLines    int64                 `json:"totalLines"`
	TotalFiles    int64                 `json:"totalFiles"`
	FileStats     map[string]FileStat   `json:"fileStats"`
	FolderStats   map[string]FolderStat `json:"folderStats"`
	FileTypeStats map[string]int64      `json:"fileTypeStats"`
}
