// Package scanner 提供并发扫描调度能力。
// 该层负责目录遍历、任务分发、并发执行和结果聚合，
// 文本判定与行数统计分别由 classify 与 linecount 完成。
package scanner

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"repostat/internal/classify"
	"repostat/internal/linecount"
	"repostat/internal/model"
)

var (
	// ErrRootNotFound 表示扫描根目录不存在。
	ErrRootNotFound = errors.New("scan root does not exist")
	// ErrRootNotDir 表示扫描根路径不是目录。
	ErrRootNotDir = errors.New("scan root is not a directory")
	// ErrRootUnreadable 表示根目录存在但无法列出内容。
	ErrRootUnreadable = errors.New("scan root is not readable")
)

// Service 是扫描服务对象。
type Service struct {
	walker     *Walker
	classifier *classify.Classifier
	workers    int
	logger     *slog.Logger
}

// scanTask 表示一个待分析文件任务。
type scanTask struct {
	entry Entry
}

// workerResult 表示 worker 的执行产物。
// record 为空表示该文件不计入统计。
type workerResult struct {
	record  *model.FileRecord
	verdict classify.Verdict
	failure error
}

// Summary 记录一次扫描中各类文件的数量，只用于日志与诊断。
type Summary struct {
	Visited  int
	Counted  int
	Binary   int
	Excluded int
	Failed   int
}

// NewService 创建扫描服务。
// walker 为空时使用默认剪枝策略，logger 为空时丢弃日志。
func NewService(walker *Walker, workers int, logger *slog.Logger) *Service {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if walker == nil {
		walker, _ = NewWalker(WalkOptions{}, logger)
	}
	return &Service{
		walker:     walker,
		classifier: classify.New(),
		workers:    workers,
		logger:     logger,
	}
}

// ScanPath 扫描目录并返回最终统计结果。
// 单文件的读取或解码失败不会中断扫描；
// 根路径不存在、不是目录或无法读取时返回 ErrRootNotFound / ErrRootNotDir / ErrRootUnreadable，
// 调用方据此区分“空仓库”与“无法统计”。
func (s *Service) ScanPath(targetPath string) (model.AnalysisResult, error) {
	result, _, err := s.scan(targetPath)
	return result, err
}

// ScanPathWithSummary 与 ScanPath 相同，额外返回文件分类计数。
func (s *Service) ScanPathWithSummary(targetPath string) (model.AnalysisResult, Summary, error) {
	return s.scan(targetPath)
}

func (s *Service) scan(targetPath string) (model.AnalysisResult, Summary, error) {
	var summary Summary

	root, err := resolveRoot(targetPath)
	if err != nil {
		return model.AnalysisResult{}, summary, err
	}

	tasks := make(chan scanTask, s.workers*4)
	results := make(chan workerResult, s.workers*4)

	var workerGroup sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		workerGroup.Add(1)
		go func() {
			defer workerGroup.Done()
			s.runWorker(tasks, results)
		}()
	}

	go func() {
		defer close(tasks)
		for entry := range s.walker.Walk(root) {
			tasks <- scanTask{entry: entry}
		}
	}()

	go func() {
		workerGroup.Wait()
		close(results)
	}()

	// 只有当前协程持有 aggregator，保证单文件的全部祖先目录更新不会交错。
	aggregator := model.NewAggregator()
	for item := range results {
		summary.Visited++
		switch {
		case item.failure != nil:
			summary.Failed++
		case item.record != nil:
			if aggregator.Fold(*item.record) {
				summary.Counted++
			} else {
				summary.Excluded++
			}
		case item.verdict.Kind == classify.Binary:
			summary.Binary++
		default:
			summary.Excluded++
		}
	}

	result := aggregator.Finalize()
	s.logger.Info("scan complete",
		"root", root,
		"visited", summary.Visited,
		"counted", summary.Counted,
		"binary", summary.Binary,
		"excluded", summary.Excluded,
		"failed", summary.Failed,
		"lines", result.TotalLines,
	)
	return result, summary, nil
}

// runWorker 执行文本判定与行数统计。
func (s *Service) runWorker(tasks <-chan scanTask, results chan<- workerResult) {
	for task := range tasks {
		entry := task.entry

		verdict := s.classifier.ClassifyFile(entry.AbsPath, entry.Size)
		if verdict.Err != nil {
			s.logger.Debug("skip unreadable file", "path", entry.RelPath, "error", verdict.Err)
			results <- workerResult{verdict: verdict, failure: verdict.Err}
			continue
		}
		if !verdict.IsText() {
			s.logger.Debug("skip non-text file", "path", entry.RelPath, "kind", verdict.Kind.String(), "reason", verdict.Reason)
			results <- workerResult{verdict: verdict}
			continue
		}

		counted := linecount.Count(entry.AbsPath)
		if counted.Failed() {
			s.logger.Debug("skip uncountable file", "path", entry.RelPath, "error", counted.Err)
			results <- workerResult{verdict: verdict, failure: counted.Err}
			continue
		}

		results <- workerResult{
			verdict: verdict,
			record: &model.FileRecord{
				Path:     entry.RelPath,
				Lines:    counted.Lines,
				FileType: model.ExtensionOf(entry.RelPath),
				Size:     entry.Size,
			},
		}
	}
}

// resolveRoot 校验扫描根目录并返回解析符号链接后的绝对路径。
func resolveRoot(targetPath string) (string, error) {
	trimmedPath := strings.TrimSpace(targetPath)
	if trimmedPath == "" {
		return "", errors.New("scan path is empty")
	}

	absoluteTarget, err := filepath.Abs(trimmedPath)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path: %w", err)
	}

	// WalkDir 不会进入作为根的符号链接，先解析到真实目录。
	resolved, err := filepath.EvalSymlinks(absoluteTarget)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrRootNotFound, absoluteTarget)
		}
		return "", fmt.Errorf("resolve symlinks: %w", err)
	}

	info, err := os.Stat(resolved)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrRootNotFound, absoluteTarget)
		}
		return "", fmt.Errorf("stat path: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrRootNotDir, absoluteTarget)
	}

	if err := checkReadable(resolved); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrRootUnreadable, absoluteTarget, err)
	}
	return resolved, nil
}

// checkReadable 尝试读取根目录的第一个条目。
func checkReadable(dir string) error {
	handle, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer handle.Close()

	if _, err := handle.ReadDir(1); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
