package scanner

import (
	"fmt"
	"io/fs"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	gitignore "github.com/sabhiram/go-gitignore"
)

// DefaultPrunedDirs 是在任意层级都不进入的目录名：
// 版本控制元数据，以及常见的依赖与构建产物目录。
var DefaultPrunedDirs = []string{
	".git",
	".hg",
	".svn",
	"node_modules",
	"__pycache__",
	"build",
	"dist",
	"target",
}

// Entry 是遍历得到的一个普通文件。
type Entry struct {
	// RelPath 为相对根目录的路径，统一使用 / 分隔。
	RelPath string
	AbsPath string
	Size    int64
}

// WalkOptions 配置目录遍历策略。
type WalkOptions struct {
	// PrunedDirs 为空时使用 DefaultPrunedDirs。
	PrunedDirs []string
	// UseGitignore 为 true 时额外遵循根目录下的 .gitignore。
	UseGitignore bool
	// Excludes 是额外排除的 doublestar 模式，匹配相对路径。
	Excludes []string
}

// Walker 按策略遍历目录树。
type Walker struct {
	pruned       map[string]struct{}
	useGitignore bool
	excludes     []string
	logger       *slog.Logger
}

// NewWalker 创建遍历器，排除模式非法时返回错误。
func NewWalker(options WalkOptions, logger *slog.Logger) (*Walker, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	names := options.PrunedDirs
	if len(names) == 0 {
		names = DefaultPrunedDirs
	}
	pruned := make(map[string]struct{}, len(names))
	for _, name := range names {
		pruned[name] = struct{}{}
	}

	for _, pattern := range options.Excludes {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid exclude pattern: %s", pattern)
		}
	}

	return &Walker{
		pruned:       pruned,
		useGitignore: options.UseGitignore,
		excludes:     append([]string(nil), options.Excludes...),
		logger:       logger,
	}, nil
}

// PrunedDirs 返回排序后的剪枝目录名。
func (w *Walker) PrunedDirs() []string {
	names := make([]string, 0, len(w.pruned))
	for name := range w.pruned {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Walk 返回 root 下全部普通文件（含指向普通文件的符号链接）的惰性序列。
// 每次 range 都会重新遍历磁盘，不保留任何状态。
// 无法读取的目录会被跳过并记录日志，遍历继续。
func (w *Walker) Walk(root string) iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		ignore := w.loadGitignore(root)

		_ = filepath.WalkDir(root, func(path string, entry fs.DirEntry, walkErr error) error {
			// 目录读取失败时 WalkDir 仍会继续处理已读到的条目。
			if walkErr != nil {
				w.logger.Warn("skip unreadable path", "path", path, "error", walkErr)
				return nil
			}

			if path == root {
				return nil
			}

			relativePath, relErr := filepath.Rel(root, path)
			if relErr != nil {
				return nil
			}
			relativePath = filepath.ToSlash(relativePath)

			if entry.IsDir() {
				if w.skipDir(entry.Name(), relativePath, ignore) {
					return filepath.SkipDir
				}
				return nil
			}

			if !entry.Type().IsRegular() && entry.Type()&fs.ModeSymlink == 0 {
				return nil
			}
			if w.skipFile(relativePath, ignore) {
				return nil
			}

			// 指向普通文件的符号链接按目标统计，指向目录的链接不进入。
			info, infoErr := os.Stat(path)
			if infoErr != nil {
				w.logger.Debug("skip file without info", "path", relativePath, "error", infoErr)
				return nil
			}
			if !info.Mode().IsRegular() {
				return nil
			}

			if !yield(Entry{RelPath: relativePath, AbsPath: path, Size: info.Size()}) {
				return filepath.SkipAll
			}
			return nil
		})
	}
}

func (w *Walker) skipDir(name string, relativePath string, ignore *gitignore.GitIgnore) bool {
	if _, ok := w.pruned[name]; ok {
		return true
	}
	if ignore != nil && (ignore.MatchesPath(relativePath) || ignore.MatchesPath(relativePath+"/")) {
		return true
	}
	return w.matchesExclude(relativePath)
}

func (w *Walker) skipFile(relativePath string, ignore *gitignore.GitIgnore) bool {
	if ignore != nil && ignore.MatchesPath(relativePath) {
		return true
	}
	return w.matchesExclude(relativePath)
}

func (w *Walker) matchesExclude(relativePath string) bool {
	for _, pattern := range w.excludes {
		if matched, err := doublestar.Match(pattern, relativePath); err == nil && matched {
			return true
		}
	}
	return false
}

func (w *Walker) loadGitignore(root string) *gitignore.GitIgnore {
	if !w.useGitignore {
		return nil
	}
	path := filepath.Join(root, ".gitignore")
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	ignore, err := gitignore.CompileIgnoreFile(path)
	if err != nil {
		w.logger.Warn("ignore unparsable .gitignore", "path", path, "error", err)
		return nil
	}
	return ignore
}
