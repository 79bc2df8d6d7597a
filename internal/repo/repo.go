// Package repo 负责把远程 Git 仓库克隆到本地临时工作区。
// 克隆使用 go-git 纯 Go 实现，不依赖系统 git 命令。
package repo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/google/uuid"
	giturls "github.com/whilp/git-urls"
)

// DefaultDepth 是默认的浅克隆深度。
const DefaultDepth = 1

// ErrInvalidURL 表示无法从地址中解析出仓库名。
var ErrInvalidURL = errors.New("invalid repository url")

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Cloner 把仓库克隆到 BaseDir 下的独立目录。
type Cloner struct {
	// BaseDir 为空时使用系统临时目录下的 repostat-repos。
	BaseDir string
	// Depth 为 0 时完整克隆。
	Depth int
	// Progress 接收 go-git 的克隆进度，可以为空。
	Progress io.Writer
}

// Workspace 是一次克隆得到的本地工作区。
type Workspace struct {
	Dir    string
	Owner  string
	Name   string
	Commit string
}

// Remove 删除工作区目录。
func (w *Workspace) Remove() error {
	if w == nil || w.Dir == "" {
		return nil
	}
	if err := os.RemoveAll(w.Dir); err != nil {
		return fmt.Errorf("remove workspace: %w", err)
	}
	return nil
}

// Clone 浅克隆默认分支到新目录。
// 失败时已创建的目录会被删除。
func (c *Cloner) Clone(ctx context.Context, url string) (*Workspace, error) {
	owner, name, err := ParseURL(url)
	if err != nil {
		return nil, err
	}

	baseDir := c.BaseDir
	if baseDir == "" {
		baseDir = filepath.Join(os.TempDir(), "repostat-repos")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create repos directory: %w", err)
	}

	dir := filepath.Join(baseDir, fmt.Sprintf("%s_%s_%s", sanitize(owner), sanitize(name), uuid.NewString()))

	cloned, err := git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
		URL:           url,
		Depth:         c.Depth,
		Progress:      c.Progress,
		ReferenceName: plumbing.HEAD,
		SingleBranch:  true,
	})
	if err != nil {
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("clone repository %s: %w", url, err)
	}

	workspace := &Workspace{Dir: dir, Owner: owner, Name: name}
	if head, headErr := cloned.Head(); headErr == nil {
		workspace.Commit = head.Hash().String()
	}
	return workspace, nil
}

// ParseURL 从仓库地址中解析 owner 与仓库名。
// 支持 https、ssh、scp 风格（git@host:owner/name.git）与 file 地址。
func ParseURL(rawURL string) (string, string, error) {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return "", "", fmt.Errorf("%w: empty url", ErrInvalidURL)
	}

	u, err := giturls.Parse(trimmed)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	name := strings.TrimSuffix(segments[len(segments)-1], ".git")
	if name == "" {
		return "", "", fmt.Errorf("%w: %s", ErrInvalidURL, rawURL)
	}

	owner := ""
	if len(segments) > 1 {
		owner = segments[len(segments)-2]
	}
	return owner, name, nil
}

// GitHubURL 构造 GitHub 仓库的 https 克隆地址。
func GitHubURL(owner, name string) string {
	return fmt.Sprintf("https://github.com/%s/%s.git", owner, name)
}

// IsRemote 判断命令行参数是否为仓库地址而不是本地路径。
func IsRemote(arg string) bool {
	lower := strings.ToLower(strings.TrimSpace(arg))
	for _, prefix := range []string{"http://", "https://", "ssh://", "git://", "git@", "file://"} {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	if strings.HasSuffix(lower, ".git") {
		if _, err := os.Stat(arg); err == nil {
			return false
		}
		return true
	}
	return false
}

func sanitize(part string) string {
	cleaned := unsafeNameChars.ReplaceAllString(part, "-")
	if cleaned == "" {
		return "repo"
	}
	return cleaned
}
