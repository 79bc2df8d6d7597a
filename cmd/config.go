package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"repostat/internal/logger"
	"repostat/internal/repo"
	"repostat/internal/scanner"
	"repostat/internal/server"
)

// settings 是合并 flag、环境变量、配置文件与默认值之后的最终配置。
// 优先级：flag > 环境变量 > 配置文件 > 默认值。
type settings struct {
	Workers         int
	Format          string
	Output          string
	LogLevel        string
	LogFormat       string
	Gitignore       bool
	Exclude         []string
	Listen          string
	CloneDepth      int
	CloneTimeout    time.Duration
	AnalysisTimeout time.Duration
	ReposDir        string
}

// newConfig 创建带默认值与环境变量映射的 viper 实例。
// 环境变量前缀为 REPOSTAT_，例如 REPOSTAT_LOG_LEVEL。
func newConfig() *viper.Viper {
	v := viper.New()

	v.SetDefault("workers", runtime.NumCPU())
	v.SetDefault("format", "table")
	v.SetDefault("output", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("gitignore", false)
	v.SetDefault("exclude", []string{})
	v.SetDefault("listen", ":5000")
	v.SetDefault("clone_depth", repo.DefaultDepth)
	v.SetDefault("clone_timeout", 5*time.Minute)
	v.SetDefault("analysis_timeout", 10*time.Minute)
	v.SetDefault("repos_dir", filepath.Join(os.TempDir(), "repostat-repos"))

	v.SetEnvPrefix("REPOSTAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	return v
}

// loadConfigFile 读取配置文件。
// 未指定路径时在 $HOME/.config/repostat 与当前目录查找 config.*，找不到不算错误。
func loadConfigFile(v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "repostat"))
		}
		v.AddConfigPath(".")
		v.SetConfigName("config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}
	return nil
}

// bindFlags 把 flag 绑定到配置键，flag 名中的 - 对应键名中的 _。
func bindFlags(v *viper.Viper, flags *pflag.FlagSet, names ...string) error {
	for _, name := range names {
		flag := flags.Lookup(name)
		if flag == nil {
			return fmt.Errorf("unknown flag: %s", name)
		}
		if err := v.BindPFlag(strings.ReplaceAll(name, "-", "_"), flag); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

// readSettings 从 viper 读取并校验最终配置。
func readSettings(v *viper.Viper) (settings, error) {
	current := settings{
		Workers:         v.GetInt("workers"),
		Format:          strings.ToLower(strings.TrimSpace(v.GetString("format"))),
		Output:          strings.TrimSpace(v.GetString("output")),
		LogLevel:        v.GetString("log_level"),
		LogFormat:       strings.ToLower(strings.TrimSpace(v.GetString("log_format"))),
		Gitignore:       v.GetBool("gitignore"),
		Exclude:         v.GetStringSlice("exclude"),
		Listen:          v.GetString("listen"),
		CloneDepth:      v.GetInt("clone_depth"),
		CloneTimeout:    v.GetDuration("clone_timeout"),
		AnalysisTimeout: v.GetDuration("analysis_timeout"),
		ReposDir:        v.GetString("repos_dir"),
	}

	if current.Workers <= 0 {
		return settings{}, errors.New("workers must be greater than 0")
	}
	if current.Format != "table" && current.Format != "json" {
		return settings{}, errors.New("unsupported format, allowed values: table, json")
	}
	if current.LogFormat != "text" && current.LogFormat != "json" {
		return settings{}, errors.New("unsupported log format, allowed values: text, json")
	}
	if current.CloneDepth < 0 {
		return settings{}, errors.New("clone depth must not be negative")
	}
	if _, err := logger.ParseLevel(current.LogLevel); err != nil {
		return settings{}, err
	}
	return current, nil
}

// logger 在默认配置上覆盖级别与格式，未设置的项保持默认值。
func (s settings) logger(writer io.Writer) *slog.Logger {
	cfg := logger.DefaultConfig()
	if level, err := logger.ParseLevel(s.LogLevel); err == nil {
		cfg.Level = level
	}
	if s.LogFormat != "" {
		cfg.Format = s.LogFormat
	}
	return logger.New(cfg, writer)
}

func (s settings) scanService(log *slog.Logger) (*scanner.Service, error) {
	walker, err := scanner.NewWalker(scanner.WalkOptions{
		UseGitignore: s.Gitignore,
		Excludes:     s.Exclude,
	}, log)
	if err != nil {
		return nil, err
	}
	return scanner.NewService(walker, s.Workers, log), nil
}

func (s settings) cloner(progress io.Writer) *repo.Cloner {
	return &repo.Cloner{
		BaseDir:  s.ReposDir,
		Depth:    s.CloneDepth,
		Progress: progress,
	}
}

func (s settings) serverConfig() server.Config {
	return server.Config{
		CloneTimeout:    s.CloneTimeout,
		AnalysisTimeout: s.AnalysisTimeout,
	}
}
