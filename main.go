// main.go 是 repostat 的程序入口。
// 该文件负责加载 .env、注入版本号并执行 Cobra 根命令，
// 让业务逻辑保持在 cmd/internal 目录中，便于测试和扩展。
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"

	"repostat/cmd"
)

// version 默认值为 dev。
// 发布时可以通过 -ldflags "-X main.version=vX.Y.Z" 覆盖该值。
var version = "dev"

func main() {
	// .env 中的 REPOSTAT_* 变量会被 viper 读取，文件不存在时忽略。
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "repostat warning: load .env: %v\n", err)
	}

	if err := cmd.Execute(version); err != nil {
		fmt.Fprintf(os.Stderr, "repostat error: %v\n", err)
		os.Exit(1)
	}
}
