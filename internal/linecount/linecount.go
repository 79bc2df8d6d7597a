// Package linecount 统计文本文件的行数。
// 统计过程对编码宽容：非法字节序列被替换而不是报错，
// 只有读取失败才会切换到下一个候选编码。
package linecount

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// candidate 是一个候选编码。
type candidate struct {
	name string
	enc  encoding.Encoding
}

// candidates 按优先级排列：UTF-8、多字节旧编码、单字节兜底编码。
var candidates = []candidate{
	{name: "utf-8", enc: unicode.UTF8},
	{name: "gbk", enc: simplifiedchinese.GBK},
	{name: "iso-8859-1", enc: charmap.ISO8859_1},
}

// Result 是一次行数统计的结果。
// Err 非空表示全部候选编码都失败，此时 Lines 为 0；
// Err 为空且 Lines 为 0 表示文件可读但没有内容。
type Result struct {
	Lines    int64
	Encoding string
	Err      error
}

// Failed 报告统计是否失败。
func (r Result) Failed() bool {
	return r.Err != nil
}

// Count 统计文件行数，依次尝试各候选编码。
func Count(path string) Result {
	var errs []error
	for _, item := range candidates {
		lines, err := countWith(path, item.enc)
		if err == nil {
			return Result{Lines: lines, Encoding: item.name}
		}
		errs = append(errs, fmt.Errorf("%s: %w", item.name, err))
	}
	return Result{Err: errors.Join(errs...)}
}

// Lines 是对外的行数统计接口：任何失败都返回 0，调用方无法区分失败与空文件。
// 扫描器需要区分两者，因此直接使用 Count。
func Lines(path string) int64 {
	return Count(path).Lines
}

func countWith(path string, enc encoding.Encoding) (int64, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	return CountReader(transform.NewReader(file, enc.NewDecoder()))
}

// CountReader 统计已解码文本的行数。
// \n、\r\n 和单独的 \r 都算作行结束符；末尾没有结束符的内容也算一行。
func CountReader(reader io.Reader) (int64, error) {
	buffered := bufio.NewReaderSize(reader, 64<<10)

	var lines int64
	pending := false
	previousCR := false

	for {
		r, _, err := buffered.ReadRune()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return 0, err
		}

		switch r {
		case '\n':
			if !previousCR {
				lines++
			}
			pending = false
			previousCR = false
		case '\r':
			lines++
			pending = false
			previousCR = true
		default:
			pending = true
			previousCR = false
		}
	}

	if pending {
		lines++
	}
	return lines, nil
}
