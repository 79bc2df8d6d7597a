// Package classify 判断一个文件是否为值得统计的文本文件。
// 判定只依赖文件大小、后缀和内容采样，不依赖任何语言工具。
//
// 判定流程是一组按固定顺序执行的独立阶段，
// 每个阶段要么给出确定结论，要么返回 Undecided 交给下一阶段：
//
//	大小 -> 后缀黑名单 -> 魔数 -> NUL 密度 -> 控制字符密度 -> 编码可解码性
//
// 前两个阶段只看元数据，后面的阶段才需要读取文件采样。
package classify

import (
	"errors"
	"fmt"
	"io"
	"os"
)

const (
	// MaxFileSize 以上的文件不读取内容，直接视为二进制。
	MaxFileSize int64 = 10 << 20
	// SampleSize 是内容检测读取的最大字节数。
	SampleSize = 8 << 10
)

// Kind 是判定结果的类别。
type Kind int

const (
	// Undecided 仅在阶段之间使用，表示交给下一阶段。
	Undecided Kind = iota
	// Excluded 表示文件直接跳过，既不算文本也不算二进制（例如空文件）。
	Excluded
	// Binary 表示二进制文件。
	Binary
	// Text 表示可统计的文本文件。
	Text
)

// String 返回类别名称。
func (k Kind) String() string {
	switch k {
	case Excluded:
		return "excluded"
	case Binary:
		return "binary"
	case Text:
		return "text"
	default:
		return "undecided"
	}
}

// Verdict 是一次判定的结论。
type Verdict struct {
	Kind Kind
	// Reason 说明 Binary/Excluded 的原因，例如 "extension .png"。
	Reason string
	// Encoding 为 Text 时成功解码采样的编码名。
	Encoding string
	// Err 记录读取采样失败的原因，此时 Kind 为 Excluded。
	Err error
}

// IsText 报告结论是否为文本。
func (v Verdict) IsText() bool {
	return v.Kind == Text
}

func undecided() Verdict {
	return Verdict{Kind: Undecided}
}

func binary(format string, args ...any) Verdict {
	return Verdict{Kind: Binary, Reason: fmt.Sprintf(format, args...)}
}

// Input 是阶段函数的输入。
type Input struct {
	Path   string
	Size   int64
	Sample []byte
}

// Stage 是判定流水线中的一个阶段。
type Stage struct {
	Name  string
	Check func(in Input) Verdict
}

// Classifier 按顺序执行元数据阶段与内容阶段。
// Classifier 不持有可变状态，可被多个 worker 并发使用。
type Classifier struct {
	metaStages    []Stage
	contentStages []Stage
}

// New 创建使用内置规则的分类器。
func New() *Classifier {
	return &Classifier{
		metaStages: []Stage{
			{Name: "size", Check: checkSize},
			{Name: "extension", Check: checkExtension},
		},
		contentStages: []Stage{
			{Name: "signature", Check: checkSignature},
			{Name: "nul", Check: checkNulDensity},
			{Name: "control", Check: checkControlDensity},
			{Name: "decode", Check: checkDecodable},
		},
	}
}

// Stages 返回全部阶段，顺序即执行顺序。
func (c *Classifier) Stages() []Stage {
	stages := make([]Stage, 0, len(c.metaStages)+len(c.contentStages))
	stages = append(stages, c.metaStages...)
	return append(stages, c.contentStages...)
}

// Classify 对给定的大小和采样做判定，是纯函数。
// sample 应为文件前 SampleSize 字节（文件更小时为全部内容）。
func (c *Classifier) Classify(path string, size int64, sample []byte) Verdict {
	in := Input{Path: path, Size: size, Sample: sample}
	if verdict := run(c.metaStages, in); verdict.Kind != Undecided {
		return verdict
	}
	return c.classifyContent(in)
}

// ClassifyFile 判定磁盘上的文件。
// 元数据阶段能给出结论时不会打开文件。
func (c *Classifier) ClassifyFile(absPath string, size int64) Verdict {
	in := Input{Path: absPath, Size: size}
	if verdict := run(c.metaStages, in); verdict.Kind != Undecided {
		return verdict
	}

	sample, err := ReadSample(absPath, size)
	if err != nil {
		return Verdict{Kind: Excluded, Reason: "unreadable", Err: err}
	}
	if len(sample) == 0 {
		return Verdict{Kind: Excluded, Reason: "empty file"}
	}

	in.Sample = sample
	return c.classifyContent(in)
}

func (c *Classifier) classifyContent(in Input) Verdict {
	if verdict := run(c.contentStages, in); verdict.Kind != Undecided {
		return verdict
	}
	return binary("no text encoding matched")
}

func run(stages []Stage, in Input) Verdict {
	for _, stage := range stages {
		if verdict := stage.Check(in); verdict.Kind != Undecided {
			return verdict
		}
	}
	return undecided()
}

// ReadSample 读取文件前 min(SampleSize, size) 字节。
// 文件在读取期间变短时返回实际读到的部分。
func ReadSample(absPath string, size int64) ([]byte, error) {
	limit := int64(SampleSize)
	if size >= 0 && size < limit {
		limit = size
	}

	file, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("open sample: %w", err)
	}
	defer file.Close()

	buffer := make([]byte, limit)
	n, err := io.ReadFull(file, buffer)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read sample: %w", err)
	}
	return buffer[:n], nil
}
