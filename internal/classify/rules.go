package classify

import (
	"bytes"
	"sort"
	"strings"

	"repostat/internal/model"
)

// binaryExtensions 是已知二进制格式的后缀黑名单（小写，含点号）。
// 命中黑名单时不再检查内容。
var binaryExtensions = map[string]struct{}{
	// 可执行文件与编译产物
	".exe": {}, ".dll": {}, ".so": {}, ".dylib": {}, ".a": {}, ".lib": {}, ".obj": {}, ".o": {},
	".pyc": {}, ".pyo": {}, ".class": {}, ".jar": {}, ".war": {},
	// 图片
	".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {}, ".bmp": {}, ".tiff": {}, ".ico": {}, ".webp": {},
	// 音视频
	".mp3": {}, ".wav": {}, ".flac": {}, ".aac": {}, ".ogg": {}, ".mp4": {}, ".avi": {}, ".mkv": {}, ".mov": {},
	// 办公文档
	".pdf": {}, ".doc": {}, ".docx": {}, ".xls": {}, ".xlsx": {}, ".ppt": {}, ".pptx": {},
	// 压缩包
	".zip": {}, ".tar": {}, ".gz": {}, ".bz2": {}, ".xz": {}, ".7z": {}, ".rar": {},
	// 数据文件
	".bin": {}, ".dat": {}, ".db": {}, ".sqlite": {}, ".sqlite3": {},
	// 字体
	".ttf": {}, ".otf": {}, ".woff": {}, ".woff2": {}, ".eot": {},
}

// Signature 是一个二进制格式的文件头魔数。
type Signature struct {
	Name  string
	Magic []byte
}

var signatures = []Signature{
	{Name: "PNG", Magic: []byte{0x89, 'P', 'N', 'G'}},
	{Name: "JPEG", Magic: []byte{0xFF, 0xD8, 0xFF}},
	{Name: "GIF", Magic: []byte("GIF8")},
	{Name: "ICO", Magic: []byte{0x00, 0x00, 0x01, 0x00}},
	{Name: "BMP", Magic: []byte("BM")},
	{Name: "ZIP", Magic: []byte{'P', 'K', 0x03, 0x04}},
	{Name: "GZIP", Magic: []byte{0x1F, 0x8B}},
	{Name: "ELF", Magic: []byte{0x7F, 'E', 'L', 'F'}},
	{Name: "Windows executable", Magic: []byte("MZ")},
	{Name: "Java class", Magic: []byte{0xCA, 0xFE, 0xBA, 0xBE}},
	{Name: "PDF", Magic: []byte("%PDF")},
}

const (
	maxNulRatio     = 0.01
	maxControlRatio = 0.02
)

// BinaryExtensions 返回排序后的后缀黑名单，用于展示。
func BinaryExtensions() []string {
	result := make([]string, 0, len(binaryExtensions))
	for ext := range binaryExtensions {
		result = append(result, ext)
	}
	sort.Strings(result)
	return result
}

// Signatures 返回魔数列表的副本，顺序即匹配顺序。
func Signatures() []Signature {
	result := make([]Signature, len(signatures))
	for i, item := range signatures {
		result[i] = Signature{Name: item.Name, Magic: append([]byte(nil), item.Magic...)}
	}
	return result
}

// IsBinaryExtension 报告路径后缀是否在黑名单中（忽略大小写）。
func IsBinaryExtension(path string) bool {
	_, ok := binaryExtensions[strings.ToLower(model.ExtensionOf(path))]
	return ok
}

func checkSize(in Input) Verdict {
	if in.Size == 0 {
		return Verdict{Kind: Excluded, Reason: "empty file"}
	}
	if in.Size > MaxFileSize {
		return binary("size %d exceeds %d bytes", in.Size, MaxFileSize)
	}
	return undecided()
}

func checkExtension(in Input) Verdict {
	if IsBinaryExtension(in.Path) {
		return binary("extension %s", strings.ToLower(model.ExtensionOf(in.Path)))
	}
	return undecided()
}

func checkSignature(in Input) Verdict {
	for _, item := range signatures {
		if bytes.HasPrefix(in.Sample, item.Magic) {
			return binary("%s signature", item.Name)
		}
	}
	return undecided()
}

func checkNulDensity(in Input) Verdict {
	if len(in.Sample) == 0 {
		return undecided()
	}
	nul := bytes.Count(in.Sample, []byte{0})
	if float64(nul)/float64(len(in.Sample)) > maxNulRatio {
		return binary("%d NUL bytes in %d byte sample", nul, len(in.Sample))
	}
	return undecided()
}

func checkControlDensity(in Input) Verdict {
	if len(in.Sample) == 0 {
		return undecided()
	}
	control := 0
	for _, b := range in.Sample {
		if b < 0x20 && b != '\t' && b != '\n' && b != '\r' {
			control++
		}
	}
	if float64(control)/float64(len(in.Sample)) > maxControlRatio {
		return binary("%d control bytes in %d byte sample", control, len(in.Sample))
	}
	return undecided()
}
