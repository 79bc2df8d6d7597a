package classify

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/simplifiedchinese"
)

// minPrintableRatio 是解码后可打印字符的最低占比。
const minPrintableRatio = 0.85

// sampleDecoder 尝试用某种编码严格解码采样。
// truncated 表示采样在文件中途截断，末尾可能是被切开的多字节字符。
type sampleDecoder struct {
	name   string
	decode func(sample []byte, truncated bool) (string, bool)
}

// sampleDecoders 按优先级排列：UTF-8，两种多字节旧编码，两种单字节编码兜底。
var sampleDecoders = []sampleDecoder{
	{name: "utf-8", decode: decodeUTF8},
	{name: "gbk", decode: legacyDecoder(simplifiedchinese.GBK)},
	{name: "gb18030", decode: legacyDecoder(simplifiedchinese.GB18030)},
	{name: "iso-8859-1", decode: legacyDecoder(charmap.ISO8859_1)},
	{name: "windows-1252", decode: legacyDecoder(charmap.Windows1252)},
}

// SampleEncodings 返回可解码性阶段依次尝试的编码名。
func SampleEncodings() []string {
	names := make([]string, len(sampleDecoders))
	for i, item := range sampleDecoders {
		names[i] = item.name
	}
	return names
}

func checkDecodable(in Input) Verdict {
	truncated := in.Size > int64(len(in.Sample))
	for _, decoder := range sampleDecoders {
		text, ok := decoder.decode(in.Sample, truncated)
		if !ok {
			continue
		}
		if isReasonableText(text) {
			return Verdict{Kind: Text, Encoding: decoder.name}
		}
	}
	return undecided()
}

func decodeUTF8(sample []byte, truncated bool) (string, bool) {
	if truncated {
		sample = trimPartialRune(sample)
	}
	if !utf8.Valid(sample) {
		return "", false
	}
	return string(sample), true
}

// trimPartialRune 去掉末尾不完整的 UTF-8 序列。
func trimPartialRune(sample []byte) []byte {
	for i := len(sample) - 1; i >= 0 && i >= len(sample)-utf8.UTFMax; i-- {
		if !utf8.RuneStart(sample[i]) {
			continue
		}
		if !utf8.FullRune(sample[i:]) {
			return sample[:i]
		}
		break
	}
	return sample
}

// legacyDecoder 包装 x/text 的解码器。
// x/text 对非法序列写入 U+FFFD 而不是返回错误，因此出现替换字符即视为解码失败；
// 采样被截断时允许末尾出现一个替换字符。
func legacyDecoder(enc encoding.Encoding) func([]byte, bool) (string, bool) {
	return func(sample []byte, truncated bool) (string, bool) {
		decoded, err := enc.NewDecoder().Bytes(sample)
		if err != nil {
			return "", false
		}
		text := string(decoded)
		if truncated {
			text = strings.TrimSuffix(text, string(utf8.RuneError))
		}
		if strings.ContainsRune(text, utf8.RuneError) {
			return "", false
		}
		return text, true
	}
}

// isReasonableText 检查解码后的文本是否大部分可打印。
func isReasonableText(text string) bool {
	total := 0
	printable := 0
	for _, r := range text {
		total++
		if unicode.IsPrint(r) || strings.ContainsRune("\t\n\r\f\v", r) {
			printable++
		}
	}
	if total == 0 {
		return false
	}
	return float64(printable)/float64(total) >= minPrintableRatio
}
