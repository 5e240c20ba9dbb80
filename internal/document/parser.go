package document

import (
	"errors"
	"path/filepath"
	"strings"
)

// Parser 文档解析器接口
// 负责读取文档的文本层，返回按页顺序拼接的文本
type Parser interface {
	// Parse 解析文档，返回文本内容
	Parse(filePath string) (string, error)
}

// Splitter 页面分割器接口
// 负责将多页文档拆分为若干单页文档并写入指定目录
type Splitter interface {
	// Split 拆分文档，返回按页码顺序排列的页面文件路径
	Split(data []byte, outputDir, namePrefix string) ([]string, error)
}

// ContentType 表示文档的内容类型
type ContentType string

const (
	// PDF 文档类型
	PDF ContentType = "pdf"
	// Unknown 未知类型
	Unknown ContentType = "unknown"
)

// PageSeparator 页面文本之间的分隔符
const PageSeparator = "\n"

// ParserFactory 解析器工厂函数，根据文件类型创建对应的解析器
func ParserFactory(filePath string) (Parser, error) {
	switch DetectContentType(filePath) {
	case PDF:
		return NewPDFParser(), nil
	default:
		return nil, errors.New("unsupported document type")
	}
}

// DetectContentType 根据文件扩展名检测内容类型
func DetectContentType(filePath string) ContentType {
	ext := strings.ToLower(filepath.Ext(filePath))

	switch ext {
	case ".pdf":
		return PDF
	default:
		return Unknown
	}
}
