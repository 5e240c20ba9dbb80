package document

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fyerfyer/pdf-ingest/internal/models"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PDFSplitter 基于pdfcpu的页面分割器
// 文档只解析一次，每页复制原页面对象（字体、图片、矢量内容不重新编码）
type PDFSplitter struct{}

// NewPDFSplitter 创建页面分割器
func NewPDFSplitter() *PDFSplitter {
	return &PDFSplitter{}
}

// Split 拆分文档并返回页面文件路径
func (s *PDFSplitter) Split(data []byte, outputDir, namePrefix string) ([]string, error) {
	pages, err := s.SplitPages(data, outputDir, namePrefix)
	if err != nil {
		return nil, err
	}

	paths := make([]string, len(pages))
	for i, page := range pages {
		paths[i] = page.Path
	}
	return paths, nil
}

// SplitPages 拆分文档，第i页写入 outputDir/<namePrefix>-<i>.pdf
// 写入失败时已写出的页面不会被清理
func (s *PDFSplitter) SplitPages(data []byte, outputDir, namePrefix string) ([]models.PageDocument, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty document: %w", models.ErrMalformedDocument)
	}

	// 每次调用使用独立的配置，pdfcpu会修改conf.Cmd
	spans, err := api.SplitRaw(bytes.NewReader(data), 1, newSplitConfiguration())
	if err != nil {
		return nil, fmt.Errorf("failed to parse PDF: %v: %w", err, models.ErrMalformedDocument)
	}

	// 解析成功后再创建目录，无效输入不会留下任何文件
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %v: %w", outputDir, err, models.ErrStorageWrite)
	}

	pages := make([]models.PageDocument, 0, len(spans))
	for i, span := range spans {
		index := i + 1

		content, err := io.ReadAll(span.Reader)
		if err != nil {
			return nil, fmt.Errorf("failed to serialize page %d: %v: %w", index, err, models.ErrStorageWrite)
		}

		path := filepath.Join(outputDir, PageFileName(namePrefix, index))
		if err := os.WriteFile(path, content, 0644); err != nil {
			return nil, fmt.Errorf("failed to write page %d: %v: %w", index, err, models.ErrStorageWrite)
		}

		pages = append(pages, models.PageDocument{
			Index:   index,
			Path:    path,
			Content: content,
		})
	}

	return pages, nil
}

// PageFileName 页面文件名，页码从1开始
func PageFileName(prefix string, index int) string {
	return fmt.Sprintf("%s-%d.pdf", prefix, index)
}

func newSplitConfiguration() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}
