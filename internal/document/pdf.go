package document

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fyerfyer/pdf-ingest/internal/models"
	"github.com/ledongthuc/pdf"
)

// PDFParser PDF文本提取器
// 只读取文本层，不做OCR；没有文本层的页面贡献空字符串
type PDFParser struct{}

// NewPDFParser 创建一个新的PDF解析器
func NewPDFParser() Parser {
	return &PDFParser{}
}

// Parse 打开PDF文件并按页顺序提取文本
func (p *PDFParser) Parse(filePath string) (string, error) {
	f, r, err := openPDF(filePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	return extractText(r)
}

// openPDF 打开PDF文件，文件不存在或无法解析时返回 ErrMalformedDocument
func openPDF(filePath string) (*os.File, *pdf.Reader, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open PDF %s: %v: %w", filePath, err, models.ErrMalformedDocument)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("failed to stat PDF %s: %v: %w", filePath, err, models.ErrMalformedDocument)
	}

	r, err := newPDFReader(f, info.Size())
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("failed to open PDF %s: %w", filePath, err)
	}
	return f, r, nil
}

// newPDFReader 创建pdf.Reader，pdf库在结构损坏时可能panic，这里统一转换为错误
func newPDFReader(ra io.ReaderAt, size int64) (r *pdf.Reader, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r = nil
			err = fmt.Errorf("%v: %w", rec, models.ErrMalformedDocument)
		}
	}()

	if size == 0 {
		return nil, fmt.Errorf("empty PDF content: %w", models.ErrMalformedDocument)
	}

	r, err = pdf.NewReader(ra, size)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, models.ErrMalformedDocument)
	}
	return r, nil
}

// extractText 逐页读取文本层，用PageSeparator拼接
func extractText(r *pdf.Reader) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			text = ""
			err = fmt.Errorf("failed to read PDF text layer: %v: %w", rec, models.ErrExtraction)
		}
	}()

	total := r.NumPage()
	pages := make([]string, total)
	for i := 1; i <= total; i++ {
		page := r.Page(i)
		// 没有内容流的页面（空白页）直接留空
		if page.V.IsNull() || page.V.Key("Contents").IsNull() {
			continue
		}

		content, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("failed to read text of page %d: %v: %w", i, err, models.ErrExtraction)
		}
		// 每个文本对象开头会带一个换行，只去掉页面首尾的换行，文本本身保持原样
		pages[i-1] = strings.Trim(content, "\n")
	}

	return strings.Join(pages, PageSeparator), nil
}
