// Package testutil 提供测试用的PDF生成工具
package testutil

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/jung-kurt/gofpdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// TextPDF 生成每页一行文本的PDF
func TextPDF(t testing.TB, pages ...string) []byte {
	t.Helper()

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	for _, text := range pages {
		pdf.AddPage()
		pdf.Cell(40, 10, text)
	}
	return output(t, pdf)
}

// ImageOnlyPDF 生成只有一张图片、没有文本层的单页PDF
func ImageOnlyPDF(t testing.TB) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 30), G: uint8(y * 30), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode PNG: %v", err)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("scan", opts, &buf)
	pdf.AddPage()
	pdf.ImageOptions("scan", 10, 10, 100, 100, false, opts, 0, "")
	return output(t, pdf)
}

// WriteFile 将内容写入dir下的文件并返回路径
func WriteFile(t testing.TB, dir, name string, data []byte) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
	return path
}

// PageContent 导出PDF所有页面的内容流，按页面顺序拼接
// 文件ID和修改时间不在内容流中，可用于比较两次拆分的页面内容
func PageContent(t testing.TB, path string) []byte {
	t.Helper()

	outDir, err := os.MkdirTemp("", "pdf-content-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(outDir)

	if err := api.ExtractContentFile(path, outDir, nil, nil); err != nil {
		t.Fatalf("Failed to extract content of %s: %v", path, err)
	}

	entries, err := os.ReadDir(outDir)
	if err != nil {
		t.Fatalf("Failed to read %s: %v", outDir, err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	var content bytes.Buffer
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(outDir, name))
		if err != nil {
			t.Fatalf("Failed to read %s: %v", name, err)
		}
		content.Write(data)
	}
	return content.Bytes()
}

func output(t testing.TB, pdf *gofpdf.Fpdf) []byte {
	t.Helper()

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		t.Fatalf("Failed to write PDF: %v", err)
	}
	return buf.Bytes()
}
