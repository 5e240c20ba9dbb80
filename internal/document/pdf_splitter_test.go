package document

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/fyerfyer/pdf-ingest/internal/models"
	"github.com/fyerfyer/pdf-ingest/internal/testutil"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPDFSplitter_Split(t *testing.T) {
	outputDir := filepath.Join(t.TempDir(), "req")
	data := testutil.TextPDF(t, "Alpha", "Beta", "Gamma")

	paths, err := NewPDFSplitter().Split(data, outputDir, "page")
	require.NoError(t, err)

	expected := []string{
		filepath.Join(outputDir, "page-1.pdf"),
		filepath.Join(outputDir, "page-2.pdf"),
		filepath.Join(outputDir, "page-3.pdf"),
	}
	assert.Equal(t, expected, paths)

	// 每个页面文件都能独立打开，且只有一页，内容与原页面一致
	parser := NewPDFParser()
	for i, path := range paths {
		count, err := api.PageCountFile(path)
		require.NoError(t, err, "page %d", i+1)
		assert.Equal(t, 1, count)

		text, err := parser.Parse(path)
		require.NoError(t, err)
		assert.Equal(t, []string{"Alpha", "Beta", "Gamma"}[i], text)
	}

	entries, err := os.ReadDir(outputDir)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestPDFSplitter_SplitPages(t *testing.T) {
	outputDir := t.TempDir()

	pages, err := NewPDFSplitter().SplitPages(testutil.TextPDF(t, "one", "two"), outputDir, "doc")
	require.NoError(t, err)
	require.Len(t, pages, 2)

	for i, page := range pages {
		assert.Equal(t, i+1, page.Index)
		assert.Equal(t, filepath.Join(outputDir, PageFileName("doc", i+1)), page.Path)

		onDisk, err := os.ReadFile(page.Path)
		require.NoError(t, err)
		assert.Equal(t, page.Content, onDisk)
	}
}

func TestPDFSplitter_ImageOnly(t *testing.T) {
	outputDir := t.TempDir()

	paths, err := NewPDFSplitter().Split(testutil.ImageOnlyPDF(t), outputDir, "page")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(outputDir, "page-1.pdf")}, paths)

	count, err := api.PageCountFile(paths[0])
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestPDFSplitter_Idempotent(t *testing.T) {
	data := testutil.TextPDF(t, "first page", "second page", "third page")
	splitter := NewPDFSplitter()

	first, err := splitter.SplitPages(data, filepath.Join(t.TempDir(), "a"), "page")
	require.NoError(t, err)
	second, err := splitter.SplitPages(data, filepath.Join(t.TempDir(), "b"), "page")
	require.NoError(t, err)

	// 文件ID和修改时间每次不同，比较页面内容流
	require.Equal(t, len(first), len(second))
	for i := range first {
		contentA := testutil.PageContent(t, first[i].Path)
		contentB := testutil.PageContent(t, second[i].Path)
		assert.NotEmpty(t, contentA, "page %d", i+1)
		assert.Equal(t, contentA, contentB, "page %d", i+1)
	}
}

func TestPDFSplitter_Malformed(t *testing.T) {
	outputDir := filepath.Join(t.TempDir(), "req")
	splitter := NewPDFSplitter()

	for name, data := range map[string][]byte{
		"garbage": []byte("%NOT-A-PDF\x00\x01\x02"),
		"empty":   nil,
	} {
		t.Run(name, func(t *testing.T) {
			paths, err := splitter.Split(data, outputDir, "page")
			require.Error(t, err)
			assert.True(t, errors.Is(err, models.ErrMalformedDocument), "unexpected error: %v", err)
			assert.Empty(t, paths)

			// 没有产生任何页面文件
			_, statErr := os.Stat(outputDir)
			assert.True(t, os.IsNotExist(statErr))
		})
	}
}

func TestPDFSplitter_StorageWriteFailure(t *testing.T) {
	base := t.TempDir()
	// 输出目录的父路径是普通文件，目录无法创建
	blocker := testutil.WriteFile(t, base, "blocker", []byte("x"))

	_, err := NewPDFSplitter().Split(testutil.TextPDF(t, "Alpha"), filepath.Join(blocker, "req"), "page")
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrStorageWrite), "unexpected error: %v", err)
}
