package storage

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/fyerfyer/pdf-ingest/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestStorage 创建基于临时目录的本地存储
func newTestStorage(t *testing.T) *LocalStorage {
	t.Helper()
	s, err := NewLocalStorage(LocalConfig{Path: t.TempDir()})
	require.NoError(t, err)
	return s
}

// TestLocalStorage 测试本地存储实现
func TestLocalStorage(t *testing.T) {
	localStorage := newTestStorage(t)
	content := "这是一个用于测试的样本文件"

	info, err := localStorage.Save(bytes.NewBufferString(content), "resume.pdf")
	require.NoError(t, err)

	t.Run("Save", func(t *testing.T) {
		assert.Equal(t, "resume.pdf", info.Name)
		assert.Equal(t, int64(len(content)), info.Size)
		assert.Equal(t, "application/pdf", info.MimeType)
		assert.Equal(t, localStorage.Root(), filepath.Dir(info.Path))
		assert.Regexp(t, regexp.MustCompile(`^resume-\d+-\d+\.pdf$`), filepath.Base(info.Path))

		_, err := os.Stat(info.Path)
		assert.NoError(t, err, "file was not saved to disk")
	})

	t.Run("Open", func(t *testing.T) {
		rc, err := localStorage.Open(info.Path)
		require.NoError(t, err)
		defer rc.Close()

		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, content, string(data))
	})

	t.Run("Stat relative path", func(t *testing.T) {
		fi, err := localStorage.Stat(filepath.Base(info.Path))
		require.NoError(t, err)
		assert.Equal(t, info.Size, fi.Size)
		assert.Equal(t, info.Path, fi.Path)
	})

	t.Run("Exists", func(t *testing.T) {
		exists, err := localStorage.Exists(info.Path)
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = localStorage.Exists("non-existent.pdf")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, localStorage.Delete(info.Path))

		exists, _ := localStorage.Exists(info.Path)
		assert.False(t, exists, "file should have been deleted")

		// 再次删除应返回删除失败错误
		err := localStorage.Delete(info.Path)
		assert.True(t, errors.Is(err, models.ErrStorageDelete))
	})
}

func TestLocalStorage_UniqueUploadNames(t *testing.T) {
	localStorage := newTestStorage(t)

	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		info, err := localStorage.Save(bytes.NewBufferString("x"), "same.pdf")
		require.NoError(t, err)
		assert.False(t, seen[info.Path], "duplicate upload path %s", info.Path)
		seen[info.Path] = true
	}
}

func TestLocalStorage_Namespace(t *testing.T) {
	localStorage := newTestStorage(t)

	dir, err := localStorage.Namespace("req-1")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(localStorage.Root(), "req-1"), dir)

	for _, bad := range []string{"", ".", "..", "a/b", `a\b`} {
		_, err := localStorage.Namespace(bad)
		assert.Error(t, err, "namespace %q should be rejected", bad)
	}

	// 写入若干页面，List 按页码顺序返回
	require.NoError(t, os.MkdirAll(dir, 0755))
	for _, name := range []string{"page-10.pdf", "page-2.pdf", "page-1.pdf"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(name), 0644))
	}

	files, err := localStorage.List("req-1")
	require.NoError(t, err)
	require.Len(t, files, 3)
	assert.Equal(t, "page-1.pdf", files[0].Name)
	assert.Equal(t, "page-2.pdf", files[1].Name)
	assert.Equal(t, "page-10.pdf", files[2].Name)

	require.NoError(t, localStorage.RemoveNamespace("req-1"))
	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err))

	_, err = localStorage.List("req-1")
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLocalStorage_RejectsPathsOutsideRoot(t *testing.T) {
	localStorage := newTestStorage(t)

	outside := filepath.Join(t.TempDir(), "other.pdf")
	require.NoError(t, os.WriteFile(outside, []byte("x"), 0644))

	_, err := localStorage.Open(outside)
	assert.Error(t, err)

	err = localStorage.Delete(outside)
	assert.True(t, errors.Is(err, models.ErrStorageDelete))

	_, err = localStorage.Open("../other.pdf")
	assert.Error(t, err)

	// 文件未被删除
	_, err = os.Stat(outside)
	assert.NoError(t, err)
}

func TestUploadName(t *testing.T) {
	now := time.UnixMilli(1700000000000)

	assert.Regexp(t, `^report-1700000000000-\d+\.pdf$`, uploadName("report.pdf", now))
	assert.Regexp(t, `^report-1700000000000-\d+\.pdf$`, uploadName("../../report.PDF", now))
	assert.Regexp(t, `^upload-1700000000000-\d+\.pdf$`, uploadName("", now))
}

func TestNaturalLess(t *testing.T) {
	assert.True(t, naturalLess("page-2.pdf", "page-10.pdf"))
	assert.False(t, naturalLess("page-10.pdf", "page-2.pdf"))
	assert.True(t, naturalLess("page-1.pdf", "page-1.txt"))
	assert.True(t, naturalLess("a", "ab"))
}
