package storage

import (
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fyerfyer/pdf-ingest/internal/models"
)

// LocalStorage 本地文件系统上的临时存储
type LocalStorage struct {
	basePath string // 基础存储路径
}

// LocalConfig 本地存储配置
type LocalConfig struct {
	Path string // 本地存储路径
}

// NewLocalStorage 创建本地存储实例
func NewLocalStorage(cfg LocalConfig) (*LocalStorage, error) {
	// 确保路径是绝对路径
	absPath, err := filepath.Abs(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	// 确保目录存在
	if err := os.MkdirAll(absPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &LocalStorage{
		basePath: absPath,
	}, nil
}

// Root 返回临时目录
func (s *LocalStorage) Root() string {
	return s.basePath
}

// Save 保存上传文件到临时目录
func (s *LocalStorage) Save(reader io.Reader, filename string) (FileInfo, error) {
	name := uploadName(filename, time.Now())
	filePath := filepath.Join(s.basePath, name)

	// O_EXCL：极小概率的重名直接报错，不覆盖其他请求的文件
	file, err := os.OpenFile(filePath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return FileInfo{}, fmt.Errorf("failed to create file: %v: %w", err, models.ErrStorageWrite)
	}
	defer file.Close()

	size, err := io.Copy(file, reader)
	if err != nil {
		return FileInfo{}, fmt.Errorf("failed to write file: %v: %w", err, models.ErrStorageWrite)
	}

	return FileInfo{
		ID:       strings.TrimSuffix(name, filepath.Ext(name)),
		Name:     filename,
		Size:     size,
		MimeType: getMimeType(filename),
		Path:     filePath,
	}, nil
}

// Namespace 返回请求子目录
func (s *LocalStorage) Namespace(id string) (string, error) {
	if err := validateSegment(id); err != nil {
		return "", err
	}
	return filepath.Join(s.basePath, id), nil
}

// Open 打开文件
func (s *LocalStorage) Open(path string) (io.ReadCloser, error) {
	fullPath, err := s.resolve(path)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file %s: %w", path, os.ErrNotExist)
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

// Stat 获取文件信息
func (s *LocalStorage) Stat(path string) (FileInfo, error) {
	fullPath, err := s.resolve(path)
	if err != nil {
		return FileInfo{}, err
	}

	info, err := os.Stat(fullPath)
	if err != nil {
		return FileInfo{}, err
	}
	if info.IsDir() {
		return FileInfo{}, fmt.Errorf("%s is a directory", path)
	}
	return newFileInfo(fullPath, info), nil
}

// Delete 删除文件
func (s *LocalStorage) Delete(path string) error {
	fullPath, err := s.resolve(path)
	if err != nil {
		return fmt.Errorf("%v: %w", err, models.ErrStorageDelete)
	}

	if err := os.Remove(fullPath); err != nil {
		return fmt.Errorf("failed to delete file: %v: %w", err, models.ErrStorageDelete)
	}
	return nil
}

// RemoveNamespace 删除请求子目录
func (s *LocalStorage) RemoveNamespace(id string) error {
	dir, err := s.Namespace(id)
	if err != nil {
		return fmt.Errorf("%v: %w", err, models.ErrStorageDelete)
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to remove namespace %s: %v: %w", id, err, models.ErrStorageDelete)
	}
	return nil
}

// List 列出请求子目录中的文件
func (s *LocalStorage) List(id string) ([]FileInfo, error) {
	dir, err := s.Namespace(id)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("namespace %s: %w", id, os.ErrNotExist)
		}
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	files := make([]FileInfo, 0, len(entries))
	for _, entry := range entries {
		// 跳过目录
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", entry.Name(), err)
		}
		files = append(files, newFileInfo(filepath.Join(dir, entry.Name()), info))
	}

	sort.Slice(files, func(i, j int) bool {
		return naturalLess(files[i].Name, files[j].Name)
	})
	return files, nil
}

// Exists 检查文件是否存在
func (s *LocalStorage) Exists(path string) (bool, error) {
	fullPath, err := s.resolve(path)
	if err != nil {
		return false, err
	}

	if _, err := os.Stat(fullPath); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// resolve 将路径解析为临时目录下的绝对路径，拒绝目录之外的路径
func (s *LocalStorage) resolve(path string) (string, error) {
	fullPath := path
	if !filepath.IsAbs(fullPath) {
		fullPath = filepath.Join(s.basePath, path)
	}
	fullPath = filepath.Clean(fullPath)

	rel, err := filepath.Rel(s.basePath, fullPath)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %s is outside of storage root", path)
	}
	return fullPath, nil
}

// uploadName 生成上传文件名：<原文件名>-<毫秒时间戳>-<随机数><扩展名>
func uploadName(filename string, now time.Time) string {
	base := filepath.Base(filename)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if stem == "" || stem == "." {
		stem = "upload"
	}
	if ext == "" || ext == "." {
		ext = ".pdf"
	}
	return fmt.Sprintf("%s-%d-%d%s", stem, now.UnixMilli(), rand.Int63n(1e9), strings.ToLower(ext))
}

// validateSegment 检查子目录名是否为单一路径段
func validateSegment(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("invalid namespace %q", id)
	}
	return nil
}

func newFileInfo(fullPath string, info os.FileInfo) FileInfo {
	name := info.Name()
	return FileInfo{
		ID:       strings.TrimSuffix(name, filepath.Ext(name)),
		Name:     name,
		Size:     info.Size(),
		MimeType: getMimeType(name),
		Path:     fullPath,
	}
}

// naturalLess 按文件名比较，数字部分按数值大小比较（page-2 排在 page-10 之前）
func naturalLess(a, b string) bool {
	for a != "" && b != "" {
		da, db := leadingDigits(a), leadingDigits(b)
		if da != "" && db != "" {
			na, nb := strings.TrimLeft(da, "0"), strings.TrimLeft(db, "0")
			if len(na) != len(nb) {
				return len(na) < len(nb)
			}
			if na != nb {
				return na < nb
			}
			a, b = a[len(da):], b[len(db):]
			continue
		}
		if a[0] != b[0] {
			return a[0] < b[0]
		}
		a, b = a[1:], b[1:]
	}
	return len(a) < len(b)
}

func leadingDigits(s string) string {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	return s[:i]
}

// getMimeType 简单根据文件扩展名判断MIME类型
func getMimeType(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))

	switch ext {
	case ".pdf":
		return "application/pdf"
	case ".txt":
		return "text/plain"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	default:
		return "application/octet-stream"
	}
}
