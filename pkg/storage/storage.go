package storage

import (
	"io"
)

// FileInfo 文件元数据结构
type FileInfo struct {
	ID       string // 文件标识（不含扩展名的文件名）
	Name     string // 原始文件名
	Size     int64  // 文件大小(字节)
	MimeType string // 文件MIME类型
	Path     string // 文件绝对路径
}

// Storage 临时存储接口
// 上传文件与拆分出的页面文件都保存在同一个临时目录下，直到被显式删除
type Storage interface {
	// Root 返回临时目录的绝对路径
	Root() string

	// Save 保存上传文件，返回文件信息
	// 文件名格式为 <原文件名>-<时间戳>-<随机数><扩展名>
	Save(reader io.Reader, filename string) (FileInfo, error)

	// Namespace 返回某个请求独占的子目录路径（不会创建目录）
	Namespace(id string) (string, error)

	// Open 打开存储中的文件
	Open(path string) (io.ReadCloser, error)

	// Stat 获取存储中文件的信息
	Stat(path string) (FileInfo, error)

	// Delete 删除存储中的单个文件
	Delete(path string) error

	// RemoveNamespace 删除请求子目录及其中全部文件
	RemoveNamespace(id string) error

	// List 列出请求子目录中的文件，按文件名排序
	List(id string) ([]FileInfo, error)

	// Exists 检查文件是否存在
	Exists(path string) (bool, error)
}
