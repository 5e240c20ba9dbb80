package models

import "errors"

var (
	// ErrMalformedDocument 输入无法解析为PDF文档
	ErrMalformedDocument = errors.New("malformed document")

	// ErrStorageWrite 页面或中间文件写入失败
	ErrStorageWrite = errors.New("storage write failure")

	// ErrStorageDelete 清理原始上传文件失败
	ErrStorageDelete = errors.New("storage delete failure")

	// ErrExtraction 文本层读取失败
	ErrExtraction = errors.New("extraction failure")

	// ErrRecordNotFound 处理记录不存在或已过期
	ErrRecordNotFound = errors.New("ingestion record not found")

	// ErrInvalidStageTransition 无效的阶段转换
	ErrInvalidStageTransition = errors.New("invalid stage transition")
)
