package models

import (
	"time"
)

// SourceDocument 上传的原始文档
// 在一次请求内由编排器独占
type SourceDocument struct {
	Name     string                 // 原始文件名
	Path     string                 // 在临时存储中的路径
	Content  []byte                 // 文件内容
	Size     int64                  // 文件大小（字节）
	Metadata map[string]interface{} // 调用方附带的元数据，原样透传
}

// PageDocument 由原始文档拆分出的单页文档
type PageDocument struct {
	Index   int    // 页码，从1开始
	Path    string // 存储路径
	Content []byte // 单页PDF内容
}

// IngestionResult 一次处理请求的结果
type IngestionResult struct {
	RequestID  string                 `json:"request_id"`
	Text       string                 `json:"extracted_text"`
	PagePaths  []string               `json:"page_files"`
	TotalPages int                    `json:"total_pages"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// Stage 处理流水线阶段
type Stage string

const (
	// StageReceived 已接收上传
	StageReceived Stage = "received"
	// StageSplit 已完成分页
	StageSplit Stage = "split"
	// StageExtracted 已完成文本提取
	StageExtracted Stage = "extracted"
	// StageCleaned 已清理原始文件
	StageCleaned Stage = "cleaned"
	// StageDone 处理完成
	StageDone Stage = "done"
	// StageSplitFailed 分页失败
	StageSplitFailed Stage = "split_failed"
	// StageExtractFailed 文本提取失败
	StageExtractFailed Stage = "extract_failed"
)

// stageTransitions 合法的阶段转换
var stageTransitions = map[Stage][]Stage{
	StageReceived:  {StageSplit, StageSplitFailed},
	StageSplit:     {StageExtracted, StageExtractFailed},
	StageExtracted: {StageCleaned},
	StageCleaned:   {StageDone},
}

// CanTransition 判断是否允许从from转换到to
func (from Stage) CanTransition(to Stage) bool {
	for _, next := range stageTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal 是否为终止阶段
func (s Stage) IsTerminal() bool {
	return s == StageDone || s.IsFailed()
}

// IsFailed 是否为失败阶段
func (s Stage) IsFailed() bool {
	return s == StageSplitFailed || s == StageExtractFailed
}

// StageRecord 单次请求的阶段记录
type StageRecord struct {
	RequestID  string    `json:"request_id"`
	FileName   string    `json:"filename"`
	SourcePath string    `json:"source_path"`
	Stage      Stage     `json:"stage"`
	TotalPages int       `json:"total_pages"`
	Error      string    `json:"error,omitempty"`
	Leaked     bool      `json:"leaked"` // 原始文件删除失败，仍留在临时存储中
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
