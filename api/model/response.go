package model

import (
	"github.com/fyerfyer/pdf-ingest/internal/models"
)

// Response 通用响应结构
type Response struct {
	Code      int         `json:"code"`                 // 响应状态码，0表示成功
	Message   string      `json:"message"`              // 响应消息
	Data      interface{} `json:"data,omitempty"`       // 响应数据，可能为空
	Error     string      `json:"error,omitempty"`      // 错误详情
	ErrorType string      `json:"error_type,omitempty"` // 错误分类
	RequestID string      `json:"request_id,omitempty"` // 失败的处理请求ID
	TraceID   string      `json:"trace_id,omitempty"`   // 调用链追踪ID
}

// NewSuccessResponse 创建成功响应
func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Code:    0,
		Message: "success",
		Data:    data,
	}
}

// NewErrorResponse 创建错误响应
func NewErrorResponse(code int, message string) *Response {
	return &Response{
		Code:    code,
		Message: message,
	}
}

// WithMessage 替换响应消息
func (r *Response) WithMessage(message string) *Response {
	r.Message = message
	return r
}

// UploadResponse 上传处理结果
type UploadResponse = models.IngestionResult

// IngestionStatusResponse 处理状态查询结果
type IngestionStatusResponse = models.StageRecord

// PageInfo 页面文件信息
type PageInfo struct {
	Index int    `json:"index"` // 页码，从1开始
	Name  string `json:"name"`  // 文件名
	Size  int64  `json:"size"`  // 文件大小
	Path  string `json:"path"`  // 文件路径
}

// PageListResponse 页面文件列表
type PageListResponse struct {
	RequestID string     `json:"request_id"` // 处理请求ID
	Total     int        `json:"total"`      // 页面数量
	Pages     []PageInfo `json:"pages"`      // 页面列表
}
