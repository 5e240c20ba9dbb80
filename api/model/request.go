package model

import (
	"errors"
	"mime/multipart"
	"sync"

	"github.com/fyerfyer/pdf-ingest/internal/document"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// UploadRequest PDF上传请求
// 除file以外的表单字段由处理器收集为元数据
type UploadRequest struct {
	File *multipart.FileHeader `form:"file" binding:"required,pdffile"` // 上传的PDF文件
}

// IngestionRequest 处理记录查询请求
type IngestionRequest struct {
	ID string `uri:"id" binding:"required,uuid"` // 处理请求ID
}

// PageRequest 单页下载请求
type PageRequest struct {
	ID   string `uri:"id" binding:"required,uuid"`    // 处理请求ID
	Page int    `uri:"page" binding:"required,min=1"` // 页码
}

var registerOnce sync.Once

// RegisterValidators 在gin的校验引擎上注册自定义校验规则
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("unexpected validator engine")
	}

	var err error
	registerOnce.Do(func() {
		err = v.RegisterValidation("pdffile", validatePDFFile)
	})
	return err
}

// validatePDFFile 只接受.pdf扩展名的文件
func validatePDFFile(fl validator.FieldLevel) bool {
	var name string
	switch fh := fl.Field().Interface().(type) {
	case multipart.FileHeader:
		name = fh.Filename
	case *multipart.FileHeader:
		if fh == nil {
			return false
		}
		name = fh.Filename
	default:
		return false
	}
	return document.DetectContentType(name) == document.PDF
}
