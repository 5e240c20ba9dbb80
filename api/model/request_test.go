package model

import (
	"mime/multipart"
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadRequest_PDFFileValidation(t *testing.T) {
	require.NoError(t, RegisterValidators())
	// 重复注册不会报错
	require.NoError(t, RegisterValidators())

	tests := []struct {
		filename string
		valid    bool
	}{
		{"report.pdf", true},
		{"REPORT.PDF", true},
		{"notes.txt", false},
		{"archive.pdf.zip", false},
		{"no-extension", false},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			req := UploadRequest{File: &multipart.FileHeader{Filename: tt.filename}}
			err := binding.Validator.ValidateStruct(&req)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}

	assert.Error(t, binding.Validator.ValidateStruct(&UploadRequest{}), "missing file")
}
