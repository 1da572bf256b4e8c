package api

import (
	"context"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
)

// maxPreviewSize 上传大小上限
const maxPreviewSize = 10 << 20

// Converter 简历转换
type Converter interface {
	Convert(ctx context.Context, filename string, data []byte) ([]byte, error)
}

// PreviewController 简历预览
type PreviewController struct {
	converter Converter
}

// NewPreviewController 创建预览控制器
func NewPreviewController(converter Converter) *PreviewController {
	return &PreviewController{converter: converter}
}

// Preview 将上传的简历转换为 PDF
func (c *PreviewController) Preview(ctx *gin.Context) {
	header, err := ctx.FormFile("file")
	if err != nil {
		Error(ctx, http.StatusBadRequest, "file is required", err.Error())
		return
	}
	if header.Size > maxPreviewSize {
		Error(ctx, http.StatusRequestEntityTooLarge, "file too large", "")
		return
	}

	file, err := header.Open()
	if err != nil {
		Error(ctx, http.StatusBadRequest, "failed to read file", "")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxPreviewSize+1))
	if err != nil {
		Error(ctx, http.StatusBadRequest, "failed to read file", "")
		return
	}
	if len(data) > maxPreviewSize {
		Error(ctx, http.StatusRequestEntityTooLarge, "file too large", "")
		return
	}

	pdf, err := c.converter.Convert(ctx.Request.Context(), header.Filename, data)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}

	name := strings.TrimSuffix(filepath.Base(header.Filename), filepath.Ext(header.Filename)) + ".pdf"
	ctx.Header("Content-Disposition", `inline; filename="`+strings.ReplaceAll(name, `"`, "")+`"`)
	ctx.Data(http.StatusOK, "application/pdf", pdf)
}
