package handler

import (
	"context"
	"contract-insight/api/middleware"
	"contract-insight/api/response"
	"contract-insight/logic/normalize"
	"contract-insight/service"
	"contract-insight/types"
	"errors"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ContractService service.ContractService 实现
type ContractService interface {
	Upload(ctx context.Context, userID string, fileHeader *multipart.FileHeader, tier types.Tier) (*types.ContractDetail, error)
	AnalyzeText(ctx context.Context, userID, fileName, text string, tier types.Tier) (*types.ContractDetail, error)
	Get(ctx context.Context, userID, id string) (*types.ContractDetail, error)
	List(ctx context.Context, userID string) ([]types.ContractRow, error)
	Delete(ctx context.Context, userID, id string) error
	Search(ctx context.Context, userID, query string) ([]types.ContractRow, error)
}

type ContractHandler struct {
	svc            ContractService
	maxUploadBytes int64
}

func NewContractHandler(svc ContractService, maxUploadMB int) *ContractHandler {
	return &ContractHandler{
		svc:            svc,
		maxUploadBytes: int64(maxUploadMB) << 20,
	}
}

// Upload 上传合同接口，支持一次上传多个 PDF
func (h *ContractHandler) Upload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		response.Fail(c, "file upload failed or malformed form")
		return
	}
	// 1. 获取文件
	files := form.File["file"]
	if len(files) == 0 {
		response.Fail(c, "no file received, the form field must be named 'file'")
		return
	}
	tier := types.ParseTier(c.PostForm("tier"))
	userID := middleware.UserID(c)

	// 2. 调用 Service，单个文件失败不影响其他文件
	var results []*types.ContractDetail
	failFiles := map[string]string{}
	for _, file := range files {
		if reason := h.checkFile(file); reason != "" {
			failFiles[file.Filename] = reason
			continue
		}
		detail, err := h.svc.Upload(c.Request.Context(), userID, file, tier)
		if err != nil {
			zap.L().Warn("contract upload failed", zap.String("file", file.Filename), zap.Error(err))
			failFiles[file.Filename] = userMessage(err)
			continue
		}
		results = append(results, detail)
	}

	// 3. 返回结果
	if len(results) == 0 {
		response.Fail(c, fmt.Sprintf("all files failed: %v", failFiles))
		return
	}
	response.Success(c, gin.H{
		"contracts":   results,
		"total_count": len(results),
		"fail_files":  failFiles, // 告诉前端哪些文件失败了
	})
}

func (h *ContractHandler) checkFile(file *multipart.FileHeader) string {
	if !strings.EqualFold(filepath.Ext(file.Filename), ".pdf") {
		return "only PDF files are supported"
	}
	if h.maxUploadBytes > 0 && file.Size > h.maxUploadBytes {
		return fmt.Sprintf("file exceeds %d MB", h.maxUploadBytes>>20)
	}
	return ""
}

// Analyze 已经有纯文本时直接分析
func (h *ContractHandler) Analyze(c *gin.Context) {
	var req types.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, "invalid request: text is required")
		return
	}
	detail, err := h.svc.AnalyzeText(c.Request.Context(), middleware.UserID(c), req.FileName, req.Text, types.ParseTier(req.Tier))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, detail)
}

func (h *ContractHandler) List(c *gin.Context) {
	rows, err := h.svc.List(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, rows)
}

func (h *ContractHandler) Get(c *gin.Context) {
	detail, err := h.svc.Get(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, detail)
}

func (h *ContractHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), middleware.UserID(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"id": c.Param("id")})
}

func (h *ContractHandler) Search(c *gin.Context) {
	rows, err := h.svc.Search(c.Request.Context(), middleware.UserID(c), c.Query("q"))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, rows)
}

// Normalize 只跑规范化，不调模型，方便排查模型输出
func Normalize(c *gin.Context) {
	var req types.NormalizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, "invalid request body")
		return
	}
	analysis, report := normalize.Inspect(req.Raw, types.ParseTier(req.Tier))
	response.Success(c, types.NormalizeResponse{
		Analysis: analysis,
		Path:     string(report.Path),
		Reason:   report.Reason,
	})
}

func fail(c *gin.Context, err error) {
	if errors.Is(err, service.ErrNotFound) {
		response.FailWithCode(c, response.CodeNotFound, userMessage(err))
		return
	}
	zap.L().Debug("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	response.Fail(c, userMessage(err))
}

// userMessage 内部错误不直接暴露给前端
func userMessage(err error) string {
	switch {
	case errors.Is(err, service.ErrNotFound),
		errors.Is(err, service.ErrEmptyDocument),
		errors.Is(err, service.ErrEmptyQuery):
		return err.Error()
	default:
		return "internal error, please try again later"
	}
}
