package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mautops/talent-gin/internal/model"
	"github.com/mautops/talent-gin/internal/service"
	"github.com/mautops/talent-gin/internal/utils"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// JobController 职位控制器
type JobController struct {
	jobService service.JobService
}

// NewJobController 创建职位控制器
func NewJobController(jobService service.JobService) *JobController {
	return &JobController{jobService: jobService}
}

// ReasonRequest 审批意见，可省略
type ReasonRequest struct {
	Reason *string `json:"reason,omitempty" example:"Budget confirmed"`
}

// List 分页列出职位
// GET /api/v1/jobs?status=Draft&department=Engineering&keyword=go&page=1&page_size=20
func (c *JobController) List(ctx *gin.Context) {
	filter := &service.ListJobsFilter{
		SortBy: ctx.Query("sort_by"),
		Order:  ctx.Query("order"),
	}

	if filter.Order != "" {
		if err := utils.ValidateSortOrder(filter.Order); err != nil {
			Error(ctx, http.StatusBadRequest, "invalid order", err.Error())
			return
		}
	}
	if raw := ctx.Query("status"); raw != "" {
		status, err := parseStatus(raw)
		if err != nil {
			Error(ctx, http.StatusBadRequest, "invalid status", err.Error())
			return
		}
		filter.Status = &status
	}
	if department := ctx.Query("department"); department != "" {
		filter.Department = &department
	}
	if keyword := ctx.Query("keyword"); keyword != "" {
		filter.Keyword = &keyword
	}

	filter.Page, _ = strconv.Atoi(ctx.DefaultQuery("page", "1"))
	if filter.Page < 1 {
		filter.Page = 1
	}
	filter.PageSize, _ = strconv.Atoi(ctx.DefaultQuery("page_size", strconv.Itoa(defaultPageSize)))
	if filter.PageSize < 1 {
		filter.PageSize = defaultPageSize
	}
	if filter.PageSize > maxPageSize {
		filter.PageSize = maxPageSize
	}

	jobs, total, err := c.jobService.List(ctx.Request.Context(), filter)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}

	Paginated(ctx, jobs, NewPaginationInfo(filter.Page, filter.PageSize, total))
}

// parseStatus 支持状态名称或数值
func parseStatus(raw string) (model.JobStatus, error) {
	if n, err := strconv.Atoi(raw); err == nil {
		status := model.JobStatus(n)
		if !status.IsValid() {
			return 0, errors.New("unknown job status")
		}
		return status, nil
	}
	return model.ParseJobStatus(raw)
}

// Get 获取职位详情
func (c *JobController) Get(ctx *gin.Context) {
	job, err := c.jobService.Get(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	Success(ctx, job)
}

// Create 创建职位
func (c *JobController) Create(ctx *gin.Context) {
	var req service.CreateJobRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	job, err := c.jobService.Create(ctx.Request.Context(), &req)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	Created(ctx, job)
}

// Update 更新职位
func (c *JobController) Update(ctx *gin.Context) {
	var req service.UpdateJobRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	job, err := c.jobService.Update(ctx.Request.Context(), ctx.Param("id"), &req)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	Success(ctx, job)
}

// Delete 删除未提交过的草稿
func (c *JobController) Delete(ctx *gin.Context) {
	if err := c.jobService.Delete(ctx.Request.Context(), ctx.Param("id")); err != nil {
		handleServiceError(ctx, err)
		return
	}
	Success(ctx, nil)
}

// History 状态流水与审批动作
func (c *JobController) History(ctx *gin.Context) {
	history, err := c.jobService.GetHistory(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	Success(ctx, history)
}

// SubmitForApproval 提交审批
func (c *JobController) SubmitForApproval(ctx *gin.Context) {
	job, err := c.jobService.SubmitForApproval(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	Success(ctx, job)
}

// Approve 审批通过
func (c *JobController) Approve(ctx *gin.Context) {
	req, ok := bindReason(ctx)
	if !ok {
		return
	}
	job, err := c.jobService.Approve(ctx.Request.Context(), ctx.Param("id"), req.Reason)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	Success(ctx, job)
}

// Reject 审批驳回
func (c *JobController) Reject(ctx *gin.Context) {
	req, ok := bindReason(ctx)
	if !ok {
		return
	}
	job, err := c.jobService.Reject(ctx.Request.Context(), ctx.Param("id"), req.Reason)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	Success(ctx, job)
}

// Close 关闭职位
func (c *JobController) Close(ctx *gin.Context) {
	job, err := c.jobService.Close(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		handleServiceError(ctx, err)
		return
	}
	Success(ctx, job)
}

// bindReason 请求体可以为空
func bindReason(ctx *gin.Context) (*ReasonRequest, bool) {
	var req ReasonRequest
	if err := ctx.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return nil, false
	}
	return &req, true
}
