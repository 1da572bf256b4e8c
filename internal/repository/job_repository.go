package repository

import (
	"context"

	"github.com/mautops/talent-gin/internal/model"
	"gorm.io/gorm"
)

// JobRepository 职位仓储接口
type JobRepository interface {
	Create(ctx context.Context, job *model.Job) error
	FindByID(ctx context.Context, id string) (*model.Job, error)
	FindByIDWithStages(ctx context.Context, id string) (*model.Job, error)
	FindByFilter(ctx context.Context, filter *JobFilter) ([]*model.Job, int64, error)
	FindPendingApproval(ctx context.Context, limit int) ([]*model.Job, error)
	ExistsByCode(ctx context.Context, code string, excludeID string) (bool, error)
	UpdateStatus(ctx context.Context, job *model.Job, expectedVersion int) error
	UpdateFields(ctx context.Context, job *model.Job, expectedVersion int) error
	ReplaceStages(ctx context.Context, jobID string, stages []model.JobStageConfig) error
	Delete(ctx context.Context, id string) error
	CountByStatus(ctx context.Context) (map[model.JobStatus]int64, error)
}

// JobFilter 职位查询过滤器
type JobFilter struct {
	Status     *model.JobStatus
	Department *string
	Keyword    *string
	SortColumn string // 已通过白名单校验的列名，为空时使用默认排序
	SortOrder  string
	Page       int
	PageSize   int
}

// jobRepository 职位仓储实现
type jobRepository struct {
	db *gorm.DB
}

// NewJobRepository 创建职位仓储
func NewJobRepository(db *gorm.DB) JobRepository {
	return &jobRepository{db: db}
}

// Create 保存新职位及其阶段配置
func (r *jobRepository) Create(ctx context.Context, job *model.Job) error {
	return r.db.WithContext(ctx).Create(job).Error
}

// FindByID 根据 ID 查找职位
func (r *jobRepository) FindByID(ctx context.Context, id string) (*model.Job, error) {
	var job model.Job
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&job).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

// FindByIDWithStages 查找职位并加载阶段配置
func (r *jobRepository) FindByIDWithStages(ctx context.Context, id string) (*model.Job, error) {
	var job model.Job
	err := r.db.WithContext(ctx).
		Preload("Stages", func(db *gorm.DB) *gorm.DB { return db.Order("stage_order ASC") }).
		Where("id = ?", id).
		First(&job).Error
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// FindByFilter 分页查询，按截止日期、创建时间倒序
func (r *jobRepository) FindByFilter(ctx context.Context, filter *JobFilter) ([]*model.Job, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.Job{})
	if filter != nil {
		if filter.Status != nil {
			query = query.Where("status = ?", *filter.Status)
		}
		if filter.Department != nil {
			query = query.Where("department = ?", *filter.Department)
		}
		if filter.Keyword != nil {
			like := "%" + *filter.Keyword + "%"
			query = query.Where("title LIKE ? OR job_code LIKE ?", like, like)
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, pageSize := 1, 20
	if filter != nil {
		if filter.Page > 0 {
			page = filter.Page
		}
		if filter.PageSize > 0 {
			pageSize = filter.PageSize
		}
	}

	if filter != nil && filter.SortColumn != "" {
		order := "DESC"
		if filter.SortOrder == "ASC" {
			order = "ASC"
		}
		query = query.Order(filter.SortColumn + " " + order)
	} else {
		query = query.Order("application_deadline DESC").Order("created_at DESC")
	}

	var jobs []*model.Job
	err := query.
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&jobs).Error
	return jobs, total, err
}

// FindPendingApproval 待审批队列，按更新时间倒序
func (r *jobRepository) FindPendingApproval(ctx context.Context, limit int) ([]*model.Job, error) {
	var jobs []*model.Job
	err := r.db.WithContext(ctx).
		Where("status = ?", model.JobStatusPendingApproval).
		Order("updated_at DESC").
		Limit(limit).
		Find(&jobs).Error
	return jobs, err
}

// ExistsByCode 检查职位编码是否已被占用
func (r *jobRepository) ExistsByCode(ctx context.Context, code string, excludeID string) (bool, error) {
	query := r.db.WithContext(ctx).Model(&model.Job{}).Where("job_code = ?", code)
	if excludeID != "" {
		query = query.Where("id <> ?", excludeID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// UpdateStatus 以版本号为条件更新状态，未命中返回 ErrStaleVersion
func (r *jobRepository) UpdateStatus(ctx context.Context, job *model.Job, expectedVersion int) error {
	result := r.db.WithContext(ctx).
		Model(&model.Job{}).
		Where("id = ? AND version = ?", job.ID, expectedVersion).
		Updates(map[string]interface{}{
			"status":           job.Status,
			"rejection_reason": job.RejectionReason,
			"version":          expectedVersion + 1,
			"updated_at":       job.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStaleVersion
	}
	job.Version = expectedVersion + 1
	return nil
}

// UpdateFields 以版本号为条件更新可编辑字段（不含状态）
func (r *jobRepository) UpdateFields(ctx context.Context, job *model.Job, expectedVersion int) error {
	result := r.db.WithContext(ctx).
		Model(&model.Job{}).
		Where("id = ? AND version = ?", job.ID, expectedVersion).
		Updates(map[string]interface{}{
			"title":                job.Title,
			"department":           job.Department,
			"skills_csv":           job.SkillsCSV,
			"salary_range_min":     job.SalaryRangeMin,
			"salary_range_max":     job.SalaryRangeMax,
			"is_salary_negotiable": job.IsSalaryNegotiable,
			"location_type":        job.LocationType,
			"location_text":        job.LocationText,
			"employment_type":      job.EmploymentType,
			"experience_level":     job.ExperienceLevel,
			"job_code":             job.JobCode,
			"vacancy_count":        job.VacancyCount,
			"description_html":     job.DescriptionHTML,
			"requirements_html":    job.RequirementsHTML,
			"description_json":     job.DescriptionJSON,
			"requirements_json":    job.RequirementsJSON,
			"application_deadline": job.ApplicationDeadline,
			"version":              expectedVersion + 1,
			"updated_at":           job.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStaleVersion
	}
	job.Version = expectedVersion + 1
	return nil
}

// ReplaceStages 整体替换职位的阶段配置
func (r *jobRepository) ReplaceStages(ctx context.Context, jobID string, stages []model.JobStageConfig) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("job_id = ?", jobID).Delete(&model.JobStageConfig{}).Error; err != nil {
		return err
	}
	if len(stages) == 0 {
		return nil
	}
	return db.Create(&stages).Error
}

// Delete 删除职位及其阶段配置
func (r *jobRepository) Delete(ctx context.Context, id string) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("job_id = ?", id).Delete(&model.JobStageConfig{}).Error; err != nil {
		return err
	}
	return db.Where("id = ?", id).Delete(&model.Job{}).Error
}

// CountByStatus 按状态统计职位数量
func (r *jobRepository) CountByStatus(ctx context.Context) (map[model.JobStatus]int64, error) {
	var rows []struct {
		Status model.JobStatus
		Count  int64
	}
	err := r.db.WithContext(ctx).
		Model(&model.Job{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[model.JobStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
