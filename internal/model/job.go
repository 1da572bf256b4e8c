package model

import (
	"errors"
	"time"
)

// LocationType 工作地点类型
type LocationType int

const (
	LocationRemote LocationType = 1
	LocationOnSite LocationType = 2
	LocationHybrid LocationType = 3
)

// EmploymentType 雇佣类型
type EmploymentType int

const (
	EmploymentFullTime   EmploymentType = 1
	EmploymentPartTime   EmploymentType = 2
	EmploymentContract   EmploymentType = 3
	EmploymentInternship EmploymentType = 4
)

// ExperienceLevel 经验级别
type ExperienceLevel int

const (
	ExperienceJunior ExperienceLevel = 1
	ExperienceMid    ExperienceLevel = 2
	ExperienceSenior ExperienceLevel = 3
	ExperienceLead   ExperienceLevel = 4
)

// Job 职位需求数据模型
type Job struct {
	ID                  string           `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Title               string           `gorm:"type:varchar(200);not null" json:"title"`
	Department          string           `gorm:"type:varchar(120);not null;index" json:"department"`
	SkillsCSV           string           `gorm:"column:skills_csv;type:text" json:"skillsCsv"`
	SalaryRangeMin      *float64         `json:"salaryRangeMin"`
	SalaryRangeMax      *float64         `json:"salaryRangeMax"`
	IsSalaryNegotiable  bool             `gorm:"not null;default:false" json:"isSalaryNegotiable"`
	LocationType        LocationType     `gorm:"type:int;not null" json:"locationType"`
	LocationText        string           `gorm:"type:varchar(200)" json:"locationText"`
	EmploymentType      EmploymentType   `gorm:"type:int;not null" json:"employmentType"`
	ExperienceLevel     ExperienceLevel  `gorm:"type:int;not null" json:"experienceLevel"`
	JobCode             string           `gorm:"type:varchar(64);not null;uniqueIndex" json:"jobCode"`
	VacancyCount        int              `gorm:"type:int;not null;default:1" json:"vacancyCount"`
	DescriptionHTML     string           `gorm:"column:description_html;type:text" json:"descriptionHtml"`
	RequirementsHTML    string           `gorm:"column:requirements_html;type:text" json:"requirementsHtml"`
	DescriptionJSON     string           `gorm:"column:description_json;type:text" json:"descriptionJson"`
	RequirementsJSON    string           `gorm:"column:requirements_json;type:text" json:"requirementsJson"`
	ApplicationDeadline *time.Time       `gorm:"index" json:"applicationDeadlineUtc"`
	Status              JobStatus        `gorm:"type:int;not null;index" json:"status"`
	RejectionReason     *string          `gorm:"type:text" json:"rejectionReason"`
	Version             int              `gorm:"type:int;not null;default:1" json:"version"`
	CreatedBy           string           `gorm:"type:varchar(64);index" json:"createdBy"`
	CreatedAt           time.Time        `gorm:"not null;index" json:"createdAtUtc"`
	UpdatedAt           time.Time        `gorm:"not null;index" json:"updatedAtUtc"`
	Stages              []JobStageConfig `gorm:"foreignKey:JobID" json:"stages,omitempty"`
}

// TableName 指定表名
func (Job) TableName() string {
	return "jobs"
}

// Validate 验证职位模型
func (j *Job) Validate() error {
	if j.ID == "" {
		return errors.New("job ID is required")
	}
	if j.Title == "" {
		return errors.New("job title is required")
	}
	if j.Department == "" {
		return errors.New("department is required")
	}
	if j.JobCode == "" {
		return errors.New("job code is required")
	}
	if j.VacancyCount < 1 {
		return errors.New("vacancy count must be at least 1")
	}
	if !j.Status.IsValid() {
		return errors.New("job status is invalid")
	}
	if j.LocationType < LocationRemote || j.LocationType > LocationHybrid {
		return errors.New("location type is invalid")
	}
	if j.EmploymentType < EmploymentFullTime || j.EmploymentType > EmploymentInternship {
		return errors.New("employment type is invalid")
	}
	if j.ExperienceLevel < ExperienceJunior || j.ExperienceLevel > ExperienceLead {
		return errors.New("experience level is invalid")
	}
	if !j.IsSalaryNegotiable && j.SalaryRangeMin != nil && j.SalaryRangeMax != nil && *j.SalaryRangeMin > *j.SalaryRangeMax {
		return errors.New("salary range minimum exceeds maximum")
	}
	return nil
}

// NormalizeSalary 面议时清空薪资范围
func (j *Job) NormalizeSalary() {
	if j.IsSalaryNegotiable {
		j.SalaryRangeMin = nil
		j.SalaryRangeMax = nil
	}
}
