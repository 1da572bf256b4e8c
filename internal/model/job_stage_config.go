package model

// JobStageConfig 职位招聘阶段配置
type JobStageConfig struct {
	ID         string `gorm:"primaryKey;type:varchar(64)" json:"id"`
	JobID      string `gorm:"type:varchar(64);not null;index" json:"jobId"`
	StageName  string `gorm:"type:varchar(100);not null" json:"stageName"`
	StageOrder int    `gorm:"type:int;not null" json:"stageOrder"`
	IsActive   bool   `gorm:"not null;default:true" json:"isActive"`
}

// TableName 指定表名
func (JobStageConfig) TableName() string {
	return "job_stage_configs"
}
