package model

import "fmt"

// JobStatus 职位状态，数值即持久化值，顺序与生命周期一致
type JobStatus int

const (
	JobStatusDraft           JobStatus = 1
	JobStatusPendingApproval JobStatus = 2
	JobStatusActive          JobStatus = 3
	JobStatusClosed          JobStatus = 4
)

var jobStatusNames = map[JobStatus]string{
	JobStatusDraft:           "Draft",
	JobStatusPendingApproval: "PendingApproval",
	JobStatusActive:          "Active",
	JobStatusClosed:          "Closed",
}

// jobTransitions 合法的状态迁移
var jobTransitions = map[JobStatus][]JobStatus{
	JobStatusDraft:           {JobStatusPendingApproval, JobStatusClosed},
	JobStatusPendingApproval: {JobStatusActive, JobStatusDraft, JobStatusClosed},
	JobStatusActive:          {JobStatusClosed},
}

func (s JobStatus) String() string {
	if name, ok := jobStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("JobStatus(%d)", int(s))
}

// IsValid 判断是否为已定义的状态
func (s JobStatus) IsValid() bool {
	_, ok := jobStatusNames[s]
	return ok
}

// CanTransitionTo 判断从当前状态到目标状态是否合法
func (s JobStatus) CanTransitionTo(to JobStatus) bool {
	for _, next := range jobTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// ParseJobStatus 按名称解析状态（大小写敏感）
func ParseJobStatus(name string) (JobStatus, error) {
	for status, n := range jobStatusNames {
		if n == name {
			return status, nil
		}
	}
	return 0, fmt.Errorf("unknown job status %q", name)
}
