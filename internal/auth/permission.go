package auth

import "fmt"

// Code 权限码。存储层使用字符串，进入系统时经 ParseCode 校验
type Code string

const (
	JobsCreate            Code = "Jobs.Create"
	JobsEdit              Code = "Jobs.Edit"
	JobsSubmitForApproval Code = "Jobs.SubmitForApproval"
	JobsApprove           Code = "Jobs.Approve"
	JobsReject            Code = "Jobs.Reject"
	JobsPublish           Code = "Jobs.Publish"
	JobsUnpublish         Code = "Jobs.Unpublish"
	JobsClose             Code = "Jobs.Close"

	CandidatesView        Code = "Candidates.View"
	CandidatesEdit        Code = "Candidates.Edit"
	CandidatesMoveStage   Code = "Candidates.MoveStage"
	CandidatesBulkActions Code = "Candidates.BulkActions"
	CandidatesParseResume Code = "Candidates.ParseResume"

	InterviewsSchedule        Code = "Interviews.Schedule"
	InterviewsUpdate          Code = "Interviews.Update"
	InterviewsCancel          Code = "Interviews.Cancel"
	InterviewsView            Code = "Interviews.View"
	InterviewsSubmitScorecard Code = "Interviews.SubmitScorecard"

	AnalyticsViewReports    Code = "Analytics.ViewReports"
	SettingsManageTemplates Code = "Settings.ManageTemplates"
	SettingsManageStages    Code = "Settings.ManageStages"
)

var allCodes = []Code{
	JobsCreate, JobsEdit, JobsSubmitForApproval, JobsApprove, JobsReject, JobsPublish, JobsUnpublish, JobsClose,
	CandidatesView, CandidatesEdit, CandidatesMoveStage, CandidatesBulkActions, CandidatesParseResume,
	InterviewsSchedule, InterviewsUpdate, InterviewsCancel, InterviewsView, InterviewsSubmitScorecard,
	AnalyticsViewReports, SettingsManageTemplates, SettingsManageStages,
}

var knownCodes = func() map[string]Code {
	m := make(map[string]Code, len(allCodes))
	for _, c := range allCodes {
		m[string(c)] = c
	}
	return m
}()

// AllCodes 返回全部已定义的权限码
func AllCodes() []Code {
	out := make([]Code, len(allCodes))
	copy(out, allCodes)
	return out
}

// ParseCode 将字符串映射为已定义的权限码
func ParseCode(s string) (Code, error) {
	if c, ok := knownCodes[s]; ok {
		return c, nil
	}
	return "", fmt.Errorf("unknown permission code %q", s)
}

func (c Code) String() string {
	return string(c)
}
