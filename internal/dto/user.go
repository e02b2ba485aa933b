package dto

// ── 用户模块 DTO ──

// CreateUserRequest 创建用户请求（管理员）
type CreateUserRequest struct {
	Name      string `json:"name"       binding:"required,min=2,max=100"`
	StudentNo string `json:"student_no" binding:"omitempty,max=20"`
	Email     string `json:"email"      binding:"required,email"`
	Password  string `json:"password"   binding:"required,min=8,max=64"`
	Role      string `json:"role"       binding:"required,oneof=student staff admin"`
}

// UpdateUserRequest 更新用户请求（管理员）
type UpdateUserRequest struct {
	Name      *string `json:"name"       binding:"omitempty,min=2,max=100"`
	StudentNo *string `json:"student_no" binding:"omitempty,max=20"`
	Email     *string `json:"email"      binding:"omitempty,email"`
	Role      *string `json:"role"       binding:"omitempty,oneof=student staff admin"`
	IsActive  *bool   `json:"is_active"`
}

// UserResponse 用户信息响应（脱敏）
type UserResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	StudentNo string `json:"student_no,omitempty"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	IsActive  bool   `json:"is_active"`
	CreatedAt string `json:"created_at"`
}

// UserBrief 关联展示用的用户摘要
type UserBrief struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	StudentNo string `json:"student_no,omitempty"`
	Email     string `json:"email"`
}
