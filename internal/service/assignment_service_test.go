package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"fyp-portal/backend/internal/dto"
	"fyp-portal/backend/internal/model"
	"fyp-portal/backend/internal/repository"
)

// ── 测试辅助 ──

func setupTestAssignmentService() (AssignmentService, *mockUserRepo, *mockProjectRepo) {
	userRepo := newMockUserRepo()
	projectRepo := newMockProjectRepo()
	repo := &repository.Repository{
		User:            userRepo,
		Project:         projectRepo,
		Submission:      newMockSubmissionRepo(),
		StatusChangeLog: newMockStatusChangeLogRepo(),
	}
	svc := NewAssignmentService(repo, zap.NewNop())
	return svc, userRepo, projectRepo
}

func seedUser(repo *mockUserRepo, id, name, role string) *model.User {
	u := &model.User{
		UserID:   id,
		Name:     name,
		Email:    id + "@example.edu",
		Role:     role,
		IsActive: true,
	}
	repo.users[id] = u
	return u
}

// ── Assign 测试 ──

func TestAssignmentService_Assign_Success(t *testing.T) {
	svc, userRepo, projectRepo := setupTestAssignmentService()
	seedUser(userRepo, "staff-001", "张老师", model.RoleStaff)
	supervisedProject(projectRepo, "proj-1", "stu-001", "", model.StatusProposalSubmitted)

	result, err := svc.Assign(context.Background(), adminActor("admin-001"), "proj-1", "staff-001")
	if err != nil {
		t.Fatalf("Assign 应成功: %v", err)
	}
	if result.SupervisorID == nil || *result.SupervisorID != "staff-001" {
		t.Error("指导教师应被写入课题")
	}
}

// 改派：已有指导教师的课题可以换人
func TestAssignmentService_Assign_Reassign(t *testing.T) {
	svc, userRepo, projectRepo := setupTestAssignmentService()
	seedUser(userRepo, "staff-002", "李老师", model.RoleStaff)
	supervisedProject(projectRepo, "proj-1", "stu-001", "staff-001", model.StatusInProgress)

	result, err := svc.Assign(context.Background(), adminActor("admin-001"), "proj-1", "staff-002")
	if err != nil {
		t.Fatalf("改派应成功: %v", err)
	}
	if result.SupervisorID == nil || *result.SupervisorID != "staff-002" {
		t.Error("课题应改派给新指导教师")
	}
}

func TestAssignmentService_Assign_Forbidden(t *testing.T) {
	svc, userRepo, projectRepo := setupTestAssignmentService()
	seedUser(userRepo, "staff-001", "张老师", model.RoleStaff)
	supervisedProject(projectRepo, "proj-1", "stu-001", "", model.StatusProposalSubmitted)

	_, err := svc.Assign(context.Background(), staffActor("staff-001"), "proj-1", "staff-001")
	if !errors.Is(err, ErrForbidden) {
		t.Errorf("非管理员指派，期望 ErrForbidden，实际: %v", err)
	}
}

func TestAssignmentService_Assign_SupervisorNotFound(t *testing.T) {
	svc, _, projectRepo := setupTestAssignmentService()
	supervisedProject(projectRepo, "proj-1", "stu-001", "", model.StatusProposalSubmitted)

	_, err := svc.Assign(context.Background(), adminActor("admin-001"), "proj-1", "nonexistent")
	if !errors.Is(err, ErrSupervisorNotFound) {
		t.Errorf("期望 ErrSupervisorNotFound，实际: %v", err)
	}
}

func TestAssignmentService_Assign_StudentAsSupervisor(t *testing.T) {
	svc, userRepo, projectRepo := setupTestAssignmentService()
	seedUser(userRepo, "stu-002", "某学生", model.RoleStudent)
	supervisedProject(projectRepo, "proj-1", "stu-001", "", model.StatusProposalSubmitted)

	_, err := svc.Assign(context.Background(), adminActor("admin-001"), "proj-1", "stu-002")
	if !errors.Is(err, ErrSupervisorRole) {
		t.Errorf("期望 ErrSupervisorRole，实际: %v", err)
	}
}

func TestAssignmentService_Assign_ProjectNotFound(t *testing.T) {
	svc, userRepo, _ := setupTestAssignmentService()
	seedUser(userRepo, "staff-001", "张老师", model.RoleStaff)

	_, err := svc.Assign(context.Background(), adminActor("admin-001"), "nonexistent", "staff-001")
	if !errors.Is(err, ErrProjectNotFound) {
		t.Errorf("期望 ErrProjectNotFound，实际: %v", err)
	}
}

// ── BulkAssign 测试 ──

// 批量指派逐个尝试：失败不中断其余指派
func TestAssignmentService_BulkAssign_ContinueOnError(t *testing.T) {
	svc, userRepo, projectRepo := setupTestAssignmentService()
	seedUser(userRepo, "staff-001", "张老师", model.RoleStaff)
	supervisedProject(projectRepo, "proj-1", "stu-001", "", model.StatusProposalSubmitted)
	supervisedProject(projectRepo, "proj-3", "stu-003", "", model.StatusProposalSubmitted)

	req := &dto.BulkAssignRequest{
		ProjectIDs:   []string{"proj-1", "proj-missing", "proj-3"},
		SupervisorID: "staff-001",
	}
	result, err := svc.BulkAssign(context.Background(), adminActor("admin-001"), req)
	if err != nil {
		t.Fatalf("BulkAssign 应成功: %v", err)
	}
	if result.Assigned != 2 {
		t.Errorf("期望成功指派 2 个，实际=%d", result.Assigned)
	}
	if len(result.Failed) != 1 {
		t.Fatalf("期望 1 个失败记录，实际=%d", len(result.Failed))
	}
	if result.Failed[0].ProjectID != "proj-missing" {
		t.Errorf("失败记录应指向 proj-missing，实际=%s", result.Failed[0].ProjectID)
	}

	// 成功的课题确实被指派
	if !projectRepo.projects["proj-1"].IsSupervisedBy("staff-001") {
		t.Error("proj-1 应被指派给 staff-001")
	}
	if !projectRepo.projects["proj-3"].IsSupervisedBy("staff-001") {
		t.Error("proj-3 应被指派给 staff-001")
	}
}

func TestAssignmentService_BulkAssign_BadSupervisor(t *testing.T) {
	svc, _, projectRepo := setupTestAssignmentService()
	supervisedProject(projectRepo, "proj-1", "stu-001", "", model.StatusProposalSubmitted)

	req := &dto.BulkAssignRequest{
		ProjectIDs:   []string{"proj-1"},
		SupervisorID: "nonexistent",
	}
	_, err := svc.BulkAssign(context.Background(), adminActor("admin-001"), req)
	if !errors.Is(err, ErrSupervisorNotFound) {
		t.Errorf("期望 ErrSupervisorNotFound，实际: %v", err)
	}
}

// ── Workload 测试 ──

func TestAssignmentService_Workload(t *testing.T) {
	svc, userRepo, projectRepo := setupTestAssignmentService()
	seedUser(userRepo, "staff-001", "张老师", model.RoleStaff)
	supervisedProject(projectRepo, "proj-1", "stu-001", "staff-001", model.StatusInProgress)
	supervisedProject(projectRepo, "proj-2", "stu-002", "staff-001", model.StatusCompleted)
	supervisedProject(projectRepo, "proj-3", "stu-003", "staff-001", model.StatusRejected)
	supervisedProject(projectRepo, "proj-4", "stu-004", "", model.StatusProposalSubmitted) // 未指派，不计入

	result, err := svc.Workload(context.Background())
	if err != nil {
		t.Fatalf("Workload 应成功: %v", err)
	}
	if len(result) != 1 {
		t.Fatalf("期望 1 位指导教师，实际=%d", len(result))
	}

	w := result[0]
	if w.SupervisorID != "staff-001" {
		t.Errorf("期望SupervisorID=staff-001，实际=%s", w.SupervisorID)
	}
	if w.Total != 3 {
		t.Errorf("期望Total=3，实际=%d", w.Total)
	}
	// rejected 计入 total，不计入 active
	if w.Active != 1 {
		t.Errorf("期望Active=1，实际=%d", w.Active)
	}
	if w.Completed != 1 {
		t.Errorf("期望Completed=1，实际=%d", w.Completed)
	}
}

// 没有课题的指导教师也应出现在统计中（工作量为 0）
func TestAssignmentService_Workload_NoProjects(t *testing.T) {
	svc, userRepo, _ := setupTestAssignmentService()
	seedUser(userRepo, "staff-001", "张老师", model.RoleStaff)

	result, err := svc.Workload(context.Background())
	if err != nil {
		t.Fatalf("Workload 应成功: %v", err)
	}
	if len(result) != 1 {
		t.Fatalf("期望 1 位指导教师，实际=%d", len(result))
	}
	if result[0].Total != 0 || result[0].Active != 0 || result[0].Completed != 0 {
		t.Error("无课题的指导教师工作量应为 0")
	}
}
