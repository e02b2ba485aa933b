//go:build integration

package repository_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	pkgerrors "fyp-portal/backend/pkg/errors"

	"fyp-portal/backend/internal/model"
	"fyp-portal/backend/internal/repository"
)

// ═══════════════════════════════════════════════════════════
// Test Setup
// ═══════════════════════════════════════════════════════════

var testDB *gorm.DB

func TestMain(m *testing.M) {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		dsn = "host=localhost port=5433 user=fyp_portal password=fyp_portal_password dbname=fyp_portal_test sslmode=disable TimeZone=Asia/Shanghai"
	}

	var err error
	testDB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "无法连接测试数据库: %v\n", err)
		os.Exit(1)
	}

	// 自动迁移测试表结构
	err = testDB.AutoMigrate(
		&model.User{},
		&model.Project{},
		&model.Submission{},
		&model.StatusChangeLog{},
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "AutoMigrate 失败: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()
	os.Exit(code)
}

// setupTestData 创建学生、指导教师和一个开题待审的课题，返回清理函数
func setupTestData(t *testing.T) (student *model.User, staff *model.User, project *model.Project, cleanup func()) {
	t.Helper()
	ctx := context.Background()

	student = &model.User{
		Name:         "测试学生",
		StudentNo:    fmt.Sprintf("S%d", time.Now().UnixNano()),
		Email:        fmt.Sprintf("stu%d@edu.cn", time.Now().UnixNano()),
		PasswordHash: "$2a$10$placeholder",
		Role:         model.RoleStudent,
		IsActive:     true,
	}
	if err := testDB.WithContext(ctx).Create(student).Error; err != nil {
		t.Fatalf("创建学生失败: %v", err)
	}

	staff = &model.User{
		Name:         "测试教师",
		Email:        fmt.Sprintf("staff%d@edu.cn", time.Now().UnixNano()),
		PasswordHash: "$2a$10$placeholder",
		Role:         model.RoleStaff,
		IsActive:     true,
	}
	if err := testDB.WithContext(ctx).Create(staff).Error; err != nil {
		t.Fatalf("创建教师失败: %v", err)
	}

	project = &model.Project{
		StudentID:    student.UserID,
		SupervisorID: &staff.UserID,
		Title:        "集成测试课题",
		Description:  "仅用于仓储层集成测试",
		Status:       model.StatusProposalSubmitted,
	}
	if err := testDB.WithContext(ctx).Create(project).Error; err != nil {
		t.Fatalf("创建课题失败: %v", err)
	}

	cleanup = func() {
		testDB.Unscoped().Where("project_id = ?", project.ProjectID).Delete(&model.StatusChangeLog{})
		testDB.Unscoped().Where("project_id = ?", project.ProjectID).Delete(&model.Submission{})
		testDB.Unscoped().Where("project_id = ?", project.ProjectID).Delete(&model.Project{})
		testDB.Unscoped().Where("user_id = ?", staff.UserID).Delete(&model.User{})
		testDB.Unscoped().Where("user_id = ?", student.UserID).Delete(&model.User{})
	}
	return
}

// ═══════════════════════════════════════════════════════════
// Test: Transaction Rollback / Commit
// ═══════════════════════════════════════════════════════════

func TestTransaction_Rollback(t *testing.T) {
	_, _, project, cleanup := setupTestData(t)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	tx, err := repo.BeginTx(ctx)
	if err != nil {
		t.Fatalf("BeginTx 失败: %v", err)
	}

	txRepo := repo.WithTx(tx)

	sub := &model.Submission{
		ProjectID:       project.ProjectID,
		SubmissionType:  model.SubmissionChapter1,
		Title:           "第一章 绪论",
		Status:          model.SubmissionStatusPending,
		VersionNumber:   1,
		IsLatestVersion: true,
		SubmittedAt:     time.Now(),
	}
	if err := txRepo.Submission.Create(ctx, sub); err != nil {
		tx.Rollback()
		t.Fatalf("事务内创建 Submission 失败: %v", err)
	}

	tx.Rollback()

	// 验证数据未持久化
	_, err = repo.Submission.GetByID(ctx, sub.SubmissionID)
	if err == nil {
		testDB.Unscoped().Where("submission_id = ?", sub.SubmissionID).Delete(&model.Submission{})
		t.Fatal("期望回滚后查不到 Submission，但实际查到了")
	}
}

func TestTransaction_Commit(t *testing.T) {
	_, _, project, cleanup := setupTestData(t)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	tx, err := repo.BeginTx(ctx)
	if err != nil {
		t.Fatalf("BeginTx 失败: %v", err)
	}

	txRepo := repo.WithTx(tx)

	sub := &model.Submission{
		ProjectID:       project.ProjectID,
		SubmissionType:  model.SubmissionChapter1,
		Title:           "第一章 绪论",
		Status:          model.SubmissionStatusPending,
		VersionNumber:   1,
		IsLatestVersion: true,
		SubmittedAt:     time.Now(),
	}
	if err := txRepo.Submission.Create(ctx, sub); err != nil {
		tx.Rollback()
		t.Fatalf("事务内创建 Submission 失败: %v", err)
	}

	if err := tx.Commit().Error; err != nil {
		t.Fatalf("Commit 失败: %v", err)
	}

	found, err := repo.Submission.GetByID(ctx, sub.SubmissionID)
	if err != nil {
		t.Fatalf("提交后查询 Submission 失败: %v", err)
	}
	if found.SubmissionID != sub.SubmissionID {
		t.Errorf("ID 不匹配: expected %s, got %s", sub.SubmissionID, found.SubmissionID)
	}
}

// ═══════════════════════════════════════════════════════════
// Test: Status CAS
// ═══════════════════════════════════════════════════════════

func TestProject_UpdateStatusCAS(t *testing.T) {
	_, staff, project, cleanup := setupTestData(t)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	// 前置状态匹配：更新生效
	err := repo.Project.UpdateStatusCAS(ctx, project.ProjectID, model.StatusProposalSubmitted, map[string]interface{}{
		"status":     model.StatusProposalApproved,
		"updated_by": staff.UserID,
	})
	if err != nil {
		t.Fatalf("CAS 更新应成功: %v", err)
	}

	found, err := repo.Project.GetByID(ctx, project.ProjectID)
	if err != nil {
		t.Fatalf("查询课题失败: %v", err)
	}
	if found.Status != model.StatusProposalApproved {
		t.Errorf("期望Status=proposal_approved，实际=%s", found.Status)
	}

	// 前置状态已过期：模拟并发流转丢失竞争
	err = repo.Project.UpdateStatusCAS(ctx, project.ProjectID, model.StatusProposalSubmitted, map[string]interface{}{
		"status": model.StatusRejected,
	})
	if err != pkgerrors.ErrStatusConflict {
		t.Errorf("期望 ErrStatusConflict，得到: %v", err)
	}

	// 状态未被第二次更新污染
	found, _ = repo.Project.GetByID(ctx, project.ProjectID)
	if found.Status != model.StatusProposalApproved {
		t.Errorf("冲突更新不应生效，实际Status=%s", found.Status)
	}
}

// ═══════════════════════════════════════════════════════════
// Test: Latest Version Invariant
// ═══════════════════════════════════════════════════════════

func TestSubmission_LatestVersionInvariant(t *testing.T) {
	_, _, project, cleanup := setupTestData(t)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	v1 := &model.Submission{
		ProjectID:       project.ProjectID,
		SubmissionType:  model.SubmissionChapter2,
		Title:           "第二章 相关工作 v1",
		Status:          model.SubmissionStatusNeedsRevision,
		VersionNumber:   1,
		IsLatestVersion: true,
		SubmittedAt:     time.Now(),
	}
	if err := repo.Submission.Create(ctx, v1); err != nil {
		t.Fatalf("创建 v1 失败: %v", err)
	}

	// 退回后重新提交：ClearLatest + 新版本在同一事务内完成
	tx, err := repo.BeginTx(ctx)
	if err != nil {
		t.Fatalf("BeginTx 失败: %v", err)
	}
	txRepo := repo.WithTx(tx)

	if err := txRepo.Submission.ClearLatest(ctx, project.ProjectID, model.SubmissionChapter2); err != nil {
		tx.Rollback()
		t.Fatalf("ClearLatest 失败: %v", err)
	}
	v2 := &model.Submission{
		ProjectID:       project.ProjectID,
		SubmissionType:  model.SubmissionChapter2,
		Title:           "第二章 相关工作 v2",
		Status:          model.SubmissionStatusPending,
		VersionNumber:   2,
		IsLatestVersion: true,
		SubmittedAt:     time.Now(),
	}
	if err := txRepo.Submission.Create(ctx, v2); err != nil {
		tx.Rollback()
		t.Fatalf("创建 v2 失败: %v", err)
	}
	if err := tx.Commit().Error; err != nil {
		t.Fatalf("Commit 失败: %v", err)
	}

	// GetLatest 返回 v2
	latest, err := repo.Submission.GetLatest(ctx, project.ProjectID, model.SubmissionChapter2)
	if err != nil {
		t.Fatalf("GetLatest 失败: %v", err)
	}
	if latest.VersionNumber != 2 {
		t.Errorf("期望最新版本号=2，实际=%d", latest.VersionNumber)
	}

	// 全量历史版本按版本号降序
	versions, err := repo.Submission.ListVersions(ctx, project.ProjectID, model.SubmissionChapter2)
	if err != nil {
		t.Fatalf("ListVersions 失败: %v", err)
	}
	if len(versions) != 2 {
		t.Fatalf("期望 2 个版本，得到 %d 个", len(versions))
	}
	if versions[0].VersionNumber != 2 || versions[1].VersionNumber != 1 {
		t.Error("历史版本应按版本号降序排列")
	}

	// 任一时刻恰有一条最新版本
	var latestCount int64
	testDB.Model(&model.Submission{}).
		Where("project_id = ? AND submission_type = ? AND is_latest_version = ?", project.ProjectID, model.SubmissionChapter2, true).
		Count(&latestCount)
	if latestCount != 1 {
		t.Errorf("期望恰有 1 条最新版本，实际=%d", latestCount)
	}
}

// ═══════════════════════════════════════════════════════════
// Test: Approved Category Count
// ═══════════════════════════════════════════════════════════

func TestSubmission_CountApprovedCategories(t *testing.T) {
	_, _, project, cleanup := setupTestData(t)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	seed := []model.Submission{
		// proposal：最新版已通过，计入
		{ProjectID: project.ProjectID, SubmissionType: model.SubmissionProposal, Title: "开题报告",
			Status: model.SubmissionStatusApproved, VersionNumber: 1, IsLatestVersion: true, SubmittedAt: time.Now()},
		// chapter_1：历史版通过但最新版待审，不计入
		{ProjectID: project.ProjectID, SubmissionType: model.SubmissionChapter1, Title: "第一章 v1",
			Status: model.SubmissionStatusApproved, VersionNumber: 1, IsLatestVersion: false, SubmittedAt: time.Now()},
		{ProjectID: project.ProjectID, SubmissionType: model.SubmissionChapter1, Title: "第一章 v2",
			Status: model.SubmissionStatusPending, VersionNumber: 2, IsLatestVersion: true, SubmittedAt: time.Now()},
		// chapter_2：最新版已通过，计入
		{ProjectID: project.ProjectID, SubmissionType: model.SubmissionChapter2, Title: "第二章",
			Status: model.SubmissionStatusApproved, VersionNumber: 1, IsLatestVersion: true, SubmittedAt: time.Now()},
	}
	for i := range seed {
		if err := repo.Submission.Create(ctx, &seed[i]); err != nil {
			t.Fatalf("创建提交记录失败: %v", err)
		}
	}

	count, err := repo.Submission.CountApprovedCategories(ctx, project.ProjectID)
	if err != nil {
		t.Fatalf("CountApprovedCategories 失败: %v", err)
	}
	if count != 2 {
		t.Errorf("期望 2 个已通过类别，实际=%d", count)
	}
}

// ═══════════════════════════════════════════════════════════
// Test: Supervisor Listing / Soft Delete
// ═══════════════════════════════════════════════════════════

func TestUser_ListSupervisors(t *testing.T) {
	student, staff, _, cleanup := setupTestData(t)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	// 停用的教师不应出现在候选列表中
	inactive := &model.User{
		Name:         "停用教师",
		Email:        fmt.Sprintf("inactive%d@edu.cn", time.Now().UnixNano()),
		PasswordHash: "$2a$10$placeholder",
		Role:         model.RoleStaff,
		IsActive:     false,
	}
	if err := testDB.WithContext(ctx).Create(inactive).Error; err != nil {
		t.Fatalf("创建停用教师失败: %v", err)
	}
	defer testDB.Unscoped().Where("user_id = ?", inactive.UserID).Delete(&model.User{})

	supervisors, err := repo.User.ListSupervisors(ctx)
	if err != nil {
		t.Fatalf("ListSupervisors 失败: %v", err)
	}
	for _, u := range supervisors {
		if u.UserID == student.UserID {
			t.Error("学生不应出现在指导教师候选列表中")
		}
		if u.UserID == inactive.UserID {
			t.Error("停用教师不应出现在指导教师候选列表中")
		}
	}

	found := false
	for _, u := range supervisors {
		if u.UserID == staff.UserID {
			found = true
		}
	}
	if !found {
		t.Error("在职教师应出现在指导教师候选列表中")
	}
}

func TestUser_SoftDelete(t *testing.T) {
	student, staff, _, cleanup := setupTestData(t)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	if err := repo.User.Delete(ctx, student.UserID, staff.UserID); err != nil {
		t.Fatalf("软删除失败: %v", err)
	}

	// 常规查询应找不到
	if _, err := repo.User.GetByID(ctx, student.UserID); err == nil {
		t.Fatal("软删除后应查不到用户")
	}

	// Unscoped 查询应能找到且带删除标记
	var found model.User
	if err := testDB.Unscoped().Where("user_id = ?", student.UserID).First(&found).Error; err != nil {
		t.Fatalf("Unscoped 查询应能找到: %v", err)
	}
	if found.DeletedAt.Time.IsZero() {
		t.Error("DeletedAt 应已设置")
	}
}
