package service

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"fyp-portal/backend/internal/model"
	"fyp-portal/backend/internal/repository"
	pkgerrors "fyp-portal/backend/pkg/errors"
)

// ── Mock UserRepository ──

type mockUserRepo struct {
	users map[string]*model.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	if user.UserID == "" {
		user.UserID = fmt.Sprintf("user-%d", len(m.users)+1)
	}
	m.users[user.UserID] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) List(_ context.Context, role string) ([]model.User, error) {
	var result []model.User
	for _, u := range m.users {
		if role != "" && u.Role != role {
			continue
		}
		result = append(result, *u)
	}
	return result, nil
}

func (m *mockUserRepo) ListSupervisors(_ context.Context) ([]model.User, error) {
	var result []model.User
	for _, u := range m.users {
		if u.CanSupervise() && u.IsActive {
			result = append(result, *u)
		}
	}
	return result, nil
}

func (m *mockUserRepo) Update(_ context.Context, user *model.User) error {
	m.users[user.UserID] = user
	return nil
}

func (m *mockUserRepo) Delete(_ context.Context, id string, _ string) error {
	delete(m.users, id)
	return nil
}

// ── Mock ProjectRepository ──

type mockProjectRepo struct {
	projects  map[string]*model.Project
	idCounter int
}

func newMockProjectRepo() *mockProjectRepo {
	return &mockProjectRepo{projects: make(map[string]*model.Project)}
}

func (m *mockProjectRepo) Create(_ context.Context, project *model.Project) error {
	if project.ProjectID == "" {
		m.idCounter++
		project.ProjectID = fmt.Sprintf("proj-%d", m.idCounter)
	}
	project.CreatedAt = time.Now()
	project.UpdatedAt = time.Now()
	m.projects[project.ProjectID] = project
	return nil
}

func (m *mockProjectRepo) GetByID(_ context.Context, id string) (*model.Project, error) {
	if p, ok := m.projects[id]; ok {
		return p, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockProjectRepo) GetByStudent(_ context.Context, studentID string) (*model.Project, error) {
	for _, p := range m.projects {
		if p.StudentID == studentID {
			return p, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockProjectRepo) ListByStudent(_ context.Context, studentID string) ([]model.Project, error) {
	var result []model.Project
	for _, p := range m.projects {
		if p.StudentID == studentID {
			result = append(result, *p)
		}
	}
	return result, nil
}

func (m *mockProjectRepo) ListBySupervisor(_ context.Context, supervisorID string) ([]model.Project, error) {
	var result []model.Project
	for _, p := range m.projects {
		if p.IsSupervisedBy(supervisorID) {
			result = append(result, *p)
		}
	}
	return result, nil
}

func (m *mockProjectRepo) ListUnassigned(_ context.Context) ([]model.Project, error) {
	var result []model.Project
	for _, p := range m.projects {
		if p.SupervisorID == nil {
			result = append(result, *p)
		}
	}
	return result, nil
}

func (m *mockProjectRepo) ListAll(_ context.Context) ([]model.Project, error) {
	var result []model.Project
	for _, p := range m.projects {
		result = append(result, *p)
	}
	return result, nil
}

func (m *mockProjectRepo) Update(_ context.Context, project *model.Project) error {
	project.UpdatedAt = time.Now()
	m.projects[project.ProjectID] = project
	return nil
}

// UpdateStatusCAS 与真实实现保持相同语义：状态不匹配时返回 ErrStatusConflict
func (m *mockProjectRepo) UpdateStatusCAS(_ context.Context, projectID, fromStatus string, updates map[string]interface{}) error {
	p, ok := m.projects[projectID]
	if !ok || p.Status != fromStatus {
		return pkgerrors.ErrStatusConflict
	}
	applyProjectUpdates(p, updates)
	p.UpdatedAt = time.Now()
	return nil
}

func (m *mockProjectRepo) UpdateProgress(_ context.Context, projectID string, progress int) error {
	p, ok := m.projects[projectID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	p.ProgressPercentage = progress
	return nil
}

func (m *mockProjectRepo) CountGroupedBySupervisor(_ context.Context) ([]repository.SupervisorStatusCount, error) {
	counts := make(map[string]map[string]int64)
	for _, p := range m.projects {
		if p.SupervisorID == nil {
			continue
		}
		sid := *p.SupervisorID
		if counts[sid] == nil {
			counts[sid] = make(map[string]int64)
		}
		counts[sid][p.Status]++
	}
	var rows []repository.SupervisorStatusCount
	for sid, byStatus := range counts {
		for status, n := range byStatus {
			rows = append(rows, repository.SupervisorStatusCount{
				SupervisorID: sid,
				Status:       status,
				Count:        n,
			})
		}
	}
	return rows, nil
}

// applyProjectUpdates 将 gorm 风格的 updates map 应用到内存模型
func applyProjectUpdates(p *model.Project, updates map[string]interface{}) {
	for key, v := range updates {
		switch key {
		case "status":
			p.Status = v.(string)
		case "title":
			p.Title = v.(string)
		case "description":
			p.Description = v.(string)
		case "feedback":
			if v == nil {
				p.Feedback = nil
			} else {
				s := v.(string)
				p.Feedback = &s
			}
		case "grade":
			if v == nil {
				p.Grade = nil
			} else {
				s := v.(string)
				p.Grade = &s
			}
		case "completed_at":
			if v == nil {
				p.CompletedAt = nil
			} else {
				t := v.(time.Time)
				p.CompletedAt = &t
			}
		case "updated_by":
			s := v.(string)
			p.UpdatedBy = &s
		}
	}
}

// ── Mock SubmissionRepository ──

type mockSubmissionRepo struct {
	submissions map[string]*model.Submission
	idCounter   int
}

func newMockSubmissionRepo() *mockSubmissionRepo {
	return &mockSubmissionRepo{submissions: make(map[string]*model.Submission)}
}

func (m *mockSubmissionRepo) Create(_ context.Context, submission *model.Submission) error {
	if submission.SubmissionID == "" {
		for {
			m.idCounter++
			id := fmt.Sprintf("sub-%d", m.idCounter)
			if _, exists := m.submissions[id]; !exists {
				submission.SubmissionID = id
				break
			}
		}
	}
	submission.CreatedAt = time.Now()
	submission.UpdatedAt = time.Now()
	m.submissions[submission.SubmissionID] = submission
	return nil
}

func (m *mockSubmissionRepo) GetByID(_ context.Context, id string) (*model.Submission, error) {
	if s, ok := m.submissions[id]; ok {
		return s, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSubmissionRepo) GetLatest(_ context.Context, projectID, submissionType string) (*model.Submission, error) {
	for _, s := range m.submissions {
		if s.ProjectID == projectID && s.SubmissionType == submissionType && s.IsLatestVersion {
			return s, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSubmissionRepo) ClearLatest(_ context.Context, projectID, submissionType string) error {
	for _, s := range m.submissions {
		if s.ProjectID == projectID && s.SubmissionType == submissionType {
			s.IsLatestVersion = false
		}
	}
	return nil
}

func (m *mockSubmissionRepo) Update(_ context.Context, submission *model.Submission) error {
	submission.UpdatedAt = time.Now()
	m.submissions[submission.SubmissionID] = submission
	return nil
}

func (m *mockSubmissionRepo) ListLatestByProject(_ context.Context, projectID string) ([]model.Submission, error) {
	var result []model.Submission
	for _, s := range m.submissions {
		if s.ProjectID == projectID && s.IsLatestVersion {
			result = append(result, *s)
		}
	}
	return result, nil
}

func (m *mockSubmissionRepo) ListVersions(_ context.Context, projectID, submissionType string) ([]model.Submission, error) {
	var result []model.Submission
	for _, s := range m.submissions {
		if s.ProjectID == projectID && s.SubmissionType == submissionType {
			result = append(result, *s)
		}
	}
	return result, nil
}

func (m *mockSubmissionRepo) CountApprovedCategories(_ context.Context, projectID string) (int64, error) {
	var count int64
	for _, s := range m.submissions {
		if s.ProjectID == projectID && s.IsLatestVersion && s.Status == model.SubmissionStatusApproved {
			count++
		}
	}
	return count, nil
}

// ── Mock StatusChangeLogRepository ──

type mockStatusChangeLogRepo struct {
	logs []model.StatusChangeLog
}

func newMockStatusChangeLogRepo() *mockStatusChangeLogRepo {
	return &mockStatusChangeLogRepo{}
}

func (m *mockStatusChangeLogRepo) Create(_ context.Context, log *model.StatusChangeLog) error {
	if log.LogID == "" {
		log.LogID = fmt.Sprintf("log-%d", len(m.logs)+1)
	}
	log.CreatedAt = time.Now()
	m.logs = append(m.logs, *log)
	return nil
}

func (m *mockStatusChangeLogRepo) ListByProject(_ context.Context, projectID string) ([]model.StatusChangeLog, error) {
	var result []model.StatusChangeLog
	for _, l := range m.logs {
		if l.ProjectID == projectID {
			result = append(result, l)
		}
	}
	return result, nil
}
