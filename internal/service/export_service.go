package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"fyp-portal/backend/internal/repository"
)

// ── 导出模块业务错误 ──

var (
	ErrExportNoData       = errors.New("暂无可导出的数据")
	ErrExportGenerateFail = errors.New("生成 Excel 文件失败")
)

// ExportService 导出业务接口
//
// 设计说明：
//   - 导出指导教师工作量与课题名册为 Excel (.xlsx)
//   - 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response
type ExportService interface {
	// ExportWorkload 导出指导教师工作量与课题名册
	ExportWorkload(ctx context.Context) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo          *repository.Repository
	assignmentSvc AssignmentService
	logger        *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, assignmentSvc AssignmentService, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, assignmentSvc: assignmentSvc, logger: logger}
}

// ═══════════════════════════════════════════════════════════
// ExportWorkload — 导出工作量统计与课题名册
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - Sheet "工作量统计"：每位指导教师一行（姓名 / 邮箱 / 总数 / 进行中 / 已完成）
//   - Sheet "课题名册"：每个课题一行（标题 / 学生 / 指导教师 / 状态 / 进度）
//
// 返回值：buf（Excel 内容）, filename（建议文件名）, error

func (s *exportService) ExportWorkload(ctx context.Context) (*bytes.Buffer, string, error) {
	// 1. 工作量数据（复用指派模块的实时统计）
	workloads, err := s.assignmentSvc.Workload(ctx)
	if err != nil {
		return nil, "", err
	}

	// 2. 课题名册
	projects, err := s.repo.Project.ListAll(ctx)
	if err != nil {
		s.logger.Error("查询课题名册失败", zap.Error(err))
		return nil, "", err
	}
	if len(workloads) == 0 && len(projects) == 0 {
		return nil, "", ErrExportNoData
	}

	f := excelize.NewFile()
	defer f.Close()

	// 3. 工作量统计 Sheet
	const workloadSheet = "工作量统计"
	if err := f.SetSheetName("Sheet1", workloadSheet); err != nil {
		s.logger.Error("重命名 Sheet 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}
	headers := []interface{}{"指导教师", "邮箱", "课题总数", "进行中", "已完成"}
	if err := f.SetSheetRow(workloadSheet, "A1", &headers); err != nil {
		return nil, "", ErrExportGenerateFail
	}
	for i, w := range workloads {
		row := []interface{}{w.Name, w.Email, w.Total, w.Active, w.Completed}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(workloadSheet, cell, &row); err != nil {
			return nil, "", ErrExportGenerateFail
		}
	}

	// 4. 课题名册 Sheet
	const rosterSheet = "课题名册"
	if _, err := f.NewSheet(rosterSheet); err != nil {
		return nil, "", ErrExportGenerateFail
	}
	rosterHeaders := []interface{}{"课题标题", "学生", "指导教师", "状态", "进度(%)"}
	if err := f.SetSheetRow(rosterSheet, "A1", &rosterHeaders); err != nil {
		return nil, "", ErrExportGenerateFail
	}
	for i := range projects {
		p := &projects[i]
		studentName := p.StudentID
		if p.Student != nil {
			studentName = p.Student.Name
		}
		supervisorName := "未指派"
		if p.Supervisor != nil {
			supervisorName = p.Supervisor.Name
		}
		row := []interface{}{p.Title, studentName, supervisorName, p.Status, p.ProgressPercentage}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(rosterSheet, cell, &row); err != nil {
			return nil, "", ErrExportGenerateFail
		}
	}

	// 5. 写入缓冲区
	buf, err := f.WriteToBuffer()
	if err != nil {
		s.logger.Error("写入 Excel 缓冲区失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("supervisor_workload_%s.xlsx", time.Now().Format("20060102"))
	return buf, filename, nil
}
