package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"

	"github.com/142spp/qi4u-in-pnu-team8/config"
	"github.com/142spp/qi4u-in-pnu-team8/internal/dto"
)

func setupTestExportService() (ExportService, SelectionService) {
	selection, _ := setupTestSelectionService()
	cfg := testConfig()
	return NewExportService(&cfg.Grid, &cfg.Planner, selection, nopLogger()), selection
}

func TestExportService_Empty(t *testing.T) {
	svc, _ := setupTestExportService()
	ctx := context.Background()

	if _, _, err := svc.ExportXLSX(ctx, testSession, dto.ViewSelected); !errors.Is(err, ErrExportEmpty) {
		t.Errorf("期望 ErrExportEmpty，实际: %v", err)
	}
	if _, _, err := svc.ExportICS(ctx, testSession, dto.ViewOptimized); !errors.Is(err, ErrExportEmpty) {
		t.Errorf("期望 ErrExportEmpty，实际: %v", err)
	}
	if _, _, err := svc.ExportICS(ctx, testSession, "daily"); !errors.Is(err, ErrGridInvalidView) {
		t.Errorf("期望 ErrGridInvalidView，实际: %v", err)
	}
}

func TestExportService_XLSX(t *testing.T) {
	svc, selection := setupTestExportService()
	ctx := context.Background()
	_, _ = selection.Toggle(ctx, testSession, lecA)
	_, _ = selection.Toggle(ctx, testSession, lecC)

	buf, filename, err := svc.ExportXLSX(ctx, testSession, "")
	if err != nil {
		t.Fatalf("ExportXLSX 应成功: %v", err)
	}
	if filename != "timetable_selected.xlsx" {
		t.Errorf("文件名错误: %s", filename)
	}

	f, err := excelize.OpenReader(buf)
	if err != nil {
		t.Fatalf("无法解析导出文件: %v", err)
	}
	defer f.Close()

	tests := []struct {
		cell string
		want string
	}{
		{"A2", "时间"},
		{"B2", "월"},
		{"F2", "금"},
		{"A3", "08:00"},
		{"B4", "자료구조 (09:00-10:15)"}, // 월 09:00
		{"D4", "자료구조 (09:00-10:15)"}, // 수 09:00
		{"C8", "컴파일러 (13:30-14:45)"}, // 화 13:00 行
		{"B5", ""},
	}
	for _, tt := range tests {
		got, _ := f.GetCellValue("课表", tt.cell)
		if got != tt.want {
			t.Errorf("%s 期望 %q，实际 %q", tt.cell, tt.want, got)
		}
	}
}

func TestExportService_ICS(t *testing.T) {
	svc, selection := setupTestExportService()
	ctx := context.Background()
	_, _ = selection.Toggle(ctx, testSession, lecD)

	data, filename, err := svc.ExportICS(ctx, testSession, dto.ViewSelected)
	if err != nil {
		t.Fatalf("ExportICS 应成功: %v", err)
	}
	if filename != "timetable_selected.ics" {
		t.Errorf("文件名错误: %s", filename)
	}

	cal, err := ics.ParseCalendar(strings.NewReader(string(data)))
	if err != nil {
		t.Fatalf("无法解析 ICS: %v", err)
	}
	events := cal.Events()
	// 월 11:00(50) + 토 10:00-11:50，周末同样导出
	if len(events) != 2 {
		t.Fatalf("期望 2 个事件，实际 %d", len(events))
	}

	kst := time.FixedZone("KST", 9*60*60)
	// 2025-03-05 为周三，锚定到 2025-03-03（周一）
	wants := []time.Time{
		time.Date(2025, 3, 3, 11, 0, 0, 0, kst),
		time.Date(2025, 3, 8, 10, 0, 0, 0, kst),
	}
	for i, evt := range events {
		start, err := evt.GetStartAt()
		if err != nil {
			t.Fatalf("读取 DTSTART 失败: %v", err)
		}
		if !start.Equal(wants[i]) {
			t.Errorf("事件 %d 开始时间期望 %v，实际 %v", i, wants[i], start)
		}
		if p := evt.GetProperty(ics.ComponentPropertyRrule); p == nil || p.Value != "FREQ=WEEKLY;COUNT=16" {
			t.Errorf("事件 %d 缺少每周重复规则", i)
		}
		if p := evt.GetProperty(ics.ComponentPropertySummary); p == nil || p.Value != "글쓰기" {
			t.Errorf("事件 %d 标题错误", i)
		}
	}
}

func TestExportService_ICS_BadSemesterStart(t *testing.T) {
	selection, _ := setupTestSelectionService()
	cfg := testConfig()
	svc := NewExportService(&cfg.Grid, &config.PlannerConfig{SemesterStart: "03/03/2025"}, selection, nopLogger())
	_, _ = selection.Toggle(context.Background(), testSession, lecA)

	if _, _, err := svc.ExportICS(context.Background(), testSession, dto.ViewSelected); !errors.Is(err, ErrExportGenerateFail) {
		t.Errorf("期望 ErrExportGenerateFail，实际: %v", err)
	}
}
