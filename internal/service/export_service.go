package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/142spp/qi4u-in-pnu-team8/config"
	"github.com/142spp/qi4u-in-pnu-team8/internal/dto"
	"github.com/142spp/qi4u-in-pnu-team8/internal/model"
	"github.com/142spp/qi4u-in-pnu-team8/internal/timetable"
)

// ── 导出模块业务错误 ──

var (
	ErrExportEmpty        = errors.New("当前视图没有可导出的课程")
	ErrExportGenerateFail = errors.New("生成导出文件失败")
)

const (
	semesterWeeks = 16
	exportTZ      = "Asia/Seoul"
	icsProductID  = "-//lecture-planner//timetable//KO"
)

// ExportService 导出业务接口
//
// 设计说明：
//   - XLSX：行为可视窗口内的整点，列为 월–금，课程名写在开始时间所在的整点行
//   - ICS：每个时间区间一个每周重复的 VEVENT（包含周末），锚定在开学日所在周
//   - 导出以字节返回，由 Handler 层设置 HTTP 响应头后写入 Response
type ExportService interface {
	// ExportXLSX 导出网格为 Excel
	ExportXLSX(ctx context.Context, sessionID, view string) (*bytes.Buffer, string, error)
	// ExportICS 导出为 iCalendar
	ExportICS(ctx context.Context, sessionID, view string) ([]byte, string, error)
}

type exportService struct {
	window        timetable.Window
	semesterStart string
	selection     SelectionService
	logger        *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(grid *config.GridConfig, planner *config.PlannerConfig, selection SelectionService, logger *zap.Logger) ExportService {
	w := timetable.Window{StartHour: grid.StartHour, EndHour: grid.EndHour}
	if w.Validate() != nil {
		w = timetable.DefaultWindow
	}
	return &exportService{
		window:        w,
		semesterStart: planner.SemesterStart,
		selection:     selection,
		logger:        logger,
	}
}

func (s *exportService) lectures(ctx context.Context, sessionID, view string) ([]model.Lecture, string, error) {
	if view == "" {
		view = dto.ViewSelected
	}
	state, _, err := s.selection.State(ctx, sessionID)
	if err != nil {
		return nil, "", err
	}
	lectures, err := lecturesForView(state, view)
	if err != nil {
		return nil, "", err
	}
	if len(lectures) == 0 {
		return nil, "", ErrExportEmpty
	}
	return lectures, view, nil
}

// ═══════════════════════════════════════════════════════════
// ExportXLSX：导出网格为 Excel
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - A1 标题行（合并至 F 列）
//   - 第 2 行表头：时间 | 월 | 화 | 수 | 목 | 금
//   - 之后每个整点一行，同一格多门课程换行拼接
//   - 开始时间早于窗口起点或落在周末的区间不出现在网格中

func (s *exportService) ExportXLSX(ctx context.Context, sessionID, view string) (*bytes.Buffer, string, error) {
	lectures, view, err := s.lectures(ctx, sessionID, view)
	if err != nil {
		return nil, "", err
	}

	// 整点行 × 星期列 → 课程名
	hours := s.window.Hours()
	cells := make([][]string, hours)
	for i := range cells {
		cells[i] = make([]string, timetable.WeekdayCount)
	}
	for _, l := range lectures {
		for _, b := range timetable.ParseBlocks(l.TimeRoom) {
			h := b.StartMinutes/60 - s.window.StartHour
			if h < 0 || h >= hours {
				continue
			}
			text := fmt.Sprintf("%s (%s-%s)", l.Name, timetable.FormatMinutes(b.StartMinutes), timetable.FormatMinutes(b.EndMinutes))
			if cells[h][b.DayIndex] != "" {
				cells[h][b.DayIndex] += "\n"
			}
			cells[h][b.DayIndex] += text
		}
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "课表"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	// 删除默认 Sheet1
	f.DeleteSheet("Sheet1")

	// 设置列宽
	f.SetColWidth(sheetName, "A", "A", 10)
	f.SetColWidth(sheetName, "B", colName(timetable.WeekdayCount), 24)

	// 样式
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	bodyStyle, _ := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Vertical: "top", WrapText: true},
	})

	// 标题行
	lastCol := colName(timetable.WeekdayCount)
	f.SetCellValue(sheetName, "A1", fmt.Sprintf("课表（%s）", view))
	f.MergeCell(sheetName, "A1", cell(lastCol, 1))
	f.SetCellStyle(sheetName, "A1", "A1", headerStyle)

	// 表头
	row := 2
	f.SetCellValue(sheetName, cell("A", row), "时间")
	for d := 0; d < timetable.WeekdayCount; d++ {
		f.SetCellValue(sheetName, cell(colName(d+1), row), string(timetable.DayAt(d)))
	}
	f.SetCellStyle(sheetName, cell("A", row), cell(lastCol, row), headerStyle)

	// 数据行
	row = 3
	for h := 0; h < hours; h++ {
		f.SetCellValue(sheetName, cell("A", row), timetable.FormatMinutes((s.window.StartHour+h)*60))
		for d := 0; d < timetable.WeekdayCount; d++ {
			if cells[h][d] != "" {
				f.SetCellValue(sheetName, cell(colName(d+1), row), cells[h][d])
			}
		}
		row++
	}
	f.SetCellStyle(sheetName, "B3", cell(lastCol, row-1), bodyStyle)

	// 写入 buffer
	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.String("session_id", sessionID), zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	return buf, fmt.Sprintf("timetable_%s.xlsx", view), nil
}

// ═══════════════════════════════════════════════════════════
// ExportICS：导出为 iCalendar
// ═══════════════════════════════════════════════════════════
//
// 每个解析出的时间区间生成一个 VEVENT：
//   - DTSTART = 开学日所在周的周一 + 星期下标 + 开始分钟
//   - RRULE:FREQ=WEEKLY;COUNT=semesterWeeks
//   - UID = <lecture_id>-<序号>@lecture-planner，重复导出时保持稳定

func (s *exportService) ExportICS(ctx context.Context, sessionID, view string) ([]byte, string, error) {
	lectures, view, err := s.lectures(ctx, sessionID, view)
	if err != nil {
		return nil, "", err
	}

	loc, err := time.LoadLocation(exportTZ)
	if err != nil {
		loc = time.FixedZone("KST", 9*60*60)
	}
	monday, err := weekMonday(s.semesterStart, loc)
	if err != nil {
		s.logger.Error("开学日期格式错误", zap.String("semester_start", s.semesterStart), zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(icsProductID)

	stamp := time.Now()
	for _, l := range lectures {
		for i, iv := range timetable.Parse(l.TimeRoom) {
			day := monday.AddDate(0, 0, iv.Day.Index())
			start := day.Add(time.Duration(iv.Start) * time.Minute)
			end := day.Add(time.Duration(iv.End) * time.Minute)

			evt := cal.AddEvent(fmt.Sprintf("%s-%d@lecture-planner", l.ID, i))
			evt.SetDtStampTime(stamp)
			evt.SetStartAt(start)
			evt.SetEndAt(end)
			evt.SetSummary(l.Name)
			evt.SetDescription(strings.TrimSpace(fmt.Sprintf("%s %s", l.ID, l.Professor)))
			evt.SetLocation(l.TimeRoom)
			evt.AddRrule(fmt.Sprintf("FREQ=WEEKLY;COUNT=%d", semesterWeeks))
		}
	}

	return []byte(cal.Serialize()), fmt.Sprintf("timetable_%s.ics", view), nil
}

// ── 辅助函数 ──

// weekMonday 返回给定日期（YYYY-MM-DD）所在周的周一零点
func weekMonday(date string, loc *time.Location) (time.Time, error) {
	d, err := time.ParseInLocation("2006-01-02", date, loc)
	if err != nil {
		return time.Time{}, err
	}
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset), nil
}

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
