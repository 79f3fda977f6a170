package service

import (
	"context"
	"errors"
	"sort"

	"github.com/142spp/qi4u-in-pnu-team8/config"
	"github.com/142spp/qi4u-in-pnu-team8/internal/dto"
	"github.com/142spp/qi4u-in-pnu-team8/internal/model"
	"github.com/142spp/qi4u-in-pnu-team8/internal/planner"
	"github.com/142spp/qi4u-in-pnu-team8/internal/timetable"
)

// ── 课表网格模块业务错误 ──

var ErrGridInvalidView = errors.New("无效的课表视图")

// GridService 课表网格业务接口
type GridService interface {
	// Grid 将会话的已选或优化课表投影为网格
	Grid(ctx context.Context, sessionID, view string) (*dto.GridResponse, error)
	// Check 检测两个原始时间字符串是否冲突
	Check(req *dto.CheckOverlapRequest) *dto.CheckOverlapResponse
}

type gridService struct {
	window     timetable.Window
	hourHeight int
	selection  SelectionService
}

// NewGridService 创建 GridService 实例
func NewGridService(cfg *config.GridConfig, selection SelectionService) GridService {
	w := timetable.Window{StartHour: cfg.StartHour, EndHour: cfg.EndHour}
	if w.Validate() != nil {
		w = timetable.DefaultWindow
	}
	hh := cfg.HourHeight
	if hh <= 0 {
		hh = timetable.DefaultHourHeight
	}
	return &gridService{window: w, hourHeight: hh, selection: selection}
}

func (s *gridService) Grid(ctx context.Context, sessionID, view string) (*dto.GridResponse, error) {
	if view == "" {
		view = dto.ViewSelected
	}
	state, _, err := s.selection.State(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	lectures, err := lecturesForView(state, view)
	if err != nil {
		return nil, err
	}

	timeRooms := make([]string, len(lectures))
	ids := make([]string, len(lectures))
	var credits float64
	for i, l := range lectures {
		timeRooms[i] = l.TimeRoom
		ids[i] = l.ID
		credits += l.Credit
	}

	projected := timetable.Project(timeRooms, s.window)
	blocks := make([]dto.GridBlock, 0, len(projected))
	for _, b := range projected {
		l := lectures[b.LectureIndex]
		top, height := b.Pixels(float64(s.hourHeight), s.window)
		blocks = append(blocks, dto.GridBlock{
			LectureIndex:   b.LectureIndex,
			LectureID:      l.ID,
			Name:           l.Name,
			Professor:      l.Professor,
			DayIndex:       b.DayIndex,
			Day:            string(timetable.DayAt(b.DayIndex)),
			Start:          timetable.FormatMinutes(b.StartMinutes),
			End:            timetable.FormatMinutes(b.EndMinutes),
			TopFraction:    b.TopFraction,
			HeightFraction: b.HeightFraction,
			TopPx:          top,
			HeightPx:       height,
		})
	}

	days := make([]string, 0, timetable.WeekdayCount)
	for i := 0; i < timetable.WeekdayCount; i++ {
		days = append(days, string(timetable.DayAt(i)))
	}

	return &dto.GridResponse{
		View:         view,
		Window:       s.window,
		HourHeight:   s.hourHeight,
		Days:         days,
		Blocks:       blocks,
		Gaps:         dayGaps(lectures),
		LectureIDs:   ids,
		TotalCredits: credits,
	}, nil
}

func (s *gridService) Check(req *dto.CheckOverlapRequest) *dto.CheckOverlapResponse {
	a, b := timetable.Parse(req.A), timetable.Parse(req.B)
	return &dto.CheckOverlapResponse{
		Overlaps:   timetable.Overlaps(a, b),
		GapMinutes: timetable.Gap(a, b),
		AIntervals: a,
		BIntervals: b,
	}
}

func lecturesForView(state *planner.State, view string) ([]model.Lecture, error) {
	switch view {
	case dto.ViewSelected:
		return state.SelectedLectures(), nil
	case dto.ViewOptimized:
		return state.Optimized(), nil
	}
	return nil, ErrGridInvalidView
}

type placedInterval struct {
	lectureID string
	iv        timetable.TimeInterval
}

// dayGaps 同一天按开始时间排序后，相邻且不重叠的两门不同课程之间的空档
func dayGaps(lectures []model.Lecture) []dto.GridGap {
	byDay := make(map[timetable.Day][]placedInterval)
	for _, l := range lectures {
		for _, iv := range timetable.Parse(l.TimeRoom) {
			byDay[iv.Day] = append(byDay[iv.Day], placedInterval{lectureID: l.ID, iv: iv})
		}
	}

	gaps := make([]dto.GridGap, 0)
	for _, day := range timetable.Days {
		list := byDay[day]
		sort.SliceStable(list, func(i, j int) bool { return list[i].iv.Start < list[j].iv.Start })
		for i := 1; i < len(list); i++ {
			prev, next := list[i-1], list[i]
			if prev.lectureID == next.lectureID || next.iv.Start < prev.iv.End {
				continue
			}
			gaps = append(gaps, dto.GridGap{
				Day:         string(day),
				FromLecture: prev.lectureID,
				ToLecture:   next.lectureID,
				Minutes:     timetable.Gap([]timetable.TimeInterval{prev.iv}, []timetable.TimeInterval{next.iv}),
			})
		}
	}
	return gaps
}
