package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/142spp/qi4u-in-pnu-team8/config"
	"github.com/142spp/qi4u-in-pnu-team8/internal/catalog"
	"github.com/142spp/qi4u-in-pnu-team8/internal/timetable"
	applogger "github.com/142spp/qi4u-in-pnu-team8/pkg/logger"
	"github.com/142spp/qi4u-in-pnu-team8/pkg/optimizer"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "planner",
		Short:        "课表解析、冲突检测与远程优化的命令行工具",
		SilenceUsage: true,
	}
	root.AddCommand(
		newParseCmd(),
		newOverlapCmd(),
		newGridCmd(),
		newSearchCmd(),
		newOptimizeCmd(),
	)
	return root
}

// ── parse ──

func newParseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse <time_room>",
		Short: "解析时间字符串并输出区间",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, iv := range timetable.Parse(args[0]) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s-%s (%d分钟)\n",
					iv.Day, timetable.FormatMinutes(iv.Start), timetable.FormatMinutes(iv.End), iv.Duration())
			}
			return nil
		},
	}
}

// ── overlap ──

func newOverlapCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "overlap <time_room_a> <time_room_b>",
		Short: "判断两个时间字符串是否冲突",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, b := timetable.Parse(args[0]), timetable.Parse(args[1])
			fmt.Fprintln(cmd.OutOrStdout(), timetable.Overlaps(a, b))
			if gap := timetable.Gap(a, b); gap > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "gap=%d\n", gap)
			}
			return nil
		},
	}
}

// ── grid ──

func newGridCmd() *cobra.Command {
	var (
		startHour  int
		endHour    int
		hourHeight float64
	)
	cmd := &cobra.Command{
		Use:   "grid <time_room>...",
		Short: "将多门课程投影为网格渲染块",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := timetable.Window{StartHour: startHour, EndHour: endHour}
			if err := w.Validate(); err != nil {
				return err
			}
			for _, b := range timetable.Project(args, w) {
				top, height := b.Pixels(hourHeight, w)
				fmt.Fprintf(cmd.OutOrStdout(), "#%d %s %s-%s top=%.1f height=%.1f\n",
					b.LectureIndex, timetable.DayAt(b.DayIndex),
					timetable.FormatMinutes(b.StartMinutes), timetable.FormatMinutes(b.EndMinutes),
					top, height)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&startHour, "start-hour", timetable.DefaultWindow.StartHour, "可视窗口起点（整点）")
	cmd.Flags().IntVar(&endHour, "end-hour", timetable.DefaultWindow.EndHour, "可视窗口终点（整点）")
	cmd.Flags().Float64Var(&hourHeight, "hour-height", timetable.DefaultHourHeight, "每小时像素高度")
	return cmd
}

// ── search ──

func newSearchCmd() *cobra.Command {
	var (
		file  string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "search [keyword]",
		Short: "在本地目录文件（CSV/XLSX）中检索课程",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("打开目录文件失败: %w", err)
			}
			defer f.Close()

			lectures, err := catalog.Import(file, f)
			if err != nil {
				return err
			}
			var term string
			if len(args) == 1 {
				term = args[0]
			}
			for _, l := range catalog.New(lectures).Search(term, limit) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%.1f\t%s\t%s\n", l.ID, l.Name, l.Credit, l.TimeRoom, l.Professor)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "课程目录文件路径")
	cmd.Flags().IntVar(&limit, "limit", catalog.DefaultSearchLimit, "最多返回条数")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

// ── optimize ──

func newOptimizeCmd() *cobra.Command {
	var (
		baseURL  string
		ids      []string
		target   float64
		interval time.Duration
		verbose  bool
	)
	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "提交优化任务并等待结果（Ctrl-C 停止轮询）",
		RunE: func(cmd *cobra.Command, args []string) error {
			level := "warn"
			if verbose {
				level = "debug"
			}
			ids = trimIDs(ids)
			logger, err := applogger.NewLogger(&config.LogConfig{Level: level, Format: "console"})
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			client := optimizer.NewClient(&config.OptimizerConfig{BaseURL: baseURL}, logger)
			taskID, err := client.Submit(ctx, &optimizer.Request{
				SelectedLectureIDs: ids,
				TargetCredits:      target,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "任务已提交: %s\n", taskID)

			task := optimizer.NewTask(taskID)
			state, err := task.Poll(ctx, client, interval, optimizer.PollHooks{
				OnChange: func(s optimizer.State, st optimizer.TaskStatus) {
					if st.Summary != "" {
						fmt.Fprintf(cmd.ErrOrStderr(), "[%s] %s\n", s, st.Summary)
						return
					}
					fmt.Fprintf(cmd.ErrOrStderr(), "[%s]\n", s)
				},
				OnError: func(err error) {
					logger.Warn("状态查询失败", zap.String("task_id", taskID), zap.Error(err))
				},
			})
			if errors.Is(err, context.Canceled) {
				fmt.Fprintln(cmd.ErrOrStderr(), "已停止轮询，远程任务不受影响")
				return nil
			}
			if err != nil {
				return err
			}

			_, last := task.Snapshot()
			if state != optimizer.StateSucceeded {
				return fmt.Errorf("优化失败: %s", last.Error)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(last.Result)
		},
	}
	cmd.Flags().StringVar(&baseURL, "base-url", "http://localhost:8001/api", "远程优化服务地址")
	cmd.Flags().StringSliceVar(&ids, "ids", nil, "已选课程 ID，逗号分隔")
	cmd.Flags().Float64Var(&target, "target", 18, "目标学分")
	cmd.Flags().DurationVar(&interval, "interval", 2*time.Second, "轮询间隔")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "输出调试日志")
	_ = cmd.MarkFlagRequired("ids")
	return cmd
}

// trimIDs 去除空白条目
func trimIDs(ids []string) []string {
	out := ids[:0]
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return out
}
