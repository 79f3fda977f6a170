package optimizer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/142spp/qi4u-in-pnu-team8/config"
)

var (
	ErrTaskNotFound   = errors.New("远程任务不存在")
	ErrEmptySelection = errors.New("未选择任何课程")
	ErrBadResponse    = errors.New("远程优化服务响应无效")
)

const (
	defaultRequestTimeout = 15 * time.Second
	maxResponseSize       = 8 * 1024 * 1024 // 8MB
)

// Client 远程优化服务 HTTP 客户端
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient 创建客户端
func NewClient(cfg *config.OptimizerConfig, logger *zap.Logger) *Client {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Submit 提交优化任务，返回任务 ID。
// 空选课在本地直接拒绝，不发起远程调用。
func (c *Client) Submit(ctx context.Context, req *Request) (string, error) {
	if len(req.SelectedLectureIDs) == 0 {
		return "", ErrEmptySelection
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("序列化优化请求失败: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/optimize", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("构建优化请求失败: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	var out submitResponse
	if err := c.do(httpReq, &out); err != nil {
		return "", err
	}
	if out.TaskID == "" {
		return "", fmt.Errorf("%w: 缺少 task_id", ErrBadResponse)
	}

	c.logger.Info("优化任务已提交",
		zap.String("task_id", out.TaskID),
		zap.Int("lectures", len(req.SelectedLectureIDs)),
	)
	return out.TaskID, nil
}

// Status 查询任务状态
func (c *Client) Status(ctx context.Context, taskID string) (*TaskStatus, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/optimize/"+url.PathEscape(taskID), nil)
	if err != nil {
		return nil, fmt.Errorf("构建状态查询失败: %w", err)
	}

	var out TaskStatus
	if err := c.do(httpReq, &out); err != nil {
		return nil, err
	}
	switch out.Status {
	case StatusPending, StatusProcessing, StatusSuccess, StatusFailure:
	default:
		return nil, fmt.Errorf("%w: 未知状态 %q", ErrBadResponse, out.Status)
	}
	if out.Status == StatusSuccess && out.Result == nil {
		return nil, fmt.Errorf("%w: 成功状态缺少 result", ErrBadResponse)
	}
	out.TaskID = taskID
	return &out, nil
}

// do 发送请求并解码 JSON 响应
func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("请求远程优化服务失败: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("读取远程响应失败: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return ErrTaskNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e errorResponse
		_ = json.Unmarshal(body, &e)
		if e.Detail != "" {
			return fmt.Errorf("远程优化服务返回 HTTP %d: %s", resp.StatusCode, e.Detail)
		}
		return fmt.Errorf("远程优化服务返回 HTTP %d", resp.StatusCode)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	return nil
}
