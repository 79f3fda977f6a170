package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/142spp/qi4u-in-pnu-team8/internal/api/middleware"
	"github.com/142spp/qi4u-in-pnu-team8/internal/dto"
	"github.com/142spp/qi4u-in-pnu-team8/internal/planner"
	"github.com/142spp/qi4u-in-pnu-team8/internal/service"
	"github.com/142spp/qi4u-in-pnu-team8/pkg/optimizer"
	"github.com/142spp/qi4u-in-pnu-team8/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ═══════════════════════════════════════════════════════════
// Mock Services
// ═══════════════════════════════════════════════════════════

// ── Mock LectureService ──

type mockLectureService struct {
	searchResult []dto.LectureResponse
	searchTotal  int64
	searchErr    error
	getResult    *dto.LectureResponse
	getErr       error
	importResult *dto.ImportCatalogResponse
	importErr    error
	importedName string
	importedBody string
}

func (m *mockLectureService) Bootstrap(_ context.Context, _ string, _ bool) (int, error) {
	return 0, nil
}
func (m *mockLectureService) Reload(_ context.Context) (int, error) { return 0, nil }
func (m *mockLectureService) Import(_ context.Context, filename string, r io.Reader) (*dto.ImportCatalogResponse, error) {
	b, _ := io.ReadAll(r)
	m.importedName, m.importedBody = filename, string(b)
	return m.importResult, m.importErr
}
func (m *mockLectureService) Search(_ context.Context, _ *dto.LectureSearchQuery) ([]dto.LectureResponse, int64, error) {
	return m.searchResult, m.searchTotal, m.searchErr
}
func (m *mockLectureService) Get(_ context.Context, _ string) (*dto.LectureResponse, error) {
	return m.getResult, m.getErr
}

// ── Mock SelectionService ──

type mockSelectionService struct {
	sessionID    string
	getResult    *dto.SelectionResponse
	getErr       error
	toggleResult *dto.ToggleResponse
	toggleErr    error
	clearErr     error
	creditsErr   error
	credits      float64
	altErr       error
	rank         int
}

func (m *mockSelectionService) Get(_ context.Context, sessionID string) (*dto.SelectionResponse, error) {
	m.sessionID = sessionID
	return m.getResult, m.getErr
}
func (m *mockSelectionService) Toggle(_ context.Context, sessionID, _ string) (*dto.ToggleResponse, error) {
	m.sessionID = sessionID
	return m.toggleResult, m.toggleErr
}
func (m *mockSelectionService) Clear(_ context.Context, sessionID string) (*dto.SelectionResponse, error) {
	m.sessionID = sessionID
	return &dto.SelectionResponse{SessionID: sessionID}, m.clearErr
}
func (m *mockSelectionService) SetTargetCredits(_ context.Context, _ string, credits float64) (*dto.SelectionResponse, error) {
	m.credits = credits
	return &dto.SelectionResponse{TargetCredits: credits}, m.creditsErr
}
func (m *mockSelectionService) ChooseAlternative(_ context.Context, _ string, rank int) (*dto.SelectionResponse, error) {
	m.rank = rank
	return &dto.SelectionResponse{}, m.altErr
}
func (m *mockSelectionService) State(_ context.Context, _ string) (*planner.State, int, error) {
	return nil, 0, errors.New("not used")
}
func (m *mockSelectionService) ApplyResult(_ context.Context, _ string, _ []string, _ optimizer.TaskStatus) (bool, error) {
	return false, nil
}

// ── Mock GridService ──

type mockGridService struct {
	gridResult *dto.GridResponse
	gridErr    error
	view       string
}

func (m *mockGridService) Grid(_ context.Context, _ string, view string) (*dto.GridResponse, error) {
	m.view = view
	return m.gridResult, m.gridErr
}
func (m *mockGridService) Check(req *dto.CheckOverlapRequest) *dto.CheckOverlapResponse {
	return &dto.CheckOverlapResponse{Overlaps: req.A == req.B}
}

// ── Mock OptimizationService ──

type mockOptimizationService struct {
	submitResult *dto.TaskResponse
	submitErr    error
	submitted    *dto.OptimizeRequest
	getResult    *dto.TaskResponse
	getErr       error
	cancelResult *dto.TaskResponse
	cancelErr    error
}

func (m *mockOptimizationService) Submit(_ context.Context, _ string, req *dto.OptimizeRequest) (*dto.TaskResponse, error) {
	m.submitted = req
	return m.submitResult, m.submitErr
}
func (m *mockOptimizationService) Get(_ context.Context, _, _ string) (*dto.TaskResponse, error) {
	return m.getResult, m.getErr
}
func (m *mockOptimizationService) Cancel(_ context.Context, _, _ string) (*dto.TaskResponse, error) {
	return m.cancelResult, m.cancelErr
}
func (m *mockOptimizationService) Shutdown(_ context.Context) error { return nil }

// ── Mock ExportService ──

type mockExportService struct {
	xlsxErr error
	icsErr  error
}

func (m *mockExportService) ExportXLSX(_ context.Context, _, _ string) (*bytes.Buffer, string, error) {
	if m.xlsxErr != nil {
		return nil, "", m.xlsxErr
	}
	return bytes.NewBufferString("xlsx"), "timetable_selected.xlsx", nil
}
func (m *mockExportService) ExportICS(_ context.Context, _, _ string) ([]byte, string, error) {
	if m.icsErr != nil {
		return nil, "", m.icsErr
	}
	return []byte("BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n"), "timetable_selected.ics", nil
}

// ═══════════════════════════════════════════════════════════
// Test Helpers
// ═══════════════════════════════════════════════════════════

const testSessionID = "3f0c4d0e-8f6a-4d6e-9a51-2f1f1f7d9a10"

// newRouter 挂载 Session 中间件的测试路由
func newRouter() *gin.Engine {
	r := gin.New()
	r.Use(middleware.Session())
	return r
}

func jsonBody(v interface{}) io.Reader {
	b, _ := json.Marshal(v)
	return bytes.NewReader(b)
}

func parseResponse(w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	json.Unmarshal(w.Body.Bytes(), &resp)
	return resp
}

func serve(r *gin.Engine, method, path string, body io.Reader) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(middleware.SessionIDHeader, testSessionID)
	r.ServeHTTP(w, req)
	return w
}

// ═══════════════════════════════════════════════════════════
// LectureHandler Tests
// ═══════════════════════════════════════════════════════════

func TestLectureHandler_Search_Success(t *testing.T) {
	mock := &mockLectureService{
		searchResult: []dto.LectureResponse{{ID: "CB1500-001", Name: "자료구조"}},
		searchTotal:  120,
	}
	h := NewLectureHandler(mock)
	r := newRouter()
	r.GET("/lectures", h.SearchLectures)

	w := serve(r, "GET", "/lectures?q=%EC%9E%90%EB%A3%8C&page=2", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var body struct {
		Code int               `json:"code"`
		Data response.PageData `json:"data"`
	}
	json.Unmarshal(w.Body.Bytes(), &body)
	if body.Data.Pagination.Page != 2 || body.Data.Pagination.PageSize != defaultLecturePageSize || body.Data.Pagination.Total != 120 {
		t.Errorf("unexpected pagination: %+v", body.Data.Pagination)
	}
	if body.Data.Pagination.TotalPages != 3 {
		t.Errorf("expected 3 pages, got %d", body.Data.Pagination.TotalPages)
	}
}

func TestLectureHandler_Search_NotLoaded(t *testing.T) {
	h := NewLectureHandler(&mockLectureService{searchErr: service.ErrCatalogNotLoaded})
	r := newRouter()
	r.GET("/lectures", h.SearchLectures)

	w := serve(r, "GET", "/lectures", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 20001 {
		t.Errorf("expected code 20001, got %d", resp.Code)
	}
}

func TestLectureHandler_Get_NotFound(t *testing.T) {
	h := NewLectureHandler(&mockLectureService{getErr: service.ErrLectureNotFound})
	r := newRouter()
	r.GET("/lectures/:id", h.GetLecture)

	w := serve(r, "GET", "/lectures/XX-000", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestLectureHandler_Import(t *testing.T) {
	mock := &mockLectureService{importResult: &dto.ImportCatalogResponse{ImportedCount: 1, Filename: "lectures.csv"}}
	h := NewLectureHandler(mock)
	r := newRouter()
	r.POST("/lectures/import", h.ImportCatalog)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("file", "lectures.csv")
	fw.Write([]byte("교과목번호,분반,교과목명,시간표\nCB1500,001,자료구조,월 09:00(75)\n"))
	mw.Close()

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/lectures/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	if mock.importedName != "lectures.csv" || !strings.Contains(mock.importedBody, "CB1500") {
		t.Errorf("file not forwarded: %s %q", mock.importedName, mock.importedBody)
	}
}

func TestLectureHandler_Import_MissingFile(t *testing.T) {
	h := NewLectureHandler(&mockLectureService{})
	r := newRouter()
	r.POST("/lectures/import", h.ImportCatalog)

	w := serve(r, "POST", "/lectures/import", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 20000 {
		t.Errorf("expected code 20000, got %d", resp.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// SelectionHandler Tests
// ═══════════════════════════════════════════════════════════

func TestSelectionHandler_Get_UsesSession(t *testing.T) {
	mock := &mockSelectionService{getResult: &dto.SelectionResponse{SessionID: testSessionID}}
	h := NewSelectionHandler(mock)
	r := newRouter()
	r.GET("/selection", h.GetSelection)

	w := serve(r, "GET", "/selection", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if mock.sessionID != testSessionID {
		t.Errorf("expected session %s, got %s", testSessionID, mock.sessionID)
	}
	if got := w.Header().Get(middleware.SessionIDHeader); got != testSessionID {
		t.Errorf("expected session header echoed, got %q", got)
	}
}

func TestSelectionHandler_Get_MissingSession(t *testing.T) {
	h := NewSelectionHandler(&mockSelectionService{})
	r := gin.New() // 未挂载 Session 中间件
	r.GET("/selection", h.GetSelection)

	w := serve(r, "GET", "/selection", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 10003 {
		t.Errorf("expected code 10003, got %d", resp.Code)
	}
}

func TestSelectionHandler_Toggle_Conflict(t *testing.T) {
	mock := &mockSelectionService{toggleErr: &service.ConflictError{LectureID: "B", ConflictingID: "A"}}
	h := NewSelectionHandler(mock)
	r := newRouter()
	r.POST("/selection/toggle", h.Toggle)

	w := serve(r, "POST", "/selection/toggle", jsonBody(dto.ToggleRequest{LectureID: "B"}))
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}

	var body struct {
		Code int                  `json:"code"`
		Data dto.ConflictResponse `json:"data"`
	}
	json.Unmarshal(w.Body.Bytes(), &body)
	if body.Code != 30001 || body.Data.ConflictingLectureID != "A" {
		t.Errorf("unexpected conflict body: %+v", body)
	}
}

func TestSelectionHandler_Toggle_BadJSON(t *testing.T) {
	h := NewSelectionHandler(&mockSelectionService{})
	r := newRouter()
	r.POST("/selection/toggle", h.Toggle)

	w := serve(r, "POST", "/selection/toggle", strings.NewReader("bad"))
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestSelectionHandler_SetTargetCredits(t *testing.T) {
	mock := &mockSelectionService{}
	h := NewSelectionHandler(mock)
	r := newRouter()
	r.PUT("/selection/target-credits", h.SetTargetCredits)

	w := serve(r, "PUT", "/selection/target-credits", jsonBody(dto.TargetCreditsRequest{TargetCredits: 21}))
	if w.Code != http.StatusOK || mock.credits != 21 {
		t.Errorf("expected 200 with credits 21, got %d / %v", w.Code, mock.credits)
	}

	w = serve(r, "PUT", "/selection/target-credits", jsonBody(map[string]float64{"target_credits": 99}))
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for out-of-range credits, got %d", w.Code)
	}
}

func TestSelectionHandler_ChooseAlternative(t *testing.T) {
	mock := &mockSelectionService{}
	h := NewSelectionHandler(mock)
	r := newRouter()
	r.PUT("/selection/alternative", h.ChooseAlternative)

	w := serve(r, "PUT", "/selection/alternative", jsonBody(map[string]int{"rank": 0}))
	if w.Code != http.StatusOK || mock.rank != 0 {
		t.Errorf("rank 0 should be accepted, got %d", w.Code)
	}

	mock.altErr = planner.ErrNoResult
	w = serve(r, "PUT", "/selection/alternative", jsonBody(map[string]int{"rank": 1}))
	if w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// GridHandler Tests
// ═══════════════════════════════════════════════════════════

func TestGridHandler_GetGrid(t *testing.T) {
	mock := &mockGridService{gridResult: &dto.GridResponse{View: dto.ViewOptimized}}
	h := NewGridHandler(mock)
	r := newRouter()
	r.GET("/selection/grid", h.GetGrid)

	w := serve(r, "GET", "/selection/grid?view=optimized", nil)
	if w.Code != http.StatusOK || mock.view != dto.ViewOptimized {
		t.Errorf("expected 200 with optimized view, got %d / %s", w.Code, mock.view)
	}

	w = serve(r, "GET", "/selection/grid?view=weekly", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for invalid view, got %d", w.Code)
	}
}

func TestGridHandler_CheckOverlap(t *testing.T) {
	h := NewGridHandler(&mockGridService{})
	r := newRouter()
	r.POST("/timetable/check", h.CheckOverlap)

	w := serve(r, "POST", "/timetable/check", jsonBody(dto.CheckOverlapRequest{A: "월 09:00(75)", B: "월 09:00(75)"}))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	w = serve(r, "POST", "/timetable/check", jsonBody(map[string]string{"a": "월 09:00(75)"}))
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 when b missing, got %d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// OptimizationHandler Tests
// ═══════════════════════════════════════════════════════════

func TestOptimizationHandler_Submit_EmptyBody(t *testing.T) {
	mock := &mockOptimizationService{submitResult: &dto.TaskResponse{TaskID: "task-1", State: "SUBMITTED"}}
	h := NewOptimizationHandler(mock)
	r := newRouter()
	r.POST("/optimizations", h.Submit)

	w := serve(r, "POST", "/optimizations", nil)
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", w.Code)
	}
	if mock.submitted == nil || mock.submitted.TargetCredits != nil {
		t.Errorf("expected empty request forwarded, got %+v", mock.submitted)
	}
}

func TestOptimizationHandler_Submit_Weights(t *testing.T) {
	mock := &mockOptimizationService{submitResult: &dto.TaskResponse{TaskID: "task-1"}}
	h := NewOptimizationHandler(mock)
	r := newRouter()
	r.POST("/optimizations", h.Submit)

	w := serve(r, "POST", "/optimizations", strings.NewReader(`{"target_credits":15,"r_free_day":3.5,"max_candidates":20}`))
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", w.Code)
	}
	req := mock.submitted
	if req.TargetCredits == nil || *req.TargetCredits != 15 || req.FreeDayReward == nil || *req.FreeDayReward != 3.5 || *req.MaxCandidates != 20 {
		t.Errorf("weights not decoded: %+v", req)
	}
}

func TestOptimizationHandler_Errors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantHTTP int
		wantCode int
	}{
		{"空选课", service.ErrSelectionEmpty, http.StatusBadRequest, 40003},
		{"限流", service.ErrOptimizeRateLimited, http.StatusTooManyRequests, 40002},
		{"远端不可用", service.ErrOptimizerUnavailable, http.StatusBadGateway, 40004},
		{"参数无效", service.ErrOptimizeInvalid, http.StatusBadRequest, 40001},
		{"未知错误", errors.New("boom"), http.StatusInternalServerError, 50000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewOptimizationHandler(&mockOptimizationService{submitErr: tt.err})
			r := newRouter()
			r.POST("/optimizations", h.Submit)

			w := serve(r, "POST", "/optimizations", nil)
			if w.Code != tt.wantHTTP {
				t.Errorf("expected %d, got %d", tt.wantHTTP, w.Code)
			}
			if resp := parseResponse(w); resp.Code != tt.wantCode {
				t.Errorf("expected code %d, got %d", tt.wantCode, resp.Code)
			}
		})
	}
}

func TestOptimizationHandler_GetAndCancel(t *testing.T) {
	mock := &mockOptimizationService{getErr: service.ErrTaskNotFound, cancelErr: service.ErrTaskAlreadyFinished}
	h := NewOptimizationHandler(mock)
	r := newRouter()
	r.GET("/optimizations/:task_id", h.GetTask)
	r.DELETE("/optimizations/:task_id", h.CancelTask)

	if w := serve(r, "GET", "/optimizations/task-1", nil); w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
	if w := serve(r, "DELETE", "/optimizations/task-1", nil); w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// ExportHandler Tests
// ═══════════════════════════════════════════════════════════

func TestExportHandler_XLSX(t *testing.T) {
	h := NewExportHandler(&mockExportService{})
	r := newRouter()
	r.GET("/selection/export.xlsx", h.ExportXLSX)

	w := serve(r, "GET", "/selection/export.xlsx", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != xlsxContentType {
		t.Errorf("unexpected content type %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "timetable_selected.xlsx") {
		t.Errorf("unexpected disposition %q", cd)
	}
}

func TestExportHandler_ICS_Empty(t *testing.T) {
	h := NewExportHandler(&mockExportService{icsErr: service.ErrExportEmpty})
	r := newRouter()
	r.GET("/selection/export.ics", h.ExportICS)

	w := serve(r, "GET", "/selection/export.ics", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 51001 {
		t.Errorf("expected code 51001, got %d", resp.Code)
	}
}
