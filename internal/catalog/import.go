package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/142spp/qi4u-in-pnu-team8/internal/model"
)

// ── 课程目录文件导入 ──────────────────────────────────────────
//
// 支持学校导出的 CSV 与 XLSX 两种格式：
//   - 表头列序任意；XLSX 导出前若干行为说明文字，表头在前 headerScanRows 行内自动定位
//   - ID = 교과목번호 + "-" + 분반，重复 ID 只保留第一条有效记录
//   - 시간표 为空的行跳过（无法参与冲突检测与网格渲染）
//   - 학점 为空或非数字时记为 0
// ─────────────────────────────────────────────────────────────

const (
	headerScanRows = 10
	maxImportRows  = 20000
)

var (
	ErrCatalogBadHeader   = errors.New("课程目录表头缺少必要列（교과목번호/분반/교과목명/시간표）")
	ErrCatalogEmpty       = errors.New("课程目录文件中没有有效课程")
	ErrCatalogTooManyRows = fmt.Errorf("课程目录行数超过上限 %d 行", maxImportRows)
	ErrCatalogFormat      = errors.New("仅支持 .csv 或 .xlsx 格式的课程目录")
)

// 列键
const (
	colNumber    = "number"
	colClassNum  = "class_num"
	colName      = "name"
	colCredit    = "credit"
	colTimeRoom  = "time_room"
	colProfessor = "professor"
	colCategory  = "category"
)

var requiredColumns = []string{colNumber, colClassNum, colName, colTimeRoom}

// ImportCSV 解析 CSV 课程目录
func ImportCSV(r io.Reader) ([]model.Lecture, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("无法解析 CSV 文件: %w", err)
	}
	return parseRows(rows)
}

// ImportXLSX 解析 XLSX 课程目录（读取第一个工作表）
func ImportXLSX(r io.Reader) ([]model.Lecture, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("无法解析 Excel 文件: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("读取工作表失败: %w", err)
	}
	return parseRows(rows)
}

// Import 按文件扩展名选择解析器
func Import(filename string, r io.Reader) ([]model.Lecture, error) {
	lower := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(lower, ".csv"):
		return ImportCSV(r)
	case strings.HasSuffix(lower, ".xlsx"):
		return ImportXLSX(r)
	}
	return nil, fmt.Errorf("%w: %s", ErrCatalogFormat, filename)
}

func parseRows(rows [][]string) ([]model.Lecture, error) {
	headerAt := -1
	var colIndex map[string]int
	for i := 0; i < len(rows) && i < headerScanRows; i++ {
		idx := parseHeaderIndex(rows[i])
		if hasRequired(idx) {
			headerAt, colIndex = i, idx
			break
		}
	}
	if headerAt < 0 {
		return nil, ErrCatalogBadHeader
	}

	data := rows[headerAt+1:]
	if len(data) > maxImportRows {
		return nil, ErrCatalogTooManyRows
	}

	lectures := make([]model.Lecture, 0, len(data))
	seen := make(map[string]struct{}, len(data))
	for _, row := range data {
		cell := func(key string) string {
			i := colIndex[key]
			if i < 0 || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}

		number, classNum := cell(colNumber), cell(colClassNum)
		if number == "" {
			continue
		}
		id := model.LectureID(number, classNum)
		if _, dup := seen[id]; dup {
			continue
		}
		timeRoom := cell(colTimeRoom)
		if timeRoom == "" {
			continue
		}
		seen[id] = struct{}{}

		lectures = append(lectures, model.Lecture{
			ID:        id,
			Number:    number,
			ClassNum:  classNum,
			Name:      cell(colName),
			Credit:    parseCredit(cell(colCredit)),
			TimeRoom:  timeRoom,
			Professor: cell(colProfessor),
			Category:  cell(colCategory),
		})
	}

	if len(lectures) == 0 {
		return nil, ErrCatalogEmpty
	}
	return lectures, nil
}

// parseHeaderIndex 解析表头，返回列键 -> 列索引映射
func parseHeaderIndex(header []string) map[string]int {
	idx := map[string]int{
		colNumber:    -1,
		colClassNum:  -1,
		colName:      -1,
		colCredit:    -1,
		colTimeRoom:  -1,
		colProfessor: -1,
		colCategory:  -1,
	}
	for i, h := range header {
		lower := normalize(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		switch lower {
		case "교과목번호", "number":
			idx[colNumber] = i
		case "분반", "class_num":
			idx[colClassNum] = i
		case "교과목명", "name":
			idx[colName] = i
		case "학점", "credit":
			idx[colCredit] = i
		case "시간표", "time_room":
			idx[colTimeRoom] = i
		case "교수명", "professor":
			idx[colProfessor] = i
		case "교과목구분", "category":
			idx[colCategory] = i
		}
	}
	return idx
}

func hasRequired(idx map[string]int) bool {
	for _, k := range requiredColumns {
		if idx[k] < 0 {
			return false
		}
	}
	return true
}

func parseCredit(s string) float64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}
