// Package catalog 维护内存中的课程目录索引，并负责目录文件的导入。
package catalog

import (
	"strings"
	"sync"

	"golang.org/x/text/unicode/norm"

	"github.com/142spp/qi4u-in-pnu-team8/internal/model"
)

// DefaultSearchLimit 搜索默认返回条数
const DefaultSearchLimit = 100

// Catalog 只读课程目录索引，构建后不可修改，可并发读取
type Catalog struct {
	lectures []model.Lecture
	byID     map[string]int
	keys     []string // 归一化后的搜索键
}

// New 由课程列表构建索引；重复 ID 只保留第一条
func New(lectures []model.Lecture) *Catalog {
	c := &Catalog{
		lectures: make([]model.Lecture, 0, len(lectures)),
		byID:     make(map[string]int, len(lectures)),
		keys:     make([]string, 0, len(lectures)),
	}
	for _, l := range lectures {
		if _, dup := c.byID[l.ID]; dup {
			continue
		}
		c.byID[l.ID] = len(c.lectures)
		c.lectures = append(c.lectures, l)
		c.keys = append(c.keys, normalize(l.Name+"\x00"+l.Professor+"\x00"+l.Number))
	}
	return c
}

// Get 按 ID 查询课程
func (c *Catalog) Get(id string) (model.Lecture, bool) {
	i, ok := c.byID[id]
	if !ok {
		return model.Lecture{}, false
	}
	return c.lectures[i], true
}

// TimeRoom 按 ID 查询原始时间字符串
func (c *Catalog) TimeRoom(id string) (string, bool) {
	l, ok := c.Get(id)
	return l.TimeRoom, ok
}

// All 全部课程（目录顺序）
func (c *Catalog) All() []model.Lecture {
	return append([]model.Lecture(nil), c.lectures...)
}

// Len 课程数
func (c *Catalog) Len() int { return len(c.lectures) }

// Match 返回课程名、教授名或课程号包含 term 的全部课程；空 term 匹配全部
func (c *Catalog) Match(term string) []model.Lecture {
	needle := normalize(strings.TrimSpace(term))
	if needle == "" {
		return c.All()
	}
	var out []model.Lecture
	for i, key := range c.keys {
		if strings.Contains(key, needle) {
			out = append(out, c.lectures[i])
		}
	}
	return out
}

// Search 与 Match 相同，但最多返回 limit 条；limit <= 0 时使用默认值
func (c *Catalog) Search(term string, limit int) []model.Lecture {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	out := c.Match(term)
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// normalize NFC 归一化后转小写，兼容 NFD 形式输入的韩文
func normalize(s string) string {
	return strings.ToLower(norm.NFC.String(s))
}

// ── Holder ──

// Holder 持有当前生效的目录，目录重新导入时整体替换
type Holder struct {
	mu  sync.RWMutex
	cur *Catalog
}

// NewHolder 以空目录初始化
func NewHolder() *Holder {
	return &Holder{cur: New(nil)}
}

// Load 当前目录
func (h *Holder) Load() *Catalog {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.cur
}

// Replace 替换当前目录
func (h *Holder) Replace(c *Catalog) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cur = c
}
