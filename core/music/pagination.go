package music

import (
	"errors"
	"strconv"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100

	// MaxPage 保证 Skip 不会溢出
	MaxPage = 1_000_000
)

// Page 归一化后的分页参数
type Page struct {
	Page  int
	Limit int
}

// NewPage 归一化分页：page 限制在 [1,MaxPage]，limit 限制在 [1,100]
func NewPage(page, limit int) Page {
	if page < 1 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}
	if limit < 1 {
		limit = 1
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return Page{Page: page, Limit: limit}
}

// ParsePage 从查询字符串解析，无法解析的值按缺省处理，超出范围的值按边界处理
func ParsePage(page, limit string) Page {
	p, err := strconv.Atoi(page)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		p = 1
	}
	l, err := strconv.Atoi(limit)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		l = DefaultPageSize
	}
	return NewPage(p, l)
}

// Skip 需要跳过的记录数
func (p Page) Skip() int64 {
	return int64(p.Page-1) * int64(p.Limit)
}

// Pagination 返回给客户端的分页信息
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"totalPages"`
	HasNext    bool  `json:"hasNext"`
	HasPrev    bool  `json:"hasPrev"`
}

// Paginate 根据总数计算分页信息
func (p Page) Paginate(total int64) Pagination {
	pages := (total + int64(p.Limit) - 1) / int64(p.Limit)
	return Pagination{
		Page:       p.Page,
		Limit:      p.Limit,
		Total:      total,
		TotalPages: pages,
		HasNext:    int64(p.Page) < pages,
		HasPrev:    p.Page > 1,
	}
}
