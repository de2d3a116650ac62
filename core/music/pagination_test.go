package music

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPageClamps(t *testing.T) {
	assert.Equal(t, Page{Page: 1, Limit: 100}, NewPage(0, 500))
	assert.Equal(t, Page{Page: 1, Limit: 1}, NewPage(-3, -1))
	assert.Equal(t, Page{Page: 4, Limit: 25}, NewPage(4, 25))
}

func TestHugePageDoesNotWrapSkip(t *testing.T) {
	p := ParsePage("92233720368547758", "100")
	assert.Equal(t, MaxPage, p.Page)
	assert.Equal(t, int64(MaxPage-1)*100, p.Skip())
	assert.Positive(t, p.Skip())

	// 超出 int 范围
	assert.Equal(t, MaxPage, ParsePage("99999999999999999999999", "10").Page)
	assert.Equal(t, 1, ParsePage("-99999999999999999999999", "10").Page)

	got := p.Paginate(25)
	assert.False(t, got.HasNext)
	assert.True(t, got.HasPrev)
}

func TestParsePageDefaults(t *testing.T) {
	assert.Equal(t, Page{Page: 1, Limit: DefaultPageSize}, ParsePage("", ""))
	assert.Equal(t, Page{Page: 1, Limit: DefaultPageSize}, ParsePage("abc", "x"))
	assert.Equal(t, Page{Page: 2, Limit: 1}, ParsePage("2", "0"))
}

func TestPaginateLastPage(t *testing.T) {
	p := NewPage(3, 10)
	assert.Equal(t, int64(20), p.Skip())

	got := p.Paginate(25)
	assert.Equal(t, Pagination{Page: 3, Limit: 10, Total: 25, TotalPages: 3, HasNext: false, HasPrev: true}, got)
}

func TestPaginateEmpty(t *testing.T) {
	got := NewPage(1, 10).Paginate(0)
	assert.Equal(t, int64(0), got.TotalPages)
	assert.False(t, got.HasNext)
	assert.False(t, got.HasPrev)
}
