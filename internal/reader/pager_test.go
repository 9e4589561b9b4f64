package reader

import (
	"fmt"
	"testing"

	"github.com/brogergvhs/tachi/internal/book"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func imagePages(n int) []book.Page {
	pages := make([]book.Page, n)
	for i := range pages {
		pages[i] = book.Page{Kind: book.PageImage, Locator: fmt.Sprintf("https://example.com/%d.jpg", i+1)}
	}
	return pages
}

func TestPager_ContentAt(t *testing.T) {
	p := NewPager(imagePages(3), book.ModeSingle)

	for i := 0; i < 3; i++ {
		assert.Equal(t, fmt.Sprintf("https://example.com/%d.jpg", i+1), p.ContentAt(i).Locator)
	}

	for _, i := range []int{-5, -1, 3, 100} {
		assert.True(t, p.ContentAt(i).IsBlank(), "index %d", i)
	}
}

func TestPager_AdvanceDualRejectsAtBoundary(t *testing.T) {
	p := NewPager(imagePages(5), book.ModeDual)

	require.True(t, p.Advance(2))
	assert.Equal(t, 2, p.Index())

	require.True(t, p.Advance(2))
	assert.Equal(t, 4, p.Index())

	assert.False(t, p.Advance(2))
	assert.Equal(t, 4, p.Index())

	visible := p.Visible()
	require.Len(t, visible, 2)
	assert.Equal(t, "https://example.com/5.jpg", visible[0].Locator)
	assert.True(t, visible[1].IsBlank())
}

func TestPager_AdvanceSingle(t *testing.T) {
	p := NewPager(imagePages(2), book.ModeSingle)

	assert.True(t, p.Advance(1))
	assert.False(t, p.Advance(1))
	assert.Equal(t, 1, p.Index())
	assert.False(t, p.Advance(0))
}

func TestPager_RetreatClamps(t *testing.T) {
	p := NewPager(imagePages(5), book.ModeSingle)
	require.True(t, p.Advance(1))

	assert.True(t, p.Retreat(2))
	assert.Equal(t, 0, p.Index())

	assert.False(t, p.Retreat(2))
	assert.Equal(t, 0, p.Index())
}

func TestPager_SetModeRoundsDown(t *testing.T) {
	p := NewPager(imagePages(6), book.ModeSingle)
	for i := 0; i < 3; i++ {
		require.True(t, p.Advance(1))
	}
	require.Equal(t, 3, p.Index())

	p.SetMode(book.ModeDual)
	assert.Equal(t, book.ModeDual, p.Mode())
	assert.Equal(t, 2, p.Index())
	assert.Equal(t, 6, p.Total())

	p.SetMode(book.ModeSingle)
	assert.Equal(t, 2, p.Index())
	assert.Len(t, p.Visible(), 1)
}

func TestPager_Empty(t *testing.T) {
	p := NewPager(nil, book.ModeDual)

	assert.Equal(t, 0, p.Total())
	assert.False(t, p.CanAdvance())
	assert.False(t, p.CanRetreat())
	assert.False(t, p.Advance(2))

	for _, pg := range p.Visible() {
		assert.True(t, pg.IsBlank())
	}

	assert.Equal(t, "0 of 0", p.Progress().String())
	assert.Equal(t, 0, p.Progress().Percent())
}

func TestProgress(t *testing.T) {
	p := NewPager(imagePages(4), book.ModeSingle)
	require.True(t, p.Advance(1))

	assert.Equal(t, "Page 2 of 4", p.Progress().String())
	assert.Equal(t, 50, p.Progress().Percent())
}
