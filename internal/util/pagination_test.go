package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseIntDefault(t *testing.T) {
	assert.Equal(t, 7, ParseIntDefault("", 7))
	assert.Equal(t, 7, ParseIntDefault("abc", 7))
	assert.Equal(t, 3, ParseIntDefault("3", 7))
	assert.Equal(t, -1, ParseIntDefault("-1", 7))
}

func TestCalculate(t *testing.T) {
	cases := []struct {
		page, size          int
		wantOffset, wantLim int
	}{
		{1, 10, 0, 10},
		{3, 10, 20, 10},
		{0, 10, 0, 10},
		{-4, 5, 0, 5},
		{2, 0, 20, DefaultPageSize},
		{2, 101, 20, DefaultPageSize},
		{2, 100, 100, 100},
	}
	for _, tc := range cases {
		off, lim := Calculate(tc.page, tc.size)
		assert.Equal(t, tc.wantOffset, off, "page=%d size=%d", tc.page, tc.size)
		assert.Equal(t, tc.wantLim, lim, "page=%d size=%d", tc.page, tc.size)
	}
}

func TestNewMeta(t *testing.T) {
	m := NewMeta(2, 10, 10, 25)
	assert.Equal(t, Meta{Page: 2, Size: 10, Total: 25, TotalPages: 3, HasPrev: true, HasNext: true}, m)

	m = NewMeta(3, 20, 10, 25)
	assert.False(t, m.HasNext)

	m = NewMeta(1, 0, 20, 0)
	assert.EqualValues(t, 0, m.TotalPages)
	assert.False(t, m.HasPrev)
	assert.False(t, m.HasNext)
}
