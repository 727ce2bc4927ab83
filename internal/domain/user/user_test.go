package user

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewID(t *testing.T) {
	id := NewID()
	assert.Len(t, id, 24)

	normalized, ok := NormalizeID(id)
	assert.True(t, ok)
	assert.Equal(t, id, normalized)
	assert.NotEqual(t, id, NewID())
}

func TestNormalizeID(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		want  string
		valid bool
	}{
		{"lowercase hex", "65f1a2b3c4d5e6f708091a2b", "65f1a2b3c4d5e6f708091a2b", true},
		{"uppercase hex", "65F1A2B3C4D5E6F708091A2B", "65f1a2b3c4d5e6f708091a2b", true},
		{"surrounding spaces", " 65f1a2b3c4d5e6f708091a2b ", "65f1a2b3c4d5e6f708091a2b", true},
		{"too short", "65f1a2b3", "", false},
		{"not hex", "zzzzzzzzzzzzzzzzzzzzzzzz", "", false},
		{"numeric id", "1", "", false},
		{"empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizeID(tt.in)
			assert.Equal(t, tt.valid, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "john@example.com", NormalizeEmail("  John@Example.COM "))
}

func TestNewPagination(t *testing.T) {
	tests := []struct {
		total, page, limit int64
		wantPages          int64
	}{
		{0, 1, 10, 0},
		{1, 1, 10, 1},
		{10, 1, 10, 1},
		{11, 2, 10, 2},
		{250, 3, 100, 3},
		{5, 1, 0, 0},
	}

	for _, tt := range tests {
		p := NewPagination(tt.total, tt.page, tt.limit)
		assert.Equal(t, tt.wantPages, p.TotalPages, "total=%d limit=%d", tt.total, tt.limit)
		assert.Equal(t, tt.total, p.Total)
		assert.Equal(t, tt.page, p.Page)
		assert.Equal(t, tt.limit, p.Limit)
	}
}

func TestNormalizePage(t *testing.T) {
	page, limit := NormalizePage(0, 0)
	assert.Equal(t, DefaultPage, page)
	assert.Equal(t, DefaultLimit, limit)

	page, limit = NormalizePage(3, 500)
	assert.Equal(t, int64(3), page)
	assert.Equal(t, MaxLimit, limit)

	page, limit = NormalizePage(-2, 25)
	assert.Equal(t, int64(1), page)
	assert.Equal(t, int64(25), limit)
}

func TestOffset(t *testing.T) {
	assert.Equal(t, int64(0), Offset(1, 10))
	assert.Equal(t, int64(0), Offset(0, 10))
	assert.Equal(t, int64(20), Offset(3, 10))
}
