package paginate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMeta(t *testing.T) {
	tests := []struct {
		name                string
		page, size, total   int
		wantPage, wantPages int
		wantStart, wantEnd  int
	}{
		{"first page", 1, 10, 25, 1, 3, 0, 10},
		{"last partial page", 3, 10, 25, 3, 3, 20, 25},
		{"page past end clamps", 9, 10, 25, 3, 3, 20, 25},
		{"page below one clamps", -4, 10, 25, 1, 3, 0, 10},
		{"exact multiple", 2, 5, 10, 2, 2, 5, 10},
		{"empty list has one page", 3, 10, 0, 1, 1, 0, 0},
		{"all on one page", 2, All, 25, 1, 1, 0, 25},
		{"all with empty list", 1, All, 0, 1, 1, 0, 0},
		{"negative size means all", 1, -1, 7, 1, 1, 0, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Meta(tt.page, tt.size, tt.total)
			assert.Equal(t, tt.wantPage, p.Number)
			assert.Equal(t, tt.wantPages, p.TotalPages)
			assert.Equal(t, tt.wantStart, p.Start)
			assert.Equal(t, tt.wantEnd, p.End)
			assert.Equal(t, tt.total, p.Total)
		})
	}
}

func TestSlice(t *testing.T) {
	items := []string{"a", "b", "c", "d", "e"}

	assert.Equal(t, []string{"c", "d"}, Slice(items, Meta(2, 2, len(items))))
	assert.Equal(t, []string{"e"}, Slice(items, Meta(3, 2, len(items))))
	assert.Equal(t, items, Slice(items, Meta(1, All, len(items))))
	assert.Empty(t, Slice([]string{}, Meta(1, 10, 0)))
}
