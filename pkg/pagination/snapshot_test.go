package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSnapshot_At(t *testing.T) {
	s := &Snapshot[string]{
		TotalCount: 23,
		PageSize:   10,
		pages: map[int][]string{
			0: {"a0", "a1", "a2", "a3", "a4", "a5", "a6", "a7", "a8", "a9"},
			2: {"c0", "c1", "c2"},
		},
	}

	tests := []struct {
		name     string
		position int
		want     string
		wantOK   bool
	}{
		{"first page", 3, "a3", true},
		{"uncached page", 15, "", false},
		{"short page", 22, "c2", true},
		{"negative", -1, "", false},
		{"past total", 23, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := s.At(tt.position)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSnapshot_Len(t *testing.T) {
	unknown := &Snapshot[int]{TotalCount: unknownTotal, PageSize: 10}
	assert.Equal(t, 0, unknown.Len(), "unknown total")

	known := &Snapshot[int]{TotalCount: 7, PageSize: 10}
	assert.Equal(t, 7, known.Len())
}

func TestSnapshot_CachedPages(t *testing.T) {
	s := &Snapshot[int]{
		TotalCount: 100,
		PageSize:   10,
		pages:      map[int][]int{7: {1}, 2: {1}, 4: {1}},
	}

	assert.Equal(t, []int{2, 4, 7}, s.CachedPages())
	assert.Equal(t, 1, s.PageLen(7))
	assert.Equal(t, -1, s.PageLen(3))
}
