package crawl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePages(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []int
	}{
		{"span", "1-3", []int{1, 2, 3}},
		{"span with spaces", " 2 - 4 ", []int{2, 3, 4}},
		{"list", "1,2,5", []int{1, 2, 5}},
		{"single", "7", []int{7}},
		{"single page span", "3-3", []int{3}},
		{"empty defaults to first page", "", []int{1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePages(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParsePagesErrors(t *testing.T) {
	for _, expr := range []string{"a-b", "3-1", "1,two", "first"} {
		t.Run(expr, func(t *testing.T) {
			_, err := ParsePages(expr)
			assert.Error(t, err)
		})
	}
}
