package post

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveSlug(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Hello World", "hello_world"},
		{"hello world", "hello_world"},
		{"  Spaced   Out  ", "spaced_out"},
		{"Hello, World!", "hello_world"},
		{"Plate Tectonics 101", "plate_tectonics_101"},
		{"already_a_slug", "already_a_slug"},
		{"keep-hyphens", "keep-hyphens"},
		{"Trailing Punctuation?!", "trailing_punctuation"},
		{"", ""},
		{"!!!", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DeriveSlug(tt.title), "title=%q", tt.title)
	}
}

func TestDeriveSlugIsIdempotent(t *testing.T) {
	for _, title := range []string{"Hello World", "Plate Tectonics 101", "keep-hyphens"} {
		once := DeriveSlug(title)
		assert.Equal(t, once, DeriveSlug(once))
	}
}
