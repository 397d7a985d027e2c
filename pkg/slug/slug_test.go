package slug

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerate(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"The Forest Hiker", "the-forest-hiker"},
		{"Hello   World!", "hello-world"},
		{"  Trailing  ", "trailing"},
		{"Already-Slugged", "already-slugged"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Generate(tt.name))
	}
}
