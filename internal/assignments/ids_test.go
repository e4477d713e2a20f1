package assignments

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLooksLikeUserID(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		// numeric
		{"12345678", true},
		{"1", true},
		{"  42  ", true},

		// dashed hex
		{"a1b2c3d4-e5f6", true},
		{"0d3f-9a2b", true},
		{"ab-cd", false},
		{"A1B2C3D4-E5F6", false},

		// opaque tokens
		{"6X7rM8997g3RQmvh", true},
		{"u_1234", true},
		{"abc123def", true},

		// names and emails
		{"", false},
		{"   ", false},
		{"John Doe", false},
		{"john", false},
		{"johnny", false},
		{"john_doe", false},
		{"Alice42", false},
		{"john@x.com", false},
		{"ab1", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, LooksLikeUserID(tt.input))
		})
	}
}
