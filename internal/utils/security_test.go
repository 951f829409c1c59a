package contextutils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskToken(t *testing.T) {
	tests := []struct {
		name     string
		token    string
		expected string
	}{
		{"empty", "", "[EMPTY]"},
		{"short", "abc", "***"},
		{"exactly eight", "abcdefgh", "********"},
		{"jwt-like", "eyJhbGciOiJIUzI1NiJ9.payload.sig", "eyJh" + strings.Repeat("*", 24) + ".sig"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MaskToken(tt.token))
		})
	}
}
