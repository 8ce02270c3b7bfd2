package rand

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stitchkit/stitch.go/pkg/constants"
)

func TestNewRequestID(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		id := NewRequestID(constants.RequestIDLength)
		assert.Len(t, id, constants.RequestIDLength)
		for _, c := range id {
			assert.True(t, strings.ContainsRune(charset, c), "unexpected rune %q", c)
		}
		seen[id] = struct{}{}
	}
	assert.Len(t, seen, 1000)
}

func BenchmarkNewRequestID(b *testing.B) {
	for i := 0; i < b.N; i++ {
		NewRequestID(constants.RequestIDLength)
	}
}
