package utils_test

import (
	"testing"

	"github.com/reveal-labs/reveal/pkg/utils"
	"github.com/stretchr/testify/assert"
)

func TestContentHash(t *testing.T) {
	t.Parallel()

	t.Run("deterministic", func(t *testing.T) {
		t.Parallel()

		a := utils.ContentHash("summary", "https://example.com", "warning")
		b := utils.ContentHash("summary", "https://example.com", "warning")
		assert.Equal(t, a, b)
	})

	t.Run("part order matters", func(t *testing.T) {
		t.Parallel()

		a := utils.ContentHash("one", "two")
		b := utils.ContentHash("two", "one")
		assert.NotEqual(t, a, b)
	})

	t.Run("part boundaries matter", func(t *testing.T) {
		t.Parallel()

		// "ab"+"c" must not collide with "a"+"bc".
		a := utils.ContentHash("ab", "c")
		b := utils.ContentHash("a", "bc")
		assert.NotEqual(t, a, b)
	})

	t.Run("different content differs", func(t *testing.T) {
		t.Parallel()

		a := utils.ContentHash("summary", "https://example.com", "warning")
		b := utils.ContentHash("summary", "https://example.com", "critical")
		assert.NotEqual(t, a, b)
	})
}
