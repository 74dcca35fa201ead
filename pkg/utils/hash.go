package utils

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// ContentHash returns a stable hex digest over the given parts. Parts are
// joined with a unit separator so that ("ab","c") and ("a","bc") never
// collide.
func ContentHash(parts ...string) string {
	h := xxhash.New()

	for i, part := range parts {
		if i > 0 {
			_, _ = h.Write([]byte{0x1f})
		}

		_, _ = h.WriteString(part)
	}

	return strconv.FormatUint(h.Sum64(), 16)
}
