package chat

import "math/rand"

// randIntn returns a pseudo-random int in [0, n), matching the spread
// original_source uses for spawn placement and avatar selection. Not
// cryptographic — nothing security-sensitive depends on it.
func randIntn(n int) int {
	if n <= 0 {
		return 0
	}
	return rand.Intn(n)
}
