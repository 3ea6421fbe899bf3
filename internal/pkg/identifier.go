package pkg

import (
	"crypto/rand"
	"fmt"
	"time"
)

// GenerateRoomID - generates a unique identifier for a room by combining a
// nanosecond timestamp with 128 random bits, so collisions are negligible.
func GenerateRoomID() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}

	return fmt.Sprintf("%x%x", time.Now().UnixNano(), b), nil
}
