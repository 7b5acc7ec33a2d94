package attendance

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

// ErrInvalidToken is returned when a submitted AKASHI token is not UUID shaped.
var ErrInvalidToken = errors.New("attendance: token is not a valid uuid")

const tokenLength = 36

// ParseToken trims raw and checks that it is a hyphenated UUID.
func ParseToken(raw string) (string, error) {
	token := strings.TrimSpace(raw)
	if len(token) != tokenLength {
		return "", ErrInvalidToken
	}
	if _, err := uuid.Parse(token); err != nil {
		return "", ErrInvalidToken
	}
	return token, nil
}

// maskedPrefix and visibleFrom keep log output compatible with the previous
// bot: 19 asterisks followed by everything after the 23rd character.
const (
	maskedPrefix = "*******************"
	visibleFrom  = 23
)

// MaskToken redacts all but the tail of an AKASHI token for logs and chat.
func MaskToken(token string) string {
	if len(token) <= visibleFrom {
		return maskedPrefix
	}
	return maskedPrefix + token[visibleFrom:]
}
