package support

import (
	"errors"
	"strings"
)

var (
	ErrActorRequired = errors.New("actor id is required")
	ErrForbidden     = errors.New("actor is not allowed to perform this action")
)

// RequireID trims value and fails with err when it is empty.
func RequireID(value string, err error) (string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", err
	}
	return trimmed, nil
}
