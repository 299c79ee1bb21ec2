package services

import (
	"fmt"
	"strings"
)

// StatusError reports a non-success HTTP response from a collaborator.
type StatusError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("%s request: http %d", e.Service, e.StatusCode)
	}
	return fmt.Sprintf("%s request: http %d: %s", e.Service, e.StatusCode, body)
}
