package proxmox

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// APIError is a non-2xx response from the Proxmox VE API.
type APIError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("proxmox API error: %s: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("proxmox API error: %s", e.Status)
}

// IsNotFound reports whether err is the API saying a resource does not
// exist. Unknown paths answer 404, but several guest operations answer
// 500 with a "does not exist" message instead.
func IsNotFound(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	if apiErr.StatusCode == http.StatusNotFound {
		return true
	}
	return apiErr.StatusCode == http.StatusInternalServerError &&
		strings.Contains(apiErr.Message, "does not exist")
}

// IsAPIError reports whether err originated from the API rather than
// transport or local failures.
func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}
