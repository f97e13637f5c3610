package completion

import "fmt"

// StatusError is a fatal non-success response from the completion
// endpoint that is neither rate limiting nor a recognized content-policy
// rejection.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("completion endpoint returned status %d: %s", e.StatusCode, e.Body)
}

// ExhaustedError is returned when every retry attempt was rate limited.
type ExhaustedError struct {
	Attempts int
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("rate limit retry exhausted after %d attempts", e.Attempts)
}
