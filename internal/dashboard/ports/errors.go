package ports

import (
	"encoding/json"
	"fmt"
	"strings"
)

// TransportError is returned when no response was received from the backend.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// HTTPError is returned for non-2xx backend responses.
type HTTPError struct {
	Op     string
	Status int
	Body   []byte
}

func (e *HTTPError) Error() string {
	if msg := e.Message(); msg != "" {
		return fmt.Sprintf("%s: backend returned %d: %s", e.Op, e.Status, msg)
	}
	return fmt.Sprintf("%s: backend returned %d", e.Op, e.Status)
}

// Message extracts the backend error message from a
// {"status":"error","message":...} body, falling back to the raw body text.
func (e *HTTPError) Message() string {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(e.Body, &body); err == nil && body.Message != "" {
		return body.Message
	}
	return strings.TrimSpace(string(e.Body))
}

// DecodeError is returned when a 2xx response body is not valid JSON for
// the expected shape.
type DecodeError struct {
	Op  string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: decode response: %v", e.Op, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
