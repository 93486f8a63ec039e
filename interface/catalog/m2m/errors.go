package m2m

import (
	"fmt"
	"net/http"
)

// TransportError is returned when a request cannot reach the service or when the
// service answers with a non-2xx status or a malformed envelope.
type TransportError struct {
	Endpoint   string
	StatusCode int // 0 if no response was received
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("m2m %s: status %d: %v", e.Endpoint, e.StatusCode, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("m2m %s: status %d: %s", e.Endpoint, e.StatusCode, e.Body)
	default:
		return fmt.Sprintf("m2m %s: %v", e.Endpoint, e.Err)
	}
}

func (e *TransportError) Unwrap() error { return e.Err }

// Temporary returns true for network failures and 408, 429 and 5xx responses
func (e *TransportError) Temporary() bool {
	if e.StatusCode == 0 {
		return e.Err != nil
	}
	return e.StatusCode == http.StatusRequestTimeout ||
		e.StatusCode == http.StatusTooManyRequests ||
		e.StatusCode >= 500
}

// ServiceError is returned when the envelope carries a non-null errorCode
type ServiceError struct {
	Endpoint string
	Code     string
	Message  string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("m2m %s: %s: %s", e.Endpoint, e.Code, e.Message)
}
