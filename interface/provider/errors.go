package provider

import "fmt"

// FetchError is a transfer failure of a single asset
type FetchError struct {
	URL        string
	StatusCode int // 0 if no response was received
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch[%s]: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch[%s]: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ErrMissingContentDisposition is returned when the response does not name the file
var ErrMissingContentDisposition = fmt.Errorf("missing content-disposition header")

// ErrExcludedFile is returned when the downloaded file is a product excluded by name (thermal, quality)
var ErrExcludedFile = fmt.Errorf("excluded file")
