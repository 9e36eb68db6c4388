package reputation

import (
	"errors"
	"fmt"
)

// ErrNotFound marks a vendor 404: the analysis or URL report does not exist
// (yet). On the primary fetch this triggers the fallback; on the fallback it
// means the URL is unknown to the vendor entirely.
var ErrNotFound = errors.New("reputation: report not found")

// ErrMalformed marks a 2xx vendor response whose body did not carry the
// expected shape. Treated like a not-ready signal on the primary fetch.
var ErrMalformed = errors.New("reputation: unexpected response format")

// SubmissionError is a rejected URL submission. Fatal for the scan request;
// the vendor status code is surfaced to the caller.
type SubmissionError struct {
	StatusCode int
	Message    string
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("reputation: URL submission failed (status %d): %s", e.StatusCode, e.Message)
}

// HTTPError is any other vendor HTTP failure. Generic errors do not fall
// back; they terminate the scan.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("reputation: vendor request failed (status %d): %s", e.StatusCode, e.Message)
}
