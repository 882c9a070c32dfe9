package errors

import "fmt"

// GError wraps a native GLib error record surfaced through an out
// parameter: a domain quark, a numeric code within that domain, and a
// message string. It is immutable once constructed and is only built
// from a record the bridge has already checked is non-null.
type GError struct {
	Domain  uint32
	Code    int32
	Message string
}

// NewGError constructs a GError from fields copied out of a native record
func NewGError(domain uint32, code int32, message string) *GError {
	return &GError{Domain: domain, Code: code, Message: message}
}

func (e *GError) Error() string {
	return fmt.Sprintf("[native] %d:%d: %s", e.Domain, e.Code, e.Message)
}

// Is matches any *GError so callers can test errors.Is(err, &GError{})
func (e *GError) Is(target error) bool {
	_, ok := target.(*GError)
	return ok
}
