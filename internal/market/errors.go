package market

import "fmt"

// NotFoundError indicates the upstream source has no data for the symbol.
// It is permanent: retrying will not help.
type NotFoundError struct {
	Symbol string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("symbol %s not found", e.Symbol)
}

// RateLimitedError indicates the upstream source rejected the request for
// sending too fast. Callers should back off before retrying.
type RateLimitedError struct {
	Source string
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited by %s", e.Source)
}

// SourceUnavailableError indicates a transient upstream failure: a network
// error, a 5xx response, or an open circuit breaker.
type SourceUnavailableError struct {
	Source string
	Err    error
}

func (e *SourceUnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s unavailable: %v", e.Source, e.Err)
	}
	return fmt.Sprintf("%s unavailable", e.Source)
}

func (e *SourceUnavailableError) Unwrap() error {
	return e.Err
}
