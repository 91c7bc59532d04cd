package llm

import "fmt"

// ModelUnavailableError indicates the model endpoint could not produce a
// completion: a network failure, a 5xx response, or an open circuit
// breaker. Callers decide whether this is fatal for their operation.
type ModelUnavailableError struct {
	Endpoint string
	Err      error
}

func (e *ModelUnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("model endpoint %s unavailable: %v", e.Endpoint, e.Err)
	}
	return fmt.Sprintf("model endpoint %s unavailable", e.Endpoint)
}

func (e *ModelUnavailableError) Unwrap() error {
	return e.Err
}
