// Package analysis provides pure technical-indicator computations over
// price series. All functions are deterministic and side-effect free.
package analysis

import "fmt"

// InsufficientDataError reports a price series too short for the requested
// indicator. Callers degrade the affected field rather than failing a turn.
type InsufficientDataError struct {
	Indicator string
	Needed    int
	Got       int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("%s: insufficient data: need at least %d prices, got %d",
		e.Indicator, e.Needed, e.Got)
}

func insufficientData(indicator string, needed, got int) error {
	return &InsufficientDataError{Indicator: indicator, Needed: needed, Got: got}
}
