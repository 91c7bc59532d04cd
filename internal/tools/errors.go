package tools

import "fmt"

// UnknownToolError indicates a dispatch for a name no tool is registered
// under.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("unknown tool %q", e.Name)
}

// ExecutionError wraps a tool handler failure with the tool's name. The
// message is safe to surface to users and to the model.
type ExecutionError struct {
	Tool string
	Err  error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("tool %s failed: %v", e.Tool, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// InvalidParamsError indicates the caller's parameters failed validation
// before the handler ran.
type InvalidParamsError struct {
	Tool   string
	Reason string
}

func (e *InvalidParamsError) Error() string {
	return fmt.Sprintf("invalid parameters for %s: %s", e.Tool, e.Reason)
}
