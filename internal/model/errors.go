package model

import "fmt"

// InputError represents invalid invoice input detected before encoding
type InputError struct {
	Field   string
	Message string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid input %s: %s", e.Field, e.Message)
}

// NewInputError creates a new input error
func NewInputError(field, message string) *InputError {
	return &InputError{Field: field, Message: message}
}

// EncodingError represents XML encoding failures
type EncodingError struct {
	Field   string
	Message string
	Cause   error
}

func (e *EncodingError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("encoding failed on %s: %s (%v)", e.Field, e.Message, e.Cause)
	}
	return fmt.Sprintf("encoding failed on %s: %s", e.Field, e.Message)
}

func (e *EncodingError) Unwrap() error {
	return e.Cause
}

// NewEncodingError creates a new encoding error
func NewEncodingError(field, message string, cause error) *EncodingError {
	return &EncodingError{Field: field, Message: message, Cause: cause}
}

// ToolError represents a failure of an external tool invocation
type ToolError struct {
	Tool    string
	Message string
	Stderr  string
	Cause   error
}

func (e *ToolError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Tool, e.Message)
	if e.Cause != nil {
		msg += fmt.Sprintf(" (%v)", e.Cause)
	}
	if e.Stderr != "" {
		msg += fmt.Sprintf(": %s", e.Stderr)
	}
	return msg
}

func (e *ToolError) Unwrap() error {
	return e.Cause
}

// NewToolError creates a new tool error
func NewToolError(tool, message string, cause error) *ToolError {
	return &ToolError{Tool: tool, Message: message, Cause: cause}
}

// ComplianceError represents a failed compliance check on an artifact
type ComplianceError struct {
	Check   string
	Message string
	Cause   error
}

func (e *ComplianceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("compliance check %s failed: %s (%v)", e.Check, e.Message, e.Cause)
	}
	return fmt.Sprintf("compliance check %s failed: %s", e.Check, e.Message)
}

func (e *ComplianceError) Unwrap() error {
	return e.Cause
}

// NewComplianceError creates a new compliance error
func NewComplianceError(check, message string, cause error) *ComplianceError {
	return &ComplianceError{Check: check, Message: message, Cause: cause}
}
