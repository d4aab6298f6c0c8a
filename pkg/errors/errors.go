package errors

import (
	"bytes"
	"encoding/json"
	stdErrors "errors"
	"fmt"
	"net/http"
)

// ParseError represents a YAML parsing failure with optional line metadata.
type ParseError struct {
	Path    string
	Line    int
	Message string
	Err     error
}

// NewParseError constructs a ParseError.
func NewParseError(path string, line int, err error) error {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &ParseError{Path: path, Line: line, Message: message, Err: err}
}

func (e *ParseError) Error() string {
	if e == nil {
		return ""
	}

	if e.Line > 0 {
		return fmt.Sprintf("parse error: %s:%d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("parse error: %s: %s", e.Path, e.Message)
}

// Unwrap exposes the underlying error.
func (e *ParseError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ValidationError captures configuration validation issues. Line is the
// document line of the offending resource when the parser could locate it.
type ValidationError struct {
	Field   string
	Line    int
	Message string
	Err     error
}

// NewValidationError constructs a ValidationError.
func NewValidationError(field, message string, err error) error {
	return &ValidationError{Field: field, Message: message, Err: err}
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	where := e.Field
	if e.Line > 0 {
		if where != "" {
			where += " "
		}
		where += fmt.Sprintf("(line %d)", e.Line)
	}
	if where != "" {
		return fmt.Sprintf("validation error: %s: %s", where, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// Unwrap exposes the underlying error.
func (e *ValidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ExecutionError is a failure while reconciling one resource. Action is the
// decision being applied, if any. Method and Path locate the grid request
// that failed and are taken from a wrapped APIError.
type ExecutionError struct {
	ResourceID string
	Action     string
	Method     string
	Path       string
	Err        error
}

// NewExecutionError constructs an ExecutionError.
func NewExecutionError(resourceID string, err error) error {
	return NewActionError(resourceID, "", err)
}

// NewActionError constructs an ExecutionError for a failed create, modify or
// delete.
func NewActionError(resourceID, action string, err error) error {
	e := &ExecutionError{ResourceID: resourceID, Action: action, Err: err}
	var apiErr *APIError
	if stdErrors.As(err, &apiErr) {
		e.Method = apiErr.Method
		e.Path = apiErr.Path
	}
	return e
}

func (e *ExecutionError) Error() string {
	if e == nil {
		return ""
	}
	subject := "execution error"
	if e.ResourceID != "" {
		subject += " on resource " + e.ResourceID
	}
	if e.Action != "" {
		subject += " (" + e.Action + ")"
	}
	return fmt.Sprintf("%s: %v", subject, e.Err)
}

// Request returns "METHOD path" of the failed grid request, or "".
func (e *ExecutionError) Request() string {
	if e == nil || e.Path == "" {
		return ""
	}
	return e.Method + " " + e.Path
}

// Unwrap exposes the root error.
func (e *ExecutionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// APIError is a non-2xx answer from the grid management API.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Code       int
	Text       string
	Key        string
}

type apiErrorBody struct {
	Code    int `json:"code"`
	Message struct {
		Text string `json:"text"`
		Key  string `json:"key"`
	} `json:"message"`
}

// NewAPIError decodes a StorageGRID error body of the form
// {"code": 404, "message": {"text": "...", "key": "error.404"}}. Short
// non-JSON bodies are kept verbatim as the text.
func NewAPIError(method, path string, status int, body []byte) *APIError {
	apiErr := &APIError{Method: method, Path: path, StatusCode: status, Code: status}

	var decoded apiErrorBody
	if err := json.Unmarshal(body, &decoded); err == nil {
		if decoded.Code != 0 {
			apiErr.Code = decoded.Code
		}
		apiErr.Text = decoded.Message.Text
		apiErr.Key = decoded.Message.Key
	} else if text := bytes.TrimSpace(body); len(text) > 0 && len(text) < 512 {
		apiErr.Text = string(text)
	}
	return apiErr
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Text
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if e.Key != "" {
		return fmt.Sprintf("%s %s: %d %s (%s)", e.Method, e.Path, e.StatusCode, msg, e.Key)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, msg)
}

// StatusCode returns the HTTP status of the APIError in err's chain, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if stdErrors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// IsNotFound reports whether the grid answered 404.
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

// IsUnauthorized reports whether the grid rejected the credentials or token.
func IsUnauthorized(err error) bool {
	code := StatusCode(err)
	return code == http.StatusUnauthorized || code == http.StatusForbidden
}

// HandlerError indicates issues within handler registration or lookup.
type HandlerError struct {
	Type    string
	Message string
	Err     error
}

// NewHandlerError constructs a HandlerError for the given resource type.
func NewHandlerError(resourceType string, err error) error {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &HandlerError{Type: resourceType, Message: message, Err: err}
}

func (e *HandlerError) Error() string {
	if e == nil {
		return ""
	}
	if e.Type != "" {
		return fmt.Sprintf("handler error [%s]: %s", e.Type, e.Message)
	}
	return fmt.Sprintf("handler error: %s", e.Message)
}

// Unwrap exposes the underlying error.
func (e *HandlerError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
