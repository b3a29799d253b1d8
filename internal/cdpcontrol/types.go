package cdpcontrol

import (
	"errors"
	"fmt"
)

const (
	CodeValidation        = "VALIDATION"
	CodeNavigation        = "NAVIGATION_FAILED"
	CodeNavigationTimeout = "NAVIGATION_TIMEOUT"
	CodeLocatorTimeout    = "LOCATOR_TIMEOUT"
	CodeStrictMode        = "STRICT_MODE"
	CodeAssertion         = "ASSERTION_MISMATCH"
	CodeDialogUnhandled   = "DIALOG_UNHANDLED"
	CodeEvalFailure       = "EVAL_FAILURE"
	CodeCDPUnavailable    = "CDP_UNAVAILABLE"
)

// CodedError is a typed error carrying a stable code for outcome mapping.
type CodedError struct {
	Code    string
	Message string
	Cause   error
}

func (e *CodedError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
}

func (e *CodedError) Unwrap() error { return e.Cause }

func newError(code, msg string, cause error) error {
	return &CodedError{Code: code, Message: msg, Cause: cause}
}

// CodeOf returns the code of the first CodedError in err's chain, or "".
func CodeOf(err error) string {
	var coded *CodedError
	if errors.As(err, &coded) {
		return coded.Code
	}
	return ""
}
