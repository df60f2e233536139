package decoder

import "errors"

func (e *DecodeError) Error() string {
	msg := e.Message
	if e.Path != "" {
		msg = e.Path + ": " + msg
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

// DecodeError is returned for every failure to turn an input file into
// canonical audio
type DecodeError struct {
	Path    string `json:"path"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *DecodeError) Unwrap() error {
	return e.Cause
}

// Decode error codes
const (
	ErrCodeNotFound        = "FILE_NOT_FOUND"
	ErrCodeInvalidFormat   = "INVALID_FORMAT"
	ErrCodeCorrupt         = "CORRUPT_INPUT"
	ErrCodeUnsupported     = "UNSUPPORTED_CODEC"
	ErrCodeToolUnavailable = "TOOL_UNAVAILABLE"
	ErrCodeTimeout         = "TIMEOUT"
	ErrCodeCancelled       = "CANCELLED"
	ErrCodeDecoding        = "DECODING_FAILED"
	ErrCodeEmpty           = "EMPTY_AUDIO"
)

// NewDecodeError creates a new decode error
func NewDecodeError(path, code, message string, cause error) *DecodeError {
	return &DecodeError{
		Path:    path,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// IsDecodeError reports whether err is or wraps a *DecodeError
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}

// ErrorCode returns the code of the first *DecodeError in err's chain, or ""
func ErrorCode(err error) string {
	var de *DecodeError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}
