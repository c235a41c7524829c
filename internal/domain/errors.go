package domain

import (
	"errors"
	"fmt"
)

// Error types for domain-specific errors
type ErrorType string

const (
	ErrorTypeValidation        ErrorType = "validation"
	ErrorTypeUnsupportedFormat ErrorType = "unsupported_format"
	ErrorTypeDocumentRead      ErrorType = "document_read"
	ErrorTypeResponseParse     ErrorType = "response_parse"
	ErrorTypeEmptyTranscript   ErrorType = "empty_transcript"
	ErrorTypeAudioExtraction   ErrorType = "audio_extraction"
	ErrorTypeExtraction        ErrorType = "extraction"
	ErrorTypeGateway           ErrorType = "gateway"
	ErrorTypeNotFound          ErrorType = "not_found"
	ErrorTypeConfig            ErrorType = "config"
	ErrorTypeIO                ErrorType = "io"
)

// DomainError represents a domain-specific error with context
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewError creates a new domain error
func NewError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
	}
}

// TypeOf returns the type of the outermost DomainError in err's chain, or ""
// when there is none.
func TypeOf(err error) ErrorType {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Type
	}
	return ""
}

// IsType reports whether err's chain contains a DomainError of the given type.
func IsType(err error, errType ErrorType) bool {
	for err != nil {
		var de *DomainError
		if !errors.As(err, &de) {
			return false
		}
		if de.Type == errType {
			return true
		}
		err = de.Err
	}
	return false
}

// Common error constructors
func ValidationError(message string, err error) *DomainError {
	return NewError(ErrorTypeValidation, message, err)
}

func UnsupportedFormatError(message string, err error) *DomainError {
	return NewError(ErrorTypeUnsupportedFormat, message, err)
}

func DocumentReadError(message string, err error) *DomainError {
	return NewError(ErrorTypeDocumentRead, message, err)
}

func ResponseParseError(message string, err error) *DomainError {
	return NewError(ErrorTypeResponseParse, message, err)
}

func EmptyTranscriptError(message string, err error) *DomainError {
	return NewError(ErrorTypeEmptyTranscript, message, err)
}

func AudioExtractionError(message string, err error) *DomainError {
	return NewError(ErrorTypeAudioExtraction, message, err)
}

func ExtractionError(message string, err error) *DomainError {
	return NewError(ErrorTypeExtraction, message, err)
}

func GatewayError(message string, err error) *DomainError {
	return NewError(ErrorTypeGateway, message, err)
}

func NotFoundError(message string, err error) *DomainError {
	return NewError(ErrorTypeNotFound, message, err)
}

func ConfigError(message string, err error) *DomainError {
	return NewError(ErrorTypeConfig, message, err)
}

func IOError(message string, err error) *DomainError {
	return NewError(ErrorTypeIO, message, err)
}

// MessageOf returns the message of the outermost DomainError in err's chain,
// without its wrapped cause, or fallback when there is none.
func MessageOf(err error, fallback string) string {
	var de *DomainError
	if errors.As(err, &de) && de.Message != "" {
		return de.Message
	}
	return fallback
}
