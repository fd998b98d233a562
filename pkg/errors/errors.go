package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeTransient represents item reads that failed on a detached or stale element
	ErrorTypeTransient ErrorType = "transient"
	// ErrorTypeNavigation represents failures checking or advancing the next page control
	ErrorTypeNavigation ErrorType = "navigation"
	// ErrorTypeParsing represents item data that can never be read successfully
	ErrorTypeParsing ErrorType = "parsing"
	// ErrorTypeBrowser represents session startup and page loading errors
	ErrorTypeBrowser ErrorType = "browser"
	// ErrorTypeCache represents cache-related errors
	ErrorTypeCache ErrorType = "cache"
	// ErrorTypePublisher represents publisher-related errors
	ErrorTypePublisher ErrorType = "publisher"
	// ErrorTypeConfiguration represents configuration errors
	ErrorTypeConfiguration ErrorType = "configuration"
)

// CrawlerError represents a crawler-specific error
type CrawlerError struct {
	Type    ErrorType
	Source  string
	Message string
	Err     error
	Time    time.Time
}

// Error implements the error interface
func (e *CrawlerError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, e.Source, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.Source, e.Message)
}

// Unwrap returns the underlying error
func (e *CrawlerError) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the error is retryable
func (e *CrawlerError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeTransient:
		return true
	default:
		return false
	}
}

// New creates a new CrawlerError
func New(errType ErrorType, source, message string, err error) *CrawlerError {
	return &CrawlerError{
		Type:    errType,
		Source:  source,
		Message: message,
		Err:     err,
		Time:    time.Now(),
	}
}

// NewTransient creates a new transient item-read error
func NewTransient(source, message string, err error) *CrawlerError {
	return New(ErrorTypeTransient, source, message, err)
}

// NewNavigation creates a new navigation error
func NewNavigation(source, message string, err error) *CrawlerError {
	return New(ErrorTypeNavigation, source, message, err)
}

// NewParsing creates a new parsing error
func NewParsing(source, message string, err error) *CrawlerError {
	return New(ErrorTypeParsing, source, message, err)
}

// NewBrowser creates a new browser error
func NewBrowser(source, message string, err error) *CrawlerError {
	return New(ErrorTypeBrowser, source, message, err)
}

// NewCache creates a new cache error
func NewCache(source, message string, err error) *CrawlerError {
	return New(ErrorTypeCache, source, message, err)
}

// NewPublisher creates a new publisher error
func NewPublisher(source, message string, err error) *CrawlerError {
	return New(ErrorTypePublisher, source, message, err)
}

// NewConfiguration creates a new configuration error
func NewConfiguration(message string, err error) *CrawlerError {
	return New(ErrorTypeConfiguration, "", message, err)
}

// IsRetryable reports whether err carries a retryable CrawlerError.
// Errors that are not CrawlerErrors are treated as transient.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var ce *CrawlerError
	if stderrors.As(err, &ce) {
		return ce.IsRetryable()
	}
	return true
}

// IsType reports whether err carries a CrawlerError of the given type
func IsType(err error, errType ErrorType) bool {
	var ce *CrawlerError
	if stderrors.As(err, &ce) {
		return ce.Type == errType
	}
	return false
}
