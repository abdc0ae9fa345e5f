// Package errors provides standardized error handling for the insight pipeline.
package errors

import (
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Pipeline stage failure codes. Each aborts the remainder of the request.
const (
	ErrCodeIntentResolutionFailed ErrorCode = "INTENT_RESOLUTION_FAILED"
	ErrCodeIntentAPITimeout       ErrorCode = "INTENT_API_TIMEOUT"

	ErrCodeToolSelectionFailed ErrorCode = "TOOL_SELECTION_FAILED"

	ErrCodeSourceUnavailable ErrorCode = "SOURCE_UNAVAILABLE"
	ErrCodeSourceTimeout     ErrorCode = "SOURCE_TIMEOUT"

	ErrCodeSynthesisFailed           ErrorCode = "SYNTHESIS_FAILED"
	ErrCodeSynthesisExtractionFailed ErrorCode = "SYNTHESIS_EXTRACTION_FAILED"

	ErrCodeExecutionTimeout           ErrorCode = "EXECUTION_TIMEOUT"
	ErrCodeExecutionContractViolation ErrorCode = "EXECUTION_CONTRACT_VIOLATION"
	ErrCodeProgramInternalError       ErrorCode = "PROGRAM_INTERNAL_ERROR"

	ErrCodeNarrativeCompositionFailed ErrorCode = "NARRATIVE_COMPOSITION_FAILED"

	ErrCodeCacheUnavailable   ErrorCode = "CACHE_UNAVAILABLE"
	ErrCodeCatalogUnavailable ErrorCode = "CATALOG_UNAVAILABLE"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. Error Constructors
// ==========================

// NewIntentResolutionFailedError creates a retryable intent resolution error.
func NewIntentResolutionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeIntentResolutionFailed,
		Message:   "Intent resolution API error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewIntentAPITimeoutError creates a retryable intent API timeout error.
func NewIntentAPITimeoutError() *StandardError {
	return &StandardError{
		Code:      ErrCodeIntentAPITimeout,
		Message:   "Intent resolution API timeout",
		Details:   "API call exceeded timeout threshold",
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewToolSelectionFailedError creates a retryable tool selection error.
func NewToolSelectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeToolSelectionFailed,
		Message:   "Tool selection API error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSourceUnavailableError creates a retryable telemetry source error.
func NewSourceUnavailableError(toolID string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSourceUnavailable,
		Message:   "Telemetry source query failed",
		Details:   fmt.Sprintf("toolId: %s, error: %s", toolID, err.Error()),
		Retryable: true,
		Metadata:  map[string]interface{}{"toolId": toolID},
		Timestamp: time.Now().UTC(),
	}
}

// NewSourceTimeoutError creates a retryable telemetry source timeout error.
func NewSourceTimeoutError(toolID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSourceTimeout,
		Message:   "Telemetry source query timeout",
		Details:   fmt.Sprintf("toolId: %s", toolID),
		Retryable: true,
		Metadata:  map[string]interface{}{"toolId": toolID},
		Timestamp: time.Now().UTC(),
	}
}

// NewSynthesisFailedError creates a retryable program generation error.
func NewSynthesisFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSynthesisFailed,
		Message:   "Program generation API error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSynthesisExtractionFailedError creates a non-retryable extraction error.
// The reply arrived but carried no fenced code block, so retrying the same
// request is pointless without a changed prompt.
func NewSynthesisExtractionFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSynthesisExtractionFailed,
		Message:   "Generated reply contained no runnable code block",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewExecutionTimeoutError creates a non-retryable sandbox timeout error.
func NewExecutionTimeoutError(timeout time.Duration) *StandardError {
	return &StandardError{
		Code:      ErrCodeExecutionTimeout,
		Message:   "Analysis program exceeded execution deadline",
		Details:   fmt.Sprintf("timeout: %s", timeout),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewExecutionContractViolationError creates a non-retryable contract error.
// Details carry raw stderr for diagnostics; never show them to the user.
func NewExecutionContractViolationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeExecutionContractViolation,
		Message:   "Analysis program produced invalid output",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewProgramInternalError creates a non-retryable error for a program that
// completed but reported an internal failure.
func NewProgramInternalError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeProgramInternalError,
		Message:   "Analysis program failed internally",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNarrativeCompositionFailedError creates a retryable narrative error.
func NewNarrativeCompositionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNarrativeCompositionFailed,
		Message:   "Narrative composition API error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewCacheUnavailableError creates a retryable cache error.
func NewCacheUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCacheUnavailable,
		Message:   "Answer cache unavailable",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewCatalogUnavailableError creates a retryable catalog error.
func NewCatalogUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCatalogUnavailable,
		Message:   "Tool catalog unavailable",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Retry Policy
// ==========================

// GetRetryCount returns the recommended retry count per error code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeIntentResolutionFailed,
		ErrCodeToolSelectionFailed,
		ErrCodeSynthesisFailed,
		ErrCodeNarrativeCompositionFailed,
		ErrCodeSourceUnavailable,
		ErrCodeCacheUnavailable,
		ErrCodeCatalogUnavailable:
		return 3 // Retryable technical errors

	case ErrCodeIntentAPITimeout,
		ErrCodeSourceTimeout:
		return 2 // Partial retry for timeouts

	default:
		return 0 // Terminal pipeline errors: no retry
	}
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// ==========================
// 4. User-Facing Messages
// ==========================

// UserMessage maps an error to the single message shown to the caller.
// Internal diagnostic detail (stderr, raw collaborator replies) stays in
// Details and is logged, never surfaced here.
func UserMessage(err *StandardError) string {
	switch err.Code {
	case ErrCodeIntentResolutionFailed, ErrCodeIntentAPITimeout:
		return "We could not work out the time range or API your question refers to. Try rephrasing with an explicit API name or period."
	case ErrCodeToolSelectionFailed:
		return "We could not determine which telemetry applies to your question. Try rephrasing it."
	case ErrCodeSourceUnavailable, ErrCodeSourceTimeout:
		return "The telemetry store is currently unavailable. Please try again shortly."
	case ErrCodeSynthesisFailed, ErrCodeSynthesisExtractionFailed:
		return "We could not prepare an analysis for this question. Please try again or rephrase it."
	case ErrCodeExecutionTimeout:
		return "The analysis took too long to complete. Try a shorter time range."
	case ErrCodeExecutionContractViolation, ErrCodeProgramInternalError:
		return "The analysis failed to produce a usable result. Please try again."
	case ErrCodeNarrativeCompositionFailed:
		return "We analyzed your data but could not compose the summary. Please try again."
	default:
		return "Something went wrong while answering your question. Please try again."
	}
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "INTENT") || strings.Contains(codeStr, "TOOL_SELECTION") || strings.Contains(codeStr, "NARRATIVE") || strings.Contains(codeStr, "SYNTHESIS"):
		return "AI"
	case strings.Contains(codeStr, "SOURCE"):
		return "TELEMETRY"
	case strings.Contains(codeStr, "EXECUTION") || strings.Contains(codeStr, "PROGRAM"):
		return "SANDBOX"
	case strings.Contains(codeStr, "CACHE") || strings.Contains(codeStr, "CATALOG"):
		return "STORAGE"
	default:
		return "OTHER"
	}
}
