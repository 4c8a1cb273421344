package corekb

import (
	"errors"
	"fmt"
)

// ErrorKind is the closed set of error kinds the core surfaces (§7). The
// prefix in each kind's name indicates which component raises it.
type ErrorKind string

const (
	KindConfiguration          ErrorKind = "configuration_error"
	KindValidation             ErrorKind = "validation_error"
	KindFileProcessing         ErrorKind = "file_processing_error"
	KindUnsupportedFileType    ErrorKind = "unsupported_file_type_error"
	KindCorruptedFile          ErrorKind = "corrupted_file_error"
	KindFileSize               ErrorKind = "file_size_error"
	KindSectionDetection       ErrorKind = "section_detection_error"
	KindChunking               ErrorKind = "chunking_error"
	KindMetadataExtraction     ErrorKind = "metadata_extraction_error"
	KindQualityValidation      ErrorKind = "quality_validation_error"
	KindAIService              ErrorKind = "ai_service_error"
	KindAIRateLimit            ErrorKind = "ai_rate_limit_error"
	KindAIQuotaExceeded        ErrorKind = "ai_quota_exceeded_error"
	KindAIInvalidAPIKey        ErrorKind = "ai_invalid_api_key_error"
	KindAIInvalidResponse      ErrorKind = "ai_invalid_response_error"
	KindDatabase               ErrorKind = "database_error"
	KindDataIntegrity          ErrorKind = "data_integrity_error"
	KindConnection             ErrorKind = "connection_error"
)

// recoverySuggestions mirrors the built-in recovery-hint table the original
// system keeps per error code (core/exceptions.py: RECOVERY_SUGGESTIONS),
// required by §7 ("failures carry ... a recovery hint drawn from a
// built-in table").
var recoverySuggestions = map[ErrorKind][]string{
	KindConfiguration: {
		"check configuration values against the documented defaults",
		"verify environment variables are set correctly",
	},
	KindUnsupportedFileType: {
		"convert the file to a supported format",
		"verify the file extension matches its actual content",
	},
	KindAIRateLimit: {
		"wait for the rate limit window to reset",
		"reduce batch size or enable exponential backoff",
	},
	KindAIQuotaExceeded: {
		"wait for the quota period to reset",
		"reduce token usage per request",
	},
	KindSectionDetection: {
		"review the document's structural patterns",
		"adjust the confidence_threshold for this curriculum",
		"add a custom pattern for this document's heading style",
	},
	KindQualityValidation: {
		"review extraction quality for this chunk",
		"adjust min_quality_score",
		"flag the chunk for human review",
	},
	KindConnection: {
		"retry with exponential backoff",
		"verify the database file path and permissions",
	},
}

// RecoverySuggestions returns the built-in hints for an error kind, falling
// back to a generic triage list when none are registered.
func RecoverySuggestions(k ErrorKind) []string {
	if s, ok := recoverySuggestions[k]; ok {
		return s
	}
	return []string{
		"check logs for more detail",
		"retry the operation",
	}
}

// CoreError is the typed error every pipeline stage returns. It carries
// enough context for a caller to decide whether to retry, skip, or abort,
// per the propagation policy in §7.
type CoreError struct {
	Kind    ErrorKind
	Message string
	// Context holds component-specific fields (document_id, section_id,
	// chunk_id, retry_count, confidence, ...).
	Context map[string]any
	Err     error // wrapped cause, if any
}

func (e *CoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("corekb: %s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("corekb: %s: %s", e.Kind, e.Message)
}

func (e *CoreError) Unwrap() error { return e.Err }

// NewError constructs a CoreError with optional context fields supplied as
// alternating key/value pairs, mirroring the kwargs style of the Python
// exception hierarchy it is grounded on.
func NewError(kind ErrorKind, message string, cause error, kv ...any) *CoreError {
	ctx := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		if key, ok := kv[i].(string); ok {
			ctx[key] = kv[i+1]
		}
	}
	return &CoreError{Kind: kind, Message: message, Context: ctx, Err: cause}
}

// IsRetryable reports whether a CoreError's kind is one the document-level
// retry policy in §7 applies exponential backoff to.
func IsRetryable(err error) bool {
	var ce *CoreError
	if !errors.As(err, &ce) {
		return false
	}
	switch ce.Kind {
	case KindDatabase, KindDataIntegrity, KindConnection:
		return true
	default:
		return false
	}
}

// Sentinel errors retained from the teacher's flat errors.go for the few
// cases that are genuinely binary (exists / not found) rather than needing
// the richer CoreError context.
var (
	ErrDocumentNotFound = errors.New("corekb: document not found")
	ErrDocumentExists   = errors.New("corekb: document already exists")
	ErrStoreClosed      = errors.New("corekb: store is closed")
	ErrChunkNotFound    = errors.New("corekb: chunk not found")
)
