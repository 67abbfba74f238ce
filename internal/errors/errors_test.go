package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngineError_Unwrap_PreservesOriginalError(t *testing.T) {
	originalErr := errors.New("original error")

	engineErr := New(ErrCodeDocumentNotFound, "document not found: retrieval.pdf", originalErr)

	require.NotNil(t, engineErr)
	assert.Equal(t, originalErr, errors.Unwrap(engineErr))
	assert.True(t, errors.Is(engineErr, originalErr))
}

func TestEngineError_Error_ReturnsFormattedMessage(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		message  string
		expected string
	}{
		{
			name:     "not found error",
			code:     ErrCodeConceptNotFound,
			message:  "concept not found",
			expected: "[ERR_101_CONCEPT_NOT_FOUND] concept not found",
		},
		{
			name:     "id collision error",
			code:     ErrCodeIdCollision,
			message:  "id collision detected",
			expected: "[ERR_201_ID_COLLISION] id collision detected",
		},
		{
			name:     "search error",
			code:     ErrCodeCandidateRetrievalFailed,
			message:  "candidate retrieval failed",
			expected: "[ERR_601_CANDIDATE_RETRIEVAL_FAILED] candidate retrieval failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, tt.message, nil)
			assert.Equal(t, tt.expected, err.Error())
		})
	}
}

func TestEngineError_Is_MatchesByCode(t *testing.T) {
	err1 := New(ErrCodeDocumentNotFound, "document A not found", nil)
	err2 := New(ErrCodeDocumentNotFound, "document B not found", nil)

	assert.True(t, errors.Is(err1, err2))
}

func TestEngineError_Is_DoesNotMatchDifferentCodes(t *testing.T) {
	err1 := New(ErrCodeDocumentNotFound, "document not found", nil)
	err2 := New(ErrCodeCategoryNotFound, "category not found", nil)

	assert.False(t, errors.Is(err1, err2))
}

func TestEngineError_WithDetails_AddsContext(t *testing.T) {
	err := New(ErrCodeDocumentNotFound, "document not found", nil)

	err = err.WithDetail("path", "/library/retrieval.pdf")
	err = err.WithDetail("size", "1024")

	assert.Equal(t, "/library/retrieval.pdf", err.Details["path"])
	assert.Equal(t, "1024", err.Details["size"])
}

func TestEngineError_WithSuggestion_AddsSuggestion(t *testing.T) {
	err := New(ErrCodeWordnetTimeout, "wordnet lookup timed out", nil)

	err = err.WithSuggestion("retry the search, synonym expansion is best-effort")

	assert.Equal(t, "retry the search, synonym expansion is best-effort", err.Suggestion)
}

func TestEngineError_CategoryFromCode(t *testing.T) {
	tests := []struct {
		code         string
		wantCategory Category
	}{
		{ErrCodeConceptNotFound, CategoryNotFound},
		{ErrCodeCategoryNotFound, CategoryNotFound},
		{ErrCodeIdCollision, CategoryIdCollision},
		{ErrCodeExtractionIssues, CategoryExtractionQuality},
		{ErrCodeWordnetTimeout, CategoryExpansionDegraded},
		{ErrCodeScorerFailed, CategorySignalScoring},
		{ErrCodeCandidateRetrievalFailed, CategorySearch},
		{ErrCodeInvalidRow, CategoryValidation},
		{ErrCodeCancelled, CategoryCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "test message", nil)
			assert.Equal(t, tt.wantCategory, err.Category)
		})
	}
}

func TestEngineError_SeverityFromCode(t *testing.T) {
	tests := []struct {
		code         string
		wantSeverity Severity
	}{
		{ErrCodeIdCollision, SeverityFatal},
		{ErrCodeInvalidRow, SeverityFatal},
		{ErrCodeDocumentNotFound, SeverityError},
		{ErrCodeCandidateRetrievalFailed, SeverityError},
		{ErrCodeExtractionIssues, SeverityWarning},
		{ErrCodeWordnetTimeout, SeverityWarning},
		{ErrCodeScorerFailed, SeverityWarning},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "test message", nil)
			assert.Equal(t, tt.wantSeverity, err.Severity)
		})
	}
}

func TestEngineError_RetryableFromCode(t *testing.T) {
	tests := []struct {
		code          string
		wantRetryable bool
	}{
		{ErrCodeExpansionTimeout, true},
		{ErrCodeWordnetTimeout, true},
		{ErrCodeEmbeddingUnavailable, true},
		{ErrCodeDocumentNotFound, false},
		{ErrCodeIdCollision, false},
		{ErrCodeInvalidRow, false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "test message", nil)
			assert.Equal(t, tt.wantRetryable, err.Retryable)
		})
	}
}

func TestWrap_CreatesEngineErrorFromError(t *testing.T) {
	originalErr := errors.New("something went wrong")

	engineErr := Wrap(ErrCodeScorerFailed, originalErr)

	require.NotNil(t, engineErr)
	assert.Equal(t, ErrCodeScorerFailed, engineErr.Code)
	assert.Equal(t, "something went wrong", engineErr.Message)
	assert.Equal(t, originalErr, engineErr.Cause)
}

func TestNotFound_CreatesNotFoundCategoryError(t *testing.T) {
	err := NotFound(ErrCodeConceptNotFound, "concept 'eventual consistency' not found")

	assert.Equal(t, CategoryNotFound, err.Category)
	assert.Contains(t, err.Code, "NOT_FOUND")
	assert.NotEmpty(t, err.Suggestion)
}

func TestIdCollision_CreatesFatalCollisionError(t *testing.T) {
	err := IdCollision("optimization", "optim1zation", 1234)

	assert.Equal(t, CategoryIdCollision, err.Category)
	assert.Equal(t, SeverityFatal, err.Severity)
	assert.Equal(t, "optimization", err.Details["existing"])
	assert.Equal(t, "optim1zation", err.Details["new"])
}

func TestSearchError_CreatesSearchCategoryError(t *testing.T) {
	err := SearchError("all signal scorers failed", nil)

	assert.Equal(t, CategorySearch, err.Category)
}

func TestValidationError_CreatesValidationCategoryError(t *testing.T) {
	err := ValidationError("row missing required concept_id", nil)

	assert.Equal(t, CategoryValidation, err.Category)
	assert.Equal(t, SeverityFatal, err.Severity)
}

func TestCancelled_CreatesCancelledCategoryError(t *testing.T) {
	err := Cancelled()

	assert.Equal(t, CategoryCancelled, err.Category)
	assert.Equal(t, ErrCodeCancelled, err.Code)
}

func TestIsRetryable_ChecksRetryableFlag(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "retryable EngineError",
			err:      New(ErrCodeWordnetTimeout, "timeout", nil),
			expected: true,
		},
		{
			name:     "non-retryable EngineError",
			err:      New(ErrCodeDocumentNotFound, "not found", nil),
			expected: false,
		},
		{
			name:     "wrapped retryable error",
			err:      Wrap(ErrCodeWordnetTimeout, errors.New("wrapped")),
			expected: true,
		},
		{
			name:     "standard error",
			err:      errors.New("standard error"),
			expected: false,
		},
		{
			name:     "nil error",
			err:      nil,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsRetryable(tt.err))
		})
	}
}

func TestIsFatal_ChecksFatalSeverity(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "fatal id collision",
			err:      IdCollision("a", "b", 1),
			expected: true,
		},
		{
			name:     "fatal validation error",
			err:      New(ErrCodeInvalidRow, "row invalid", nil),
			expected: true,
		},
		{
			name:     "non-fatal not found",
			err:      New(ErrCodeDocumentNotFound, "not found", nil),
			expected: false,
		},
		{
			name:     "standard error",
			err:      errors.New("standard error"),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsFatal(tt.err))
		})
	}
}
