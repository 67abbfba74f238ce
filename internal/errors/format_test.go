package errors

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatForUser_BasicError(t *testing.T) {
	err := New(ErrCodeDocumentNotFound, "document 'intro-to-rag.pdf' not found", nil)

	result := FormatForUser(err, false)

	assert.Contains(t, result, "document 'intro-to-rag.pdf' not found")
	assert.Contains(t, result, "[ERR_103_DOCUMENT_NOT_FOUND]")
}

func TestFormatForUser_WithSuggestion(t *testing.T) {
	err := New(ErrCodeCategoryNotFound, "category 'distributed systems' not found", nil).
		WithSuggestion("check list_categories for available names")

	result := FormatForUser(err, false)

	assert.Contains(t, result, "Suggestion:")
	assert.Contains(t, result, "list_categories")
}

func TestFormatForUser_NoStackTraceInNormalMode(t *testing.T) {
	err := New(ErrCodeScorerFailed, "bm25 scorer failed", nil)

	result := FormatForUser(err, false)

	assert.NotContains(t, result, "Stack trace:")
	assert.NotContains(t, result, "goroutine")
}

func TestFormatForUser_StandardError(t *testing.T) {
	err := errors.New("something went wrong")

	result := FormatForUser(err, false)

	assert.Contains(t, result, "something went wrong")
}

func TestFormatForUser_NilError(t *testing.T) {
	result := FormatForUser(nil, false)

	assert.Empty(t, result)
}

func TestFormatJSON_BasicError(t *testing.T) {
	err := New(ErrCodeDocumentNotFound, "document not found", nil).
		WithDetail("source", "/library/retrieval.pdf").
		WithSuggestion("check the source path")

	data, jsonErr := FormatJSON(err)

	require.NoError(t, jsonErr)

	var result map[string]any
	require.NoError(t, json.Unmarshal(data, &result))

	assert.Equal(t, ErrCodeDocumentNotFound, result["code"])
	assert.Equal(t, "document not found", result["message"])
	assert.Equal(t, string(CategoryNotFound), result["category"])
	assert.Equal(t, string(SeverityError), result["severity"])
	assert.Equal(t, "check the source path", result["suggestion"])

	details, ok := result["details"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "/library/retrieval.pdf", details["source"])
}

func TestFormatJSON_StandardError(t *testing.T) {
	err := errors.New("generic error")

	data, jsonErr := FormatJSON(err)

	require.NoError(t, jsonErr)

	var result map[string]any
	require.NoError(t, json.Unmarshal(data, &result))

	assert.Equal(t, ErrCodeScorerFailed, result["code"])
	assert.Equal(t, "generic error", result["message"])
}

func TestFormatJSON_NilError(t *testing.T) {
	data, err := FormatJSON(nil)

	assert.NoError(t, err)
	assert.Equal(t, "null", strings.TrimSpace(string(data)))
}

func TestFormatJSON_WithCause(t *testing.T) {
	cause := errors.New("underlying error")
	err := New(ErrCodeCandidateRetrievalFailed, "search failed", cause)

	data, jsonErr := FormatJSON(err)

	require.NoError(t, jsonErr)

	var result map[string]any
	require.NoError(t, json.Unmarshal(data, &result))

	assert.Equal(t, "underlying error", result["cause"])
}

func TestFormatForCLI_FormatsFatalIdCollision(t *testing.T) {
	err := IdCollision("optimization", "optim1zation", 1234)

	result := FormatForCLI(err)

	assert.Contains(t, result, "optimization")
	assert.Contains(t, result, "ERR_201_ID_COLLISION")
}

func TestFormatForCLI_ShortFormat(t *testing.T) {
	err := New(ErrCodeDocumentNotFound, "document not found", nil)

	result := FormatForCLI(err)

	lines := strings.Split(strings.TrimSpace(result), "\n")
	assert.LessOrEqual(t, len(lines), 5, "Should be concise")
}
