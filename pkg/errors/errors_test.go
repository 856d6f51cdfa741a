package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsType_ThroughWrapping(t *testing.T) {
	err := fmt.Errorf("build index: %w", NewValidationError("no documents"))

	assert.True(t, IsType(err, ErrorTypeValidation))
	assert.False(t, IsType(err, ErrorTypeNotFound))
	assert.False(t, IsType(nil, ErrorTypeValidation))
}

func TestIsType_NestedAppErrors(t *testing.T) {
	inner := NewNotFoundError("index manifest missing")
	outer := NewInternalError("load failed", inner)

	assert.True(t, IsType(outer, ErrorTypeInternal))
	assert.True(t, IsType(outer, ErrorTypeNotFound))
}

func TestMalformedExtractionError(t *testing.T) {
	cause := stderrors.New("unexpected end of JSON input")
	err := fmt.Errorf("page 2: %w", NewMalformedExtractionError(`{"diseases": [`, cause))

	assert.True(t, IsMalformedExtraction(err))
	assert.ErrorIs(t, err, cause)

	var malformed *MalformedExtractionError
	if assert.ErrorAs(t, err, &malformed) {
		assert.Equal(t, `{"diseases": [`, malformed.Raw)
	}
	assert.False(t, IsMalformedExtraction(NewExternalError("gemini", cause)))
}

func TestAppError_Error(t *testing.T) {
	assert.Equal(t, "VALIDATION: question is required", NewValidationError("question is required").Error())
	assert.Equal(t, "EXTERNAL: gemini request failed: boom",
		NewExternalError("gemini request failed", stderrors.New("boom")).Error())
}
