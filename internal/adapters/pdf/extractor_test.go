package pdf

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/zatekoja/clinicalrag/pkg/errors"
)

func TestExtractFile_Missing(t *testing.T) {
	_, err := NewExtractor().ExtractFile(context.Background(), filepath.Join(t.TempDir(), "absent.pdf"))
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}

func TestExtractFile_NotAPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.pdf")
	require.NoError(t, os.WriteFile(path, []byte("plain text, not a pdf"), 0o644))

	_, err := NewExtractor().ExtractFile(context.Background(), path)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func TestGuardedText(t *testing.T) {
	text, err := guardedText(func() (string, error) { return "fever and chills", nil })
	require.NoError(t, err)
	assert.Equal(t, "fever and chills", text)

	text, err = guardedText(func() (string, error) { panic("bad font table") })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad font table")
	assert.Empty(t, text)
}
