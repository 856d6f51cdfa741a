package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/clinicalrag/internal/domain/entities"
	apperrors "github.com/zatekoja/clinicalrag/pkg/errors"
)

func TestCaseFileAdapter_SaveAndGet(t *testing.T) {
	dir := t.TempDir()
	repo := NewCaseFileAdapter(dir)
	ctx := context.Background()

	record := entities.NewCaseRecord("case_03")
	record.Diseases = []string{"malaria"}
	record.PatientHistory = "32-year-old safari guide"

	require.NoError(t, repo.Save(ctx, record))
	assert.FileExists(t, filepath.Join(dir, "case_03_filtered.json"))

	got, err := repo.Get(ctx, "case_03")
	require.NoError(t, err)
	assert.Equal(t, record, *got)
}

func TestCaseFileAdapter_SaveOverwrites(t *testing.T) {
	repo := NewCaseFileAdapter(t.TempDir())
	ctx := context.Background()

	first := entities.NewCaseRecord("c")
	first.Symptoms = []string{"fever"}
	require.NoError(t, repo.Save(ctx, first))

	second := entities.MergePage(first, entities.PageExtraction{Symptoms: []string{"chills"}})
	require.NoError(t, repo.Save(ctx, second))

	got, err := repo.Get(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, []string{"fever", "chills"}, got.Symptoms)
}

func TestCaseFileAdapter_GetMissing(t *testing.T) {
	repo := NewCaseFileAdapter(t.TempDir())

	_, err := repo.Get(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}

func TestCaseFileAdapter_ListSortedByCaseID(t *testing.T) {
	dir := t.TempDir()
	repo := NewCaseFileAdapter(dir)
	ctx := context.Background()

	for _, id := range []string{"case_10", "case_02", "case_07"} {
		require.NoError(t, repo.Save(ctx, entities.NewCaseRecord(id)))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	records, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "case_02", records[0].CaseID)
	assert.Equal(t, "case_07", records[1].CaseID)
	assert.Equal(t, "case_10", records[2].CaseID)
}

func TestCaseFileAdapter_ListMissingDirectory(t *testing.T) {
	repo := NewCaseFileAdapter(filepath.Join(t.TempDir(), "absent"))

	_, err := repo.List(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}

func TestCaseFileAdapter_FillsCaseIDFromFileName(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "legacy_filtered.json"), []byte(`{"diseases":["dengue"]}`), 0o644))

	records, err := NewCaseFileAdapter(dir).List(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "legacy", records[0].CaseID)
	assert.Equal(t, []string{"dengue"}, records[0].Diseases)
}

func TestCaseFileAdapter_RejectsInvalidCaseID(t *testing.T) {
	repo := NewCaseFileAdapter(t.TempDir())

	err := repo.Save(context.Background(), entities.NewCaseRecord("../escape"))
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))

	err = repo.Save(context.Background(), entities.NewCaseRecord(" "))
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func TestCaseFileAdapter_ListSkipsCorruptFiles(t *testing.T) {
	dir := t.TempDir()
	repo := NewCaseFileAdapter(dir)
	ctx := context.Background()

	for _, id := range []string{"case_a", "case_c"} {
		require.NoError(t, repo.Save(ctx, entities.NewCaseRecord(id)))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "case_b_filtered.json"), []byte(`{not json`), 0o644))

	records, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "case_a", records[0].CaseID)
	assert.Equal(t, "case_c", records[1].CaseID)
}
