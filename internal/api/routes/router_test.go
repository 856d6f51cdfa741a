package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zatekoja/clinicalrag/internal/api/handlers"
	"github.com/zatekoja/clinicalrag/internal/domain/entities"
)

type staticDiagnoser struct{}

func (staticDiagnoser) Diagnose(ctx context.Context, question string) (*entities.QueryResult, error) {
	return &entities.QueryResult{Answer: "dengue", Sources: []entities.EmbeddableDocument{}}, nil
}

func newHandler() http.Handler {
	return NewRouter(handlers.NewDiagnosisHandler(staticDiagnoser{}), nil).SetupRoutes()
}

func TestRouter_Health(t *testing.T) {
	rr := httptest.NewRecorder()
	newHandler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "OK", rr.Body.String())
}

func TestRouter_Diagnose(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/diagnose", strings.NewReader(`{"question":"fever and rash"}`))
	newHandler().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"answer":"dengue"`)
}

func TestRouter_DiagnoseRequiresPost(t *testing.T) {
	rr := httptest.NewRecorder()
	newHandler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/diagnose", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}
