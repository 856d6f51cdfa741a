package secrets

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vaultServer(t *testing.T, body string) *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Vault-Token") != "root" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		assert.Equal(t, "/v1/secret/data/clinicalrag", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestApply_Disabled(t *testing.T) {
	result, err := Apply(context.Background(), Config{})
	require.NoError(t, err)
	assert.False(t, result.Enabled)
}

func TestApply_Incomplete(t *testing.T) {
	_, err := Apply(context.Background(), Config{Enabled: true, Addr: "http://vault"})
	assert.Error(t, err)
}

func TestApply_KVv2(t *testing.T) {
	server := vaultServer(t, `{"data":{"data":{"CLINICALRAG_TEST_KEY":"sk-123","CLINICALRAG_TEST_RPM":30}}}`)
	t.Setenv("CLINICALRAG_TEST_KEY", "")
	t.Setenv("CLINICALRAG_TEST_RPM", "")

	result, err := Apply(context.Background(), Config{
		Enabled: true, Addr: server.URL, Token: "root", Mount: "secret",
		Path: "clinicalrag", KVVersion: 2, Timeout: time.Second,
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"CLINICALRAG_TEST_KEY", "CLINICALRAG_TEST_RPM"}, result.Loaded)
	assert.Equal(t, "sk-123", os.Getenv("CLINICALRAG_TEST_KEY"))
	assert.Equal(t, "30", os.Getenv("CLINICALRAG_TEST_RPM"))
}

func TestApply_KeepsExistingValues(t *testing.T) {
	server := vaultServer(t, `{"data":{"data":{"CLINICALRAG_TEST_KEY":"from-vault"}}}`)
	t.Setenv("CLINICALRAG_TEST_KEY", "from-env")

	result, err := Apply(context.Background(), Config{
		Enabled: true, Addr: server.URL, Token: "root", Mount: "secret",
		Path: "clinicalrag", KVVersion: 2, Timeout: time.Second,
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"CLINICALRAG_TEST_KEY"}, result.Skipped)
	assert.Equal(t, "from-env", os.Getenv("CLINICALRAG_TEST_KEY"))
}

func TestApply_Forbidden(t *testing.T) {
	server := vaultServer(t, `{}`)

	_, err := Apply(context.Background(), Config{
		Enabled: true, Addr: server.URL, Token: "wrong", Mount: "secret",
		Path: "clinicalrag", KVVersion: 2, Timeout: time.Second,
	})
	assert.Error(t, err)
}

func TestSecretURL(t *testing.T) {
	url, err := secretURL("http://vault:8200/", "/secret/", "/app/keys", 1)
	require.NoError(t, err)
	assert.Equal(t, "http://vault:8200/v1/secret/app/keys", url)

	_, err = secretURL("", "secret", "x", 2)
	assert.Error(t, err)
}
