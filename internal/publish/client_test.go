package publish

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"fraud-forest/internal/cfg"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleArtifact = `{"meta":{"version":"3.0.0-forest","runId":"1700000000000","features":["x"]},"forest":[{"t":"n","f":"x","v":0.5,"l":{"t":"l","v":0.1},"r":{"t":"l","v":0.9}}]}`

type captured struct {
	method string
	path   string
	header http.Header
	body   []byte
}

func newServer(t *testing.T, status int) (*httptest.Server, *captured) {
	t.Helper()
	c := &captured{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.method = r.Method
		c.path = r.URL.EscapedPath()
		c.header = r.Header.Clone()
		c.body, _ = io.ReadAll(r.Body)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	t.Cleanup(srv.Close)
	return srv, c
}

func fixedClient(base string, limit int64) *Client {
	c := NewClient(cfg.PublishSettings{BaseURL: base + "/", Token: "tok", Secret: "s3cret", Timeout: 5 * time.Second}, limit)
	c.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return c
}

func TestSign(t *testing.T) {
	a := Sign("secret", "digest", "1")
	assert.Len(t, a, 64)
	assert.Equal(t, a, Sign("secret", "digest", "1"))
	assert.NotEqual(t, a, Sign("secret", "digest", "2"))
	assert.NotEqual(t, a, Sign("other", "digest", "1"))
}

func TestDigest(t *testing.T) {
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", Digest(nil))
}

func TestPublish(t *testing.T) {
	srv, got := newServer(t, http.StatusOK)
	client := fixedClient(srv.URL, 1<<20)

	body := []byte(sampleArtifact)
	res, err := client.Publish(context.Background(), "models/fraud forest", body)
	require.NoError(t, err)

	assert.Equal(t, http.MethodPut, got.method)
	assert.Equal(t, "/values/models%2Ffraud%20forest", got.path)
	assert.Equal(t, body, got.body)
	assert.Equal(t, "Bearer tok", got.header.Get("Authorization"))
	assert.Equal(t, "1700000000000", got.header.Get(HeaderTimestamp))
	assert.Equal(t, Digest(body), got.header.Get(HeaderDigest))
	assert.Equal(t, Sign("s3cret", Digest(body), "1700000000000"), got.header.Get(HeaderSignature))

	assert.Equal(t, len(body), res.Bytes)
	assert.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, Digest(body), res.Digest)
}

func TestPublish_NoSecretNoSignature(t *testing.T) {
	srv, got := newServer(t, http.StatusCreated)
	client := NewClient(cfg.PublishSettings{BaseURL: srv.URL}, 0)

	_, err := client.Publish(context.Background(), "k", []byte("{}"))
	require.NoError(t, err)
	assert.Empty(t, got.header.Get(HeaderSignature))
	assert.Empty(t, got.header.Get("Authorization"))
}

func TestPublish_Errors(t *testing.T) {
	srv, _ := newServer(t, http.StatusForbidden)

	_, err := fixedClient(srv.URL, 1<<20).Publish(context.Background(), "k", []byte("{}"))
	assert.ErrorIs(t, err, ErrRejected)
	assert.Contains(t, err.Error(), "403")

	_, err = fixedClient(srv.URL, 4).Publish(context.Background(), "k", []byte("12345"))
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = fixedClient(srv.URL, 1<<20).Publish(context.Background(), "", []byte("{}"))
	assert.ErrorIs(t, err, ErrEmptyKey)

	_, err = NewClient(cfg.PublishSettings{}, 0).Publish(context.Background(), "k", []byte("{}"))
	assert.ErrorIs(t, err, ErrNoEndpoint)
}

func TestPublish_NoRetry(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := fixedClient(srv.URL, 0).Publish(context.Background(), "k", []byte("{}"))
	assert.ErrorIs(t, err, ErrRejected)
	assert.Equal(t, 1, calls)
}

func TestPublishArtifact(t *testing.T) {
	srv, got := newServer(t, http.StatusOK)
	path := filepath.Join(t.TempDir(), "random-forest.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleArtifact), 0o644))

	_, err := fixedClient(srv.URL, 1<<20).PublishArtifact(context.Background(), "fraud", path)
	require.NoError(t, err)
	assert.Equal(t, sampleArtifact, string(got.body))

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"forest":[{"t":"x"}]}`), 0o644))
	_, err = fixedClient(srv.URL, 1<<20).PublishArtifact(context.Background(), "fraud", bad)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "decode"))
}
