package versionmanager

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dcwiz/appkit/proxy"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	platform := proxy.New(proxy.Config{Timeout: 5 * time.Second, VerifyTLS: true})
	c, err := New(platform, baseURL, t.TempDir())
	require.NoError(t, err)
	return c
}

func TestGetNode_FetchesFilesInParallel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/experiment/n1":
			fmt.Fprint(w, `{"name":"exp-1","version":3}`)
		case "/experiment/n1/files/model.json":
			assert.Equal(t, "json", r.URL.Query().Get("format"))
			fmt.Fprint(w, `{"layers":2}`)
		case "/experiment/n1/files/notes.txt":
			fmt.Fprint(w, "free text")
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	node, err := newTestClient(t, srv.URL).GetNode(context.Background(), "experiment", "n1", GetNodeOptions{
		Files: map[string]string{
			"model.json": "json",
			"notes.txt":  "txt",
			".hidden":    "json",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "exp-1", node["name"])

	contents, ok := node["file_contents"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"layers": 2.0}, contents["model.json"])
	assert.Equal(t, "free text", contents["notes.txt"])
	assert.NotContains(t, contents, ".hidden")
}

func TestGetNode_FetchAllFiles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/experiment/n1/files":
			fmt.Fprint(w, `["a.json","b.json"]`)
		case "/experiment/n1/files/a.json":
			fmt.Fprint(w, `1`)
		case "/experiment/n1/files/b.json":
			fmt.Fprint(w, `2`)
		case "/experiment/n1":
			fmt.Fprint(w, `{"name":"exp-1"}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	node, err := newTestClient(t, srv.URL).GetNode(context.Background(), "experiment", "n1", GetNodeOptions{FetchAllFiles: true})
	require.NoError(t, err)
	contents := node["file_contents"].(map[string]any)
	assert.Equal(t, 1.0, contents["a.json"])
	assert.Equal(t, 2.0, contents["b.json"])
}

func TestListNodes_DefaultParams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/experiment", r.URL.Path)
		assert.Equal(t, "false", r.URL.Query().Get("forest"))
		assert.Equal(t, "true", r.URL.Query().Get("compress_group"))
		assert.Equal(t, "ready", r.URL.Query().Get("status"))
		assert.False(t, r.URL.Query().Has("empty"))
		fmt.Fprint(w, `[]`)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL).ListNodes(context.Background(), "experiment",
		map[string]string{"status": "ready", "empty": ""})
	require.NoError(t, err)
}

func TestUploadFile_EncodesNonJSONContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		switch r.URL.Path {
		case "/experiment/n1/files/config.json":
			assert.Equal(t, "json", payload["format"])
			assert.Equal(t, `{"a":1}`, payload["content"])
		case "/experiment/n1/files/readme.txt":
			assert.Equal(t, "txt", payload["format"])
			assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("hello")), payload["content"])
			assert.Equal(t, "1700000000.5", payload["modification_time"])
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		fmt.Fprint(w, `{}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	ctx := context.Background()

	_, err := c.UploadFile(ctx, "experiment", "n1", "config.json", "1700000000.5", `{"a":1}`, "")
	require.NoError(t, err)
	_, err = c.UploadFile(ctx, "experiment", "n1", "readme.txt", "1700000000.5", "hello", "")
	require.NoError(t, err)
}

func TestPatchMetadata_RequiresPatch(t *testing.T) {
	c := newTestClient(t, "http://127.0.0.1:1")
	_, err := c.PatchMetadata(context.Background(), "experiment", "n1", nil)
	assert.Error(t, err)
}

func TestDeleteMetadata_RequiresKeys(t *testing.T) {
	c := newTestClient(t, "http://127.0.0.1:1")
	_, err := c.DeleteMetadata(context.Background(), "experiment", "n1", "12345", nil)
	assert.Error(t, err)
}

func TestDeleteNode_NeverDryRun(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "false", r.URL.Query().Get("dry_run"))
		assert.Equal(t, "true", r.URL.Query().Get("skip_dependants"))
		fmt.Fprint(w, `{}`)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL).DeleteNode(context.Background(), "experiment", "n1", true)
	require.NoError(t, err)
}

func TestFetchFiles_SkipsCachedFiles(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, "file body")
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	ctx := context.Background()
	files := map[string]string{"data.csv": "csv"}

	require.NoError(t, c.FetchFiles(ctx, "experiment", "n1", files))
	assert.Equal(t, int32(1), calls.Load())

	body, err := os.ReadFile(c.CachePath("n1", "data.csv"))
	require.NoError(t, err)
	assert.Equal(t, "file body", string(body))
	assert.True(t, c.IsCached("n1", "data.csv"))

	// Cached files are not downloaded again.
	require.NoError(t, c.FetchFiles(ctx, "experiment", "n1", files))
	assert.Equal(t, int32(1), calls.Load())
}
