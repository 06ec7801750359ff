package handler_test

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/vscoffline/mirror-backend/internal/config"
	"github.com/vscoffline/mirror-backend/internal/gallery"
	"github.com/vscoffline/mirror-backend/internal/handler"
	"github.com/vscoffline/mirror-backend/internal/manifest"
	"github.com/vscoffline/mirror-backend/internal/model"
	"github.com/vscoffline/mirror-backend/internal/pkg/filehash"
	"github.com/vscoffline/mirror-backend/internal/vercomp"
	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestApp(t *testing.T, root string) (*fiber.App, *config.Config) {
	t.Helper()
	conf := &config.Config{
		Artifacts: config.ArtifactsConfig{
			Root:    root,
			URLRoot: "http://mirror.local:9000",
		},
		Gallery: config.GalleryConfig{QueryCacheTTL: time.Minute},
	}

	catalog := gallery.NewCatalog(conf, vercomp.NewComparator(), zap.NewNop())
	catalog.Rebuild(context.Background())

	app := fiber.New(fiber.Config{
		JSONEncoder:  sonic.Marshal,
		JSONDecoder:  sonic.Unmarshal,
		ErrorHandler: handler.Error,
	})
	r := app.Group("/")
	handler.NewUpdateHandler(conf, zap.NewNop()).Register(r)
	handler.NewGalleryHandler(conf, zap.NewNop(), catalog).Register(r)
	handler.NewBrowseHandler(conf, zap.NewNop()).Register(r)
	handler.NewHeathCheckHandlerHandler().Register(r)
	return app, conf
}

func seedInstaller(t *testing.T, root, commit string, payload []byte) {
	t.Helper()
	dir := filepath.Join(root, "installers", "win32-x64", "stable")
	payloadPath := filepath.Join(dir, "vscode-1.73.1.zip")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(payloadPath, payload, 0o644))

	digest, err := filehash.Calculate(payloadPath)
	require.NoError(t, err)

	record := map[string]any{
		"version":    commit,
		"name":       "1.73.1",
		"sha256hash": digest,
	}
	require.NoError(t, manifest.Write(filepath.Join(dir, "latest.json"), record))
	require.NoError(t, manifest.Write(filepath.Join(dir, commit+".json"), record))
}

func TestGetUpdateNoUpdateAvailable(t *testing.T) {
	root := t.TempDir()
	seedInstaller(t, root, "commit123", []byte("payload"))
	app, _ := newTestApp(t, root)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/update/win32-x64/stable/commit123", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestGetUpdateProvidesLocalURL(t *testing.T) {
	root := t.TempDir()
	seedInstaller(t, root, "commit123", []byte("payload"))
	app, _ := newTestApp(t, root)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/update/win32-x64/stable/oldcommit", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var record map[string]any
	require.NoError(t, sonic.Unmarshal(body, &record))
	require.Equal(t, "http://mirror.local:9000/artifacts/installers/win32-x64/stable/vscode-1.73.1.zip", record["url"])
	require.Equal(t, "commit123", record["version"])
}

func TestGetUpdateDigestMismatch(t *testing.T) {
	root := t.TempDir()
	seedInstaller(t, root, "commit123", []byte("payload"))
	// corrupt the payload after the manifest recorded its digest
	payloadPath := filepath.Join(root, "installers", "win32-x64", "stable", "vscode-1.73.1.zip")
	require.NoError(t, os.WriteFile(payloadPath, []byte("tampered"), 0o644))

	app, _ := newTestApp(t, root)
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/update/win32-x64/stable/oldcommit", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestGetUpdateMissingPayload(t *testing.T) {
	root := t.TempDir()
	seedInstaller(t, root, "commit123", []byte("payload"))
	require.NoError(t, os.Remove(filepath.Join(root, "installers", "win32-x64", "stable", "vscode-1.73.1.zip")))

	app, _ := newTestApp(t, root)
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/update/win32-x64/stable/oldcommit", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetUpdateMissingBuildDir(t *testing.T) {
	app, _ := newTestApp(t, t.TempDir())

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/update/linux-x64/stable/commit", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestGetBinaryByCommitRedirects(t *testing.T) {
	root := t.TempDir()
	seedInstaller(t, root, "commit123", []byte("payload"))
	app, _ := newTestApp(t, root)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/commit:commit123/win32-x64/stable", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.Equal(t,
		"http://mirror.local:9000/artifacts/installers/win32-x64/stable/vscode-1.73.1.zip",
		resp.Header.Get("Location"))
}

func postQuery(t *testing.T, app *fiber.App, body string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/_apis/public/gallery/extensionquery", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func seedExtension(t *testing.T, root string) {
	t.Helper()
	ext := &model.Extension{
		Identity:      "ms-python.python",
		ExtensionID:   "id-python",
		ExtensionName: "python",
		DisplayName:   "Python",
		Publisher:     model.Publisher{PublisherName: "ms-python"},
		Versions:      []model.ExtensionVersion{{Version: "1.0.0"}},
	}
	require.NoError(t, manifest.Write(
		filepath.Join(root, "extensions", "ms-python.python", "latest.json"), ext))
}

func TestExtensionQuery(t *testing.T) {
	root := t.TempDir()
	seedExtension(t, root)
	app, _ := newTestApp(t, root)

	resp := postQuery(t, app,
		`{"filters":[{"criteria":[{"filterType":7,"value":"ms-python.python"}]}],"flags":914}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var envelope model.QueryResponse
	require.NoError(t, sonic.Unmarshal(body, &envelope))
	require.Len(t, envelope.Results, 1)
	require.Len(t, envelope.Results[0].Extensions, 1)
	require.Equal(t, "ms-python.python", envelope.Results[0].Extensions[0].Identity)
}

func TestExtensionQueryRejectsIncompleteBodies(t *testing.T) {
	app, _ := newTestApp(t, t.TempDir())

	// missing flags
	resp := postQuery(t, app, `{"filters":[{"criteria":[{"filterType":7,"value":"x"}]}]}`)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	// missing criteria
	resp = postQuery(t, app, `{"filters":[{"criteria":[]}],"flags":914}`)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = postQuery(t, app, `{"flags":914}`)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListEndpoints(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "malicious.json"), []byte(`{"malicious":[]}`), 0o644))
	app, _ := newTestApp(t, root)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/extensions/marketplace.json", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/extensions/workspaceRecommendations.json.gz", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestBrowseListsEntries(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "installers"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "updated.json"), []byte("{}"), 0o644))
	app, _ := newTestApp(t, root)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/browse", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `d <a href="/browse?path=installers">installers</a>`)
	require.Contains(t, string(body), `f <a href="/artifacts/updated.json">updated.json</a>`)
}

func TestBrowseRejectsEscapingPaths(t *testing.T) {
	app, _ := newTestApp(t, t.TempDir())

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/browse?path=..%2F..%2Fetc", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	app, _ := newTestApp(t, t.TempDir())

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	require.Equal(t, "OK", string(body))
}
