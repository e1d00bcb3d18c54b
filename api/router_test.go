package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ytd-go/ytd/internal/app"
	"github.com/ytd-go/ytd/internal/domain"
	"github.com/ytd-go/ytd/internal/infrastructure"
)

func setupTestServer(t *testing.T, script string, withHistory bool) (*httptest.Server, string) {
	t.Helper()

	bin := filepath.Join(t.TempDir(), "fake-downloader")
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\n"+script+"\n"), 0755))

	var repo domain.DownloadRepository
	if withHistory {
		sqliteRepo, err := infrastructure.NewSQLiteDownloadRepository(filepath.Join(t.TempDir(), "history.db"))
		require.NoError(t, err)
		t.Cleanup(func() { sqliteRepo.Close() })
		repo = sqliteRepo
	}

	outputDir := t.TempDir()
	service := app.NewDownloadService(repo, &domain.DownloaderConfig{
		Binary:          bin,
		OutputDir:       outputDir,
		AllowedArgs:     []string{"--quiet", "--format"},
		ConcurrentLimit: 2,
	}, zap.NewNop())

	server := httptest.NewServer(SetupRouter(service, zap.NewNop()))
	t.Cleanup(server.Close)
	return server, outputDir
}

func postDownload(t *testing.T, server *httptest.Server, payload interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)

	resp, err := http.Post(server.URL+"/api/v1/downloads", "application/json", bytes.NewBuffer(data))
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp, body
}

func getRecords(t *testing.T, server *httptest.Server, query url.Values) []map[string]interface{} {
	t.Helper()
	resp, err := http.Get(server.URL + "/api/v1/downloads?" + query.Encode())
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var records []map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&records))
	return records
}

func TestAPI_Health(t *testing.T) {
	server, _ := setupTestServer(t, "exit 0", false)

	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, false, body["history"])
}

func TestAPI_RunDownload_Success(t *testing.T) {
	server, outputDir := setupTestServer(t, `echo "fetched $2"`, true)

	resp, body := postDownload(t, server, map[string]interface{}{
		"args":  []map[string]string{{"name": "--quiet"}},
		"links": []string{"https://example.com/v"},
	})

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "SUCCESS", body["result"])
	assert.Contains(t, body["output"], "fetched https://example.com/v")
	assert.Equal(t, outputDir, body["output_dir"])
	assert.NotEmpty(t, body["id"])

	// the record is retrievable afterwards
	getResp, err := http.Get(server.URL + "/api/v1/downloads/" + body["id"].(string))
	require.NoError(t, err)
	defer getResp.Body.Close()
	assert.Equal(t, http.StatusOK, getResp.StatusCode)
}

func TestAPI_RunDownload_Failure(t *testing.T) {
	server, _ := setupTestServer(t, "echo err >&2\nexit 2", true)

	resp, body := postDownload(t, server, map[string]interface{}{
		"links": []string{"https://example.com/gone"},
	})

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "FAILURE", body["result"])
	assert.Contains(t, body["output"], "err")
}

func TestAPI_RunDownload_BadRequests(t *testing.T) {
	server, outputDir := setupTestServer(t, "exit 0", false)

	resp, _ := postDownload(t, server, map[string]interface{}{"args": []map[string]string{{"name": "--quiet"}}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// args are objects, not "name value" strings
	resp, _ = postDownload(t, server, map[string]interface{}{
		"args":  []string{"--quiet"},
		"links": []string{"https://example.com/v"},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = postDownload(t, server, map[string]interface{}{
		"args":  []map[string]string{{"value": "best"}},
		"links": []string{"https://example.com/v"},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body := postDownload(t, server, map[string]interface{}{
		"output_dir": filepath.Join(outputDir, "missing"),
		"links":      []string{"https://example.com/v"},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["error"], "invalid output directory")
}

func TestAPI_RunDownload_RequiresJSON(t *testing.T) {
	server, outputDir := setupTestServer(t, "touch ran", false)

	// a cross-site form can send this without a preflight
	body := `{"links":["https://example.com/v"]}`
	for _, contentType := range []string{"text/plain", "application/x-www-form-urlencoded", ""} {
		req, err := http.NewRequest(http.MethodPost, server.URL+"/api/v1/downloads", bytes.NewBufferString(body))
		require.NoError(t, err)
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode, contentType)
	}
	assert.NoFileExists(t, filepath.Join(outputDir, "ran"))

	resp, err := http.Post(server.URL+"/api/v1/downloads", "application/json; charset=utf-8", bytes.NewBufferString(body))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.FileExists(t, filepath.Join(outputDir, "ran"))
}

func TestAPI_RunDownload_ArgAllowlist(t *testing.T) {
	server, outputDir := setupTestServer(t, `touch ran; echo "args: $*"`, false)

	resp, body := postDownload(t, server, map[string]interface{}{
		"args":  []map[string]string{{"name": "--exec", "value": "touch pwned"}},
		"links": []string{"https://example.com/v"},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["error"], "argument not allowed")
	assert.NoFileExists(t, filepath.Join(outputDir, "ran"))

	resp, body = postDownload(t, server, map[string]interface{}{
		"args":  []map[string]string{{"name": "--format", "value": "best audio"}, {"name": "--quiet"}},
		"links": []string{"https://example.com/v"},
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body["output"], "args: --format best audio --quiet https://example.com/v")
}

func TestAPI_RunDownload_OutputDirOutsideRoot(t *testing.T) {
	server, outputDir := setupTestServer(t, "touch ran", false)
	other := t.TempDir()

	resp, body := postDownload(t, server, map[string]interface{}{
		"output_dir": other,
		"links":      []string{"https://example.com/v"},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["error"], "output directory not allowed")
	assert.NoFileExists(t, filepath.Join(other, "ran"))

	sub := filepath.Join(outputDir, "music")
	require.NoError(t, os.Mkdir(sub, 0755))
	resp, _ = postDownload(t, server, map[string]interface{}{
		"output_dir": sub,
		"links":      []string{"https://example.com/v"},
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.FileExists(t, filepath.Join(sub, "ran"))
}

func TestAPI_ListAndStats(t *testing.T) {
	server, _ := setupTestServer(t, `[ "$1" = "https://example.com/bad" ] && exit 1; exit 0`, true)

	postDownload(t, server, map[string]interface{}{"links": []string{"https://example.com/ok"}})
	postDownload(t, server, map[string]interface{}{"links": []string{"https://example.com/bad"}})

	records := getRecords(t, server, url.Values{"result": {"FAILURE"}})
	require.Len(t, records, 1)
	assert.Equal(t, "https://example.com/bad", records[0]["links"])

	statsResp, err := http.Get(server.URL + "/api/v1/downloads/stats")
	require.NoError(t, err)
	defer statsResp.Body.Close()

	var stats domain.DownloadStats
	require.NoError(t, json.NewDecoder(statsResp.Body).Decode(&stats))
	assert.Equal(t, int64(2), stats.Total)
	assert.Equal(t, int64(1), stats.Success)
	assert.Equal(t, int64(1), stats.Failure)

	badResp, err := http.Get(server.URL + "/api/v1/downloads?result=MAYBE")
	require.NoError(t, err)
	defer badResp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, badResp.StatusCode)
}

func TestAPI_ListFilters(t *testing.T) {
	server, outputDir := setupTestServer(t, "exit 0", true)
	sub := filepath.Join(outputDir, "music")
	require.NoError(t, os.Mkdir(sub, 0755))

	postDownload(t, server, map[string]interface{}{"links": []string{"https://example.com/a"}})
	postDownload(t, server, map[string]interface{}{"output_dir": sub, "links": []string{"https://example.com/b"}})

	all := getRecords(t, server, url.Values{})
	require.Len(t, all, 2)
	binary := all[0]["binary"].(string)

	byDir := getRecords(t, server, url.Values{"output_dir": {sub}})
	require.Len(t, byDir, 1)
	assert.Equal(t, "https://example.com/b", byDir[0]["links"])

	assert.Len(t, getRecords(t, server, url.Values{"binary": {binary}}), 2)
	assert.Empty(t, getRecords(t, server, url.Values{"binary": {"yt-dlp"}}))
	assert.Len(t, getRecords(t, server, url.Values{"binary": {binary}, "output_dir": {outputDir}, "result": {"SUCCESS"}}), 1)
}

func TestAPI_GetAndDelete_NotFound(t *testing.T) {
	server, _ := setupTestServer(t, "exit 0", true)

	resp, err := http.Get(server.URL + "/api/v1/downloads/missing")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	req, err := http.NewRequest(http.MethodDelete, server.URL+"/api/v1/downloads/missing", nil)
	require.NoError(t, err)
	delResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer delResp.Body.Close()
	assert.Equal(t, http.StatusNotFound, delResp.StatusCode)
}

func TestAPI_HistoryDisabled(t *testing.T) {
	server, _ := setupTestServer(t, "exit 0", false)

	resp, err := http.Get(server.URL + "/api/v1/downloads")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)
}
