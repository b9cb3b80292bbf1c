package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/ArmaanDK/galleryGenerator/internal/config"
	"github.com/ArmaanDK/galleryGenerator/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFetcher(t *testing.T) *Fetcher {
	t.Helper()
	cfg := config.Default()
	cfg.Fetch.HostIntervalMilli = 1
	return New(cfg)
}

func writeLinks(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "links-post.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestSkipFilterIssuesNoRequest(t *testing.T) {
	t.Parallel()

	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	dir := t.TempDir()
	linksPath := writeLinks(t, dir, "https://www.patreon.com/c/someartist/shop-item")

	results := newTestFetcher(t).ProcessLinksFile(context.Background(), linksPath, filepath.Join(dir, DownloadDirName))
	require.Len(t, results, 1)
	assert.Equal(t, model.DownloadSkipped, results[0].Status)
	assert.Zero(t, hits.Load(), "skipped URLs must not be fetched")
}

func TestDownloadSuccessWithContentDisposition(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Disposition", `attachment; filename="artwork.png"`)
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("png-bytes"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	linksPath := writeLinks(t, dir, srv.URL+"/share")
	downloadDir := filepath.Join(dir, DownloadDirName)

	results := newTestFetcher(t).ProcessLinksFile(context.Background(), linksPath, downloadDir)
	require.Len(t, results, 1)
	assert.Equal(t, model.DownloadSuccess, results[0].Status)
	assert.Equal(t, filepath.Join(downloadDir, "artwork.png"), results[0].LocalPath)

	data, err := os.ReadFile(results[0].LocalPath)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))
}

func TestDownloadNameCollision(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		fmt.Fprint(w, "payload-", r.URL.Query().Get("v"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	linksPath := writeLinks(t, dir,
		srv.URL+"/a.bin?v=1\n"+srv.URL+"/a.bin?v=2\n")
	downloadDir := filepath.Join(dir, DownloadDirName)

	results := newTestFetcher(t).ProcessLinksFile(context.Background(), linksPath, downloadDir)
	require.Len(t, results, 2)
	assert.Equal(t, filepath.Join(downloadDir, "a.bin"), results[0].LocalPath)
	assert.Equal(t, filepath.Join(downloadDir, "a_1.bin"), results[1].LocalPath)
}

func TestInterstitialConfirmationFollowed(t *testing.T) {
	t.Parallel()

	var mux http.ServeMux
	mux.HandleFunc("/file", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("confirm") == "tok123" {
			w.Header().Set("Content-Type", "application/zip")
			w.Write([]byte("zip-bytes"))
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><body>Virus scan warning
			<a id="uc-download-link" href="/file?confirm=tok123">Download anyway</a>
			</body></html>`)
	})
	srv := httptest.NewServer(&mux)
	defer srv.Close()

	dir := t.TempDir()
	linksPath := writeLinks(t, dir, srv.URL+"/file")
	downloadDir := filepath.Join(dir, DownloadDirName)

	results := newTestFetcher(t).ProcessLinksFile(context.Background(), linksPath, downloadDir)
	require.Len(t, results, 1)
	require.Equal(t, model.DownloadSuccess, results[0].Status)

	data, err := os.ReadFile(results[0].LocalPath)
	require.NoError(t, err)
	assert.Equal(t, "zip-bytes", string(data))
}

func TestInterstitialWithoutConfirmationFails(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html><body>scan warning, nothing to click</body></html>")
	}))
	defer srv.Close()

	dir := t.TempDir()
	linksPath := writeLinks(t, dir, srv.URL+"/file")

	results := newTestFetcher(t).ProcessLinksFile(context.Background(), linksPath, filepath.Join(dir, DownloadDirName))
	require.Len(t, results, 1)
	assert.Equal(t, model.DownloadFailed, results[0].Status)
	assert.Contains(t, results[0].Reason, "no confirmation link")
}

func TestHTTPErrorIsRecordedAndProcessingContinues(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.png" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	linksPath := writeLinks(t, dir, srv.URL+"/missing.png\n"+srv.URL+"/ok.png\n")

	results := newTestFetcher(t).ProcessLinksFile(context.Background(), linksPath, filepath.Join(dir, DownloadDirName))
	require.Len(t, results, 2)
	assert.Equal(t, model.DownloadFailed, results[0].Status)
	assert.Contains(t, results[0].Reason, "404")
	assert.Equal(t, model.DownloadSuccess, results[1].Status)
}

func TestProcessPostFindsManifests(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	postDir := t.TempDir()
	writeLinks(t, postDir, srv.URL+"/pic.png")

	results := newTestFetcher(t).ProcessPost(context.Background(), postDir)
	require.Len(t, results, 1)
	assert.Equal(t, model.DownloadSuccess, results[0].Status)
	assert.FileExists(t, filepath.Join(postDir, DownloadDirName, "pic.png"))
}

func TestProcessPostWithoutManifests(t *testing.T) {
	t.Parallel()

	postDir := t.TempDir()
	results := newTestFetcher(t).ProcessPost(context.Background(), postDir)
	assert.Empty(t, results)

	_, err := os.Stat(filepath.Join(postDir, DownloadDirName))
	assert.True(t, os.IsNotExist(err), "no downloads dir may appear without manifests")
}
