package ingest

import (
	"archive/zip"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/ArmaanDK/galleryGenerator/internal/archive"
	"github.com/ArmaanDK/galleryGenerator/internal/classify"
	"github.com/ArmaanDK/galleryGenerator/internal/config"
	"github.com/ArmaanDK/galleryGenerator/internal/fetch"
	"github.com/ArmaanDK/galleryGenerator/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeThumbnailer struct {
	calls []string
}

func (f *fakeThumbnailer) EnsureThumbnail(_ context.Context, videoPath, outputPath string) string {
	f.calls = append(f.calls, videoPath)
	return outputPath
}

func writeZip(t *testing.T, path string, files map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := zip.NewWriter(f)
	for name, content := range files {
		entry, err := w.Create(name)
		require.NoError(t, err)
		_, err = entry.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
}

func newCoordinator(t *testing.T, opts Options, thumbs Thumbnailer) *Coordinator {
	t.Helper()
	cfg := config.Default()
	cfg.Fetch.HostIntervalMilli = 1
	cls := classify.New(cfg, false)
	return New(cls, archive.New(cfg, cls), fetch.New(cfg), thumbs, opts)
}

func TestProcessPostFullPipeline(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("remote"))
	}))
	defer srv.Close()

	postDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(postDir, "direct.png"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(postDir, "clip.mp4"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(postDir, ".DS_Store"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(postDir, "links-post.txt"),
		[]byte("grab "+srv.URL+"/bonus.png"), 0o644))
	writeZip(t, filepath.Join(postDir, "pack.zip"), map[string]string{
		"inner/nested.png": "y",
	})

	thumbs := &fakeThumbnailer{}
	c := newCoordinator(t, Options{
		ExtractArchives: true,
		FetchContent:    true,
		ThumbnailDir:    filepath.Join(t.TempDir(), "thumbnails"),
	}, thumbs)

	m := c.ProcessPost(context.Background(), model.Post{
		Artist: "artist", Title: "post", Date: "2024-01-01", Dir: postDir,
	})

	require.True(t, m.Extraction.Success)
	assert.Equal(t, 1, m.Extraction.ArchivesProcessed)
	assert.Equal(t, 1, m.Extraction.FilesExtracted)

	require.Len(t, m.Downloads, 1)
	assert.Equal(t, model.DownloadSuccess, m.Downloads[0].Status)

	var paths []string
	origins := map[string]model.Origin{}
	for _, entry := range m.Media {
		paths = append(paths, entry.Path)
		origins[entry.Path] = entry.Origin
	}
	assert.ElementsMatch(t, []string{
		"direct.png",
		"clip.mp4",
		"extracted/nested.png",
		"downloads/bonus.png",
	}, paths)
	assert.Equal(t, model.OriginDirect, origins["direct.png"])
	assert.Equal(t, model.OriginExtracted, origins["extracted/nested.png"])
	assert.Equal(t, model.OriginDownloaded, origins["downloads/bonus.png"])

	require.Len(t, thumbs.calls, 1)
	assert.Equal(t, filepath.Join(postDir, "clip.mp4"), thumbs.calls[0])
	for _, entry := range m.Media {
		if entry.Category == model.CategoryVideo {
			assert.NotEmpty(t, entry.ThumbnailPath)
		} else {
			assert.Empty(t, entry.ThumbnailPath)
		}
	}

	assert.Contains(t, m.Text, "bonus.png")
}

func TestProcessPostStagesDisabled(t *testing.T) {
	t.Parallel()

	postDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(postDir, "art.png"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(postDir, "links-post.txt"),
		[]byte("https://example.invalid/skip.png"), 0o644))
	writeZip(t, filepath.Join(postDir, "pack.zip"), map[string]string{"a.png": "y"})

	c := newCoordinator(t, Options{}, nil)
	m := c.ProcessPost(context.Background(), model.Post{Artist: "a", Title: "p", Dir: postDir})

	assert.True(t, m.Extraction.Success)
	assert.Zero(t, m.Extraction.ArchivesProcessed)
	assert.Empty(t, m.Downloads)
	assert.NoDirExists(t, filepath.Join(postDir, archive.ExtractDirName))
	assert.NoDirExists(t, filepath.Join(postDir, fetch.DownloadDirName))

	require.Len(t, m.Media, 1)
	assert.Equal(t, "art.png", m.Media[0].Path)
}

func TestProcessPostSkipsSystemFiles(t *testing.T) {
	t.Parallel()

	postDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(postDir, "._art.png"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(postDir, "Thumbs.db"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(postDir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(postDir, "real.jpg"), []byte("x"), 0o644))

	c := newCoordinator(t, Options{}, nil)
	m := c.ProcessPost(context.Background(), model.Post{Artist: "a", Title: "p", Dir: postDir})

	require.Len(t, m.Media, 1)
	assert.Equal(t, "real.jpg", m.Media[0].Path)
	assert.Empty(t, m.Text)
}
