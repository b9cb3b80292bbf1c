package archive

import (
	"archive/zip"
	"context"
	"crypto/md5"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ArmaanDK/galleryGenerator/internal/classify"
	"github.com/ArmaanDK/galleryGenerator/internal/config"
	"github.com/ArmaanDK/galleryGenerator/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestExtractor(t *testing.T) *Extractor {
	t.Helper()
	cfg := config.Default()
	return New(cfg, classify.New(cfg, false))
}

func writeZip(t *testing.T, path string, files map[string]string) {
	t.Helper()
	out, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(out)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, out.Close())
}

func hashFile(t *testing.T, path string) string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	h := md5.New()
	_, err = io.Copy(h, f)
	require.NoError(t, err)
	return hex.EncodeToString(h.Sum(nil))
}

func TestExtractEmptyPostDir(t *testing.T) {
	t.Parallel()

	postDir := t.TempDir()
	out, err := newTestExtractor(t).ExtractPost(context.Background(), postDir)
	require.NoError(t, err)

	assert.True(t, out.Result.Success)
	assert.Zero(t, out.Result.ArchivesProcessed)
	assert.Zero(t, out.Result.FilesFound)
	_, statErr := os.Stat(filepath.Join(postDir, ExtractDirName))
	assert.True(t, os.IsNotExist(statErr), "extracted dir must not be created for empty posts")
}

func TestExtractFlattensNestedDirs(t *testing.T) {
	t.Parallel()

	postDir := t.TempDir()
	writeZip(t, filepath.Join(postDir, "bundle.zip"), map[string]string{
		"folder1/folder2/image.png": "png-bytes",
	})

	out, err := newTestExtractor(t).ExtractPost(context.Background(), postDir)
	require.NoError(t, err)
	assert.True(t, out.Result.Success)
	assert.Equal(t, 1, out.Result.FilesExtracted)

	extracted := filepath.Join(postDir, ExtractDirName)
	assert.FileExists(t, filepath.Join(extracted, "image.png"))
	_, statErr := os.Stat(filepath.Join(extracted, "folder1"))
	assert.True(t, os.IsNotExist(statErr), "nested dirs must be removed after flattening")
}

func TestExtractNeverOverwrites(t *testing.T) {
	t.Parallel()

	postDir := t.TempDir()
	writeZip(t, filepath.Join(postDir, "a.zip"), map[string]string{"a.png": "first"})
	writeZip(t, filepath.Join(postDir, "b.zip"), map[string]string{"a.png": "second"})

	out, err := newTestExtractor(t).ExtractPost(context.Background(), postDir)
	require.NoError(t, err)
	assert.Equal(t, 2, out.Result.FilesExtracted)
	assert.Len(t, out.Result.Conflicts, 1)

	extracted := filepath.Join(postDir, ExtractDirName)
	assert.FileExists(t, filepath.Join(extracted, "a.png"))
	assert.FileExists(t, filepath.Join(extracted, "a_1.png"))
}

func TestExtractRejectsPathTraversal(t *testing.T) {
	t.Parallel()

	postDir := t.TempDir()
	writeZip(t, filepath.Join(postDir, "evil.zip"), map[string]string{
		"../../etc/passwd.png": "nope",
		"ok.png":               "fine",
	})

	out, err := newTestExtractor(t).ExtractPost(context.Background(), postDir)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Result.RejectedPaths)
	assert.Equal(t, 1, out.Result.FilesExtracted)

	_, statErr := os.Stat(filepath.Join(postDir, "..", "..", "etc", "passwd.png"))
	assert.True(t, os.IsNotExist(statErr), "traversal entry must never land outside the target")
}

func TestExtractSkipsSystemFiles(t *testing.T) {
	t.Parallel()

	postDir := t.TempDir()
	writeZip(t, filepath.Join(postDir, "art.zip"), map[string]string{
		"art.png":          "real",
		"._art.png":        "resource fork",
		"__MACOSX/art.png": "metadata",
		".DS_Store":        "junk",
		"notes/readme.bin": "unsupported",
	})

	out, err := newTestExtractor(t).ExtractPost(context.Background(), postDir)
	require.NoError(t, err)
	assert.Equal(t, 5, out.Result.FilesFound)
	assert.Equal(t, 1, out.Result.FilesExtracted)
	assert.Equal(t, 3, out.Result.SkippedSystem)
	assert.Equal(t, 1, out.Result.SkippedUnsupported)
	assert.FileExists(t, filepath.Join(postDir, ExtractDirName, "art.png"))
}

func TestExtractPreservesArtworkSources(t *testing.T) {
	t.Parallel()

	postDir := t.TempDir()
	writeZip(t, filepath.Join(postDir, "src.zip"), map[string]string{
		"work/source.psd": "layers",
	})

	out, err := newTestExtractor(t).ExtractPost(context.Background(), postDir)
	require.NoError(t, err)
	require.Len(t, out.Preserved, 1)
	assert.Equal(t, "extracted/source.psd", out.Preserved[0].Path)
	assert.Equal(t, "src.zip", out.Preserved[0].Archive)
	assert.Equal(t, model.CategoryPreserve, out.Preserved[0].Category)
}

func TestExtractIsNonDestructive(t *testing.T) {
	t.Parallel()

	postDir := t.TempDir()
	zipPath := filepath.Join(postDir, "bundle.zip")
	writeZip(t, zipPath, map[string]string{"a.png": "content"})
	before := hashFile(t, zipPath)

	_, err := newTestExtractor(t).ExtractPost(context.Background(), postDir)
	require.NoError(t, err)
	assert.Equal(t, before, hashFile(t, zipPath))
}

func TestExtractContinuesPastCorruptArchive(t *testing.T) {
	t.Parallel()

	postDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(postDir, "broken.zip"), []byte("not a zip"), 0o644))
	writeZip(t, filepath.Join(postDir, "good.zip"), map[string]string{"a.png": "fine"})

	out, err := newTestExtractor(t).ExtractPost(context.Background(), postDir)
	require.NoError(t, err)
	assert.False(t, out.Result.Success)
	assert.Len(t, out.Result.Failures, 1)
	assert.Equal(t, 1, out.Result.ArchivesProcessed)
	assert.FileExists(t, filepath.Join(postDir, ExtractDirName, "a.png"))
}

func TestExtractSkipsOversizeEntries(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Extract.MaxFileSizeMB = 1
	e := New(cfg, classify.New(cfg, false))

	postDir := t.TempDir()
	writeZip(t, filepath.Join(postDir, "mixed.zip"), map[string]string{
		"huge.png":  strings.Repeat("x", 2<<20),
		"small.png": "fine",
	})

	out, err := e.ExtractPost(context.Background(), postDir)
	require.NoError(t, err)
	assert.True(t, out.Result.Success, "oversize entries are skipped, never fatal")
	assert.Equal(t, 1, out.Result.SkippedOversize)
	assert.Equal(t, 1, out.Result.FilesExtracted)
	assert.FileExists(t, filepath.Join(postDir, ExtractDirName, "small.png"))
	_, statErr := os.Stat(filepath.Join(postDir, ExtractDirName, "huge.png"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestExtractStopsAtArchiveBudget(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Extract.MaxTotalSizeMB = 1
	e := New(cfg, classify.New(cfg, false))

	postDir := t.TempDir()
	writeZip(t, filepath.Join(postDir, "bundle.zip"), map[string]string{
		"a.png": strings.Repeat("x", 700<<10),
		"b.png": strings.Repeat("y", 700<<10),
	})

	out, err := e.ExtractPost(context.Background(), postDir)
	require.NoError(t, err)
	assert.True(t, out.Result.Success)
	assert.Equal(t, 1, out.Result.FilesExtracted)
	assert.Equal(t, 1, out.Result.SkippedOversize)
}

func TestExtractContinuesPastCorruptSevenZip(t *testing.T) {
	t.Parallel()

	postDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(postDir, "bad.7z"), []byte("not a 7z"), 0o644))
	writeZip(t, filepath.Join(postDir, "good.zip"), map[string]string{"a.png": "fine"})

	out, err := newTestExtractor(t).ExtractPost(context.Background(), postDir)
	require.NoError(t, err)
	assert.False(t, out.Result.Success)
	require.Len(t, out.Result.Failures, 1)
	assert.Contains(t, out.Result.Failures[0], "bad.7z")
	assert.Contains(t, out.Result.Failures[0], "corrupt")
	assert.Equal(t, 1, out.Result.ArchivesProcessed)
	assert.FileExists(t, filepath.Join(postDir, ExtractDirName, "a.png"))
}

func TestSanitizeEntryName(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"a.png", "a.png", true},
		{"dir/a.png", "dir/a.png", true},
		{"dir//a.png", "dir/a.png", true},
		{"dir/../a.png", "a.png", true},
		{"../../etc/passwd", "", false},
		{"..", "", false},
		{"/abs/path.png", "", false},
		{"C:/evil.png", "", false},
		{"C:\\evil.png", "", false},
	}
	for _, tc := range cases {
		got, ok := sanitizeEntryName(tc.in)
		assert.Equal(t, tc.ok, ok, "entry %q", tc.in)
		if tc.ok {
			assert.Equal(t, tc.want, got, "entry %q", tc.in)
		}
	}
}
