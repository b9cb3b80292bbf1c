// Package ingest drives the per-post pipeline: extract archives, fetch linked
// content, classify everything that ended up on disk and produce the manifest
// the gallery assembler consumes. Posts are processed one at a time and no
// component failure is allowed to abort the run.
package ingest

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ArmaanDK/galleryGenerator/internal/archive"
	"github.com/ArmaanDK/galleryGenerator/internal/classify"
	"github.com/ArmaanDK/galleryGenerator/internal/fetch"
	"github.com/ArmaanDK/galleryGenerator/internal/fsutil"
	"github.com/ArmaanDK/galleryGenerator/internal/model"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// Thumbnailer produces a preview still for a video, returning its path or an
// empty string when none could be made.
type Thumbnailer interface {
	EnsureThumbnail(ctx context.Context, videoPath, outputPath string) string
}

// Options toggle the optional pipeline stages.
type Options struct {
	ExtractArchives bool
	FetchContent    bool
	// ThumbnailDir is the root under which video stills are written, laid
	// out as <artist>/<post>/<video>_thumb.jpg. Empty disables thumbnails.
	ThumbnailDir string
}

// Coordinator runs the ingestion stages for one post after another.
type Coordinator struct {
	classifier *classify.Classifier
	extractor  *archive.Extractor
	fetcher    *fetch.Fetcher
	thumbs     Thumbnailer
	opts       Options
}

// New wires a coordinator from its stage components. Extractor and fetcher
// may be nil when the corresponding option is off.
func New(cls *classify.Classifier, ext *archive.Extractor, fet *fetch.Fetcher, thumbs Thumbnailer, opts Options) *Coordinator {
	return &Coordinator{
		classifier: cls,
		extractor:  ext,
		fetcher:    fet,
		thumbs:     thumbs,
		opts:       opts,
	}
}

// ProcessPost runs all enabled stages for one post and returns its manifest.
// Stage failures are recorded in the manifest, never escalated.
func (c *Coordinator) ProcessPost(ctx context.Context, post model.Post) *model.PostManifest {
	logger := logutil.GetLogger(ctx)
	logger.Info("processing post",
		zap.String("artist", post.Artist),
		zap.String("title", post.Title),
	)

	manifest := &model.PostManifest{Post: post}
	manifest.Extraction.Success = true

	if c.opts.ExtractArchives && c.extractor != nil {
		out, err := c.extractor.ExtractPost(ctx, post.Dir)
		if err != nil {
			logger.Warn("archive extraction failed",
				zap.String("post", post.Dir),
				zap.Error(err),
			)
			manifest.Extraction.Success = false
			manifest.Extraction.Failures = append(manifest.Extraction.Failures, err.Error())
		} else {
			manifest.Extraction = out.Result
			manifest.Preserved = out.Preserved
		}
	}

	if c.opts.FetchContent && c.fetcher != nil {
		manifest.Downloads = c.fetcher.ProcessPost(ctx, post.Dir)
	}

	manifest.Text = c.readPostText(post.Dir)
	manifest.Media = c.collectMedia(ctx, post.Dir)

	if c.opts.ThumbnailDir != "" && c.thumbs != nil {
		c.generateThumbnails(ctx, post, manifest.Media)
	}
	return manifest
}

// collectMedia enumerates the displayable files of a post: its own top level
// plus the extracted/ and downloads/ trees produced by earlier stages. Paths
// are relative to the post directory in slash form.
func (c *Coordinator) collectMedia(ctx context.Context, postDir string) []model.MediaEntry {
	var media []model.MediaEntry
	media = append(media, c.scanDir(ctx, postDir, "", model.OriginDirect)...)
	media = append(media, c.scanDir(ctx, postDir, archive.ExtractDirName, model.OriginExtracted)...)
	media = append(media, c.scanDir(ctx, postDir, fetch.DownloadDirName, model.OriginDownloaded)...)
	return media
}

func (c *Coordinator) scanDir(ctx context.Context, postDir, sub string, origin model.Origin) []model.MediaEntry {
	dir := postDir
	if sub != "" {
		dir = filepath.Join(postDir, sub)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			logutil.GetLogger(ctx).Warn("read media dir failed",
				zap.String("dir", filepath.ToSlash(dir)),
				zap.Error(err),
			)
		}
		return nil
	}

	var media []model.MediaEntry
	for _, ent := range entries {
		if ent.IsDir() {
			continue
		}
		d := c.classifier.Classify(ctx, ent.Name())
		if d.Skip || !classify.IsDisplayable(d.Category) {
			continue
		}
		rel := ent.Name()
		if sub != "" {
			rel = sub + "/" + rel
		}
		media = append(media, model.MediaEntry{
			Path:     rel,
			Category: d.Category,
			Origin:   origin,
		})
	}
	sort.Slice(media, func(i, j int) bool { return media[i].Path < media[j].Path })
	return media
}

func (c *Coordinator) generateThumbnails(ctx context.Context, post model.Post, media []model.MediaEntry) {
	thumbDir := filepath.Join(c.opts.ThumbnailDir, fsutil.SafeName(post.Artist), fsutil.SafeName(post.Title))
	for i := range media {
		if media[i].Category != model.CategoryVideo {
			continue
		}
		videoPath := filepath.Join(post.Dir, filepath.FromSlash(media[i].Path))
		base := filepath.Base(media[i].Path)
		stem := strings.TrimSuffix(base, filepath.Ext(base))
		out := filepath.Join(thumbDir, fsutil.SafeName(stem)+"_thumb.jpg")
		media[i].ThumbnailPath = c.thumbs.EnsureThumbnail(ctx, videoPath, out)
	}
}

// readPostText returns the display text of a post, taken from its first links
// manifest. Posts without one have no text.
func (c *Coordinator) readPostText(postDir string) string {
	matches, err := filepath.Glob(filepath.Join(postDir, "links-*.txt"))
	if err != nil || len(matches) == 0 {
		return ""
	}
	sort.Strings(matches)
	text, err := fetch.ReadLinksFile(matches[0])
	if err != nil {
		return ""
	}
	return strings.TrimSpace(text)
}
