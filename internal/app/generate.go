package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ArmaanDK/galleryGenerator/internal/archive"
	"github.com/ArmaanDK/galleryGenerator/internal/classify"
	"github.com/ArmaanDK/galleryGenerator/internal/config"
	"github.com/ArmaanDK/galleryGenerator/internal/fetch"
	"github.com/ArmaanDK/galleryGenerator/internal/gallery"
	"github.com/ArmaanDK/galleryGenerator/internal/ingest"
	"github.com/ArmaanDK/galleryGenerator/internal/model"
	"github.com/ArmaanDK/galleryGenerator/internal/scan"
	"github.com/ArmaanDK/galleryGenerator/internal/thumbnail"

	"github.com/spf13/pflag"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// GenerateCommand runs the full pipeline: walk the art tree, ingest every
// post and assemble the static gallery.
type GenerateCommand struct {
	artDir     string
	outputDir  string
	configPath string
	title      string
	extract    bool
	download   bool
	verbose    bool

	cfg *config.Config
}

func NewGenerateCommand() *GenerateCommand { return &GenerateCommand{} }

func (c *GenerateCommand) Name() string { return "generate" }

func (c *GenerateCommand) Desc() string {
	return "Build a static gallery site from an artist/post directory tree"
}

func (c *GenerateCommand) Init(f *pflag.FlagSet) {
	f.StringVar(&c.artDir, "dir", "", "art root directory (artist/post layout)")
	f.StringVar(&c.outputDir, "out", "", "output directory for the generated site")
	f.StringVar(&c.configPath, "config", "", "config file path")
	f.StringVar(&c.title, "title", "Gallery", "site title")
	f.BoolVar(&c.extract, "extract", true, "extract archives found in post directories")
	f.BoolVar(&c.download, "download", false, "download content referenced by links manifests")
	f.BoolVar(&c.verbose, "verbose", false, "log every skipped file")
}

func (c *GenerateCommand) PreRun(ctx context.Context) error {
	if strings.TrimSpace(c.artDir) == "" || strings.TrimSpace(c.outputDir) == "" {
		return errors.New("generate requires --dir and --out")
	}
	info, err := os.Stat(c.artDir)
	if err != nil {
		return fmt.Errorf("stat art dir %s: %w", c.artDir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("art dir %s is not a directory", c.artDir)
	}

	cfg, err := loadConfig(c.configPath)
	if err != nil {
		return err
	}
	c.cfg = cfg

	logutil.GetLogger(ctx).Info("starting generate",
		zap.String("dir", c.artDir),
		zap.String("out", c.outputDir),
		zap.Bool("extract", c.extract),
		zap.Bool("download", c.download),
	)
	return nil
}

func (c *GenerateCommand) Run(ctx context.Context) error {
	logger := logutil.GetLogger(ctx)

	cls := classify.New(c.cfg, c.verbose)
	coordinator := ingest.New(
		cls,
		archive.New(c.cfg, cls),
		fetch.New(c.cfg),
		thumbnail.New(ctx, c.cfg, cls),
		ingest.Options{
			ExtractArchives: c.extract,
			FetchContent:    c.download,
			ThumbnailDir:    filepath.Join(c.outputDir, "thumbnails"),
		},
	)

	posts, artists, err := scan.Walk(ctx, c.artDir)
	if err != nil {
		return err
	}
	if len(posts) == 0 {
		logger.Warn("no posts discovered", zap.String("dir", c.artDir))
	}

	stats := model.RunStats{Artists: artists}
	manifests := make([]*model.PostManifest, 0, len(posts))
	for _, post := range posts {
		m := coordinator.ProcessPost(ctx, post)
		stats.AddManifest(m)
		manifests = append(manifests, m)
	}

	assembler := gallery.New(c.outputDir, c.title)
	if err := assembler.Assemble(ctx, manifests, stats); err != nil {
		return err
	}

	logger.Info("generate completed",
		zap.Int("artists", stats.Artists),
		zap.Int("posts", stats.Posts),
		zap.Int("media_files", stats.MediaFiles),
		zap.Int("archives_processed", stats.ArchivesProcessed),
		zap.Int("files_extracted", stats.FilesExtracted),
		zap.Int("preserved_files", stats.PreservedFiles),
		zap.Int("downloads_ok", stats.DownloadsSucceeded),
		zap.Int("downloads_skipped", stats.DownloadsSkipped),
		zap.Int("downloads_failed", stats.DownloadsFailed),
		zap.Int("thumbnails", stats.ThumbnailsGenerated),
	)
	return nil
}

func (c *GenerateCommand) PostRun(ctx context.Context) error { return nil }

func init() {
	RegisterRunner("generate", func() IRunner { return NewGenerateCommand() })
}
