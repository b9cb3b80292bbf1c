package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/ArmaanDK/galleryGenerator/internal/archive"
	"github.com/ArmaanDK/galleryGenerator/internal/fetch"
	"github.com/ArmaanDK/galleryGenerator/internal/scan"

	"github.com/spf13/pflag"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// CleanCommand removes the extracted/ and downloads/ directories earlier runs
// left inside post directories, restoring the source tree to its pre-run
// state. Original archives and links manifests are never touched.
type CleanCommand struct {
	artDir string
	dryRun bool
}

func NewCleanCommand() *CleanCommand { return &CleanCommand{} }

func (c *CleanCommand) Name() string { return "clean" }

func (c *CleanCommand) Desc() string {
	return "Remove extracted/ and downloads/ directories from the art tree"
}

func (c *CleanCommand) Init(f *pflag.FlagSet) {
	f.StringVar(&c.artDir, "dir", "", "art root directory (artist/post layout)")
	f.BoolVar(&c.dryRun, "dry-run", false, "only report what would be removed")
}

func (c *CleanCommand) PreRun(ctx context.Context) error {
	if strings.TrimSpace(c.artDir) == "" {
		return errors.New("clean requires --dir")
	}
	return nil
}

func (c *CleanCommand) Run(ctx context.Context) error {
	logger := logutil.GetLogger(ctx)

	posts, _, err := scan.Walk(ctx, c.artDir)
	if err != nil {
		return err
	}

	removed := 0
	for _, post := range posts {
		for _, sub := range []string{archive.ExtractDirName, fetch.DownloadDirName} {
			dir := filepath.Join(post.Dir, sub)
			if _, err := os.Stat(dir); err != nil {
				continue
			}
			if c.dryRun {
				logger.Info("would remove", zap.String("dir", filepath.ToSlash(dir)))
				removed++
				continue
			}
			if err := os.RemoveAll(dir); err != nil {
				logger.Warn("remove dir failed",
					zap.String("dir", filepath.ToSlash(dir)),
					zap.Error(err),
				)
				continue
			}
			logger.Debug("removed", zap.String("dir", filepath.ToSlash(dir)))
			removed++
		}
	}

	logger.Info("clean completed",
		zap.Int("dirs", removed),
		zap.Bool("dry_run", c.dryRun),
	)
	return nil
}

func (c *CleanCommand) PostRun(ctx context.Context) error { return nil }

func init() {
	RegisterRunner("clean", func() IRunner { return NewCleanCommand() })
}
