package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"strings"

	"github.com/ArmaanDK/galleryGenerator/internal/storage"

	"github.com/spf13/pflag"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// PublishCommand uploads a generated gallery directory to object storage,
// preserving the relative layout so index.html links keep working.
type PublishCommand struct {
	galleryDir string
	configPath string
	keyPrefix  string
	clear      bool
}

func NewPublishCommand() *PublishCommand { return &PublishCommand{} }

func (c *PublishCommand) Name() string { return "publish" }

func (c *PublishCommand) Desc() string {
	return "Upload a generated gallery to S3 compatible object storage"
}

func (c *PublishCommand) Init(f *pflag.FlagSet) {
	f.StringVar(&c.galleryDir, "dir", "", "generated gallery directory")
	f.StringVar(&c.configPath, "config", "", "config file path")
	f.StringVar(&c.keyPrefix, "prefix", "", "key prefix inside the bucket")
	f.BoolVar(&c.clear, "clear", false, "empty the bucket before uploading")
}

func (c *PublishCommand) PreRun(ctx context.Context) error {
	if strings.TrimSpace(c.galleryDir) == "" {
		return errors.New("publish requires --dir")
	}

	cfg, err := loadConfig(c.configPath)
	if err != nil {
		return err
	}
	if cfg.S3.Bucket == "" {
		return errors.New("publish requires config.s3.bucket")
	}

	client, err := storage.NewS3Client(ctx, cfg.S3)
	if err != nil {
		return err
	}
	storage.SetDefaultClient(client)
	return nil
}

func (c *PublishCommand) Run(ctx context.Context) error {
	logger := logutil.GetLogger(ctx)

	store := storage.DefaultClient()
	if store == nil {
		return errors.New("storage client not initialised")
	}

	if c.clear {
		logger.Info("clearing bucket before upload")
		if err := store.ClearBucket(ctx); err != nil {
			return err
		}
	}

	uploaded := 0
	err := filepath.WalkDir(c.galleryDir, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(c.galleryDir, p)
		if err != nil {
			return fmt.Errorf("relativize %s: %w", p, err)
		}
		key := filepath.ToSlash(rel)
		if c.keyPrefix != "" {
			key = path.Join(c.keyPrefix, key)
		}

		if err := store.UploadFile(ctx, key, p, contentTypeForFile(p)); err != nil {
			return err
		}
		uploaded++

		if hash, err := fileMD5(p); err == nil {
			logger.Debug("uploaded",
				zap.String("key", key),
				zap.String("md5", hash),
			)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info("publish completed",
		zap.String("dir", c.galleryDir),
		zap.Int("files", uploaded),
	)
	return nil
}

func (c *PublishCommand) PostRun(ctx context.Context) error { return nil }

func init() {
	RegisterRunner("publish", func() IRunner { return NewPublishCommand() })
}
