// Package classify decides, for any filesystem entry, whether it is a
// system/junk artifact to be skipped and what media category it belongs to.
// It is the single source of truth for this decision: every other component
// consumes its output instead of re-implementing the predicate.
package classify

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/ArmaanDK/galleryGenerator/internal/config"
	"github.com/ArmaanDK/galleryGenerator/internal/model"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// Decision is the classification of one path.
type Decision struct {
	Skip     bool
	Reason   string
	Category model.Category
}

// Classifier classifies paths against the configured allowlists. It is a pure
// function of the path string; it never touches the filesystem.
type Classifier struct {
	images      map[string]struct{}
	videos      map[string]struct{}
	archives    map[string]struct{}
	extractable map[string]struct{}
	skipNames   map[string]struct{}
	prefixes    []string
	metadataDir string
	linksPrefix string
	verbose     bool
}

// New builds a classifier from configuration.
func New(cfg *config.Config, verbose bool) *Classifier {
	return &Classifier{
		images:      toSet(cfg.Formats.Image),
		videos:      toSet(cfg.Formats.Video),
		archives:    toSet(cfg.Formats.Archive),
		extractable: toSet(cfg.Formats.Extractable),
		skipNames:   toSet(cfg.Skip.Names),
		prefixes:    append([]string(nil), cfg.Skip.Prefixes...),
		metadataDir: cfg.Skip.MetadataDir,
		linksPrefix: "links-",
		verbose:     verbose,
	}
}

// Classify returns the decision for a path. Directory separators may be
// either slash or the OS separator; archive entry names use slashes.
func (c *Classifier) Classify(ctx context.Context, path string) Decision {
	if reason, skip := c.skipReason(path); skip {
		if c.verbose {
			logutil.GetLogger(ctx).Debug("skipping system file",
				zap.String("path", filepath.ToSlash(path)),
				zap.String("reason", reason),
			)
		}
		return Decision{Skip: true, Reason: reason}
	}
	return Decision{Category: c.category(path)}
}

// IsDisplayable reports whether a category is rendered in the gallery.
func IsDisplayable(cat model.Category) bool {
	return cat == model.CategoryImage || cat == model.CategoryVideo
}

func (c *Classifier) skipReason(path string) (string, bool) {
	base := filepath.Base(filepath.FromSlash(path))

	for _, prefix := range c.prefixes {
		if strings.HasPrefix(base, prefix) {
			return "appledouble resource fork", true
		}
	}
	if _, ok := c.skipNames[base]; ok {
		return "os marker file", true
	}
	if c.underMetadataDir(path) {
		return "macos zip metadata", true
	}
	// Remaining dotfiles are never content either.
	if strings.HasPrefix(base, ".") {
		return "hidden file", true
	}
	// Link manifests are consumed by the fetcher, not displayed.
	if strings.HasPrefix(base, c.linksPrefix) && strings.HasSuffix(strings.ToLower(base), ".txt") {
		return "links manifest", true
	}
	return "", false
}

func (c *Classifier) underMetadataDir(path string) bool {
	norm := filepath.ToSlash(filepath.FromSlash(path))
	for _, part := range strings.Split(norm, "/") {
		if part == c.metadataDir {
			return true
		}
	}
	return false
}

func (c *Classifier) category(path string) model.Category {
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case contains(c.images, ext):
		return model.CategoryImage
	case contains(c.videos, ext):
		return model.CategoryVideo
	case contains(c.archives, ext):
		return model.CategoryArchive
	case contains(c.extractable, ext):
		return model.CategoryPreserve
	default:
		return model.CategoryUnknown
	}
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		set[strings.ToLower(item)] = struct{}{}
	}
	return set
}

func contains(set map[string]struct{}, key string) bool {
	_, ok := set[key]
	return ok
}
