// Package thumbnail produces video preview stills by shelling out to
// ffmpeg/ffprobe. A generated file at the deterministic output path is itself
// the cache; missing decoders and failed probes degrade to "no thumbnail"
// without ever failing the run.
package thumbnail

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ArmaanDK/galleryGenerator/internal/classify"
	"github.com/ArmaanDK/galleryGenerator/internal/config"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

const (
	ffmpegBin  = "ffmpeg"
	ffprobeBin = "ffprobe"
)

// runner abstracts decoder invocation so tests can fake it.
type runner interface {
	run(ctx context.Context, name string, args ...string) (string, error)
}

type execRunner struct {
	timeout time.Duration
}

func (r *execRunner) run(ctx context.Context, name string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%s failed: %v, stderr: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// Generator creates video thumbnails through an external decoder.
type Generator struct {
	classifier *classify.Classifier
	run        runner
	fraction   float64
	minSec     float64
	maxSec     float64
	scale      string
	available  bool
}

// New builds a generator and probes decoder availability exactly once.
func New(ctx context.Context, cfg *config.Config, cls *classify.Classifier) *Generator {
	r := &execRunner{timeout: time.Duration(cfg.Thumbnail.DecoderTimeoutSec) * time.Second}
	return newWithRunner(ctx, cfg, cls, r)
}

func newWithRunner(ctx context.Context, cfg *config.Config, cls *classify.Classifier, r runner) *Generator {
	g := &Generator{
		classifier: cls,
		run:        r,
		fraction:   cfg.Thumbnail.TimestampFraction,
		minSec:     cfg.Thumbnail.MinTimestampSec,
		maxSec:     cfg.Thumbnail.MaxTimestampSec,
		scale:      cfg.Thumbnail.Scale,
	}
	if _, err := r.run(ctx, ffmpegBin, "-version"); err != nil {
		logutil.GetLogger(ctx).Warn("ffmpeg not available, video thumbnails disabled", zap.Error(err))
		return g
	}
	g.available = true
	return g
}

// Available reports whether the external decoder was found at startup.
func (g *Generator) Available() bool { return g.available }

// EnsureThumbnail returns the path of a preview still for videoPath, creating
// it at outputPath unless one already exists there. An empty string means no
// thumbnail could be produced; that is never an error for the caller.
func (g *Generator) EnsureThumbnail(ctx context.Context, videoPath, outputPath string) string {
	if !g.available {
		return ""
	}
	logger := logutil.GetLogger(ctx)

	// The classifier gate upstream should make this unreachable; a resource
	// fork slipping through here is the project's signature historical bug.
	if d := g.classifier.Classify(ctx, videoPath); d.Skip {
		logger.Warn("refusing to thumbnail system file",
			zap.String("video", filepath.ToSlash(videoPath)),
		)
		return ""
	}

	if _, err := os.Stat(outputPath); err == nil {
		logger.Debug("thumbnail cache hit", zap.String("thumbnail", filepath.ToSlash(outputPath)))
		return outputPath
	}

	duration, err := g.probeDuration(ctx, videoPath)
	if err != nil {
		logger.Warn("probe video duration failed",
			zap.String("video", filepath.ToSlash(videoPath)),
			zap.Error(err),
		)
		return ""
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		logger.Warn("create thumbnail dir failed", zap.Error(err))
		return ""
	}

	ts := formatTimestamp(g.pickTimestamp(duration))
	vf := fmt.Sprintf("scale=%s:force_original_aspect_ratio=decrease,pad=%s:(ow-iw)/2:(oh-ih)/2:black", g.scale, g.scale)
	_, err = g.run.run(ctx, ffmpegBin,
		"-i", videoPath,
		"-ss", ts,
		"-vframes", "1",
		"-f", "image2",
		"-vf", vf,
		"-y",
		outputPath,
	)
	if err != nil {
		logger.Warn("generate thumbnail failed",
			zap.String("video", filepath.ToSlash(videoPath)),
			zap.Error(err),
		)
		return ""
	}
	if _, err := os.Stat(outputPath); err != nil {
		logger.Warn("decoder reported success but produced no file",
			zap.String("thumbnail", filepath.ToSlash(outputPath)),
		)
		return ""
	}

	logger.Debug("thumbnail generated",
		zap.String("video", filepath.Base(videoPath)),
		zap.String("timestamp", ts),
	)
	return outputPath
}

func (g *Generator) probeDuration(ctx context.Context, videoPath string) (float64, error) {
	out, err := g.run.run(ctx, ffprobeBin,
		"-v", "quiet",
		"-show_entries", "format=duration",
		"-of", "csv=p=0",
		videoPath,
	)
	if err != nil {
		return 0, err
	}
	duration, err := strconv.ParseFloat(strings.TrimSpace(out), 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", strings.TrimSpace(out), err)
	}
	if duration <= 0 {
		return 0, fmt.Errorf("non-positive duration %v", duration)
	}
	return duration, nil
}

// pickTimestamp seeks a configured fraction into the clip, clamped to the
// configured bounds and never past the end of short clips.
func (g *Generator) pickTimestamp(duration float64) float64 {
	ts := duration * g.fraction
	if ts > g.maxSec {
		ts = g.maxSec
	}
	if ts < g.minSec {
		ts = g.minSec
	}
	if ts > duration {
		ts = duration
	}
	return ts
}

// formatTimestamp keeps fractional seconds so short clips do not collapse to
// the black opening frame at 0s.
func formatTimestamp(sec float64) string {
	return fmt.Sprintf("%.2f", sec)
}
