// Package archive extracts post archives into a flat extracted/ directory,
// applying the central file classifier, resolving name collisions and
// rejecting entries that would escape the target directory.
package archive

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ArmaanDK/galleryGenerator/internal/classify"
	"github.com/ArmaanDK/galleryGenerator/internal/config"
	"github.com/ArmaanDK/galleryGenerator/internal/fsutil"
	"github.com/ArmaanDK/galleryGenerator/internal/model"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// ExtractDirName is the fixed subdirectory receiving extracted content.
const ExtractDirName = "extracted"

// Extractor unpacks the archives found directly inside a post directory.
type Extractor struct {
	classifier   *classify.Classifier
	maxFileSize  int64
	maxTotalSize int64
}

// PostExtraction is the outcome of extracting one post directory.
type PostExtraction struct {
	Result    model.ExtractionResult
	Preserved []model.PreservedFile
}

// New builds an extractor bound to the shared classifier.
func New(cfg *config.Config, cls *classify.Classifier) *Extractor {
	return &Extractor{
		classifier:   cls,
		maxFileSize:  cfg.Extract.MaxFileSizeMB << 20,
		maxTotalSize: cfg.Extract.MaxTotalSizeMB << 20,
	}
}

// ExtractPost discovers archives directly inside postDir (never recursively)
// and extracts their contents into postDir/extracted. Original archives are
// left untouched. A bad archive never aborts the remaining ones; the returned
// error is reserved for the post directory being unreadable.
func (e *Extractor) ExtractPost(ctx context.Context, postDir string) (*PostExtraction, error) {
	logger := logutil.GetLogger(ctx)

	archives, err := e.discoverArchives(ctx, postDir)
	if err != nil {
		return nil, err
	}

	out := &PostExtraction{}
	out.Result.Success = true
	if len(archives) == 0 {
		return out, nil
	}

	extractedDir := filepath.Join(postDir, ExtractDirName)
	for _, archivePath := range archives {
		res, preserved := e.extractArchive(ctx, archivePath, extractedDir)
		out.Result.Merge(res)
		out.Preserved = append(out.Preserved, preserved...)
	}

	if _, err := os.Stat(extractedDir); err == nil {
		moves, conflicts, err := flatten(extractedDir)
		if err != nil {
			logger.Warn("flatten extracted dir failed",
				zap.String("dir", filepath.ToSlash(extractedDir)),
				zap.Error(err),
			)
			out.Result.Failures = append(out.Result.Failures, fmt.Sprintf("flatten: %v", err))
			out.Result.Success = false
		} else {
			out.Result.Conflicts = append(out.Result.Conflicts, conflicts...)
			remapPreserved(out.Preserved, moves)
		}
		if err := fsutil.RemoveEmptyDirs(extractedDir); err != nil {
			logger.Warn("cleanup empty dirs failed", zap.Error(err))
		}
	}

	for i := range out.Preserved {
		rel, err := filepath.Rel(postDir, out.Preserved[i].Path)
		if err == nil {
			out.Preserved[i].Path = filepath.ToSlash(rel)
		}
	}
	return out, nil
}

func (e *Extractor) discoverArchives(ctx context.Context, postDir string) ([]string, error) {
	entries, err := os.ReadDir(postDir)
	if err != nil {
		return nil, fmt.Errorf("read post dir %s: %w", postDir, err)
	}

	var archives []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		d := e.classifier.Classify(ctx, entry.Name())
		if d.Skip || d.Category != model.CategoryArchive {
			continue
		}
		archives = append(archives, filepath.Join(postDir, entry.Name()))
	}
	sort.Strings(archives)
	return archives, nil
}

func (e *Extractor) extractArchive(ctx context.Context, archivePath, extractedDir string) (model.ExtractionResult, []model.PreservedFile) {
	logger := logutil.GetLogger(ctx)
	archiveName := filepath.Base(archivePath)
	res := model.ExtractionResult{Success: true}

	r, err := openArchive(archivePath)
	if err != nil {
		reason := "corrupt"
		if errors.Is(err, ErrPasswordProtected) {
			reason = "password protected"
		}
		logger.Warn("skipping unreadable archive",
			zap.String("archive", archiveName),
			zap.String("reason", reason),
			zap.Error(err),
		)
		res.Failures = append(res.Failures, fmt.Sprintf("%s: %s", archiveName, reason))
		res.Success = false
		return res, nil
	}
	defer r.close()

	res.ArchivesProcessed++
	var preserved []model.PreservedFile
	var written int64
	for _, ent := range r.entries {
		res.FilesFound++

		rel, ok := sanitizeEntryName(ent.name)
		if !ok {
			logger.Warn("rejecting archive entry escaping target dir",
				zap.String("archive", archiveName),
				zap.String("entry", ent.name),
			)
			res.RejectedPaths++
			continue
		}

		d := e.classifier.Classify(ctx, rel)
		if d.Skip {
			res.SkippedSystem++
			continue
		}
		if !classify.IsDisplayable(d.Category) && d.Category != model.CategoryPreserve {
			res.SkippedUnsupported++
			continue
		}

		if e.maxFileSize > 0 && ent.size > e.maxFileSize {
			logger.Debug("skipping oversize entry",
				zap.String("entry", rel),
				zap.Int64("size", ent.size),
			)
			res.SkippedOversize++
			continue
		}
		if e.maxTotalSize > 0 && written+ent.size > e.maxTotalSize {
			logger.Debug("archive extraction budget exhausted",
				zap.String("archive", archiveName),
				zap.String("entry", rel),
			)
			res.SkippedOversize++
			continue
		}

		dest := filepath.Join(extractedDir, filepath.FromSlash(rel))
		if _, err := os.Lstat(dest); err == nil {
			resolved := fsutil.UniquePath(filepath.Dir(dest), filepath.Base(dest))
			res.Conflicts = append(res.Conflicts, model.Conflict{
				Requested: rel,
				Resolved:  filepath.Base(resolved),
			})
			dest = resolved
		}

		n, err := e.writeEntry(ent, dest)
		if err != nil {
			logger.Warn("extract entry failed",
				zap.String("archive", archiveName),
				zap.String("entry", rel),
				zap.Error(err),
			)
			res.Failures = append(res.Failures, fmt.Sprintf("%s!%s: %v", archiveName, rel, err))
			continue
		}
		written += n
		res.FilesExtracted++

		if d.Category == model.CategoryPreserve {
			preserved = append(preserved, model.PreservedFile{
				Path:     dest,
				Archive:  archiveName,
				Category: d.Category,
			})
		}
	}
	return res, preserved
}

func (e *Extractor) writeEntry(ent entry, dest string) (int64, error) {
	rc, err := ent.open()
	if err != nil {
		return 0, fmt.Errorf("open entry: %w", err)
	}
	defer rc.Close()
	return fsutil.WriteStream(dest, rc)
}

// sanitizeEntryName normalises an archive entry path and rejects anything
// that would resolve outside the extraction directory. Rejection here is a
// hard security invariant, never a soft warning.
func sanitizeEntryName(name string) (string, bool) {
	norm := strings.ReplaceAll(name, "\\", "/")
	if path.IsAbs(norm) || filepath.IsAbs(name) {
		return "", false
	}
	// Windows drive-letter entries are absolute too.
	if len(norm) >= 2 && norm[1] == ':' {
		return "", false
	}
	cleaned := path.Clean(norm)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", false
	}
	return cleaned, true
}

// flatten moves every file under dir to its top level and reports the moves
// and the collisions resolved along the way.
func flatten(dir string) (map[string]string, []model.Conflict, error) {
	var nested []string
	err := filepath.Walk(dir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || filepath.Dir(p) == dir {
			return nil
		}
		nested = append(nested, p)
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("walk %s: %w", dir, err)
	}
	sort.Strings(nested)

	moves := make(map[string]string, len(nested))
	var conflicts []model.Conflict
	for _, src := range nested {
		base := filepath.Base(src)
		dest := fsutil.UniquePath(dir, base)
		if filepath.Base(dest) != base {
			conflicts = append(conflicts, model.Conflict{
				Requested: base,
				Resolved:  filepath.Base(dest),
			})
		}
		if err := os.Rename(src, dest); err != nil {
			return nil, nil, fmt.Errorf("move %s -> %s: %w", src, dest, err)
		}
		moves[src] = dest
	}
	return moves, conflicts, nil
}

func remapPreserved(preserved []model.PreservedFile, moves map[string]string) {
	for i := range preserved {
		if dest, ok := moves[preserved[i].Path]; ok {
			preserved[i].Path = dest
		}
	}
}
