// Package gallery turns post manifests into a self-contained static site:
// media copied under media/<artist>/<post>/, a single index.html and a
// machine-readable gallery.json next to it.
package gallery

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"

	"github.com/ArmaanDK/galleryGenerator/internal/fsutil"
	"github.com/ArmaanDK/galleryGenerator/internal/model"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// MediaDirName is the subdirectory of the output root that holds copied media.
const MediaDirName = "media"

// Assembler writes the gallery output directory.
type Assembler struct {
	outputDir string
	title     string
}

// New builds an assembler targeting outputDir.
func New(outputDir, title string) *Assembler {
	if title == "" {
		title = "Gallery"
	}
	return &Assembler{outputDir: outputDir, title: title}
}

type itemView struct {
	Src     string
	Thumb   string
	IsVideo bool
}

type preservedView struct {
	Href    string
	Name    string
	Archive string
}

type postView struct {
	Title     string
	Date      string
	Text      string
	Items     []itemView
	Preserved []preservedView
}

type artistView struct {
	Name  string
	Posts []postView
}

type pageView struct {
	Title   string
	Summary string
	Artists []artistView
}

// Assemble copies every manifest's media into the output tree and renders the
// site. A file that cannot be copied is dropped from the page with a warning;
// only output-directory level problems are returned as errors.
func (a *Assembler) Assemble(ctx context.Context, manifests []*model.PostManifest, stats model.RunStats) error {
	logger := logutil.GetLogger(ctx)

	if err := os.MkdirAll(a.outputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir %s: %w", a.outputDir, err)
	}

	page := pageView{
		Title: a.title,
		Summary: fmt.Sprintf("%d artists, %d posts, %d media files, %d preserved sources",
			stats.Artists, stats.Posts, stats.MediaFiles, stats.PreservedFiles),
	}

	var current *artistView
	for _, m := range manifests {
		if current == nil || current.Name != m.Post.Artist {
			page.Artists = append(page.Artists, artistView{Name: m.Post.Artist})
			current = &page.Artists[len(page.Artists)-1]
		}
		pv, err := a.assemblePost(ctx, m)
		if err != nil {
			logger.Warn("assemble post failed",
				zap.String("post", m.Post.Dir),
				zap.Error(err),
			)
			continue
		}
		current.Posts = append(current.Posts, pv)
	}

	if err := a.renderIndex(page); err != nil {
		return err
	}
	if err := a.writeManifest(manifests, stats); err != nil {
		return err
	}
	logger.Info("gallery assembled",
		zap.String("output", filepath.ToSlash(a.outputDir)),
		zap.Int("posts", stats.Posts),
	)
	return nil
}

func (a *Assembler) assemblePost(ctx context.Context, m *model.PostManifest) (postView, error) {
	logger := logutil.GetLogger(ctx)
	pv := postView{Title: m.Post.Title, Date: m.Post.Date, Text: m.Text}

	destDir := filepath.Join(a.outputDir, MediaDirName,
		fsutil.SafeName(m.Post.Artist), fsutil.SafeName(m.Post.Title))
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return pv, fmt.Errorf("create post media dir: %w", err)
	}

	for _, media := range m.Media {
		src := filepath.Join(m.Post.Dir, filepath.FromSlash(media.Path))
		dest, err := copyInto(src, destDir)
		if err != nil {
			logger.Warn("copy media failed",
				zap.String("file", media.Path),
				zap.Error(err),
			)
			continue
		}
		item := itemView{
			Src:     a.webPath(dest),
			IsVideo: media.Category == model.CategoryVideo,
		}
		if media.ThumbnailPath != "" {
			item.Thumb = a.webPath(media.ThumbnailPath)
		}
		pv.Items = append(pv.Items, item)
	}

	for _, preserved := range m.Preserved {
		src := filepath.Join(m.Post.Dir, filepath.FromSlash(preserved.Path))
		dest, err := copyInto(src, destDir)
		if err != nil {
			logger.Warn("copy preserved file failed",
				zap.String("file", preserved.Path),
				zap.Error(err),
			)
			continue
		}
		pv.Preserved = append(pv.Preserved, preservedView{
			Href:    a.webPath(dest),
			Name:    filepath.Base(dest),
			Archive: preserved.Archive,
		})
	}
	return pv, nil
}

// webPath rewrites an absolute output path into the relative URL used from
// index.html. Paths outside the output dir cannot be linked.
func (a *Assembler) webPath(p string) string {
	rel, err := filepath.Rel(a.outputDir, p)
	if err != nil {
		return ""
	}
	return filepath.ToSlash(rel)
}

func (a *Assembler) renderIndex(page pageView) error {
	tmpl, err := template.New("index").Parse(pageTemplate)
	if err != nil {
		return fmt.Errorf("parse page template: %w", err)
	}
	f, err := os.Create(filepath.Join(a.outputDir, "index.html"))
	if err != nil {
		return fmt.Errorf("create index.html: %w", err)
	}
	defer f.Close()
	if err := tmpl.Execute(f, page); err != nil {
		return fmt.Errorf("render index.html: %w", err)
	}
	return nil
}

func (a *Assembler) writeManifest(manifests []*model.PostManifest, stats model.RunStats) error {
	doc := struct {
		Stats model.RunStats        `json:"stats"`
		Posts []*model.PostManifest `json:"posts"`
	}{Stats: stats, Posts: manifests}

	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal gallery manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(a.outputDir, "gallery.json"), raw, 0o644); err != nil {
		return fmt.Errorf("write gallery manifest: %w", err)
	}
	return nil
}

// copyInto copies src into dir, never overwriting an existing file.
func copyInto(src, dir string) (string, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	dest := fsutil.UniquePath(dir, filepath.Base(src))
	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", dest, err)
	}
	defer out.Close()
	if _, err := io.Copy(out, in); err != nil {
		os.Remove(dest)
		return "", fmt.Errorf("copy to %s: %w", dest, err)
	}
	return dest, nil
}
