// Package scan discovers artist and post directories and resolves each post's
// display title and date from its folder name.
package scan

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"github.com/ArmaanDK/galleryGenerator/internal/archive"
	"github.com/ArmaanDK/galleryGenerator/internal/fetch"
	"github.com/ArmaanDK/galleryGenerator/internal/model"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

var (
	datePrefixPattern = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})[-\s]*`)
	dateTimePattern   = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})\s+\d{2}-\d{2}-(.+)$`)
)

const fallbackDate = "1970-01-01"

// Walk yields every post directory under root, grouped by artist, sorted by
// name for deterministic processing. Output directories produced by earlier
// runs inside a post (extracted/, downloads/) are not themselves posts.
func Walk(ctx context.Context, root string) ([]model.Post, int, error) {
	logger := logutil.GetLogger(ctx)

	artistEntries, err := os.ReadDir(root)
	if err != nil {
		return nil, 0, fmt.Errorf("read art dir %s: %w", root, err)
	}

	var posts []model.Post
	artists := 0
	for _, artistEntry := range artistEntries {
		if !artistEntry.IsDir() {
			continue
		}
		artists++
		artist := artistEntry.Name()
		artistDir := filepath.Join(root, artist)

		postEntries, err := os.ReadDir(artistDir)
		if err != nil {
			logger.Warn("skipping unreadable artist dir",
				zap.String("artist", artist),
				zap.Error(err),
			)
			continue
		}
		for _, postEntry := range postEntries {
			if !postEntry.IsDir() {
				continue
			}
			name := postEntry.Name()
			if name == archive.ExtractDirName || name == fetch.DownloadDirName {
				continue
			}
			date, title := ParseFolderName(name)
			posts = append(posts, model.Post{
				Artist: artist,
				Title:  title,
				Date:   date,
				Dir:    filepath.Join(artistDir, name),
			})
		}
	}

	sort.Slice(posts, func(i, j int) bool {
		if posts[i].Artist != posts[j].Artist {
			return posts[i].Artist < posts[j].Artist
		}
		return posts[i].Dir < posts[j].Dir
	})
	return posts, artists, nil
}

// ParseFolderName extracts the post date and display title from a folder
// name. Folders without a recognisable date sort to the epoch.
func ParseFolderName(name string) (string, string) {
	if m := dateTimePattern.FindStringSubmatch(name); m != nil {
		if validDate(m[1]) {
			return m[1], m[2]
		}
	}
	if m := datePrefixPattern.FindStringSubmatch(name); m != nil {
		if validDate(m[1]) {
			title := name[len(m[0]):]
			if title == "" {
				title = name
			}
			return m[1], title
		}
	}
	return fallbackDate, name
}

func validDate(s string) bool {
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}
