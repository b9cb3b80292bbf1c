package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractionResultMerge(t *testing.T) {
	t.Parallel()

	total := ExtractionResult{Success: true}
	total.Merge(ExtractionResult{
		ArchivesProcessed: 1,
		FilesFound:        3,
		FilesExtracted:    2,
		SkippedSystem:     1,
		Conflicts:         []Conflict{{Requested: "a.png", Resolved: "a_1.png"}},
		Success:           true,
	})
	total.Merge(ExtractionResult{
		FilesFound: 1,
		Failures:   []string{"bad.zip: corrupt"},
		Success:    false,
	})

	assert.Equal(t, 1, total.ArchivesProcessed)
	assert.Equal(t, 4, total.FilesFound)
	assert.Equal(t, 2, total.FilesExtracted)
	assert.Equal(t, 1, total.SkippedSystem)
	assert.Len(t, total.Conflicts, 1)
	assert.Len(t, total.Failures, 1)
	assert.False(t, total.Success, "one failed archive fails the post result")
}

func TestRunStatsAddManifest(t *testing.T) {
	t.Parallel()

	var stats RunStats
	stats.AddManifest(&PostManifest{
		Media: []MediaEntry{
			{Path: "a.png", Category: CategoryImage},
			{Path: "b.mp4", Category: CategoryVideo, ThumbnailPath: "/out/b_thumb.jpg"},
		},
		Preserved:  []PreservedFile{{Path: "extracted/s.psd"}},
		Extraction: ExtractionResult{ArchivesProcessed: 2, FilesExtracted: 5, Success: true},
		Downloads: []DownloadResult{
			{Status: DownloadSuccess},
			{Status: DownloadSkipped},
			{Status: DownloadFailed},
		},
	})

	assert.Equal(t, 1, stats.Posts)
	assert.Equal(t, 2, stats.MediaFiles)
	assert.Equal(t, 2, stats.ArchivesProcessed)
	assert.Equal(t, 5, stats.FilesExtracted)
	assert.Equal(t, 1, stats.PreservedFiles)
	assert.Equal(t, 1, stats.DownloadsSucceeded)
	assert.Equal(t, 1, stats.DownloadsSkipped)
	assert.Equal(t, 1, stats.DownloadsFailed)
	assert.Equal(t, 1, stats.ThumbnailsGenerated)
}
