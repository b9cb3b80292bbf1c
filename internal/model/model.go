package model

// Category describes what a classified file is, based on its extension.
type Category string

const (
	CategoryImage    Category = "image"
	CategoryVideo    Category = "video"
	CategoryArchive  Category = "archive"
	CategoryPreserve Category = "preserve"
	CategoryUnknown  Category = "unknown"
)

// Origin records where a media file came from.
type Origin string

const (
	OriginDirect     Origin = "direct"
	OriginExtracted  Origin = "extracted"
	OriginDownloaded Origin = "downloaded"
)

// MediaEntry is one displayable file inside a post. Path is relative to the
// post directory. Entries with CategoryUnknown are never surfaced as media.
type MediaEntry struct {
	Path          string   `json:"path"`
	Category      Category `json:"category"`
	Origin        Origin   `json:"origin"`
	ThumbnailPath string   `json:"thumbnail_path,omitempty"`
}

// PreservedFile is a non-displayable artifact kept from an archive for
// archival access, e.g. a layered-image source file.
type PreservedFile struct {
	Path     string   `json:"path"`
	Archive  string   `json:"archive"`
	Category Category `json:"category"`
}

// Conflict records a name collision resolved during extraction or download.
type Conflict struct {
	Requested string `json:"requested"`
	Resolved  string `json:"resolved"`
}

// ExtractionResult aggregates per-archive outcomes for one post directory.
type ExtractionResult struct {
	ArchivesProcessed  int        `json:"archives_processed"`
	FilesFound         int        `json:"files_found"`
	FilesExtracted     int        `json:"files_extracted"`
	SkippedSystem      int        `json:"skipped_system"`
	SkippedUnsupported int        `json:"skipped_unsupported"`
	SkippedOversize    int        `json:"skipped_oversize"`
	RejectedPaths      int        `json:"rejected_paths"`
	Conflicts          []Conflict `json:"conflicts,omitempty"`
	Failures           []string   `json:"failures,omitempty"`
	Success            bool       `json:"success"`
}

// Merge folds another result into this one.
func (r *ExtractionResult) Merge(o ExtractionResult) {
	r.ArchivesProcessed += o.ArchivesProcessed
	r.FilesFound += o.FilesFound
	r.FilesExtracted += o.FilesExtracted
	r.SkippedSystem += o.SkippedSystem
	r.SkippedUnsupported += o.SkippedUnsupported
	r.SkippedOversize += o.SkippedOversize
	r.RejectedPaths += o.RejectedPaths
	r.Conflicts = append(r.Conflicts, o.Conflicts...)
	r.Failures = append(r.Failures, o.Failures...)
	r.Success = r.Success && o.Success
}

// DownloadStatus is the per-URL outcome of the content fetcher.
type DownloadStatus string

const (
	DownloadSuccess DownloadStatus = "success"
	DownloadSkipped DownloadStatus = "skipped-non-content"
	DownloadFailed  DownloadStatus = "failed"
)

// DownloadResult describes the outcome of fetching one URL.
type DownloadResult struct {
	URL          string         `json:"url"`
	RewrittenURL string         `json:"rewritten_url,omitempty"`
	LocalPath    string         `json:"local_path,omitempty"`
	Status       DownloadStatus `json:"status"`
	Reason       string         `json:"reason,omitempty"`
}

// Post is one unit of content discovered by the walker.
type Post struct {
	Artist string
	Title  string
	Date   string // ISO-8601 date, epoch date when the folder name carries none
	Dir    string
}

// PostManifest is the per-post output of the ingestion pipeline, consumed by
// the gallery assembler.
type PostManifest struct {
	Post       Post
	Text       string
	Media      []MediaEntry
	Preserved  []PreservedFile
	Extraction ExtractionResult
	Downloads  []DownloadResult
}

// RunStats are the run-wide totals reported at the end of a generate run.
type RunStats struct {
	Artists             int
	Posts               int
	MediaFiles          int
	ArchivesProcessed   int
	FilesExtracted      int
	PreservedFiles      int
	DownloadsSucceeded  int
	DownloadsSkipped    int
	DownloadsFailed     int
	ThumbnailsGenerated int
}

// AddManifest folds one post manifest into the run totals.
func (s *RunStats) AddManifest(m *PostManifest) {
	s.Posts++
	s.MediaFiles += len(m.Media)
	s.ArchivesProcessed += m.Extraction.ArchivesProcessed
	s.FilesExtracted += m.Extraction.FilesExtracted
	s.PreservedFiles += len(m.Preserved)
	for _, d := range m.Downloads {
		switch d.Status {
		case DownloadSuccess:
			s.DownloadsSucceeded++
		case DownloadSkipped:
			s.DownloadsSkipped++
		case DownloadFailed:
			s.DownloadsFailed++
		}
	}
	for _, media := range m.Media {
		if media.ThumbnailPath != "" {
			s.ThumbnailsGenerated++
		}
	}
}
