package fetch

import (
	"fmt"
	"regexp"
)

// Google Drive share links do not point at the file bytes; the file id has to
// be substituted into the download endpoint instead.
var drivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`https://drive\.google\.com/file/d/([a-zA-Z0-9_-]+)`),
	regexp.MustCompile(`https://drive\.google\.com/open\?id=([a-zA-Z0-9_-]+)`),
}

const driveDownloadTemplate = "https://drive.google.com/uc?export=download&id=%s"

// RewriteShareLink converts known cloud-storage share links into their
// direct-download equivalent. URLs of other hosts are returned unchanged,
// with ok reporting whether a rewrite happened.
func RewriteShareLink(rawURL string) (string, bool) {
	for _, p := range drivePatterns {
		if m := p.FindStringSubmatch(rawURL); m != nil {
			return fmt.Sprintf(driveDownloadTemplate, m[1]), true
		}
	}
	return rawURL, false
}
