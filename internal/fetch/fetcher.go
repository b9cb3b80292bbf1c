// Package fetch downloads the external content referenced by the links
// manifests inside post directories. Non-content destinations are filtered,
// known share links rewritten to direct downloads, and provider interstitial
// pages followed through at most one confirmation link. Every failure stays
// local to its URL.
package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/ArmaanDK/galleryGenerator/internal/config"
	"github.com/ArmaanDK/galleryGenerator/internal/fsutil"
	"github.com/ArmaanDK/galleryGenerator/internal/model"

	"github.com/PuerkitoBio/goquery"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DownloadDirName is the fixed subdirectory receiving fetched files.
const DownloadDirName = "downloads"

// interstitialSizeLimit bounds how much of a response is sniffed for
// provider warning pages before streaming the rest to disk.
const interstitialSizeLimit = 512 << 10

var confirmTokenPattern = regexp.MustCompile(`confirm=([a-zA-Z0-9_-]+)`)

// Fetcher downloads content URLs found in post link manifests.
type Fetcher struct {
	client       *http.Client
	userAgent    string
	skipPatterns []string
	linksGlob    string
	limiters     map[string]*rate.Limiter
	hostInterval time.Duration
}

// New builds a fetcher from configuration.
func New(cfg *config.Config) *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout: time.Duration(cfg.Fetch.TimeoutSec) * time.Second,
		},
		userAgent:    cfg.Fetch.UserAgent,
		skipPatterns: append([]string(nil), cfg.Fetch.SkipPatterns...),
		linksGlob:    cfg.Fetch.LinksGlob,
		limiters:     make(map[string]*rate.Limiter),
		hostInterval: time.Duration(cfg.Fetch.HostIntervalMilli) * time.Millisecond,
	}
}

// ProcessPost scans the post directory for links manifests and downloads
// their content into postDir/downloads.
func (f *Fetcher) ProcessPost(ctx context.Context, postDir string) []model.DownloadResult {
	matches, err := filepath.Glob(filepath.Join(postDir, f.linksGlob))
	if err != nil || len(matches) == 0 {
		return nil
	}
	sort.Strings(matches)

	downloadDir := filepath.Join(postDir, DownloadDirName)
	var results []model.DownloadResult
	for _, linksPath := range matches {
		results = append(results, f.ProcessLinksFile(ctx, linksPath, downloadDir)...)
	}
	return results
}

// ProcessLinksFile downloads every content URL found in the given manifest.
func (f *Fetcher) ProcessLinksFile(ctx context.Context, textPath, downloadDir string) []model.DownloadResult {
	logger := logutil.GetLogger(ctx)

	text, err := ReadLinksFile(textPath)
	if err != nil {
		logger.Warn("read links manifest failed", zap.Error(err))
		return nil
	}

	urls := ExtractLinks(text)
	if len(urls) == 0 {
		return nil
	}
	logger.Debug("found links",
		zap.String("manifest", filepath.Base(textPath)),
		zap.Int("count", len(urls)),
	)

	results := make([]model.DownloadResult, 0, len(urls))
	for _, rawURL := range urls {
		results = append(results, f.fetchOne(ctx, rawURL, downloadDir))
	}
	return results
}

func (f *Fetcher) fetchOne(ctx context.Context, rawURL, downloadDir string) model.DownloadResult {
	logger := logutil.GetLogger(ctx)
	res := model.DownloadResult{URL: rawURL}

	if pattern, skip := f.matchSkip(rawURL); skip {
		logger.Debug("skipping non-content link",
			zap.String("url", rawURL),
			zap.String("pattern", pattern),
		)
		res.Status = model.DownloadSkipped
		res.Reason = fmt.Sprintf("matches non-content pattern %q", pattern)
		return res
	}

	target := rawURL
	if rewritten, ok := RewriteShareLink(rawURL); ok {
		res.RewrittenURL = rewritten
		target = rewritten
	}

	localPath, err := f.download(ctx, target, downloadDir)
	if err != nil {
		logger.Warn("download failed",
			zap.String("url", rawURL),
			zap.Error(err),
		)
		res.Status = model.DownloadFailed
		res.Reason = err.Error()
		return res
	}

	logger.Debug("downloaded",
		zap.String("url", rawURL),
		zap.String("file", filepath.Base(localPath)),
	)
	res.Status = model.DownloadSuccess
	res.LocalPath = localPath
	return res
}

func (f *Fetcher) matchSkip(rawURL string) (string, bool) {
	lower := strings.ToLower(rawURL)
	for _, pattern := range f.skipPatterns {
		if strings.Contains(lower, strings.ToLower(pattern)) {
			return pattern, true
		}
	}
	return "", false
}

// download issues the GET, handles at most one interstitial confirmation
// link, and writes the body into downloadDir under a collision-free name.
func (f *Fetcher) download(ctx context.Context, target, downloadDir string) (string, error) {
	resp, head, err := f.get(ctx, target)
	if err != nil {
		return "", err
	}

	if isInterstitial(resp, head) {
		confirmURL, ok := confirmationLink(head, resp.Request.URL)
		resp.Body.Close()
		if !ok {
			return "", fmt.Errorf("interstitial page, no confirmation link")
		}
		resp, head, err = f.get(ctx, confirmURL)
		if err != nil {
			return "", fmt.Errorf("follow confirmation link: %w", err)
		}
	}
	defer resp.Body.Close()

	name := fileNameFromResponse(resp, target)
	dest := fsutil.UniquePath(downloadDir, name)
	body := io.MultiReader(bytes.NewReader(head), resp.Body)
	if _, err := fsutil.WriteStream(dest, body); err != nil {
		return "", err
	}
	return dest, nil
}

// get performs one rate-limited GET and pre-reads up to the sniff limit.
func (f *Fetcher) get(ctx context.Context, target string) (*http.Response, []byte, error) {
	if err := f.waitHost(ctx, target); err != nil {
		return nil, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("build request %s: %w", target, err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("get %s: %w", target, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, nil, fmt.Errorf("HTTP %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	head, err := io.ReadAll(io.LimitReader(resp.Body, interstitialSizeLimit))
	if err != nil {
		resp.Body.Close()
		return nil, nil, fmt.Errorf("read response %s: %w", target, err)
	}
	return resp, head, nil
}

func (f *Fetcher) waitHost(ctx context.Context, target string) error {
	u, err := url.Parse(target)
	if err != nil {
		return fmt.Errorf("parse url %s: %w", target, err)
	}
	host := u.Hostname()
	limiter, ok := f.limiters[host]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(f.hostInterval), 1)
		f.limiters[host] = limiter
	}
	return limiter.Wait(ctx)
}

// isInterstitial decides whether a response is a provider warning page
// rather than the requested binary.
func isInterstitial(resp *http.Response, head []byte) bool {
	if strings.Contains(strings.ToLower(resp.Header.Get("Content-Type")), "text/html") {
		return true
	}
	if len(head) >= interstitialSizeLimit {
		return false
	}
	lower := strings.ToLower(string(head))
	return strings.Contains(lower, "<html") || strings.Contains(lower, "virus scan")
}

// confirmationLink locates the secondary download link embedded in an
// interstitial page.
func confirmationLink(head []byte, base *url.URL) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(head))
	if err == nil {
		if form := doc.Find("form#download-form"); form.Length() > 0 {
			if action, ok := form.Attr("action"); ok {
				target, err := url.Parse(action)
				if err == nil {
					query := target.Query()
					form.Find("input[name]").Each(func(_ int, sel *goquery.Selection) {
						name, _ := sel.Attr("name")
						value, _ := sel.Attr("value")
						query.Set(name, value)
					})
					target.RawQuery = query.Encode()
					return base.ResolveReference(target).String(), true
				}
			}
		}
		if href, ok := doc.Find("a#uc-download-link").Attr("href"); ok {
			if target, err := url.Parse(href); err == nil {
				return base.ResolveReference(target).String(), true
			}
		}
	}

	if m := confirmTokenPattern.FindSubmatch(head); m != nil {
		next := *base
		query := next.Query()
		query.Set("confirm", string(m[1]))
		next.RawQuery = query.Encode()
		return next.String(), true
	}
	return "", false
}

// fileNameFromResponse picks the output filename from the content-disposition
// header, falling back to the URL path and a content-type derived extension.
func fileNameFromResponse(resp *http.Response, target string) string {
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil {
			if name := strings.TrimSpace(params["filename"]); name != "" {
				return filepath.Base(filepath.FromSlash(name))
			}
		}
	}

	name := "downloaded_file"
	if u, err := url.Parse(target); err == nil {
		if base := path.Base(u.Path); base != "" && base != "/" && base != "." {
			name = base
		}
	}

	if filepath.Ext(name) == "" {
		name += extensionForType(resp.Header.Get("Content-Type"))
	}
	return name
}

func extensionForType(contentType string) string {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "jpeg"), strings.Contains(ct, "jpg"):
		return ".jpg"
	case strings.Contains(ct, "png"):
		return ".png"
	case strings.Contains(ct, "gif"):
		return ".gif"
	case strings.Contains(ct, "image"):
		return ".jpg"
	case strings.Contains(ct, "webm"):
		return ".webm"
	case strings.Contains(ct, "video"):
		return ".mp4"
	case strings.Contains(ct, "zip"), strings.Contains(ct, "archive"):
		return ".zip"
	case strings.Contains(ct, "pdf"):
		return ".pdf"
	default:
		return ""
	}
}
