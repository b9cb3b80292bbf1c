package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// Config describes the application level configuration loaded from json.
// Every field has a sensible default; an empty file is a valid config.
type Config struct {
	Formats   FormatsConfig   `json:"formats"`
	Skip      SkipConfig      `json:"skip"`
	Thumbnail ThumbnailConfig `json:"thumbnail"`
	Fetch     FetchConfig     `json:"fetch"`
	Extract   ExtractConfig   `json:"extract"`
	S3        S3Config        `json:"s3"`
}

// FormatsConfig holds the extension allowlists. Extensions are lower-case and
// include the leading dot.
type FormatsConfig struct {
	Image       []string `json:"image"`
	Video       []string `json:"video"`
	Archive     []string `json:"archive"`
	Extractable []string `json:"extractable"`
}

// SkipConfig drives the system/junk file filter.
type SkipConfig struct {
	Names       []string `json:"names"`
	Prefixes    []string `json:"prefixes"`
	MetadataDir string   `json:"metadata_dir"`
}

// ThumbnailConfig controls video preview generation.
type ThumbnailConfig struct {
	TimestampFraction float64 `json:"timestamp_fraction"`
	MinTimestampSec   float64 `json:"min_timestamp_sec"`
	MaxTimestampSec   float64 `json:"max_timestamp_sec"`
	Scale             string  `json:"scale"`
	DecoderTimeoutSec int     `json:"decoder_timeout_sec"`
}

// FetchConfig controls link-file downloading.
type FetchConfig struct {
	TimeoutSec        int      `json:"timeout_sec"`
	UserAgent         string   `json:"user_agent"`
	SkipPatterns      []string `json:"skip_patterns"`
	HostIntervalMilli int      `json:"host_interval_millis"`
	LinksGlob         string   `json:"links_glob"`
}

// ExtractConfig bounds archive extraction.
type ExtractConfig struct {
	MaxFileSizeMB  int64 `json:"max_file_size_mb"`
	MaxTotalSizeMB int64 `json:"max_total_size_mb"`
}

// S3Config holds the options for publishing the generated gallery to an
// object store. Only required by the publish command.
type S3Config struct {
	Host            string `json:"host"`
	Bucket          string `json:"bucket"`
	Region          string `json:"region"`
	AccessKeyID     string `json:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key"`
	SessionToken    string `json:"session_token"`
	ForcePathStyle  bool   `json:"force_path_style"`
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// LoadFirst tries to load configuration from the given paths, returning the
// first successfully decoded configuration. If none of the paths contain a
// readable config, the built-in defaults are returned.
func LoadFirst(paths ...string) (*Config, error) {
	for _, path := range paths {
		if path == "" {
			continue
		}
		cfg, err := Load(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return cfg, nil
	}
	return Default(), nil
}

// Load reads configuration from a single json file path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate performs basic validation of the configuration.
func (c *Config) Validate() error {
	if c.Thumbnail.TimestampFraction <= 0 || c.Thumbnail.TimestampFraction >= 1 {
		return errors.New("config.thumbnail.timestamp_fraction must be in (0, 1)")
	}
	if c.Thumbnail.MinTimestampSec > c.Thumbnail.MaxTimestampSec {
		return errors.New("config.thumbnail.min_timestamp_sec must not exceed max_timestamp_sec")
	}
	if c.Fetch.TimeoutSec <= 0 {
		return errors.New("config.fetch.timeout_sec must be positive")
	}
	return nil
}

func (c *Config) applyDefaults() {
	if len(c.Formats.Image) == 0 {
		c.Formats.Image = []string{".jpeg", ".jpg", ".png", ".gif", ".webp", ".bmp", ".tiff"}
	}
	if len(c.Formats.Video) == 0 {
		c.Formats.Video = []string{".mp4", ".webm", ".mov", ".avi", ".mkv", ".flv"}
	}
	if len(c.Formats.Archive) == 0 {
		c.Formats.Archive = []string{".zip", ".7z"}
	}
	if len(c.Formats.Extractable) == 0 {
		c.Formats.Extractable = []string{
			// layered-image and digital-art sources
			".psd", ".ai", ".indd", ".aep", ".prproj",
			".clip", ".lip",
			".xcf", ".kra", ".ora", ".sai", ".sai2", ".mdp",
			".sketch", ".fig", ".afdesign", ".afphoto", ".afpub",
			// 3D
			".blend", ".c4d", ".max", ".ma", ".mb", ".fbx", ".obj", ".dae",
			// vector / documents
			".svg", ".eps", ".pdf", ".dwg", ".dxf",
			".txt", ".md", ".rtf", ".doc", ".docx",
		}
	}
	if len(c.Skip.Names) == 0 {
		c.Skip.Names = []string{".DS_Store", "Thumbs.db", "desktop.ini"}
	}
	if len(c.Skip.Prefixes) == 0 {
		c.Skip.Prefixes = []string{"._"}
	}
	if c.Skip.MetadataDir == "" {
		c.Skip.MetadataDir = "__MACOSX"
	}
	if c.Thumbnail.TimestampFraction == 0 {
		c.Thumbnail.TimestampFraction = 0.1
	}
	if c.Thumbnail.MinTimestampSec == 0 {
		c.Thumbnail.MinTimestampSec = 1.0
	}
	if c.Thumbnail.MaxTimestampSec == 0 {
		c.Thumbnail.MaxTimestampSec = 5.0
	}
	if c.Thumbnail.Scale == "" {
		c.Thumbnail.Scale = "320:240"
	}
	if c.Thumbnail.DecoderTimeoutSec == 0 {
		c.Thumbnail.DecoderTimeoutSec = 30
	}
	if c.Fetch.TimeoutSec == 0 {
		c.Fetch.TimeoutSec = 30
	}
	if c.Fetch.UserAgent == "" {
		c.Fetch.UserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
	}
	if len(c.Fetch.SkipPatterns) == 0 {
		c.Fetch.SkipPatterns = []string{
			"patreon.com/c/",
			"/shop",
			"twitter.com",
			"instagram.com",
			"facebook.com",
			"discord.gg",
		}
	}
	if c.Fetch.HostIntervalMilli == 0 {
		c.Fetch.HostIntervalMilli = 1000
	}
	if c.Fetch.LinksGlob == "" {
		c.Fetch.LinksGlob = "links-*.txt"
	}
	if c.Extract.MaxFileSizeMB == 0 {
		c.Extract.MaxFileSizeMB = 100
	}
	if c.Extract.MaxTotalSizeMB == 0 {
		c.Extract.MaxTotalSizeMB = 500
	}
}
