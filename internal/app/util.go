package app

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/ArmaanDK/galleryGenerator/internal/config"
)

var defaultConfigPaths = []string{
	"./config.json",
	"/etc/gallerygen/config.json",
}

func loadConfig(explicit string) (*config.Config, error) {
	paths := append([]string{explicit}, defaultConfigPaths...)
	return config.LoadFirst(paths...)
}

func fileMD5(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open file for hash %s: %w", path, err)
	}
	defer f.Close()

	hasher := md5.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return "", fmt.Errorf("hash file %s: %w", path, err)
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

func contentTypeForFile(path string) string {
	return mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
}
