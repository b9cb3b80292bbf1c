package fsutil

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/mozillazg/go-pinyin"
)

var unsafeNameChars = regexp.MustCompile(`[^\w\-.]+`)

var pinyinArgs = pinyin.NewArgs()

// SafeName converts an artist or post title into a portable directory name.
// Han characters are transliterated to pinyin so CJK titles survive
// filesystems and URLs that mangle them; everything else unsafe becomes an
// underscore.
func SafeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		if unicode.Is(unicode.Han, r) {
			if py := pinyin.LazyPinyin(string(r), pinyinArgs); len(py) > 0 {
				b.WriteString(py[0])
				continue
			}
		}
		b.WriteRune(r)
	}

	safe := unsafeNameChars.ReplaceAllString(b.String(), "_")
	safe = strings.Trim(safe, "._")
	if safe == "" {
		return "untitled"
	}
	return safe
}
