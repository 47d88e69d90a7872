package httpds

import (
	"crypto/sha1"
	"encoding/hex"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"
)

// filenameCleaner replaces sequences of non-alphanumeric characters with "_".
var filenameCleaner = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// HashString returns a stable SHA1 hex digest of s.
func HashString(s string) string {
	h := sha1.Sum([]byte(s))
	return hex.EncodeToString(h[:])
}

// SafeFilenameFromURL derives a filesystem-safe name from a raw URL.
//
// It prefers the query string, then the last directory plus the file stem,
// and falls back to a hash of the whole URL when neither yields anything or
// the URL does not parse.
func SafeFilenameFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return HashString(rawURL)
	}

	if clean := cleanName(u.RawQuery); clean != "" {
		return clean
	}

	p := strings.Trim(u.Path, "/")
	if p != "" {
		dir, file := path.Split(p)
		name := path.Base(strings.TrimSuffix(dir, "/")) + "_" + strings.TrimSuffix(file, path.Ext(file))
		if clean := cleanName(name); clean != "" {
			return clean
		}
	}
	return HashString(rawURL)
}

// ArchiveName is the file name under which a fetched export is kept.
func ArchiveName(rawURL string, at time.Time) string {
	return SafeFilenameFromURL(rawURL) + "-" + at.UTC().Format("20060102T150405Z") + ".csv"
}

func cleanName(s string) string {
	return strings.Trim(filenameCleaner.ReplaceAllString(s, "_"), "_")
}
