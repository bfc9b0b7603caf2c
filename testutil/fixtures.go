package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// LegacyDumpJSON is a dump in the older layout: no capturedAt, likes kept
// as the matched text and no currentUser.
const LegacyDumpJSON = `{
  "pageType": "home",
  "loggedIn": true,
  "stories": [{"username": "alex", "hasUnwatched": true, "imgSrc": "alex.jpg"}],
  "posts": [
    {"username": "alex", "caption": "Beach day", "likes": "1,024", "isVideo": false, "imgSrc": "", "timestamp": ""},
    {"username": "sam", "caption": "Concert", "likes": null, "isVideo": true}
  ],
  "messages": [],
  "notifications": [],
  "mutuals": [],
  "suggestions": [],
  "rawUsernames": ["alex", "sam"],
  "elementCounts": {"articles": 2},
  "url": "https://www.instagram.com/"
}`

// CreateDumpFixture writes a dump file into dir and sets its modification
// time so listings order deterministically.
func CreateDumpFixture(t *testing.T, dir, name string, data []byte, modTime time.Time) string {
	t.Helper()
	path := WriteFile(t, dir, name, data)
	if !modTime.IsZero() {
		if err := os.Chtimes(path, modTime, modTime); err != nil {
			t.Fatalf("Failed to set mtime on %s: %v", name, err)
		}
	}
	return path
}

// CreateArchiveFixture lays out a config base with an active archive dir
// and one legacy archive dir, both empty. It returns the base path.
func CreateArchiveFixture(t *testing.T, active, legacy string) string {
	t.Helper()
	base := CreateTempDir(t)
	for _, name := range []string{active, legacy} {
		if name == "" {
			continue
		}
		if err := os.MkdirAll(filepath.Join(base, name, "scrape-dumps"), 0755); err != nil {
			t.Fatalf("Failed to create archive %s: %v", name, err)
		}
	}
	return base
}
