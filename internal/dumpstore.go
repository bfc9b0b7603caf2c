package internal

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const (
	dumpPrefix      = "scrape-"
	dumpExt         = ".json"
	htmlDumpDirName = "html-dumps"
	maxNameAttempts = 100
)

var unsafeLabelChars = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// DumpStore persists records as timestamped JSON files. The first root is
// the active archive; the remaining roots are older locations that are
// scanned but never written.
type DumpStore struct {
	roots  []string
	now    func() time.Time
	merger *SessionMerger
}

// LoadReport summarises a LoadAll run
type LoadReport struct {
	Loaded   int      `json:"loaded"`
	Skipped  int      `json:"skipped"`
	Failures []string `json:"failures,omitempty"`
}

// NewDumpStore creates a store writing to active and also reading legacy roots
func NewDumpStore(active string, legacy ...string) *DumpStore {
	roots := []string{active}
	for _, r := range legacy {
		if r != "" {
			roots = append(roots, r)
		}
	}
	return &DumpStore{
		roots:  roots,
		now:    time.Now,
		merger: NewSessionMerger(),
	}
}

// ActiveRoot returns the directory new dumps are written to
func (s *DumpStore) ActiveRoot() string {
	return s.roots[0]
}

// Roots returns every archive root in priority order
func (s *DumpStore) Roots() []string {
	return append([]string{}, s.roots...)
}

// HTMLDumpDir returns the directory raw page HTML is written to
func (s *DumpStore) HTMLDumpDir() string {
	return filepath.Join(filepath.Dir(s.ActiveRoot()), htmlDumpDirName)
}

// EnsureArchiveDir ensures the active archive directory exists
func (s *DumpStore) EnsureArchiveDir() error {
	if err := os.MkdirAll(s.ActiveRoot(), 0755); err != nil {
		return &PersistenceError{Path: s.ActiveRoot(), Op: "mkdir", Err: err}
	}
	return nil
}

// DumpTimestamp formats t as an ISO-8601 UTC timestamp with millisecond
// precision, with ':' and '.' replaced so it is filesystem safe and sorts
// chronologically as a string.
func DumpTimestamp(t time.Time) string {
	ts := t.UTC().Format("2006-01-02T15:04:05.000Z")
	return strings.NewReplacer(":", "-", ".", "-").Replace(ts)
}

// DumpFilename returns the base filename for a record of pageType captured at t
func DumpFilename(pageType PageType, t time.Time) string {
	if pageType == "" {
		pageType = PageUnknown
	}
	return fmt.Sprintf("%s%s-%s%s", dumpPrefix, pageType, DumpTimestamp(t), dumpExt)
}

// Save writes rec to a new file in the active archive. Existing files are
// never overwritten; a numeric suffix is added on a name collision.
func (s *DumpStore) Save(rec *PageScrapeRecord) (*DumpFile, error) {
	if rec == nil {
		return nil, &PersistenceError{Path: s.ActiveRoot(), Op: "write", Err: errors.New("nil record")}
	}
	if err := s.EnsureArchiveDir(); err != nil {
		return nil, err
	}

	out := *rec
	if out.CapturedAt.IsZero() {
		out.CapturedAt = s.now().UTC()
	}
	data, err := json.MarshalIndent(&out, "", "  ")
	if err != nil {
		return nil, &PersistenceError{Path: s.ActiveRoot(), Op: "encode", Err: err}
	}

	name := DumpFilename(out.PageType, out.CapturedAt)
	path, err := writeExclusive(s.ActiveRoot(), name, data)
	if err != nil {
		return nil, err
	}

	LogDebug("Saved dump %s (%d bytes)", path, len(data))
	return &DumpFile{Filename: filepath.Base(path), Filepath: path, Size: int64(len(data))}, nil
}

// SaveHTML writes raw page HTML beside the scrape archive as <label>-<ts>.html
func (s *DumpStore) SaveHTML(label, pageHTML string) (*DumpFile, error) {
	dir := s.HTMLDumpDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, &PersistenceError{Path: dir, Op: "mkdir", Err: err}
	}
	label = strings.Trim(unsafeLabelChars.ReplaceAllString(label, "-"), "-")
	if label == "" {
		label = "page"
	}
	name := fmt.Sprintf("%s-%s.html", label, DumpTimestamp(s.now()))
	path, err := writeExclusive(dir, name, []byte(pageHTML))
	if err != nil {
		return nil, err
	}
	return &DumpFile{Filename: filepath.Base(path), Filepath: path, Size: int64(len(pageHTML))}, nil
}

// writeExclusive creates dir/name with O_EXCL, trying name_01, name_02, ...
// when the file already exists. The suffix keeps names in string order.
func writeExclusive(dir, name string, data []byte) (string, error) {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	for i := 0; i < maxNameAttempts; i++ {
		candidate := name
		if i > 0 {
			candidate = fmt.Sprintf("%s_%02d%s", stem, i, ext)
		}
		path := filepath.Join(dir, candidate)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", &PersistenceError{Path: path, Op: "create", Err: err}
		}

		if _, err := f.Write(data); err != nil {
			_ = f.Close()
			_ = os.Remove(path)
			return "", &PersistenceError{Path: path, Op: "write", Err: err}
		}
		if err := f.Close(); err != nil {
			_ = os.Remove(path)
			return "", &PersistenceError{Path: path, Op: "close", Err: err}
		}
		return path, nil
	}
	return "", &PersistenceError{Path: filepath.Join(dir, name), Op: "create", Err: fmt.Errorf("no free filename after %d attempts", maxNameAttempts)}
}

// List returns a summary of every dump across all roots, newest first.
// Files that cannot be read or parsed are logged and skipped.
func (s *DumpStore) List() []DumpSummary {
	seen := make(map[string]bool)
	summaries := []DumpSummary{}

	for _, root := range s.roots {
		entries, err := os.ReadDir(root)
		if err != nil {
			if !os.IsNotExist(err) {
				LogWarn("Failed to read dump directory %s: %v", root, err)
			}
			continue
		}

		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), dumpExt) {
				continue
			}
			path := filepath.Join(root, entry.Name())
			if abs, err := filepath.Abs(path); err == nil {
				if seen[abs] {
					continue
				}
				seen[abs] = true
			}

			summary, err := summarizeDump(path)
			if err != nil {
				LogWarn("Skipping dump %s: %v", path, err)
				continue
			}
			summaries = append(summaries, summary)
		}
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		if !summaries[i].Date.Equal(summaries[j].Date) {
			return summaries[i].Date.After(summaries[j].Date)
		}
		return summaries[i].Filename > summaries[j].Filename
	})
	return summaries
}

func summarizeDump(path string) (DumpSummary, error) {
	info, err := os.Stat(path)
	if err != nil {
		return DumpSummary{}, &PersistenceError{Path: path, Op: "stat", Err: err}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return DumpSummary{}, &PersistenceError{Path: path, Op: "read", Err: err}
	}
	if !gjson.ValidBytes(data) || !gjson.ParseBytes(data).IsObject() {
		return DumpSummary{}, &MalformedDumpError{Path: path, Err: errors.New("not a JSON object")}
	}

	fields := gjson.GetManyBytes(data,
		"pageType", "stories.#", "posts.#", "messages.#", "notifications.#", "rawUsernames.#")

	pageType := PageType(fields[0].String())
	if pageType == "" {
		pageType = PageUnknown
	}

	return DumpSummary{
		Filename:      filepath.Base(path),
		Filepath:      path,
		Date:          info.ModTime(),
		Size:          info.Size(),
		PageType:      pageType,
		Stories:       int(fields[1].Int()),
		Posts:         int(fields[2].Int()),
		Messages:      int(fields[3].Int()),
		Notifications: int(fields[4].Int()),
		Usernames:     int(fields[5].Int()),
	}, nil
}

// Load reads one dump back into a record
func (s *DumpStore) Load(path string) (*PageScrapeRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &PersistenceError{Path: path, Op: "read", Err: err}
	}
	if !gjson.ValidBytes(data) || !gjson.ParseBytes(data).IsObject() {
		return nil, &MalformedDumpError{Path: path, Err: errors.New("not a JSON object")}
	}

	var rec PageScrapeRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, &MalformedDumpError{Path: path, Err: err}
	}
	if rec.PageType == "" {
		rec.PageType = PageUnknown
	}
	return &rec, nil
}

// LoadAll folds every listed dump into one dataset, skipping failures
func (s *DumpStore) LoadAll() (*SessionDataset, LoadReport) {
	dataset := NewSessionDataset()
	var report LoadReport

	for _, summary := range s.List() {
		rec, err := s.Load(summary.Filepath)
		if err != nil {
			LogWarn("Skipping dump %s: %v", summary.Filename, err)
			report.Skipped++
			report.Failures = append(report.Failures, summary.Filename)
			continue
		}
		dataset = s.merger.Merge(dataset, rec)
		report.Loaded++
	}

	LogDebug("Loaded %d dump(s), skipped %d", report.Loaded, report.Skipped)
	return dataset, report
}

// Latest returns the newest dump summary, if any
func (s *DumpStore) Latest() (DumpSummary, bool) {
	summaries := s.List()
	if len(summaries) == 0 {
		return DumpSummary{}, false
	}
	return summaries[0], true
}

// Resolve maps a dump filename or path to an existing file path. Bare
// filenames are looked up in every root in priority order.
func (s *DumpStore) Resolve(ref string) (string, error) {
	if strings.ContainsRune(ref, os.PathSeparator) {
		if _, err := os.Stat(ref); err != nil {
			return "", &PersistenceError{Path: ref, Op: "stat", Err: err}
		}
		return ref, nil
	}
	name := ref
	if !strings.HasSuffix(name, dumpExt) {
		name += dumpExt
	}
	for _, root := range s.roots {
		path := filepath.Join(root, name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", &PersistenceError{Path: ref, Op: "resolve", Err: os.ErrNotExist}
}
