package internal

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/iksnae/social-session/testutil"
)

func newTestController(t *testing.T, opts ...ControllerOption) (*Controller, *StaticBrowser) {
	t.Helper()
	browser := NewStaticBrowser(TestBaseURL, TestPages())
	store, _, _ := newTestStore(t)
	opts = append([]ControllerOption{
		WithBrowser(browser),
		WithExtractor(newTestExtractor()),
		WithWait(func(time.Duration) {}),
	}, opts...)
	return NewController(store, opts...), browser
}

func TestController_NoBrowser(t *testing.T) {
	store, _, _ := newTestStore(t)
	c := NewController(store)
	ctx := context.Background()

	if _, err := c.ExtractCurrentPage(ctx); !errors.Is(err, ErrBrowserUnavailable) {
		t.Errorf("ExtractCurrentPage() error = %v", err)
	}
	if _, _, err := c.CaptureCurrentPage(ctx); !errors.Is(err, ErrBrowserUnavailable) {
		t.Errorf("CaptureCurrentPage() error = %v", err)
	}
	if err := c.Navigate(ctx, "/"); !errors.Is(err, ErrBrowserUnavailable) {
		t.Errorf("Navigate() error = %v", err)
	}
	if _, err := c.RunAutoCrawl(ctx, nil); !errors.Is(err, ErrBrowserUnavailable) {
		t.Errorf("RunAutoCrawl() error = %v", err)
	}
	if _, err := c.DumpCurrentHTML(ctx, ""); !errors.Is(err, ErrBrowserUnavailable) {
		t.Errorf("DumpCurrentHTML() error = %v", err)
	}
	if _, err := c.ScrapeUserChat(ctx, "mia"); !errors.Is(err, ErrBrowserUnavailable) {
		t.Errorf("ScrapeUserChat() error = %v", err)
	}
	if ErrBrowserUnavailable.Error() != "Browser not open" {
		t.Errorf("ErrBrowserUnavailable = %q", ErrBrowserUnavailable.Error())
	}
}

func TestController_ExtractCurrentPageSavesWithoutMerging(t *testing.T) {
	c, _ := newTestController(t)
	ctx := context.Background()

	if err := c.Navigate(ctx, "/"); err != nil {
		t.Fatal(err)
	}
	res, err := c.ExtractCurrentPage(ctx)
	if err != nil {
		t.Fatalf("ExtractCurrentPage() error = %v", err)
	}
	if res.Record.PageType != PageHome || len(res.Record.Posts) != 2 {
		t.Errorf("record = %+v", res.Record)
	}
	if res.DumpPath == "" || res.Warning != "" {
		t.Fatalf("result = %+v, want a saved dump", res)
	}
	if _, err := os.Stat(res.DumpPath); err != nil {
		t.Errorf("dump missing: %v", err)
	}
	if !c.Dataset().IsEmpty() {
		t.Errorf("ExtractCurrentPage merged into the session: %+v", c.SessionStats())
	}

	saved, err := c.Store().Load(res.DumpPath)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(res.Record, saved); diff != "" {
		t.Errorf("saved dump differs from the returned record (-returned +saved):\n%s", diff)
	}
}

func TestController_CaptureCurrentPage(t *testing.T) {
	c, _ := newTestController(t)
	ctx := context.Background()

	_ = c.Navigate(ctx, "/direct/inbox/")
	_, stats, err := c.CaptureCurrentPage(ctx)
	if err != nil {
		t.Fatalf("CaptureCurrentPage() error = %v", err)
	}
	if stats.Messages != 4 || stats.Stories != 3 {
		t.Errorf("stats = %+v", stats)
	}

	_, again, err := c.CaptureCurrentPage(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(stats, again); diff != "" {
		t.Errorf("capturing the same page twice changed the session (-first +second):\n%s", diff)
	}
	if n := len(c.ListDumps()); n != 2 {
		t.Errorf("dumps = %d, want one per capture", n)
	}
}

func TestController_ExtractionFailure(t *testing.T) {
	store, _, _ := newTestStore(t)
	c := NewController(store, WithBrowser(NewStaticBrowser(TestBaseURL, TestPages())))

	_, err := c.ExtractCurrentPage(context.Background())
	var extractErr *ExtractionError
	if !errors.As(err, &extractErr) {
		t.Errorf("ExtractCurrentPage() before navigation error = %v, want *ExtractionError", err)
	}
	if n := len(c.ListDumps()); n != 0 {
		t.Errorf("dumps = %d after a failed extraction", n)
	}
}

func TestController_DumpWriteFailureStillReturnsRecord(t *testing.T) {
	dir := testutil.CreateTempDir(t)
	blocker := testutil.WriteFile(t, dir, "file", []byte("x"))
	browser := NewStaticBrowser(TestBaseURL, TestPages())
	c := NewController(NewDumpStore(filepath.Join(blocker, "dumps")), WithBrowser(browser))

	_ = c.Navigate(context.Background(), "/")
	res, stats, err := c.CaptureCurrentPage(context.Background())
	if err != nil {
		t.Fatalf("CaptureCurrentPage() error = %v", err)
	}
	if res.DumpPath != "" || res.Warning == "" {
		t.Errorf("result = %+v, want a warning and no path", res)
	}
	if stats.Posts != 2 {
		t.Errorf("record not merged after a write failure: %+v", stats)
	}
}

func TestController_RunAutoCrawl(t *testing.T) {
	journal, err := OpenJournal(filepath.Join(testutil.CreateTempDir(t), "journal.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer journal.Close()

	c, _ := newTestController(t, WithJournal(journal))
	var mu sync.Mutex
	var seen []CrawlState

	res, err := c.RunAutoCrawl(context.Background(), nil, func(st StepStatus) {
		mu.Lock()
		seen = append(seen, st.State)
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("RunAutoCrawl() error = %v", err)
	}

	// the default profile step has no fixture page
	if res.Succeeded != 4 || res.Failed != 1 {
		t.Errorf("result = %d ok, %d failed; want 4/1", res.Succeeded, res.Failed)
	}
	if len(res.Steps) != len(DefaultCrawlSteps) {
		t.Errorf("Steps = %d, want the default list", len(res.Steps))
	}
	if seen[0] != StateIdle || seen[len(seen)-1] != StateDone {
		t.Errorf("observer saw %v", seen)
	}
	if diff := cmp.Diff(res.Dataset.Stats(), c.SessionStats()); diff != "" {
		t.Errorf("session not updated from the crawl (-crawl +session):\n%s", diff)
	}
	if n := len(c.ListDumps()); n != 4 {
		t.Errorf("dumps = %d, want one per successful step", n)
	}

	runs, err := journal.RecentRuns(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].ID != res.RunID || runs[0].Succeeded != 4 {
		t.Errorf("journal runs = %+v", runs)
	}
}

func TestController_StreamAutoCrawl(t *testing.T) {
	c, _ := newTestController(t)
	steps := []CrawlStep{{Path: "/", Label: "Home"}, {Path: "/explore/", Label: "Explore"}}

	statuses, results := c.StreamAutoCrawl(context.Background(), steps)
	var states []CrawlState
	for st := range statuses {
		states = append(states, st.State)
	}
	res := <-results
	if res == nil || res.Succeeded != 2 {
		t.Fatalf("result = %+v", res)
	}
	if states[len(states)-1] != StateDone {
		t.Errorf("last state = %s", states[len(states)-1])
	}
}

func TestController_StreamAutoCrawlWithoutBrowser(t *testing.T) {
	store, _, _ := newTestStore(t)
	statuses, results := NewController(store).StreamAutoCrawl(context.Background(), nil)

	var got []StepStatus
	for st := range statuses {
		got = append(got, st)
	}
	if len(got) != 1 || !errors.Is(got[0].Err, ErrBrowserUnavailable) {
		t.Errorf("statuses = %+v, want one failure", got)
	}
	if res, ok := <-results; ok || res != nil {
		t.Errorf("result = %+v, want none", res)
	}
}

func TestController_LoadDumps(t *testing.T) {
	store, active, legacy := newTestStore(t)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	onePath := testutil.CreateDumpFixture(t, active, "scrape-home-a.json", testutil.JSONMarshal(t, CreateTestRecord(PageHome, "alex")), base)
	testutil.CreateDumpFixture(t, legacy, "scrape-home-old.json", []byte(testutil.LegacyDumpJSON), base.Add(time.Hour))

	c := NewController(store)
	rec, err := c.LoadDump(onePath)
	if err != nil {
		t.Fatalf("LoadDump() error = %v", err)
	}
	if rec.Stories[0].Username != "alex" || c.SessionStats().Posts != 1 {
		t.Errorf("LoadDump merged %+v", c.SessionStats())
	}

	stats, report := c.LoadAllDumps()
	if report.Loaded != 2 {
		t.Errorf("report = %+v", report)
	}
	if stats.Posts != 3 || stats.Stories != 1 || stats.Usernames != 2 {
		t.Errorf("stats = %+v", stats)
	}

	if _, err := c.LoadDump(filepath.Join(active, "missing.json")); err == nil {
		t.Error("LoadDump(missing) succeeded")
	}

	c.ResetSession()
	if !c.Dataset().IsEmpty() {
		t.Error("ResetSession left data behind")
	}
}

func hasStory(d *SessionDataset, username string) bool {
	for _, s := range d.Stories {
		if s.Username == username {
			return true
		}
	}
	return false
}

func TestController_LoadAllDumpsReplacesSession(t *testing.T) {
	store, active, _ := newTestStore(t)
	testutil.CreateDumpFixture(t, active, "scrape-home-a.json", testutil.JSONMarshal(t, CreateTestRecord(PageHome, "alex")), time.Time{})

	c := NewController(store)
	c.MergeIntoSession(CreateTestRecord(PageHome, "zed"))

	stats, report := c.LoadAllDumps()
	if report.Loaded != 1 || stats.Posts != 1 {
		t.Errorf("stats = %+v, report = %+v", stats, report)
	}
	if hasStory(c.Dataset(), "zed") || !hasStory(c.Dataset(), "alex") {
		t.Errorf("LoadAllDumps kept earlier session entries: %+v", c.Dataset().Stories)
	}
}

func TestController_RunAutoCrawlStartsFreshSession(t *testing.T) {
	c, _ := newTestController(t)
	c.MergeIntoSession(CreateTestRecord(PageHome, "zed"))

	res, err := c.RunAutoCrawl(context.Background(), []CrawlStep{{Path: "/", Label: "Home"}})
	if err != nil {
		t.Fatalf("RunAutoCrawl() error = %v", err)
	}
	if hasStory(res.Dataset, "zed") || hasStory(c.Dataset(), "zed") {
		t.Errorf("crawl kept earlier session entries: %+v", c.Dataset().Stories)
	}
	if c.SessionStats().Posts != 2 {
		t.Errorf("stats = %+v, want only the crawled page", c.SessionStats())
	}
}

func TestController_ProjectForDisplay(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c, _ := newTestController(t, WithProjector(NewProjectorAt(now)))
	c.MergeIntoSession(CreateTestRecord(PageHome, "alex"))

	world := c.ProjectForDisplay()
	if len(world.Stories) != 1 || world.Stories[0].Avatar != AvatarFor("alex") || !world.Stories[0].Timestamp.Equal(now) {
		t.Errorf("world stories = %+v", world.Stories)
	}
	if world.Profile.Posts != 1 {
		t.Errorf("profile = %+v", world.Profile)
	}
}

func TestController_DumpCurrentHTML(t *testing.T) {
	c, _ := newTestController(t)
	ctx := context.Background()
	_ = c.Navigate(ctx, "/direct/inbox/")

	file, err := c.DumpCurrentHTML(ctx, "")
	if err != nil {
		t.Fatalf("DumpCurrentHTML() error = %v", err)
	}
	if !strings.HasPrefix(file.Filename, "messages-") || !strings.HasSuffix(file.Filename, ".html") {
		t.Errorf("Filename = %q, want the page type as label", file.Filename)
	}

	labelled, err := c.DumpCurrentHTML(ctx, "inbox check")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(labelled.Filename, "inbox-check-") {
		t.Errorf("Filename = %q", labelled.Filename)
	}
}

func TestController_ScrapeUserChat(t *testing.T) {
	store, _, _ := newTestStore(t)
	c := NewController(store, WithBrowser(newClickingBrowser()), WithWait(func(time.Duration) {}))

	transcript, err := c.ScrapeUserChat(context.Background(), "mia")
	if err != nil {
		t.Fatalf("ScrapeUserChat() error = %v", err)
	}
	if transcript.Username != "mia" || len(transcript.Messages) != 3 {
		t.Errorf("transcript = %+v", transcript)
	}
}

func TestDatasetAsRecord(t *testing.T) {
	d := CreateTestDataset("alex", "sam")
	got := Merge(NewSessionDataset(), datasetAsRecord(d))
	if diff := cmp.Diff(d, got); diff != "" {
		t.Errorf("folding a dataset into an empty one changed it (-want +got):\n%s", diff)
	}
}
