package internal

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

var testSteps = []CrawlStep{
	{Path: "/", Label: "Home Feed"},
	{Path: "/direct/inbox/", Label: "Messages"},
	{Path: "/missing/", Label: "Broken"},
	{Path: "/accounts/activity/", Label: "Notifications"},
	{Path: "/rosa.m/", Label: "Profile"},
}

// pageExtract extracts whatever the browser currently shows
func pageExtract(b Browser) ExtractFunc {
	e := newTestExtractor()
	return func(ctx context.Context) (*PageScrapeRecord, error) {
		pageURL, err := b.CurrentURL(ctx)
		if err != nil {
			return nil, err
		}
		doc, err := b.HTML(ctx)
		if err != nil {
			return nil, err
		}
		return e.Extract(doc, pageURL)
	}
}

type sleepRecorder struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (s *sleepRecorder) sleep(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waits = append(s.waits, d)
}

func TestCrawlDriver_FailedStepDoesNotAbort(t *testing.T) {
	browser := NewStaticBrowser(TestBaseURL, TestPages())
	waits := &sleepRecorder{}
	var statuses []StepStatus

	driver := NewCrawlDriver(browser, pageExtract(browser),
		WithDelays(CrawlDelays{Settle: 2 * time.Second, PreExtract: 500 * time.Millisecond, Cooldown: 1500 * time.Millisecond}),
		WithSleep(waits.sleep),
		WithObserver(func(st StepStatus) { statuses = append(statuses, st) }),
	)

	res := driver.Run(context.Background(), testSteps, NewSessionDataset())

	if res.Succeeded != 4 || res.Failed != 1 || res.Skipped != 0 || res.Cancelled {
		t.Errorf("result = %d ok, %d failed, %d skipped, cancelled %v; want 4/1/0/false",
			res.Succeeded, res.Failed, res.Skipped, res.Cancelled)
	}
	if len(res.Steps) != len(testSteps) {
		t.Fatalf("Steps = %d, want %d", len(res.Steps), len(testSteps))
	}
	var finals []CrawlState
	for _, st := range res.Steps {
		finals = append(finals, st.State)
	}
	want := []CrawlState{StateMerged, StateMerged, StateFailed, StateMerged, StateMerged}
	if diff := cmp.Diff(want, finals); diff != "" {
		t.Errorf("final states mismatch (-want +got):\n%s", diff)
	}
	if !strings.HasPrefix(res.Steps[2].Message, "navigation failed") || res.Steps[2].Err == nil {
		t.Errorf("failed step = %+v", res.Steps[2])
	}

	if statuses[0].State != StateIdle {
		t.Errorf("first status = %s, want idle", statuses[0].State)
	}
	last := statuses[len(statuses)-1]
	if last.State != StateDone || !strings.HasPrefix(last.Message, "Crawl complete") {
		t.Errorf("last status = %+v, want done", last)
	}
	for _, st := range statuses {
		if st.RunID != res.RunID {
			t.Fatalf("status run id %q, want %q", st.RunID, res.RunID)
		}
	}

	// 4 successful steps wait settle, pre-extract and cooldown; the failed one only cools down
	if len(waits.waits) != 13 {
		t.Errorf("waits = %d, want 13", len(waits.waits))
	}

	stats := res.Dataset.Stats()
	if stats.Stories == 0 || stats.Posts != 2 || stats.Messages != 4 || stats.Notifications != 5 {
		t.Errorf("dataset stats = %+v", stats)
	}
}

func TestCrawlDriver_StateSequence(t *testing.T) {
	browser := NewStaticBrowser(TestBaseURL, TestPages())
	var states []CrawlState
	driver := NewCrawlDriver(browser, pageExtract(browser),
		WithSleep(func(time.Duration) {}),
		WithObserver(func(st StepStatus) { states = append(states, st.State) }),
	)

	driver.Run(context.Background(), []CrawlStep{{Path: "/", Label: "Home"}, {Path: "/nowhere/", Label: "Gone"}}, nil)

	want := []CrawlState{
		StateIdle,
		StateNavigating, StateSettling, StateExtracting, StateMerged,
		StateNavigating, StateFailed,
		StateDone,
	}
	if diff := cmp.Diff(want, states); diff != "" {
		t.Errorf("state sequence mismatch (-want +got):\n%s", diff)
	}
}

func TestCrawlDriver_DoesNotModifyInputDataset(t *testing.T) {
	browser := NewStaticBrowser(TestBaseURL, TestPages())
	start := CreateTestDataset("alex")
	before := start.Clone()

	res := NewCrawlDriver(browser, pageExtract(browser), WithSleep(func(time.Duration) {})).
		Run(context.Background(), testSteps[:1], start)

	if diff := cmp.Diff(before, start); diff != "" {
		t.Errorf("Run modified its dataset argument (-before +after):\n%s", diff)
	}
	if res.Dataset.Stats().Posts != 3 {
		t.Errorf("Posts = %d, want alex's post plus 2 from the feed", res.Dataset.Stats().Posts)
	}
}

func TestCrawlDriver_CancelSkipsRemainingSteps(t *testing.T) {
	browser := NewStaticBrowser(TestBaseURL, TestPages())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var sawDone bool
	driver := NewCrawlDriver(browser, pageExtract(browser),
		WithSleep(func(time.Duration) {}),
		WithObserver(func(st StepStatus) {
			if st.State == StateMerged && st.Index == 0 {
				cancel()
			}
			if st.State == StateDone {
				sawDone = true
			}
		}),
	)

	res := driver.Run(ctx, testSteps, NewSessionDataset())

	if !res.Cancelled {
		t.Error("Cancelled = false")
	}
	if res.Succeeded != 1 || res.Skipped != 4 || res.Failed != 0 {
		t.Errorf("result = %d ok, %d failed, %d skipped; want 1/0/4", res.Succeeded, res.Failed, res.Skipped)
	}
	for _, st := range res.Steps[1:] {
		if st.State != StateSkipped || !errors.Is(st.Err, context.Canceled) {
			t.Errorf("step %d = %s (%v), want skipped", st.Index, st.State, st.Err)
		}
	}
	if !sawDone {
		t.Error("Done not emitted after cancellation")
	}
	if res.Dataset.Stats().Posts != 2 {
		t.Errorf("completed step was not kept: %+v", res.Dataset.Stats())
	}
}

func TestCrawlDriver_InFlightStepIgnoresCancel(t *testing.T) {
	browser := NewStaticBrowser(TestBaseURL, TestPages())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	inner := pageExtract(browser)
	extract := func(ctx context.Context) (*PageScrapeRecord, error) {
		cancel()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return inner(ctx)
	}

	res := NewCrawlDriver(browser, extract, WithSleep(func(time.Duration) {})).
		Run(ctx, testSteps[:2], NewSessionDataset())

	if res.Steps[0].State != StateMerged {
		t.Errorf("in-flight step = %s, want merged", res.Steps[0].State)
	}
	if res.Steps[1].State != StateSkipped {
		t.Errorf("next step = %s, want skipped", res.Steps[1].State)
	}
}

func TestCrawlDriver_ExtractionFailures(t *testing.T) {
	browser := NewStaticBrowser(TestBaseURL, TestPages())

	tests := []struct {
		name    string
		extract ExtractFunc
		delays  CrawlDelays
		wantMsg string
	}{
		{
			name:    "error",
			extract: func(context.Context) (*PageScrapeRecord, error) { return nil, errors.New("boom") },
			wantMsg: "extraction failed: boom",
		},
		{
			name:    "nil record",
			extract: func(context.Context) (*PageScrapeRecord, error) { return nil, nil },
			wantMsg: "extraction failed: no record returned",
		},
		{
			name: "step timeout",
			extract: func(ctx context.Context) (*PageScrapeRecord, error) {
				<-ctx.Done()
				return nil, ctx.Err()
			},
			delays:  CrawlDelays{StepTimeout: 10 * time.Millisecond},
			wantMsg: "extraction failed: context deadline exceeded",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := NewCrawlDriver(browser, tt.extract, WithDelays(tt.delays), WithSleep(func(time.Duration) {})).
				Run(context.Background(), testSteps[:1], nil)
			if res.Failed != 1 || res.Steps[0].State != StateFailed {
				t.Fatalf("result = %+v, want one failed step", res.Steps)
			}
			if res.Steps[0].Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", res.Steps[0].Message, tt.wantMsg)
			}
			if !res.Dataset.IsEmpty() {
				t.Errorf("failed step merged data: %+v", res.Dataset.Stats())
			}
		})
	}
}

func TestCrawlDriver_Stream(t *testing.T) {
	browser := NewStaticBrowser(TestBaseURL, TestPages())
	driver := NewCrawlDriver(browser, pageExtract(browser), WithSleep(func(time.Duration) {}))

	statuses, results := driver.Stream(context.Background(), testSteps, NewSessionDataset())

	var n int
	var last StepStatus
	for st := range statuses {
		n++
		last = st
	}
	res, ok := <-results
	if !ok || res == nil {
		t.Fatal("no result delivered")
	}
	if last.State != StateDone {
		t.Errorf("last streamed state = %s, want done", last.State)
	}
	// idle + 4 steps x 4 transitions + failed step x 2 + done
	if n != 1+16+2+1 {
		t.Errorf("streamed %d statuses, want 20", n)
	}
	if res.Succeeded != 4 {
		t.Errorf("Succeeded = %d, want 4", res.Succeeded)
	}
}

func TestFormatStats(t *testing.T) {
	got := FormatStats(SessionStats{Stories: 1, Messages: 2, Posts: 3, Notifications: 4, Usernames: 5})
	want := "1 stories, 2 messages, 3 posts, 4 notifications, 5 usernames"
	if got != want {
		t.Errorf("FormatStats() = %q, want %q", got, want)
	}
}
