package internal

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/iksnae/social-session/testutil"
)

func testCrawlResult(started time.Time) *CrawlResult {
	id := uuid.NewString()
	return &CrawlResult{
		RunID:     id,
		StartedAt: started,
		EndedAt:   started.Add(12 * time.Second),
		Succeeded: 1,
		Failed:    1,
		Steps: []StepStatus{
			{RunID: id, Index: 0, Step: CrawlStep{Path: "/", Label: "Home Feed"}, State: StateMerged, Message: "merged", At: started.Add(4 * time.Second)},
			{RunID: id, Index: 1, Step: CrawlStep{Path: "/missing/", Label: "Broken"}, State: StateFailed, Message: "navigation failed", At: started.Add(6 * time.Second)},
		},
	}
}

func openTestJournal(t *testing.T) (*Journal, string) {
	t.Helper()
	path := filepath.Join(testutil.CreateTempDir(t), "nested", "journal.db")
	j, err := OpenJournal(path)
	if err != nil {
		t.Fatalf("OpenJournal() error = %v", err)
	}
	t.Cleanup(func() { _ = j.Close() })
	return j, path
}

func TestJournal_RecordAndRead(t *testing.T) {
	j, path := openTestJournal(t)
	started := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	res := testCrawlResult(started)

	if err := j.RecordRun(res); err != nil {
		t.Fatalf("RecordRun() error = %v", err)
	}

	runs, err := j.RecentRuns(5)
	if err != nil {
		t.Fatalf("RecentRuns() error = %v", err)
	}
	want := []JournalRun{{
		ID:        res.RunID,
		StartedAt: started,
		EndedAt:   started.Add(12 * time.Second),
		Steps:     2,
		Succeeded: 1,
		Failed:    1,
	}}
	if diff := cmp.Diff(want, runs); diff != "" {
		t.Errorf("runs mismatch (-want +got):\n%s", diff)
	}

	steps, err := j.RunSteps(res.RunID)
	if err != nil {
		t.Fatalf("RunSteps() error = %v", err)
	}
	wantSteps := []JournalStep{
		{Index: 0, Path: "/", Label: "Home Feed", State: StateMerged, Message: "merged", At: started.Add(4 * time.Second)},
		{Index: 1, Path: "/missing/", Label: "Broken", State: StateFailed, Message: "navigation failed", At: started.Add(6 * time.Second)},
	}
	if diff := cmp.Diff(wantSteps, steps); diff != "" {
		t.Errorf("steps mismatch (-want +got):\n%s", diff)
	}

	db := testutil.OpenSQLite(t, path)
	if n := testutil.CountRows(t, db, "crawl_steps"); n != 2 {
		t.Errorf("crawl_steps rows = %d, want 2", n)
	}
}

func TestJournal_RecordRunReplaces(t *testing.T) {
	j, path := openTestJournal(t)
	res := testCrawlResult(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))

	for i := 0; i < 2; i++ {
		if err := j.RecordRun(res); err != nil {
			t.Fatalf("RecordRun() #%d error = %v", i, err)
		}
	}
	if err := j.RecordRun(nil); err != nil {
		t.Errorf("RecordRun(nil) error = %v", err)
	}

	db := testutil.OpenSQLite(t, path)
	if n := testutil.CountRows(t, db, "crawl_runs"); n != 1 {
		t.Errorf("crawl_runs rows = %d, want 1", n)
	}
}

func TestJournal_RecentRunsNewestFirst(t *testing.T) {
	j, _ := openTestJournal(t)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	// sub-second offsets check that stored timestamps sort correctly
	offsets := []time.Duration{0, 500 * time.Millisecond, 2 * time.Second, 2*time.Second + 1}
	var ids []string
	for _, off := range offsets {
		res := testCrawlResult(base.Add(off))
		if err := j.RecordRun(res); err != nil {
			t.Fatal(err)
		}
		ids = append(ids, res.RunID)
	}

	runs, err := j.RecentRuns(3)
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, r := range runs {
		got = append(got, r.ID)
	}
	want := []string{ids[3], ids[2], ids[1]}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("run order mismatch (-want +got):\n%s", diff)
	}
}

func TestJournal_RunStepsErrors(t *testing.T) {
	j, _ := openTestJournal(t)

	if _, err := j.RunSteps("not-a-uuid"); err == nil {
		t.Error("RunSteps() accepted an invalid id")
	}
	steps, err := j.RunSteps(uuid.NewString())
	if err != nil {
		t.Fatalf("RunSteps(unknown) error = %v", err)
	}
	if len(steps) != 0 {
		t.Errorf("RunSteps(unknown) = %v, want none", steps)
	}
}

func TestOpenJournal_InMemory(t *testing.T) {
	j, err := OpenJournal(":memory:")
	if err != nil {
		t.Fatalf("OpenJournal(:memory:) error = %v", err)
	}
	defer j.Close()

	if err := j.RecordRun(testCrawlResult(time.Now())); err != nil {
		t.Fatalf("RecordRun() error = %v", err)
	}
	runs, err := j.RecentRuns(0)
	if err != nil || len(runs) != 1 {
		t.Errorf("RecentRuns() = %v, %v", runs, err)
	}
}
