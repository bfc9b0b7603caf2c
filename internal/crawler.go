package internal

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Browser is the page surface the crawl drives. Implementations hold one
// navigable document at a time.
type Browser interface {
	Navigate(ctx context.Context, path string) error
	CurrentURL(ctx context.Context) (string, error)
	HTML(ctx context.Context) (string, error)
}

// CrawlStep is one page visit of an auto crawl
type CrawlStep struct {
	Path        string `json:"path" yaml:"path" mapstructure:"path"`
	Label       string `json:"label" yaml:"label" mapstructure:"label"`
	Description string `json:"description,omitempty" yaml:"description,omitempty" mapstructure:"description"`
}

// DefaultCrawlSteps visits the feed, inbox, activity, explore and profile pages
var DefaultCrawlSteps = []CrawlStep{
	{Path: "/", Label: "Home Feed", Description: "stories and posts"},
	{Path: "/direct/inbox/", Label: "Messages", Description: "conversation list"},
	{Path: "/accounts/activity/", Label: "Notifications", Description: "follows, likes and mentions"},
	{Path: "/explore/", Label: "Explore", Description: "suggested accounts"},
	{Path: "/accounts/edit/", Label: "Profile", Description: "own account"},
}

// CrawlState is a state of the crawl step machine
type CrawlState string

const (
	StateIdle       CrawlState = "idle"
	StateNavigating CrawlState = "navigating"
	StateSettling   CrawlState = "settling"
	StateExtracting CrawlState = "extracting"
	StateMerged     CrawlState = "merged"
	StateFailed     CrawlState = "failed"
	StateSkipped    CrawlState = "skipped"
	StateDone       CrawlState = "done"
)

// CrawlDelays are the fixed waits of each step. The crawl always proceeds
// once a wait elapses; there is no readiness signal.
type CrawlDelays struct {
	Settle     time.Duration `json:"settle" yaml:"settle"`
	PreExtract time.Duration `json:"preExtract" yaml:"pre_extract"`
	Cooldown   time.Duration `json:"cooldown" yaml:"cooldown"`
	// StepTimeout bounds navigation and extraction, zero for none
	StepTimeout time.Duration `json:"stepTimeout" yaml:"step_timeout"`
}

// DefaultCrawlDelays matches the page load timing of the target site
var DefaultCrawlDelays = CrawlDelays{
	Settle:      2000 * time.Millisecond,
	PreExtract:  500 * time.Millisecond,
	Cooldown:    1500 * time.Millisecond,
	StepTimeout: 30 * time.Second,
}

// StepStatus is one transition reported while crawling
type StepStatus struct {
	RunID   string       `json:"runId"`
	Index   int          `json:"index"`
	Total   int          `json:"total"`
	Step    CrawlStep    `json:"step"`
	State   CrawlState   `json:"state"`
	Message string       `json:"message,omitempty"`
	Err     error        `json:"-"`
	Stats   SessionStats `json:"stats"`
	At      time.Time    `json:"at"`
}

// CrawlResult is the outcome of a full crawl run
type CrawlResult struct {
	RunID     string          `json:"runId"`
	Dataset   *SessionDataset `json:"-"`
	Steps     []StepStatus    `json:"steps"`
	Succeeded int             `json:"succeeded"`
	Failed    int             `json:"failed"`
	Skipped   int             `json:"skipped"`
	Cancelled bool            `json:"cancelled"`
	StartedAt time.Time       `json:"startedAt"`
	EndedAt   time.Time       `json:"endedAt"`
}

// ExtractFunc produces a record for the page currently shown
type ExtractFunc func(ctx context.Context) (*PageScrapeRecord, error)

// CrawlOption configures a CrawlDriver
type CrawlOption func(*CrawlDriver)

// WithDelays overrides the step delays
func WithDelays(d CrawlDelays) CrawlOption {
	return func(c *CrawlDriver) { c.delays = d }
}

// WithSleep replaces the wait function, mainly for tests
func WithSleep(sleep func(time.Duration)) CrawlOption {
	return func(c *CrawlDriver) { c.sleep = sleep }
}

// WithObserver registers a callback for every status transition
func WithObserver(fn func(StepStatus)) CrawlOption {
	return func(c *CrawlDriver) { c.observers = append(c.observers, fn) }
}

// CrawlDriver walks a fixed list of pages, extracting and merging each one.
// Steps run strictly in sequence and a failed step never aborts the run.
type CrawlDriver struct {
	browser   Browser
	extract   ExtractFunc
	merger    *SessionMerger
	delays    CrawlDelays
	sleep     func(time.Duration)
	observers []func(StepStatus)
	now       func() time.Time
}

// NewCrawlDriver creates a driver over browser using extract for each page
func NewCrawlDriver(browser Browser, extract ExtractFunc, opts ...CrawlOption) *CrawlDriver {
	c := &CrawlDriver{
		browser: browser,
		extract: extract,
		merger:  NewSessionMerger(),
		delays:  DefaultCrawlDelays,
		sleep:   time.Sleep,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run crawls steps, folding each extracted record into dataset. Cancelling
// ctx stops the crawl at the next step boundary; the remaining steps are
// reported as skipped and Done is still emitted.
func (c *CrawlDriver) Run(ctx context.Context, steps []CrawlStep, dataset *SessionDataset) *CrawlResult {
	result := &CrawlResult{
		RunID:     uuid.NewString(),
		Dataset:   dataset.Clone(),
		StartedAt: c.now(),
	}
	total := len(steps)
	emit := func(i int, step CrawlStep, state CrawlState, msg string, err error) StepStatus {
		st := StepStatus{
			RunID:   result.RunID,
			Index:   i,
			Total:   total,
			Step:    step,
			State:   state,
			Message: msg,
			Err:     err,
			Stats:   result.Dataset.Stats(),
			At:      c.now(),
		}
		for _, fn := range c.observers {
			fn(st)
		}
		return st
	}

	emit(-1, CrawlStep{}, StateIdle, fmt.Sprintf("Starting crawl of %d page(s)", total), nil)

	for i, step := range steps {
		if ctx.Err() != nil {
			result.Cancelled = true
			for j := i; j < total; j++ {
				result.Steps = append(result.Steps, emit(j, steps[j], StateSkipped, "crawl cancelled", ctx.Err()))
				result.Skipped++
			}
			break
		}

		final := c.runStep(ctx, i, step, result, emit)
		result.Steps = append(result.Steps, final)
		if final.State == StateMerged {
			result.Succeeded++
		} else {
			result.Failed++
		}
	}

	result.EndedAt = c.now()
	emit(total, CrawlStep{}, StateDone, "Crawl complete: "+FormatStats(result.Dataset.Stats()), nil)
	return result
}

// runStep performs one navigate-settle-extract-merge cycle. In-flight work
// is detached from ctx so a cancel only takes effect between steps.
func (c *CrawlDriver) runStep(ctx context.Context, i int, step CrawlStep, result *CrawlResult,
	emit func(int, CrawlStep, CrawlState, string, error) StepStatus) StepStatus {

	stepCtx := context.WithoutCancel(ctx)
	fields := map[string]interface{}{"run": result.RunID, "step": i + 1, "path": step.Path}

	emit(i, step, StateNavigating, "Navigating to "+step.Label, nil)
	if err := c.withTimeout(stepCtx, func(ctx context.Context) error { return c.browser.Navigate(ctx, step.Path) }); err != nil {
		logWithFields(fields).Warnf("Navigation failed: %v", err)
		c.sleep(c.delays.Cooldown)
		return emit(i, step, StateFailed, "navigation failed: "+err.Error(), err)
	}

	emit(i, step, StateSettling, "Waiting for page to settle", nil)
	c.sleep(c.delays.Settle)
	c.sleep(c.delays.PreExtract)

	emit(i, step, StateExtracting, "Extracting "+step.Label, nil)
	var rec *PageScrapeRecord
	err := c.withTimeout(stepCtx, func(ctx context.Context) error {
		var err error
		rec, err = c.extract(ctx)
		return err
	})
	if err == nil && rec == nil {
		err = fmt.Errorf("no record returned")
	}

	var final StepStatus
	if err != nil {
		logWithFields(fields).Warnf("Extraction failed: %v", err)
		final = emit(i, step, StateFailed, "extraction failed: "+err.Error(), err)
	} else {
		result.Dataset = c.merger.Merge(result.Dataset, rec)
		final = emit(i, step, StateMerged, fmt.Sprintf("%s merged from %s", FormatStats(result.Dataset.Stats()), rec.PageType), nil)
	}

	c.sleep(c.delays.Cooldown)
	return final
}

func (c *CrawlDriver) withTimeout(ctx context.Context, fn func(context.Context) error) error {
	if c.delays.StepTimeout <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, c.delays.StepTimeout)
	defer cancel()
	return fn(ctx)
}

// Stream runs the crawl in the background, publishing every transition on
// the returned channel. The channel is closed after Done; the result is
// delivered once on the second channel.
func (c *CrawlDriver) Stream(ctx context.Context, steps []CrawlStep, dataset *SessionDataset) (<-chan StepStatus, <-chan *CrawlResult) {
	statuses := make(chan StepStatus, len(steps)*6+2)
	results := make(chan *CrawlResult, 1)

	streamed := *c
	streamed.observers = append(append([]func(StepStatus){}, c.observers...), func(st StepStatus) {
		statuses <- st
	})

	go func() {
		defer close(results)
		defer close(statuses)
		results <- streamed.Run(ctx, steps, dataset)
	}()
	return statuses, results
}

// FormatStats renders dataset counts as a short status line
func FormatStats(s SessionStats) string {
	return fmt.Sprintf("%d stories, %d messages, %d posts, %d notifications, %d usernames",
		s.Stories, s.Messages, s.Posts, s.Notifications, s.Usernames)
}
