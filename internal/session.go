package internal

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ExtractResult is the outcome of extracting the current page. When the
// dump could not be written the record is still returned, DumpPath is
// empty and Warning explains why.
type ExtractResult struct {
	Record   *PageScrapeRecord `json:"record"`
	DumpPath string            `json:"dumpPath,omitempty"`
	Warning  string            `json:"warning,omitempty"`
}

// Controller owns the session dataset and serializes every use of the
// browser surface, so only one extraction runs at a time.
type Controller struct {
	mu         sync.Mutex
	browser    Browser
	extractor  PageExtractor
	store      *DumpStore
	merger     *SessionMerger
	projector  *Projector
	journal    *Journal
	dataset    *SessionDataset
	delays     CrawlDelays
	chatDelays ChatDelays
	sleep      func(time.Duration)
}

// ControllerOption configures a Controller
type ControllerOption func(*Controller)

// WithBrowser attaches a page surface
func WithBrowser(b Browser) ControllerOption {
	return func(c *Controller) { c.browser = b }
}

// WithExtractor replaces the DOM extractor
func WithExtractor(e PageExtractor) ControllerOption {
	return func(c *Controller) { c.extractor = e }
}

// WithJournal records crawl runs in j
func WithJournal(j *Journal) ControllerOption {
	return func(c *Controller) { c.journal = j }
}

// WithCrawlDelays overrides the crawl step delays
func WithCrawlDelays(d CrawlDelays) ControllerOption {
	return func(c *Controller) { c.delays = d }
}

// WithChatDelays overrides the chat scrape delays
func WithChatDelays(d ChatDelays) ControllerOption {
	return func(c *Controller) { c.chatDelays = d }
}

// WithWait replaces the wait function used by crawls and chat scrapes
func WithWait(sleep func(time.Duration)) ControllerOption {
	return func(c *Controller) { c.sleep = sleep }
}

// WithProjector replaces the display projector
func WithProjector(p *Projector) ControllerOption {
	return func(c *Controller) { c.projector = p }
}

// NewController creates a controller persisting to store
func NewController(store *DumpStore, opts ...ControllerOption) *Controller {
	c := &Controller{
		extractor:  NewExtractor(),
		store:      store,
		merger:     NewSessionMerger(),
		projector:  NewProjector(),
		dataset:    NewSessionDataset(),
		delays:     DefaultCrawlDelays,
		chatDelays: DefaultChatDelays,
		sleep:      time.Sleep,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Store returns the dump store
func (c *Controller) Store() *DumpStore {
	return c.store
}

// ExtractCurrentPage extracts the page shown in the browser and writes its
// dump before returning. The session is not changed; see MergeIntoSession.
func (c *Controller) ExtractCurrentPage(ctx context.Context) (*ExtractResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.extractAndSave(ctx)
}

// CaptureCurrentPage extracts, saves and merges the current page
func (c *Controller) CaptureCurrentPage(ctx context.Context) (*ExtractResult, SessionStats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	res, err := c.extractAndSave(ctx)
	if err != nil {
		return nil, c.dataset.Stats(), err
	}
	c.dataset = c.merger.Merge(c.dataset, res.Record)
	return res, c.dataset.Stats(), nil
}

func (c *Controller) extractAndSave(ctx context.Context) (*ExtractResult, error) {
	if c.browser == nil {
		return nil, ErrBrowserUnavailable
	}

	pageURL, err := c.browser.CurrentURL(ctx)
	if err != nil {
		return nil, &ExtractionError{URL: pageURL, Err: err}
	}
	doc, err := c.browser.HTML(ctx)
	if err != nil {
		return nil, &ExtractionError{URL: pageURL, Err: err}
	}

	rec, err := c.extractor.Extract(doc, pageURL)
	if err != nil {
		var extractErr *ExtractionError
		if !errors.As(err, &extractErr) {
			err = &ExtractionError{URL: pageURL, Err: err}
		}
		LogWarn("Extraction failed for %s: %v", pageURL, err)
		return nil, err
	}

	res := &ExtractResult{Record: rec}
	file, err := c.store.Save(rec)
	if err != nil {
		LogWarn("Failed to write dump: %v", err)
		res.Warning = err.Error()
		return res, nil
	}
	res.DumpPath = file.Filepath
	return res, nil
}

// Navigate moves the browser to path before an extraction
func (c *Controller) Navigate(ctx context.Context, path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.browser == nil {
		return ErrBrowserUnavailable
	}
	return c.browser.Navigate(ctx, path)
}

// MergeIntoSession folds rec into the session dataset
func (c *Controller) MergeIntoSession(rec *PageScrapeRecord) SessionStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dataset = c.merger.Merge(c.dataset, rec)
	return c.dataset.Stats()
}

// SessionStats returns the counts of the session dataset
func (c *Controller) SessionStats() SessionStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dataset.Stats()
}

// Dataset returns a copy of the session dataset
func (c *Controller) Dataset() *SessionDataset {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dataset.Clone()
}

// ResetSession discards the session dataset
func (c *Controller) ResetSession() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dataset = NewSessionDataset()
}

// ProjectForDisplay projects the session dataset for the visualization
func (c *Controller) ProjectForDisplay() *WorldDisplayDataset {
	return c.projector.Project(c.Dataset())
}

// ListDumps lists every dump, newest first
func (c *Controller) ListDumps() []DumpSummary {
	return c.store.List()
}

// LoadDump loads one dump and merges it into the session
func (c *Controller) LoadDump(path string) (*PageScrapeRecord, error) {
	rec, err := c.store.Load(path)
	if err != nil {
		return nil, err
	}
	c.MergeIntoSession(rec)
	return rec, nil
}

// LoadAllDumps replaces the session with the merge of every readable dump
func (c *Controller) LoadAllDumps() (SessionStats, LoadReport) {
	loaded, report := c.store.LoadAll()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.dataset = c.merger.Merge(NewSessionDataset(), datasetAsRecord(loaded))
	return c.dataset.Stats(), report
}

// datasetAsRecord views a dataset as one record so it can be folded in
func datasetAsRecord(d *SessionDataset) *PageScrapeRecord {
	return &PageScrapeRecord{
		Stories:       d.Stories,
		Posts:         d.Posts,
		Messages:      d.Messages,
		Notifications: d.Notifications,
		Mutuals:       d.Mutuals,
		Suggestions:   d.Suggestions,
		RawUsernames:  d.Usernames,
	}
}

// RunAutoCrawl starts a fresh session and visits steps in order, saving and
// merging each page. Every status transition is passed to the observers.
// The run is journaled when a journal is attached.
func (c *Controller) RunAutoCrawl(ctx context.Context, steps []CrawlStep, observers ...func(StepStatus)) (*CrawlResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.browser == nil {
		return nil, ErrBrowserUnavailable
	}
	if len(steps) == 0 {
		steps = DefaultCrawlSteps
	}

	opts := []CrawlOption{WithDelays(c.delays), WithSleep(c.sleep)}
	for _, fn := range observers {
		opts = append(opts, WithObserver(fn))
	}
	driver := NewCrawlDriver(c.browser, func(ctx context.Context) (*PageScrapeRecord, error) {
		res, err := c.extractAndSave(ctx)
		if err != nil {
			return nil, err
		}
		return res.Record, nil
	}, opts...)

	result := driver.Run(ctx, steps, NewSessionDataset())
	c.dataset = result.Dataset

	if c.journal != nil {
		if err := c.journal.RecordRun(result); err != nil {
			LogWarn("Failed to journal crawl %s: %v", result.RunID, err)
		}
	}
	return result, nil
}

// StreamAutoCrawl runs RunAutoCrawl in the background and publishes each
// status on the returned channel, which is closed when the crawl is done.
func (c *Controller) StreamAutoCrawl(ctx context.Context, steps []CrawlStep) (<-chan StepStatus, <-chan *CrawlResult) {
	n := len(steps)
	if n == 0 {
		n = len(DefaultCrawlSteps)
	}
	statuses := make(chan StepStatus, n*6+2)
	results := make(chan *CrawlResult, 1)

	go func() {
		defer close(results)
		defer close(statuses)
		res, err := c.RunAutoCrawl(ctx, steps, func(st StepStatus) { statuses <- st })
		if err != nil {
			statuses <- StepStatus{State: StateFailed, Message: err.Error(), Err: err, At: time.Now()}
			return
		}
		results <- res
	}()
	return statuses, results
}

// DumpCurrentHTML writes the raw HTML of the current page beside the archive
func (c *Controller) DumpCurrentHTML(ctx context.Context, label string) (*DumpFile, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.browser == nil {
		return nil, ErrBrowserUnavailable
	}
	doc, err := c.browser.HTML(ctx)
	if err != nil {
		return nil, err
	}
	if label == "" {
		if pageURL, err := c.browser.CurrentURL(ctx); err == nil {
			label = string(DetectPageType(pageURL))
		}
	}
	return c.store.SaveHTML(label, doc)
}

// ScrapeUserChat opens the conversation with username and reads its most
// recent messages, then returns to the page shown before.
func (c *Controller) ScrapeUserChat(ctx context.Context, username string) (*ChatTranscript, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.browser == nil {
		return nil, ErrBrowserUnavailable
	}
	return scrapeChat(ctx, c.browser, c.chatDelays, c.sleep, username)
}
