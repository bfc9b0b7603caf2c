package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// DefaultBaseURL is the site the crawl paths are resolved against
const DefaultBaseURL = "https://www.instagram.com"

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Clicker is implemented by browsers that can activate page elements
type Clicker interface {
	// ClickText clicks the first element matching selector whose text
	// contains text (case-insensitive). It reports whether one was found.
	ClickText(ctx context.Context, selector, text string) (bool, error)
	// ClickSelector clicks the first element matching selector
	ClickSelector(ctx context.Context, selector string) (bool, error)
}

// ChromeOptions configures a ChromeBrowser
type ChromeOptions struct {
	BaseURL     string
	Headless    bool
	UserDataDir string
	UserAgent   string
	Width       int
	Height      int
	Cookies     []BrowserCookie
}

// BrowserCookie is a cookie seeded into the browser before the first navigation
type BrowserCookie struct {
	Name     string `json:"name"`
	Value    string `json:"value"`
	Domain   string `json:"domain"`
	Path     string `json:"path"`
	Secure   bool   `json:"secure"`
	HTTPOnly bool   `json:"httpOnly"`
}

// LoadCookies reads a JSON array of cookies
func LoadCookies(file string) ([]BrowserCookie, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, &PersistenceError{Path: file, Op: "read", Err: err}
	}
	var cookies []BrowserCookie
	if err := json.Unmarshal(data, &cookies); err != nil {
		return nil, fmt.Errorf("failed to parse cookies %s: %w", file, err)
	}
	return cookies, nil
}

// ChromeBrowser drives a Chrome instance through chromedp. A persistent
// user data dir keeps the login session between runs.
type ChromeBrowser struct {
	opts        ChromeOptions
	ctx         context.Context
	cancelAlloc context.CancelFunc
	cancelCtx   context.CancelFunc
	closeOnce   sync.Once
}

// NewChromeBrowser starts Chrome and opens a blank tab
func NewChromeBrowser(opts ChromeOptions) (*ChromeBrowser, error) {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.Width == 0 || opts.Height == 0 {
		opts.Width, opts.Height = 1280, 900
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserAgent(opts.UserAgent),
		chromedp.WindowSize(opts.Width, opts.Height),
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if opts.UserDataDir != "" {
		if err := os.MkdirAll(opts.UserDataDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create browser profile dir: %w", err)
		}
		allocOpts = append(allocOpts, chromedp.UserDataDir(opts.UserDataDir))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	ctx, cancelCtx := chromedp.NewContext(allocCtx)

	if err := chromedp.Run(ctx); err != nil {
		cancelCtx()
		cancelAlloc()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	if len(opts.Cookies) > 0 {
		err := chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
			for _, c := range opts.Cookies {
				path := c.Path
				if path == "" {
					path = "/"
				}
				err := network.SetCookie(c.Name, c.Value).
					WithDomain(c.Domain).
					WithPath(path).
					WithSecure(c.Secure).
					WithHTTPOnly(c.HTTPOnly).
					Do(ctx)
				if err != nil {
					return err
				}
			}
			return nil
		}))
		if err != nil {
			cancelCtx()
			cancelAlloc()
			return nil, fmt.Errorf("failed to set cookies: %w", err)
		}
	}

	LogDebug("Started browser (headless=%v, profile=%q)", opts.Headless, opts.UserDataDir)
	return &ChromeBrowser{
		opts:        opts,
		ctx:         ctx,
		cancelAlloc: cancelAlloc,
		cancelCtx:   cancelCtx,
	}, nil
}

// run executes actions on the browser tab, bounded by the caller's ctx
func (b *ChromeBrowser) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(b.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}

// Navigate opens path (or an absolute URL) in the tab
func (b *ChromeBrowser) Navigate(ctx context.Context, path string) error {
	target, err := ResolveURL(b.opts.BaseURL, path)
	if err != nil {
		return err
	}
	LogDebug("Navigating to %s", target)
	return b.run(ctx, chromedp.Navigate(target))
}

// CurrentURL returns the tab's location
func (b *ChromeBrowser) CurrentURL(ctx context.Context) (string, error) {
	var loc string
	if err := b.run(ctx, chromedp.Location(&loc)); err != nil {
		return "", err
	}
	return loc, nil
}

// HTML returns the serialized document
func (b *ChromeBrowser) HTML(ctx context.Context) (string, error) {
	var doc string
	if err := b.run(ctx, chromedp.OuterHTML("html", &doc, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return doc, nil
}

// ClickText implements Clicker
func (b *ChromeBrowser) ClickText(ctx context.Context, selector, text string) (bool, error) {
	js := fmt.Sprintf(`(function() {
		const want = %q.toLowerCase();
		const els = Array.from(document.querySelectorAll(%q));
		const el = els.find(e => (e.textContent || '').toLowerCase().includes(want));
		if (!el) return false;
		el.click();
		return true;
	})()`, text, selector)
	var clicked bool
	err := b.run(ctx, chromedp.Evaluate(js, &clicked))
	return clicked, err
}

// ClickSelector implements Clicker
func (b *ChromeBrowser) ClickSelector(ctx context.Context, selector string) (bool, error) {
	js := fmt.Sprintf(`(function() {
		const el = document.querySelector(%q);
		if (!el) return false;
		el.click();
		return true;
	})()`, selector)
	var clicked bool
	err := b.run(ctx, chromedp.Evaluate(js, &clicked))
	return clicked, err
}

// Close shuts the tab and the browser process
func (b *ChromeBrowser) Close() {
	b.closeOnce.Do(func() {
		b.cancelCtx()
		b.cancelAlloc()
	})
}

// ResolveURL joins a crawl path onto base. Absolute URLs pass through.
func ResolveURL(base, path string) (string, error) {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path, nil
	}
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid base URL %q: %w", base, err)
	}
	ref, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("invalid path %q: %w", path, err)
	}
	return b.ResolveReference(ref).String(), nil
}

// StaticBrowser serves fixed HTML documents keyed by path. It backs
// offline extraction of saved pages.
type StaticBrowser struct {
	mu      sync.Mutex
	baseURL string
	pages   map[string]string
	current string
}

// NewStaticBrowser creates a StaticBrowser over pages (path -> HTML)
func NewStaticBrowser(baseURL string, pages map[string]string) *StaticBrowser {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	copied := make(map[string]string, len(pages))
	for k, v := range pages {
		copied[k] = v
	}
	return &StaticBrowser{baseURL: baseURL, pages: copied}
}

// StaticBrowserFromFile serves a single saved page as if it lived at pageURL
func StaticBrowserFromFile(pageURL, file string) (*StaticBrowser, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, &PersistenceError{Path: file, Op: "read", Err: err}
	}
	u, err := url.Parse(pageURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid page URL %q", pageURL)
	}
	base := u.Scheme + "://" + u.Host
	path := u.Path
	if path == "" {
		path = "/"
	}
	b := NewStaticBrowser(base, map[string]string{path: string(data)})
	b.current = path
	return b, nil
}

// Navigate implements Browser
func (b *StaticBrowser) Navigate(_ context.Context, path string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		if u, err := url.Parse(path); err == nil {
			path = u.Path
		}
	}
	if _, ok := b.pages[path]; !ok {
		return fmt.Errorf("no page for %s", path)
	}
	b.current = path
	return nil
}

// CurrentURL implements Browser
func (b *StaticBrowser) CurrentURL(_ context.Context) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current == "" {
		return "", fmt.Errorf("no page loaded")
	}
	return ResolveURL(b.baseURL, b.current)
}

// HTML implements Browser
func (b *StaticBrowser) HTML(_ context.Context) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current == "" {
		return "", fmt.Errorf("no page loaded")
	}
	return b.pages[b.current], nil
}
