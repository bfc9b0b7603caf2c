package cmd

import (
	"fmt"

	"github.com/iksnae/social-session/internal"
)

// browserFactory opens the live page surface. Tests swap it for a static one.
var browserFactory = openChromeBrowser

func openChromeBrowser(cfg internal.Config, paths internal.ArchivePaths) (internal.Browser, func(), error) {
	opts := internal.ChromeOptions{
		BaseURL:     cfg.BaseURL,
		Headless:    cfg.Browser.Headless,
		UserDataDir: cfg.BrowserProfileDir(paths),
	}
	if cfg.Browser.CookiesFile != "" {
		cookies, err := internal.LoadCookies(cfg.Browser.CookiesFile)
		if err != nil {
			return nil, nil, err
		}
		opts.Cookies = cookies
	}

	browser, err := internal.NewChromeBrowser(opts)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", internal.ErrBrowserUnavailable, err)
	}
	return browser, browser.Close, nil
}

// session bundles a controller with the resources it holds open
type session struct {
	cfg     internal.Config
	paths   internal.ArchivePaths
	ctrl    *internal.Controller
	closers []func()
}

func (s *session) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// openSession builds a controller from the configuration. A browser is
// attached when live is set and the journal when it is enabled.
func openSession(live bool, extra ...internal.ControllerOption) (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	paths, err := archivePaths(cfg)
	if err != nil {
		return nil, err
	}

	s := &session{cfg: cfg, paths: paths}
	opts := []internal.ControllerOption{
		internal.WithCrawlDelays(cfg.CrawlDelays()),
		internal.WithChatDelays(cfg.ChatDelays()),
	}

	if cfg.Journal {
		journal, err := internal.OpenJournal(paths.JournalPath())
		if err != nil {
			internal.LogWarn("Crawl journal disabled: %v", err)
		} else {
			s.closers = append(s.closers, func() { _ = journal.Close() })
			opts = append(opts, internal.WithJournal(journal))
		}
	}

	if live {
		browser, closeBrowser, err := browserFactory(cfg, paths)
		if err != nil {
			s.Close()
			return nil, err
		}
		if closeBrowser != nil {
			s.closers = append(s.closers, closeBrowser)
		}
		opts = append(opts, internal.WithBrowser(browser))
	}

	opts = append(opts, extra...)
	s.ctrl = internal.NewController(paths.NewStore(), opts...)
	return s, nil
}
