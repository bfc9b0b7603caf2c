package internal

import (
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	maxRawUsernames  = 50
	maxRawTexts      = 30
	maxCaptionLen    = 200
	maxPreviewLen    = 80
	loginIconMinimum = 3
	backfillUnread   = 3
)

// reservedPaths are top-level routes that look like usernames but are not
var reservedPaths = map[string]bool{
	"explore": true, "direct": true, "accounts": true, "p": true, "reels": true,
	"stories": true, "reel": true, "tv": true, "about": true, "legal": true,
	"api": true, "developer": true, "privacy": true, "terms": true,
	"session": true, "login": true, "challenge": true,
}

var (
	profilePathPattern = regexp.MustCompile(`^/[a-zA-Z0-9._]+/?$`)
	usernameHref       = regexp.MustCompile(`^/([a-zA-Z0-9._]{1,30})/?$`)
	storyAltPattern    = regexp.MustCompile(`(?i)^(.+?)(?:'s profile|'s story| profile)`)
	messageAltPattern  = regexp.MustCompile(`(?i)^(.+?)(?:'s profile|'s photo)`)
	likesPattern       = regexp.MustCompile(`(?i)(\d[\d,.]*)\s*(likes?|views?)`)
	followersPattern   = regexp.MustCompile(`(?i)(\d+[KMkm]?)\s*followers?`)
	followingPattern   = regexp.MustCompile(`(?i)(\d+[KMkm]?)\s*following`)
	mutualFriends      = regexp.MustCompile(`(?i)Followed by (.+?) and`)
	followedByPattern  = regexp.MustCompile(`(?i)Followed by ([a-zA-Z0-9._]+)`)
)

// notificationRule maps a text line to a notification. Rules are tried in
// order and the first match wins for a line.
type notificationRule struct {
	kind    string
	pattern *regexp.Regexp
	// contentGroup is the submatch index holding the content type, 0 for none
	contentGroup int
}

var notificationRules = []notificationRule{
	{kind: NotificationFollow, pattern: regexp.MustCompile(`(?i)^([a-zA-Z0-9._]+) started following you`)},
	{kind: NotificationLike, pattern: regexp.MustCompile(`(?i)^([a-zA-Z0-9._]+).* liked your (post|reel|photo|video)`), contentGroup: 2},
	{kind: NotificationStoryLike, pattern: regexp.MustCompile(`(?i)^([a-zA-Z0-9._]+).* liked your story`)},
	{kind: NotificationComment, pattern: regexp.MustCompile(`(?i)^([a-zA-Z0-9._]+).* commented:`)},
	{kind: NotificationMention, pattern: regexp.MustCompile(`(?i)^([a-zA-Z0-9._]+).* mentioned you`)},
}

// PageExtractor turns a rendered page into a PageScrapeRecord
type PageExtractor interface {
	Extract(pageHTML, pageURL string) (*PageScrapeRecord, error)
}

// Extractor is the DOM-heuristic PageExtractor. It never returns a partial
// record: either a complete record or an *ExtractionError.
type Extractor struct {
	now func() time.Time
}

// NewExtractor creates a new Extractor
func NewExtractor() *Extractor {
	return &Extractor{now: time.Now}
}

// Extract parses pageHTML and runs every heuristic over it
func (e *Extractor) Extract(pageHTML, pageURL string) (*PageScrapeRecord, error) {
	return e.ExtractFrom(strings.NewReader(pageHTML), pageURL)
}

// ExtractFrom is Extract over a reader
func (e *Extractor) ExtractFrom(r io.Reader, pageURL string) (*PageScrapeRecord, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, &ExtractionError{URL: pageURL, Err: fmt.Errorf("failed to parse document: %w", err)}
	}
	return e.ExtractDocument(doc, pageURL)
}

// ExtractDocument runs the heuristics over an already parsed document
func (e *Extractor) ExtractDocument(doc *goquery.Document, pageURL string) (rec *PageScrapeRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			rec = nil
			err = &ExtractionError{URL: pageURL, Err: fmt.Errorf("panic during extraction: %v", r)}
		}
	}()

	now := time.Now
	if e != nil && e.now != nil {
		now = e.now
	}

	rec = &PageScrapeRecord{
		URL:           pageURL,
		PageType:      DetectPageType(pageURL),
		LoggedIn:      doc.Find("svg[aria-label]").Length() > loginIconMinimum,
		Stories:       []StoryEntry{},
		Posts:         []PostEntry{},
		Messages:      []MessageEntry{},
		Notifications: []NotificationEntry{},
		Mutuals:       []MutualEntry{},
		Suggestions:   []SuggestionEntry{},
		CapturedAt:    now().UTC(),
	}

	rec.ElementCounts = countElements(doc)
	rec.CurrentUser = detectCurrentUser(doc)
	rec.RawTexts = harvestTexts(doc)
	rec.RawUsernames = harvestUsernames(doc)
	rec.Stories = extractStories(doc)
	rec.Posts = extractPosts(doc)

	if rec.PageType == PageMessages {
		rec.Messages = extractMessages(doc)
		rec.Messages = backfillMessages(rec.Messages, rec.Stories, rec.RawTexts)
	}
	if rec.PageType == PageProfile {
		rec.Mutuals = append(rec.Mutuals, extractProfileMutuals(doc)...)
	}

	rec.Suggestions = extractSuggestions(doc)

	notifications, mutuals := inferNotifications(rec.RawTexts)
	rec.Notifications = notifications
	rec.Mutuals = append(rec.Mutuals, mutuals...)

	LogDebug("Extracted %s page: %d stories, %d posts, %d messages, %d notifications",
		rec.PageType, len(rec.Stories), len(rec.Posts), len(rec.Messages), len(rec.Notifications))
	return rec, nil
}

// DetectPageType classifies a page by its URL path. First matching rule wins.
func DetectPageType(pageURL string) PageType {
	path := pageURL
	if u, err := url.Parse(pageURL); err == nil {
		path = u.Path
	}

	switch {
	case path == "" || path == "/":
		return PageHome
	case strings.HasPrefix(path, "/direct"):
		return PageMessages
	case strings.HasPrefix(path, "/explore"):
		return PageExplore
	case strings.HasPrefix(path, "/reels"):
		return PageReels
	case strings.HasPrefix(path, "/stories"):
		return PageStories
	case profilePathPattern.MatchString(path):
		return PageProfile
	case strings.HasPrefix(path, "/p/"):
		return PagePost
	}
	return PageUnknown
}

func countElements(doc *goquery.Document) map[string]int {
	return map[string]int{
		"articles": doc.Find("article").Length(),
		"images":   doc.Find("img").Length(),
		"links":    doc.Find("a").Length(),
		"buttons":  doc.Find("button").Length(),
		"divRoles": doc.Find("div[role]").Length(),
		"spans":    doc.Find("span").Length(),
	}
}

// detectCurrentUser looks for the navigation link labelled "Profile"
// that points at a single-segment path.
func detectCurrentUser(doc *goquery.Document) string {
	var user string
	doc.Find(`a[href^="/"]`).EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if !strings.Contains(innerText(a), "Profile") {
			return true
		}
		if a.Find(`img[alt*="profile picture"]`).Length() == 0 {
			return true
		}
		if name, ok := usernameFromHref(a.AttrOr("href", "")); ok {
			user = name
			return false
		}
		return true
	})
	return user
}

// usernameFromHref returns the username for a single-segment, non-reserved path
func usernameFromHref(href string) (string, bool) {
	m := usernameHref.FindStringSubmatch(href)
	if m == nil {
		return "", false
	}
	if reservedPaths[strings.ToLower(m[1])] {
		return "", false
	}
	return m[1], true
}

func harvestUsernames(doc *goquery.Document) []string {
	seen := make(map[string]bool)
	names := []string{}
	doc.Find(`a[href^="/"]`).EachWithBreak(func(_ int, a *goquery.Selection) bool {
		name, ok := usernameFromHref(a.AttrOr("href", ""))
		if ok && !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
		return len(names) < maxRawUsernames
	})
	return names
}

func harvestTexts(doc *goquery.Document) []string {
	seen := make(map[string]bool)
	texts := []string{}
	doc.Find("span, h1, h2, p").EachWithBreak(func(_ int, el *goquery.Selection) bool {
		t := textContent(el)
		if n := textLen(t); n > 5 && n < 100 && !seen[t] {
			seen[t] = true
			texts = append(texts, t)
		}
		return len(texts) < maxRawTexts
	})
	return texts
}

func extractStories(doc *goquery.Document) []StoryEntry {
	seen := make(map[string]bool)
	stories := []StoryEntry{}
	doc.Find(`div[role="button"], button`).Each(func(_ int, el *goquery.Selection) {
		img := el.Find("img").First()
		alt, ok := img.Attr("alt")
		if !ok || alt == "" {
			return
		}
		m := storyAltPattern.FindStringSubmatch(alt)
		if m == nil {
			return
		}
		name := strings.TrimSpace(m[1])
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		stories = append(stories, StoryEntry{
			Username:     name,
			HasUnwatched: el.Find(`[style*="linear-gradient"], [style*="border"]`).Length() > 0,
			ImgSrc:       img.AttrOr("src", ""),
		})
	})
	return stories
}

func extractPosts(doc *goquery.Document) []PostEntry {
	posts := []PostEntry{}
	doc.Find("article").Each(func(_ int, article *goquery.Selection) {
		username := ""
		if link := article.Find(`header a[href^="/"]`).First(); link.Length() > 0 {
			username = textContent(link)
			if username == "" {
				username = strings.ReplaceAll(link.AttrOr("href", ""), "/", "")
			}
		}
		if username == "" {
			return
		}

		post := PostEntry{
			Username: username,
			IsVideo:  article.Find("video").Length() > 0,
			ImgSrc:   article.Find(`img[src*="instagram"]`).First().AttrOr("src", ""),
		}

		article.Find("span").EachWithBreak(func(_ int, span *goquery.Selection) bool {
			t := span.Text()
			if n := textLen(t); n > 20 && n < 500 {
				post.Caption = truncate(t, maxCaptionLen)
				return false
			}
			return true
		})

		if section := article.Find("section").First(); section.Length() > 0 {
			if m := likesPattern.FindStringSubmatch(section.Text()); m != nil {
				post.Likes = parseCount(m[1])
			}
		}

		if tm := article.Find("time").First(); tm.Length() > 0 {
			post.Timestamp = tm.AttrOr("datetime", "")
			if post.Timestamp == "" {
				post.Timestamp = textContent(tm)
			}
		}

		posts = append(posts, post)
	})
	return posts
}

// parseCount strips thousands separators and reads the leading integer
func parseCount(s string) int {
	s = strings.ReplaceAll(s, ",", "")
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func extractMessages(doc *goquery.Document) []MessageEntry {
	seen := make(map[string]bool)
	messages := []MessageEntry{}
	doc.Find(`div[role="button"], div[tabindex="0"]`).Each(func(_ int, row *goquery.Selection) {
		img := row.Find("img").First()
		alt, ok := img.Attr("alt")
		if !ok || alt == "" {
			return
		}
		if n := textLen(row.Text()); n <= 5 || n >= 300 {
			return
		}
		m := messageAltPattern.FindStringSubmatch(alt)
		if m == nil {
			return
		}
		username := strings.TrimSpace(m[1])
		if username == "" || seen[username] {
			return
		}
		seen[username] = true

		messages = append(messages, MessageEntry{
			Username: username,
			Preview:  truncate(longestPreviewLine(textLines(row.Nodes...), username), maxPreviewLen),
			Unread:   row.Find(`[style*="rgb(0, 149, 246)"]`).Length() > 0 || strings.Contains(row.Text(), "Active"),
			IsGroup:  row.Find("img").Length() > 1,
			ImgSrc:   img.AttrOr("src", ""),
		})
	})
	return messages
}

// longestPreviewLine picks the longest line that is not the username and
// whose length is between 5 and 99.
func longestPreviewLine(lines []string, username string) string {
	best := ""
	for _, l := range lines {
		if l == username {
			continue
		}
		n := textLen(l)
		if n > 5 && n < 100 && n > textLen(best) {
			best = l
		}
	}
	return best
}

// backfillMessages adds story contacts as message rows when the inbox scan
// found fewer rows than there are story bubbles on the page.
func backfillMessages(messages []MessageEntry, stories []StoryEntry, rawTexts []string) []MessageEntry {
	if len(messages) >= len(stories) {
		return messages
	}
	have := make(map[string]bool, len(messages))
	for _, m := range messages {
		have[m.Username] = true
	}
	for idx, s := range stories {
		if have[s.Username] {
			continue
		}
		have[s.Username] = true
		preview := ""
		if idx < len(rawTexts) {
			preview = truncate(rawTexts[idx], maxPreviewLen)
		}
		messages = append(messages, MessageEntry{
			Username: s.Username,
			Preview:  preview,
			Unread:   idx < backfillUnread,
			ImgSrc:   s.ImgSrc,
		})
	}
	return messages
}

func extractProfileMutuals(doc *goquery.Document) []MutualEntry {
	header := doc.Find("header").First()
	if header.Length() == 0 {
		return nil
	}

	var mutuals []MutualEntry
	seenType := make(map[string]bool)
	add := func(m MutualEntry) {
		if seenType[m.Type] {
			return
		}
		seenType[m.Type] = true
		mutuals = append(mutuals, m)
	}

	header.Find("li, span[title]").Each(func(_ int, stat *goquery.Selection) {
		text := stat.Text()
		if m := followersPattern.FindStringSubmatch(text); m != nil {
			add(MutualEntry{Type: MutualFollowers, Count: m[1]})
		}
		if m := followingPattern.FindStringSubmatch(text); m != nil {
			add(MutualEntry{Type: MutualFollowing, Count: m[1]})
		}
	})

	text := header.Text()
	if strings.Contains(text, "Follows you") {
		add(MutualEntry{Type: MutualFollowsYou})
	}
	if m := mutualFriends.FindStringSubmatch(text); m != nil {
		add(MutualEntry{Type: MutualMutualFriends, Preview: strings.TrimSpace(m[1])})
	}
	return mutuals
}

func extractSuggestions(doc *goquery.Document) []SuggestionEntry {
	seen := make(map[string]bool)
	suggestions := []SuggestionEntry{}
	doc.Find(`div[role="presentation"]`).Each(func(_ int, box *goquery.Selection) {
		link := box.Find(`a[href^="/"]`).First()
		if link.Length() == 0 || box.Find("button").Length() == 0 {
			return
		}
		username, ok := usernameFromHref(link.AttrOr("href", ""))
		if !ok || seen[username] {
			return
		}
		seen[username] = true
		reason := ReasonSuggested
		if strings.Contains(box.Text(), "Followed by") {
			reason = ReasonMutual
		}
		suggestions = append(suggestions, SuggestionEntry{Username: username, Reason: reason})
	})
	return suggestions
}

// inferNotifications runs each text line through the notification rules.
// Lines mentioning "Followed by <name>" also yield a followed_by mutual.
func inferNotifications(lines []string) ([]NotificationEntry, []MutualEntry) {
	notifications := []NotificationEntry{}
	var mutuals []MutualEntry
	seenMutual := make(map[string]bool)

	for _, line := range lines {
		for _, rule := range notificationRules {
			m := rule.pattern.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			n := NotificationEntry{Username: m[1], Type: rule.kind, Text: line}
			if rule.contentGroup > 0 {
				n.ContentType = strings.ToLower(m[rule.contentGroup])
			}
			notifications = append(notifications, n)
			break
		}

		if m := followedByPattern.FindStringSubmatch(line); m != nil && !seenMutual[m[1]] {
			seenMutual[m[1]] = true
			mutuals = append(mutuals, MutualEntry{Username: m[1], Type: MutualFollowedBy, Text: line})
		}
	}
	return notifications, mutuals
}
