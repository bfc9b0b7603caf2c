package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	maxChatMessages = 5
	maxChatTextLen  = 200
	minChatRowLen   = 15
)

// ErrMessageButtonNotFound is returned when a profile offers no way into a DM thread
var ErrMessageButtonNotFound = errors.New("Message button not found")

var (
	validUsername = regexp.MustCompile(`^[a-zA-Z0-9._]{1,30}$`)

	chatUIWords  = regexp.MustCompile(`(?i)^(You sent|You reacted|Seen|Active|Online|Message|Enter|Today|Yesterday|Verified|Double tap)$`)
	chatClock    = regexp.MustCompile(`(?i)^\d{1,2}:\d{2}\s*(AM|PM)?$`)
	chatDate     = regexp.MustCompile(`(?i)^(Mon|Tue|Wed|Thu|Fri|Sat|Sun|January|February|March|April|May|June|July|August|September|October|November|December)`)
	chatSeen     = regexp.MustCompile(`(?i)^Seen\s+\d+`)
	chatAgo      = regexp.MustCompile(`(?i)^\d+[hmdw]\s*(ago)?$`)
	chatUsername = regexp.MustCompile(`^@?[a-zA-Z0-9_.]+$`)
)

// ChatMessage is one message of a conversation thread
type ChatMessage struct {
	Text string `json:"text" yaml:"text"`
	IsMe bool   `json:"isMe" yaml:"is_me"`
}

// ChatTranscript holds the most recent messages of a thread
type ChatTranscript struct {
	Username string        `json:"username" yaml:"username"`
	URL      string        `json:"url" yaml:"url"`
	Messages []ChatMessage `json:"messages" yaml:"messages"`
}

// ChatDelays are the waits of a chat scrape
type ChatDelays struct {
	ProfileSettle time.Duration
	ThreadSettle  time.Duration
}

// DefaultChatDelays allow the profile and the thread to render
var DefaultChatDelays = ChatDelays{
	ProfileSettle: 1500 * time.Millisecond,
	ThreadSettle:  3500 * time.Millisecond,
}

// ExtractChat reads the last messages of an open conversation thread
func ExtractChat(r io.Reader, pageURL, username string) (*ChatTranscript, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, &ExtractionError{URL: pageURL, Err: err}
	}

	transcript := &ChatTranscript{Username: username, URL: pageURL, Messages: []ChatMessage{}}
	seen := make(map[string]bool)

	doc.Find(`[role="row"]`).Each(func(_ int, row *goquery.Selection) {
		rowText := row.Text()
		if textLen(rowText) < minChatRowLen {
			return
		}
		isMe := strings.Contains(rowText, "You sent") || strings.Contains(rowText, "You reacted")

		best := ""
		row.Find("span").Each(func(_ int, span *goquery.Selection) {
			text := textContent(span)
			if text == "" || isChatNoise(text) {
				return
			}
			n := textLen(text)
			if n <= textLen(best) || n <= 8 {
				return
			}
			if len(strings.Fields(text)) >= 2 || n > 20 {
				best = text
			}
		})

		if best == "" || seen[best] {
			return
		}
		seen[best] = true
		transcript.Messages = append(transcript.Messages, ChatMessage{Text: truncate(best, maxChatTextLen), IsMe: isMe})
	})

	if len(transcript.Messages) > maxChatMessages {
		transcript.Messages = transcript.Messages[len(transcript.Messages)-maxChatMessages:]
	}
	return transcript, nil
}

func isChatNoise(text string) bool {
	switch {
	case chatUIWords.MatchString(text),
		chatClock.MatchString(text),
		chatDate.MatchString(text),
		chatSeen.MatchString(text),
		chatAgo.MatchString(text):
		return true
	case chatUsername.MatchString(text) && textLen(text) < 25:
		return true
	}
	return false
}

// scrapeChat opens username's profile, follows the Message button into the
// thread, reads it and returns to the page shown before.
func scrapeChat(ctx context.Context, browser Browser, delays ChatDelays, sleep func(time.Duration), username string) (*ChatTranscript, error) {
	if !validUsername.MatchString(username) {
		return nil, fmt.Errorf("invalid username %q", username)
	}
	clicker, ok := browser.(Clicker)
	if !ok {
		return nil, fmt.Errorf("browser cannot click page elements")
	}

	previous, _ := browser.CurrentURL(ctx)
	defer func() {
		if previous != "" && !strings.HasPrefix(previous, "about:blank") {
			if err := browser.Navigate(context.WithoutCancel(ctx), previous); err != nil {
				LogWarn("Failed to return to %s: %v", previous, err)
			}
		}
	}()

	if err := browser.Navigate(ctx, "/"+username+"/"); err != nil {
		return nil, fmt.Errorf("failed to open profile: %w", err)
	}
	sleep(delays.ProfileSettle)

	clicked, err := clicker.ClickText(ctx, `div[role="button"], button`, "message")
	if err != nil {
		return nil, err
	}
	if !clicked {
		clicked, err = clicker.ClickSelector(ctx, `a[href*="/direct/t/"]`)
		if err != nil {
			return nil, err
		}
	}
	if !clicked {
		return nil, ErrMessageButtonNotFound
	}
	sleep(delays.ThreadSettle)

	pageURL, err := browser.CurrentURL(ctx)
	if err != nil {
		return nil, err
	}
	doc, err := browser.HTML(ctx)
	if err != nil {
		return nil, &ExtractionError{URL: pageURL, Err: err}
	}
	return ExtractChat(strings.NewReader(doc), pageURL, username)
}
