package internal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

const chatThreadPath = "/direct/t/340282/"

// clickingBrowser is a StaticBrowser whose "Message" button opens a thread
type clickingBrowser struct {
	*StaticBrowser
	hasButton bool
	hasLink   bool
	clicks    []string
}

func newClickingBrowser() *clickingBrowser {
	pages := TestPages()
	pages["/mia/"] = `<html><body><header><h2>mia</h2></header><div role="button">Message</div></body></html>`
	pages[chatThreadPath] = ChatThreadHTML
	b := NewStaticBrowser(TestBaseURL, pages)
	return &clickingBrowser{StaticBrowser: b, hasButton: true}
}

func (b *clickingBrowser) ClickText(ctx context.Context, selector, text string) (bool, error) {
	b.clicks = append(b.clicks, "text:"+text)
	if !b.hasButton {
		return false, nil
	}
	return true, b.Navigate(ctx, chatThreadPath)
}

func (b *clickingBrowser) ClickSelector(ctx context.Context, selector string) (bool, error) {
	b.clicks = append(b.clicks, "selector:"+selector)
	if !b.hasLink {
		return false, nil
	}
	return true, b.Navigate(ctx, chatThreadPath)
}

func TestExtractChat(t *testing.T) {
	transcript, err := ExtractChat(strings.NewReader(ChatThreadHTML), TestBaseURL+chatThreadPath, "mia")
	if err != nil {
		t.Fatalf("ExtractChat() error = %v", err)
	}
	want := &ChatTranscript{
		Username: "mia",
		URL:      TestBaseURL + chatThreadPath,
		Messages: []ChatMessage{
			{Text: "Are we still on for the show tonight?"},
			{Text: "Yes! Meet you at the entrance", IsMe: true},
			{Text: "Perfect, bring the tickets please"},
		},
	}
	if diff := cmp.Diff(want, transcript); diff != "" {
		t.Errorf("transcript mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractChat_KeepsLastMessages(t *testing.T) {
	var b strings.Builder
	b.WriteString("<html><body>")
	for i := 1; i <= 8; i++ {
		fmt.Fprintf(&b, `<div role="row"><span>message number %d here</span></div>`, i)
	}
	b.WriteString("</body></html>")

	transcript, err := ExtractChat(strings.NewReader(b.String()), TestBaseURL+chatThreadPath, "mia")
	if err != nil {
		t.Fatalf("ExtractChat() error = %v", err)
	}
	if len(transcript.Messages) != maxChatMessages {
		t.Fatalf("Messages = %d, want %d", len(transcript.Messages), maxChatMessages)
	}
	if transcript.Messages[0].Text != "message number 4 here" {
		t.Errorf("first kept = %q, want message 4", transcript.Messages[0].Text)
	}
}

func TestIsChatNoise(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{text: "You sent", want: true},
		{text: "Seen", want: true},
		{text: "10:42 PM", want: true},
		{text: "9:05", want: true},
		{text: "Tuesday 9:00", want: true},
		{text: "Seen 2h ago", want: true},
		{text: "3h", want: true},
		{text: "rosa.m", want: true},
		{text: "@rosa.m", want: true},
		{text: "see you soon", want: false},
		{text: "Perfect, bring the tickets please", want: false},
	}
	for _, tt := range tests {
		if got := isChatNoise(tt.text); got != tt.want {
			t.Errorf("isChatNoise(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestScrapeChat(t *testing.T) {
	noWait := func(time.Duration) {}

	t.Run("message button", func(t *testing.T) {
		b := newClickingBrowser()
		if err := b.Navigate(context.Background(), "/"); err != nil {
			t.Fatal(err)
		}
		transcript, err := scrapeChat(context.Background(), b, DefaultChatDelays, noWait, "mia")
		if err != nil {
			t.Fatalf("scrapeChat() error = %v", err)
		}
		if len(transcript.Messages) != 3 || transcript.URL != TestBaseURL+chatThreadPath {
			t.Errorf("transcript = %+v", transcript)
		}
		current, _ := b.CurrentURL(context.Background())
		if current != TestBaseURL+"/" {
			t.Errorf("browser left at %s, want the previous page", current)
		}
	})

	t.Run("thread link fallback", func(t *testing.T) {
		b := newClickingBrowser()
		b.hasButton, b.hasLink = false, true
		if _, err := scrapeChat(context.Background(), b, DefaultChatDelays, noWait, "mia"); err != nil {
			t.Fatalf("scrapeChat() error = %v", err)
		}
		want := []string{"text:message", `selector:a[href*="/direct/t/"]`}
		if diff := cmp.Diff(want, b.clicks); diff != "" {
			t.Errorf("clicks mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("no way into the thread", func(t *testing.T) {
		b := newClickingBrowser()
		b.hasButton = false
		_, err := scrapeChat(context.Background(), b, DefaultChatDelays, noWait, "mia")
		if !errors.Is(err, ErrMessageButtonNotFound) {
			t.Errorf("scrapeChat() error = %v, want ErrMessageButtonNotFound", err)
		}
	})

	t.Run("invalid username", func(t *testing.T) {
		b := newClickingBrowser()
		if _, err := scrapeChat(context.Background(), b, DefaultChatDelays, noWait, "../etc"); err == nil {
			t.Error("scrapeChat() accepted an invalid username")
		}
	})

	t.Run("browser cannot click", func(t *testing.T) {
		b := NewStaticBrowser(TestBaseURL, TestPages())
		if _, err := scrapeChat(context.Background(), b, DefaultChatDelays, noWait, "mia"); err == nil {
			t.Error("scrapeChat() succeeded without a Clicker")
		}
	})

	t.Run("unknown profile", func(t *testing.T) {
		b := newClickingBrowser()
		if _, err := scrapeChat(context.Background(), b, DefaultChatDelays, noWait, "nobody"); err == nil {
			t.Error("scrapeChat() succeeded for a profile that failed to open")
		}
	})
}
