package internal

import (
	"time"
)

// Page fixtures shaped like the rendered DOM of each app surface. They are
// shared by the extractor, controller and command tests.
const (
	TestBaseURL = "https://www.instagram.com"

	HomePageHTML = `<html><body>
<nav>
<svg aria-label="Home"></svg><svg aria-label="Search"></svg><svg aria-label="Reels"></svg><svg aria-label="Messenger"></svg>
<a href="/alice_w/"><img alt="alice_w's profile picture" src="me.jpg"><span>Profile</span></a>
</nav>
<div role="button"><img alt="bob.k's story" src="bob.jpg"><div style="background: linear-gradient(red, blue)"></div></div>
<div role="button"><img alt="carol's profile picture" src="carol.jpg"></div>
<div role="button"><img alt="bob.k's story" src="bob2.jpg"></div>
<article>
<header><a href="/dave/">dave</a></header>
<img src="https://scontent.cdninstagram.com/p1.jpg">
<span>Sunset over the bay, what a view tonight</span>
<section><span>1,234 likes</span></section>
<time datetime="2024-05-01T10:00:00.000Z">May 1</time>
</article>
<article>
<header><a href="/erin/"></a></header>
<video></video>
<section>12 views</section>
</article>
</body></html>`

	InboxPageHTML = `<html><body>
<div role="button"><img alt="pat's story" src="pat.jpg"></div>
<div role="button"><img alt="quinn's story" src="quinn.jpg"></div>
<div role="button"><img alt="mia's story" src="mia-story.jpg"></div>
<div tabindex="0"><img alt="mia's photo" src="mia.jpg"><span>mia</span><span>See you at the show tonight!</span><span>Active now</span></div>
<div tabindex="0"><img alt="noah's photo" src="noah.jpg"><img alt="olive's photo" src="olive.jpg"><span>Weekend crew</span><span>noah: sounds good</span></div>
<div tabindex="0"><img alt="mia's photo" src="mia.jpg"><span>mia</span><span>Older thread with mia</span></div>
</body></html>`

	ProfilePageHTML = `<html><body>
<header>
<h2>rosa.m</h2>
<ul><li><span>12 posts</span></li><li><span>1204</span> followers</li><li><span>340 following</span></li></ul>
<span>Follows you</span>
<span>Followed by sam and 3 others</span>
</header>
</body></html>`

	ActivityPageHTML = `<html><body>
<div>
<span>henry_88 started following you. 2h</span>
<span>ivy liked your photo. 3d</span>
<span>jack.b and others liked your story.</span>
<span>kim commented: love this!</span>
<span>leo mentioned you in a comment</span>
<span>short</span>
</div>
<div role="presentation"><a href="/frank/">frank</a><span>Followed by bob.k + 2 more</span><button>Follow</button></div>
<div role="presentation"><a href="/grace/">grace</a><span>Suggested for you</span><button>Follow</button></div>
<div role="presentation"><a href="/explore/">Explore</a><button>Follow</button></div>
</body></html>`

	ChatThreadHTML = `<html><body>
<div role="row"><span>Today</span></div>
<div role="row"><span>mia</span><span>Are we still on for the show tonight?</span></div>
<div role="row"><span>You sent</span><span>Yes! Meet you at the entrance</span></div>
<div role="row"><span>10:42 PM</span><span>Are we still on for the show tonight?</span></div>
<div role="row"><span>mia</span><span>Perfect, bring the tickets please</span></div>
</body></html>`
)

// TestPages maps the fixture paths served by a StaticBrowser in tests
func TestPages() map[string]string {
	return map[string]string{
		"/":                   HomePageHTML,
		"/direct/inbox/":      InboxPageHTML,
		"/rosa.m/":            ProfilePageHTML,
		"/accounts/activity/": ActivityPageHTML,
		"/explore/":           "<html><body><span>Nothing to see here</span></body></html>",
	}
}

// CreateTestRecord creates a record with one entry of each kind from user
func CreateTestRecord(pageType PageType, user string) *PageScrapeRecord {
	return &PageScrapeRecord{
		PageType:      pageType,
		LoggedIn:      true,
		Stories:       []StoryEntry{{Username: user, HasUnwatched: true, ImgSrc: user + ".jpg"}},
		Posts:         []PostEntry{{Username: user, Caption: "Caption by " + user, Likes: 42}},
		Messages:      []MessageEntry{{Username: user, Preview: "hey from " + user, Unread: true}},
		Notifications: []NotificationEntry{{Username: user, Type: NotificationFollow, Text: user + " started following you"}},
		Mutuals:       []MutualEntry{{Username: user, Type: MutualFollowedBy, Text: "Followed by " + user}},
		Suggestions:   []SuggestionEntry{{Username: user, Reason: ReasonSuggested}},
		RawUsernames:  []string{user},
		RawTexts:      []string{},
		ElementCounts: map[string]int{},
		URL:           TestBaseURL + "/",
		CapturedAt:    time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

// CreateTestDataset creates a dataset holding one entry of each kind per user
func CreateTestDataset(users ...string) *SessionDataset {
	records := make([]*PageScrapeRecord, 0, len(users))
	for _, u := range users {
		records = append(records, CreateTestRecord(PageHome, u))
	}
	return NewSessionMerger().MergeAll(records)
}
