package internal

import (
	"encoding/json"
	"time"

	"github.com/tidwall/gjson"
)

// PageType classifies the page a record was extracted from
type PageType string

const (
	PageHome     PageType = "home"
	PageMessages PageType = "messages"
	PageExplore  PageType = "explore"
	PageReels    PageType = "reels"
	PageStories  PageType = "stories"
	PageProfile  PageType = "profile"
	PagePost     PageType = "post"
	PageUnknown  PageType = "unknown"
)

// Notification types
const (
	NotificationFollow    = "follow"
	NotificationLike      = "like"
	NotificationStoryLike = "story_like"
	NotificationComment   = "comment"
	NotificationMention   = "mention"
)

// Mutual entry types
const (
	MutualFollowedBy    = "followed_by"
	MutualFollowsYou    = "follows_you"
	MutualMutualFriends = "mutual_friends"
	MutualFollowers     = "followers"
	MutualFollowing     = "following"
)

// Suggestion reasons
const (
	ReasonMutual    = "mutual"
	ReasonSuggested = "suggested"
)

// PageScrapeRecord is the output of one extraction pass over one page view.
// It is built once and treated as read-only afterwards.
type PageScrapeRecord struct {
	PageType      PageType            `json:"pageType" yaml:"page_type"`
	LoggedIn      bool                `json:"loggedIn" yaml:"logged_in"`
	CurrentUser   string              `json:"currentUser,omitempty" yaml:"current_user,omitempty"`
	Stories       []StoryEntry        `json:"stories" yaml:"stories"`
	Posts         []PostEntry         `json:"posts" yaml:"posts"`
	Messages      []MessageEntry      `json:"messages" yaml:"messages"`
	Notifications []NotificationEntry `json:"notifications" yaml:"notifications"`
	Mutuals       []MutualEntry       `json:"mutuals" yaml:"mutuals"`
	Suggestions   []SuggestionEntry   `json:"suggestions" yaml:"suggestions"`
	RawUsernames  []string            `json:"rawUsernames" yaml:"raw_usernames"`
	RawTexts      []string            `json:"rawTexts" yaml:"raw_texts"`
	ElementCounts map[string]int      `json:"elementCounts" yaml:"element_counts"`
	URL           string              `json:"url" yaml:"url"`
	CapturedAt    time.Time           `json:"capturedAt" yaml:"captured_at"`
}

// StoryEntry is a story bubble, keyed by username
type StoryEntry struct {
	Username     string `json:"username" yaml:"username"`
	HasUnwatched bool   `json:"hasUnwatched" yaml:"has_unwatched"`
	ImgSrc       string `json:"imgSrc,omitempty" yaml:"img_src,omitempty"`
}

// PostEntry is a feed post, keyed by (username, caption)
type PostEntry struct {
	Username  string `json:"username" yaml:"username"`
	Caption   string `json:"caption" yaml:"caption"`
	Likes     int    `json:"likes" yaml:"likes"`
	IsVideo   bool   `json:"isVideo" yaml:"is_video"`
	ImgSrc    string `json:"imgSrc,omitempty" yaml:"img_src,omitempty"`
	Timestamp string `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
}

// UnmarshalJSON accepts likes as a number, a numeric string or null.
// Older dumps stored the raw matched text.
func (p *PostEntry) UnmarshalJSON(data []byte) error {
	type plain PostEntry
	var raw struct {
		plain
		Likes json.RawMessage `json:"likes"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = PostEntry(raw.plain)

	likes := gjson.ParseBytes(raw.Likes)
	switch likes.Type {
	case gjson.Number:
		p.Likes = int(likes.Int())
	case gjson.String:
		p.Likes = parseCount(likes.Str)
	default:
		p.Likes = 0
	}
	if p.Likes < 0 {
		p.Likes = 0
	}
	return nil
}

// MessageEntry is a direct-message thread row, keyed by username
type MessageEntry struct {
	Username string `json:"username" yaml:"username"`
	Preview  string `json:"preview" yaml:"preview"`
	Unread   bool   `json:"unread" yaml:"unread"`
	IsGroup  bool   `json:"isGroup" yaml:"is_group"`
	ImgSrc   string `json:"imgSrc,omitempty" yaml:"img_src,omitempty"`
}

// NotificationEntry is an activity item, keyed by (username, type)
type NotificationEntry struct {
	Username    string `json:"username" yaml:"username"`
	Type        string `json:"type" yaml:"type"`
	ContentType string `json:"contentType,omitempty" yaml:"content_type,omitempty"`
	Text        string `json:"text,omitempty" yaml:"text,omitempty"`
}

// MutualEntry is either a user-level relation (keyed by username) or an
// aggregate like a follower count that carries no username.
type MutualEntry struct {
	Username string `json:"username,omitempty" yaml:"username,omitempty"`
	Type     string `json:"type" yaml:"type"`
	Count    string `json:"count,omitempty" yaml:"count,omitempty"`
	Preview  string `json:"preview,omitempty" yaml:"preview,omitempty"`
	Text     string `json:"text,omitempty" yaml:"text,omitempty"`
}

// SuggestionEntry is a suggested account, keyed by username
type SuggestionEntry struct {
	Username string `json:"username" yaml:"username"`
	Reason   string `json:"reason" yaml:"reason"`
}

// DumpFile describes a dump written to the archive
type DumpFile struct {
	Filename string `json:"filename"`
	Filepath string `json:"filepath"`
	Size     int64  `json:"size"`
}

// DumpSummary is the listing view of one dump: counts only
type DumpSummary struct {
	Filename      string    `json:"filename" yaml:"filename"`
	Filepath      string    `json:"filepath" yaml:"filepath"`
	Date          time.Time `json:"date" yaml:"date"`
	Size          int64     `json:"size" yaml:"size"`
	PageType      PageType  `json:"pageType" yaml:"page_type"`
	Stories       int       `json:"stories" yaml:"stories"`
	Posts         int       `json:"posts" yaml:"posts"`
	Messages      int       `json:"messages" yaml:"messages"`
	Notifications int       `json:"notifications" yaml:"notifications"`
	Usernames     int       `json:"usernames" yaml:"usernames"`
}

// SessionStats holds per-kind counts of a SessionDataset
type SessionStats struct {
	Stories       int `json:"stories" yaml:"stories"`
	Posts         int `json:"posts" yaml:"posts"`
	Messages      int `json:"messages" yaml:"messages"`
	Notifications int `json:"notifications" yaml:"notifications"`
	Mutuals       int `json:"mutuals" yaml:"mutuals"`
	Suggestions   int `json:"suggestions" yaml:"suggestions"`
	Usernames     int `json:"usernames" yaml:"usernames"`
}

// Total returns the number of entries across all entity kinds, usernames excluded
func (s SessionStats) Total() int {
	return s.Stories + s.Posts + s.Messages + s.Notifications + s.Mutuals + s.Suggestions
}
