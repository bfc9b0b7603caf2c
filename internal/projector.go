package internal

import (
	"time"
	"unicode/utf16"
)

var avatarPalette = []string{
	"👤", "👩", "👨", "🧑", "👧", "👦", "🧔", "👩‍🦰", "👨‍🦱", "👩‍🦳",
	"🧑‍🎤", "👩‍💻", "👨‍🎨", "🧑‍🚀", "👩‍🔬", "🎭", "🎨", "📸", "🎵", "✨",
}

var postGradients = []string{
	"linear-gradient(135deg, #ff6b9d, #c678dd)",
	"linear-gradient(135deg, #61dafb, #c678dd)",
	"linear-gradient(135deg, #ffd93d, #ff6b9d)",
	"linear-gradient(135deg, #98c379, #61dafb)",
	"linear-gradient(135deg, #e06c75, #ffd93d)",
	"linear-gradient(135deg, #c678dd, #61dafb)",
}

const (
	storyStride   = time.Hour
	postStride    = 24 * time.Hour
	messageStride = 30 * time.Minute

	maxExtraStories  = 10
	storyFillTarget  = 12
	extraViewedAfter = 3
	defaultPostLikes = 100
	commentRatio     = 0.05
	profileFollowers = 1000
	profileAvatar    = "🎮"
	profileUsername  = "you"
	profileName      = "Your Profile"
	profileBio       = "Exploring your social world!"
)

// DisplayStory is a story annotated for the visualization
type DisplayStory struct {
	ID           int       `json:"id" yaml:"id"`
	Username     string    `json:"username" yaml:"username"`
	Avatar       string    `json:"avatar" yaml:"avatar"`
	HasUnwatched bool      `json:"hasUnwatched" yaml:"has_unwatched"`
	Viewed       bool      `json:"viewed" yaml:"viewed"`
	ImgSrc       string    `json:"imgSrc,omitempty" yaml:"img_src,omitempty"`
	Timestamp    time.Time `json:"timestamp" yaml:"timestamp"`
}

// DisplayPost is a post annotated for the visualization
type DisplayPost struct {
	Username  string    `json:"username" yaml:"username"`
	Avatar    string    `json:"avatar" yaml:"avatar"`
	Caption   string    `json:"caption" yaml:"caption"`
	Likes     int       `json:"likes" yaml:"likes"`
	Comments  int       `json:"comments" yaml:"comments"`
	IsVideo   bool      `json:"isVideo" yaml:"is_video"`
	ImgSrc    string    `json:"imgSrc,omitempty" yaml:"img_src,omitempty"`
	Image     string    `json:"image" yaml:"image"`
	PostedAt  string    `json:"postedAt,omitempty" yaml:"posted_at,omitempty"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}

// DisplayMessage is a message thread annotated for the visualization
type DisplayMessage struct {
	Username  string    `json:"username" yaml:"username"`
	Avatar    string    `json:"avatar" yaml:"avatar"`
	Preview   string    `json:"preview" yaml:"preview"`
	Unread    bool      `json:"unread" yaml:"unread"`
	IsGroup   bool      `json:"isGroup" yaml:"is_group"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}

// DisplayProfile is the synthesized profile card
type DisplayProfile struct {
	Username    string `json:"username" yaml:"username"`
	DisplayName string `json:"displayName" yaml:"display_name"`
	Avatar      string `json:"avatar" yaml:"avatar"`
	Posts       int    `json:"posts" yaml:"posts"`
	Followers   int    `json:"followers" yaml:"followers"`
	Following   int    `json:"following" yaml:"following"`
	Bio         string `json:"bio" yaml:"bio"`
}

// WorldDisplayDataset is the display-ready projection of a SessionDataset
type WorldDisplayDataset struct {
	Stories     []DisplayStory    `json:"stories" yaml:"stories"`
	Posts       []DisplayPost     `json:"posts" yaml:"posts"`
	Messages    []DisplayMessage  `json:"messages" yaml:"messages"`
	Suggestions []SuggestionEntry `json:"suggestions" yaml:"suggestions"`
	Mutuals     []MutualEntry     `json:"mutuals" yaml:"mutuals"`
	Profile     DisplayProfile    `json:"profile" yaml:"profile"`
}

// Projector converts datasets to their display form
type Projector struct {
	now func() time.Time
}

// NewProjector creates a Projector using the wall clock
func NewProjector() *Projector {
	return &Projector{now: time.Now}
}

// NewProjectorAt creates a Projector whose clock is fixed at t
func NewProjectorAt(t time.Time) *Projector {
	return &Projector{now: func() time.Time { return t }}
}

// AvatarFor returns the palette glyph for username. The hash is the 31x
// polynomial string hash computed over UTF-16 code units with 32-bit shift
// wraparound, so values match those produced by browser scripts.
func AvatarFor(username string) string {
	var h int64
	for _, c := range utf16.Encode([]rune(username)) {
		shifted := int64(int32(uint32(int32(h)) << 5))
		h = shifted - h + int64(c)
	}
	if h < 0 {
		h = -h
	}
	return avatarPalette[h%int64(len(avatarPalette))]
}

// Project builds the display dataset. Empty input yields empty collections.
func (p *Projector) Project(d *SessionDataset) *WorldDisplayDataset {
	if d == nil {
		d = NewSessionDataset()
	}
	now := p.now()

	out := &WorldDisplayDataset{
		Stories:     make([]DisplayStory, 0, len(d.Stories)),
		Posts:       make([]DisplayPost, 0, len(d.Posts)),
		Messages:    make([]DisplayMessage, 0, len(d.Messages)),
		Suggestions: append([]SuggestionEntry{}, d.Suggestions...),
		Mutuals:     append([]MutualEntry{}, d.Mutuals...),
	}

	present := make(map[string]bool, len(d.Stories))
	for i, s := range d.Stories {
		present[s.Username] = true
		out.Stories = append(out.Stories, DisplayStory{
			ID:           i + 1,
			Username:     s.Username,
			Avatar:       AvatarFor(s.Username),
			HasUnwatched: s.HasUnwatched,
			Viewed:       !s.HasUnwatched,
			ImgSrc:       s.ImgSrc,
			Timestamp:    now.Add(-time.Duration(i) * storyStride),
		})
	}

	for i, post := range d.Posts {
		likes := post.Likes
		if likes == 0 {
			likes = defaultPostLikes
		}
		out.Posts = append(out.Posts, DisplayPost{
			Username:  post.Username,
			Avatar:    AvatarFor(post.Username),
			Caption:   post.Caption,
			Likes:     post.Likes,
			Comments:  int(float64(likes) * commentRatio),
			IsVideo:   post.IsVideo,
			ImgSrc:    post.ImgSrc,
			Image:     postGradients[i%len(postGradients)],
			PostedAt:  post.Timestamp,
			Timestamp: now.Add(-time.Duration(i) * postStride),
		})
	}

	for i, m := range d.Messages {
		out.Messages = append(out.Messages, DisplayMessage{
			Username:  m.Username,
			Avatar:    AvatarFor(m.Username),
			Preview:   m.Preview,
			Unread:    m.Unread,
			IsGroup:   m.IsGroup,
			Timestamp: now.Add(-time.Duration(i) * messageStride),
		})
	}

	out.Profile = DisplayProfile{
		Username:    profileUsername,
		DisplayName: profileName,
		Avatar:      profileAvatar,
		Posts:       len(d.Posts),
		Followers:   profileFollowers,
		Following:   len(d.Stories),
		Bio:         profileBio,
	}

	// Top up sparse story rows with harvested usernames.
	extras := 0
	for _, name := range d.Usernames {
		if extras >= maxExtraStories {
			break
		}
		if present[name] {
			continue
		}
		present[name] = true
		if len(out.Stories) < storyFillTarget {
			out.Stories = append(out.Stories, DisplayStory{
				ID:        len(out.Stories) + 1,
				Username:  name,
				Avatar:    AvatarFor(name),
				Viewed:    extras > extraViewedAfter,
				Timestamp: now.Add(-time.Duration(extras) * storyStride),
			})
		}
		extras++
	}

	return out
}
