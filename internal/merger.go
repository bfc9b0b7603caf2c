package internal

import "sort"

// SessionDataset is the deduplicated accumulation of records across a
// session. Entries are kept in first-seen order and never overwritten.
type SessionDataset struct {
	Stories       []StoryEntry        `json:"stories" yaml:"stories"`
	Posts         []PostEntry         `json:"posts" yaml:"posts"`
	Messages      []MessageEntry      `json:"messages" yaml:"messages"`
	Notifications []NotificationEntry `json:"notifications" yaml:"notifications"`
	Mutuals       []MutualEntry       `json:"mutuals" yaml:"mutuals"`
	Suggestions   []SuggestionEntry   `json:"suggestions" yaml:"suggestions"`
	Usernames     []string            `json:"usernames" yaml:"usernames"`
}

// NewSessionDataset returns an empty dataset
func NewSessionDataset() *SessionDataset {
	return &SessionDataset{
		Stories:       []StoryEntry{},
		Posts:         []PostEntry{},
		Messages:      []MessageEntry{},
		Notifications: []NotificationEntry{},
		Mutuals:       []MutualEntry{},
		Suggestions:   []SuggestionEntry{},
		Usernames:     []string{},
	}
}

// Clone returns a copy that shares no slices with d
func (d *SessionDataset) Clone() *SessionDataset {
	if d == nil {
		return NewSessionDataset()
	}
	return &SessionDataset{
		Stories:       append([]StoryEntry{}, d.Stories...),
		Posts:         append([]PostEntry{}, d.Posts...),
		Messages:      append([]MessageEntry{}, d.Messages...),
		Notifications: append([]NotificationEntry{}, d.Notifications...),
		Mutuals:       append([]MutualEntry{}, d.Mutuals...),
		Suggestions:   append([]SuggestionEntry{}, d.Suggestions...),
		Usernames:     append([]string{}, d.Usernames...),
	}
}

// Stats returns per-kind counts
func (d *SessionDataset) Stats() SessionStats {
	if d == nil {
		return SessionStats{}
	}
	return SessionStats{
		Stories:       len(d.Stories),
		Posts:         len(d.Posts),
		Messages:      len(d.Messages),
		Notifications: len(d.Notifications),
		Mutuals:       len(d.Mutuals),
		Suggestions:   len(d.Suggestions),
		Usernames:     len(d.Usernames),
	}
}

// IsEmpty reports whether the dataset holds no entries and no usernames
func (d *SessionDataset) IsEmpty() bool {
	s := d.Stats()
	return s.Total() == 0 && s.Usernames == 0
}

// KeySets returns the sorted identity keys of every kind
func (d *SessionDataset) KeySets() map[string][]string {
	out := map[string][]string{
		"stories":       {},
		"posts":         {},
		"messages":      {},
		"notifications": {},
		"mutuals":       {},
		"suggestions":   {},
		"usernames":     {},
	}
	if d == nil {
		return out
	}
	for _, s := range d.Stories {
		out["stories"] = append(out["stories"], storyKey(s))
	}
	for _, p := range d.Posts {
		out["posts"] = append(out["posts"], postKey(p))
	}
	for _, m := range d.Messages {
		out["messages"] = append(out["messages"], messageKey(m))
	}
	for _, n := range d.Notifications {
		out["notifications"] = append(out["notifications"], notificationKey(n))
	}
	for _, m := range d.Mutuals {
		out["mutuals"] = append(out["mutuals"], mutualKey(m))
	}
	for _, s := range d.Suggestions {
		out["suggestions"] = append(out["suggestions"], suggestionKey(s))
	}
	out["usernames"] = append(out["usernames"], d.Usernames...)
	for _, keys := range out {
		sort.Strings(keys)
	}
	return out
}

// Identity keys. Fields are joined with a NUL so no two distinct tuples collide.

func storyKey(s StoryEntry) string { return s.Username }

func postKey(p PostEntry) string { return p.Username + "\x00" + p.Caption }

// messageKey ignores the preview, so a later preview for the same user is dropped
func messageKey(m MessageEntry) string { return m.Username }

func notificationKey(n NotificationEntry) string { return n.Username + "\x00" + n.Type }

func mutualKey(m MutualEntry) string {
	if m.Username != "" {
		return "user\x00" + m.Username
	}
	return "aggregate\x00" + m.Type + "\x00" + m.Count + "\x00" + m.Preview
}

func suggestionKey(s SuggestionEntry) string { return s.Username }

// SessionMerger folds records into datasets using append-if-absent per kind
type SessionMerger struct{}

// NewSessionMerger creates a new SessionMerger
func NewSessionMerger() *SessionMerger {
	return &SessionMerger{}
}

// Merge returns a new dataset holding everything in d plus the entries of r
// whose identity keys are not yet present. Neither argument is modified.
func (m *SessionMerger) Merge(d *SessionDataset, r *PageScrapeRecord) *SessionDataset {
	out := d.Clone()
	if r == nil {
		return out
	}

	out.Stories = appendAbsent(out.Stories, r.Stories, storyKey)
	out.Posts = appendAbsent(out.Posts, r.Posts, postKey)
	out.Messages = appendAbsent(out.Messages, r.Messages, messageKey)
	out.Notifications = appendAbsent(out.Notifications, r.Notifications, notificationKey)
	out.Mutuals = appendAbsent(out.Mutuals, r.Mutuals, mutualKey)
	out.Suggestions = appendAbsent(out.Suggestions, r.Suggestions, suggestionKey)
	out.Usernames = appendAbsent(out.Usernames, r.RawUsernames, func(s string) string { return s })
	return out
}

// MergeAll folds records in order into a fresh dataset
func (m *SessionMerger) MergeAll(records []*PageScrapeRecord) *SessionDataset {
	d := NewSessionDataset()
	for _, r := range records {
		d = m.Merge(d, r)
	}
	return d
}

// Merge folds r into d with the default merger
func Merge(d *SessionDataset, r *PageScrapeRecord) *SessionDataset {
	return NewSessionMerger().Merge(d, r)
}

func appendAbsent[T any](dst, src []T, key func(T) string) []T {
	if len(src) == 0 {
		return dst
	}
	seen := make(map[string]bool, len(dst)+len(src))
	for _, e := range dst {
		seen[key(e)] = true
	}
	for _, e := range src {
		k := key(e)
		if seen[k] {
			continue
		}
		seen[k] = true
		dst = append(dst, e)
	}
	return dst
}
