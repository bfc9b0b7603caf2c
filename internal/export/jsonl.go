package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/iksnae/social-session/internal"
)

// Line kinds written by JSONLExporter
const (
	KindStory        = "story"
	KindPost         = "post"
	KindMessage      = "message"
	KindNotification = "notification"
	KindMutual       = "mutual"
	KindSuggestion   = "suggestion"
	KindUsername     = "username"
)

// JSONLine is one line of JSONL output
type JSONLine struct {
	Kind  string      `json:"kind"`
	Entry interface{} `json:"entry"`
}

// JSONLExporter writes one entity per line, grouped by kind
type JSONLExporter struct{}

// Export implements Exporter
func (e *JSONLExporter) Export(dataset *internal.SessionDataset, w io.Writer) error {
	d := dataset.Clone()
	enc := json.NewEncoder(w)

	write := func(kind string, entry interface{}) error {
		if err := enc.Encode(JSONLine{Kind: kind, Entry: entry}); err != nil {
			return fmt.Errorf("failed to encode %s: %w", kind, err)
		}
		return nil
	}

	for _, s := range d.Stories {
		if err := write(KindStory, s); err != nil {
			return err
		}
	}
	for _, p := range d.Posts {
		if err := write(KindPost, p); err != nil {
			return err
		}
	}
	for _, m := range d.Messages {
		if err := write(KindMessage, m); err != nil {
			return err
		}
	}
	for _, n := range d.Notifications {
		if err := write(KindNotification, n); err != nil {
			return err
		}
	}
	for _, m := range d.Mutuals {
		if err := write(KindMutual, m); err != nil {
			return err
		}
	}
	for _, s := range d.Suggestions {
		if err := write(KindSuggestion, s); err != nil {
			return err
		}
	}
	for _, u := range d.Usernames {
		if err := write(KindUsername, u); err != nil {
			return err
		}
	}
	return nil
}

// Extension returns the file extension for this format
func (e *JSONLExporter) Extension() string {
	return "jsonl"
}
