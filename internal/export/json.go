package export

import (
	"encoding/json"
	"io"

	"github.com/iksnae/social-session/internal"
)

// JSONExporter writes the whole dataset as one indented JSON document
type JSONExporter struct{}

// Export implements Exporter
func (e *JSONExporter) Export(dataset *internal.SessionDataset, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(dataset.Clone())
}

// Extension returns the file extension for this format
func (e *JSONExporter) Extension() string {
	return "json"
}
