package export

import (
	"io"

	"github.com/iksnae/social-session/internal"
	"gopkg.in/yaml.v3"
)

// YAMLExporter writes the dataset as a YAML document
type YAMLExporter struct{}

// Export implements Exporter
func (e *YAMLExporter) Export(dataset *internal.SessionDataset, w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	defer func() { _ = enc.Close() }()

	return enc.Encode(dataset.Clone())
}

// Extension returns the file extension for this format
func (e *YAMLExporter) Extension() string {
	return "yaml"
}
