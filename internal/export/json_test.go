package export

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/iksnae/social-session/internal"
)

func TestJSONExporter_Export(t *testing.T) {
	tests := []struct {
		name    string
		dataset *internal.SessionDataset
		want    *internal.SessionDataset
	}{
		{
			name:    "two users",
			dataset: internal.CreateTestDataset("alex", "sam"),
			want:    internal.CreateTestDataset("alex", "sam"),
		},
		{
			name:    "empty dataset",
			dataset: internal.NewSessionDataset(),
			want:    internal.NewSessionDataset(),
		},
		{
			name:    "nil dataset writes empty lists",
			dataset: nil,
			want:    internal.NewSessionDataset(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := (&JSONExporter{}).Export(tt.dataset, &buf); err != nil {
				t.Fatalf("Export() error = %v", err)
			}

			var got internal.SessionDataset
			if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
				t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
			}
			if diff := cmp.Diff(tt.want, &got); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
			if !strings.Contains(buf.String(), "\n  \"stories\"") {
				t.Errorf("output should be indented, got:\n%s", buf.String())
			}
		})
	}
}

func TestJSONExporter_Extension(t *testing.T) {
	if got := (&JSONExporter{}).Extension(); got != "json" {
		t.Errorf("Extension() = %v, want json", got)
	}
}
