package internal

import (
	"encoding/json"
	"testing"
)

func TestPostEntry_UnmarshalLikes(t *testing.T) {
	tests := []struct {
		name string
		data string
		want int
	}{
		{name: "number", data: `{"username":"a","likes":42}`, want: 42},
		{name: "float", data: `{"username":"a","likes":12.7}`, want: 12},
		{name: "string with separators", data: `{"username":"a","likes":"1,024"}`, want: 1024},
		{name: "matched text", data: `{"username":"a","likes":"87 likes"}`, want: 87},
		{name: "null", data: `{"username":"a","likes":null}`, want: 0},
		{name: "missing", data: `{"username":"a"}`, want: 0},
		{name: "negative", data: `{"username":"a","likes":-5}`, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p PostEntry
			if err := json.Unmarshal([]byte(tt.data), &p); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if p.Likes != tt.want {
				t.Errorf("Likes = %d, want %d", p.Likes, tt.want)
			}
			if p.Username != "a" {
				t.Errorf("Username = %q, other fields must still decode", p.Username)
			}
		})
	}
}

func TestPostEntry_UnmarshalInvalid(t *testing.T) {
	var p PostEntry
	if err := json.Unmarshal([]byte(`{"username": 7}`), &p); err == nil {
		t.Error("Unmarshal() accepted a numeric username")
	}
}
