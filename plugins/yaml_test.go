package plugins

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseDataRecognizesStructuredDocuments(t *testing.T) {
	cases := []struct {
		name     string
		location string
		text     string
		want     any
	}{
		{"json object", "cfg.json", `{"name": "demo", "port": 8080}`, map[string]any{"name": "demo", "port": 8080}},
		{"json array", "list.json", `[1, 2, 3]`, []any{1, 2, 3}},
		{"yaml mapping", "cfg.yaml", "name: demo\ntags:\n  - a\n  - b\n", map[string]any{"name": "demo", "tags": []any{"a", "b"}}},
		{"json in source file", "cfg.go", `{"ok": true}`, map[string]any{"ok": true}},
		{"toml table", "cfg.toml", "name = \"demo\"\n[server]\nport = 9000\n", map[string]any{"name": "demo", "server": map[string]any{"port": int64(9000)}}},
	}
	for _, tc := range cases {
		got, ok := DataParser{}.ParseData(tc.text, tc.location)
		if !ok {
			t.Fatalf("%s: expected data module", tc.name)
		}
		if diff := cmp.Diff(tc.want, got); diff != "" {
			t.Fatalf("%s: mismatch (-want +got):\n%s", tc.name, diff)
		}
	}
}

func TestParseDataRejectsSourceAndScalars(t *testing.T) {
	cases := []struct {
		name     string
		location string
		text     string
	}{
		{"go source", "mod.go", greetSource},
		{"scalar json", "n.json", "42"},
		{"plain string", "s.yaml", "just words"},
		{"empty", "e.json", "  "},
		{"bad toml", "x.toml", "name = "},
		{"yaml mapping in source file", "mod.go", "key: value\n"},
	}
	for _, tc := range cases {
		if v, ok := (DataParser{}).ParseData(tc.text, tc.location); ok {
			t.Fatalf("%s: expected non-data, got %#v", tc.name, v)
		}
	}
}
