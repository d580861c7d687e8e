package plugins

import (
	"strings"
	"testing"
)

func TestParseDescriptor(t *testing.T) {
	d, err := ParseDescriptor([]byte("name: lodash\nversion: v1.2.0\nmain: ./lib/index.go\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if d.Main != "lib/index.go" || d.Name != "lodash" {
		t.Fatalf("unexpected descriptor: %+v", d)
	}
	info := d.Info("fallback")
	if info.Version != "1.2.0" || info.Name != "lodash" {
		t.Fatalf("unexpected info: %+v", info)
	}
}

func TestParseDescriptorJSON(t *testing.T) {
	d, err := ParseDescriptor([]byte(`{"main": "index.json"}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := d.Info("pkg"); got.Name != "pkg" || got.Version != "" {
		t.Fatalf("unexpected info: %+v", got)
	}
}

func TestParseDescriptorErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		msg  string
	}{
		{"empty", "  ", "payload is empty"},
		{"missing main", "name: x\n", "main is required"},
		{"escaping main", "main: ../../outside.go\n", "escapes the package"},
		{"bad version", "main: a.go\nversion: not-a-version\n", "version"},
		{"bad yaml", "main: [unterminated\n", "decode descriptor"},
	}
	for _, tc := range tests {
		_, err := ParseDescriptor([]byte(tc.data))
		if err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
		if !strings.Contains(err.Error(), tc.msg) {
			t.Fatalf("%s: error %q missing %q", tc.name, err, tc.msg)
		}
	}
}
