package modname

import "testing"

func TestParse(t *testing.T) {
	r := NewResolver("", "")
	cases := []struct {
		id   string
		want Parsed
	}{
		{"lodash", Parsed{Original: "lodash", Path: "lodash", PackageName: "lodash", Leaf: "lodash"}},
		{"./lodash/fp/map", Parsed{Original: "./lodash/fp/map", Path: "lodash/fp/map", PackageName: "lodash", IntraPath: "lodash/fp", Leaf: "map"}},
		{"packages/lodash/fp", Parsed{Original: "packages/lodash/fp", Path: "packages/lodash/fp", PackageName: "lodash", IntraPath: "lodash", Leaf: "fp"}},
		{"config.yaml", Parsed{Original: "config.yaml", Path: "config.yaml", PackageName: "config", Leaf: "config.yaml"}},
		{"/abs/mod.go", Parsed{Original: "/abs/mod.go", Path: "abs/mod.go", PackageName: "abs", IntraPath: "abs", Leaf: "mod.go"}},
	}
	for _, tc := range cases {
		if got := r.Parse(tc.id); got != tc.want {
			t.Fatalf("Parse(%q) = %+v, want %+v", tc.id, got, tc.want)
		}
	}
}

func TestCorrectedName(t *testing.T) {
	r := NewResolver("", "")
	cases := map[string]string{
		"util":          "util.go",
		"util.go":       "util.go",
		"data/cfg.json": "data/cfg.json",
		"data/cfg.TOML": "data/cfg.TOML",
		"lib/map.v2":    "lib/map.v2.go",
	}
	for id, want := range cases {
		if got := r.CorrectedName(r.Parse(id)); got != want {
			t.Fatalf("CorrectedName(%q) = %q, want %q", id, got, want)
		}
	}
}

func TestCustomDefaultExtension(t *testing.T) {
	r := NewResolver("vendor", "yaml")
	if got := r.CorrectPath("settings"); got != "settings.yaml" {
		t.Fatalf("CorrectPath = %q", got)
	}
	if p := r.Parse("vendor/pkg/x"); p.PackageName != "pkg" || p.IntraPath != "pkg" {
		t.Fatalf("custom package root not stripped: %+v", p)
	}
}

func TestSubpath(t *testing.T) {
	r := NewResolver("", "")
	cases := map[string]string{
		"lodash":             "",
		"lodash.go":          "",
		"lodash/fp/map":      "fp/map",
		"packages/lodash/fp": "fp",
		"packages/lodash":    "",
	}
	for id, want := range cases {
		if got := r.Subpath(r.Parse(id)); got != want {
			t.Fatalf("Subpath(%q) = %q, want %q", id, got, want)
		}
	}
}

func TestKeyNormalizesEquivalentIdentifiers(t *testing.T) {
	r := NewResolver("", "")
	if r.Key("./util") != r.Key("util.go") {
		t.Fatalf("expected ./util and util.go to share a key: %q vs %q", r.Key("./util"), r.Key("util.go"))
	}
}

func TestValidate(t *testing.T) {
	for _, bad := range []string{"", "   ", "../secret", "a/../../b", "/", "."} {
		if err := Validate(bad); err == nil {
			t.Fatalf("Validate(%q) expected error", bad)
		}
	}
	for _, ok := range []string{"a", "./a/b", "/a.json"} {
		if err := Validate(ok); err != nil {
			t.Fatalf("Validate(%q) = %v", ok, err)
		}
	}
}
