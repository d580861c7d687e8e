package plugins

import (
	"bytes"
	"path"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/kingrea/modload/internal/modname"
)

// DataParser recognizes data-only modules. JSON and YAML documents count when
// their root is a mapping or a sequence; .toml locations are decoded as TOML.
// Scalars never count, or plain source text would parse as a YAML string.
type DataParser struct{}

// ParseData returns the decoded value and true when text is a data module.
func (DataParser) ParseData(text, location string) (any, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, false
	}
	ext := strings.ToLower(path.Ext(location))
	if ext == ".toml" {
		var table map[string]any
		if _, err := toml.Decode(text, &table); err != nil {
			return nil, false
		}
		return table, true
	}
	// source files only count as data when they hold a JSON document
	if modname.IsSourceExtension(ext) && trimmed[0] != '{' && trimmed[0] != '[' {
		return nil, false
	}
	return decodeStructured([]byte(text))
}

func decodeStructured(data []byte) (any, bool) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, false
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, false
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode && root.Kind != yaml.SequenceNode {
		return nil, false
	}
	var value any
	if err := root.Decode(&value); err != nil {
		return nil, false
	}
	return value, true
}

func isEmpty(data []byte) bool {
	return len(bytes.TrimSpace(data)) == 0
}
