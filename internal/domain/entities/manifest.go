package entities

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

// ManifestKind is the format of a version manifest file.
type ManifestKind string

const (
	ManifestJSON  ManifestKind = "json"
	ManifestYAML  ManifestKind = "yaml"
	ManifestPlain ManifestKind = "plain"
)

// DetectManifestKind picks the manifest format from the file extension.
func DetectManifestKind(filePath string) ManifestKind {
	switch strings.ToLower(path.Ext(filePath)) {
	case ".json":
		return ManifestJSON
	case ".yaml", ".yml":
		return ManifestYAML
	default:
		return ManifestPlain
	}
}

// ReadManifestVersion extracts the version stored in a manifest.
func ReadManifestVersion(filePath, content string) (string, error) {
	switch DetectManifestKind(filePath) {
	case ManifestJSON:
		var doc struct {
			Version *string `json:"version"`
		}
		if err := json.Unmarshal([]byte(content), &doc); err != nil {
			return "", NewValidationError("manifest %s is not valid JSON: %v", filePath, err)
		}
		if doc.Version == nil {
			return "", NewValidationError("manifest %s has no top-level version field", filePath)
		}
		return *doc.Version, nil
	case ManifestYAML:
		node, err := yamlVersionNode(filePath, content)
		if err != nil {
			return "", err
		}
		return node.Value, nil
	default:
		return strings.TrimSpace(content), nil
	}
}

// RewriteManifestVersion replaces the version in a manifest, keeping the rest
// of the file byte-for-byte.
func RewriteManifestVersion(filePath, content, version string) (string, error) {
	if _, err := ReadManifestVersion(filePath, content); err != nil {
		return "", err
	}

	switch DetectManifestKind(filePath) {
	case ManifestJSON:
		start, end, err := jsonVersionSpan(content)
		if err != nil {
			return "", NewValidationError("manifest %s: %v", filePath, err)
		}
		return content[:start] + version + content[end:], nil
	case ManifestYAML:
		node, err := yamlVersionNode(filePath, content)
		if err != nil {
			return "", err
		}
		lines := strings.Split(content, "\n")
		idx := node.Line - 1
		if idx < 0 || idx >= len(lines) {
			return "", fmt.Errorf("manifest %s: version line %d out of range", filePath, node.Line)
		}
		line, err := spliceYAMLScalar(lines[idx], node, version)
		if err != nil {
			return "", fmt.Errorf("manifest %s: %w", filePath, err)
		}
		lines[idx] = line
		return strings.Join(lines, "\n"), nil
	default:
		return version + "\n", nil
	}
}

// jsonVersionSpan returns the byte range of the first top-level "version"
// string value, quotes excluded.
func jsonVersionSpan(content string) (int, int, error) {
	dec := json.NewDecoder(strings.NewReader(content))
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return 0, 0, errors.New("top-level value is not an object")
	}

	for dec.More() {
		key, err := dec.Token()
		if err != nil {
			return 0, 0, err
		}
		if key != "version" {
			if err = skipJSONValue(dec); err != nil {
				return 0, 0, err
			}
			continue
		}

		afterKey := int(dec.InputOffset())
		value, err := dec.Token()
		if err != nil {
			return 0, 0, err
		}
		if _, ok := value.(string); !ok {
			return 0, 0, errors.New("version is not a string")
		}
		end := int(dec.InputOffset()) - 1
		open := strings.IndexByte(content[afterKey:end], '"')
		if open < 0 {
			return 0, 0, errors.New("version string not found")
		}
		return afterKey + open + 1, end, nil
	}
	return 0, 0, errors.New("no top-level version field")
}

// skipJSONValue consumes one complete value, nested or not.
func skipJSONValue(dec *json.Decoder) error {
	depth := 0
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return io.ErrUnexpectedEOF
		}
		if err != nil {
			return err
		}
		switch tok {
		case json.Delim('{'), json.Delim('['):
			depth++
		case json.Delim('}'), json.Delim(']'):
			depth--
		}
		if depth == 0 {
			return nil
		}
	}
}

// spliceYAMLScalar replaces the scalar at the node position, leaving the key
// and any trailing comment untouched.
func spliceYAMLScalar(line string, node *yaml.Node, version string) (string, error) {
	runes := []rune(line)
	start := node.Column - 1
	if node.Style&(yaml.DoubleQuotedStyle|yaml.SingleQuotedStyle) != 0 {
		start++
	}
	value := []rune(node.Value)
	end := start + len(value)
	if start < 0 || end > len(runes) || string(runes[start:end]) != node.Value {
		return "", fmt.Errorf("version value not found at line %d column %d", node.Line, node.Column)
	}
	return string(runes[:start]) + version + string(runes[end:]), nil
}

// yamlVersionNode returns the scalar node of the top-level "version" key.
func yamlVersionNode(filePath, content string) (*yaml.Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(content), &doc); err != nil {
		return nil, NewValidationError("manifest %s is not valid YAML: %v", filePath, err)
	}
	if len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, NewValidationError("manifest %s is not a YAML mapping", filePath)
	}
	mapping := doc.Content[0]
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		key, value := mapping.Content[i], mapping.Content[i+1]
		if key.Value == "version" && value.Kind == yaml.ScalarNode {
			return value, nil
		}
	}
	return nil, NewValidationError("manifest %s has no top-level version key", filePath)
}
