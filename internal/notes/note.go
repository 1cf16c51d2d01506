// Package notes renders catalog records as markdown notes with YAML
// frontmatter, one file per book, for use in a notes vault.
package notes

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Note is a markdown document with YAML frontmatter.
type Note struct {
	Frontmatter *Frontmatter
	Body        string
}

// Frontmatter keeps its keys sorted so serialization is deterministic.
type Frontmatter struct {
	fields map[string]any
	keys   []string
}

// NewFrontmatter creates an empty Frontmatter.
func NewFrontmatter() *Frontmatter {
	return &Frontmatter{fields: make(map[string]any)}
}

// Parse splits content into frontmatter and body. Content without a
// complete frontmatter block is all body.
func Parse(content []byte) (*Note, error) {
	text := strings.ReplaceAll(string(content), "\r\n", "\n")
	if !strings.HasPrefix(text, "---\n") {
		return &Note{Frontmatter: NewFrontmatter(), Body: text}, nil
	}

	// Searching from the newline after the opening delimiter lets an empty
	// block close immediately.
	rest := text[len("---"):]
	end := strings.Index(rest, "\n---\n")
	if end == -1 {
		return &Note{Frontmatter: NewFrontmatter(), Body: text}, nil
	}

	var data map[string]any
	if err := yaml.Unmarshal([]byte(rest[:end]), &data); err != nil {
		return nil, fmt.Errorf("failed to parse frontmatter: %w", err)
	}

	fm := NewFrontmatter()
	for k, v := range data {
		fm.Set(k, v)
	}
	return &Note{
		Frontmatter: fm,
		Body:        strings.TrimPrefix(rest[end+len("\n---\n"):], "\n"),
	}, nil
}

// Build serializes the note. The frontmatter block is omitted when empty.
func (n *Note) Build() ([]byte, error) {
	var buf bytes.Buffer
	if n.Frontmatter != nil && len(n.Frontmatter.keys) > 0 {
		out, err := yaml.Marshal(n.Frontmatter)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal frontmatter: %w", err)
		}
		buf.WriteString("---\n")
		buf.Write(out)
		buf.WriteString("---\n")
	}
	buf.WriteString(n.Body)
	return buf.Bytes(), nil
}

// Get returns the value stored under key.
func (f *Frontmatter) Get(key string) (any, bool) {
	v, ok := f.fields[key]
	return v, ok
}

// Set stores value under key.
func (f *Frontmatter) Set(key string, value any) {
	if _, exists := f.fields[key]; !exists {
		f.keys = append(f.keys, key)
		sort.Strings(f.keys)
	}
	f.fields[key] = value
}

// SetNonEmpty stores value unless it is the empty string.
func (f *Frontmatter) SetNonEmpty(key, value string) {
	if strings.TrimSpace(value) != "" {
		f.Set(key, value)
	}
}

// Delete removes key.
func (f *Frontmatter) Delete(key string) {
	if _, ok := f.fields[key]; !ok {
		return
	}
	delete(f.fields, key)
	for i, k := range f.keys {
		if k == key {
			f.keys = append(f.keys[:i], f.keys[i+1:]...)
			break
		}
	}
}

// GetString returns the string under key, or "".
func (f *Frontmatter) GetString(key string) string {
	s, _ := f.fields[key].(string)
	return s
}

// GetStrings returns the string list under key. YAML decodes lists as
// []any, so both that and []string are accepted.
func (f *Frontmatter) GetStrings(key string) []string {
	return stringsFromAny(f.fields[key])
}

// Keys returns the sorted keys.
func (f *Frontmatter) Keys() []string {
	return append([]string(nil), f.keys...)
}

// MarshalYAML writes keys in sorted order with tags as a flow sequence.
func (f *Frontmatter) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, key := range f.keys {
		keyNode := &yaml.Node{Kind: yaml.ScalarNode, Value: key}

		var valueNode *yaml.Node
		if key == "tags" {
			valueNode = &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
			for _, tag := range stringsFromAny(f.fields[key]) {
				valueNode.Content = append(valueNode.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: tag})
			}
		} else {
			valueNode = &yaml.Node{}
			if err := valueNode.Encode(f.fields[key]); err != nil {
				return nil, err
			}
		}
		node.Content = append(node.Content, keyNode, valueNode)
	}
	return node, nil
}

func stringsFromAny(v any) []string {
	out := []string{}
	switch list := v.(type) {
	case []string:
		for _, s := range list {
			if s != "" {
				out = append(out, s)
			}
		}
	case []any:
		for _, item := range list {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}
