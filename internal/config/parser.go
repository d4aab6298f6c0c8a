package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	gridctlerrors "github.com/alexisbeaulieu97/gridctl/pkg/errors"
)

var yamlLineRegex = regexp.MustCompile(`line (\d+)`)

// ParseConfig loads a configuration file from disk, validates it, and returns the resulting model.
func ParseConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, gridctlerrors.NewParseError(path, 0, err)
	}
	return Parse(data, path)
}

// Parse decodes and validates an in-memory document. path is only used in
// error messages. Decode errors inside the resources list name the resource
// they occurred in, and validation errors get the line the resource starts on.
func Parse(data []byte, path string) (*Config, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, gridctlerrors.NewParseError(path, extractLine(err), err)
	}
	index := indexResources(&doc)

	var cfg Config
	if !doc.IsZero() {
		if err := doc.Decode(&cfg); err != nil {
			line := extractLine(err)
			if loc, ok := index.at(line); ok {
				err = fmt.Errorf("%s: %w", loc, err)
			}
			return nil, gridctlerrors.NewParseError(path, line, err)
		}
	}

	if err := ValidateConfig(&cfg); err != nil {
		return nil, index.annotate(err)
	}

	return &cfg, nil
}

// resourceLocation is the span of one entry of the resources list.
type resourceLocation struct {
	index int
	id    string
	line  int
	end   int
}

func (l resourceLocation) String() string {
	if l.id == "" {
		return fmt.Sprintf("resources[%d]", l.index)
	}
	return fmt.Sprintf("resources[%d] (id %q)", l.index, l.id)
}

// owns reports whether a validation field refers to this resource, either by
// list position or by id.
func (l resourceLocation) owns(field string) bool {
	prefix := fmt.Sprintf("resources[%d]", l.index)
	if field == prefix || strings.HasPrefix(field, prefix+".") {
		return true
	}
	return l.id != "" && (field == l.id || strings.HasPrefix(field, l.id+"."))
}

type resourceIndex []resourceLocation

func indexResources(doc *yaml.Node) resourceIndex {
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value != "resources" || root.Content[i+1].Kind != yaml.SequenceNode {
			continue
		}

		// The list ends where the next top-level key starts.
		listEnd := int(^uint(0) >> 1)
		if i+2 < len(root.Content) {
			listEnd = root.Content[i+2].Line - 1
		}

		items := root.Content[i+1].Content
		index := make(resourceIndex, len(items))
		for n, item := range items {
			end := listEnd
			if n+1 < len(items) {
				end = items[n+1].Line - 1
			}
			index[n] = resourceLocation{index: n, id: scalarValue(item, "id"), line: item.Line, end: end}
		}
		return index
	}
	return nil
}

func scalarValue(mapping *yaml.Node, key string) string {
	if mapping.Kind != yaml.MappingNode {
		return ""
	}
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key && mapping.Content[i+1].Kind == yaml.ScalarNode {
			return mapping.Content[i+1].Value
		}
	}
	return ""
}

// at returns the resource whose block contains line.
func (idx resourceIndex) at(line int) (resourceLocation, bool) {
	for _, loc := range idx {
		if line >= loc.line && line <= loc.end {
			return loc, true
		}
	}
	return resourceLocation{}, false
}

// annotate sets the line of a validation error that names a resource.
func (idx resourceIndex) annotate(err error) error {
	var validationErr *gridctlerrors.ValidationError
	if !errors.As(err, &validationErr) || validationErr.Line > 0 {
		return err
	}
	for _, loc := range idx {
		if loc.owns(validationErr.Field) {
			validationErr.Line = loc.line
			break
		}
	}
	return err
}

func extractLine(err error) int {
	if err == nil {
		return 0
	}

	matches := yamlLineRegex.FindStringSubmatch(err.Error())
	if len(matches) != 2 {
		return 0
	}

	var line int
	_, scanErr := fmt.Sscanf(matches[1], "%d", &line)
	if scanErr != nil {
		return 0
	}

	return line
}
