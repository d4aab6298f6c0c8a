// Package diff renders human-readable drift between two states.
package diff

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
	"gopkg.in/yaml.v3"
)

const (
	maxDiffLines    = 2000
	truncateMessage = "... (diff truncated, exceeds 2,000 lines) ..."
)

// GenerateUnifiedDiff compares two texts line by line and renders the result
// in unified format. Identical inputs produce an empty string.
func GenerateUnifiedDiff(before, after []byte, beforeLabel, afterLabel string) string {
	if bytes.Equal(before, after) {
		return ""
	}

	dmp := diffmatchpatch.New()
	a, b, lineArray := dmp.DiffLinesToChars(string(before), string(after))
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "--- %s\n", beforeLabel)
	fmt.Fprintf(&buf, "+++ %s\n", afterLabel)
	fmt.Fprintf(&buf, "@@ -1,%d +1,%d @@\n", countLines(before), countLines(after))

	for _, d := range diffs {
		prefix := " "
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		}
		for _, line := range splitLines(d.Text) {
			buf.WriteString(prefix)
			buf.WriteString(line)
			buf.WriteString("\n")
		}
	}

	result := buf.String()
	lines := strings.Split(result, "\n")
	if len(lines) > maxDiffLines {
		return strings.Join(lines[:maxDiffLines], "\n") + "\n" + truncateMessage + "\n"
	}
	return result
}

// RenderChangeSet shows, for the changed keys only, the current values
// against the values that would be written. Keys are sorted so the output is
// stable.
func RenderChangeSet(current, changes map[string]any, label string) (string, error) {
	if len(changes) == 0 {
		return "", nil
	}

	keys := make([]string, 0, len(changes))
	for k := range changes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	before := make(map[string]any, len(keys))
	for _, k := range keys {
		if v, ok := current[k]; ok && v != nil {
			before[k] = v
		}
	}

	beforeYAML, err := marshal(before)
	if err != nil {
		return "", err
	}
	afterYAML, err := marshal(changes)
	if err != nil {
		return "", err
	}

	return GenerateUnifiedDiff(beforeYAML, afterYAML, label+" (current)", label+" (desired)"), nil
}

func marshal(v map[string]any) ([]byte, error) {
	if len(v) == 0 {
		return nil, nil
	}
	out, err := yaml.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("render diff: %w", err)
	}
	return out, nil
}

func splitLines(text string) []string {
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

func countLines(b []byte) int {
	return len(splitLines(string(b)))
}
