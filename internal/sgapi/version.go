package sgapi

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	goversion "github.com/hashicorp/go-version"
)

const productVersionPath = "api/v4/grid/config/product-version"

// Version is a StorageGRID release such as 11.8.0, or a full build such as
// 11.8.0.2. Every dotted component takes part in comparisons.
type Version struct {
	v   *goversion.Version
	Raw string
}

// ParseVersion accepts "11.8", "11.8.0.2" or a build string such as
// "11.4.0-20200721.1338.d3969b3". The build suffix after '-' is ignored.
func ParseVersion(s string) (Version, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return Version{}, fmt.Errorf("version string is empty")
	}

	core := trimmed
	if i := strings.IndexAny(core, "-+ "); i >= 0 {
		core = core[:i]
	}
	if !strings.Contains(core, ".") {
		return Version{}, fmt.Errorf("invalid version %q (expected format: X.Y[.Z[.B]])", s)
	}

	parsed, err := goversion.NewVersion(core)
	if err != nil {
		return Version{}, fmt.Errorf("invalid version %q: %w", s, err)
	}
	return Version{v: parsed, Raw: trimmed}, nil
}

// MustParseVersion panics if s cannot be parsed.
func MustParseVersion(s string) Version {
	v, err := ParseVersion(s)
	if err != nil {
		panic(err)
	}
	return v
}

// Segments returns the numeric components, padded to at least three.
func (v Version) Segments() []int {
	if v.v == nil {
		return []int{0, 0, 0}
	}
	return v.v.Segments()
}

// Compare returns -1, 0 or 1. The zero Version sorts first.
func (v Version) Compare(other Version) int {
	switch {
	case v.v == nil && other.v == nil:
		return 0
	case v.v == nil:
		return -1
	case other.v == nil:
		return 1
	default:
		return v.v.Compare(other.v)
	}
}

// AtLeast reports whether v >= minimum.
func (v Version) AtLeast(minimum Version) bool {
	return v.Compare(minimum) >= 0
}

// IsZero reports whether v was never set.
func (v Version) IsZero() bool {
	return v.v == nil
}

// String renders at least major.minor.patch.
func (v Version) String() string {
	segs := v.Segments()
	out := make([]string, len(segs))
	for i, n := range segs {
		out[i] = strconv.Itoa(n)
	}
	return strings.Join(out, ".")
}

// VersionError reports a feature the grid is too old for.
type VersionError struct {
	Feature string
	Minimum Version
	Actual  Version
}

func (e *VersionError) Error() string {
	return fmt.Sprintf("%s requires StorageGRID %s or later (grid runs %s)", e.Feature, e.Minimum, e.Actual)
}

// ProductVersion reads the grid release.
func ProductVersion(ctx context.Context, c Collaborator) (Version, error) {
	resp, err := c.Get(ctx, productVersionPath, nil)
	if err != nil {
		return Version{}, fmt.Errorf("read product version: %w", err)
	}

	var data struct {
		ProductVersion string `json:"productVersion"`
	}
	if err := resp.Decode(&data); err != nil {
		return Version{}, err
	}
	return ParseVersion(data.ProductVersion)
}

// RequireVersion fails with a *VersionError when actual is older than
// minimum. A zero minimum always passes.
func RequireVersion(feature string, minimum, actual Version) error {
	if minimum.IsZero() || actual.AtLeast(minimum) {
		return nil
	}
	return &VersionError{Feature: feature, Minimum: minimum, Actual: actual}
}
