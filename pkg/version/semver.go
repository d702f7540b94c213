package version

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// pep440 splits a Python package version into release, pre/dev and local parts.
var pep440 = regexp.MustCompile(`^[vV]?(\d+(?:\.\d+)*)((?:[._-]?(?:alpha|beta|post|dev|rc|a|b|c)[._-]?\d*)*)(?:\+([0-9A-Za-z.\-_]+))?$`)

var pep440Segment = regexp.MustCompile(`(alpha|beta|post|dev|rc|a|b|c)[._-]?(\d*)`)

var preLabels = map[string]string{
	"a":     "alpha",
	"alpha": "alpha",
	"b":     "beta",
	"beta":  "beta",
	"c":     "rc",
	"rc":    "rc",
	"dev":   "dev",
}

// Normalize turns a Python (PEP 440) version into a semver string.
//
// The release is cut or padded to three numbers, pre-release and dev segments become
// the semver pre-release, and post-release and local segments become build metadata:
//
//	2.1.0+cu121     -> 2.1.0+cu121
//	0.20.0.dev0     -> 0.20.0-dev.0
//	1.16.3rc1       -> 1.16.3-rc.1
//	4.36            -> 4.36.0
//	1.2.3.4.post2   -> 1.2.3+post.2
func Normalize(v string) (string, error) {
	m := pep440.FindStringSubmatch(strings.TrimSpace(strings.ToLower(v)))
	if m == nil {
		return "", fmt.Errorf("unrecognised version %q", v)
	}

	release := strings.Split(m[1], ".")
	for len(release) < 3 {
		release = append(release, "0")
	}
	out := strings.Join(release[:3], ".")

	var pre, meta []string
	for _, seg := range pep440Segment.FindAllStringSubmatch(m[2], -1) {
		label, num := seg[1], seg[2]
		if num == "" {
			num = "0"
		}
		if label == "post" {
			meta = append(meta, "post", num)
			continue
		}
		pre = append(pre, preLabels[label], num)
	}
	if m[3] != "" {
		meta = append(meta, strings.NewReplacer("_", ".", "-", ".").Replace(m[3]))
	}

	if len(pre) > 0 {
		out += "-" + strings.Join(pre, ".")
	}
	if len(meta) > 0 {
		out += "+" + strings.Join(meta, ".")
	}
	return out, nil
}

// Parse parses a semver or PEP 440 version string.
func Parse(v string) (*semver.Version, error) {
	if parsed, err := semver.NewVersion(v); err == nil {
		return parsed, nil
	}
	normalized, err := Normalize(v)
	if err != nil {
		return nil, err
	}
	parsed, err := semver.NewVersion(normalized)
	if err != nil {
		return nil, fmt.Errorf("parse version %q: %w", v, err)
	}
	return parsed, nil
}

// Satisfies reports whether version v meets constraint (e.g. ">= 0.20, < 2").
//
// As with pip, pre-release and dev builds only satisfy constraints that name a
// pre-release themselves.
func Satisfies(v, constraint string) (bool, error) {
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return false, fmt.Errorf("parse constraint %q: %w", constraint, err)
	}
	parsed, err := Parse(v)
	if err != nil {
		return false, err
	}
	return c.Check(parsed), nil
}
