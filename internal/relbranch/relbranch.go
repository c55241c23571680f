// Package relbranch classifies git branch names into stable release
// branches and derives their snap store track.
package relbranch

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
)

const prefix = "release-"

// pattern matches stable release branch names, anchored on both ends.
// Names like "release-1.30-foo" or "v1.30" must not match.
var pattern = regexp.MustCompile(`^release-(\d+)\.(\d+)$`)

// Branch is a parsed release branch name.
type Branch struct {
	Name  string
	Major int
	Minor int
}

// Parse validates name against the release branch naming scheme and
// returns its typed version pair.
func Parse(name string) (*Branch, error) {
	matches := pattern.FindStringSubmatch(name)
	if matches == nil {
		return nil, fmt.Errorf("branch name %q does not match the release branch scheme %q", name, pattern.String())
	}

	major, err := strconv.Atoi(matches[1])
	if err != nil {
		return nil, fmt.Errorf("parsing major version of branch %q failed: %w", name, err)
	}

	minor, err := strconv.Atoi(matches[2])
	if err != nil {
		return nil, fmt.Errorf("parsing minor version of branch %q failed: %w", name, err)
	}

	return &Branch{
		Name:  name,
		Major: major,
		Minor: minor,
	}, nil
}

// Track returns the version part of the branch name, the suffix after the
// fixed prefix. For "release-1.32" it is "1.32".
func (b *Branch) Track() string {
	return b.Name[len(prefix):]
}

func (b *Branch) String() string {
	return b.Name
}

// Match filters names down to release branches.
// The result is sorted by (major, minor) ascending to keep run logs
// reproducible. No matches yields an empty slice, not an error.
func Match(names []string) []*Branch {
	result := make([]*Branch, 0, len(names))

	for _, name := range names {
		branch, err := Parse(name)
		if err != nil {
			continue
		}

		result = append(result, branch)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Major != result[j].Major {
			return result[i].Major < result[j].Major
		}

		return result[i].Minor < result[j].Minor
	})

	return result
}
