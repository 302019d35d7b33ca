package query

import (
	"fmt"
	"sort"
	"strings"

	"flatpages/internal/models"
)

// Presets for common listings. A limit of zero returns every match.

// MostRecentlyModified lists the latest edits first.
func MostRecentlyModified(limit int) Options {
	return Options{Sort: SortModifiedDesc, Limit: limit}
}

// LeastRecentlyModified lists the stalest pages first.
func LeastRecentlyModified(limit int) Options {
	return Options{Sort: SortModified, Limit: limit}
}

// MostRecentlyCreated lists the newest pages first.
func MostRecentlyCreated(limit int) Options {
	return Options{Sort: SortCreatedDesc, Limit: limit}
}

// LeastRecentlyCreated lists the oldest pages first.
func LeastRecentlyCreated(limit int) Options {
	return Options{Sort: SortCreated, Limit: limit}
}

// MostViewed lists the most visited pages first.
func MostViewed(limit int) Options {
	return Options{Sort: SortViews, Limit: limit}
}

// LeastViewed lists the least visited pages first.
func LeastViewed(limit int) Options {
	return Options{Sort: SortViewsDesc, Limit: limit}
}

// Random samples pages in random order.
func Random(limit int) Options {
	return Options{Sort: SortRandom, Limit: limit}
}

var presets = map[string]func(limit int) Options{
	"most-recently-modified":  MostRecentlyModified,
	"least-recently-modified": LeastRecentlyModified,
	"most-recently-created":   MostRecentlyCreated,
	"least-recently-created":  LeastRecentlyCreated,
	"most-viewed":             MostViewed,
	"least-viewed":            LeastViewed,
	"random":                  Random,
}

// Preset returns the named preset listing.
func Preset(name string, limit int) (Options, error) {
	fn, ok := presets[strings.TrimSpace(name)]
	if !ok {
		return Options{}, models.NewInvalidArgumentError("preset",
			fmt.Errorf("unknown preset %q (expected one of %s)", name, strings.Join(PresetNames(), ", ")))
	}
	return fn(limit), nil
}

// PresetNames lists the accepted preset names.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
