package outlines

import (
	"log/slog"
	"strings"

	"dario.cat/mergo"
	"watsearch-backend/lib/scrapers/outline"
)

// PlaceholderMarker appears in the description of records synthesized
// from a listings row before the real outline has been fetched.
const PlaceholderMarker = "Detailed information will be available"

// IsPlaceholder reports whether a course is a listings-derived stub
// rather than a fully parsed outline.
func IsPlaceholder(c outline.Course) bool {
	return strings.Contains(c.Description, PlaceholderMarker)
}

type MergeResult struct {
	Courses []outline.Course
	Added   int
	Updated int
}

// Merge folds incoming courses into the existing set. Records are
// keyed by the exact (code, term) pair. A match merges field by
// field: non-empty incoming fields win, everything else is retained
// from the existing record. A placeholder never overwrites a fully
// parsed record. Merging the same input twice yields the same set.
func Merge(existing []outline.Course, incoming []outline.Course) MergeResult {
	type key struct {
		code string
		term string
	}

	courses := make([]outline.Course, len(existing))
	copy(courses, existing)

	index := map[key]int{}
	for i, c := range courses {
		index[key{c.Code, c.Term}] = i
	}

	result := MergeResult{}
	for _, next := range incoming {
		k := key{next.Code, next.Term}
		at, ok := index[k]
		if !ok {
			index[k] = len(courses)
			courses = append(courses, next)
			result.Added++
			continue
		}

		current := courses[at]
		if IsPlaceholder(next) && !IsPlaceholder(current) {
			continue
		}

		merged := current
		if IsPlaceholder(current) && !IsPlaceholder(next) {
			// the stub's marker description must not survive the
			// field-level merge even when the parsed record has none
			merged.Description = ""
		}
		err := mergo.Merge(&merged, next, mergo.WithOverride)
		if err != nil {
			slog.Error("failed to merge course records", "code", next.Code, "term", next.Term, "err", err)
			continue
		}
		courses[at] = merged
		result.Updated++
	}

	result.Courses = courses
	return result
}
