package group

import "github.com/abelbrown/daybook/internal/model"

// SortOptions controls the editorial tie-breaks applied to one bucket.
type SortOptions struct {
	// TopStoryScheme is the taxonomy vocabulary that flags editorial
	// prominence. Empty disables top-story promotion.
	TopStoryScheme string

	// CoveragePromotion lifts items with at least one coverage into the
	// second tier. Disabled by configuration on some deployments.
	CoveragePromotion bool
}

// SortBucket resolves the render order of a group's visible ids as a
// three-tier stable partition:
//
//  1. top-story-tagged ids that are not continuations in this bucket
//  2. ids with at least one coverage (when CoveragePromotion is on)
//  3. everything else, including top stories past their first day
//
// This is a partition, not a comparator sort: relative input order is
// preserved within each tier. Ids missing from byID fall through to
// the last tier in source order.
func SortBucket(g model.Group, byID map[string]model.Item, opts SortOptions) []string {
	if len(g.Items) == 0 {
		return []string{}
	}

	hidden := make(map[string]bool, len(g.HiddenItems))
	for _, id := range g.HiddenItems {
		hidden[id] = true
	}

	var top, covered, rest []string
	for _, id := range g.Items {
		it, ok := byID[id]
		switch {
		case ok && it.IsTopStory(opts.TopStoryScheme) && !hidden[id]:
			// A top story loses its priority after its first day.
			top = append(top, id)
		case ok && opts.CoveragePromotion && it.HasCoverage():
			covered = append(covered, id)
		default:
			rest = append(rest, id)
		}
	}

	ordered := make([]string, 0, len(g.Items))
	ordered = append(ordered, top...)
	ordered = append(ordered, covered...)
	ordered = append(ordered, rest...)
	return ordered
}
