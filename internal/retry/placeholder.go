// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package retry

import (
	"fmt"

	"github.com/pdiddy/paperfeed/pkg/types"
)

// PlaceholderPrefix starts every placeholder ID, keeping them disjoint
// from feed identifiers.
const PlaceholderPrefix = "placeholder:"

var placeholderTopics = []string{
	"Deep Learning",
	"Machine Learning",
	"Computer Vision",
	"Natural Language Processing",
	"Reinforcement Learning",
}

var placeholderCategories = []string{"cs.CV", "cs.LG", "cs.AI"}

// Placeholders generates n stand-in records numbered from offset. The
// output depends only on its arguments.
func Placeholders(offset, n int) []types.Paper {
	papers := make([]types.Paper, n)
	for i := range papers {
		idx := offset + i
		papers[i] = types.Paper{
			ID:    fmt.Sprintf("%s%d", PlaceholderPrefix, idx),
			Title: fmt.Sprintf("Sample Paper %d: %s Research", idx, placeholderTopics[idx%len(placeholderTopics)]),
			Authors: []string{
				fmt.Sprintf("Author %d", idx*2+1),
				fmt.Sprintf("Author %d", idx*2+2),
			},
			Abstract:   fmt.Sprintf("Placeholder record %d, generated because the feed could not be reached.", idx),
			Categories: append([]string(nil), placeholderCategories[:idx%3+1]...),
			Origin:     types.OriginPlaceholder,
		}
	}
	return papers
}
