package categorize

import (
	"strings"

	"github.com/sahilm/fuzzy"
)

// FallbackCategory is assigned when neither the oracle nor the keyword table
// produces a category.
const FallbackCategory = "Others"

// keywordCategory pairs a category name with the keywords that select it.
type keywordCategory struct {
	name     string
	keywords []string
}

var keywordCategories = []keywordCategory{
	{name: "News", keywords: []string{"news", "media", "broadcast", "press"}},
	{name: "Technology", keywords: []string{"tech", "software", "computer", "programming", "coding"}},
	{name: "Sports", keywords: []string{"sports", "football", "soccer", "basketball", "tennis"}},
	{name: "Education", keywords: []string{"education", "learning", "school", "university", "course"}},
	{name: "Entertainment", keywords: []string{"entertainment", "movies", "music", "games", "videos"}},
}

// KeywordCategorize picks a category from the title and URL alone. An exact
// substring pass runs first; a fuzzy pass over the title/URL tokens catches
// near misses. Falls back to FallbackCategory.
func KeywordCategorize(title, url string) string {
	text := strings.ToLower(title + " " + url)

	for _, cat := range keywordCategories {
		for _, kw := range cat.keywords {
			if strings.Contains(text, kw) {
				return cat.name
			}
		}
	}

	tokens := strings.FieldsFunc(text, func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
	if len(tokens) == 0 {
		return FallbackCategory
	}
	for _, cat := range keywordCategories {
		for _, kw := range cat.keywords {
			if len(fuzzy.Find(kw, tokens)) > 0 {
				return cat.name
			}
		}
	}

	return FallbackCategory
}
