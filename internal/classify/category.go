package classify

import "strings"

// Category is a coarse derived content category used as a context hint.
type Category string

const (
	News          Category = "news"
	Educational   Category = "educational"
	Entertainment Category = "entertainment"
	Social        Category = "social"
	Commercial    Category = "commercial"
	Unknown       Category = "unknown"
)

var categoryKeywords = map[Category][]string{
	News: {
		"breaking", "news", "report", "according to", "sources say",
		"announcement", "official", "statement", "update",
	},
	Educational: {
		"learn", "tutorial", "how to", "guide", "explanation",
		"research", "study", "analysis", "science", "education",
	},
	Entertainment: {
		"funny", "hilarious", "meme", "viral", "trending",
		"celebrity", "movie", "music", "game", "fun",
	},
	Commercial: {
		"buy", "sale", "discount", "offer", "deal", "price",
		"product", "review", "sponsored", "ad",
	},
}

// detectionOrder fixes the tie-break so detection stays deterministic.
var detectionOrder = []Category{News, Educational, Entertainment, Commercial}

// DetectCategory derives a content category from keyword counts. Ties go to
// the earliest category in detection order; no hits at all yields Unknown.
func DetectCategory(text string) Category {
	lower := strings.ToLower(text)

	best := Unknown
	bestScore := 0
	for _, cat := range detectionOrder {
		score := 0
		for _, kw := range categoryKeywords[cat] {
			if strings.Contains(lower, kw) {
				score++
			}
		}
		if score > bestScore {
			bestScore = score
			best = cat
		}
	}
	return best
}
