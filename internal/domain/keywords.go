package domain

import (
	"regexp"
	"sort"
	"strings"

	"github.com/google/uuid"
)

const (
	minKeywordLength   = 3
	maxKeywordsPerItem = 20
)

var keywordPattern = regexp.MustCompile(`#\w+|@\w+|\b[a-z]{3,}\b`)

var stopWords = map[string]struct{}{
	"the": {}, "be": {}, "to": {}, "of": {}, "and": {}, "in": {}, "that": {},
	"have": {}, "it": {}, "for": {}, "not": {}, "on": {}, "with": {}, "he": {},
	"as": {}, "you": {}, "do": {}, "at": {}, "this": {}, "but": {}, "his": {},
	"by": {}, "from": {}, "they": {}, "we": {}, "say": {}, "her": {}, "she": {},
	"or": {}, "an": {}, "will": {}, "my": {}, "one": {}, "all": {}, "would": {},
	"there": {}, "their": {}, "what": {}, "so": {}, "up": {}, "out": {}, "if": {},
	"about": {}, "who": {}, "get": {}, "which": {}, "go": {}, "me": {}, "when": {},
	"make": {}, "can": {}, "like": {}, "time": {}, "no": {}, "just": {}, "him": {},
	"know": {}, "take": {}, "people": {}, "into": {}, "year": {}, "your": {},
	"good": {}, "some": {}, "could": {}, "them": {}, "see": {}, "other": {},
	"than": {}, "then": {}, "now": {}, "look": {}, "only": {}, "come": {},
	"its": {}, "over": {}, "think": {}, "also": {}, "back": {}, "after": {},
	"use": {}, "two": {}, "how": {}, "our": {}, "work": {}, "first": {},
	"well": {}, "way": {}, "even": {}, "new": {}, "want": {}, "because": {},
	"any": {}, "these": {}, "give": {}, "day": {}, "most": {}, "us": {},
	"is": {}, "was": {}, "are": {}, "been": {}, "has": {}, "had": {},
	"were": {}, "said": {}, "did": {}, "having": {}, "may": {}, "should": {},
	"am": {}, "being": {}, "does": {}, "doing": {}, "more": {}, "very": {},
	"such": {}, "here": {}, "where": {}, "why": {}, "own": {}, "same": {},
	"too": {}, "still": {},
}

var urlPattern = regexp.MustCompile(`https?://\S+|www\.\S+`)

// KeywordCandidate is one keyword observed across a user's recent content,
// with the items it appeared in.
type KeywordCandidate struct {
	Keyword  string
	Mentions int
	ItemIDs  []uuid.UUID
}

// ExtractKeywords returns the distinct keywords of a single text, most
// frequent first. Hashtags and @mentions survive the stop-word filter.
func ExtractKeywords(text string) []string {
	if text == "" {
		return nil
	}

	text = strings.ToLower(text)
	text = urlPattern.ReplaceAllString(text, "")

	counts := make(map[string]int)
	order := make([]string, 0)
	for _, word := range keywordPattern.FindAllString(text, -1) {
		if !strings.HasPrefix(word, "#") && !strings.HasPrefix(word, "@") {
			if _, stop := stopWords[word]; stop {
				continue
			}
			if len(word) < minKeywordLength {
				continue
			}
		}
		if counts[word] == 0 {
			order = append(order, word)
		}
		counts[word]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > maxKeywordsPerItem {
		order = order[:maxKeywordsPerItem]
	}
	return order
}

// CollectCandidates aggregates per-item keywords into candidates with mention
// counts, keeping only keywords seen in at least minMentions distinct items.
// Output is ordered by mentions desc, then keyword asc for determinism.
func CollectCandidates(items []ContentItem, minMentions int) []KeywordCandidate {
	itemIDsByKeyword := make(map[string][]uuid.UUID)
	for _, item := range items {
		text := item.Title + " " + item.Body
		seen := make(map[string]struct{})
		for _, kw := range ExtractKeywords(text) {
			if _, dup := seen[kw]; dup {
				continue
			}
			seen[kw] = struct{}{}
			itemIDsByKeyword[kw] = append(itemIDsByKeyword[kw], item.ID)
		}
	}

	candidates := make([]KeywordCandidate, 0, len(itemIDsByKeyword))
	for kw, ids := range itemIDsByKeyword {
		if len(ids) < minMentions {
			continue
		}
		candidates = append(candidates, KeywordCandidate{
			Keyword:  kw,
			Mentions: len(ids),
			ItemIDs:  ids,
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Mentions != candidates[j].Mentions {
			return candidates[i].Mentions > candidates[j].Mentions
		}
		return candidates[i].Keyword < candidates[j].Keyword
	})
	return candidates
}
