package classifier

import (
	"regexp"
	"strings"

	"github.com/xaenox/jarvis/internal/models"
)

// wordPattern matches significant words: four or more word characters.
var wordPattern = regexp.MustCompile(`\w{4,}`)

// stopwords excluded from conversation tag extraction. Memory tag extraction
// deliberately skips this filter.
var stopwords = map[string]struct{}{
	"this": {}, "that": {}, "with": {}, "from": {}, "they": {}, "have": {},
	"been": {}, "will": {}, "what": {}, "when": {}, "where": {}, "how": {},
}

// categoryBucket pairs a category with the keywords that select it.
type categoryBucket struct {
	category string
	keywords []string
}

// categoryBuckets are evaluated in order; the first bucket with a keyword
// found in the lowercased input wins. General is never matched, so it sticks
// until another bucket does.
var categoryBuckets = []categoryBucket{
	{models.CategoryTechnical, []string{"code", "programming", "software", "debug", "error", "api", "database", "server", "deploy"}},
	{models.CategoryPlanning, []string{"plan", "schedule", "roadmap", "strategy", "goal", "milestone", "deadline", "organize"}},
	{models.CategoryAnalysis, []string{"analyze", "analysis", "data", "report", "metric", "statistic", "compare", "evaluate"}},
	{models.CategoryCreative, []string{"design", "create", "idea", "brainstorm", "story", "write", "creative", "imagine"}},
}

// Categorize returns the category for a conversation after seeing userText.
// No keyword match keeps the previous category (last classification wins).
func Categorize(previous, userText string) string {
	lowered := strings.ToLower(userText)
	for _, bucket := range categoryBuckets {
		for _, keyword := range bucket.keywords {
			if strings.Contains(lowered, keyword) {
				return bucket.category
			}
		}
	}
	return previous
}

// ExtractTags returns up to max stoplist-filtered significant words from
// userText, lowercased, in order of first appearance.
func ExtractTags(userText string, max int) []string {
	words := wordPattern.FindAllString(strings.ToLower(userText), -1)
	var tags []string
	for _, word := range words {
		if _, stop := stopwords[word]; stop {
			continue
		}
		tags = append(tags, word)
		if len(tags) == max {
			break
		}
	}
	return tags
}

// MemoryTags returns up to max significant words from content. Unlike
// ExtractTags no stoplist is applied; the two extractors intentionally
// disagree.
func MemoryTags(content string, max int) []string {
	words := wordPattern.FindAllString(strings.ToLower(content), -1)
	if len(words) > max {
		words = words[:max]
	}
	return words
}

// MergeTags unions newTags into existing with set semantics, preserving the
// order tags were first seen.
func MergeTags(existing, newTags []string) []string {
	seen := make(map[string]struct{}, len(existing))
	merged := make([]string, 0, len(existing)+len(newTags))
	for _, tag := range existing {
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		merged = append(merged, tag)
	}
	for _, tag := range newTags {
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		merged = append(merged, tag)
	}
	return merged
}
