package services

import (
	"regexp"
	"strings"
)

// tagKeywords maps a generated tag to the phrases that imply it. Order is the output order.
var tagKeywords = []struct {
	tag      string
	keywords []string
}{
	{"delay", []string{"delayed", "late", "waiting", "behind schedule"}},
	{"restaurant", []string{"restaurant", "food", "kitchen", "order prep"}},
	{"dp_issue", []string{"delivery partner", "driver", "rider", "vehicle", "traffic"}},
	{"grouped_order", []string{"grouped", "another order", "multiple deliveries"}},
	{"unassigned", []string{"unassigned", "assigning", "no driver"}},
	{"status", []string{"status", "on time", "tracking"}},
	{"resolved", []string{"resolved", "handed over", "on the way"}},
}

var hashtagPattern = regexp.MustCompile(`#(\w+)`)

// GenerateTags derives tags from keyword matches and #hashtags in text.
func GenerateTags(text string) []string {
	lower := strings.ToLower(text)
	tags := []string{}
	seen := map[string]bool{}
	add := func(tag string) {
		if !seen[tag] {
			seen[tag] = true
			tags = append(tags, tag)
		}
	}

	for _, k := range tagKeywords {
		for _, kw := range k.keywords {
			if strings.Contains(lower, kw) {
				add(k.tag)
				break
			}
		}
	}
	for _, m := range hashtagPattern.FindAllStringSubmatch(lower, -1) {
		add(m[1])
	}
	return tags
}

// MergeTags returns the de-duplicated union of user tags followed by generated ones.
// Tags are case-sensitive; blank tags are dropped.
func MergeTags(userTags, generated []string) []string {
	out := make([]string, 0, len(userTags)+len(generated))
	seen := map[string]bool{}
	for _, list := range [][]string{userTags, generated} {
		for _, t := range list {
			t = strings.TrimSpace(t)
			if t == "" || seen[t] {
				continue
			}
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

// AutoTag merges user tags with tags generated from text.
func AutoTag(text string, userTags []string) []string {
	return MergeTags(userTags, GenerateTags(text))
}
