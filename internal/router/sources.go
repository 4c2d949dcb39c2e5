// internal/router/sources.go
package router

import (
	"regexp"
	"sort"
	"strings"
)

// Citation formats the research prompt instructs the model to use.
var citationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\[Source:\s*(https?://[^\]\s]+)\]`),
	regexp.MustCompile(`\(Source:\s*(https?://[^)\s]+)\)`),
	regexp.MustCompile(`URL:\s*(https?://[^\s]+)`),
}

var urlPattern = regexp.MustCompile(`https?://[^\s<>"')\]]+`)

// ExtractCitedURLs returns the URLs cited in generated text,
// deduplicated with the order of first citation preserved.
func ExtractCitedURLs(text string) []string {
	type hit struct {
		pos int
		url string
	}
	var hits []hit
	for _, pattern := range citationPatterns {
		for _, m := range pattern.FindAllStringSubmatchIndex(text, -1) {
			hits = append(hits, hit{pos: m[2], url: trimURL(text[m[2]:m[3]])})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })

	seen := make(map[string]bool, len(hits))
	urls := []string{}
	for _, h := range hits {
		if h.url == "" || seen[h.url] {
			continue
		}
		seen[h.url] = true
		urls = append(urls, h.url)
	}
	return urls
}

// ExtractURLs returns every URL mentioned in text, deduplicated in
// order of first appearance. Used to detect research targets in the
// latest user turn.
func ExtractURLs(text string) []string {
	seen := make(map[string]bool)
	urls := []string{}
	for _, raw := range urlPattern.FindAllString(text, -1) {
		u := trimURL(raw)
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		urls = append(urls, u)
	}
	return urls
}

// trimURL strips trailing punctuation that prose tends to attach.
func trimURL(u string) string {
	return strings.TrimRight(u, ".,;:!?")
}
