// Package artifact extracts structured fragments from generated text.
package artifact

import (
	"strings"

	"github.com/vihaan69-420/school-agent-simple/internal/types"
)

const fence = "```"

// DefaultLanguage is used when a fenced region carries no language tag.
const DefaultLanguage = "plaintext"

// Extract scans text for fenced code regions and returns one artifact
// per region. Extraction is pure: identical input yields identical
// (language, content) pairs in the same order. Artifact ids are freshly
// generated per call. An opening fence with no closing fence is
// ignored.
func Extract(text string, from types.MessageID) []types.Artifact {
	artifacts := []types.Artifact{}
	lines := strings.Split(text, "\n")

	var (
		inFence bool
		lang    string
		body    []string
	)
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, fence) {
			if inFence {
				body = append(body, line)
			}
			continue
		}
		if !inFence {
			inFence = true
			lang = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(trimmed, fence)))
			if lang == "" {
				lang = DefaultLanguage
			}
			body = body[:0]
			continue
		}
		artifacts = append(artifacts, types.Artifact{
			ID:        types.NewArtifactID(),
			Kind:      types.ArtifactKindCode,
			Language:  lang,
			Content:   strings.TrimSpace(strings.Join(body, "\n")),
			MessageID: from,
		})
		inFence = false
	}
	return artifacts
}
